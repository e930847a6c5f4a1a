package api

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is the closed set of failure classes the client can surface.
// Every error escaping this package carries exactly one kind.
type Kind string

const (
	// KindValidation marks input rejected locally before any network call.
	KindValidation Kind = "VALIDATION_ERROR"
	// KindNetwork marks a connection-level failure with no HTTP response.
	KindNetwork Kind = "NETWORK_ERROR"
	// KindUnauthorized marks an HTTP 401 regardless of payload content.
	KindUnauthorized Kind = "UNAUTHORIZED"
	// KindRateLimited covers both the client-side throttle and a provider
	// 429. The two share a kind and are distinguished only by origin: the
	// client-side throttle fails before the request ever reaches the wire.
	KindRateLimited Kind = "RATE_LIMITED"
	// KindAPI marks any other non-2xx upstream response.
	KindAPI Kind = "API_ERROR"
	// KindUnknown marks an unexpected local failure.
	KindUnknown Kind = "UNKNOWN_ERROR"
)

// Error is the classified failure type returned by the client.
// Code carries the provider-supplied machine code when one was present in
// the payload. Status is the HTTP status, or 0 for non-HTTP failures.
type Error struct {
	Kind    Kind
	Message string
	Code    string
	Status  int
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Code != "" && e.Code != string(e.Kind) {
		return fmt.Sprintf("%s (%s): %s", e.Kind, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// AsError unwraps err into a classified *Error if it is one.
func AsError(err error) (*Error, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// KindOf returns the kind of a classified error, or KindUnknown for
// anything else.
func KindOf(err error) Kind {
	if apiErr, ok := AsError(err); ok && apiErr != nil {
		return apiErr.Kind
	}
	return KindUnknown
}

// IsRateLimited reports whether err is a rate-limit failure from either
// the client-side throttle or the provider.
func IsRateLimited(err error) bool {
	return KindOf(err) == KindRateLimited
}

func validationError(code, message string) *Error {
	return &Error{Kind: KindValidation, Code: code, Message: message, Status: http.StatusBadRequest}
}

// errorPayload is the shape the provider uses for error bodies. Fields
// are optional; classification falls back to defaults when absent.
type errorPayload struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

// classify maps a transport outcome into exactly one error kind, with a
// deterministic precedence: no response, then 401, then 429, then any
// other status, then non-HTTP failure.
func classify(status int, payload errorPayload, transportErr error) *Error {
	switch {
	case transportErr != nil:
		return &Error{
			Kind:    KindNetwork,
			Code:    string(KindNetwork),
			Message: "Unable to connect to the server. Please check your internet connection.",
			Status:  0,
		}
	case status == http.StatusUnauthorized:
		return &Error{
			Kind:    KindUnauthorized,
			Code:    string(KindUnauthorized),
			Message: "Invalid API key or unauthorized access. Please check your credentials.",
			Status:  status,
		}
	case status == http.StatusTooManyRequests:
		message := payload.Message
		if message == "" {
			message = "Too many requests. Please try again later."
		}
		return &Error{
			Kind:    KindRateLimited,
			Code:    string(KindRateLimited),
			Message: message,
			Status:  status,
		}
	default:
		message := payload.Message
		if message == "" {
			message = "An error occurred while processing your request."
		}
		code := payload.Code
		if code == "" {
			code = string(KindAPI)
		}
		return &Error{Kind: KindAPI, Code: code, Message: message, Status: status}
	}
}

// classifyLocal wraps an unexpected non-HTTP failure.
func classifyLocal(err error) *Error {
	message := "An unexpected error occurred"
	if err != nil && err.Error() != "" {
		message = err.Error()
	}
	return &Error{
		Kind:    KindUnknown,
		Code:    string(KindUnknown),
		Message: message,
		Status:  http.StatusInternalServerError,
	}
}
