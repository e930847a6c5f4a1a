package server

import (
	"encoding/json"
	"net/http"

	"github.com/vpsdash/vpsdash/internal/api"
	"github.com/vpsdash/vpsdash/internal/server/middleware"
	"github.com/vpsdash/vpsdash/internal/store"
)

// ErrorResponse is the JSON envelope for every error the API returns.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// HandleError is the central error responder. Provider client errors map
// by kind: validation to 400, unauthorized to 401, rate limited to 429,
// upstream trouble to 502. Group validation errors map by code.
func HandleError(w http.ResponseWriter, r *http.Request, err error) {
	code := "INTERNAL_ERROR"
	message := "An internal error occurred"
	status := http.StatusInternalServerError

	if apiErr, ok := api.AsError(err); ok {
		code = string(apiErr.Kind)
		if apiErr.Code != "" {
			code = apiErr.Code
		}
		message = apiErr.Message
		status = statusForAPIError(apiErr)
	} else if groupErr, ok := store.AsGroupError(err); ok {
		code = groupErr.Code
		message = groupErr.Message
		status = statusForGroupError(groupErr)
	}

	writeJSON(w, status, ErrorResponse{
		Error: ErrorDetail{
			Code:      code,
			Message:   message,
			RequestID: middleware.GetRequestID(r.Context()),
		},
	})
}

func statusForAPIError(apiErr *api.Error) int {
	switch apiErr.Kind {
	case api.KindValidation:
		return http.StatusBadRequest
	case api.KindUnauthorized:
		return http.StatusUnauthorized
	case api.KindRateLimited:
		return http.StatusTooManyRequests
	case api.KindNetwork:
		return http.StatusBadGateway
	case api.KindAPI:
		// client errors from the provider pass through; everything
		// else is upstream trouble
		if apiErr.Status >= 400 && apiErr.Status < 500 {
			return apiErr.Status
		}
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func statusForGroupError(groupErr *store.GroupError) int {
	switch groupErr.Code {
	case store.CodeInvalidGroup:
		return http.StatusNotFound
	case store.CodeDuplicateName, store.CodeServerAlreadyGrouped:
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
