package api

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassifyPrecedence(t *testing.T) {
	tests := []struct {
		name         string
		status       int
		payload      errorPayload
		transportErr error
		wantKind     Kind
		wantStatus   int
		wantCode     string
	}{
		{
			name:         "transport failure wins over everything",
			status:       http.StatusUnauthorized,
			transportErr: errors.New("connection refused"),
			wantKind:     KindNetwork,
			wantStatus:   0,
			wantCode:     "NETWORK_ERROR",
		},
		{
			name:       "401 ignores payload content",
			status:     http.StatusUnauthorized,
			payload:    errorPayload{Message: "whatever the provider said", Code: "X"},
			wantKind:   KindUnauthorized,
			wantStatus: http.StatusUnauthorized,
			wantCode:   "UNAUTHORIZED",
		},
		{
			name:       "429 takes provider message",
			status:     http.StatusTooManyRequests,
			payload:    errorPayload{Message: "slow down"},
			wantKind:   KindRateLimited,
			wantStatus: http.StatusTooManyRequests,
			wantCode:   "RATE_LIMITED",
		},
		{
			name:       "429 without payload uses default message",
			status:     http.StatusTooManyRequests,
			wantKind:   KindRateLimited,
			wantStatus: http.StatusTooManyRequests,
			wantCode:   "RATE_LIMITED",
		},
		{
			name:       "other status carries payload code",
			status:     http.StatusConflict,
			payload:    errorPayload{Message: "already provisioning", Code: "CONFLICT"},
			wantKind:   KindAPI,
			wantStatus: http.StatusConflict,
			wantCode:   "CONFLICT",
		},
		{
			name:       "other status falls back to generic defaults",
			status:     http.StatusServiceUnavailable,
			wantKind:   KindAPI,
			wantStatus: http.StatusServiceUnavailable,
			wantCode:   "API_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classify(tt.status, tt.payload, tt.transportErr)
			require.Equal(t, tt.wantKind, err.Kind)
			require.Equal(t, tt.wantStatus, err.Status)
			require.Equal(t, tt.wantCode, err.Code)
			require.NotEmpty(t, err.Message)
		})
	}
}

func TestClassifyLocal(t *testing.T) {
	err := classifyLocal(errors.New("boom"))
	require.Equal(t, KindUnknown, err.Kind)
	require.Equal(t, http.StatusInternalServerError, err.Status)
	require.Equal(t, "boom", err.Message)

	err = classifyLocal(nil)
	require.Equal(t, KindUnknown, err.Kind)
	require.Equal(t, "An unexpected error occurred", err.Message)
}

func TestKindOf(t *testing.T) {
	require.Equal(t, KindUnauthorized, KindOf(&Error{Kind: KindUnauthorized}))
	require.Equal(t, KindUnknown, KindOf(errors.New("plain")))
	require.Equal(t, KindUnknown, KindOf(nil))

	wrapped := fmt.Errorf("while refreshing: %w", &Error{Kind: KindRateLimited})
	require.True(t, IsRateLimited(wrapped))
}

func TestErrorString(t *testing.T) {
	err := &Error{Kind: KindAPI, Code: "NO_STOCK", Message: "plan out of stock", Status: 409}
	require.Equal(t, "API_ERROR (NO_STOCK): plan out of stock", err.Error())

	err = &Error{Kind: KindNetwork, Code: "NETWORK_ERROR", Message: "down"}
	require.Equal(t, "NETWORK_ERROR: down", err.Error())
}
