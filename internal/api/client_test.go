package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vpsdash/vpsdash/internal/core"
)

const testAPIKey = "0123456789abcdefghijklmnopqrstuv" // 32 chars

// failingDoer simulates a transport that never produces a response.
type failingDoer struct {
	attempts atomic.Int32
}

func (f *failingDoer) Do(req *http.Request) (*http.Response, error) {
	f.attempts.Add(1)
	return nil, errors.New("dial tcp: connection refused")
}

func fastConfig(baseURL string) Config {
	return Config{
		BaseURL:    baseURL,
		MaxRetries: 3,
		RetryDelay: time.Millisecond,
	}
}

func newTestClient(t *testing.T, server *httptest.Server) *Client {
	t.Helper()
	client, err := New(testAPIKey,
		WithConfig(fastConfig(server.URL)),
		WithHTTPClient(server.Client()),
	)
	require.NoError(t, err)
	return client
}

func TestNewValidatesKeyFormat(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		valid bool
	}{
		{"exactly 32 chars", strings.Repeat("a", 32), true},
		{"exactly 64 chars", strings.Repeat("A", 64), true},
		{"hyphen and underscore allowed", strings.Repeat("a-_Z", 8), true},
		{"31 chars", strings.Repeat("a", 31), false},
		{"65 chars", strings.Repeat("a", 65), false},
		{"disallowed character", strings.Repeat("a", 31) + "!", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := New(tt.key)
			if tt.valid {
				require.NoError(t, err)
				require.NotNil(t, client)
				return
			}
			require.Nil(t, client)
			apiErr, ok := AsError(err)
			require.True(t, ok)
			require.Equal(t, KindValidation, apiErr.Kind)
			require.Equal(t, "INVALID_API_KEY", apiErr.Code)
			require.Equal(t, http.StatusBadRequest, apiErr.Status)
		})
	}
}

func TestConfigMergeFillsDefaults(t *testing.T) {
	merged := merge(Config{})
	require.Equal(t, defaultBaseURL, merged.BaseURL)
	require.Equal(t, 30*time.Second, merged.Timeout)
	require.Equal(t, 3, merged.MaxRetries)
	require.Equal(t, time.Second, merged.RetryDelay)

	merged = merge(Config{BaseURL: "https://example.test", MaxRetries: 5})
	require.Equal(t, "https://example.test", merged.BaseURL)
	require.Equal(t, 5, merged.MaxRetries)
	require.Equal(t, 30*time.Second, merged.Timeout)
}

func TestNoResponseRetriesUntilExhausted(t *testing.T) {
	doer := &failingDoer{}
	client, err := New(testAPIKey, WithConfig(fastConfig("http://unreachable.test")), WithHTTPClient(doer))
	require.NoError(t, err)

	_, err = client.ListServers(context.Background())
	apiErr, ok := AsError(err)
	require.True(t, ok)
	require.Equal(t, KindNetwork, apiErr.Kind)
	require.Equal(t, 0, apiErr.Status)

	// maxRetries=3 means exactly four attempts total.
	require.Equal(t, int32(4), doer.attempts.Load())
}

func TestUnauthorizedIsNotRetried(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := newTestClient(t, server)
	_, err := client.ListServers(context.Background())

	apiErr, ok := AsError(err)
	require.True(t, ok)
	require.Equal(t, KindUnauthorized, apiErr.Kind)
	require.Equal(t, http.StatusUnauthorized, apiErr.Status)
	require.Equal(t, int32(1), attempts.Load())
}

func TestServerRateLimitIsNotRetried(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"message":"provider says slow down"}`))
	}))
	defer server.Close()

	client := newTestClient(t, server)
	_, err := client.ListServers(context.Background())

	apiErr, ok := AsError(err)
	require.True(t, ok)
	require.Equal(t, KindRateLimited, apiErr.Kind)
	require.Equal(t, "provider says slow down", apiErr.Message)
	require.Equal(t, int32(1), attempts.Load())
}

func TestServerErrorRetriesThenSucceeds(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	client := newTestClient(t, server)
	servers, err := client.ListServers(context.Background())
	require.NoError(t, err)
	require.Empty(t, servers)
	require.Equal(t, int32(3), attempts.Load())
}

func TestClientSideThrottleNeverReachesNetwork(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	cfg := fastConfig(server.URL)
	cfg.RateLimitRequests = 1
	client, err := New(testAPIKey, WithConfig(cfg), WithHTTPClient(server.Client()))
	require.NoError(t, err)

	_, err = client.ListServers(context.Background())
	require.NoError(t, err)

	_, err = client.ListServers(context.Background())
	require.True(t, IsRateLimited(err))
	require.Equal(t, int32(1), attempts.Load())

	client.Limiter().Reset()
	_, err = client.ListServers(context.Background())
	require.NoError(t, err)
	require.Equal(t, int32(2), attempts.Load())
}

func TestListServersDegradesNonArrayPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":"maintenance"}`))
	}))
	defer server.Close()

	client := newTestClient(t, server)
	servers, err := client.ListServers(context.Background())
	require.NoError(t, err)
	require.NotNil(t, servers)
	require.Empty(t, servers)
}

func TestListServersDecodesPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, testAPIKey, r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`[{"id":"srv-1","node":"nyc1","rdns":"one.example.net","status":"running","plan_id":3}]`))
	}))
	defer server.Close()

	client := newTestClient(t, server)
	servers, err := client.ListServers(context.Background())
	require.NoError(t, err)
	require.Len(t, servers, 1)
	require.Equal(t, "srv-1", servers[0].ID)
	require.True(t, servers[0].Running())
}

func TestPowerActionValidatesState(t *testing.T) {
	doer := &failingDoer{}
	client, err := New(testAPIKey, WithConfig(fastConfig("http://unreachable.test")), WithHTTPClient(doer))
	require.NoError(t, err)

	_, err = client.PowerAction(context.Background(), "srv-1", core.PowerState("invalid"))
	apiErr, ok := AsError(err)
	require.True(t, ok)
	require.Equal(t, KindValidation, apiErr.Kind)
	require.Equal(t, "INVALID_POWER_ACTION", apiErr.Code)
	require.Equal(t, int32(0), doer.attempts.Load())
}

func TestPowerActionReturnsPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/servers/srv-1/power/start", r.URL.Path)
		_, _ = w.Write([]byte(`{"status":true}`))
	}))
	defer server.Close()

	client := newTestClient(t, server)
	resp, err := client.PowerAction(context.Background(), "srv-1", core.PowerStart)
	require.NoError(t, err)
	require.True(t, resp.Status)
}

func TestPurchaseValidatesBeforeNetwork(t *testing.T) {
	doer := &failingDoer{}
	client, err := New(testAPIKey, WithConfig(fastConfig("http://unreachable.test")), WithHTTPClient(doer))
	require.NoError(t, err)

	_, err = client.PurchaseServer(context.Background(), core.PurchaseRequest{DistroID: 0, RegionID: 1, PlanID: 1})
	apiErr, ok := AsError(err)
	require.True(t, ok)
	require.Equal(t, KindValidation, apiErr.Kind)
	require.Equal(t, "INVALID_PURCHASE_REQUEST", apiErr.Code)
	require.Equal(t, int32(0), doer.attempts.Load())
}

func TestPurchaseValidatesResponseShape(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":true}`))
	}))
	defer server.Close()

	client := newTestClient(t, server)
	_, err := client.PurchaseServer(context.Background(), core.PurchaseRequest{DistroID: 1, RegionID: 2, PlanID: 3})
	apiErr, ok := AsError(err)
	require.True(t, ok)
	require.Equal(t, KindAPI, apiErr.Kind)
	require.Equal(t, "MALFORMED_RESPONSE", apiErr.Code)
}

func TestPurchaseReturnsServerID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/order", r.URL.Path)
		_, _ = w.Write([]byte(`{"success":true,"server_id":42}`))
	}))
	defer server.Close()

	client := newTestClient(t, server)
	resp, err := client.PurchaseServer(context.Background(), core.PurchaseRequest{DistroID: 1, RegionID: 2, PlanID: 3})
	require.NoError(t, err)
	require.True(t, resp.Success)
	require.Equal(t, 42, resp.ServerID)
}

func TestGetBalanceValidatesShape(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"credits":"12.50"}`))
	}))
	defer server.Close()

	client := newTestClient(t, server)
	_, err := client.GetBalance(context.Background())
	apiErr, ok := AsError(err)
	require.True(t, ok)
	require.Equal(t, "MALFORMED_RESPONSE", apiErr.Code)
}

func TestGetBalanceReturnsBalance(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/billing/balance", r.URL.Path)
		_, _ = w.Write([]byte(`{"balance":"12.50"}`))
	}))
	defer server.Close()

	client := newTestClient(t, server)
	balance, err := client.GetBalance(context.Background())
	require.NoError(t, err)
	require.Equal(t, "12.50", balance.Balance)
}

func TestGetServerNotFoundSurfacesAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"server not found","code":"NOT_FOUND"}`))
	}))
	defer server.Close()

	client := newTestClient(t, server)
	_, err := client.GetServer(context.Background(), "missing")
	apiErr, ok := AsError(err)
	require.True(t, ok)
	require.Equal(t, KindAPI, apiErr.Kind)
	require.Equal(t, "NOT_FOUND", apiErr.Code)
	require.Equal(t, http.StatusNotFound, apiErr.Status)
}

func TestCatalogEndpoints(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/plans":
			_, _ = w.Write([]byte(`[{"id":1,"cores":2,"price":5,"title":"starter","memory":2048,"storage":40}]`))
		case "/regions":
			_, _ = w.Write([]byte(`[{"id":7,"region":"us-east","location":"New York"}]`))
		case "/distros":
			_, _ = w.Write([]byte(`[{"id":9,"description":"Debian 12"}]`))
		case "/stock":
			_, _ = w.Write([]byte(`[{"region":{"id":7,"region":"us-east","location":"New York"},"stock":{"available":true,"stock":3,"plan":{"id":1,"title":"starter"}}}]`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client := newTestClient(t, server)
	ctx := context.Background()

	plans, err := client.GetPlans(ctx)
	require.NoError(t, err)
	require.Len(t, plans, 1)
	require.Equal(t, "starter", plans[0].Title)

	regions, err := client.GetRegions(ctx)
	require.NoError(t, err)
	require.Len(t, regions, 1)
	require.Equal(t, "us-east", regions[0].Region)

	distros, err := client.GetDistros(ctx)
	require.NoError(t, err)
	require.Len(t, distros, 1)

	stock, err := client.GetStock(ctx)
	require.NoError(t, err)
	require.Len(t, stock, 1)
	require.True(t, stock[0].Stock.Available)
}
