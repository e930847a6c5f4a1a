package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/vpsdash/vpsdash/internal/core"
)

// apiKeyPattern is the provider's key format: 32-64 characters of
// letters, digits, hyphen and underscore.
var apiKeyPattern = regexp.MustCompile(`^[A-Za-z0-9-_]{32,64}$`)

// ValidKeyFormat reports whether apiKey matches the provider's key format.
func ValidKeyFormat(apiKey string) bool {
	return apiKeyPattern.MatchString(apiKey)
}

// httpDoer is the slice of http.Client the client depends on.
type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is the sole authenticated gateway to the hosting provider API.
// Every operation funnels through the same pipeline: local validation,
// rate-limit admission, request execution with retries, classification.
//
// Construction validates the API key synchronously and never touches the
// network. Configuration is immutable after New returns.
type Client struct {
	apiKey   string
	config   Config
	limiter  *RateLimiter
	http     httpDoer
	logger   *zap.Logger
	validate *validator.Validate
}

// New builds a client for the given API key. An invalid key format fails
// immediately with a VALIDATION_ERROR before any network interaction.
func New(apiKey string, opts ...Option) (*Client, error) {
	if !apiKeyPattern.MatchString(apiKey) {
		return nil, validationError("INVALID_API_KEY", "Invalid API key format")
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	cfg := merge(o.config)

	httpClient := o.httpClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &Client{
		apiKey:   apiKey,
		config:   cfg,
		limiter:  NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow),
		http:     httpClient,
		logger:   zap.NewNop(),
		validate: validator.New(),
	}, nil
}

// SetLogger attaches a logger for the documented leniency warnings.
func (c *Client) SetLogger(logger *zap.Logger) {
	if c == nil || logger == nil {
		return
	}
	c.logger = logger
}

// Limiter exposes the client-side throttle, for administrative resets.
func (c *Client) Limiter() *RateLimiter {
	if c == nil {
		return nil
	}
	return c.limiter
}

// ListServers fetches all servers on the account. A payload that is not
// list-shaped degrades to an empty slice with a logged warning rather
// than failing: the callers of the listing depend on iterability.
func (c *Client) ListServers(ctx context.Context) ([]core.Server, error) {
	var raw json.RawMessage
	if err := c.call(ctx, http.MethodGet, "/servers", nil, &raw); err != nil {
		return nil, err
	}

	if !listShaped(raw) {
		c.logger.Warn("server list response was not an array", zap.Int("bytes", len(raw)))
		return []core.Server{}, nil
	}

	var servers []core.Server
	if err := json.Unmarshal(raw, &servers); err != nil {
		return nil, classifyLocal(fmt.Errorf("decode server list: %w", err))
	}
	return servers, nil
}

// GetServer fetches a single server by identifier. A missing server
// surfaces as the provider's own error status, classified as API_ERROR.
func (c *Client) GetServer(ctx context.Context, serverID string) (*core.Server, error) {
	if strings.TrimSpace(serverID) == "" {
		return nil, validationError("INVALID_SERVER_ID", "Server identifier is required")
	}

	var server core.Server
	if err := c.call(ctx, http.MethodGet, "/servers/"+serverID, nil, &server); err != nil {
		return nil, err
	}
	return &server, nil
}

// PowerAction triggers start, stop or reset on a server.
func (c *Client) PowerAction(ctx context.Context, serverID string, state core.PowerState) (*core.PowerResponse, error) {
	if strings.TrimSpace(serverID) == "" {
		return nil, validationError("INVALID_SERVER_ID", "Server identifier is required")
	}
	if !state.Valid() {
		return nil, validationError("INVALID_POWER_ACTION", fmt.Sprintf("Unsupported power action %q", state))
	}

	var power core.PowerResponse
	path := fmt.Sprintf("/servers/%s/power/%s", serverID, state)
	if err := c.call(ctx, http.MethodPost, path, nil, &power); err != nil {
		return nil, err
	}
	return &power, nil
}

// GetBalance fetches the account balance. The response shape is
// validated; a payload missing the balance field fails rather than being
// silently coerced.
func (c *Client) GetBalance(ctx context.Context) (*core.BalanceResponse, error) {
	var payload struct {
		Balance *string `json:"balance"`
	}
	if err := c.call(ctx, http.MethodGet, "/billing/balance", nil, &payload); err != nil {
		return nil, err
	}
	if payload.Balance == nil {
		return nil, malformedResponse("balance")
	}
	return &core.BalanceResponse{Balance: *payload.Balance}, nil
}

// GetPlans fetches the purchasable plans.
func (c *Client) GetPlans(ctx context.Context) ([]core.Plan, error) {
	var plans []core.Plan
	if err := c.call(ctx, http.MethodGet, "/plans", nil, &plans); err != nil {
		return nil, err
	}
	return plans, nil
}

// GetStock fetches per-region plan availability.
func (c *Client) GetStock(ctx context.Context) ([]core.StockInfo, error) {
	var stock []core.StockInfo
	if err := c.call(ctx, http.MethodGet, "/stock", nil, &stock); err != nil {
		return nil, err
	}
	return stock, nil
}

// GetRegions fetches the provider's datacenter regions.
func (c *Client) GetRegions(ctx context.Context) ([]core.Region, error) {
	var regions []core.Region
	if err := c.call(ctx, http.MethodGet, "/regions", nil, &regions); err != nil {
		return nil, err
	}
	return regions, nil
}

// GetDistros fetches the installable distributions.
func (c *Client) GetDistros(ctx context.Context) ([]core.Distribution, error) {
	var distros []core.Distribution
	if err := c.call(ctx, http.MethodGet, "/distros", nil, &distros); err != nil {
		return nil, err
	}
	return distros, nil
}

// PurchaseServer orders a new server. The request is validated locally
// (all identifiers positive) before the rate limiter is consulted, and
// the response shape is checked before it is returned.
func (c *Client) PurchaseServer(ctx context.Context, req core.PurchaseRequest) (*core.PurchaseResponse, error) {
	if err := c.validate.Struct(req); err != nil {
		return nil, validationError("INVALID_PURCHASE_REQUEST", fmt.Sprintf("Invalid purchase request: %v", err))
	}

	var payload struct {
		Success  *bool `json:"success"`
		ServerID *int  `json:"server_id"`
	}
	if err := c.call(ctx, http.MethodPost, "/order", req, &payload); err != nil {
		return nil, err
	}
	if payload.Success == nil || payload.ServerID == nil {
		return nil, malformedResponse("order")
	}
	return &core.PurchaseResponse{Success: *payload.Success, ServerID: *payload.ServerID}, nil
}

// call runs the shared pipeline for one operation: rate-limit admission,
// then the retry wrapper around a single attempt. A rate-limit failure
// propagates immediately and never reaches the network.
func (c *Client) call(ctx context.Context, method, path string, body any, out any) error {
	if c == nil {
		return classifyLocal(fmt.Errorf("client is not configured"))
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if err := c.limiter.CheckLimit(); err != nil {
		return err
	}

	return c.withRetry(ctx, func() error {
		return c.attempt(ctx, method, path, body, out)
	})
}

// withRetry re-attempts retryable failures with a fixed delay until the
// budget is exhausted. Rate-limit failures are never retried here; the
// caller decides how to surface the wait hint.
func (c *Client) withRetry(ctx context.Context, attempt func() error) error {
	remaining := c.config.MaxRetries
	for {
		err := attempt()
		if err == nil {
			return nil
		}
		if remaining <= 0 || !shouldRetry(err) {
			return err
		}
		remaining--

		select {
		case <-time.After(c.config.RetryDelay):
		case <-ctx.Done():
			return err
		}
	}
}

// shouldRetry is the retry predicate: retryable iff no response was
// received at all, or the provider answered with a 5xx.
func shouldRetry(err error) bool {
	apiErr, ok := AsError(err)
	if !ok || apiErr == nil {
		return false
	}
	switch apiErr.Kind {
	case KindNetwork:
		return true
	case KindAPI:
		return apiErr.Status >= http.StatusInternalServerError
	}
	return false
}

// attempt executes one HTTP round-trip and classifies the outcome.
func (c *Client) attempt(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return classifyLocal(fmt.Errorf("encode request: %w", err))
		}
		reader = bytes.NewReader(encoded)
	}

	url := strings.TrimRight(c.config.BaseURL, "/") + path
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return classifyLocal(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Authorization", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return classify(0, errorPayload{}, err)
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return classify(0, errorPayload{}, err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		var payload errorPayload
		_ = json.Unmarshal(respBody, &payload)
		return classify(resp.StatusCode, payload, nil)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return classifyLocal(fmt.Errorf("decode response: %w", err))
	}
	return nil
}

func malformedResponse(endpoint string) *Error {
	return &Error{
		Kind:    KindAPI,
		Code:    "MALFORMED_RESPONSE",
		Message: fmt.Sprintf("The %s response did not match the expected shape.", endpoint),
		Status:  http.StatusBadGateway,
	}
}

func listShaped(raw json.RawMessage) bool {
	for _, b := range raw {
		switch b {
		case ' ', '\t', '\n', '\r':
			continue
		case '[':
			return true
		default:
			return false
		}
	}
	return false
}
