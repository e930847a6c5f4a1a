package api

import (
	"strings"
	"time"
)

const defaultBaseURL = "https://rdp.sh/api/v1"

// Config holds the operational parameters of a Client. The zero value of
// any field means "use the documented default"; merge fills the gaps once
// at construction and the result is immutable afterwards.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration

	// RateLimit bounds outbound calls per rolling window for this client
	// instance. Zero values take the 60/60s defaults.
	RateLimitRequests int
	RateLimitWindow   time.Duration
}

// DefaultConfig returns the documented client defaults.
func DefaultConfig() Config {
	return Config{
		BaseURL:           defaultBaseURL,
		Timeout:           30 * time.Second,
		MaxRetries:        3,
		RetryDelay:        time.Second,
		RateLimitRequests: defaultMaxRequests,
		RateLimitWindow:   defaultWindowDuration,
	}
}

// merge fills absent fields of cfg from the defaults and returns the
// completed configuration. It never mutates its input.
func merge(cfg Config) Config {
	defaults := DefaultConfig()

	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = defaults.BaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaults.Timeout
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = defaults.MaxRetries
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = defaults.RetryDelay
	}
	if cfg.RateLimitRequests <= 0 {
		cfg.RateLimitRequests = defaults.RateLimitRequests
	}
	if cfg.RateLimitWindow <= 0 {
		cfg.RateLimitWindow = defaults.RateLimitWindow
	}

	return cfg
}

// Option adjusts client construction.
type Option func(*options)

type options struct {
	config     Config
	httpClient httpDoer
}

// WithConfig supplies operational parameters; absent fields keep defaults.
func WithConfig(cfg Config) Option {
	return func(o *options) { o.config = cfg }
}

// WithHTTPClient overrides the transport, for tests.
func WithHTTPClient(client httpDoer) Option {
	return func(o *options) { o.httpClient = client }
}
