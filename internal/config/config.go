package config

import "time"

// Config is the complete application configuration, populated from
// defaults, an optional YAML config file, and VPSDASH_* environment
// variables, in that order.
type Config struct {
	Server  ServerConfig  `mapstructure:"server" yaml:"server"`
	Store   StoreConfig   `mapstructure:"store" yaml:"store"`
	API     APIConfig     `mapstructure:"api" yaml:"api"`
	Poller  PollerConfig  `mapstructure:"poller" yaml:"poller"`
	Bot     BotConfig     `mapstructure:"bot" yaml:"bot"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// EncryptionKey is the base64-encoded 32-byte key used to encrypt
	// stored API keys. Required for account storage and the bot.
	EncryptionKey string `mapstructure:"encryption_key" yaml:"-"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Host            string        `mapstructure:"host" yaml:"host"`
	Port            int           `mapstructure:"port" yaml:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// StoreConfig contains database configuration for libsql/Turso.
type StoreConfig struct {
	Driver    string `mapstructure:"driver" yaml:"driver"`
	Path      string `mapstructure:"path" yaml:"path"`
	URL       string `mapstructure:"url" yaml:"url"`
	AuthToken string `mapstructure:"auth_token" yaml:"-"`
}

// APIConfig contains hosting provider client configuration.
type APIConfig struct {
	BaseURL    string        `mapstructure:"base_url" yaml:"base_url"`
	Timeout    time.Duration `mapstructure:"timeout" yaml:"timeout"`
	MaxRetries int           `mapstructure:"max_retries" yaml:"max_retries"`
	RetryDelay time.Duration `mapstructure:"retry_delay" yaml:"retry_delay"`

	RateLimitRequests int           `mapstructure:"rate_limit_requests" yaml:"rate_limit_requests"`
	RateLimitWindow   time.Duration `mapstructure:"rate_limit_window" yaml:"rate_limit_window"`
}

// PollerConfig contains server refresh loop configuration.
type PollerConfig struct {
	Interval time.Duration `mapstructure:"interval" yaml:"interval"`
}

// BotConfig contains Telegram bot configuration.
type BotConfig struct {
	Token          string  `mapstructure:"token" yaml:"-"`
	AllowedChatIDs []int64 `mapstructure:"allowed_chat_ids" yaml:"allowed_chat_ids"`
	RedisURL       string  `mapstructure:"redis_url" yaml:"redis_url"`

	// RateLimitRequests commands per RateLimitWindow, per user.
	RateLimitRequests int           `mapstructure:"rate_limit_requests" yaml:"rate_limit_requests"`
	RateLimitWindow   time.Duration `mapstructure:"rate_limit_window" yaml:"rate_limit_window"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level controls the minimum log level.
	// Valid values: debug, info, warn, error.
	Level string `mapstructure:"level" yaml:"level"`
}
