// Package config provides centralized configuration management for
// vpsdash: defaults, an optional YAML file, then VPSDASH_* environment
// variables, decoded once into a typed struct.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

var (
	appConfig *Config
	configMu  sync.RWMutex
)

// Load decodes the current viper state into a typed Config. Callers are
// expected to have run SetDefaults and viper.ReadInConfig beforehand
// (the root command does this).
func Load() (*Config, error) {
	cfg := &Config{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("create config decoder: %w", err)
	}

	if err := decoder.Decode(viper.AllSettings()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.Store.URL == "" && cfg.Store.Path == "" {
		cfg.Store.Path = DefaultStorePath()
	}

	setConfig(cfg)
	return cfg, nil
}

// GetConfig returns the current application configuration.
func GetConfig() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return appConfig
}

func setConfig(cfg *Config) {
	configMu.Lock()
	defer configMu.Unlock()
	appConfig = cfg
}

// SetDefaults registers default configuration values with viper.
func SetDefaults() {
	viper.SetDefault("server.host", "localhost")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "30s")
	viper.SetDefault("server.idle_timeout", "120s")
	viper.SetDefault("server.shutdown_timeout", "10s")

	viper.SetDefault("logging.level", "info")

	viper.SetDefault("store.driver", "libsql")
	viper.SetDefault("store.path", DefaultStorePath())
	viper.SetDefault("store.url", "")
	viper.SetDefault("store.auth_token", "")

	viper.SetDefault("api.base_url", "https://rdp.sh/api/v1")
	viper.SetDefault("api.timeout", "30s")
	viper.SetDefault("api.max_retries", 3)
	viper.SetDefault("api.retry_delay", "1s")
	viper.SetDefault("api.rate_limit_requests", 60)
	viper.SetDefault("api.rate_limit_window", "60s")

	viper.SetDefault("poller.interval", "60s")

	viper.SetDefault("bot.redis_url", "redis://localhost:6379")
	viper.SetDefault("bot.rate_limit_requests", 30)
	viper.SetDefault("bot.rate_limit_window", "60s")
}

// DefaultStorePath returns the default path of the database file.
func DefaultStorePath() string {
	dataDir, err := os.UserConfigDir()
	if err != nil || dataDir == "" {
		return "./vpsdash.db"
	}
	return filepath.Join(dataDir, "vpsdash", "vpsdash.db")
}
