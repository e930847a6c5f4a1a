package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/vpsdash/vpsdash/internal/api"
	"github.com/vpsdash/vpsdash/internal/config"
	"github.com/vpsdash/vpsdash/internal/core"
	"github.com/vpsdash/vpsdash/internal/observability"
	"github.com/vpsdash/vpsdash/internal/output"
	"github.com/vpsdash/vpsdash/internal/secret"
	"github.com/vpsdash/vpsdash/internal/store"
)

// openStore opens and migrates the local database. The cipher is only
// wired when an encryption key is configured; account operations fail
// with a clear error without one.
func openStore(ctx context.Context) (*store.Store, error) {
	cfg := config.GetConfig()

	var cipher *secret.Cipher
	if cfg.EncryptionKey != "" {
		c, err := secret.NewCipher(cfg.EncryptionKey)
		if err != nil {
			return nil, fmt.Errorf("invalid encryption key: %w", err)
		}
		cipher = c
	}

	s, err := store.Open(ctx, cfg.Store, cipher)
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

func apiConfig(cfg *config.Config) api.Config {
	return api.Config{
		BaseURL:           cfg.API.BaseURL,
		Timeout:           cfg.API.Timeout,
		MaxRetries:        cfg.API.MaxRetries,
		RetryDelay:        cfg.API.RetryDelay,
		RateLimitRequests: cfg.API.RateLimitRequests,
		RateLimitWindow:   cfg.API.RateLimitWindow,
	}
}

// newClient builds a provider client for the given API key using the
// configured endpoint and retry settings.
func newClient(apiKey string) (*api.Client, error) {
	client, err := api.New(apiKey, api.WithConfig(apiConfig(config.GetConfig())))
	if err != nil {
		return nil, err
	}
	client.SetLogger(observability.Logger())
	return client, nil
}

// activeClient resolves the active account into a provider client.
func activeClient(s *store.Store) (*api.Client, *core.Account, error) {
	account, ok := s.ActiveAccount()
	if !ok {
		return nil, nil, errors.New("no active account; add one with 'vpsdash accounts add'")
	}

	client, err := newClient(account.APIKey)
	if err != nil {
		return nil, nil, err
	}
	return client, account, nil
}

// emit prints either the rendered table or the value as JSON, honoring
// the global --output flag.
func emit(tableText string, value any) error {
	format, err := output.ParseFormat(outputFormat)
	if err != nil {
		return err
	}

	if format == output.FormatJSON {
		text, err := output.RenderJSON(value)
		if err != nil {
			return err
		}
		fmt.Println(text)
		return nil
	}

	fmt.Println(tableText)
	return nil
}
