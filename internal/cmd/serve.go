package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vpsdash/vpsdash/internal/config"
	"github.com/vpsdash/vpsdash/internal/observability"
	"github.com/vpsdash/vpsdash/internal/poller"
	"github.com/vpsdash/vpsdash/internal/server"
	"github.com/vpsdash/vpsdash/internal/server/handlers"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the dashboard HTTP server",
	Long: `Start the dashboard HTTP server.

A background poller keeps the fleet snapshot fresh; the API serves that
snapshot without hitting the provider on every request. Ctrl+C or
SIGTERM shuts down gracefully.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.GetConfig()
		observability.InitServerLogger("vpsdash", cfg.Logging.Level)
		logger := observability.ServerLogger
		defer observability.Sync()

		s, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close() // nolint:errcheck // best-effort cleanup
		logger.Info("store opened", zap.String("driver", s.Driver()))

		p := &poller.Poller{
			Accounts: s,
			Audit:    s,
			NewClient: func(apiKey string) (poller.ServerLister, error) {
				return newClient(apiKey)
			},
			Logger:   logger,
			Interval: cfg.Poller.Interval,
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		p.Start(ctx)
		defer p.Stop()

		source := func(context.Context) (handlers.ProviderClient, string, error) {
			client, account, err := activeClient(s)
			if err != nil {
				return nil, "", err
			}
			return client, account.Name, nil
		}

		h := &handlers.Handlers{
			Fleet:  p,
			Client: source,
			Groups: s,
			Audit:  s,
			Logger: logger,
		}
		srv := server.New(cfg.Server, h, logger)

		errCh := make(chan error, 1)
		go func() {
			errCh <- srv.Start()
		}()

		select {
		case err := <-errCh:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		case <-ctx.Done():
			logger.Info("shutdown signal received")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
