package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vpsdash/vpsdash/internal/bot"
	"github.com/vpsdash/vpsdash/internal/config"
	"github.com/vpsdash/vpsdash/internal/observability"
	"github.com/vpsdash/vpsdash/internal/secret"
)

var botCmd = &cobra.Command{
	Use:   "bot",
	Short: "Start the Telegram bot",
	Long: `Start the Telegram bot.

The bot needs bot.token and an encryption key configured, plus a
reachable redis for rate limiting and user storage. Only chats listed in
bot.allowed_chat_ids may talk to it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.GetConfig()
		observability.InitServerLogger("vpsdash-bot", cfg.Logging.Level)
		logger := observability.ServerLogger
		defer observability.Sync()

		if cfg.EncryptionKey == "" {
			return errors.New("encryption key is required for the bot; generate one with 'vpsdash keygen'")
		}
		cipher, err := secret.NewCipher(cfg.EncryptionKey)
		if err != nil {
			return err
		}

		redis, err := bot.NewRedisClient(cfg.Bot.RedisURL)
		if err != nil {
			return err
		}

		users := bot.NewUserStore(redis, cipher)
		limiter := bot.NewUserLimiter(redis, cfg.Bot.RateLimitRequests, cfg.Bot.RateLimitWindow)

		factory := func(apiKey string) (bot.ProviderClient, error) {
			return newClient(apiKey)
		}

		b, err := bot.New(cfg.Bot, users, limiter, factory, logger)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		logger.Info("bot started")
		if err := b.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(botCmd)
}
