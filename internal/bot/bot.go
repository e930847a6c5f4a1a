// Package bot is a Telegram front end over the provider API: a thin
// command dispatcher that reuses the same client, rate limiting and
// storage as the rest of vpsdash.
package bot

import (
	"context"
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/vpsdash/vpsdash/internal/config"
	"github.com/vpsdash/vpsdash/internal/core"
)

// ProviderClient is the slice of the API client the bot consumes.
type ProviderClient interface {
	ListServers(ctx context.Context) ([]core.Server, error)
	PowerAction(ctx context.Context, serverID string, state core.PowerState) (*core.PowerResponse, error)
	GetBalance(ctx context.Context) (*core.BalanceResponse, error)
}

// ClientFactory builds a provider client for a user's API key.
type ClientFactory func(apiKey string) (ProviderClient, error)

// telegramAPI is the slice of tgbotapi.BotAPI the bot depends on.
type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Bot dispatches Telegram commands to the provider API. Every command
// passes the chat allowlist and the per-user rate limit before it runs.
type Bot struct {
	tg        telegramAPI
	users     *UserStore
	limiter   *UserLimiter
	allowed   map[int64]struct{}
	newClient ClientFactory
	logger    *zap.Logger
}

// New connects to Telegram and builds the bot.
func New(cfg config.BotConfig, users *UserStore, limiter *UserLimiter, factory ClientFactory, logger *zap.Logger) (*Bot, error) {
	if cfg.Token == "" {
		return nil, errors.New("bot token is required")
	}
	if factory == nil {
		return nil, errors.New("client factory is required")
	}

	tg, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("connect to telegram: %w", err)
	}

	bot := newBot(tg, cfg, users, limiter, factory, logger)
	bot.logger.Info("bot authorized", zap.String("username", tg.Self.UserName))
	return bot, nil
}

func newBot(tg telegramAPI, cfg config.BotConfig, users *UserStore, limiter *UserLimiter, factory ClientFactory, logger *zap.Logger) *Bot {
	if logger == nil {
		logger = zap.NewNop()
	}

	allowed := make(map[int64]struct{}, len(cfg.AllowedChatIDs))
	for _, chatID := range cfg.AllowedChatIDs {
		allowed[chatID] = struct{}{}
	}

	return &Bot{
		tg:        tg,
		users:     users,
		limiter:   limiter,
		allowed:   allowed,
		newClient: factory,
		logger:    logger,
	}
}

// Run consumes updates until the context is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := b.tg.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.tg.StopReceivingUpdates()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.Message != nil && update.Message.IsCommand():
		b.handleCommand(ctx, update.Message)
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	}
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	if _, ok := b.allowed[msg.Chat.ID]; !ok {
		b.reply(msg.Chat.ID, "⛔ Unauthorized access")
		return
	}

	allowed, err := b.limiter.Allow(ctx, msg.From.ID)
	if err != nil {
		b.logger.Warn("rate limit check failed", zap.Error(err))
	}
	if !allowed {
		b.reply(msg.Chat.ID, "⚠️ Please wait before sending more commands")
		return
	}

	b.logger.Info("command received",
		zap.String("command", msg.Command()),
		zap.Int64("chat_id", msg.Chat.ID),
		zap.Int64("user_id", msg.From.ID))

	switch msg.Command() {
	case "start":
		b.handleStart(ctx, msg)
	case "help":
		b.replyMarkdown(msg.Chat.ID, commandList)
	case "setapikey":
		b.handleSetAPIKey(ctx, msg)
	case "servers":
		b.handleServers(ctx, msg)
	case "start_server":
		b.handlePower(ctx, msg, core.PowerStart)
	case "stop_server":
		b.handlePower(ctx, msg, core.PowerStop)
	case "reset_server":
		b.handlePower(ctx, msg, core.PowerReset)
	case "stopall":
		b.handleStopAll(ctx, msg)
	case "balance":
		b.handleBalance(ctx, msg)
	default:
		b.reply(msg.Chat.ID, "Unknown command. Use /help to see what I can do.")
	}
}

func (b *Bot) reply(chatID int64, text string) {
	if _, err := b.tg.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		b.logger.Warn("send message failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (b *Bot) replyMarkdown(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := b.tg.Send(msg); err != nil {
		b.logger.Warn("send message failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}
