package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/vpsdash/vpsdash/internal/core"
)

const commandList = "🖥️ *Server Manager*\n\n" +
	"Available commands:\n" +
	"/servers - List all servers\n" +
	"/start_server ID - Start a server\n" +
	"/stop_server ID - Stop a server\n" +
	"/reset_server ID - Reset a server\n" +
	"/stopall - Stop all running servers\n" +
	"/balance - Show account balance\n" +
	"/help - Show this message"

const welcomeMessage = "👋 Welcome to the Server Manager Bot!\n\n" +
	"To get started, please set up your API key using:\n" +
	"/setapikey YOUR_API_KEY"

const needKeyMessage = "⚠️ Please set up your API key first using /setapikey"

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) {
	data, err := b.users.GetUserData(ctx, msg.From.ID)
	if err != nil {
		b.logger.Warn("load user data failed", zap.Error(err))
	}
	if data == nil || data.APIKey == "" {
		b.replyMarkdown(msg.Chat.ID, welcomeMessage)
		return
	}
	b.replyMarkdown(msg.Chat.ID, commandList)
}

func (b *Bot) handleSetAPIKey(ctx context.Context, msg *tgbotapi.Message) {
	apiKey := strings.TrimSpace(msg.CommandArguments())
	if apiKey == "" {
		b.reply(msg.Chat.ID, "Usage: /setapikey YOUR_API_KEY")
		return
	}

	client, err := b.newClient(apiKey)
	if err == nil {
		_, err = client.ListServers(ctx)
	}
	if err != nil {
		b.reply(msg.Chat.ID, "❌ Invalid API key. Please check your credentials and try again.")
		return
	}

	err = b.users.SaveUserData(ctx, msg.From.ID, UserData{
		APIKey: apiKey,
		Preferences: Preferences{
			Notifications: true,
			AutoRefresh:   true,
		},
		LastActive: time.Now().UTC(),
	})
	if err != nil {
		b.logger.Error("save user data failed", zap.Error(err))
		b.reply(msg.Chat.ID, "❌ Could not save your API key. Please try again.")
		return
	}

	b.replyMarkdown(msg.Chat.ID, "✅ API key configured successfully!\n\nUse /start to see available commands.")
}

func (b *Bot) handleServers(ctx context.Context, msg *tgbotapi.Message) {
	client, ok := b.clientFor(ctx, msg)
	if !ok {
		return
	}

	servers, err := client.ListServers(ctx)
	if err != nil {
		b.reply(msg.Chat.ID, "❌ Failed to fetch servers. Please try again.")
		return
	}
	if len(servers) == 0 {
		b.reply(msg.Chat.ID, "No servers found.")
		return
	}

	var sb strings.Builder
	for _, server := range servers {
		sb.WriteString(formatServer(server))
		sb.WriteByte('\n')
	}
	b.replyMarkdown(msg.Chat.ID, sb.String())
}

func (b *Bot) handlePower(ctx context.Context, msg *tgbotapi.Message, state core.PowerState) {
	client, ok := b.clientFor(ctx, msg)
	if !ok {
		return
	}

	serverID := strings.TrimSpace(msg.CommandArguments())
	if serverID == "" {
		b.reply(msg.Chat.ID, fmt.Sprintf("Usage: /%s SERVER_ID", msg.Command()))
		return
	}

	if _, err := client.PowerAction(ctx, serverID, state); err != nil {
		b.reply(msg.Chat.ID, fmt.Sprintf("❌ Failed to %s server. Please check the server ID and try again.", state))
		return
	}
	b.reply(msg.Chat.ID, fmt.Sprintf("✅ Server %s command sent successfully.", state))
}

func (b *Bot) handleBalance(ctx context.Context, msg *tgbotapi.Message) {
	client, ok := b.clientFor(ctx, msg)
	if !ok {
		return
	}

	balance, err := client.GetBalance(ctx)
	if err != nil {
		b.reply(msg.Chat.ID, "❌ Failed to fetch balance. Please try again.")
		return
	}
	b.replyMarkdown(msg.Chat.ID, fmt.Sprintf("💰 Current balance: *%s*", balance.Balance))
}

func (b *Bot) handleStopAll(ctx context.Context, msg *tgbotapi.Message) {
	client, ok := b.clientFor(ctx, msg)
	if !ok {
		return
	}

	servers, err := client.ListServers(ctx)
	if err != nil {
		b.reply(msg.Chat.ID, "❌ Failed to fetch servers. Please try again.")
		return
	}

	var running []string
	for _, server := range servers {
		if server.Running() {
			running = append(running, server.ID)
		}
	}
	if len(running) == 0 {
		b.reply(msg.Chat.ID, "No running servers found.")
		return
	}

	confirm := tgbotapi.NewMessage(msg.Chat.ID, fmt.Sprintf(
		"⚠️ Are you sure you want to stop %d running servers?\n\nThis action cannot be undone.", len(running)))
	confirm.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Yes, stop all", "confirm_stopall"),
			tgbotapi.NewInlineKeyboardButtonData("❌ Cancel", "cancel_stopall"),
		),
	)

	sent, err := b.tg.Send(confirm)
	if err != nil {
		b.logger.Warn("send confirmation failed", zap.Error(err))
		return
	}

	err = b.users.SaveConfirmation(ctx, msg.From.ID, ConfirmationContext{
		Action:    "stopall",
		MessageID: sent.MessageID,
		ServerIDs: running,
	})
	if err != nil {
		b.logger.Error("save confirmation failed", zap.Error(err))
	}
}

func (b *Bot) handleCallback(ctx context.Context, query *tgbotapi.CallbackQuery) {
	chatID := query.Message.Chat.ID
	userID := query.From.ID

	allowed, err := b.limiter.Allow(ctx, userID)
	if err != nil {
		b.logger.Warn("rate limit check failed", zap.Error(err))
	}
	if !allowed {
		b.answerCallback(query.ID, "⚠️ Please wait before sending more commands")
		return
	}

	data, err := b.users.GetUserData(ctx, userID)
	if err != nil {
		b.logger.Warn("load user data failed", zap.Error(err))
	}
	if data == nil || data.APIKey == "" {
		b.answerCallback(query.ID, needKeyMessage)
		return
	}

	switch query.Data {
	case "confirm_stopall":
		b.confirmStopAll(ctx, query, data.APIKey, chatID, userID)
	case "cancel_stopall":
		confirm, err := b.users.GetConfirmation(ctx, userID)
		if err == nil && confirm != nil {
			b.editMessage(chatID, confirm.MessageID, "❌ Operation cancelled.")
		}
	}

	if err := b.users.ClearConfirmation(ctx, userID); err != nil {
		b.logger.Warn("clear confirmation failed", zap.Error(err))
	}
	b.answerCallback(query.ID, "")
}

func (b *Bot) confirmStopAll(ctx context.Context, query *tgbotapi.CallbackQuery, apiKey string, chatID, userID int64) {
	confirm, err := b.users.GetConfirmation(ctx, userID)
	if err != nil || confirm == nil || confirm.Action != "stopall" {
		b.answerCallback(query.ID, "❌ Confirmation expired. Please try again.")
		return
	}

	client, err := b.newClient(apiKey)
	if err != nil {
		b.editMessage(chatID, confirm.MessageID, "❌ Failed to stop servers. Please try again.")
		return
	}

	result, err := core.BatchPower(ctx, client, core.PowerStop, confirm.ServerIDs, 0)
	if err != nil {
		b.editMessage(chatID, confirm.MessageID, "❌ Failed to stop servers. Please try again.")
		return
	}

	text := fmt.Sprintf("✅ Stopped %d servers", len(result.Succeeded))
	if result.Failed > 0 {
		text += fmt.Sprintf("\n❌ Failed to stop %d servers", result.Failed)
	}
	b.editMessage(chatID, confirm.MessageID, text)
}

// clientFor resolves the caller's stored API key into a provider client,
// replying with guidance when the user has no key yet.
func (b *Bot) clientFor(ctx context.Context, msg *tgbotapi.Message) (ProviderClient, bool) {
	data, err := b.users.GetUserData(ctx, msg.From.ID)
	if err != nil {
		b.logger.Warn("load user data failed", zap.Error(err))
	}
	if data == nil || data.APIKey == "" {
		b.reply(msg.Chat.ID, needKeyMessage)
		return nil, false
	}

	client, err := b.newClient(data.APIKey)
	if err != nil {
		b.reply(msg.Chat.ID, needKeyMessage)
		return nil, false
	}
	return client, true
}

func (b *Bot) editMessage(chatID int64, messageID int, text string) {
	if _, err := b.tg.Send(tgbotapi.NewEditMessageText(chatID, messageID, text)); err != nil {
		b.logger.Warn("edit message failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (b *Bot) answerCallback(callbackID, text string) {
	if _, err := b.tg.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		b.logger.Warn("answer callback failed", zap.Error(err))
	}
}

func formatServer(server core.Server) string {
	marker := "⚫"
	if server.Running() {
		marker = "🟢"
	}
	name := server.RDNS
	if name == "" {
		name = server.ID
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s *%s*\n", marker, name)
	fmt.Fprintf(&sb, "IP: `%s`\n", server.IPAddress)
	fmt.Fprintf(&sb, "Status: %s\n", server.Status)
	fmt.Fprintf(&sb, "Distro: %s\n", server.Distro)
	if server.ExpiryAt != "" {
		fmt.Fprintf(&sb, "Expires: %s\n", server.ExpiryAt)
	}
	return sb.String()
}
