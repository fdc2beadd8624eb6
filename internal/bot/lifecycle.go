package bot

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// WebhookPath is appended to the public URL handed to Telegram.
const WebhookPath = "/telegram-webhook"

// Start polls Telegram for updates until Stop is called
func (b *Bot) Start() error {
	b.logger.Info("Starting bot in polling mode")

	// A webhook left over from a previous deployment would block polling
	if _, err := b.api.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		b.logger.Warn("Failed to delete webhook", zap.Error(err))
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	b.logger.Info("Waiting for updates", zap.Int("books", b.store.Len()))
	for update := range b.api.GetUpdatesChan(u) {
		b.HandleWebhookUpdate(update)
	}
	return nil
}

// StartWebhook registers baseURL + WebhookPath with Telegram. Updates then
// arrive through HandleWebhookUpdate.
func (b *Bot) StartWebhook(baseURL string) error {
	target := strings.TrimSuffix(baseURL, "/") + WebhookPath

	webhookConfig, err := tgbotapi.NewWebhook(target)
	if err != nil {
		return fmt.Errorf("invalid webhook URL %q: %w", target, err)
	}
	webhookConfig.MaxConnections = 40

	if _, err := b.api.Request(webhookConfig); err != nil {
		b.logger.Error("Failed to set webhook", zap.Error(err), zap.String("webhook_url", target))
		return fmt.Errorf("failed to set webhook: %w", err)
	}

	info, err := b.api.GetWebhookInfo()
	if err != nil {
		b.logger.Warn("Failed to get webhook info", zap.Error(err))
		return nil
	}
	b.logger.Info("Webhook set successfully",
		zap.String("url", info.URL),
		zap.Int("pending_updates", info.PendingUpdateCount),
	)
	return nil
}

// Stop ends polling and the change notifier
func (b *Bot) Stop() {
	b.stopNotifications()
	if b.api != nil {
		b.api.StopReceivingUpdates()
	}
	b.logger.Info("Bot stopped")
}

// HandleWebhookUpdate dispatches one update from either delivery mode.
// Updates from users outside the allow-list are dropped; a message gets a
// refusal reply.
func (b *Bot) HandleWebhookUpdate(update tgbotapi.Update) {
	switch {
	case update.Message != nil && update.Message.From != nil:
		msg := update.Message
		if !b.authorized(msg.From, zap.String("text", msg.Text)) {
			b.reply(msg.Chat.ID, "Sorry, you are not authorized to use this bot.")
			return
		}
		b.handleMessage(msg)

	case update.CallbackQuery != nil && update.CallbackQuery.From != nil:
		query := update.CallbackQuery
		if !b.authorized(query.From, zap.String("callback_data", query.Data)) {
			return
		}
		b.handleCallbackQuery(query)
	}
}

func (b *Bot) authorized(user *tgbotapi.User, detail zap.Field) bool {
	if b.allowedUsers[user.ID] {
		return true
	}
	b.logger.Warn("Unauthorized access attempt",
		zap.Int64("user_id", user.ID),
		zap.String("username", user.UserName),
		detail,
	)
	return false
}
