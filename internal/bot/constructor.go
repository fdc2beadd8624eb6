package bot

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"mybooks/internal/books"
	"mybooks/internal/models"
	"mybooks/internal/routes"
)

// NewBot creates a new Telegram bot
func NewBot(token string, store *books.Store, variant routes.Variant, allowedUserIDs []int64, logger *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		logger.Error("Failed to create bot API", zap.Error(err))
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	logger.Info("Bot created", zap.String("bot_username", api.Self.UserName))
	return newBot(api, store, variant, allowedUserIDs, logger), nil
}

func newBot(api *tgbotapi.BotAPI, store *books.Store, variant routes.Variant, allowedUserIDs []int64, logger *zap.Logger) *Bot {
	allowedUsers := make(map[int64]bool)
	for _, id := range allowedUserIDs {
		allowedUsers[id] = true
	}

	b := &Bot{
		api:          api,
		store:        store,
		variant:      variant,
		allowedUsers: allowedUsers,
		states:       make(map[int64]*ConversationState),
		logger:       logger,
		newID:        func() models.ID { return models.StringID(uuid.NewString()) },
	}
	b.send = b.sendAPI
	return b
}

// GetAPI returns the bot API for testing
func (b *Bot) GetAPI() *tgbotapi.BotAPI {
	return b.api
}
