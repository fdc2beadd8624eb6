package bot

import (
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"mybooks/internal/books"
	"mybooks/internal/models"
	"mybooks/internal/routes"
)

// Bot represents the Telegram bot wrapper
type Bot struct {
	api          *tgbotapi.BotAPI
	send         func(tgbotapi.Chattable) error
	store        *books.Store
	variant      routes.Variant
	allowedUsers map[int64]bool
	states       map[int64]*ConversationState
	statesMu     sync.Mutex
	logger       *zap.Logger
	newID        func() models.ID

	notifyMu      sync.Mutex
	notifications chan string
	notifyClosed  bool
	unsubscribe   func()
}

// ConversationState tracks the state of multi-step commands
type ConversationState struct {
	Command string
	Step    int
	Data    map[string]interface{}
}
