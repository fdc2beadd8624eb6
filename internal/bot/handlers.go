package bot

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"mybooks/internal/books"
	"mybooks/internal/routes"
)

// handleMessage processes a single message
func (b *Bot) handleMessage(message *tgbotapi.Message) {
	// Recover from panics to prevent bot crashes
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Recovered from panic in handleMessage", zap.Any("panic", r))
			b.reply(message.Chat.ID, "An error occurred while processing your request. Please try again.")
		}
	}()

	userID := message.From.ID
	ctx := context.Background()

	// Check if user is in a conversation
	if state, ok := b.getState(userID); ok {
		if state.Step == -1 {
			b.clearState(userID)
		} else if message.IsCommand() {
			// Allow any command to interrupt/cancel an ongoing conversation
			b.clearState(userID)
		} else {
			b.handleConversation(ctx, message, state)
			return
		}
	}

	if !message.IsCommand() {
		b.reply(message.Chat.ID, "Use /start to see available commands.")
		return
	}

	args := strings.TrimSpace(message.CommandArguments())
	switch message.Command() {
	case "start":
		b.handleStart(message)
	case "library":
		b.handleList(message, "📚 Library", books.AnyBook)
	case "bookshelf":
		b.handleList(message, "✅ Bookshelf", books.OnBookshelf)
	case "wishlist":
		b.handleList(message, "🛒 Wishlist", books.OnWishlist)
	case "reading":
		b.handleList(message, "📖 Reading now", books.BeingRead)
	case "favorites":
		b.handleList(message, "⭐ Favorites", books.IsFavorite)
	case "stats":
		b.handleStats(message)
	case "next":
		b.handleNext(message)
	case "bookstores":
		if b.variant != routes.VariantFlags {
			b.reply(message.Chat.ID, "Unknown command. Use /start to see available commands.")
			return
		}
		b.handleBookstores(message)
	case "add":
		b.handleAddStart(message)
	case actionRemove, actionRead, actionToggleReading, actionFavorite:
		b.handleBookAction(ctx, message, message.Command(), args)
	case actionStatus:
		b.handleStatusCommand(ctx, message, args)
	default:
		b.reply(message.Chat.ID, "Unknown command. Use /start to see available commands.")
	}
}

// handleCallbackQuery processes inline keyboard button clicks
func (b *Bot) handleCallbackQuery(query *tgbotapi.CallbackQuery) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Recovered from panic in handleCallbackQuery", zap.Any("panic", r))
		}
	}()

	b.answerCallback(query.ID)
	if query.Message == nil {
		return
	}

	action, id, ok := parseCallbackData(query.Data)
	if !ok {
		b.logger.Debug("Ignoring unknown callback data", zap.String("callback_data", query.Data))
		return
	}

	ctx := context.Background()
	b.clearState(query.From.ID)
	b.applyAction(ctx, query.Message.Chat.ID, query.From.ID, action, id)
}
