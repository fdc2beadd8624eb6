package bot

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"mybooks/internal/models"
)

// handleConversation processes multi-step conversations
func (b *Bot) handleConversation(ctx context.Context, message *tgbotapi.Message, state *ConversationState) {
	userID := message.From.ID

	switch state.Command {
	case "add":
		b.handleAddConversation(ctx, message, state)
	case actionStatus:
		b.handleStatusConversation(ctx, message, state)
	default:
		state.Step = -1
	}

	// Clean up completed conversations
	if state.Step == -1 {
		b.clearState(userID)
	}
}

// handleAddConversation handles the add book multi-step process
func (b *Bot) handleAddConversation(ctx context.Context, message *tgbotapi.Message, state *ConversationState) {
	text := strings.TrimSpace(message.Text)

	switch state.Step {
	case 1: // Waiting for title
		if text == "" {
			b.reply(message.Chat.ID, "The title cannot be empty. Please enter the book title:")
			return
		}
		state.Data["title"] = text
		state.Step = 2
		b.reply(message.Chat.ID, "Who is the author? Send - to skip.")

	case 2: // Waiting for author
		author := text
		if author == "-" {
			author = ""
		}
		title, _ := state.Data["title"].(string)

		book := models.Book{ID: b.newID(), Title: title, Author: author}
		if !b.store.AddBook(ctx, book) {
			b.reply(message.Chat.ID, "Could not add the book. Please try again with /add")
			state.Step = -1
			return
		}

		b.logger.Info("Book added via bot",
			zap.String("book_id", book.ID.String()),
			zap.String("title", title),
			zap.Int64("user_id", message.From.ID),
		)
		b.reply(message.Chat.ID, fmt.Sprintf("✅ Book added!\n\n%s", formatBook(b.store.Len(), book)))
		state.Step = -1 // Mark conversation as complete
	}
}

// handleStatusConversation waits for the status text of a picked book
func (b *Bot) handleStatusConversation(ctx context.Context, message *tgbotapi.Message, state *ConversationState) {
	id, ok := state.Data["book_id"].(models.ID)
	if !ok {
		state.Step = -1
		return
	}

	text := strings.TrimSpace(message.Text)
	if text == "" {
		b.reply(message.Chat.ID, "Please send the new status as text:")
		return
	}

	b.setStatus(ctx, message.Chat.ID, id, text)
	state.Step = -1
}
