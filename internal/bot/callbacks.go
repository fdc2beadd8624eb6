package bot

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"mybooks/internal/models"
)

// Actions shared by commands and inline buttons. Their names are the
// command names.
const (
	actionRemove        = "remove"
	actionRead          = "read"
	actionToggleReading = "toggle_reading"
	actionFavorite      = "fav"
	actionStatus        = "status"
)

const bookNotFound = "Book not found. It may have been removed."

// Telegram limits callback data to 64 bytes.
const maxCallbackData = 64

// encodeCallbackData packs an action and a book id. The id kind is kept so
// numeric 7 and string "7" stay distinct.
func encodeCallbackData(action string, id models.ID) (string, bool) {
	kind := "s"
	if id.IsNumeric() {
		kind = "n"
	}
	data := action + ":" + kind + id.String()
	return data, len(data) <= maxCallbackData
}

func parseCallbackData(data string) (action string, id models.ID, ok bool) {
	action, token, found := strings.Cut(data, ":")
	if !found || len(token) < 2 {
		return "", models.ID{}, false
	}
	switch action {
	case actionRemove, actionRead, actionToggleReading, actionFavorite, actionStatus:
	default:
		return "", models.ID{}, false
	}

	value := token[1:]
	switch token[0] {
	case 'n':
		id = models.ParseID(value)
		if !id.IsNumeric() {
			return "", models.ID{}, false
		}
	case 's':
		id = models.StringID(value)
	default:
		return "", models.ID{}, false
	}
	return action, id, true
}

// applyAction performs action on the book with id and reports the outcome
func (b *Bot) applyAction(ctx context.Context, chatID, userID int64, action string, id models.ID) {
	book, ok := b.store.Book(id)
	if !ok {
		b.reply(chatID, bookNotFound)
		return
	}

	var text string
	switch action {
	case actionRemove:
		if !b.store.RemoveBook(ctx, id) {
			b.reply(chatID, bookNotFound)
			return
		}
		text = fmt.Sprintf("🗑 Removed %s", displayTitle(book))

	case actionRead:
		if !b.store.MarkAsReading(ctx, id) {
			b.reply(chatID, bookNotFound)
			return
		}
		updated, _ := b.store.Book(id)
		text = fmt.Sprintf("📖 Started reading %s\n%s", displayTitle(updated), updated.Comment)

	case actionToggleReading:
		if !b.store.ToggleReading(ctx, id) {
			b.reply(chatID, bookNotFound)
			return
		}
		updated, _ := b.store.Book(id)
		if updated.State.IsReading() {
			text = fmt.Sprintf("📖 Now reading %s", displayTitle(updated))
		} else {
			text = fmt.Sprintf("⏸ Stopped reading %s", displayTitle(updated))
		}

	case actionFavorite:
		if !b.store.ToggleFavorite(ctx, id) {
			b.reply(chatID, bookNotFound)
			return
		}
		updated, _ := b.store.Book(id)
		if updated.Favorite {
			text = fmt.Sprintf("⭐ %s added to favorites", displayTitle(updated))
		} else {
			text = fmt.Sprintf("☆ %s removed from favorites", displayTitle(updated))
		}

	case actionStatus:
		b.setState(userID, &ConversationState{
			Command: actionStatus,
			Step:    1,
			Data:    map[string]interface{}{"book_id": id},
		})
		b.reply(chatID, fmt.Sprintf("Send the new status for %s (for example Leído or Leyendo, or - to clear it):", displayTitle(book)))
		return

	default:
		return
	}

	b.logger.Info("Book changed via bot",
		zap.String("action", action),
		zap.String("book_id", id.String()),
		zap.Int64("user_id", userID),
	)
	b.reply(chatID, text)
}
