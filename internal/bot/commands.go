package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"mybooks/internal/models"
	"mybooks/internal/routes"
)

// handleStart shows welcome message and available commands
func (b *Bot) handleStart(message *tgbotapi.Message) {
	var text strings.Builder
	text.WriteString(`Welcome to My Books! 📚

Browse:
/library - All books
/bookshelf - Finished books
/wishlist - Books not started yet
/reading - Books being read
/favorites - Favorite books
/stats - Collection statistics
/next - Suggest what to read next
`)
	if b.variant == routes.VariantFlags {
		text.WriteString("/bookstores - Where to buy books\n")
	}
	text.WriteString(`
Change:
/add - Add a book
/read <n> - Start reading book n
/toggle_reading <n> - Start or stop reading book n
/fav <n> - Toggle favorite on book n
/status <n> <text> - Set the status of book n
/remove <n> - Remove book n

Book numbers are the positions shown by /library.`)

	b.reply(message.Chat.ID, text.String())
}

// handleList shows the books matching keep, numbered by library position
func (b *Bot) handleList(message *tgbotapi.Message, title string, keep func(models.Book) bool) {
	library := b.store.Books()

	var text strings.Builder
	text.WriteString(title)
	text.WriteString("\n\n")
	count := 0
	for i, book := range library {
		if !keep(book) {
			continue
		}
		text.WriteString(formatBook(i+1, book))
		text.WriteByte('\n')
		count++
	}
	if count == 0 {
		text.WriteString("No books here yet.")
		if len(library) == 0 {
			text.WriteString(" Add one with /add")
		}
	}

	b.reply(message.Chat.ID, strings.TrimRight(text.String(), "\n"))
}

// handleStats shows how the collection is spread over reading states
func (b *Bot) handleStats(message *tgbotapi.Message) {
	stats := b.store.Stats()
	text := fmt.Sprintf(`📊 Collection statistics

Total: %d
Wishlist: %d
Reading: %d
Finished: %d
Other status: %d
Favorites: %d`,
		stats.Total, stats.Unread, stats.Reading, stats.Finished, stats.Custom, stats.Favorites)
	b.reply(message.Chat.ID, text)
}

// handleNext suggests the next book to pick up
func (b *Bot) handleNext(message *tgbotapi.Message) {
	pos, book, ok := SuggestNext(b.store.Books())
	if !ok {
		b.reply(message.Chat.ID, "Nothing left on the wishlist. Add a book with /add")
		return
	}
	text := fmt.Sprintf("Next to read: %s\n\nStart it with /read %d", formatBook(pos, book), pos)
	b.reply(message.Chat.ID, text)
}

// handleBookstores answers the bookstores page of the flag-based front end
func (b *Bot) handleBookstores(message *tgbotapi.Message) {
	b.reply(message.Chat.ID, "🏬 Bookstores\n\nOpen the web app to browse bookstores.")
}

// handleAddStart initiates the add book conversation
func (b *Bot) handleAddStart(message *tgbotapi.Message) {
	b.setState(message.From.ID, &ConversationState{
		Command: "add",
		Step:    1,
		Data:    make(map[string]interface{}),
	})
	b.reply(message.Chat.ID, "Please enter the book title:")
}

// handleBookAction runs action on the book at the position given in args,
// or offers a keyboard to pick one
func (b *Bot) handleBookAction(ctx context.Context, message *tgbotapi.Message, action, args string) {
	if args == "" {
		b.showBookPicker(message.Chat.ID, action)
		return
	}

	book, problem := b.bookAt(args)
	if problem != "" {
		b.reply(message.Chat.ID, problem)
		return
	}
	b.applyAction(ctx, message.Chat.ID, message.From.ID, action, book.ID)
}

// handleStatusCommand handles "/status <n> <text>"; without text it asks for it
func (b *Bot) handleStatusCommand(ctx context.Context, message *tgbotapi.Message, args string) {
	if args == "" {
		b.showBookPicker(message.Chat.ID, actionStatus)
		return
	}

	position, text, _ := strings.Cut(args, " ")
	book, problem := b.bookAt(position)
	if problem != "" {
		b.reply(message.Chat.ID, problem)
		return
	}

	text = strings.TrimSpace(text)
	if text == "" {
		b.applyAction(ctx, message.Chat.ID, message.From.ID, actionStatus, book.ID)
		return
	}
	b.setStatus(ctx, message.Chat.ID, book.ID, text)
}

func (b *Bot) setStatus(ctx context.Context, chatID int64, id models.ID, text string) {
	state := parseStatusText(text)
	if !b.store.UpdateBookStatus(ctx, id, state) {
		b.reply(chatID, bookNotFound)
		return
	}
	book, _ := b.store.Book(id)
	b.logger.Info("Book status changed via bot",
		zap.String("book_id", id.String()),
		zap.String("status", state.String()),
	)
	b.reply(chatID, fmt.Sprintf("🏷 %s is now: %s", displayTitle(book), statusLabel(book.State)))
}

// showBookPicker sends an inline keyboard with one button per book
func (b *Bot) showBookPicker(chatID int64, action string) {
	library := b.store.Books()
	if len(library) == 0 {
		b.reply(chatID, "Your library is empty. Add a book with /add")
		return
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	var currentRow []tgbotapi.InlineKeyboardButton
	for i, book := range library {
		data, ok := encodeCallbackData(action, book.ID)
		if !ok {
			b.logger.Warn("Book id too long for an inline button", zap.String("book_id", book.ID.String()))
			continue
		}
		label := fmt.Sprintf("%d. %s", i+1, displayTitle(book))
		currentRow = append(currentRow, tgbotapi.NewInlineKeyboardButtonData(label, data))

		if len(currentRow) == 2 {
			rows = append(rows, currentRow)
			currentRow = nil
		}
	}
	if len(currentRow) > 0 {
		rows = append(rows, currentRow)
	}

	msg := tgbotapi.NewMessage(chatID, "📚 Select a book:")
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	b.sendMessage(msg)
}

// bookAt resolves a 1-based library position. problem is the reply to send
// when arg does not name a book.
func (b *Bot) bookAt(arg string) (book models.Book, problem string) {
	pos, err := strconv.Atoi(strings.TrimSpace(arg))
	if err != nil {
		return models.Book{}, fmt.Sprintf("Invalid book number %q. Use the numbers shown by /library", arg)
	}
	library := b.store.Books()
	if pos < 1 || pos > len(library) {
		return models.Book{}, fmt.Sprintf("There is no book number %d. Use the numbers shown by /library", pos)
	}
	return library[pos-1], ""
}

func formatBook(pos int, book models.Book) string {
	var line strings.Builder
	fmt.Fprintf(&line, "%d. %s", pos, displayTitle(book))
	if book.Author != "" {
		fmt.Fprintf(&line, " - %s", book.Author)
	}
	if !book.State.IsUnread() {
		fmt.Fprintf(&line, " [%s]", book.State.Status())
	}
	if book.Favorite {
		line.WriteString(" ⭐")
	}
	if book.Comment != "" {
		fmt.Fprintf(&line, "\n   %s", book.Comment)
	}
	return line.String()
}

func displayTitle(book models.Book) string {
	if book.Title == "" {
		return "(untitled)"
	}
	return book.Title
}

func statusLabel(state models.ReadingState) string {
	if state.IsUnread() {
		return "not started"
	}
	return state.Status()
}

// parseStatusText maps chat input to a state; "-" clears the status
func parseStatusText(text string) models.ReadingState {
	if text == "-" {
		return models.Unread
	}
	return models.ParseReadingState(text)
}
