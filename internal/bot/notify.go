package bot

import (
	"fmt"

	"go.uber.org/zap"

	"mybooks/internal/books"
	"mybooks/internal/models"
)

const notificationBuffer = 32

// EnableNotifications posts a summary to chatID after every change to the
// collection. Messages are sent in change order from a single goroutine so
// store mutations never wait on Telegram.
func (b *Bot) EnableNotifications(chatID int64) {
	b.notifyMu.Lock()
	b.notifications = make(chan string, notificationBuffer)
	b.notifyClosed = false
	b.notifyMu.Unlock()

	initial := true
	b.unsubscribe = b.store.Subscribe(func(list []models.Book) {
		if initial {
			initial = false
			return
		}
		b.enqueueNotification(changeNotice(list))
	})

	go func(ch <-chan string) {
		for text := range ch {
			b.reply(chatID, text)
		}
	}(b.notifications)

	b.logger.Info("Change notifications enabled", zap.Int64("chat_id", chatID))
}

func (b *Bot) enqueueNotification(text string) {
	b.notifyMu.Lock()
	defer b.notifyMu.Unlock()
	if b.notifyClosed {
		return
	}
	select {
	case b.notifications <- text:
	default:
		b.logger.Warn("Notification queue full, dropping message")
	}
}

func (b *Bot) stopNotifications() {
	if b.unsubscribe == nil {
		return
	}
	b.unsubscribe()
	b.unsubscribe = nil

	b.notifyMu.Lock()
	defer b.notifyMu.Unlock()
	b.notifyClosed = true
	close(b.notifications)
}

func changeNotice(list []models.Book) string {
	stats := books.ComputeStats(list)
	return fmt.Sprintf("📚 Collection updated: %d books (%d reading, %d finished, %d on the wishlist)",
		stats.Total, stats.Reading, stats.Finished, stats.Unread)
}
