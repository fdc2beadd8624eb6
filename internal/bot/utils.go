package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

func (b *Bot) sendAPI(c tgbotapi.Chattable) error {
	if b.api == nil {
		return nil // For testing
	}
	_, err := b.api.Send(c)
	return err
}

// sendMessage sends a message and logs delivery failures
func (b *Bot) sendMessage(c tgbotapi.Chattable) {
	if err := b.send(c); err != nil {
		b.logger.Warn("Failed to send message", zap.Error(err))
	}
}

// reply sends plain text to a chat
func (b *Bot) reply(chatID int64, text string) {
	b.sendMessage(tgbotapi.NewMessage(chatID, text))
}

// answerCallback removes the loading state of an inline button
func (b *Bot) answerCallback(queryID string) {
	if b.api == nil {
		return
	}
	if _, err := b.api.Request(tgbotapi.NewCallback(queryID, "")); err != nil {
		b.logger.Debug("Failed to answer callback query", zap.Error(err))
	}
}

func (b *Bot) getState(userID int64) (*ConversationState, bool) {
	b.statesMu.Lock()
	defer b.statesMu.Unlock()
	state, ok := b.states[userID]
	return state, ok
}

func (b *Bot) setState(userID int64, state *ConversationState) {
	b.statesMu.Lock()
	defer b.statesMu.Unlock()
	b.states[userID] = state
}

func (b *Bot) clearState(userID int64) {
	b.statesMu.Lock()
	defer b.statesMu.Unlock()
	delete(b.states, userID)
}
