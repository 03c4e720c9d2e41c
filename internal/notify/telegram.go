package notify

import (
	"context"
	"time"

	"ton_miner/internal/logger"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Sender is the part of the bot API used to deliver messages.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram sends messages to the player's private chat; the account id is the
// Telegram user id, which is also the chat id.
type Telegram struct {
	api     Sender
	timeout time.Duration
	queue   chan tgbotapi.MessageConfig
}

// NewTelegram starts a single delivery worker so callers never wait on the Bot API.
func NewTelegram(api Sender, buffer int) *Telegram {
	t := &Telegram{
		api:     api,
		timeout: 10 * time.Second,
		queue:   make(chan tgbotapi.MessageConfig, buffer),
	}
	go t.run()
	return t
}

func (t *Telegram) Notify(_ context.Context, accountID int64, message string) {
	msg := tgbotapi.NewMessage(accountID, message)
	select {
	case t.queue <- msg:
	default:
		logger.Warn("telegram notify queue full, dropping message", "account_id", accountID)
	}
}

// Close stops the worker after the queued messages are sent.
func (t *Telegram) Close() {
	close(t.queue)
}

func (t *Telegram) run() {
	for msg := range t.queue {
		if _, err := t.api.Send(msg); err != nil {
			logger.Warn("telegram notify failed", "chat_id", msg.ChatID, "error", err)
		}
	}
}
