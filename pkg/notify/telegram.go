package notify

import (
	"context"
	"strconv"

	"github.com/go-telegram/bot"
)

// TelegramSender sends through the Bot API sendMessage method.
type TelegramSender struct {
	b *bot.Bot
}

func NewTelegramSender(b *bot.Bot) *TelegramSender {
	return &TelegramSender{b: b}
}

func (s *TelegramSender) SendMessage(ctx context.Context, destination, text string) error {
	_, err := s.b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID(destination),
		Text:   text,
	})
	return err
}

// chatID keeps numeric chats numeric; anything else (e.g. "@channel") is
// passed through as a username.
func chatID(destination string) any {
	if id, err := strconv.ParseInt(destination, 10, 64); err == nil {
		return id
	}
	return destination
}
