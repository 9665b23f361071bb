package handlers

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/smith3v/habit-reminder/pkg/logger"
)

const helpText = "Команды:\n" +
	"/start: привязать этот чат к вашему профилю\n" +
	"/habits: ваши привычки\n" +
	"/public: публичные привычки\n\n" +
	"Напоминания приходят в этот чат по расписанию ваших привычек."

func DefaultHandler(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update == nil || update.Message == nil {
		logger.Error("received invalid update in defaultHandler")
		return
	}
	if update.Message.Chat.ID == 0 {
		logger.Error("chat ID is zero in defaultHandler")
		return
	}

	_, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: update.Message.Chat.ID,
		Text:   helpText,
	})
	if err != nil {
		logger.Error("failed to send message in defaultHandler", "error", err)
	}
}
