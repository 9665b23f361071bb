package handlers

import (
	"context"
	"fmt"
	"strconv"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/smith3v/habit-reminder/pkg/db"
	"github.com/smith3v/habit-reminder/pkg/logger"
)

// HandleStart binds the caller's chat to their user record, creating the
// user on first contact, and replies with the chat id reminders go to.
func HandleStart(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update == nil || update.Message == nil || update.Message.From == nil || update.Message.Chat.ID == 0 {
		logger.Error("invalid update in HandleStart")
		return
	}

	chatID := update.Message.Chat.ID
	username := update.Message.From.Username
	if username == "" {
		username = fmt.Sprintf("tg_%d", update.Message.From.ID)
	}

	var user db.User
	err := db.DB.WithContext(ctx).
		Where(db.User{Username: username}).
		Assign(db.User{TelegramChatID: strconv.FormatInt(chatID, 10)}).
		FirstOrCreate(&user).Error
	if err != nil {
		logger.Error("failed to bind chat to user", "username", username, "chat_id", chatID, "error", err)
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   "Не удалось сохранить chat_id. Попробуйте позже.",
		})
		return
	}
	logger.Info("chat bound to user", "user_id", user.ID, "username", username, "chat_id", chatID)

	if _, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   fmt.Sprintf("Привет! Ваш chat_id %d был успешно получен.", chatID),
	}); err != nil {
		logger.Error("failed to send start reply", "chat_id", chatID, "error", err)
	}
}
