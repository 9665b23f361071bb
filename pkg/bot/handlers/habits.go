package handlers

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/smith3v/habit-reminder/pkg/db"
	"github.com/smith3v/habit-reminder/pkg/logger"
	"gorm.io/gorm"
)

// HandleListHabits replies with the habits of the user bound to this chat.
func HandleListHabits(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update == nil || update.Message == nil || update.Message.Chat.ID == 0 {
		logger.Error("invalid update in HandleListHabits")
		return
	}
	chatID := update.Message.Chat.ID

	var user db.User
	err := db.DB.WithContext(ctx).Where("telegram_chat_id = ?", strconv.FormatInt(chatID, 10)).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		reply(ctx, b, chatID, "Этот чат не привязан к профилю. Отправьте /start.")
		return
	}
	if err != nil {
		logger.Error("failed to find user by chat", "chat_id", chatID, "error", err)
		reply(ctx, b, chatID, "Не удалось загрузить привычки. Попробуйте позже.")
		return
	}

	habits, err := db.ListHabitsByOwner(ctx, db.DB, user.ID)
	if err != nil {
		logger.Error("failed to list habits", "user_id", user.ID, "error", err)
		reply(ctx, b, chatID, "Не удалось загрузить привычки. Попробуйте позже.")
		return
	}
	if len(habits) == 0 {
		reply(ctx, b, chatID, "У вас пока нет привычек.")
		return
	}
	reply(ctx, b, chatID, formatHabitList("Ваши привычки:", habits))
}

// HandlePublicHabits replies with habits their owners marked public.
func HandlePublicHabits(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update == nil || update.Message == nil || update.Message.Chat.ID == 0 {
		logger.Error("invalid update in HandlePublicHabits")
		return
	}
	chatID := update.Message.Chat.ID

	habits, err := db.ListPublicHabits(ctx, db.DB)
	if err != nil {
		logger.Error("failed to list public habits", "error", err)
		reply(ctx, b, chatID, "Не удалось загрузить привычки. Попробуйте позже.")
		return
	}
	if len(habits) == 0 {
		reply(ctx, b, chatID, "Публичных привычек пока нет.")
		return
	}
	reply(ctx, b, chatID, formatHabitList("Публичные привычки:", habits))
}

func reply(ctx context.Context, b *bot.Bot, chatID int64, text string) {
	if _, err := b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: text}); err != nil {
		logger.Error("failed to send reply", "chat_id", chatID, "error", err)
	}
}

func formatHabitList(title string, habits []db.Habit) string {
	var sb strings.Builder
	sb.WriteString(title)
	for _, h := range habits {
		fmt.Fprintf(&sb, "\n#%d %s: %s в %s (%s)", h.ID, h.Time, h.Action, h.Place, formatDays(h))
		if h.IsNice {
			sb.WriteString(", приятная")
		}
	}
	return sb.String()
}

func formatDays(h db.Habit) string {
	flags := []struct {
		on   bool
		name string
	}{
		{h.Monday, "Пн"}, {h.Tuesday, "Вт"}, {h.Wednesday, "Ср"}, {h.Thursday, "Чт"},
		{h.Friday, "Пт"}, {h.Saturday, "Сб"}, {h.Sunday, "Вс"},
	}
	days := make([]string, 0, len(flags))
	for _, f := range flags {
		if f.on {
			days = append(days, f.name)
		}
	}
	return strings.Join(days, ",")
}
