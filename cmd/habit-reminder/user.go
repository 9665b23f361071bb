package main

import (
	"fmt"
	"strings"

	"github.com/smith3v/habit-reminder/pkg/db"
)

type UserAddCmd struct {
	Username string `arg:"" help:"Unique user name."`
	ChatID   string `help:"Telegram chat id reminders go to. The user can also bind it with /start."`
}

func (c *UserAddCmd) Run(app *App) error {
	user := db.User{Username: strings.TrimSpace(c.Username), TelegramChatID: strings.TrimSpace(c.ChatID)}
	if user.Username == "" {
		return fmt.Errorf("username is required")
	}
	if err := app.DB.WithContext(app.Ctx).Create(&user).Error; err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	fmt.Fprintf(app.Out, "user %s created with id %d\n", user.Username, user.ID)
	return nil
}

type UserListCmd struct{}

func (c *UserListCmd) Run(app *App) error {
	var users []db.User
	if err := app.DB.WithContext(app.Ctx).Order("id").Find(&users).Error; err != nil {
		return err
	}
	for _, u := range users {
		chat := u.TelegramChatID
		if chat == "" {
			chat = "-"
		}
		fmt.Fprintf(app.Out, "%d\t%s\t%s\n", u.ID, u.Username, chat)
	}
	return nil
}
