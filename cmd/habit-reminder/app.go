package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-telegram/bot"
	"github.com/smith3v/habit-reminder/pkg/config"
	"github.com/smith3v/habit-reminder/pkg/db"
	"github.com/smith3v/habit-reminder/pkg/habits"
	"github.com/smith3v/habit-reminder/pkg/notify"
	"github.com/smith3v/habit-reminder/pkg/reminders"
	"gorm.io/gorm"
)

// App is what every command runs against.
type App struct {
	Ctx        context.Context
	DB         *gorm.DB
	Config     config.Config
	ConfigPath string
	Location   *time.Location
	Bot        *bot.Bot
	Dispatcher *notify.Dispatcher
	Registry   *reminders.Registry
	Habits     *habits.Service
	Out        io.Writer
}

// newApp wires the services. Without a bot there is no dispatcher and
// habit announcements are skipped.
func newApp(ctx context.Context, gdb *gorm.DB, cfg config.Config, b *bot.Bot) (*App, error) {
	timings, err := cfg.Reminders.Durations()
	if err != nil {
		return nil, err
	}
	loc := cfg.Reminders.Location()

	app := &App{
		Ctx:      ctx,
		DB:       gdb,
		Config:   cfg,
		Location: loc,
		Bot:      b,
		Registry: reminders.NewRegistry(gdb, loc, timings.InitialExpiry),
		Out:      os.Stdout,
	}

	var announcer habits.Announcer
	if b != nil {
		app.Dispatcher = notify.New(notify.NewTelegramSender(b), notify.Options{
			SendTimeout: timings.SendTimeout,
			RatePerSec:  cfg.Reminders.RatePerSec,
			QueueSize:   cfg.Reminders.QueueSize,
			Workers:     cfg.Reminders.Workers,
		})
		app.Dispatcher.Start(ctx)
		announcer = app.Dispatcher
	}

	app.Habits = habits.NewService(gdb, app.Registry, announcer, habits.LimitsFromConfig(cfg.Habits), cfg.Telegram.AnnounceChatID)
	return app, nil
}

// Close flushes queued notifications.
func (a *App) Close() {
	if a.Dispatcher != nil {
		a.Dispatcher.Stop()
	}
}

func (a *App) userByName(username string) (*db.User, error) {
	var user db.User
	err := a.DB.WithContext(a.Ctx).Where("username = ?", username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("user %q not found", username)
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}
