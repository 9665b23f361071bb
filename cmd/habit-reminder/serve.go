package main

import (
	"errors"

	"github.com/go-telegram/bot"
	"github.com/smith3v/habit-reminder/pkg/bot/handlers"
	"github.com/smith3v/habit-reminder/pkg/config"
	"github.com/smith3v/habit-reminder/pkg/logger"
	"github.com/smith3v/habit-reminder/pkg/reminders"
)

type ServeCmd struct{}

func (c *ServeCmd) Run(app *App) error {
	if app.Bot == nil {
		return errors.New("telegram token is required to serve")
	}
	me, err := app.Bot.GetMe(app.Ctx)
	if err != nil {
		logger.Error("failed to reach telegram", "error", err)
		return err
	}

	app.Bot.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypeExact, handlers.HandleStart)
	app.Bot.RegisterHandler(bot.HandlerTypeMessageText, "/habits", bot.MatchTypeExact, handlers.HandleListHabits)
	app.Bot.RegisterHandler(bot.HandlerTypeMessageText, "/public", bot.MatchTypeExact, handlers.HandlePublicHabits)

	worker := reminders.NewWorker(app.DB, app.Dispatcher, app.Location)
	if err := worker.Start(app.Ctx); err != nil {
		logger.Error("failed to start reminder worker", "error", err)
		return err
	}
	defer worker.Stop()

	if app.ConfigPath != "" {
		go func() {
			if err := config.Watch(app.Ctx, app.ConfigPath, applyReloadedConfig); err != nil {
				logger.Error("config watcher stopped", "error", err)
			}
		}()
	}

	logger.Info("Starting bot...", "username", me.Username)
	app.Bot.Start(app.Ctx)
	return nil
}

// applyReloadedConfig takes over the log level of a changed config file.
// Other sections are read once at startup.
func applyReloadedConfig(cfg config.Config) {
	value := cfg.Logging.Level
	if value == "" {
		value = "info"
	}
	level, err := logger.ParseLogLevel(value)
	if err != nil {
		logger.Warn("ignoring reloaded log level", "value", cfg.Logging.Level, "error", err)
		return
	}
	logger.SetLogLevel(level)
	logger.Info("log level updated", "level", value)
}
