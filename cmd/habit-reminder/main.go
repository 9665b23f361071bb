package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/go-telegram/bot"
	"github.com/smith3v/habit-reminder/pkg/bot/handlers"
	"github.com/smith3v/habit-reminder/pkg/config"
	"github.com/smith3v/habit-reminder/pkg/db"
	"github.com/smith3v/habit-reminder/pkg/habits"
	"github.com/smith3v/habit-reminder/pkg/logger"
)

var CLI struct {
	Version kong.VersionFlag
	Config  string `help:"Path to the JSON or YAML config file." type:"path" default:"config.json"`

	Serve ServeCmd `cmd:"" help:"Run the Telegram bot and the reminder worker." default:"1"`
	User  struct {
		Add  UserAddCmd  `cmd:"" help:"Add a user."`
		List UserListCmd `cmd:"" help:"List users."`
	} `cmd:"" help:"Manage users."`
	Habit struct {
		Create HabitCreateCmd `cmd:"" help:"Create a habit and schedule its reminder."`
		Update HabitUpdateCmd `cmd:"" help:"Update a habit and refresh its reminder."`
		Delete HabitDeleteCmd `cmd:"" help:"Delete a habit and disable its reminder."`
		List   HabitListCmd   `cmd:"" help:"List habits."`
	} `cmd:"" help:"Manage habits."`
}

func main() {
	kctx := kong.Parse(&CLI,
		kong.Name("habit-reminder"),
		kong.Description("Habit tracker that reminds you through Telegram"),
		kong.UsageOnError(),
		kong.Vars{"version": "v0.1.0"},
	)

	if err := config.LoadConfig(CLI.Config); err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := logger.Configure(logger.Options{
		Level: config.AppConfig.Logging.Level,
		File:  config.AppConfig.Logging.File,
	}); err != nil {
		logger.Error("failed to configure logger", "error", err)
	}

	if err := db.InitDB(config.AppConfig.Database); err != nil {
		logger.Error("failed to initialize database", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var b *bot.Bot
	if config.AppConfig.Telegram.Token != "" {
		var err error
		b, err = bot.New(config.AppConfig.Telegram.Token,
			bot.WithDefaultHandler(handlers.DefaultHandler),
			bot.WithSkipGetMe(),
		)
		if err != nil {
			logger.Error("failed to create bot", "error", err)
			os.Exit(1)
		}
	}

	app, err := newApp(ctx, db.DB, config.AppConfig, b)
	if err != nil {
		logger.Error("failed to set up application", "error", err)
		os.Exit(1)
	}

	app.ConfigPath = CLI.Config

	err = kctx.Run(app)
	app.Close()
	if err != nil {
		var verr *habits.ValidationError
		if errors.As(err, &verr) {
			fmt.Fprintf(os.Stderr, "Ошибка валидации: %s\n", verr.Message)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}
