package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/smith3v/habit-reminder/pkg/logger"
)

const (
	DefaultMaxDurationMinutes = 120
	DefaultPeriodicityMin     = 1
	DefaultPeriodicityMax     = 7

	DefaultInitialExpiry = 30 * time.Second
	DefaultSendTimeout   = 10 * time.Second
	DefaultRatePerSec    = 20
	DefaultQueueSize     = 256
	DefaultWorkers       = 2
)

type Config struct {
	Database  DatabaseConfig  `json:"database"`
	Telegram  TelegramConfig  `json:"telegram"`
	Logging   LoggingConfig   `json:"logging"`
	Habits    HabitsConfig    `json:"habits"`
	Reminders RemindersConfig `json:"reminders"`
}

// DatabaseConfig selects the store. Driver is "postgres" (default) or
// "sqlite"; DSN, when set, is used verbatim instead of the discrete fields.
type DatabaseConfig struct {
	Driver   string `json:"driver"`
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"dbname"`
	Port     int    `json:"port"`
	SSLMode  string `json:"sslmode"`
	Path     string `json:"path"`
}

type TelegramConfig struct {
	Token string `json:"token"`
	// AnnounceChatID receives the one-shot "new habit" notice. Empty means
	// the habit owner's chat.
	AnnounceChatID string `json:"announce_chat_id"`
}

type LoggingConfig struct {
	Level     string `json:"level"`
	File      string `json:"file"`
	GormLevel string `json:"gorm_level"`
}

type HabitsConfig struct {
	MaxDurationMinutes int `json:"max_duration_minutes"`
	PeriodicityMin     int `json:"periodicity_min"`
	PeriodicityMax     int `json:"periodicity_max"`
}

// RemindersConfig holds scheduling and dispatch settings. Durations are Go
// duration strings ("30s", "1m").
type RemindersConfig struct {
	Timezone      string `json:"timezone"`
	InitialExpiry string `json:"initial_expiry"`
	SendTimeout   string `json:"send_timeout"`
	RatePerSec    int    `json:"rate_per_sec"`
	QueueSize     int    `json:"queue_size"`
	Workers       int    `json:"workers"`
}

var AppConfig Config

// LoadConfig reads filename into AppConfig.
func LoadConfig(filename string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Error("failed to load .env file", "error", err)
	}

	cfg, err := ReadConfig(filename)
	if err != nil {
		return err
	}
	AppConfig = cfg
	return nil
}

// ReadConfig parses a JSON or YAML config file, applies environment
// overrides and defaults, and validates durations.
func ReadConfig(filename string) (Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		logger.Error("failed to open config file", "error", err)
		return Config{}, err
	}

	data, format, err := coerceToJSONBytes(filename, data)
	if err != nil {
		logger.Error("failed to parse config file", "format", format, "error", err)
		return Config{}, err
	}

	var cfg Config
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&cfg); err != nil {
		logger.Error("failed to decode config file", "format", format, "error", err)
		return Config{}, err
	}

	applyEnv(&cfg)
	cfg.applyDefaults()
	if _, err := cfg.Reminders.Durations(); err != nil {
		logger.Error("invalid reminders config", "error", err)
		return Config{}, err
	}
	if err := cfg.Habits.check(); err != nil {
		logger.Error("invalid habits config", "error", err)
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("TELEGRAM_TOKEN")); v != "" {
		cfg.Telegram.Token = v
	}
	if v := strings.TrimSpace(os.Getenv("DATABASE_DSN")); v != "" {
		cfg.Database.DSN = v
	}
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.Database.Driver) == "" {
		c.Database.Driver = "postgres"
	}
	if c.Habits.MaxDurationMinutes <= 0 {
		c.Habits.MaxDurationMinutes = DefaultMaxDurationMinutes
	}
	if c.Habits.PeriodicityMin <= 0 {
		c.Habits.PeriodicityMin = DefaultPeriodicityMin
	}
	if c.Habits.PeriodicityMax <= 0 {
		c.Habits.PeriodicityMax = DefaultPeriodicityMax
	}
	if c.Reminders.RatePerSec <= 0 {
		c.Reminders.RatePerSec = DefaultRatePerSec
	}
	if c.Reminders.QueueSize <= 0 {
		c.Reminders.QueueSize = DefaultQueueSize
	}
	if c.Reminders.Workers <= 0 {
		c.Reminders.Workers = DefaultWorkers
	}
}

func (h HabitsConfig) check() error {
	if h.PeriodicityMin > h.PeriodicityMax {
		return fmt.Errorf("habits.periodicity_min %d exceeds habits.periodicity_max %d", h.PeriodicityMin, h.PeriodicityMax)
	}
	return nil
}

// Timings are the parsed durations of RemindersConfig.
type Timings struct {
	InitialExpiry time.Duration
	SendTimeout   time.Duration
}

func (r RemindersConfig) Durations() (Timings, error) {
	expiry, err := ParseDurationOrDefault("reminders.initial_expiry", r.InitialExpiry, DefaultInitialExpiry)
	if err != nil {
		return Timings{}, err
	}
	timeout, err := ParseDurationOrDefault("reminders.send_timeout", r.SendTimeout, DefaultSendTimeout)
	if err != nil {
		return Timings{}, err
	}
	return Timings{InitialExpiry: expiry, SendTimeout: timeout}, nil
}

// Location resolves the reminders timezone, falling back to time.Local.
func (r RemindersConfig) Location() *time.Location {
	tz := strings.TrimSpace(r.Timezone)
	if tz == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		logger.Warn("invalid timezone, falling back to Local", "tz", tz, "error", err)
		return time.Local
	}
	return loc
}
