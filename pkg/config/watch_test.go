package config

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/smith3v/habit-reminder/pkg/logger"
)

func TestWatchReloadsChangedFile(t *testing.T) {
	logger.SetLogLevel(logger.ERROR)
	t.Setenv("TELEGRAM_TOKEN", "")
	t.Setenv("DATABASE_DSN", "")
	path := writeFixture(t, "config.yaml", "logging:\n  level: info\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan Config, 4)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, func(cfg Config) { reloaded <- cfg })
	}()

	// The watcher may not be registered yet, so keep touching the file at a
	// pace slower than the reload debounce.
	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(500 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case cfg := <-reloaded:
			if cfg.Logging.Level != "debug" {
				t.Fatalf("expected reloaded level debug, got %q", cfg.Logging.Level)
			}
			cancel()
			if err := <-done; err != nil {
				t.Fatalf("Watch returned error: %v", err)
			}
			return
		case <-tick.C:
			if err := os.WriteFile(path, []byte("logging:\n  level: debug\n"), 0o600); err != nil {
				t.Fatalf("failed to rewrite config: %v", err)
			}
		case <-deadline:
			t.Fatal("config change was not picked up")
		}
	}
}

func TestWatchStopsWithContext(t *testing.T) {
	path := writeFixture(t, "config.json", `{}`)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := Watch(ctx, path, func(Config) {}); err != nil {
		t.Fatalf("Watch returned error: %v", err)
	}
}
