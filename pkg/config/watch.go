package config

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/smith3v/habit-reminder/pkg/logger"
)

const reloadDebounce = 250 * time.Millisecond

// Watch re-reads filename after every change and passes each config that
// parses to onChange. It blocks until ctx is done. The directory is watched
// so editors that replace the file are seen too.
func Watch(ctx context.Context, filename string, onChange func(Config)) error {
	path, err := filepath.Abs(filename)
	if err != nil {
		return err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(filepath.Dir(path)); err != nil {
		return err
	}

	var (
		mu    sync.Mutex
		timer *time.Timer
	)
	reload := func() {
		mu.Lock()
		defer mu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(reloadDebounce, func() {
			cfg, err := ReadConfig(path)
			if err != nil {
				logger.Warn("config reload skipped", "path", path, "error", err)
				return
			}
			logger.Info("config reloaded", "path", path)
			onChange(cfg)
		})
	}
	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Name == path && ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				reload()
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("config watcher error", "error", err)
		}
	}
}
