package config

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounceDelay coalesces the write bursts editors produce for one save.
const debounceDelay = 300 * time.Millisecond

// Watch reloads the keyword table and off-duty settings whenever the config
// file changes on disk. Only these hot-reloadable sections are applied;
// credential changes require a restart. A malformed file keeps the last good
// values. onReload, if non-nil, runs after a successful reload so dependents
// can pick up the new rules. Blocks until ctx is cancelled.
func Watch(ctx context.Context, path string, cfg *Config, onReload func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// Watch the directory, not the file: editors replace files via rename,
	// which drops a file-level watch.
	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		return err
	}

	base := filepath.Base(path)
	var timer *time.Timer
	reload := func() {
		fresh, err := Load(path)
		if err != nil {
			slog.Warn("config reload failed, keeping previous rules", "error", err)
			return
		}
		cfg.SetKeywordRules(fresh.Autoreply)
		cfg.mu.Lock()
		cfg.OffDuty = fresh.OffDuty
		cfg.mu.Unlock()
		slog.Info("config reloaded", "rules", len(fresh.Autoreply))
		if onReload != nil {
			onReload()
		}
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != base {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounceDelay, reload)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("config watcher error", "error", err)
		}
	}
}
