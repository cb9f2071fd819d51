package rbac

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/faciam-dev/gadmin/internal/logger"
)

// Watch reloads e whenever the policy file at path changes. Events are
// debounced. The directory is watched so editors that replace the file are
// handled. Watch returns once the watcher is running; it stops with ctx.
func Watch(ctx context.Context, e *Enforcer, path string, debounce time.Duration) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fw.Add(filepath.Dir(path)); err != nil {
		fw.Close()
		return err
	}
	target := filepath.Clean(path)
	go func() {
		defer fw.Close()
		var fire <-chan time.Time
		for {
			select {
			case ev := <-fw.Events:
				if filepath.Clean(ev.Name) != target {
					continue
				}
				fire = time.After(debounce)
			case err := <-fw.Errors:
				if err != nil {
					logger.L.Warn("fsnotify error", "err", err)
				}
			case <-fire:
				fire = nil
				if err := e.Reload(ctx); err != nil {
					logger.L.Error("reload rbac policies", "path", path, "err", err)
					continue
				}
				logger.L.Info("rbac policies reloaded", "path", path)
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}
