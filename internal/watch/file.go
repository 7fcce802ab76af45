package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/nao1215/contactscan/internal/fetch"
)

// DefaultSettleDelay is how long file events must be quiet before a reload.
const DefaultSettleDelay = 200 * time.Millisecond

// WatchFile reloads r whenever its file changes, until ctx is cancelled.
// The parent directory is watched so that editors replacing the file by
// rename are followed. Bursts of events within settle collapse into one
// reload.
func WatchFile(ctx context.Context, r *Reloader, settle time.Duration) error {
	if settle <= 0 {
		settle = DefaultSettleDelay
	}
	rel := fetch.FilePath(r.Target())
	if rel == "" {
		return fmt.Errorf("%w: %s", fetch.ErrUnsupportedScheme, r.Target())
	}
	path, err := filepath.Abs(rel)
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
	r.logger.Info("watcher: started", slog.String("path", path))

	var timer *time.Timer
	var timerCh <-chan time.Time
	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(settle)
			timerCh = timer.C
		} else {
			timer.Reset(settle)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			r.logger.Info("watcher: stopped", slog.String("path", path))
			return nil

		case <-timerCh:
			if _, err := r.Reload(ctx); err != nil {
				r.logger.Warn("watcher: reload failed", slog.String("path", path), slog.String("error", err.Error()))
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != path {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				schedule()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			r.logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}
