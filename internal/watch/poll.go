package watch

import (
	"context"
	"time"

	"github.com/nao1215/contactscan/internal/fetch"
)

// DefaultPollInterval is the interval between URL reloads.
const DefaultPollInterval = 5 * time.Second

// Poll reloads r every interval until ctx is cancelled. Failed loads are
// logged and retried on the next tick.
func Poll(ctx context.Context, r *Reloader, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	r.logger.Info("poller: started", "target", r.Target(), "interval", interval)
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("poller: stopped", "target", r.Target())
			return nil
		case <-ticker.C:
			if _, err := r.Reload(ctx); err != nil {
				r.logger.Warn("poller: reload failed", "target", r.Target(), "error", err)
			}
		}
	}
}

// Run follows r's target with WatchFile for files and Poll for URLs.
func Run(ctx context.Context, r *Reloader, settle, interval time.Duration) error {
	if fetch.IsURL(r.Target()) {
		return Poll(ctx, r, interval)
	}
	return WatchFile(ctx, r, settle)
}
