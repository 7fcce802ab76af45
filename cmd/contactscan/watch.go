package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"

	"github.com/nao1215/contactscan/internal/command"
	"github.com/nao1215/contactscan/internal/config"
	"github.com/nao1215/contactscan/internal/controller"
	"github.com/nao1215/contactscan/internal/metrics"
	"github.com/nao1215/contactscan/internal/scanner"
	"github.com/nao1215/contactscan/internal/schedule"
	"github.com/nao1215/contactscan/internal/server"
	"github.com/nao1215/contactscan/internal/store"
	"github.com/nao1215/contactscan/internal/watch"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// NewWatchCmd creates the watch command.
func NewWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <file|url>",
		Short: "Keep scanning a page as it changes",
		Long: `Watch loads a page and keeps scanning it while it changes.

Files are followed with filesystem notifications and URLs are polled. Each
change replaces the page body; once changes have been quiet for the
debounce delay, another extraction pass runs. New contacts are printed as
they are found.

With --listen, a local HTTP API controls the session:
  POST   /commands   {"type":"START_SCAN"} or {"type":"STOP_SCAN"}
  GET    /contacts   the stored contacts
  DELETE /contacts   clear the contacts and stop scanning
  GET    /status     scanning state
  GET    /metrics    Prometheus metrics

Examples:
  # Watch a local file
  contactscan watch team.html

  # Poll a URL every 10 seconds and expose the control API
  contactscan watch --poll-interval 10s --listen 127.0.0.1:8765 https://example.com/team

  # Load the page but wait for a START_SCAN command
  contactscan watch --paused --listen 127.0.0.1:8765 team.html`,
		Args: cobra.ExactArgs(1),
		RunE: runWatchCmd,
	}

	addFetchFlags(cmd)
	cmd.Flags().Duration("debounce", config.DefaultDebounceDelay,
		"Quiet period after the last change before scanning again")
	cmd.Flags().Duration("highlight", config.DefaultHighlightDuration,
		"How long new contacts stay highlighted (0 disables highlighting)")
	cmd.Flags().Duration("poll-interval", config.DefaultPollInterval,
		"How often a URL is reloaded")
	cmd.Flags().StringP("listen", "l", "",
		"Serve the control API on this address (e.g., 127.0.0.1:8765)")
	cmd.Flags().Bool("paused", false,
		"Load the page without starting to scan")

	return cmd
}

// runWatchCmd executes the watch command.
func runWatchCmd(cmd *cobra.Command, args []string) error {
	cfg, err := newConfig(cmd, args)
	if err != nil {
		return err
	}
	if err := applyFetchFlags(cmd, cfg); err != nil {
		return err
	}
	if cfg.DebounceDelay, err = cmd.Flags().GetDuration("debounce"); err != nil {
		return err
	}
	if cfg.HighlightDuration, err = cmd.Flags().GetDuration("highlight"); err != nil {
		return err
	}
	if cfg.PollInterval, err = cmd.Flags().GetDuration("poll-interval"); err != nil {
		return err
	}
	if cfg.Listen, err = cmd.Flags().GetString("listen"); err != nil {
		return err
	}
	paused, err := cmd.Flags().GetBool("paused")
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cfg)
	ctx, cancel := signalContext(logger)
	defer cancel()

	return runWatch(ctx, cfg, logger, cmd.OutOrStdout(), !paused, nil)
}

// lockedWriter serializes writes from pass hooks and the main goroutine.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) printf(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.w, format, args...)
}

// runWatch watches cfg.Targets[0] until ctx ends. ready, if set, is called
// with the API address once it is listening.
func runWatch(ctx context.Context, cfg *config.Config, logger *slog.Logger, out io.Writer, start bool, ready func(net.Addr)) error {
	target := cfg.Targets[0]
	logger = logger.With("target", target)
	w := &lockedWriter{w: out}

	db, err := openDB(cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	loader := newLoader(cfg)
	page, doc, err := loader.LoadDocument(ctx, target)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", target, err)
	}

	previous, err := db.GetPage(ctx, target)
	if err != nil {
		logger.Warn("failed to read page record", "error", err)
	}
	if previous != nil && previous.RawHash != page.Hash {
		logger.Info("page changed since last visit", "last_loaded", previous.Timestamp)
	}
	if err := db.RecordPage(ctx, page); err != nil {
		logger.Warn("failed to record page", "error", err)
	}

	sched := schedule.NewTimerScheduler()
	m := metrics.New()
	contacts := store.NewContacts(db)

	sc := scanner.New(doc, contacts,
		scanner.WithExtractor(extractorFor(cfg)(target)),
		scanner.WithHighlighter(scanner.NewHighlighter(doc, sched, cfg.HighlightDuration)),
		scanner.WithLogger(logger),
		scanner.WithMetrics(m),
		scanner.WithTarget(target),
	)
	ctrl := controller.New(doc, sc,
		controller.WithScheduler(sched),
		controller.WithDebounce(cfg.DebounceDelay),
		controller.WithLogger(logger),
		controller.WithMetrics(m),
		controller.WithPassHook(func(res controller.PassResult) {
			if res.Err != nil {
				w.printf("pass failed: %v\n", res.Err)
				return
			}
			for _, c := range res.Added {
				phone := c.Phone
				if phone == "" {
					phone = "-"
				}
				w.printf("+ %s <%s> %s\n", c.Name, c.Email, phone)
			}
		}),
	)
	// The flag survives shutdown, so stop the controller directly.
	defer ctrl.Stop()

	flag := store.NewScanFlag(db, target)
	if was, err := flag.Get(ctx); err == nil && was {
		logger.Debug("scanning was on in the previous session")
	}

	bus := command.NewBus(ctrl,
		command.WithScanFlag(flag),
		command.WithContacts(contacts),
		command.WithLogger(logger),
		command.WithBaseContext(ctx),
	)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case resp := <-bus.Acks():
				logger.Debug("command acknowledged", "status", resp.Status)
			}
		}
	}()

	w.printf("Watching %s (%q)\n", target, doc.Title())
	if start {
		if _, err := bus.Send(ctx, command.Message{Type: command.TypeStartScan}); err != nil {
			return err
		}
	}

	reloader := watch.NewReloader(loader, doc, target, page,
		watch.WithPageRecorder(db),
		watch.WithLogger(logger),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return watch.Run(gctx, reloader, watch.DefaultSettleDelay, cfg.PollInterval)
	})
	if cfg.Listen != "" {
		srv := server.New(bus, contacts,
			server.WithMetrics(m),
			server.WithLogger(logger),
			server.WithTarget(target),
		)
		g.Go(func() error {
			return srv.ListenAndServe(gctx, cfg.Listen, func(addr net.Addr) {
				w.printf("Control API listening on http://%s\n", addr)
				if ready != nil {
					ready(addr)
				}
			})
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
