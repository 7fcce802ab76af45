// Package controller turns automatic contact scanning on and off for one
// live document.
//
// While Active the controller runs a pass immediately, then watches the
// document body for added or removed nodes and runs one more pass after
// each burst of mutations has been quiet for the debounce delay. Stopping
// disconnects the observer, cancels a pending re-scan and strips every
// highlight and the injected style element.
package controller

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/nao1215/contactscan/internal/dom"
	"github.com/nao1215/contactscan/internal/metrics"
	"github.com/nao1215/contactscan/internal/model"
	"github.com/nao1215/contactscan/internal/scanner"
	"github.com/nao1215/contactscan/internal/schedule"
)

// State is the scanning state of a document.
type State int

const (
	// Idle means no observer is attached and no re-scan is pending.
	Idle State = iota
	// Active means an observer is attached and passes run on mutations.
	Active
)

// String returns the state name.
func (s State) String() string {
	if s == Active {
		return "active"
	}
	return "idle"
}

// DefaultDebounceDelay is the quiet period before a mutation-triggered pass.
const DefaultDebounceDelay = time.Second

// PassResult describes a finished pass.
type PassResult struct {
	// Trigger is metrics.TriggerStart or metrics.TriggerMutation.
	Trigger string

	// Added are the contacts the pass persisted.
	Added []model.Contact

	// Err is the pass error, wrapping scanner.ErrStore on store failures.
	Err error
}

// Controller is the extraction state machine for one document.
// It is safe for concurrent use.
type Controller struct {
	doc      *dom.Document
	scanner  *scanner.Scanner
	sched    schedule.Scheduler
	debounce time.Duration
	logger   *slog.Logger
	metrics  *metrics.Metrics
	onPass   func(PassResult)

	// passMu serializes passes.
	passMu sync.Mutex

	// mu guards the fields below.
	mu    sync.Mutex
	state State
	ctx   context.Context

	observer *dom.Observer
	// gen identifies the current observer; stale callbacks are ignored.
	gen uint64

	// pending is the scheduled debounce task, zero when none.
	pending schedule.Token
	// pendingSeq identifies the pending task to its own callback.
	pendingSeq uint64
	seq        uint64

	// lastSignificant records whether the most recent batch added or
	// removed nodes.
	lastSignificant bool
}

// Option configures a Controller.
type Option func(*Controller)

// WithScheduler sets the timer source. The default uses real timers.
func WithScheduler(s schedule.Scheduler) Option {
	return func(c *Controller) {
		if s != nil {
			c.sched = s
		}
	}
}

// WithDebounce sets the quiet period before a mutation-triggered pass.
func WithDebounce(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.debounce = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Controller) {
		c.metrics = m
	}
}

// WithPassHook registers fn to be called after every pass, on the
// goroutine that ran it.
func WithPassHook(fn func(PassResult)) Option {
	return func(c *Controller) {
		c.onPass = fn
	}
}

// New creates an Idle controller for doc. Passes are run by s, whose
// highlighter (if any) is enabled and disabled with the controller.
func New(doc *dom.Document, s *scanner.Scanner, opts ...Option) *Controller {
	c := &Controller{
		doc:      doc,
		scanner:  s,
		sched:    schedule.NewTimerScheduler(),
		debounce: DefaultDebounceDelay,
		logger:   slog.New(slog.DiscardHandler),
		state:    Idle,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Active reports whether scanning is on.
func (c *Controller) Active() bool {
	return c.State() == Active
}

// Start switches scanning on: it injects the highlight style, attaches the
// mutation observer and runs one pass before returning. ctx bounds every
// pass until Stop. Starting an Active controller does nothing and
// reports false.
func (c *Controller) Start(ctx context.Context) bool {
	c.mu.Lock()
	if c.state == Active {
		c.mu.Unlock()
		return false
	}

	c.state = Active
	c.ctx = ctx
	c.gen++
	gen := c.gen
	c.lastSignificant = false

	c.doc.InjectStyle(scanner.StyleID, scanner.HighlightCSS)
	c.scanner.Highlighter().Enable()
	c.observer = c.doc.Observe(func(records []dom.MutationRecord) {
		c.onMutations(gen, records)
	})
	c.metrics.SetScanning(true)
	c.mu.Unlock()

	c.logger.Info("scanning started")
	c.runPass(ctx, metrics.TriggerStart)
	return true
}

// Stop switches scanning off. A pass already running is not interrupted
// and its writes stand. Stopping an Idle controller does nothing and
// reports false.
func (c *Controller) Stop() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != Active {
		return false
	}

	c.state = Idle
	c.ctx = nil
	c.gen++
	if c.observer != nil {
		c.observer.Disconnect()
		c.observer = nil
	}
	c.cancelPendingLocked()

	c.scanner.Highlighter().Disable()
	c.doc.RemoveClassEverywhere(scanner.HighlightClass)
	c.doc.RemoveStyle(scanner.StyleID)
	c.metrics.SetScanning(false)

	c.logger.Info("scanning stopped")
	return true
}

// PendingRescan reports whether a mutation-triggered pass is scheduled.
func (c *Controller) PendingRescan() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending != 0
}

// onMutations restarts the debounce timer for every batch.
func (c *Controller) onMutations(gen uint64, records []dom.MutationRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != Active || c.gen != gen {
		return
	}
	c.metrics.IncMutationBatch()
	c.lastSignificant = dom.AnyNodeChanges(records)

	c.cancelPendingLocked()
	c.seq++
	seq := c.seq
	c.pendingSeq = seq
	c.pending = c.sched.Schedule(c.debounce, func() { c.fire(seq) })
}

// cancelPendingLocked cancels the debounce task. Callers hold mu.
func (c *Controller) cancelPendingLocked() {
	if c.pending != 0 {
		c.sched.Cancel(c.pending)
		c.pending = 0
	}
	c.pendingSeq = 0
}

// fire runs when the debounce delay elapses without another batch.
func (c *Controller) fire(seq uint64) {
	c.mu.Lock()
	if c.state != Active || c.pendingSeq != seq {
		c.mu.Unlock()
		return
	}
	c.pending = 0
	c.pendingSeq = 0
	significant := c.lastSignificant
	ctx := c.ctx
	c.mu.Unlock()

	if !significant {
		c.logger.Debug("mutations without node changes, skipping pass")
		return
	}
	c.runPass(ctx, metrics.TriggerMutation)
}

// runPass runs one pass unless the controller was stopped while the pass
// waited for the previous one.
func (c *Controller) runPass(ctx context.Context, trigger string) {
	c.passMu.Lock()
	defer c.passMu.Unlock()

	if !c.Active() {
		return
	}

	start := time.Now()
	added, err := c.scanner.Scan(ctx)
	c.metrics.ObservePass(trigger, time.Since(start), err)
	if err != nil {
		c.logger.Warn("scan pass failed", "trigger", trigger, "error", err)
	}

	if c.onPass != nil {
		c.onPass(PassResult{Trigger: trigger, Added: added, Err: err})
	}
}
