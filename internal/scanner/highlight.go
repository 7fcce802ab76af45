package scanner

import (
	"sync"
	"time"

	"github.com/nao1215/contactscan/internal/dom"
	"github.com/nao1215/contactscan/internal/schedule"
	"golang.org/x/net/html"
)

const (
	// HighlightClass marks an element holding a newly found contact.
	HighlightClass = "contactscan-highlight"

	// StyleID is the id of the style element that renders HighlightClass.
	StyleID = "contactscan-highlight-style"

	// HighlightCSS is the content of the injected style element.
	HighlightCSS = "." + HighlightClass + " { outline: 2px solid #f5a623; background-color: rgba(245, 166, 35, 0.2); transition: outline 0.3s, background-color 0.3s; }"
)

// Highlighter adds HighlightClass to elements and removes it again after
// a fixed duration.
type Highlighter struct {
	doc      *dom.Document
	sched    schedule.Scheduler
	duration time.Duration

	mu      sync.Mutex
	enabled bool
	pending map[schedule.Token]struct{}
}

// NewHighlighter creates an enabled Highlighter. A non-positive duration
// disables highlighting entirely.
func NewHighlighter(doc *dom.Document, sched schedule.Scheduler, duration time.Duration) *Highlighter {
	return &Highlighter{
		doc:      doc,
		sched:    sched,
		duration: duration,
		enabled:  true,
		pending:  make(map[schedule.Token]struct{}),
	}
}

// Highlight marks n and schedules the removal of the mark.
// It reports whether a mark was applied.
func (h *Highlighter) Highlight(n *html.Node) bool {
	if h == nil || h.duration <= 0 {
		return false
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.enabled {
		return false
	}
	h.doc.AddClass(n, HighlightClass)

	var tok schedule.Token
	tok = h.sched.Schedule(h.duration, func() {
		h.mu.Lock()
		delete(h.pending, tok)
		h.mu.Unlock()
		h.doc.RemoveClass(n, HighlightClass)
	})
	h.pending[tok] = struct{}{}
	return true
}

// Enable allows new highlights.
func (h *Highlighter) Enable() {
	if h == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.enabled = true
}

// Disable refuses new highlights and cancels every scheduled removal.
// Marks already applied are left for the caller to strip.
func (h *Highlighter) Disable() {
	if h == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	h.enabled = false
	for tok := range h.pending {
		h.sched.Cancel(tok)
	}
	clear(h.pending)
}

// Pending returns the number of scheduled removals.
func (h *Highlighter) Pending() int {
	if h == nil {
		return 0
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.pending)
}
