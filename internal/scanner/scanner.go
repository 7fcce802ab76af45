package scanner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nao1215/contactscan/internal/dom"
	"github.com/nao1215/contactscan/internal/extract"
	"github.com/nao1215/contactscan/internal/metrics"
	"github.com/nao1215/contactscan/internal/model"
	"github.com/nao1215/contactscan/internal/store"
	"golang.org/x/net/html"
)

var (
	// ErrStore is returned when the contact collection cannot be read or
	// written. Nothing from the pass is persisted.
	ErrStore = errors.New("contact store unavailable")

	// ErrExtract wraps a failure while handling a single email. It never
	// escapes a pass; it is only logged.
	ErrExtract = errors.New("extraction failed")
)

// Scanner runs extraction passes over one document.
// Passes must not run concurrently; the controller serializes them.
type Scanner struct {
	doc         *dom.Document
	contacts    *store.Contacts
	extractor   *extract.Extractor
	highlighter *Highlighter
	logger      *slog.Logger
	metrics     *metrics.Metrics
	target      string
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithExtractor sets the heuristics. The default is extract.New().
func WithExtractor(e *extract.Extractor) Option {
	return func(s *Scanner) {
		if e != nil {
			s.extractor = e
		}
	}
}

// WithHighlighter enables highlighting of elements holding new contacts.
func WithHighlighter(h *Highlighter) Option {
	return func(s *Scanner) {
		s.highlighter = h
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scanner) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Scanner) {
		s.metrics = m
	}
}

// WithTarget names the page in log output.
func WithTarget(target string) Option {
	return func(s *Scanner) {
		s.target = target
	}
}

// New creates a Scanner for doc that persists into contacts.
func New(doc *dom.Document, contacts *store.Contacts, opts ...Option) *Scanner {
	s := &Scanner{
		doc:       doc,
		contacts:  contacts,
		extractor: extract.New(),
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Highlighter returns the configured highlighter, which may be nil.
func (s *Scanner) Highlighter() *Highlighter {
	return s.highlighter
}

// found is a contact accepted in the current pass and the element it
// came from.
type found struct {
	contact model.Contact
	owner   *html.Node
}

// Scan runs one pass and returns the contacts it added, in discovery order.
// Running Scan again on an unchanged document adds nothing.
func (s *Scanner) Scan(ctx context.Context) ([]model.Contact, error) {
	start := time.Now()
	logger := s.logger.With("pass", uuid.NewString(), "target", s.target)

	known, err := s.contacts.Load(ctx)
	if err != nil {
		logger.Warn("failed to load contacts", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrStore, err)
	}

	seen := make(map[string]struct{}, len(known))
	for _, c := range known {
		seen[c.Email] = struct{}{}
	}

	var accepted []found
	s.doc.Read(func(body *html.Node) {
		for seg := range dom.VisibleTextSegments(body) {
			for _, email := range s.extractor.Emails(seg.Text) {
				if _, ok := seen[email]; ok {
					s.metrics.IncSkipped(metrics.SkipKnown)
					continue
				}

				c, match, err := s.extractOne(seg.Owner, email)
				if err != nil {
					s.metrics.IncSkipped(metrics.SkipError)
					logger.Debug("skipped email", "email", email, "error", err)
					continue
				}
				if err := c.Validate(); err != nil {
					s.metrics.IncSkipped(metrics.SkipInvalid)
					logger.Debug("discarded invalid contact", "email", email, "error", err)
					continue
				}

				seen[email] = struct{}{}
				accepted = append(accepted, found{contact: c, owner: seg.Owner})
				logger.Debug("contact found",
					"email", c.Email,
					"name", c.Name,
					"strategy", match.Strategy,
					"distance", match.Distance,
				)
			}
		}
	})

	if len(accepted) == 0 {
		logger.Debug("pass finished", "added", 0, "known", len(known), "elapsed", time.Since(start))
		return []model.Contact{}, nil
	}

	added := make([]model.Contact, 0, len(accepted))
	for _, f := range accepted {
		s.highlighter.Highlight(f.owner)
		added = append(added, f.contact)
	}

	merged := make([]model.Contact, 0, len(known)+len(added))
	merged = append(merged, known...)
	merged = append(merged, added...)
	if err := s.contacts.Save(ctx, merged); err != nil {
		logger.Warn("failed to save contacts", "error", err, "pending", len(added))
		return nil, fmt.Errorf("%w: %w", ErrStore, err)
	}

	s.metrics.AddFound(len(added))
	logger.Info("pass finished", "added", len(added), "known", len(known), "elapsed", time.Since(start))
	return added, nil
}

// extractOne applies the heuristics to one email, converting a panic in
// a heuristic into ErrExtract.
func (s *Scanner) extractOne(owner *html.Node, email string) (c model.Contact, match extract.NameMatch, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrExtract, r)
		}
	}()

	c, match = s.extractor.Extract(owner, email)
	return c, match, nil
}
