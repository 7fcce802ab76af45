// Package watch keeps a live document in step with its source.
//
// A Reloader loads the target again and, when its bytes changed, swaps the
// new body into the live document. The swap is an ordinary child-list
// mutation, so an active controller sees it and re-scans after its debounce
// delay. WatchFile drives a Reloader from file system events and Poll drives
// it on a fixed interval for URLs.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/nao1215/contactscan/internal/dom"
	"github.com/nao1215/contactscan/internal/fetch"
	"github.com/nao1215/contactscan/internal/model"
)

// PageRecorder stores page metadata after each applied reload.
type PageRecorder interface {
	RecordPage(ctx context.Context, page *model.Page) error
}

// Reloader reloads one target into a live document.
type Reloader struct {
	loader *fetch.Loader
	doc    *dom.Document
	target string
	pages  PageRecorder
	logger *slog.Logger

	mu   sync.Mutex
	last *model.Page
}

// ReloaderOption configures a Reloader.
type ReloaderOption func(*Reloader)

// WithPageRecorder records every applied reload.
func WithPageRecorder(p PageRecorder) ReloaderOption {
	return func(r *Reloader) {
		r.pages = p
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) ReloaderOption {
	return func(r *Reloader) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewReloader creates a Reloader for doc, which was loaded from target as
// current. current may be nil, in which case the first reload always
// applies.
func NewReloader(loader *fetch.Loader, doc *dom.Document, target string, current *model.Page, opts ...ReloaderOption) *Reloader {
	r := &Reloader{
		loader: loader,
		doc:    doc,
		target: target,
		last:   current,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Target returns the watched target.
func (r *Reloader) Target() string {
	return r.target
}

// Reload loads the target and applies it when the content changed.
// It reports whether the document was updated.
func (r *Reloader) Reload(ctx context.Context) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	page, fresh, err := r.loader.LoadDocument(ctx, r.target)
	if err != nil {
		return false, err
	}
	if page.SameContent(r.last) {
		r.logger.Debug("source unchanged", "target", r.target)
		return false, nil
	}

	if err := r.doc.ReplaceBody(fresh); err != nil {
		return false, fmt.Errorf("failed to apply %s: %w", r.target, err)
	}
	r.last = page
	r.logger.Info("source reloaded", "target", r.target, "hash", page.Hash)

	if r.pages != nil {
		if err := r.pages.RecordPage(ctx, page); err != nil {
			r.logger.Warn("failed to record page", "target", r.target, "error", err)
		}
	}
	return true, nil
}
