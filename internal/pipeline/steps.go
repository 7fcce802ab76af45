package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nao1215/contactscan/internal/extract"
	"github.com/nao1215/contactscan/internal/fetch"
	"github.com/nao1215/contactscan/internal/metrics"
	"github.com/nao1215/contactscan/internal/model"
	"github.com/nao1215/contactscan/internal/scanner"
	"github.com/nao1215/contactscan/internal/store"
)

// ErrNotLoaded is returned by steps that need a document when none was
// loaded.
var ErrNotLoaded = errors.New("target not loaded")

// LoadStep fetches and parses the target.
type LoadStep struct {
	loader *fetch.Loader
}

// NewLoadStep creates a LoadStep.
func NewLoadStep(loader *fetch.Loader) *LoadStep {
	return &LoadStep{loader: loader}
}

// Name returns the step name.
func (s *LoadStep) Name() string {
	return "load"
}

// Do loads job.Target into job.Page and job.Doc.
func (s *LoadStep) Do(ctx context.Context, job *Job) error {
	page, doc, err := s.loader.LoadDocument(ctx, job.Target)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", job.Target, err)
	}
	job.Page = page
	job.Doc = doc
	return nil
}

// PageRecorder stores page metadata.
type PageRecorder interface {
	RecordPage(ctx context.Context, page *model.Page) error
}

// RecordStep remembers the loaded page so watchers can compare later loads.
type RecordStep struct {
	pages PageRecorder
}

// NewRecordStep creates a RecordStep.
func NewRecordStep(pages PageRecorder) *RecordStep {
	return &RecordStep{pages: pages}
}

// Name returns the step name.
func (s *RecordStep) Name() string {
	return "record"
}

// Do records job.Page.
func (s *RecordStep) Do(ctx context.Context, job *Job) error {
	if job.Page == nil {
		return ErrNotLoaded
	}
	return s.pages.RecordPage(ctx, job.Page)
}

// ExtractorFunc returns the heuristics to use for a target.
type ExtractorFunc func(target string) *extract.Extractor

// ScanStep runs one extraction pass over the loaded document.
type ScanStep struct {
	contacts   *store.Contacts
	extractors ExtractorFunc
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

// ScanStepOption configures a ScanStep.
type ScanStepOption func(*ScanStep)

// WithExtractors sets the per-target heuristics.
func WithExtractors(fn ExtractorFunc) ScanStepOption {
	return func(s *ScanStep) {
		s.extractors = fn
	}
}

// WithScanLogger sets the logger handed to the scanner.
func WithScanLogger(logger *slog.Logger) ScanStepOption {
	return func(s *ScanStep) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithScanMetrics sets the metrics sink.
func WithScanMetrics(m *metrics.Metrics) ScanStepOption {
	return func(s *ScanStep) {
		s.metrics = m
	}
}

// NewScanStep creates a ScanStep persisting into contacts.
func NewScanStep(contacts *store.Contacts, opts ...ScanStepOption) *ScanStep {
	s := &ScanStep{
		contacts: contacts,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *ScanStep) Name() string {
	return "scan"
}

// Do scans job.Doc and stores the added contacts on the job.
func (s *ScanStep) Do(ctx context.Context, job *Job) error {
	if job.Doc == nil {
		return ErrNotLoaded
	}

	opts := []scanner.Option{
		scanner.WithLogger(s.logger),
		scanner.WithMetrics(s.metrics),
		scanner.WithTarget(job.Target),
	}
	if s.extractors != nil {
		opts = append(opts, scanner.WithExtractor(s.extractors(job.Target)))
	}

	start := time.Now()
	added, err := scanner.New(job.Doc, s.contacts, opts...).Scan(ctx)
	s.metrics.ObservePass(metrics.TriggerOneShot, time.Since(start), err)
	if err != nil {
		return err
	}
	job.Added = added
	return nil
}
