package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/nao1215/contactscan/internal/config"
	"github.com/nao1215/contactscan/internal/metrics"
	"github.com/nao1215/contactscan/internal/model"
	"github.com/nao1215/contactscan/internal/pipeline"
	"github.com/nao1215/contactscan/internal/report"
	"github.com/nao1215/contactscan/internal/store"
	"github.com/spf13/cobra"
)

// ErrAllTargetsFailed is returned when no target of a scan could be scanned.
var ErrAllTargetsFailed = errors.New("all targets failed")

// NewScanCmd creates the scan command.
func NewScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan <file|url>...",
		Short: "Scan pages once for contact information",
		Long: `Scan loads each page, runs one extraction pass over its visible text, and
adds newly found contacts to the local contact list.

Pages are loaded concurrently and scanned one at a time in the order given.
Contacts already in the list (same email, ignoring case) are skipped.

Examples:
  # Scan a saved page
  contactscan scan team.html

  # Scan several pages, four loads at a time
  contactscan scan -b 4 https://example.com/team https://example.com/about

  # Print the contacts this run added as JSON
  contactscan scan --json team.html

Configuration file (.contactscan) example:
  defaults:
    maxNameDistance: 300
  sites:
    example.com:
      cookie: "session_id=abc123"
      containerClasses: ["member", "profile"]`,
		Args: cobra.MinimumNArgs(1),
		RunE: runScanCmd,
	}

	addFetchFlags(cmd)
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of pages loaded concurrently")
	addReportFlags(cmd)

	return cmd
}

// runScanCmd executes the scan command.
func runScanCmd(cmd *cobra.Command, args []string) error {
	cfg, err := newConfig(cmd, args)
	if err != nil {
		return err
	}
	if err := applyFetchFlags(cmd, cfg); err != nil {
		return err
	}
	if cfg.BatchSize, err = cmd.Flags().GetInt("batch"); err != nil {
		return err
	}
	format, err := formatFromFlags(cmd, cfg)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cfg)
	ctx, cancel := signalContext(logger)
	defer cancel()

	added, err := runScan(ctx, cfg, logger, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	return writeListing(cfg, cmd.OutOrStdout(), format, report.NewListing(added), false)
}

// runScan scans cfg.Targets and returns the contacts the run added.
// Progress lines go to progress.
func runScan(ctx context.Context, cfg *config.Config, logger *slog.Logger, progress io.Writer) ([]model.Contact, error) {
	db, err := openDB(cfg, logger)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	loader := newLoader(cfg)
	contacts := store.NewContacts(db)
	m := metrics.New()

	bp := pipeline.NewBatchProcessor(
		func() *pipeline.Pipeline {
			p := pipeline.New(pipeline.WithLogger(logger))
			p.AddSteps(pipeline.NewLoadStep(loader), pipeline.NewRecordStep(db))
			return p
		},
		func() *pipeline.Pipeline {
			p := pipeline.New(pipeline.WithLogger(logger))
			p.AddStep(pipeline.NewScanStep(contacts,
				pipeline.WithExtractors(extractorFor(cfg)),
				pipeline.WithScanLogger(logger),
				pipeline.WithScanMetrics(m),
			))
			return p
		},
		pipeline.WithBatchLogger(logger),
		pipeline.WithConcurrency(cfg.BatchSize),
	)

	start := time.Now()
	jobs, err := bp.ProcessBatch(ctx, cfg.Targets)
	if err != nil {
		return nil, err
	}

	var added []model.Contact
	failed := 0
	for i, job := range jobs {
		if job.Failed() {
			failed++
			logger.Error("scan failed", "target", job.Target, "error", job.Err)
			fmt.Fprintf(progress, "[%d/%d] %s: %v\n", i+1, len(jobs), job.Target, job.Err)
			continue
		}
		fmt.Fprintf(progress, "[%d/%d] %s: %d new contact(s)\n", i+1, len(jobs), job.Target, len(job.Added))
		added = append(added, job.Added...)
	}
	fmt.Fprintf(progress, "Scan completed in %s\n\n", time.Since(start).Round(time.Millisecond))

	if failed == len(jobs) {
		return nil, fmt.Errorf("%w (%d target(s))", ErrAllTargetsFailed, failed)
	}
	return added, nil
}
