package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/nao1215/contactscan/internal/config"
	"github.com/nao1215/contactscan/internal/database"
	"github.com/nao1215/contactscan/internal/extract"
	"github.com/nao1215/contactscan/internal/fetch"
	"github.com/nao1215/contactscan/internal/log"
	"github.com/nao1215/contactscan/internal/report"
	"github.com/spf13/cobra"
)

// globalFlags are the persistent flags every command reads.
type globalFlags struct {
	verbose    bool
	showPII    bool
	dbDir      string
	configPath string
}

// getGlobalFlags reads the persistent flags. A command run without its
// root (as in tests) gets the defaults.
func getGlobalFlags(cmd *cobra.Command) globalFlags {
	lookup := func(name string) string {
		if f := cmd.Flags().Lookup(name); f != nil {
			return f.Value.String()
		}
		return ""
	}

	g := globalFlags{
		verbose:    lookup("verbose") == "true",
		showPII:    lookup("show-pii") == "true",
		dbDir:      lookup("db-dir"),
		configPath: lookup("config"),
	}
	if g.dbDir == "" {
		g.dbDir = config.XDGDataDir()
	}
	return g
}

// newConfig creates a Config carrying the global flags and the site file.
func newConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	g := getGlobalFlags(cmd)

	var err error
	cfg := config.NewConfig()
	cfg.Targets = args
	cfg.Verbose = g.verbose
	cfg.ShowPII = g.showPII
	cfg.DBDir = g.dbDir
	cfg.ConfigFilePath = g.configPath

	// An explicit path must exist; otherwise a missing file means no site
	// settings.
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	switch {
	case configPath != "":
		cfg.SiteConfigs, err = config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	case cfg.ConfigFilePath != "":
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	default:
		cfg.SiteConfigs = &config.File{Sites: make(map[string]config.SiteConfig)}
	}
	return cfg, nil
}

// applyFetchFlags copies the flags shared by scan and watch onto cfg.
func applyFetchFlags(cmd *cobra.Command, cfg *config.Config) error {
	var err error
	flags := cmd.Flags()

	if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
		return err
	}
	if cfg.RequestsPerSecond, err = flags.GetFloat64("rate"); err != nil {
		return err
	}
	if cfg.UserAgent, err = flags.GetString("user-agent"); err != nil {
		return err
	}
	if cfg.MaxNameDistance, err = flags.GetInt("max-name-distance"); err != nil {
		return err
	}
	return nil
}

// addFetchFlags registers the flags read by applyFetchFlags.
func addFetchFlags(cmd *cobra.Command) {
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for loading each page")
	cmd.Flags().Float64("rate", config.DefaultRequestsPerSecond,
		"Maximum HTTP requests per second (0 disables the limit)")
	cmd.Flags().String("user-agent", config.DefaultUserAgent,
		"User-Agent header sent with HTTP requests")
	cmd.Flags().Int("max-name-distance", config.DefaultMaxNameDistance,
		"Maximum distance in characters between an email and the name attributed to it")
}

// setupLogger creates the masking logger on stderr.
func setupLogger(cfg *config.Config) *slog.Logger {
	return log.NewSecureLogger(os.Stderr, cfg.Verbose, log.WithShowPII(cfg.ShowPII))
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(logger *slog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			logger.Info("received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()
	return ctx, cancel
}

// newLoader builds a page loader with per-site headers from cfg.
func newLoader(cfg *config.Config) *fetch.Loader {
	return fetch.NewLoader(
		fetch.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
		fetch.WithUserAgent(cfg.UserAgent),
		fetch.WithMaxBodySize(cfg.MaxBodySize),
		fetch.WithRateLimit(cfg.RequestsPerSecond),
		fetch.WithHeaders(func(target string) http.Header {
			site := cfg.SiteFor(target)
			return fetch.HeadersFromMap(site.Headers, site.Cookie)
		}),
	)
}

// extractorFor returns the extractor configured for target.
func extractorFor(cfg *config.Config) func(target string) *extract.Extractor {
	return func(target string) *extract.Extractor {
		opts := []extract.Option{extract.WithMaxNameDistance(cfg.NameDistanceFor(target))}
		if classes := cfg.SiteFor(target).ContainerClasses; len(classes) > 0 {
			opts = append(opts, extract.WithContainerClasses(classes...))
		}
		return extract.New(opts...)
	}
}

// openDB opens the contact database in cfg.DBDir.
func openDB(cfg *config.Config, logger *slog.Logger) (*database.ContactDB, error) {
	db, err := database.Open(cfg.DBDir, database.DefaultOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	logger.Debug("database opened", "path", db.Path())
	return db, nil
}

// outputFormat selects a report writer.
type outputFormat int

const (
	formatSimple outputFormat = iota
	formatJSON
	formatMarkdown
	formatEmails
)

// writeListing renders listing to cfg.ReportFile, or to out when no file
// is set.
func writeListing(cfg *config.Config, out io.Writer, format outputFormat, listing *report.Listing, showSources bool) error {
	if cfg.ReportFile != "" {
		dir := filepath.Dir(cfg.ReportFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}
		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create report file: %w", err)
		}
		defer f.Close()
		out = f
	}

	var w report.Writer
	switch format {
	case formatJSON:
		w = report.NewJSONWriter(out, report.WithPrettyPrint())
	case formatMarkdown:
		w = report.NewMarkdownWriter(out)
	case formatEmails:
		w = report.NewEmailsWriter(out)
	default:
		w = report.NewSimpleWriter(out, report.WithSources(showSources))
	}

	if _, err := w.Write(listing); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// formatFromFlags reads --json and --markdown into cfg and returns the
// selected format.
func formatFromFlags(cmd *cobra.Command, cfg *config.Config) (outputFormat, error) {
	var err error
	if cfg.JSONReport, err = cmd.Flags().GetBool("json"); err != nil {
		return formatSimple, err
	}
	if cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown"); err != nil {
		return formatSimple, err
	}
	if cfg.ReportFile, err = cmd.Flags().GetString("output"); err != nil {
		return formatSimple, err
	}
	if cfg.JSONReport && cfg.MarkdownReport {
		return formatSimple, config.ErrConflictingReportFormats
	}
	switch {
	case cfg.JSONReport:
		return formatJSON, nil
	case cfg.MarkdownReport:
		return formatMarkdown, nil
	default:
		return formatSimple, nil
	}
}

// addReportFlags registers the flags read by formatFromFlags.
func addReportFlags(cmd *cobra.Command) {
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write output to the specified file path (creates directories if needed)")
}
