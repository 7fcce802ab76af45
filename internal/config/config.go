package config

import (
	"fmt"
	"net"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "contactscan"

	// DefaultDebounceDelay is the quiet period after the last page mutation
	// before a re-scan runs. Bursts of DOM changes shorter than this
	// collapse into one pass.
	DefaultDebounceDelay = 1 * time.Second

	// DefaultHighlightDuration is how long a newly found contact's element
	// carries the highlight class.
	DefaultHighlightDuration = 3 * time.Second

	// DefaultMaxNameDistance is the exclusive bound, in characters, between
	// a name candidate and the email it is attributed to.
	DefaultMaxNameDistance = 300

	// DefaultTimeout is the per-request timeout when loading URLs.
	DefaultTimeout = 30 * time.Second

	// DefaultBatchSize is the number of targets loaded concurrently by
	// `contactscan scan`.
	DefaultBatchSize = 4

	// DefaultPollInterval is how often `watch` re-fetches a URL target.
	// File targets are watched with filesystem notifications instead.
	DefaultPollInterval = 5 * time.Second

	// DefaultRequestsPerSecond limits outgoing requests across all targets.
	DefaultRequestsPerSecond = 2.0

	// DefaultUserAgent identifies contactscan in HTTP requests.
	DefaultUserAgent = "contactscan/1.0 (+https://github.com/nao1215/contactscan)"

	// DefaultMaxBodySize limits the maximum response body size to read.
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB

	// maxDebounceDelay keeps a typo such as "1h" from silently disabling re-scans.
	maxDebounceDelay = 10 * time.Minute
)

// Config holds all configuration options for contactscan.
// It is populated from CLI flags and the configuration file, and passed
// through the application rather than kept in global state.
//
// Design decision: We use a single flat struct instead of nested structs.
// The number of options is manageable, and nesting would add complexity
// without significant benefit.
type Config struct {
	// Targets are the files or URLs to scan.
	Targets []string

	// DebounceDelay is the quiet period before a mutation-triggered re-scan.
	DebounceDelay time.Duration

	// HighlightDuration is how long a found contact stays highlighted.
	HighlightDuration time.Duration

	// MaxNameDistance bounds name attribution, see DefaultMaxNameDistance.
	// Site configuration may override it per target.
	MaxNameDistance int

	// Timeout is the per-request timeout for URL targets.
	Timeout time.Duration

	// BatchSize is the number of targets loaded concurrently.
	BatchSize int

	// PollInterval is the re-fetch period for URL targets in watch mode.
	PollInterval time.Duration

	// RequestsPerSecond limits outgoing HTTP requests. Zero disables the limit.
	RequestsPerSecond float64

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string

	// MaxBodySize is the maximum response body size in bytes to read.
	MaxBodySize int64

	// Verbose enables detailed log output using slog.LevelDebug.
	Verbose bool

	// ShowPII disables masking of emails, names and phone numbers in logs.
	ShowPII bool

	// ConfigFilePath is the path to the configuration file.
	// If empty, the tool searches for .contactscan in the current directory,
	// the home directory and the XDG config directory.
	ConfigFilePath string

	// SiteConfigs holds site-specific configurations loaded from the config file.
	SiteConfigs *File

	// JSONReport prints contacts as JSON. Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport prints contacts as a Markdown table.
	MarkdownReport bool

	// ReportFile is the output file path. When empty, output goes to stdout.
	ReportFile string

	// DBDir is the directory holding the SQLite database.
	// Defaults to XDG data directory (~/.local/share/contactscan on Linux).
	DBDir string

	// Listen is the address of the local control API in watch mode.
	// Empty disables the API.
	Listen string
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		DebounceDelay:     DefaultDebounceDelay,
		HighlightDuration: DefaultHighlightDuration,
		MaxNameDistance:   DefaultMaxNameDistance,
		Timeout:           DefaultTimeout,
		BatchSize:         DefaultBatchSize,
		PollInterval:      DefaultPollInterval,
		RequestsPerSecond: DefaultRequestsPerSecond,
		UserAgent:         DefaultUserAgent,
		MaxBodySize:       DefaultMaxBodySize,
		DBDir:             XDGDataDir(),
	}
}

// XDGDataDir returns the XDG data directory for contactscan.
// On Linux: ~/.local/share/contactscan
// On macOS: ~/Library/Application Support/contactscan
// On Windows: %LOCALAPPDATA%\contactscan
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for contactscan.
// On Linux: ~/.config/contactscan
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns the first problem found, wrapped around one of the sentinel
// errors in errors.go so callers can use errors.Is.
//
// Design decision: We validate at the config level rather than at each
// point of use to fail fast and provide clear error messages upfront.
func (c *Config) Validate() error {
	if len(c.Targets) == 0 {
		return ErrNoTarget
	}
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	checks := []struct {
		value    any
		sentinel error
		rules    []validation.Rule
	}{
		{c.Timeout, ErrInvalidTimeout, []validation.Rule{validation.Required, validation.Min(time.Millisecond)}},
		{c.BatchSize, ErrInvalidBatchSize, []validation.Rule{validation.Required, validation.Min(1)}},
		{c.DebounceDelay, ErrInvalidDebounce, []validation.Rule{validation.Required, validation.Min(time.Millisecond), validation.Max(maxDebounceDelay)}},
		{c.HighlightDuration, ErrInvalidHighlight, []validation.Rule{validation.Min(time.Duration(0))}},
		{c.MaxNameDistance, ErrInvalidNameDistance, []validation.Rule{validation.Required, validation.Min(1)}},
		{c.PollInterval, ErrInvalidPollInterval, []validation.Rule{validation.Required, validation.Min(100 * time.Millisecond)}},
		{c.RequestsPerSecond, ErrInvalidRate, []validation.Rule{validation.Min(0.0)}},
		{c.MaxBodySize, ErrInvalidMaxBodySize, []validation.Rule{validation.Min(int64(0))}},
		{c.Listen, ErrInvalidListen, []validation.Rule{validation.By(isHostPort)}},
	}
	for _, chk := range checks {
		if err := validation.Validate(chk.value, chk.rules...); err != nil {
			return fmt.Errorf("%w: %v", chk.sentinel, err)
		}
	}

	if c.SiteConfigs != nil {
		if err := c.SiteConfigs.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// isHostPort accepts "" or a "host:port" address.
func isHostPort(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	if _, _, err := net.SplitHostPort(s); err != nil {
		return fmt.Errorf("must be host:port")
	}
	return nil
}

// SiteFor returns the effective site configuration for target, merged
// with the file's defaults. Without a config file the zero SiteConfig is
// returned.
func (c *Config) SiteFor(target string) SiteConfig {
	if c.SiteConfigs == nil {
		return SiteConfig{}
	}
	return c.SiteConfigs.GetSiteConfig(target)
}

// NameDistanceFor returns the name distance bound for target.
func (c *Config) NameDistanceFor(target string) int {
	if d := c.SiteFor(target).MaxNameDistance; d > 0 {
		return d
	}
	return c.MaxNameDistance
}
