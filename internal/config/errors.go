package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and provide specific
// information about what is wrong with the configuration.
//
// Design decision: We use package-level sentinel errors rather than
// creating new error instances in Validate(). This allows callers to use
// errors.Is() for programmatic error handling while still providing
// human-readable messages.
var (
	// ErrNoTarget is returned when no file or URL is given.
	ErrNoTarget = errors.New("no target specified: provide a file path or URL")

	// ErrInvalidTimeout is returned when the timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidBatchSize is returned when the batch size is not positive.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified. Only one output format can be used at a time.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrInvalidDebounce is returned when the debounce delay is not positive
	// or unreasonably long.
	ErrInvalidDebounce = errors.New("invalid debounce delay: must be between 1ms and 10m")

	// ErrInvalidHighlight is returned when the highlight duration is negative.
	// Zero disables highlighting.
	ErrInvalidHighlight = errors.New("invalid highlight duration: must be non-negative")

	// ErrInvalidNameDistance is returned when the name distance is not positive.
	ErrInvalidNameDistance = errors.New("invalid max name distance: must be positive")

	// ErrInvalidPollInterval is returned when the poll interval is below 100ms.
	ErrInvalidPollInterval = errors.New("invalid poll interval: must be at least 100ms")

	// ErrInvalidRate is returned when the request rate is negative.
	ErrInvalidRate = errors.New("invalid request rate: must be non-negative")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	// A negative body size is invalid; use 0 to use the default limit.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrInvalidListen is returned when the control API address is malformed.
	ErrInvalidListen = errors.New("invalid listen address")

	// ErrInvalidSiteConfig is returned when a site section of the
	// configuration file is invalid.
	ErrInvalidSiteConfig = errors.New("invalid site configuration")
)
