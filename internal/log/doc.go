// Package log provides secure logging built on top of the standard slog
// package.
//
// The SecureHandler masks two kinds of data before records reach the
// underlying handler:
//   - Secrets: cookies, authorization headers, tokens and key-shaped values
//     taken from request headers in site configuration. These are always
//     masked.
//   - Contact data: attributes keyed email, phone, name or contact, and any
//     email- or phone-shaped text inside other values. These are masked
//     unless the logger was built with WithShowPII(true), which the
//     --show-pii flag enables.
//
// # Usage
//
//	logger := log.NewSecureLogger(os.Stderr, verbose, log.WithShowPII(showPII))
//	logger.Debug("contact accepted", "email", c.Email) // email=***REDACTED***
//	slog.SetDefault(logger)
package log
