package report

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// SimpleWriter writes a human-readable listing for the terminal.
type SimpleWriter struct {
	baseWriter

	// showSources adds the section listing scanned pages.
	showSources bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithSources includes the scanned pages.
func WithSources(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showSources = show
	}
}

// NewSimpleWriter creates a SimpleWriter.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write implements Writer.
func (w *SimpleWriter) Write(listing *Listing) (int, error) {
	var sb strings.Builder

	if len(listing.Contacts) == 0 {
		sb.WriteString("No contacts found yet.\n")
	} else {
		tw := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tEMAIL\tPHONE")
		for _, c := range listing.Contacts {
			phone := c.Phone
			if phone == "" {
				phone = "-"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\n", truncateString(c.Name, 40), c.Email, phone)
		}
		tw.Flush() //nolint:errcheck // strings.Builder never fails

		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%d contact(s), %d named, %d with phone\n",
			len(listing.Contacts), listing.Named(), listing.WithPhone()))
	}

	if w.showSources && len(listing.Sources) > 0 {
		sb.WriteString("\n")
		sb.WriteString(strings.Repeat("-", 70))
		sb.WriteString("\nSCANNED PAGES\n")
		sb.WriteString(strings.Repeat("-", 70))
		sb.WriteString("\n")
		for _, s := range listing.Sources {
			title := s.Title
			if title == "" {
				title = "(untitled)"
			}
			sb.WriteString(fmt.Sprintf("  %s  %s  %s\n",
				s.LastLoaded.Format("2006-01-02 15:04:05"), s.Target, title))
		}
	}

	return io.WriteString(w.output, sb.String())
}
