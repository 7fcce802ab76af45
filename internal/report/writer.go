// Package report renders the stored contacts for review.
//
// Writers:
//   - SimpleWriter: aligned text for the terminal
//   - JSONWriter: the contact array, or the full listing with metadata
//   - MarkdownWriter: a shareable Markdown document
//   - EmailsWriter: a comma-separated address list for pasting into a mail client
package report

import (
	"io"
	"strings"
	"time"

	"github.com/nao1215/contactscan/internal/model"
)

// Source is a page contacts were collected from.
type Source struct {
	Target     string    `json:"target"`
	Title      string    `json:"title,omitempty"`
	LastLoaded time.Time `json:"last_loaded"`
}

// Listing is everything a review shows.
type Listing struct {
	GeneratedAt time.Time       `json:"generated_at"`
	Contacts    []model.Contact `json:"contacts"`
	Sources     []Source        `json:"sources,omitempty"`
}

// NewListing creates a Listing of contacts stamped with the current time.
func NewListing(contacts []model.Contact, sources ...Source) *Listing {
	if contacts == nil {
		contacts = []model.Contact{}
	}
	return &Listing{
		GeneratedAt: time.Now(),
		Contacts:    contacts,
		Sources:     sources,
	}
}

// Named returns the number of contacts with an inferred name.
func (l *Listing) Named() int {
	n := 0
	for _, c := range l.Contacts {
		if c.Name != model.UnknownName {
			n++
		}
	}
	return n
}

// WithPhone returns the number of contacts with a phone number.
func (l *Listing) WithPhone() int {
	n := 0
	for _, c := range l.Contacts {
		if c.HasPhone() {
			n++
		}
	}
	return n
}

// Writer renders a Listing.
type Writer interface {
	// Write renders the listing and returns the number of bytes written.
	Write(listing *Listing) (int, error)
}

// MultiWriter writes to several Writers in order, stopping at the first error.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a MultiWriter.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write implements Writer.
func (m *MultiWriter) Write(listing *Listing) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(listing)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

type baseWriter struct {
	output io.Writer
}

func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// EmailsWriter writes every address on one line, separated by ", ".
type EmailsWriter struct {
	baseWriter
}

// NewEmailsWriter creates an EmailsWriter.
func NewEmailsWriter(output io.Writer) *EmailsWriter {
	return &EmailsWriter{baseWriter: newBaseWriter(output)}
}

// Write implements Writer. An empty listing writes nothing.
func (w *EmailsWriter) Write(listing *Listing) (int, error) {
	if len(listing.Contacts) == 0 {
		return 0, nil
	}
	return io.WriteString(w.output, strings.Join(model.Emails(listing.Contacts), ", ")+"\n")
}

// truncateString shortens s to maxLen runes with an ellipsis.
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
