package report

import (
	"encoding/json"
	"io"
)

// JSONWriter writes listings as JSON. By default only the contact array is
// written, in the same shape as the stored collection.
type JSONWriter struct {
	baseWriter

	indent bool
	full   bool
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithPrettyPrint indents the output by two spaces.
func WithPrettyPrint() JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
	}
}

// WithMetadata writes the whole Listing instead of the contact array.
func WithMetadata() JSONWriterOption {
	return func(w *JSONWriter) {
		w.full = true
	}
}

// NewJSONWriter creates a JSONWriter.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write implements Writer.
func (w *JSONWriter) Write(listing *Listing) (int, error) {
	var v any = listing.Contacts
	if w.full {
		v = listing
	}

	var data []byte
	var err error
	if w.indent {
		data, err = json.MarshalIndent(v, "", "  ")
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return 0, err
	}
	data = append(data, '\n')
	return w.output.Write(data)
}
