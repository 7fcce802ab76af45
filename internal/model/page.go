package model

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Page is a loaded HTML source: a local file or a fetched URL.
// It carries the raw bytes so a reload can be compared with the previous
// load before the live document is touched.
type Page struct {
	// Target is the file path or URL the page was loaded from.
	Target string `json:"target"`

	// StatusCode is the HTTP status code, zero for local files.
	StatusCode int `json:"status_code,omitempty"`

	// ContentType is the MIME type of the source.
	// Local files are assumed to be text/html.
	ContentType string `json:"content_type"`

	// Title is the page title extracted from the <title> tag.
	Title string `json:"title,omitempty"`

	// Raw contains the raw body bytes, limited to MaxPageSize.
	Raw []byte `json:"-"`

	// Hash is the SHA-256 hash of Raw, used for change detection.
	Hash string `json:"hash"`
}

// MaxPageSize is the maximum size of raw page content to keep.
const MaxPageSize = 5 * 1024 * 1024 // 5 MB

// ComputeHash calculates and sets the SHA-256 hash of the page's raw content.
// This should be called after setting the Raw field.
func (p *Page) ComputeHash() {
	if len(p.Raw) == 0 {
		p.Hash = ""
		return
	}

	hash := sha256.Sum256(p.Raw)
	p.Hash = hex.EncodeToString(hash[:])
}

// IsHTML returns true if the content type indicates HTML.
// An empty content type is treated as HTML since local files carry none.
func (p *Page) IsHTML() bool {
	ct := strings.ToLower(strings.TrimSpace(p.ContentType))
	return ct == "" ||
		strings.HasPrefix(ct, "text/html") ||
		strings.HasPrefix(ct, "application/xhtml+xml")
}

// TruncateRaw ensures the raw content doesn't exceed MaxPageSize.
func (p *Page) TruncateRaw() {
	if len(p.Raw) > MaxPageSize {
		p.Raw = p.Raw[:MaxPageSize]
	}
}

// SameContent reports whether two loads of a page carry the same bytes.
func (p *Page) SameContent(other *Page) bool {
	if p == nil || other == nil {
		return false
	}
	return p.Hash != "" && p.Hash == other.Hash
}
