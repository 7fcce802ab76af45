package model

import (
	"testing"
)

// TestPageComputeHash tests the ComputeHash method.
func TestPageComputeHash(t *testing.T) {
	t.Parallel()

	t.Run("computes SHA256 hash of raw content", func(t *testing.T) {
		t.Parallel()

		page := &Page{
			Raw: []byte("Hello, World!"),
		}
		page.ComputeHash()

		// Expected SHA256 of "Hello, World!"
		expected := "dffd6021bb2bd5b0af676290809ec3a53191dd81c7f70a4b28688a362182986f"
		if page.Hash != expected {
			t.Errorf("got %q, expected %q", page.Hash, expected)
		}
	})

	t.Run("empty content produces empty hash", func(t *testing.T) {
		t.Parallel()

		page := &Page{Raw: []byte{}}
		page.ComputeHash()

		if page.Hash != "" {
			t.Errorf("expected empty hash, got %q", page.Hash)
		}
	})
}

// TestPageIsHTML tests content type detection.
func TestPageIsHTML(t *testing.T) {
	t.Parallel()

	tests := []struct {
		contentType string
		want        bool
	}{
		{"", true},
		{"text/html", true},
		{"text/html; charset=utf-8", true},
		{"application/xhtml+xml", true},
		{"application/json", false},
		{"image/png", false},
	}

	for _, tt := range tests {
		t.Run(tt.contentType, func(t *testing.T) {
			t.Parallel()

			p := &Page{ContentType: tt.contentType}
			if got := p.IsHTML(); got != tt.want {
				t.Errorf("IsHTML() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestPageSameContent tests change detection between loads.
func TestPageSameContent(t *testing.T) {
	t.Parallel()

	a := &Page{Raw: []byte("<p>a</p>")}
	b := &Page{Raw: []byte("<p>a</p>")}
	c := &Page{Raw: []byte("<p>c</p>")}
	a.ComputeHash()
	b.ComputeHash()
	c.ComputeHash()

	if !a.SameContent(b) {
		t.Error("expected identical loads to match")
	}
	if a.SameContent(c) {
		t.Error("expected different loads not to match")
	}
	if a.SameContent(nil) {
		t.Error("expected nil page not to match")
	}

	big := &Page{Raw: make([]byte, MaxPageSize+10)}
	big.TruncateRaw()
	if len(big.Raw) != MaxPageSize {
		t.Errorf("expected raw truncated to %d, got %d", MaxPageSize, len(big.Raw))
	}
}
