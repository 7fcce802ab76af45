package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nao1215/contactscan/internal/dom"
	"github.com/nao1215/contactscan/internal/model"
	"golang.org/x/net/html/charset"
	"golang.org/x/time/rate"
)

var (
	// ErrUnsupportedScheme is returned for targets that are neither files
	// nor http(s) URLs.
	ErrUnsupportedScheme = errors.New("unsupported target scheme")

	// ErrHTTPStatus is returned when a URL responds with a non-2xx status.
	ErrHTTPStatus = errors.New("unexpected HTTP status")

	// ErrNotHTML is returned when a URL responds with a non-HTML content type.
	ErrNotHTML = errors.New("target is not an HTML document")
)

// HeaderFunc returns extra request headers for a target.
type HeaderFunc func(target string) http.Header

// Loader loads pages from files and URLs.
// A Loader is safe for concurrent use.
type Loader struct {
	// client performs HTTP requests.
	client *http.Client

	// userAgent is the User-Agent header to use.
	userAgent string

	// maxBodySize limits the size of bodies to read.
	maxBodySize int64

	// limiter spaces out HTTP requests; nil means unlimited.
	limiter *rate.Limiter

	// headers supplies per-target headers; may be nil.
	headers HeaderFunc
}

// Option configures a Loader.
type Option func(*Loader)

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(l *Loader) {
		if c != nil {
			l.client = c
		}
	}
}

// WithUserAgent sets a custom User-Agent header.
func WithUserAgent(ua string) Option {
	return func(l *Loader) {
		if ua != "" {
			l.userAgent = ua
		}
	}
}

// WithMaxBodySize sets the maximum body size. Non-positive values keep
// the default.
func WithMaxBodySize(size int64) Option {
	return func(l *Loader) {
		if size > 0 {
			l.maxBodySize = size
		}
	}
}

// WithRateLimit limits HTTP requests to rps per second with a burst of one.
// Zero or negative disables the limit.
func WithRateLimit(rps float64) Option {
	return func(l *Loader) {
		if rps <= 0 {
			l.limiter = nil
			return
		}
		l.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// WithHeaders sets the per-target header source.
func WithHeaders(fn HeaderFunc) Option {
	return func(l *Loader) {
		l.headers = fn
	}
}

// NewLoader creates a Loader with a 30 second HTTP timeout and a 5MB body cap.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{
		client:      &http.Client{Timeout: 30 * time.Second},
		userAgent:   "contactscan/1.0",
		maxBodySize: model.MaxPageSize,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// IsURL reports whether target is an http or https URL.
func IsURL(target string) bool {
	u, err := url.Parse(target)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// FilePath returns the local path of a file target, or "" for URLs and
// unsupported schemes.
func FilePath(target string) string {
	u, err := url.Parse(target)
	if err != nil {
		return target
	}
	switch u.Scheme {
	case "":
		return target
	case "file":
		return filepath.FromSlash(u.Path)
	default:
		// Windows drive letters parse as a one-letter scheme.
		if len(u.Scheme) == 1 {
			return target
		}
		return ""
	}
}

// Load reads target and returns the page with its body decoded to UTF-8.
func (l *Loader) Load(ctx context.Context, target string) (*model.Page, error) {
	if IsURL(target) {
		return l.loadURL(ctx, target)
	}
	if path := FilePath(target); path != "" {
		return l.loadFile(ctx, target, path)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedScheme, target)
}

// LoadDocument loads target and parses it into a live document.
// The page title is filled in from the parsed document.
func (l *Loader) LoadDocument(ctx context.Context, target string) (*model.Page, *dom.Document, error) {
	page, err := l.Load(ctx, target)
	if err != nil {
		return nil, nil, err
	}
	doc, err := dom.Parse(bytes.NewReader(page.Raw))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse %s: %w", target, err)
	}
	page.Title = doc.Title()
	return page, doc, nil
}

func (l *Loader) loadFile(ctx context.Context, target, path string) (*model.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(path) //nolint:gosec // Reading user-specified targets is the point
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	body, err := l.readBody(f, "text/html")
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	page := &model.Page{
		Target:      target,
		ContentType: "text/html",
		Raw:         body,
	}
	page.TruncateRaw()
	page.ComputeHash()
	return page, nil
}

func (l *Loader) loadURL(ctx context.Context, target string) (*model.Page, error) {
	if l.limiter != nil {
		if err := l.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}

	req.Header.Set("User-Agent", l.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")
	if l.headers != nil {
		for k, vs := range l.headers(target) {
			for _, v := range vs {
				req.Header.Add(k, v)
			}
		}
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: %s returned %d", ErrHTTPStatus, target, resp.StatusCode)
	}

	page := &model.Page{
		Target:      target,
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
	}
	if !page.IsHTML() {
		return nil, fmt.Errorf("%w: %s is %s", ErrNotHTML, target, page.ContentType)
	}

	body, err := l.readBody(resp.Body, page.ContentType)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", target, err)
	}
	page.Raw = body
	page.TruncateRaw()
	page.ComputeHash()
	return page, nil
}

// readBody reads at most maxBodySize bytes and converts them to UTF-8.
func (l *Loader) readBody(r io.Reader, contentType string) ([]byte, error) {
	limited := io.LimitReader(r, l.maxBodySize)
	utf8Reader, err := charset.NewReader(limited, contentType)
	if err != nil {
		// Empty bodies fail the charset preview read.
		return io.ReadAll(limited)
	}
	return io.ReadAll(utf8Reader)
}

// HeadersFromMap adapts a static header map, plus an optional cookie, to
// an http.Header.
func HeadersFromMap(m map[string]string, cookie string) http.Header {
	h := make(http.Header, len(m)+1)
	for k, v := range m {
		h.Set(k, v)
	}
	if strings.TrimSpace(cookie) != "" {
		h.Set("Cookie", cookie)
	}
	return h
}
