package dom

import (
	"errors"
	"io"
	"strings"
	"sync"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ErrNoBody is returned when a parsed document has no <body> element.
var ErrNoBody = errors.New("document has no body element")

// Document is a live HTML document shared between the scanner, the
// controller and whatever source keeps it up to date.
type Document struct {
	// mu guards the node tree.
	mu sync.RWMutex

	// dispatchMu serializes mutation and observer notification so that
	// observers see batches in the order they were applied.
	dispatchMu sync.Mutex

	root *html.Node
	head *html.Node
	body *html.Node

	// obsMu guards observers.
	obsMu     sync.Mutex
	observers []*Observer
}

// Parse parses an HTML document. The parser always synthesizes <head> and
// <body>, so malformed input still yields a usable document.
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, err
	}
	return newDocument(root)
}

// ParseString is Parse for an in-memory string.
func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

func newDocument(root *html.Node) (*Document, error) {
	d := &Document{root: root}
	d.head = findElement(root, atom.Head)
	d.body = findElement(root, atom.Body)
	if d.body == nil {
		return nil, ErrNoBody
	}
	return d, nil
}

// findElement returns the first element with the given atom in document order.
func findElement(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, a); found != nil {
			return found
		}
	}
	return nil
}

// Read runs fn with the body element while holding the read lock.
// fn must not call mutating Document methods.
func (d *Document) Read(fn func(body *html.Node)) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	fn(d.body)
}

// Body returns the body element. Callers that walk the tree while other
// goroutines may mutate it should use Read instead.
func (d *Document) Body() *html.Node {
	return d.body
}

// Head returns the head element, which may be nil for exotic inputs.
func (d *Document) Head() *html.Node {
	return d.head
}

// Title returns the trimmed text of the first <title> element.
func (d *Document) Title() string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	t := findElement(d.root, atom.Title)
	if t == nil || t.FirstChild == nil || t.FirstChild.Type != html.TextNode {
		return ""
	}
	return strings.TrimSpace(t.FirstChild.Data)
}

// Render writes the current document as HTML.
func (d *Document) Render(w io.Writer) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return html.Render(w, d.root)
}

// String renders the document, returning an empty string on error.
func (d *Document) String() string {
	var b strings.Builder
	if err := d.Render(&b); err != nil {
		return ""
	}
	return b.String()
}

// FindByID returns the element with the given id attribute, or nil.
func (d *Document) FindByID(id string) *html.Node {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return findByID(d.root, id)
}

func findByID(n *html.Node, id string) *html.Node {
	if n.Type == html.ElementNode && Attr(n, "id") == id {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findByID(c, id); found != nil {
			return found
		}
	}
	return nil
}

// inBody reports whether n is the body element or one of its descendants.
// Callers hold mu.
func (d *Document) inBody(n *html.Node) bool {
	for cur := n; cur != nil; cur = cur.Parent {
		if cur == d.body {
			return true
		}
	}
	return false
}
