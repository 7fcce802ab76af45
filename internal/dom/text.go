package dom

import (
	"iter"
	"strings"
	"unicode"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/text/unicode/norm"
)

// excludedElements never contribute visible text.
var excludedElements = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Head:     true,
	atom.Title:    true,
	atom.Template: true,
}

// blockElements start and end a line in InnerText.
var blockElements = map[atom.Atom]bool{
	atom.Address: true, atom.Article: true, atom.Aside: true,
	atom.Blockquote: true, atom.Dd: true, atom.Div: true, atom.Dl: true,
	atom.Dt: true, atom.Fieldset: true, atom.Figcaption: true,
	atom.Figure: true, atom.Footer: true, atom.Form: true, atom.H1: true,
	atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Header: true, atom.Hr: true, atom.Li: true, atom.Main: true,
	atom.Nav: true, atom.Ol: true, atom.P: true, atom.Pre: true,
	atom.Section: true, atom.Table: true, atom.Tr: true, atom.Ul: true,
	atom.Caption: true, atom.Thead: true, atom.Tbody: true, atom.Tfoot: true,
}

// Segment is one visible text node and the element that owns it.
type Segment struct {
	// Text is the node's text, NFC-normalized.
	Text string

	// Owner is the text node's parent element.
	Owner *html.Node
}

// IsExcluded reports whether n is an element whose text is never visible.
func IsExcluded(n *html.Node) bool {
	return n != nil && n.Type == html.ElementNode && excludedElements[n.DataAtom]
}

// VisibleTextSegments yields every non-blank text node under root in
// document order, skipping anything inside script, style, noscript, head,
// title and template elements. The sequence is finite and can be ranged
// over again to restart the walk. Callers hold the document read lock.
func VisibleTextSegments(root *html.Node) iter.Seq[Segment] {
	return func(yield func(Segment) bool) {
		if root == nil {
			return
		}
		walkText(root, yield)
	}
}

// walkText returns false once yield asks to stop.
func walkText(n *html.Node, yield func(Segment) bool) bool {
	if IsExcluded(n) {
		return true
	}
	if n.Type == html.TextNode {
		if strings.TrimSpace(n.Data) == "" {
			return true
		}
		owner := n.Parent
		if owner == nil || owner.Type != html.ElementNode {
			return true
		}
		return yield(Segment{Text: norm.NFC.String(n.Data), Owner: owner})
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if !walkText(c, yield) {
			return false
		}
	}
	return true
}

// InnerText approximates the rendered text of n: whitespace runs collapse
// to one space, block elements and <br> break lines, table cells are
// separated by a space, and excluded elements contribute nothing.
// The result is NFC-normalized. Callers hold the document read lock.
func InnerText(n *html.Node) string {
	if n == nil {
		return ""
	}
	var b strings.Builder
	collectText(&b, n)
	return norm.NFC.String(normalizeLines(b.String()))
}

func collectText(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(collapseSpace(n.Data))
		return
	case html.ElementNode:
		if IsExcluded(n) {
			return
		}
		switch {
		case n.DataAtom == atom.Br:
			b.WriteByte('\n')
			return
		case blockElements[n.DataAtom]:
			b.WriteByte('\n')
		case n.DataAtom == atom.Td || n.DataAtom == atom.Th:
			b.WriteByte(' ')
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(b, c)
	}

	if n.Type == html.ElementNode && blockElements[n.DataAtom] {
		b.WriteByte('\n')
	}
}

// collapseSpace replaces every whitespace run with a single space.
func collapseSpace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	lastSpace := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
			continue
		}
		b.WriteRune(r)
		lastSpace = false
	}
	return b.String()
}

// normalizeLines trims each line, collapses spaces across node boundaries
// and drops blank lines.
func normalizeLines(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(collapseSpace(line))
		if line == "" {
			continue
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

// Closest returns the nearest element, starting with n itself, for which
// match returns true.
func Closest(n *html.Node, match func(*html.Node) bool) *html.Node {
	for cur := n; cur != nil; cur = cur.Parent {
		if cur.Type == html.ElementNode && match(cur) {
			return cur
		}
	}
	return nil
}

// Attr returns the value of the attribute key, or "".
func Attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// ClassList returns the element's class names.
func ClassList(n *html.Node) []string {
	return strings.Fields(Attr(n, "class"))
}

// HasClass reports whether the element carries the class name.
func HasClass(n *html.Node, class string) bool {
	for _, c := range ClassList(n) {
		if c == class {
			return true
		}
	}
	return false
}
