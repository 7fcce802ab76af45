package dom

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// AddClass adds class to the element. Attribute changes are not reported to
// observers. It reports whether the class was newly added.
func (d *Document) AddClass(n *html.Node, class string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if n == nil || n.Type != html.ElementNode || HasClass(n, class) {
		return false
	}
	classes := append(ClassList(n), class)
	setAttr(n, "class", strings.Join(classes, " "))
	return true
}

// RemoveClass removes class from the element, dropping the attribute when it
// becomes empty. It reports whether the class was present.
func (d *Document) RemoveClass(n *html.Node, class string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return removeClass(n, class)
}

// RemoveClassEverywhere strips class from every element in the document and
// returns how many elements carried it.
func (d *Document) RemoveClassEverywhere(class string) int {
	d.mu.Lock()
	defer d.mu.Unlock()

	count := 0
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if removeClass(n, class) {
			count++
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(d.root)
	return count
}

// CountClass returns the number of elements carrying class.
func (d *Document) CountClass(class string) int {
	d.mu.RLock()
	defer d.mu.RUnlock()

	count := 0
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && HasClass(n, class) {
			count++
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(d.root)
	return count
}

func removeClass(n *html.Node, class string) bool {
	if n == nil || n.Type != html.ElementNode {
		return false
	}
	classes := ClassList(n)
	kept := classes[:0]
	found := false
	for _, c := range classes {
		if c == class {
			found = true
			continue
		}
		kept = append(kept, c)
	}
	if !found {
		return false
	}
	if len(kept) == 0 {
		deleteAttr(n, "class")
	} else {
		setAttr(n, "class", strings.Join(kept, " "))
	}
	return true
}

func setAttr(n *html.Node, key, val string) {
	for i := range n.Attr {
		if n.Attr[i].Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func deleteAttr(n *html.Node, key string) {
	for i := range n.Attr {
		if n.Attr[i].Key == key {
			n.Attr = append(n.Attr[:i], n.Attr[i+1:]...)
			return
		}
	}
}

// InjectStyle appends a <style id=id> element holding css to <head>.
// It is a no-op returning false when an element with that id exists.
// The head is outside the observed subtree, so no records are emitted.
func (d *Document) InjectStyle(id, css string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.head == nil || findByID(d.root, id) != nil {
		return false
	}
	style := &html.Node{
		Type:     html.ElementNode,
		Data:     "style",
		DataAtom: atom.Style,
		Attr:     []html.Attribute{{Key: "id", Val: id}},
	}
	style.AppendChild(&html.Node{Type: html.TextNode, Data: css})
	d.head.AppendChild(style)
	return true
}

// RemoveStyle removes the element with the given id if it is a <style>
// element in <head>. It reports whether one was removed.
func (d *Document) RemoveStyle(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	n := findByID(d.root, id)
	if n == nil || n.DataAtom != atom.Style || n.Parent == nil || n.Parent != d.head {
		return false
	}
	n.Parent.RemoveChild(n)
	return true
}
