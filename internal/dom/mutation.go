package dom

import (
	"errors"
	"strings"

	"golang.org/x/net/html"
)

// ErrNotInDocument is returned when a mutation targets a node that is not
// attached to the document.
var ErrNotInDocument = errors.New("node is not part of the document")

// MutationRecord describes one child-list change.
type MutationRecord struct {
	// Target is the parent whose children changed.
	Target *html.Node

	// Added are the nodes inserted under Target.
	Added []*html.Node

	// Removed are the nodes detached from Target.
	Removed []*html.Node
}

// HasNodeChanges reports whether the record added or removed at least one node.
func (r MutationRecord) HasNodeChanges() bool {
	return len(r.Added) > 0 || len(r.Removed) > 0
}

// AnyNodeChanges reports whether any record in the batch added or removed nodes.
func AnyNodeChanges(records []MutationRecord) bool {
	for _, r := range records {
		if r.HasNodeChanges() {
			return true
		}
	}
	return false
}

// Observer receives mutation batches for the body subtree until disconnected.
type Observer struct {
	doc      *Document
	callback func([]MutationRecord)
}

// Observe registers fn to receive every batch of child-list mutations in the
// body subtree. fn runs on the goroutine that applied the mutation, after
// the document lock has been released.
func (d *Document) Observe(fn func([]MutationRecord)) *Observer {
	o := &Observer{doc: d, callback: fn}

	d.obsMu.Lock()
	d.observers = append(d.observers, o)
	d.obsMu.Unlock()

	return o
}

// Disconnect stops delivery to the observer. It is safe to call twice.
func (o *Observer) Disconnect() {
	d := o.doc
	d.obsMu.Lock()
	defer d.obsMu.Unlock()

	for i, cur := range d.observers {
		if cur == o {
			d.observers = append(d.observers[:i], d.observers[i+1:]...)
			return
		}
	}
}

// ObserverCount returns the number of connected observers.
func (d *Document) ObserverCount() int {
	d.obsMu.Lock()
	defer d.obsMu.Unlock()
	return len(d.observers)
}

// mutate applies fn under the write lock and notifies observers with the
// records it returns.
func (d *Document) mutate(fn func() ([]MutationRecord, error)) error {
	d.dispatchMu.Lock()
	defer d.dispatchMu.Unlock()

	d.mu.Lock()
	records, err := fn()
	d.mu.Unlock()
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}

	d.obsMu.Lock()
	observers := make([]*Observer, len(d.observers))
	copy(observers, d.observers)
	d.obsMu.Unlock()

	for _, o := range observers {
		o.callback(records)
	}
	return nil
}

// AppendChild appends child to parent. Records are emitted when parent is
// inside the body subtree.
func (d *Document) AppendChild(parent, child *html.Node) error {
	return d.mutate(func() ([]MutationRecord, error) {
		if !d.attached(parent) {
			return nil, ErrNotInDocument
		}
		if child.Parent != nil {
			child.Parent.RemoveChild(child)
		}
		parent.AppendChild(child)
		if !d.inBody(parent) {
			return nil, nil
		}
		return []MutationRecord{{Target: parent, Added: []*html.Node{child}}}, nil
	})
}

// RemoveNode detaches n from its parent.
func (d *Document) RemoveNode(n *html.Node) error {
	return d.mutate(func() ([]MutationRecord, error) {
		parent := n.Parent
		if parent == nil || !d.attached(parent) {
			return nil, ErrNotInDocument
		}
		observed := d.inBody(parent)
		parent.RemoveChild(n)
		if !observed {
			return nil, nil
		}
		return []MutationRecord{{Target: parent, Removed: []*html.Node{n}}}, nil
	})
}

// AppendHTML parses fragment in the context of parent and appends the
// resulting nodes as one mutation batch.
func (d *Document) AppendHTML(parent *html.Node, fragment string) error {
	return d.mutate(func() ([]MutationRecord, error) {
		if !d.attached(parent) {
			return nil, ErrNotInDocument
		}
		nodes, err := html.ParseFragment(strings.NewReader(fragment), parent)
		if err != nil {
			return nil, err
		}
		for _, n := range nodes {
			parent.AppendChild(n)
		}
		if !d.inBody(parent) || len(nodes) == 0 {
			return nil, nil
		}
		return []MutationRecord{{Target: parent, Added: nodes}}, nil
	})
}

// ReplaceBody swaps the children of the body element for the children of
// src's body, as a reload of the page would. The previous children are
// reported as removed and the new ones as added in a single record.
// src must not be used afterwards.
func (d *Document) ReplaceBody(src *Document) error {
	if src == nil || src.body == nil {
		return ErrNoBody
	}
	return d.mutate(func() ([]MutationRecord, error) {
		var removed, added []*html.Node
		for c := d.body.FirstChild; c != nil; {
			next := c.NextSibling
			d.body.RemoveChild(c)
			removed = append(removed, c)
			c = next
		}

		src.mu.Lock()
		for c := src.body.FirstChild; c != nil; {
			next := c.NextSibling
			src.body.RemoveChild(c)
			d.body.AppendChild(c)
			added = append(added, c)
			c = next
		}
		src.mu.Unlock()

		rec := MutationRecord{Target: d.body, Added: added, Removed: removed}
		if !rec.HasNodeChanges() {
			return nil, nil
		}
		return []MutationRecord{rec}, nil
	})
}

// attached reports whether n belongs to this document's tree. Callers hold mu.
func (d *Document) attached(n *html.Node) bool {
	for cur := n; cur != nil; cur = cur.Parent {
		if cur == d.root {
			return true
		}
	}
	return false
}
