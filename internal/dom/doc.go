// Package dom holds a live, mutable HTML document and the read helpers the
// contact scanner needs.
//
// A Document wraps a golang.org/x/net/html node tree behind an RWMutex.
// Reads (text traversal, container lookup, inner text) run inside
// Document.Read; writes go through Document methods so that structural
// changes inside <body> are reported to observers as mutation records.
//
// Only child-list changes are observed. Class toggles used for highlighting
// and the style element injected into <head> do not produce records, so a
// scan pass never retriggers itself.
//
// # Usage
//
//	doc, err := dom.ParseString(page)
//	obs := doc.Observe(func(records []dom.MutationRecord) { ... })
//	defer obs.Disconnect()
//	doc.Read(func(body *html.Node) {
//	    for seg := range dom.VisibleTextSegments(body) {
//	        ...
//	    }
//	})
package dom
