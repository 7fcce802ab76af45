// Package scanner runs one contact extraction pass over a live document.
//
// A pass reads the known contacts from the store, walks every visible text
// node of the document body, and turns each email it has not seen before
// into a contact using the heuristics of the extract package. New contacts
// are appended to the stored collection in a single write, and the
// elements they were found in are highlighted for a short while.
//
// Store failures abort the pass and are returned wrapped in ErrStore; a
// failure while handling a single email is logged and that email skipped.
package scanner
