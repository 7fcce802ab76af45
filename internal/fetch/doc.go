// Package fetch loads HTML pages from local files and HTTP(S) URLs.
//
// Bodies are decoded to UTF-8 using the charset declared in the
// Content-Type header or the document itself, capped at a maximum size
// and hashed so that a reload with unchanged content can be detected
// without re-parsing. Outgoing requests share one rate limiter.
package fetch
