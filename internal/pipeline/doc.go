// Package pipeline runs one-shot scans of many targets.
//
// Each target is a Job that goes through two pipelines of steps. The load
// pipeline (fetch the page, parse it, record it) runs for all targets
// concurrently with a bounded number of goroutines. The scan pipeline
// (extract contacts and persist them) then runs for each loaded target in
// input order, one at a time, because every pass rewrites the whole contact
// collection.
package pipeline
