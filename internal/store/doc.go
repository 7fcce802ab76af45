// Package store defines the persistent key-value contract and the typed
// views the scanner and the command layer use on top of it.
//
// Two keys are used:
//
//   - "customers" holds the JSON array of every accepted contact, in
//     discovery order.
//   - "isScanning_<target>" holds a JSON boolean remembering whether
//     scanning was last switched on for a target.
//
// Any KV implementation works; the database package provides a SQLite one
// and this package provides an in-memory one for tests and one-off runs.
package store
