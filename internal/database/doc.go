// Package database provides SQLite-based storage for contactscan.
//
// ContactDB stores:
//   - The key-value pairs behind the store.KV contract (the contact
//     collection and per-target scanning flags)
//   - One record per loaded page with its hash and title, used to skip
//     reloads whose content did not change
//
// Design decision: We use SQLite (via modernc.org/sqlite) because:
// 1. No external dependencies - the database is a single file
// 2. CGO-free implementation allows easy cross-compilation
// 3. WAL mode lets `contactscan list` read while `watch` writes
package database
