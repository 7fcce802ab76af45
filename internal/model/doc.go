// Package model defines the core data structures used throughout contactscan.
//
// This package contains the following main types:
//   - Contact: a validated email address with its inferred name and phone
//   - Page: a loaded HTML source (file or URL) with its raw bytes and hash
//
// Models live in their own package because the scanner, the store, the
// reports and the control API all exchange them. They are serializable to
// JSON for the key-value store and for API output.
package model
