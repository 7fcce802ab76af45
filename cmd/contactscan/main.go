// Package main provides the entry point for the contactscan CLI.
//
// contactscan reads HTML pages, finds contact information (emails, names
// and phone numbers) in their visible text, and keeps a deduplicated list
// of the contacts it has found.
//
// Usage:
//
//	contactscan scan <file|url>...
//	contactscan watch <file|url>
//	contactscan list
//
// See --help for all available options.
package main

func main() {
	Execute()
}
