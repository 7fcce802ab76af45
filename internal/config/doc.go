// Package config provides configuration structures and utilities for
// contactscan. It defines the scan timing options (debounce and highlight
// durations), heuristic bounds, request politeness settings, report
// preferences and the per-site overrides read from the .contactscan file.
package config
