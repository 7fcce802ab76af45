package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for contactscan.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "contactscan",
		Short: "Find contact information in HTML pages",
		Long: `contactscan scans the visible text of HTML pages for email addresses and
attributes a name and phone number to each one from the surrounding text.
Contacts are deduplicated by email and stored in a local database.

Use "scan" for a one-off pass over files or URLs, "watch" to keep scanning
a page as it changes, and "list" to review what has been found.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().Bool("show-pii", false, "Do not mask emails, names and phone numbers in logs")
	cmd.PersistentFlags().String("db-dir", "",
		"Directory holding the contact database (default: XDG data directory)")
	cmd.PersistentFlags().StringP("config", "c", "",
		"Configuration file path (default: .contactscan in current or home directory)")

	cmd.AddCommand(NewScanCmd())
	cmd.AddCommand(NewWatchCmd())
	cmd.AddCommand(NewListCmd())
	cmd.AddCommand(NewClearCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
