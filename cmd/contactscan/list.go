package main

import (
	"context"
	"fmt"

	"github.com/nao1215/contactscan/internal/config"
	"github.com/nao1215/contactscan/internal/report"
	"github.com/nao1215/contactscan/internal/store"
	"github.com/spf13/cobra"
)

// NewListCmd creates the list command.
func NewListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the stored contacts",
		Long: `List prints every stored contact in the order it was found.

Examples:
  # Print a table
  contactscan list

  # Copy every address, comma separated, into a mail client
  contactscan list --emails

  # Write a Markdown summary
  contactscan list --markdown -o contacts.md`,
		Args: cobra.NoArgs,
		RunE: runListCmd,
	}

	addReportFlags(cmd)
	cmd.Flags().BoolP("emails", "e", false,
		"Print only the email addresses, separated by commas")
	cmd.Flags().BoolP("sources", "s", false,
		"Include the pages that have been scanned")

	return cmd
}

// runListCmd executes the list command.
func runListCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := newConfig(cmd, nil)
	if err != nil {
		return err
	}
	format, err := formatFromFlags(cmd, cfg)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	emails, err := cmd.Flags().GetBool("emails")
	if err != nil {
		return err
	}
	if emails {
		if format != formatSimple {
			return fmt.Errorf("configuration error: %w: --emails cannot be combined with --json or --markdown",
				config.ErrConflictingReportFormats)
		}
		format = formatEmails
	}
	showSources, err := cmd.Flags().GetBool("sources")
	if err != nil {
		return err
	}

	logger := setupLogger(cfg)
	db, err := openDB(cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := context.Background()
	contacts, err := store.NewContacts(db).Load(ctx)
	if err != nil {
		return err
	}

	pages, err := db.ListPages(ctx)
	if err != nil {
		return err
	}
	sources := make([]report.Source, 0, len(pages))
	for _, p := range pages {
		sources = append(sources, report.Source{
			Target:     p.Target,
			Title:      p.Title,
			LastLoaded: p.Timestamp,
		})
	}

	return writeListing(cfg, cmd.OutOrStdout(), format, report.NewListing(contacts, sources...), showSources)
}
