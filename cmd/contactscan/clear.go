package main

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/nao1215/contactscan/internal/store"
	"github.com/spf13/cobra"
)

// NewClearCmd creates the clear command.
func NewClearCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every stored contact",
		Long: `Clear empties the stored contact list.

With --remote, the request is sent to a running "watch" session instead,
which also stops scanning there so the list stays empty.

Examples:
  # Clear the local list
  contactscan clear

  # Clear through a watch session's control API
  contactscan clear --remote 127.0.0.1:8765`,
		Args: cobra.NoArgs,
		RunE: runClearCmd,
	}

	cmd.Flags().StringP("remote", "r", "",
		"Address of a watch session's control API")

	return cmd
}

// runClearCmd executes the clear command.
func runClearCmd(cmd *cobra.Command, _ []string) error {
	remote, err := cmd.Flags().GetString("remote")
	if err != nil {
		return err
	}
	ctx := context.Background()

	if remote != "" {
		if err := clearRemote(ctx, remote); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Contacts cleared.")
		return nil
	}

	cfg, err := newConfig(cmd, nil)
	if err != nil {
		return err
	}
	logger := setupLogger(cfg)
	db, err := openDB(cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := store.NewContacts(db).Clear(ctx); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Contacts cleared.")
	return nil
}

// clearRemote sends DELETE /contacts to the control API at addr.
func clearRemote(ctx context.Context, addr string) error {
	base := addr
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, strings.TrimSuffix(base, "/")+"/contacts", nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach %s: %w", addr, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("clear failed: %s", resp.Status)
	}
	return nil
}
