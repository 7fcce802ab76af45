package main

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/nao1215/contactscan/internal/config"
	"github.com/spf13/cobra"
)

//go:embed templates/contactscan.yaml
var configTemplate embed.FS

// configFileName is the default configuration file name.
const configFileName = config.DefaultConfigFile

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a contactscan configuration file",
		Long: `Init writes a commented .contactscan configuration file to the current
directory.

The generated file includes:
- Defaults applied to every page
- Commented examples of per-site cookies, headers and name settings

Examples:
  # Create .contactscan in the current directory
  contactscan init

  # Create the file at a specific path
  contactscan init -o myconfig.yaml

  # Overwrite an existing file
  contactscan init -f`,
		RunE: runInitCmd,
	}

	cmd.Flags().StringP("output", "o", configFileName,
		"Output file path for the configuration")
	cmd.Flags().BoolP("force", "f", false,
		"Overwrite existing configuration file")

	return cmd
}

// runInitCmd executes the init command.
func runInitCmd(cmd *cobra.Command, _ []string) error {
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}

	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}

	if err := writeTemplate(outputPath, force); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created configuration file: %s\n", outputPath)
	fmt.Fprintln(out, "\nEdit this file to configure per-site settings such as:")
	fmt.Fprintln(out, "  - Cookies and headers sent when loading pages")
	fmt.Fprintln(out, "  - How far from an email a name may be")
	fmt.Fprintln(out, "  - Which CSS classes mark a contact card")

	return nil
}

// writeTemplate writes the embedded template to path. Without force an
// existing file is left alone.
func writeTemplate(path string, force bool) error {
	content, err := configTemplate.ReadFile("templates/contactscan.yaml")
	if err != nil {
		return fmt.Errorf("failed to read config template: %w", err)
	}

	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if !force {
		flags = os.O_CREATE | os.O_WRONLY | os.O_EXCL
	}
	f, err := os.OpenFile(path, flags, 0600) //nolint:gosec // user-chosen output path
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("configuration file already exists: %s (use -f to overwrite)", path)
		}
		return fmt.Errorf("failed to create configuration file: %w", err)
	}
	if _, err := f.Write(content); err != nil {
		f.Close()
		return fmt.Errorf("failed to write configuration file: %w", err)
	}
	return f.Close()
}
