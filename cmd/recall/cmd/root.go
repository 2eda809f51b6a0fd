// Package cmd provides the CLI commands for recall.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/recallkb/recall/pkg/version"
)

// NewRootCmd creates the root command for the recall CLI.
func NewRootCmd() *cobra.Command {
	var root string

	cmd := &cobra.Command{
		Use:   "recall",
		Short: "Local knowledge base with hybrid search",
		Long: `Recall indexes a project's markdown knowledge tree into a local
vector and keyword index and answers queries with hybrid search.

Everything runs locally: no services, no API keys. Project state lives
under .recall/ next to your knowledge files.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetVersionTemplate("recall version {{.Version}}\n")
	cmd.PersistentFlags().StringVar(&root, "root", ".", "project root directory")

	cmd.AddCommand(newIndexCmd(&root))
	cmd.AddCommand(newSearchCmd(&root))
	cmd.AddCommand(newDiscoverCmd(&root))
	cmd.AddCommand(newWatchCmd(&root))
	cmd.AddCommand(newServeCmd(&root))
	cmd.AddCommand(newStatusCmd(&root))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the CLI.
func Execute() error {
	cmd := NewRootCmd()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return err
	}
	return nil
}
