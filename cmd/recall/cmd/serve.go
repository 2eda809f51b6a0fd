package cmd

import (
	"github.com/spf13/cobra"

	"github.com/recallkb/recall/internal/mcp"
)

func newServeCmd(root *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the knowledge base over MCP stdio",
		Long: `Serve exposes the knowledge base to MCP clients over stdio, with
tools for searching, indexing, status, and promoting entries.

Intended to be launched by an MCP client, not interactively.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(*root)
			if err != nil {
				return err
			}
			defer app.Close()

			engine, err := app.newEngine()
			if err != nil {
				return err
			}
			orch, err := app.newOrchestrator()
			if err != nil {
				return err
			}

			server, err := mcp.NewServer(engine, orch, app.entries, app.meta, mcp.Options{
				LockPath:        app.lockPath(),
				DefaultLimit:    app.cfg.Search.DefaultLimit,
				DefaultMinScore: app.cfg.Search.MinScore,
			}, app.logger)
			if err != nil {
				return err
			}
			return server.Run(cmd.Context())
		},
	}
	return cmd
}
