package main

import (
	"github.com/spf13/cobra"

	"github.com/bull/pdf-qa-server/internal/app"
	mcpserver "github.com/bull/pdf-qa-server/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the ask_document tool over stdio",
	Long: `Indexes the document and runs an MCP server on stdin/stdout for local
clients. Logs go to stderr.`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	logger.Info().Msg("Starting MCP server (stdio mode)")
	server := mcpserver.NewServer(&mcpserver.Config{
		Service:  a.Service,
		Document: cfg.Document.Path,
	})
	return server.Run(ctx)
}
