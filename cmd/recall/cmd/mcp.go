package cmd

import (
	"fmt"

	mcpserver "github.com/recallhq/recall/internal/mcp"
	"github.com/recallhq/recall/internal/query"
	"github.com/recallhq/recall/internal/store"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run MCP server for AI assistant integration",
	Long: `Start an MCP (Model Context Protocol) server over stdio.

This allows Claude Desktop (or any MCP client) to query the message
archive using the get_chat_history and search_messages tools.

Add to Claude Desktop config:
  {
    "mcpServers": {
      "recall": {
        "command": "recall",
        "args": ["mcp"]
      }
    }
  }`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := store.Open(cfg.DatabasePath())
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer s.Close()

		if err := s.InitSchema(); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}

		return mcpserver.Serve(cmd.Context(), query.NewService(s))
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
