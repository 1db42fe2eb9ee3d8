package main

import (
	"github.com/spf13/cobra"

	"github.com/fpang/luxstudio/internal/mcpserver"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the studio as MCP tools on stdio",
	Long: `Runs a Model Context Protocol server on stdin/stdout exposing analyze, edit,
generate, video and transcribe as tools. Generated files are written to the
output directory. Logs go to stderr.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return mcpserver.New(app.Engine, app.Keys, outDirFlag, version).Run(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
