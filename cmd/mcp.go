package cmd

import (
	"github.com/spf13/cobra"

	"github.com/civilsoul/offlined/internal/mcp"
	"github.com/civilsoul/offlined/internal/upstream"
)

// mcpCmd represents the mcp command.
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the offlined MCP server",
	Long:  `Launch an MCP server that allows AI agents to inspect the cache and drain the mutation queues via standard tools.`,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		// Suppress the normal header logs when running in MCP mode
		// to avoid polluting stdio which is used for the protocol.
		return sharedSetup(rootCtx, cmd, args)
	},
	RunE: func(_ *cobra.Command, _ []string) error {
		fetch := upstream.NewClient(cfg.UpstreamURL, cfg.NetworkTimeout)
		return mcp.StartMCPServer(rootCtx, cfg, storeManager, fetch)
	},
}
