package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/civilsoul/offlined/core"
	"github.com/civilsoul/offlined/internal/contract"
	"github.com/civilsoul/offlined/internal/export"
	"github.com/civilsoul/offlined/internal/host"
	"github.com/civilsoul/offlined/internal/outwriter"
	"github.com/civilsoul/offlined/internal/upstream"
	"github.com/civilsoul/offlined/schema"
)

// queueCmd focused on offline mutation queue management.
var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Manage the offline mutation queues",
	Long: `Inspect, drain, and export the durable offline mutation queues.

Mutations captured while offline wait in per-category FIFO queues until
they are replayed against the upstream. Items that keep failing move to
a dead-letter table instead of blocking their queue forever.

Subcommands:
  status - Show pending and dead-letter counts per category
  drain  - Replay queued mutations against the upstream
  export - Write queued mutations to a Parquet file

Examples:
  # Check queue status
  offlined queue status

  # Replay everything that is pending
  offlined queue drain`,
}

// queueStatusCmd shows queue status.
var queueStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Display queue statistics and connection details",
	Long: `Show detailed information about the offline mutation queues.

Displays:
- Backend type and connection status
- Pending and dead-letter counts per category
- Oldest pending item timestamp

Examples:
  # Check queue status
  offlined queue status`,
	PreRunE: storeSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		status, err := storeManager.QueueStore().Status()
		if err != nil {
			contract.LogFatal("Failed to get queue status", err)
		}
		outwriter.PrintQueueStatus(status)
	},
}

// queueDrainCmd replays queued mutations.
var queueDrainCmd = &cobra.Command{
	Use:   "drain",
	Short: "Replay queued offline mutations against the upstream",
	Long: `Replay queued mutations in enqueue order against the upstream.

Each item is removed only after the upstream accepts it. A transient
failure stops its category's cycle; items that exhaust their attempt
budget move to the dead-letter table.

Examples:
  # Drain every category
  offlined queue drain

  # Drain a single category
  offlined queue drain --category applications`,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		log := slog.New(slog.NewTextHandler(os.Stderr, nil))
		fetch := upstream.NewClient(cfg.UpstreamURL, cfg.NetworkTimeout)
		dispatcher := core.NewDispatcher(host.NewLogHost(log), cfg.ProductName, log)
		drainer := core.NewDrainer(storeManager.QueueStore(), fetch, cfg.MaxDrainAttempts, dispatcher, noBroadcast{}, log)

		if tag := viper.GetString("category"); tag != "" {
			category, ok := schema.ParseQueueCategory(tag)
			if !ok {
				contract.LogFatal("Invalid category", fmt.Errorf("%q is not a recognized queue category", tag))
			}
			result, err := drainer.DrainCategory(rootCtx, category)
			if err != nil {
				contract.LogFatal("Failed to drain queue", err)
			}
			outwriter.PrintDrainResults([]schema.DrainResult{result})
			return
		}

		outwriter.PrintDrainResults(drainer.DrainAll(rootCtx))
	},
}

// queueExportCmd exports queued mutations to Parquet.
var queueExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write queued mutations to a Parquet file",
	Long: `Export every category's queued mutations to a single Parquet file.

Payload bodies stay out of the export; only their sizes are recorded.
The resulting file can be inspected with DuckDB, Pandas, or any other
Parquet-compatible tool.

Examples:
  # Export all queued mutations
  offlined queue export --output-file pending.parquet`,
	PreRunE: storeSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		outputFile := viper.GetString("output-file")
		count, err := export.ExecuteQueueExport(storeManager.QueueStore(), outputFile)
		if err != nil {
			contract.LogFatal("Failed to export queue", err)
		}
		fmt.Printf("Exported %d queued mutations to: %s\n", count, outputFile)
	},
}

// noBroadcast is used by CLI drains, which have no connected instances.
type noBroadcast struct{}

func (noBroadcast) Broadcast(schema.ClientMessage) int { return 0 }
