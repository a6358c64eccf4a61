package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/civilsoul/offlined/internal/contract"
	"github.com/civilsoul/offlined/internal/outwriter"
	"github.com/civilsoul/offlined/internal/store"
	"github.com/civilsoul/offlined/schema"
)

// cacheCmd focused on cache partition management.
//
// Note: Cache subcommands use minimal initialization (storeSetup) instead of
// the full sharedSetup used by serve. This avoids upstream URL validation
// and classification config processing for simple store operations.
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the response cache partitions",
	Long: `Manage the versioned cache partitions holding response snapshots.

Offlined keeps three partitions per version tag: static assets, API
responses, and images. A version bump replaces the partitions during
activation without disturbing the mutation queues.

Supported backends: SQLite (default), MySQL, PostgreSQL, or None (disabled)

Subcommands:
  status  - Show per-partition entry counts and connection info
  clear   - Remove all durable state
  migrate - Migrate the store schema to a target version

Examples:
  # Check cache status
  offlined cache status

  # Clear all durable state
  offlined cache clear`,
}

// cacheStatusCmd shows cache status.
var cacheStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Display cache statistics and connection details",
	Long: `Show detailed information about the response cache.

Displays:
- Backend type and connection status
- Entry counts per partition
- Last and oldest cache entry timestamps
- Store database size

Examples:
  # Check cache status
  offlined cache status`,
	PreRunE: storeSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		status, err := storeManager.PartitionStore().Status()
		if err != nil {
			contract.LogFatal("Failed to get cache status", err)
		}
		outwriter.PrintCacheStatus(status)
	},
}

// cacheClearCmd clears the durable store.
var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all durable state",
	Long: `Delete all cached responses and queued mutations from the configured backend.

Use this when:
- The store may be stale or corrupted
- Testing behavior without cached state
- Decommissioning an installation

For SQLite: Deletes the database file
For MySQL/PostgreSQL: Drops the store tables

Examples:
  # Clear SQLite store (default)
  offlined cache clear

  # Clear MySQL store (set connection string via env variable)
  OFFLINED_STORE_BACKEND=mysql OFFLINED_STORE_DB_CONNECT="..." offlined cache clear`,
	RunE: func(_ *cobra.Command, _ []string) error {
		// Clear opens its own connection, so only config loading is needed.
		if err := loadConfigFile(); err != nil {
			return err
		}
		backend := schema.DatabaseBackend(viper.GetString("store-backend"))
		connStr := viper.GetString("store-db-connect")
		if err := store.Clear(backend, connStr); err != nil {
			contract.LogFatal("Failed to clear store", err)
		}
		fmt.Println("Store cleared successfully.")
		return nil
	},
}

// cacheMigrateCmd migrates the store schema.
var cacheMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Migrate the store schema to a target version",
	Long: `Run schema migrations for the durable store.

The target version controls the direction:
  -1 migrates up to the latest version (default)
   0 rolls back to the initial (empty) state
  >0 migrates to that specific version

Examples:
  # Migrate to the latest schema
  offlined cache migrate

  # Roll the schema back completely
  offlined cache migrate --target-version 0`,
	PreRunE: storeSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		target := viper.GetInt("target-version")
		summary, err := storeManager.MigrateTo(target)
		if err != nil {
			contract.LogFatal("Failed to migrate store schema", err)
		}
		fmt.Println(summary)
	},
}
