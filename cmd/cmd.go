// Package cmd defines the command-line interface for offlined.
package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/civilsoul/offlined/internal/contract"
	"github.com/civilsoul/offlined/schema"
)

func init() {
	// Call initConfig on Cobra's initialization
	cobra.OnInitialize(initConfig)

	// Add primary subcommands to the root command
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(queueCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(versionCmd)

	// Add the cache subcommands to the parent cache command
	cacheCmd.AddCommand(cacheStatusCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cacheMigrateCmd)

	// Add the queue subcommands to the parent queue command
	queueCmd.AddCommand(queueStatusCmd)
	queueCmd.AddCommand(queueDrainCmd)
	queueCmd.AddCommand(queueExportCmd)

	// Bind all persistent flags of rootCmd to Viper
	rootCmd.PersistentFlags().String("listen", contract.DefaultListenAddr, "Address the agent listens on")
	rootCmd.PersistentFlags().String("upstream", contract.DefaultUpstreamURL, "Base URL of the upstream origin")
	rootCmd.PersistentFlags().String("store-backend", string(schema.SQLiteBackend), "Store backend: sqlite or mysql or postgresql or none")
	rootCmd.PersistentFlags().String("store-db-connect", "", "Database connection string for mysql/postgresql (e.g., user:pass@tcp(host:port)/dbname)")
	rootCmd.PersistentFlags().String("version-tag", contract.DefaultVersionTag, "Cache partition version tag")
	rootCmd.PersistentFlags().String("product-name", schema.ProductName, "Product name used for notification defaults")
	rootCmd.PersistentFlags().Int("max-drain-attempts", contract.DefaultMaxDrainAttempts, "Replay attempts before a queue item moves to the dead-letter table")
	rootCmd.PersistentFlags().String("api-prefixes", "", "Comma-separated extra path prefixes classified as API traffic")
	rootCmd.PersistentFlags().String("identity-paths", "", "Comma-separated extra identity-sensitive API paths")
	rootCmd.PersistentFlags().String("image-extensions", "", "Comma-separated extra URL suffixes classified as image traffic")
	rootCmd.PersistentFlags().String("image-hosts", "", "Comma-separated extra hosts classified as image traffic")
	rootCmd.PersistentFlags().String("network-timeout", "", "Per-request upstream timeout (e.g., 15s)")
	rootCmd.PersistentFlags().String("config", "", "Path to config file")
	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		contract.LogFatal("Error binding root flags", err)
	}

	// Bind all flags of queueDrainCmd to Viper
	queueDrainCmd.Flags().String("category", "", "Queue category to drain (drains all when omitted)")
	if err := viper.BindPFlags(queueDrainCmd.Flags()); err != nil {
		contract.LogFatal("Error binding queue drain flags", err)
	}

	// Bind all flags of queueExportCmd to Viper
	queueExportCmd.Flags().String("output-file", "", "Path to write the Parquet export to")
	if err := viper.BindPFlags(queueExportCmd.Flags()); err != nil {
		contract.LogFatal("Error binding queue export flags", err)
	}

	// Bind all flags of cacheMigrateCmd to Viper
	cacheMigrateCmd.Flags().Int("target-version", -1, "Target migration version (-1 means latest, 0 means rollback to initial state)")
	if err := viper.BindPFlags(cacheMigrateCmd.Flags()); err != nil {
		contract.LogFatal("Error binding cache migrate flags", err)
	}
}
