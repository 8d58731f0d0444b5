// Package cmd defines the command-line interface for cohortstats.
package cmd

import (
	"github.com/huangsam/cohortstats/internal/contract"
	"github.com/huangsam/cohortstats/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	// Call initConfig on Cobra's initialization
	cobra.OnInitialize(initConfig)

	// Add primary subcommands to the root command
	rootCmd.AddCommand(countCmd)
	rootCmd.AddCommand(countActivityCmd)
	rootCmd.AddCommand(countWithActivityCmd)
	rootCmd.AddCommand(groupCmd)
	rootCmd.AddCommand(drillCmd)
	rootCmd.AddCommand(averageCmd)
	rootCmd.AddCommand(stateCmd)
	rootCmd.AddCommand(snapshotCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(versionCmd)

	// Add the snapshot subcommands to the parent snapshot command
	snapshotCmd.AddCommand(snapshotMigrateCmd)
	snapshotCmd.AddCommand(snapshotSeedCmd)
	snapshotCmd.AddCommand(snapshotStatusCmd)

	// Bind all persistent flags of rootCmd to Viper
	rootCmd.PersistentFlags().String("backend", string(schema.SQLiteBackend), "Snapshot backend: sqlite or mysql or postgresql")
	rootCmd.PersistentFlags().String("db-connect", "", "Database connection string (e.g., user:pass@tcp(host:port)/dbname); defaults to ~/.cohortstats.db for sqlite")
	rootCmd.PersistentFlags().String("from", "", "Period start as a date, an ISO8601 instant or time ago")
	rootCmd.PersistentFlags().String("to", "", "Period end as a date, an ISO8601 instant or time ago")
	rootCmd.PersistentFlags().String("teams", "", "Comma-separated list of team ids")
	rootCmd.PersistentFlags().String("population", string(schema.FollowedPopulation), "Population: created or followed or all")
	rootCmd.PersistentFlags().String("context-file", "", "YAML or JSON file with the filter catalog and the filters to apply")
	rootCmd.PersistentFlags().String("output", string(schema.TextOut), "Output format: text or csv or json or parquet")
	rootCmd.PersistentFlags().String("output-file", "", "Optional path to write output to")
	rootCmd.PersistentFlags().Int("precision", contract.DefaultPrecision, "Decimal precision for numeric columns")
	rootCmd.PersistentFlags().Int("width", 0, "Terminal width override (0 = auto-detect)")
	rootCmd.PersistentFlags().String("color", "yes", "Enable colored labels in output (yes/no/true/false/1/0)")
	rootCmd.PersistentFlags().String("log-level", contract.DefaultLogLevel, "Log level: debug or info or warn or error")
	rootCmd.PersistentFlags().Bool("log-pretty", false, "Print human-readable logs instead of JSON")
	rootCmd.PersistentFlags().String("config", "", "Path to config file")
	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		contract.LogFatal("Error binding root flags", err)
	}

	// Request flags are shared by several commands, so they are bound once on rootCmd
	requestFlags := rootCmd.PersistentFlags()
	requestFlags.String("field", "", "Custom field id for field groupings and date-field or number-field averages")
	requestFlags.String("value", "", "Bucket label to list in a drill-down")
	requestFlags.String("categories", "", "Comma-separated action categories to keep")
	requestFlags.String("statuses", "", "Comma-separated action statuses to keep")
	requestFlags.String("at", "", "Instant of a state lookup as a date, an ISO8601 instant or time ago (default now)")
	if err := viper.BindPFlags(requestFlags); err != nil {
		contract.LogFatal("Error binding request flags", err)
	}

	// Bind all flags of snapshotMigrateCmd to Viper
	snapshotMigrateCmd.Flags().Int("target-version", -1, "Target migration version (-1 means latest, 0 means rollback to initial state)")
	if err := viper.BindPFlags(snapshotMigrateCmd.Flags()); err != nil {
		contract.LogFatal("Error binding snapshot migrate flags", err)
	}

	// Bind all flags of snapshotSeedCmd to Viper
	snapshotSeedCmd.Flags().String("fixture", "", "Path to the YAML fixture to load")
	if err := viper.BindPFlags(snapshotSeedCmd.Flags()); err != nil {
		contract.LogFatal("Error binding snapshot seed flags", err)
	}

	// Bind all flags of mcpCmd to Viper
	mcpCmd.Flags().String("metrics-addr", "", "Address to serve Prometheus metrics on (e.g., :9090); disabled when empty")
	if err := viper.BindPFlags(mcpCmd.Flags()); err != nil {
		contract.LogFatal("Error binding mcp flags", err)
	}
}
