package cmd

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/huangsam/cohortstats/internal/contract"
	"github.com/huangsam/cohortstats/internal/outwriter"
	"github.com/huangsam/cohortstats/internal/snapshot"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// snapshotSetup loads minimal configuration needed for snapshot maintenance.
// This is used by commands that need the store without full shared setup.
func snapshotSetup() error {
	if err := loadConfigFile(); err != nil {
		return err
	}

	backend, err := contract.ResolveBackend(viper.GetString("backend"))
	if err != nil {
		return err
	}
	connStr := viper.GetString("db-connect")
	if err := contract.ValidateDatabaseConnectionString(backend, connStr); err != nil {
		return err
	}
	if connStr == "" {
		connStr = contract.GetSnapshotDBFilePath()
	}

	cfg.Backend = backend
	cfg.DBConnect = connStr
	cfg.LogLevel = viper.GetString("log-level")
	cfg.LogPretty = viper.GetBool("log-pretty")

	return openSnapshot(rootCtx)
}

// snapshotSetupWrapper wraps snapshotSetup to provide PreRunE for snapshot commands.
func snapshotSetupWrapper(_ *cobra.Command, _ []string) error {
	return snapshotSetup()
}

// snapshotCmd focused on snapshot management.
//
// Note: Snapshot subcommands use minimal initialization (snapshotSetup) instead of
// the full sharedSetup used by statistics commands, except status which prints
// through the configured output format.
var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Manage the relational snapshot queried by the statistics.",
	Long: `Manage the snapshot database the statistics run against.

Supported backends: SQLite (default), MySQL, PostgreSQL

Subcommands:
  migrate - Apply or roll back schema migrations
  seed    - Load a YAML fixture into the snapshot
  status  - Show schema version and table sizes

Examples:
  # Create the schema of a fresh SQLite snapshot
  cohortstats snapshot migrate

  # Load a fixture for a demo
  cohortstats snapshot seed --fixture demo.yaml

  # Check a PostgreSQL snapshot (set connection string via env variable)
  COHORTSTATS_BACKEND=postgresql COHORTSTATS_DB_CONNECT="..." cohortstats snapshot status`,
}

// snapshotMigrateCmd runs schema migrations.
var snapshotMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply or roll back snapshot schema migrations",
	Long: `Move the snapshot schema to a target version.

--target-version -1 migrates to the latest version (default).
--target-version 0 rolls every migration back.

Examples:
  cohortstats snapshot migrate
  cohortstats snapshot migrate --target-version 1`,
	PreRunE: snapshotSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		result, err := store.Migrate(viper.GetInt("target-version"))
		if err != nil {
			contract.LogFatal("Failed to migrate snapshot", err)
		}
		fmt.Println(result.String())
	},
}

// snapshotSeedCmd loads a fixture.
var snapshotSeedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load a YAML fixture into the snapshot",
	Long: `Insert the custom fields, persons and activities of a YAML fixture into a migrated
snapshot. Rows without an id get a generated one.

Examples:
  cohortstats snapshot seed --fixture demo.yaml`,
	PreRunE: snapshotSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		path := viper.GetString("fixture")
		if path == "" {
			contract.LogFatal("Failed to seed snapshot", fmt.Errorf("--fixture is required"))
		}
		f, err := snapshot.LoadFixture(path)
		if err != nil {
			contract.LogFatal("Failed to load fixture", err)
		}
		summary, err := store.Seed(rootCtx, f, time.Now())
		if err != nil {
			contract.LogFatal("Failed to seed snapshot", err)
		}
		fmt.Println(formatSeedSummary(summary))
	},
}

// snapshotStatusCmd shows snapshot status.
var snapshotStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Display snapshot schema version and table sizes",
	Long: `Show the backend, connection state, schema version and row count of every
snapshot table.

Examples:
  cohortstats snapshot status
  cohortstats snapshot status --output json`,
	PreRunE: sharedSetupWith(nil),
	Run: func(_ *cobra.Command, _ []string) {
		status, err := store.Status(rootCtx)
		if err != nil {
			contract.LogFatal("Failed to get snapshot status", err)
		}
		if err := outwriter.NewOutWriter().WriteStatus(status, snapshot.Tables, cfg); err != nil {
			contract.LogFatal("Failed to print snapshot status", err)
		}
	},
}

// formatSeedSummary lists the inserted rows per table in table order.
func formatSeedSummary(summary snapshot.SeedSummary) string {
	var parts []string
	for _, table := range snapshot.Tables {
		if n, ok := summary[table]; ok {
			parts = append(parts, fmt.Sprintf("%s=%d", table, n))
		}
	}
	var extra []string
	for table := range summary {
		if !slices.Contains(snapshot.Tables, table) {
			extra = append(extra, table)
		}
	}
	slices.Sort(extra)
	for _, table := range extra {
		parts = append(parts, fmt.Sprintf("%s=%d", table, summary[table]))
	}
	return "Seeded " + strings.Join(parts, " ")
}
