package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/huangsam/cohortstats/core/cohort"
	"github.com/huangsam/cohortstats/internal/contract"
	"github.com/huangsam/cohortstats/internal/logger"
	"github.com/huangsam/cohortstats/internal/metrics"
	"github.com/huangsam/cohortstats/internal/snapshot"
	"github.com/huangsam/cohortstats/schema"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// All linker flags will be set by goreleaser infra at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCtx is the root context for all operations.
var rootCtx = context.Background()

// cfg will hold the validated, final configuration.
var cfg = &contract.Config{}

// input holds the raw, unvalidated configuration from all sources (file, env, flags).
// Viper will unmarshal into this struct.
var input = &contract.ConfigRawInput{}

// store is the snapshot opened by the setup of the running command.
var store *snapshot.Store

// registry collects the query and tool metrics of this process.
var registry = prometheus.NewRegistry()

// appMetrics is registered on registry once per process.
var appMetrics = metrics.New(registry)

// argBinder maps the positional arguments of a command onto the validated config.
type argBinder func(cfg *contract.Config, args []string) error

// rootCmd is the command-line entrypoint for all other commands.
var rootCmd = &cobra.Command{
	Use:   "cohortstats",
	Short: "Compute cohort statistics over a decrypted snapshot.",
	Long: `Cohortstats counts, groups and drills into the persons followed by a set of teams
over a reporting period, straight from a relational snapshot.`,
	Version:            version,
	SilenceErrors:      true,
	SilenceUsage:       true,
	DisableSuggestions: true,
	Run: func(cmd *cobra.Command, _ []string) {
		_ = cmd.Help()
	},
	PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
		return closeSnapshot()
	},
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	// Set environment variable prefix
	viper.SetEnvPrefix("COHORTSTATS")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // Read in environment variables that match

	// Set defaults in Viper
	viper.SetDefault("backend", schema.SQLiteBackend)
	viper.SetDefault("db-connect", "")
	viper.SetDefault("population", schema.FollowedPopulation)
	viper.SetDefault("output", schema.TextOut)
	viper.SetDefault("precision", contract.DefaultPrecision)
	viper.SetDefault("log-level", contract.DefaultLogLevel)
	viper.SetDefault("color", "yes")
	viper.SetDefault("target-version", -1)
}

// loadConfigFile handles config file loading logic common to all setup functions.
func loadConfigFile() error {
	if configFile := viper.GetString("config"); configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName(".cohortstats") // Name of config file (without extension)
		viper.SetConfigType("yaml")         // We'll use YAML format
		viper.AddConfigPath(".")            // Look in the current directory
		viper.AddConfigPath("$HOME")        // Look in the home directory
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			// Config file was found but another error was produced
			return fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found, which is fine; we'll use defaults/env/flags.
	}
	return nil
}

// sharedSetup unmarshals config, runs validation and opens the snapshot.
func sharedSetup(ctx context.Context, _ *cobra.Command, args []string, bind argBinder) error {
	// 1. Read config file. This merges defaults, file, env, and flags.
	if err := loadConfigFile(); err != nil {
		return err
	}

	// 2. Unmarshal all resolved values from Viper into our raw input struct.
	if err := viper.Unmarshal(input); err != nil {
		return fmt.Errorf("unable to unmarshal config: %w", err)
	}

	// 3. Run all validation and complex parsing.
	if err := contract.ProcessAndValidate(cfg, input, time.Now()); err != nil {
		return err
	}

	// 4. Handle positional arguments (which Viper doesn't do).
	if bind != nil {
		if err := bind(cfg, args); err != nil {
			return err
		}
	}
	color.NoColor = !cfg.UseColors

	return openSnapshot(ctx)
}

// sharedSetupWith wraps sharedSetup to provide context for Cobra's PreRunE.
func sharedSetupWith(bind argBinder) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		return sharedSetup(rootCtx, cmd, args, bind)
	}
}

// openSnapshot builds the logger and opens the configured snapshot store.
func openSnapshot(ctx context.Context) error {
	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty})
	rootCtx = cohort.WithLogger(ctx, log)

	s, err := snapshot.Open(cfg.Backend, cfg.DBConnect, snapshot.WithLogger(log), snapshot.WithMetrics(appMetrics))
	if err != nil {
		return fmt.Errorf("failed to open snapshot: %w", err)
	}
	store = s
	return nil
}

// closeSnapshot releases the snapshot opened by the setup, if any.
func closeSnapshot() error {
	if store == nil {
		return nil
	}
	err := store.Close()
	store = nil
	return err
}

// Execute runs the root command.
func Execute() error {
	defer func() { _ = closeSnapshot() }()
	return rootCmd.Execute()
}
