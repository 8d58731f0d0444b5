package contract

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/huangsam/cohortstats/schema"
	"gopkg.in/yaml.v3"
)

// Default values for configuration.
const (
	DefaultPrecision = 1
	DefaultLogLevel  = "warn"
)

// ValidLogLevels lists the accepted --log-level values.
var ValidLogLevels = []string{"debug", "info", "warn", "error"}

// Config holds the runtime configuration for a statistics run.
// This struct remains the "final, validated" config.
type Config struct {
	Backend   schema.DatabaseBackend
	DBConnect string // Please use env var as this is plaintext

	// Stats carries the filter catalog and filters from --context-file,
	// with teams and period overridden by flags when given.
	Stats      schema.StatsContext
	Population schema.Population

	// Request parameters, set from positional arguments or MCP tool arguments
	Grouping   schema.Grouping
	Measure    schema.Measure
	Activity   schema.ActivityKind
	Field      string   // custom field for field groupings and averages
	GroupValue string   // bucket label for drill-downs
	Categories []string // action categories restriction
	Statuses   []string // action statuses restriction
	PersonID   string
	At         string // instant of a state lookup

	Output     schema.OutputMode
	OutputFile string
	Precision  int
	Width      int // Terminal width override (0 = auto-detect)
	UseColors  bool

	LogLevel    string
	LogPretty   bool
	MetricsAddr string

	// Now is the evaluation instant used for ages and open-ended durations.
	Now time.Time
}

// ConfigRawInput holds the raw inputs from all sources (flags, env, config file).
// Viper unmarshals into this struct.
type ConfigRawInput struct {
	// --- Fields from rootCmd.PersistentFlags() ---
	Backend     string `mapstructure:"backend"`
	DBConnect   string `mapstructure:"db-connect"`
	From        string `mapstructure:"from"`
	To          string `mapstructure:"to"`
	Teams       string `mapstructure:"teams"`
	Population  string `mapstructure:"population"`
	ContextFile string `mapstructure:"context-file"`
	Output      string `mapstructure:"output"`
	OutputFile  string `mapstructure:"output-file"`
	Precision   int    `mapstructure:"precision"`
	Width       int    `mapstructure:"width"`
	Color       string `mapstructure:"color"`
	LogLevel    string `mapstructure:"log-level"`
	LogPretty   bool   `mapstructure:"log-pretty"`

	// --- Fields from group/drill/average flags ---
	Field      string `mapstructure:"field"`
	Value      string `mapstructure:"value"`
	Categories string `mapstructure:"categories"`
	Statuses   string `mapstructure:"statuses"`
	At         string `mapstructure:"at"`

	// --- Fields from mcpCmd.Flags() ---
	MetricsAddr string `mapstructure:"metrics-addr"`
}

// Clone returns a deep copy of the Config struct.
func (c *Config) Clone() *Config {
	clone := *c
	clone.Categories = slices.Clone(c.Categories)
	clone.Statuses = slices.Clone(c.Statuses)
	clone.Stats.Teams = slices.Clone(c.Stats.Teams)
	clone.Stats.Filters = slices.Clone(c.Stats.Filters)
	clone.Stats.BaseFilters = slices.Clone(c.Stats.BaseFilters)
	return &clone
}

// ProcessAndValidate performs all complex parsing and validation on the raw inputs
// and updates the final Config struct.
func ProcessAndValidate(cfg *Config, input *ConfigRawInput, now time.Time) error {
	cfg.Now = now.UTC()
	if err := validateSimpleInputs(cfg, input); err != nil {
		return err
	}
	if err := validateBackendConfigs(cfg, input); err != nil {
		return err
	}
	return processStatsContext(cfg, input)
}

// ValidateDatabaseConnectionString validates the format of database connection strings
// for MySQL and PostgreSQL backends.
func ValidateDatabaseConnectionString(backend schema.DatabaseBackend, connStr string) error {
	switch backend {
	case schema.SQLiteBackend:
		return nil
	case schema.MySQLBackend:
		if connStr == "" {
			return fmt.Errorf("db-connect is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "@tcp(") {
			return fmt.Errorf("MySQL connection string must contain '@tcp(' for host:port specification")
		}
		if !strings.Contains(connStr, "/") {
			return fmt.Errorf("MySQL connection string must contain '/' followed by database name")
		}
	case schema.PostgreSQLBackend:
		if connStr == "" {
			return fmt.Errorf("db-connect is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "host=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'host=' parameter")
		}
		if !strings.Contains(connStr, "dbname=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'dbname=' parameter")
		}
	}
	return nil
}

// ResolveBackend lower-cases and validates a backend name, defaulting to SQLite.
func ResolveBackend(raw string) (schema.DatabaseBackend, error) {
	if raw == "" {
		return schema.SQLiteBackend, nil
	}
	backend := schema.DatabaseBackend(strings.ToLower(raw))
	if _, ok := schema.ValidDatabaseBackends[backend]; !ok {
		return "", fmt.Errorf("invalid backend '%s'. must be sqlite, mysql, postgresql", raw)
	}
	return backend, nil
}

// validateBackendConfigs validates the snapshot backend configuration.
func validateBackendConfigs(cfg *Config, input *ConfigRawInput) error {
	backend, err := ResolveBackend(input.Backend)
	if err != nil {
		return err
	}
	cfg.Backend = backend
	cfg.DBConnect = input.DBConnect
	if err := ValidateDatabaseConnectionString(cfg.Backend, cfg.DBConnect); err != nil {
		return err
	}
	if cfg.Backend == schema.SQLiteBackend && cfg.DBConnect == "" {
		cfg.DBConnect = GetSnapshotDBFilePath()
	}
	return nil
}

// validateSimpleInputs processes and validates all non-context fields.
func validateSimpleInputs(cfg *Config, input *ConfigRawInput) error {
	cfg.OutputFile = input.OutputFile
	cfg.Width = input.Width
	cfg.LogPretty = input.LogPretty
	cfg.MetricsAddr = input.MetricsAddr
	cfg.Field = strings.TrimSpace(input.Field)
	cfg.GroupValue = input.Value
	cfg.Categories = SplitList(input.Categories)
	cfg.Statuses = SplitList(input.Statuses)

	at, err := ResolvePeriodBound(input.At, cfg.Now)
	if err != nil {
		return fmt.Errorf("invalid --at: %w", err)
	}
	cfg.At = at

	// Parse color flag
	colors, err := ParseBoolString(input.Color)
	if err != nil {
		return fmt.Errorf("invalid --color value: %w", err)
	}
	cfg.UseColors = colors

	if input.Precision < 1 || input.Precision > 2 {
		return fmt.Errorf("precision must be 1 or 2 (received %d)", input.Precision)
	}
	cfg.Precision = input.Precision

	cfg.Output = schema.OutputMode(strings.ToLower(input.Output))
	if _, ok := schema.ValidOutputModes[cfg.Output]; !ok {
		return fmt.Errorf("invalid output format '%s'. must be text, csv, json, parquet", input.Output)
	}
	if cfg.Output == schema.ParquetOut && cfg.OutputFile == "" {
		return fmt.Errorf("parquet output requires --output-file")
	}

	cfg.LogLevel = strings.ToLower(input.LogLevel)
	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}
	if !slices.Contains(ValidLogLevels, cfg.LogLevel) {
		return fmt.Errorf("invalid log level '%s'. must be debug, info, warn, error", input.LogLevel)
	}

	pop, err := ParsePopulation(input.Population)
	if err != nil {
		return err
	}
	cfg.Population = pop
	return nil
}

// processStatsContext loads the context file and applies --teams, --from and --to on top.
// PeriodOf builds the period between two resolved bounds. A period with a single
// bound is kept as given and counts as all time.
func PeriodOf(from, to string) schema.Period {
	if (from == "") != (to == "") {
		LogWarn("Ignoring one-sided period", fmt.Errorf("from %q and to %q must be given together", from, to))
	}
	return schema.Period{From: from, To: to}
}

func processStatsContext(cfg *Config, input *ConfigRawInput) error {
	cfg.Stats = schema.StatsContext{}
	if input.ContextFile != "" {
		sc, err := LoadStatsContext(input.ContextFile)
		if err != nil {
			return err
		}
		cfg.Stats = sc
	}

	if teams := SplitList(input.Teams); len(teams) > 0 {
		cfg.Stats.Teams = teams
	}

	from, err := ResolvePeriodBound(input.From, cfg.Now)
	if err != nil {
		return fmt.Errorf("invalid --from: %w", err)
	}
	to, err := ResolvePeriodBound(input.To, cfg.Now)
	if err != nil {
		return fmt.Errorf("invalid --to: %w", err)
	}
	if from != "" || to != "" {
		cfg.Stats.Period = PeriodOf(from, to)
	}

	if f, t, ok := cfg.Stats.Period.Bounds(); ok && f > t {
		return fmt.Errorf("period start (%s) cannot be after period end (%s)", f, t)
	}
	return nil
}

// LoadStatsContext reads a StatsContext from a YAML or JSON file.
func LoadStatsContext(path string) (schema.StatsContext, error) {
	var sc schema.StatsContext
	data, err := os.ReadFile(path)
	if err != nil {
		return sc, fmt.Errorf("cannot read context file: %w", err)
	}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(data, &sc)
	} else {
		err = yaml.Unmarshal(data, &sc)
	}
	if err != nil {
		return sc, fmt.Errorf("cannot parse context file %s: %w", path, err)
	}
	return sc, nil
}

// ParseGrouping validates a grouping name. The all-rows grouping is only accepted
// when allowAll is set, since it only makes sense for drill-downs.
func ParseGrouping(raw string, allowAll bool) (schema.Grouping, error) {
	grouping := schema.Grouping(strings.ToLower(strings.TrimSpace(raw)))
	if allowAll && grouping == schema.AllRowsGrouping {
		return grouping, nil
	}
	if _, ok := schema.ValidGroupings[grouping]; !ok {
		return "", fmt.Errorf("invalid grouping '%s'. must be age, follow-duration, wandering-duration, field, out-reason, action-category, person-action-category", raw)
	}
	return grouping, nil
}

// ParseMeasure validates an averaged measure name.
func ParseMeasure(raw string) (schema.Measure, error) {
	measure := schema.Measure(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := schema.ValidMeasures[measure]; !ok {
		return "", fmt.Errorf("invalid measure '%s'. must be follow-duration, wandering-duration, date-field, number-field", raw)
	}
	return measure, nil
}

// ParseActivityKind validates an activity kind name.
func ParseActivityKind(raw string) (schema.ActivityKind, error) {
	kind := schema.ActivityKind(strings.ToLower(strings.TrimSpace(raw)))
	if !slices.Contains(schema.AllActivityKinds, kind) {
		return "", fmt.Errorf("invalid activity kind '%s'. must be action, consultation, passage, encounter, treatment, person_place, comment", raw)
	}
	return kind, nil
}

// ParsePopulation validates a population name, defaulting to the followed cohort.
func ParsePopulation(raw string) (schema.Population, error) {
	pop := schema.Population(strings.ToLower(strings.TrimSpace(raw)))
	if pop == "" {
		return schema.FollowedPopulation, nil
	}
	if _, ok := schema.ValidPopulations[pop]; !ok {
		return "", fmt.Errorf("invalid population '%s'. must be created, followed, all", raw)
	}
	return pop, nil
}
