package contract

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/huangsam/cohortstats/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validInput() *ConfigRawInput {
	return &ConfigRawInput{
		Backend:    "sqlite",
		DBConnect:  "file::memory:",
		Population: "followed",
		Output:     "text",
		Precision:  1,
		Color:      "no",
	}
}

func TestProcessAndValidate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*ConfigRawInput)
		expectError bool
		check       func(*testing.T, *Config)
	}{
		{
			name: "valid minimal config",
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, schema.SQLiteBackend, cfg.Backend)
				assert.Equal(t, schema.FollowedPopulation, cfg.Population)
				assert.Equal(t, DefaultLogLevel, cfg.LogLevel)
				assert.True(t, cfg.Stats.Period.IsAllTime())
			},
		},
		{
			name:   "default population and backend",
			mutate: func(in *ConfigRawInput) { in.Population = ""; in.Backend = ""; in.DBConnect = "" },
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, schema.FollowedPopulation, cfg.Population)
				assert.Equal(t, GetSnapshotDBFilePath(), cfg.DBConnect)
			},
		},
		{
			name: "teams and period from flags",
			mutate: func(in *ConfigRawInput) {
				in.Teams = "team-a, team-b"
				in.From = "2024-01-01"
				in.To = "2024-12-31"
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, []string{"team-a", "team-b"}, cfg.Stats.Teams)
				assert.Equal(t, schema.Period{From: "2024-01-01", To: "2024-12-31"}, cfg.Stats.Period)
			},
		},
		{
			name:        "invalid population",
			mutate:      func(in *ConfigRawInput) { in.Population = "everyone" },
			expectError: true,
		},
		{
			name:        "invalid output",
			mutate:      func(in *ConfigRawInput) { in.Output = "xml" },
			expectError: true,
		},
		{
			name:        "parquet without file",
			mutate:      func(in *ConfigRawInput) { in.Output = "parquet" },
			expectError: true,
		},
		{
			name:        "invalid precision",
			mutate:      func(in *ConfigRawInput) { in.Precision = 5 },
			expectError: true,
		},
		{
			name:        "invalid color",
			mutate:      func(in *ConfigRawInput) { in.Color = "rainbow" },
			expectError: true,
		},
		{
			name:   "one-sided period is all time",
			mutate: func(in *ConfigRawInput) { in.From = "2024-01-01" },
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, schema.Period{From: "2024-01-01"}, cfg.Stats.Period)
				assert.True(t, cfg.Stats.Period.IsAllTime())
			},
		},
		{
			name:   "period end only",
			mutate: func(in *ConfigRawInput) { in.To = "2024-12-31" },
			check: func(t *testing.T, cfg *Config) {
				_, _, ok := cfg.Stats.Period.Bounds()
				assert.False(t, ok)
			},
		},
		{
			name: "inverted period",
			mutate: func(in *ConfigRawInput) {
				in.From = "2024-12-31"
				in.To = "2024-01-01"
			},
			expectError: true,
		},
		{
			name:        "invalid backend",
			mutate:      func(in *ConfigRawInput) { in.Backend = "oracle" },
			expectError: true,
		},
		{
			name:        "mysql without connection string",
			mutate:      func(in *ConfigRawInput) { in.Backend = "mysql"; in.DBConnect = "" },
			expectError: true,
		},
		{
			name:        "invalid log level",
			mutate:      func(in *ConfigRawInput) { in.LogLevel = "trace" },
			expectError: true,
		},
		{
			name:        "missing context file",
			mutate:      func(in *ConfigRawInput) { in.ContextFile = "/does/not/exist.yaml" },
			expectError: true,
		},
		{
			name:   "state instant",
			mutate: func(in *ConfigRawInput) { in.At = "2024-03-01" },
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "2024-03-01", cfg.At)
			},
		},
		{
			name:        "invalid state instant",
			mutate:      func(in *ConfigRawInput) { in.At = "yesterday-ish" },
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := validInput()
			if tt.mutate != nil {
				tt.mutate(input)
			}
			cfg := &Config{}
			err := ProcessAndValidate(cfg, input, fixedNow)
			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}

func TestProcessAndValidateContextFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "context.yaml")
	content := `
baseFilters:
  - id: gender
    type: enum
    label: Genre
    options: [Femme, Homme]
filters:
  - id: gender
    value: Femme
teams: [team-a]
period:
  from: "2024-01-01"
  to: "2024-06-30"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	input := validInput()
	input.ContextFile = path
	input.Teams = "team-b"

	cfg := &Config{}
	require.NoError(t, ProcessAndValidate(cfg, input, fixedNow))

	assert.Len(t, cfg.Stats.BaseFilters, 1)
	assert.Equal(t, "Femme", cfg.Stats.Filters[0].Value.Text)
	assert.Equal(t, []string{"team-b"}, cfg.Stats.Teams, "flag teams override the file")
	assert.Equal(t, "2024-06-30", cfg.Stats.Period.To, "file period kept without flags")
}

func TestLoadStatsContextJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "context.json")
	content := `{"baseFilters":[{"id":"lastVisit","type":"date","label":"Dernière visite"}],` +
		`"filters":[{"id":"lastVisit","value":{"date":"2024-03-01","comparator":"before"}}],"teams":["t1"]}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	sc, err := LoadStatsContext(path)
	require.NoError(t, err)
	require.Len(t, sc.Filters, 1)
	require.NotNil(t, sc.Filters[0].Value.Date)
	assert.Equal(t, schema.BeforeComparator, sc.Filters[0].Value.Date.Comparator)
	assert.Equal(t, []string{"t1"}, sc.Teams)
}

func TestValidateDatabaseConnectionString(t *testing.T) {
	tests := []struct {
		name        string
		backend     schema.DatabaseBackend
		connStr     string
		expectError bool
	}{
		{"sqlite anything", schema.SQLiteBackend, "", false},
		{"mysql valid", schema.MySQLBackend, "root:pw@tcp(localhost:3306)/cohort", false},
		{"mysql missing tcp", schema.MySQLBackend, "root:pw@localhost/cohort", true},
		{"postgres valid", schema.PostgreSQLBackend, "host=localhost port=5432 user=postgres dbname=cohort", false},
		{"postgres missing dbname", schema.PostgreSQLBackend, "host=localhost", true},
		{"postgres empty", schema.PostgreSQLBackend, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDatabaseConnectionString(tt.backend, tt.connStr)
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfigClone(t *testing.T) {
	cfg := &Config{Categories: []string{"a"}, Stats: schema.StatsContext{Teams: []string{"t"}}}
	clone := cfg.Clone()
	clone.Categories[0] = "b"
	clone.Stats.Teams[0] = "u"
	assert.Equal(t, "a", cfg.Categories[0])
	assert.Equal(t, "t", cfg.Stats.Teams[0])
}

func TestParseRequestNames(t *testing.T) {
	tests := []struct {
		name        string
		parse       func() (string, error)
		expected    string
		expectError bool
	}{
		{"grouping", func() (string, error) { g, err := ParseGrouping("Age", false); return string(g), err }, "age", false},
		{"grouping all rejected", func() (string, error) { g, err := ParseGrouping("all", false); return string(g), err }, "", true},
		{"grouping all for drill", func() (string, error) { g, err := ParseGrouping("all", true); return string(g), err }, "all", false},
		{"grouping unknown", func() (string, error) { g, err := ParseGrouping("gender", false); return string(g), err }, "", true},
		{"measure", func() (string, error) { m, err := ParseMeasure("number-field"); return string(m), err }, "number-field", false},
		{"measure unknown", func() (string, error) { m, err := ParseMeasure("age"); return string(m), err }, "", true},
		{"activity", func() (string, error) { k, err := ParseActivityKind(" Passage "); return string(k), err }, "passage", false},
		{"activity unknown", func() (string, error) { k, err := ParseActivityKind("visit"); return string(k), err }, "", true},
		{"population default", func() (string, error) { p, err := ParsePopulation(""); return string(p), err }, "followed", false},
		{"population unknown", func() (string, error) { p, err := ParsePopulation("everyone"); return string(p), err }, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.parse()
			if tt.expectError {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}
