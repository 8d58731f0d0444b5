package outwriter

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/huangsam/cohortstats/internal/contract"
	"github.com/huangsam/cohortstats/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeToTempFile(t *testing.T, write func(cfg *contract.Config) error, output schema.OutputMode) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "out")
	cfg := &contract.Config{Output: output, OutputFile: path, Precision: 1}
	require.NoError(t, write(cfg))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestWriteCountResult(t *testing.T) {
	header := schema.ReportHeader{Statistic: "count", Population: schema.CreatedPopulation}
	write := func(cfg *contract.Config) error { return WriteCountResult(header, 7, cfg, time.Millisecond) }

	tests := []struct {
		name     string
		output   schema.OutputMode
		expected string
	}{
		{"text", schema.TextOut, "Count: 7"},
		{"csv", schema.CSVOut, "statistic,population,count\ncount,created,7\n"},
		{"json", schema.JSONOut, `"count": 7`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Contains(t, writeToTempFile(t, write, tt.output), tt.expected)
		})
	}
}

func TestWriteAverageResult(t *testing.T) {
	header := schema.ReportHeader{Statistic: "average follow-duration"}
	avg := schema.Average{Count: 5, Days: 737.6, Human: schema.Duration{Value: 2, Unit: "ans"}}
	write := func(cfg *contract.Config) error { return WriteAverageResult(header, avg, cfg, 0) }

	assert.Contains(t, writeToTempFile(t, write, schema.TextOut), "Average: 2 ans")
	assert.Contains(t, writeToTempFile(t, write, schema.CSVOut), "average follow-duration,5,737.6,2,ans")

	var doc map[string]map[string]any
	require.NoError(t, json.Unmarshal([]byte(writeToTempFile(t, write, schema.JSONOut)), &doc))
	assert.Equal(t, 737.6, doc["average"]["days"])

	err := WriteAverageResult(header, avg, &contract.Config{Output: schema.ParquetOut, OutputFile: "x.parquet"}, 0)
	assert.ErrorContains(t, err, "not supported for averages")
}

func TestWriteNumberSummaryResult(t *testing.T) {
	header := schema.ReportHeader{Statistic: "income"}
	summary := schema.NumberSummary{Count: 2, Total: 1500, Average: 750}
	write := func(cfg *contract.Config) error { return WriteNumberSummaryResult(header, summary, cfg, 0) }

	assert.Contains(t, writeToTempFile(t, write, schema.TextOut), "Average: 750.0")
	assert.Contains(t, writeToTempFile(t, write, schema.CSVOut), "income,2,1500.0,750.0")
}

func TestWriteStateText(t *testing.T) {
	tests := []struct {
		name     string
		row      schema.HistoryRow
		found    bool
		expected []string
	}{
		{
			name:     "missing state",
			expected: []string{"P1 at 2024-07-01", "No recorded state"},
		},
		{
			name:     "open version with JSON data",
			row:      schema.HistoryRow{Seq: 3, PersonID: "P1", FromDate: "2024-05-01T00:00:00.000Z", Data: `{"gender":"Femme"}`},
			found:    true,
			expected: []string{"Version 3 valid from 2024-05-01T00:00:00.000Z to open", `"gender": "Femme"`},
		},
		{
			name:     "plain data",
			row:      schema.HistoryRow{Seq: 1, FromDate: "2024-01-01T00:00:00.000Z", ToDate: "2024-05-01T00:00:00.000Z", Data: "raw"},
			found:    true,
			expected: []string{"to 2024-05-01T00:00:00.000Z", "raw"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, writeStateText(&buf, "P1", "2024-07-01", tt.row, tt.found))
			for _, e := range tt.expected {
				assert.Contains(t, buf.String(), e)
			}
		})
	}
}

func TestWriteStateResultJSON(t *testing.T) {
	write := func(cfg *contract.Config) error {
		return WriteStateResult("P7", "2024-07-01", schema.HistoryRow{}, false, cfg)
	}
	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(writeToTempFile(t, write, schema.JSONOut)), &doc))
	assert.Equal(t, false, doc["found"])
	assert.NotContains(t, doc, "state")
}

func TestWriteStatusText(t *testing.T) {
	status := schema.SnapshotStatus{
		Backend:       "sqlite",
		Connected:     true,
		SchemaVersion: 1,
		TableRows:     map[string]int64{"person": 8, "action": 3},
		LatestChange:  "2024-05-01T00:00:00.000Z",
	}

	var buf bytes.Buffer
	require.NoError(t, writeStatusText(&buf, status, []string{"person", "person_history", "action"}))
	out := buf.String()
	assert.Contains(t, out, "Schema Version: 1\n")
	assert.Contains(t, out, "  person: 8 rows\n  action: 3 rows\n")
	assert.NotContains(t, out, "person_history")
}

func TestWriteStatusDisconnected(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeStatusText(&buf, schema.SnapshotStatus{Backend: "mysql"}, nil))
	assert.Equal(t, "Snapshot Backend: mysql\nConnected: false\n", buf.String())
}
