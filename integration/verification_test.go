//go:build basic

// Package integration contains integration tests for cohortstats.
// These tests are excluded from normal test runs due to build tags.
// To run these tests: go test -tags basic ./integration
// Database backends need Docker: go test -tags database ./integration
package integration

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/huangsam/cohortstats/core"
	"github.com/huangsam/cohortstats/internal/contract"
	"github.com/huangsam/cohortstats/internal/snapshot"
	"github.com/huangsam/cohortstats/internal/snapshot/snapshottest"
	"github.com/huangsam/cohortstats/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestCLIMatchesEngine seeds a SQLite snapshot through the CLI and verifies that every
// printed group count matches the engine and the drill-down of the same bucket.
func TestCLIMatchesEngine(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "snapshot.db")
	env := []string{
		"COHORTSTATS_BACKEND=sqlite",
		"COHORTSTATS_DB_CONNECT=" + dbPath,
	}
	prepareSnapshot(t, env)

	store := openExisting(t, dbPath)
	cfg := &contract.Config{
		Stats:      snapshottest.CohortContext(),
		Population: schema.FollowedPopulation,
	}

	out, err := runCommand(t, env, cohortArgs("count")...)
	require.NoError(t, err)
	expected, _, err := core.GetCountResult(context.Background(), cfg, store)
	require.NoError(t, err)
	assert.Equal(t, expected, decodeCount(t, out))

	for _, grouping := range []string{"follow-duration", "out-reason", "person-action-category"} {
		t.Run(grouping, func(t *testing.T) {
			out, err := runCommand(t, env, cohortArgs("group", grouping)...)
			require.NoError(t, err)

			var report struct {
				Total  int64               `json:"total"`
				Groups []schema.GroupCount `json:"groups"`
			}
			require.NoError(t, json.Unmarshal([]byte(out), &report))
			require.NotEmpty(t, report.Groups)

			for _, g := range report.Groups {
				out, err := runCommand(t, env, cohortArgs("drill", grouping, "--value", g.Label)...)
				require.NoError(t, err)

				var drill schema.DrillResult
				require.NoError(t, json.Unmarshal([]byte(out), &drill))
				assert.Equal(t, int(g.Count), drill.Len(), "bucket %s", g.Label)
			}
		})
	}
}

// openExisting opens a snapshot written by the CLI.
func openExisting(t *testing.T, dbPath string) contract.Snapshot {
	t.Helper()
	store, err := snapshot.Open(schema.SQLiteBackend, dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}
