// Package snapshottest provides seeded in-memory snapshots for tests.
package snapshottest

import (
	"context"
	_ "embed"
	"testing"
	"time"

	"github.com/huangsam/cohortstats/internal/snapshot"
	"github.com/huangsam/cohortstats/schema"
	"github.com/stretchr/testify/require"
)

// Now is the evaluation instant the fixtures are written against.
var Now = time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)

// CohortFixture covers every population rule, field type and activity kind.
//
//go:embed testdata/cohort.yaml
var CohortFixture []byte

// WorkedExampleFixture holds three persons across two teams in 2023.
//
//go:embed testdata/worked_example.yaml
var WorkedExampleFixture []byte

// Open returns a migrated in-memory SQLite snapshot seeded with fixture.
func Open(t testing.TB, fixture []byte) *snapshot.Store {
	t.Helper()

	store, err := snapshot.Open(schema.SQLiteBackend, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	_, err = store.Migrate(-1)
	require.NoError(t, err)

	f, err := snapshot.ParseFixture(fixture)
	require.NoError(t, err)
	_, err = store.Seed(context.Background(), f, Now)
	require.NoError(t, err)
	return store
}

// CohortContext returns the context matching CohortFixture: its catalog,
// team A and the year 2024.
func CohortContext() schema.StatsContext {
	return schema.StatsContext{
		BaseFilters: []schema.FilterDefinition{
			{ID: "gender", Type: schema.EnumField, Label: "Genre", Options: []string{"Femme", "Homme"}},
			{ID: "housing", Type: schema.EnumField, Label: "Hébergement", Options: []string{"Rue", "Squat", "Hébergé"}},
			{ID: "hasPet", Type: schema.BooleanField, Label: "Animal"},
			{ID: "isVeteran", Type: schema.YesNoField, Label: "Ancien combattant"},
			{ID: "lastVisit", Type: schema.DateField, Label: "Dernière visite"},
			{ID: "notes", Type: schema.TextField, Label: "Notes"},
			{ID: "income", Type: schema.NumberField, Label: "Revenus"},
		},
		Teams:  []string{"A"},
		Period: schema.Period{From: "2024-01-01", To: "2024-12-31"},
	}
}
