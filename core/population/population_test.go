package population

import (
	"context"
	"testing"

	"github.com/huangsam/cohortstats/internal/snapshot/snapshottest"
	"github.com/huangsam/cohortstats/internal/sqlq"
	"github.com/huangsam/cohortstats/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var year2024 = schema.Period{From: "2024-01-01", To: "2024-12-31"}

func TestResolve(t *testing.T) {
	store := snapshottest.Open(t, snapshottest.CohortFixture)
	ctx := context.Background()

	tests := []struct {
		name     string
		period   schema.Period
		teams    []string
		kind     schema.Population
		expected []string
	}{
		{"created in period", year2024, []string{"A"}, schema.CreatedPopulation, []string{"P1", "P2"}},
		{"followed in period", year2024, []string{"A"}, schema.FollowedPopulation, []string{"P1", "P2", "P3", "P7", "P8"}},
		{"all ignores teams", year2024, []string{"A"}, schema.AllPopulation, []string{"P1", "P2", "P3", "P4", "P5", "P7", "P8"}},
		{"created team B", year2024, []string{"B"}, schema.CreatedPopulation, []string{"P1", "P5"}},
		{"all time created", schema.Period{}, []string{"A"}, schema.CreatedPopulation, []string{"P1", "P2", "P3", "P4", "P8"}},
		{"all time followed", schema.Period{}, []string{"A"}, schema.FollowedPopulation, []string{"P1", "P2", "P3", "P4", "P8"}},
		{"one-sided period is all time", schema.Period{From: "2024-01-01"}, []string{"A"}, schema.CreatedPopulation, []string{"P1", "P2", "P3", "P4", "P8"}},
		{"no teams created", year2024, nil, schema.CreatedPopulation, []string{}},
		{"no teams followed", year2024, []string{}, schema.FollowedPopulation, []string{}},
		{"no teams all", year2024, nil, schema.AllPopulation, []string{"P1", "P2", "P3", "P4", "P5", "P7", "P8"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ids, err := Resolve(ctx, store, tt.period, tt.teams, tt.kind)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, ids)
		})
	}
}

// backdatedFixture holds persons followed long before 2024 whose only 2024 trace is
// an activity created in 2024 but dated outside of it.
var backdatedFixture = []byte(`
persons:
  - id: Q1
    followedSince: "2020-01-01"
    createdAt: "2020-01-01T00:00:00.000Z"
    teams:
      - {team: A, from: "2020-01-01"}
  - id: Q2
    followedSince: "2020-01-01"
    createdAt: "2020-01-01T00:00:00.000Z"
    teams:
      - {team: A, from: "2020-01-01"}
  - id: Q3
    followedSince: "2020-01-01"
    createdAt: "2020-01-01T00:00:00.000Z"
    teams:
      - {team: A, from: "2020-01-01"}
  - id: Q4
    followedSince: "2020-01-01"
    createdAt: "2020-01-01T00:00:00.000Z"
    teams:
      - {team: A, from: "2020-01-01"}
passages:
  - {id: PS1, person: Q1, team: A, date: "2023-06-01", createdAt: "2024-03-01"}
  - {id: PS2, person: Q4, team: A, date: "2023-06-01", createdAt: "2023-06-01"}
encounters:
  - {id: E1, person: Q2, team: A, date: "2024-06-01", createdAt: "2025-01-01"}
comments:
  - {id: CM1, person: Q3, team: A, date: "2022-01-01", createdAt: "2024-11-11"}
`)

func TestResolveFollowedByActivityDateOrCreation(t *testing.T) {
	store := snapshottest.Open(t, backdatedFixture)

	ids, err := Resolve(context.Background(), store, year2024, []string{"A"}, schema.FollowedPopulation)
	require.NoError(t, err)
	assert.Equal(t, []string{"Q1", "Q2", "Q3"}, ids)
}

func TestResolveInvalidPopulation(t *testing.T) {
	store := snapshottest.Open(t, snapshottest.CohortFixture)
	_, err := Resolve(context.Background(), store, year2024, []string{"A"}, "everyone")
	assert.Error(t, err)
}

func TestResolveWorkedExample(t *testing.T) {
	store := snapshottest.Open(t, snapshottest.WorkedExampleFixture)
	period := schema.Period{From: "2023-01-01", To: "2023-12-31"}

	ids, err := Resolve(context.Background(), store, period, []string{"T1"}, schema.CreatedPopulation)
	require.NoError(t, err)
	assert.Equal(t, []string{"P1", "P2"}, ids)
}

func TestCreatedIsSubsetOfFollowed(t *testing.T) {
	store := snapshottest.Open(t, snapshottest.CohortFixture)
	ctx := context.Background()

	created, err := Resolve(ctx, store, year2024, []string{"A", "B"}, schema.CreatedPopulation)
	require.NoError(t, err)
	followed, err := Resolve(ctx, store, year2024, []string{"A", "B"}, schema.FollowedPopulation)
	require.NoError(t, err)
	assert.Subset(t, followed, created)
}

func TestWriteCTEBindsEveryValue(t *testing.T) {
	b := sqlq.NewBuilder(sqlq.Postgres)
	require.NoError(t, WriteCTE(b, year2024, []string{"A", "B"}, schema.CreatedPopulation))

	sql := b.SQL()
	assert.Contains(t, sql, "t.team_id IN ($1, $2)")
	assert.Contains(t, sql, "t.from_date < $3")
	assert.Contains(t, sql, "t.to_date > $4")
	assert.Contains(t, sql, "BETWEEN $5 AND $6")
	assert.Equal(t, []any{"A", "B",
		"2024-12-31T23:59:59.999Z", "2024-01-01T00:00:00.000Z",
		"2024-01-01T00:00:00.000Z", "2024-12-31T23:59:59.999Z"}, b.Args())
}

func TestActivityDated(t *testing.T) {
	tests := []struct {
		kind     schema.ActivityKind
		expected string
		args     int
	}{
		{schema.ActionActivity, "(x.due_at BETWEEN ? AND ? OR x.completed_at BETWEEN ? AND ? OR x.created_at BETWEEN ? AND ?)", 6},
		{schema.ConsultationActivity, "(x.due_at BETWEEN ? AND ? OR x.completed_at BETWEEN ? AND ? OR x.created_at BETWEEN ? AND ?)", 6},
		{schema.PassageActivity, "(x.date BETWEEN ? AND ? OR x.created_at BETWEEN ? AND ?)", 4},
		{schema.EncounterActivity, "(x.date BETWEEN ? AND ? OR x.created_at BETWEEN ? AND ?)", 4},
		{schema.CommentActivity, "(x.date BETWEEN ? AND ? OR x.created_at BETWEEN ? AND ?)", 4},
		{schema.TreatmentActivity, "x.created_at BETWEEN ? AND ?", 2},
		{schema.PlaceActivity, "x.created_at BETWEEN ? AND ?", 2},
	}

	for _, tt := range tests {
		b := sqlq.NewBuilder(sqlq.SQLite)
		assert.Equal(t, tt.expected, ActivityDated(b, "x", tt.kind, "from", "to"), tt.kind)
		assert.Len(t, b.Args(), tt.args)
	}
}

func TestStateAt(t *testing.T) {
	store := snapshottest.Open(t, snapshottest.CohortFixture)
	ctx := context.Background()

	row, ok, err := StateAt(ctx, store, "P1", "2024-07-01")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "P1", row.PersonID)
	assert.Equal(t, "2024-06-01T00:00:00.000Z", row.FromDate)
	assert.JSONEq(t, `{"housing":"Rue","note":"corrected"}`, row.Data)

	row, ok, err = StateAt(ctx, store, "P1", "2024-03-01T12:00:00Z")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "2024-06-01T00:00:00.000Z", row.ToDate)
	assert.JSONEq(t, `{"housing":"Squat"}`, row.Data)

	// The closing bound is exclusive
	row, ok, err = StateAt(ctx, store, "P1", "2024-06-01")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Empty(t, row.ToDate)

	_, ok, err = StateAt(ctx, store, "P1", "2023-01-01")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = StateAt(ctx, store, "P404", "2024-07-01")
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = StateAt(ctx, store, "P1", "yesterday-ish")
	assert.Error(t, err)

	_, _, err = StateAt(ctx, store, "P1", "")
	assert.Error(t, err)
}

func TestStateAtEveryPerson(t *testing.T) {
	store := snapshottest.Open(t, snapshottest.CohortFixture)

	b := sqlq.NewBuilder(store.Dialect())
	b.Write("WITH ")
	WriteStateAtCTE(b, "2024-07-01T00:00:00.000Z", "")
	b.Write(" SELECT person_id FROM state_at ORDER BY person_id")

	records, err := store.Select(context.Background(), "test.state_at", b.SQL(), b.Args()...)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "P1", records[0].String("person_id"))
	assert.Equal(t, "P7", records[1].String("person_id"))
}
