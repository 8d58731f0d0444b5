package drill

import (
	"context"
	"testing"

	"github.com/huangsam/cohortstats/core/agg"
	"github.com/huangsam/cohortstats/core/cohort"
	"github.com/huangsam/cohortstats/internal/snapshot/snapshottest"
	"github.com/huangsam/cohortstats/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testContext() context.Context {
	return cohort.WithNow(context.Background(), snapshottest.Now)
}

func ids(persons []schema.PersonRow) []string {
	out := make([]string, 0, len(persons))
	for _, p := range persons {
		out = append(out, p.ID)
	}
	return out
}

func TestDrillDowns(t *testing.T) {
	store := snapshottest.Open(t, snapshottest.CohortFixture)
	sc := snapshottest.CohortContext()
	ctx := testContext()
	pop := schema.FollowedPopulation

	tests := []struct {
		name     string
		run      func() ([]schema.PersonRow, error)
		expected []string
	}{
		{"age not filled", func() ([]schema.PersonRow, error) { return ByAge(ctx, store, sc, pop, schema.NotFilledLabel) }, []string{"P2", "P8"}},
		{"age toddler", func() ([]schema.PersonRow, error) { return ByAge(ctx, store, sc, pop, "- de 2 ans") }, []string{"P7"}},
		{"follow duration", func() ([]schema.PersonRow, error) { return ByFollowDuration(ctx, store, sc, pop, "6-12 mois") }, []string{"P1", "P2"}},
		{"wandering duration", func() ([]schema.PersonRow, error) { return ByWanderingDuration(ctx, store, sc, pop, "0-6 mois") }, []string{"P3"}},
		{"enum field", func() ([]schema.PersonRow, error) { return ByField(ctx, store, sc, pop, "gender", "Homme") }, []string{"P3", "P7"}},
		{"boolean field", func() ([]schema.PersonRow, error) { return ByField(ctx, store, sc, pop, "hasPet", schema.NoLabel) }, []string{"P2"}},
		{"boolean field not filled", func() ([]schema.PersonRow, error) {
			return ByField(ctx, store, sc, pop, "hasPet", schema.NotFilledLabel)
		}, []string{"P3", "P7", "P8"}},
		{"empty bucket", func() ([]schema.PersonRow, error) { return ByAge(ctx, store, sc, pop, "60+ ans") }, []string{}},
		{"out reason", func() ([]schema.PersonRow, error) { return ByOutOfActiveListReason(ctx, store, sc, pop, "Relogement") }, []string{"P2"}},
		{"persons by category", func() ([]schema.PersonRow, error) {
			return PersonsByActionCategory(ctx, store, sc, pop, "Santé", nil)
		}, []string{"P1", "P3"}},
		{"persons without category", func() ([]schema.PersonRow, error) {
			return PersonsByActionCategory(ctx, store, sc, pop, schema.NotFilledLabel, nil)
		}, []string{"P2"}},
		{"all", func() ([]schema.PersonRow, error) { return All(ctx, store, sc, pop) }, []string{"P1", "P2", "P3", "P7", "P8"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			persons, err := tt.run()
			require.NoError(t, err)
			assert.Equal(t, tt.expected, ids(persons))
		})
	}
}

func TestPersonRows(t *testing.T) {
	store := snapshottest.Open(t, snapshottest.CohortFixture)
	sc := snapshottest.CohortContext()

	persons, err := ByField(testContext(), store, sc, schema.FollowedPopulation, "gender", "Femme")
	require.NoError(t, err)
	require.Len(t, persons, 1)

	p1 := persons[0]
	assert.Equal(t, "P1", p1.ID)
	assert.Equal(t, "A,B", p1.AssignedTeams)
	assert.Equal(t, "Alice", p1.Fields["name"])
	assert.Equal(t, "Rue", p1.Fields["housing"])
	assert.NotContains(t, p1.Fields, "id")
	assert.NotContains(t, p1.Fields, "assigned_teams")
	assert.NotContains(t, p1.Fields, "bucket_key")
	assert.NotContains(t, p1.Fields, "bucket_value")
}

func TestActionsByCategory(t *testing.T) {
	store := snapshottest.Open(t, snapshottest.CohortFixture)
	sc := snapshottest.CohortContext()

	actions, err := ActionsByCategory(testContext(), store, sc, "Santé", nil)
	require.NoError(t, err)
	require.Len(t, actions, 2)

	assert.Equal(t, "A1", actions[0].ID)
	assert.Equal(t, "P3", actions[0].PersonID)
	assert.Equal(t, []string{"Santé", "Administratif"}, actions[0].Categories)
	assert.Equal(t, "A", actions[0].Teams)

	assert.Equal(t, "A2", actions[1].ID)
	assert.Equal(t, "A,B", actions[1].Teams)
	assert.Equal(t, "TODO", actions[1].Status)
	assert.Empty(t, actions[1].CompletedAt)

	actions, err = ActionsByCategory(testContext(), store, sc, "Santé", []string{"DONE"})
	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.Equal(t, "A1", actions[0].ID)
}

func TestCountDrillParity(t *testing.T) {
	store := snapshottest.Open(t, snapshottest.CohortFixture)
	ctx := testContext()

	contexts := map[string]schema.StatsContext{"plain": snapshottest.CohortContext()}
	filtered := snapshottest.CohortContext()
	filtered.Filters = []schema.Filter{{ID: "gender", Value: schema.ListValue(schema.NotFilledLabel, "Homme")}}
	contexts["filtered"] = filtered
	allTime := snapshottest.CohortContext()
	allTime.Period = schema.Period{}
	contexts["all time"] = allTime

	type partition struct {
		group func(sc schema.StatsContext, pop schema.Population) ([]schema.GroupCount, error)
		drill func(sc schema.StatsContext, pop schema.Population, label string) ([]schema.PersonRow, error)
	}
	partitions := map[string]partition{
		"age": {
			func(sc schema.StatsContext, pop schema.Population) ([]schema.GroupCount, error) { return agg.GroupByAge(ctx, store, sc, pop) },
			func(sc schema.StatsContext, pop schema.Population, l string) ([]schema.PersonRow, error) { return ByAge(ctx, store, sc, pop, l) },
		},
		"follow": {
			func(sc schema.StatsContext, pop schema.Population) ([]schema.GroupCount, error) {
				return agg.GroupByFollowDuration(ctx, store, sc, pop)
			},
			func(sc schema.StatsContext, pop schema.Population, l string) ([]schema.PersonRow, error) {
				return ByFollowDuration(ctx, store, sc, pop, l)
			},
		},
		"wandering": {
			func(sc schema.StatsContext, pop schema.Population) ([]schema.GroupCount, error) {
				return agg.GroupByWanderingDuration(ctx, store, sc, pop)
			},
			func(sc schema.StatsContext, pop schema.Population, l string) ([]schema.PersonRow, error) {
				return ByWanderingDuration(ctx, store, sc, pop, l)
			},
		},
		"housing": {
			func(sc schema.StatsContext, pop schema.Population) ([]schema.GroupCount, error) {
				return agg.GroupByField(ctx, store, sc, pop, "housing")
			},
			func(sc schema.StatsContext, pop schema.Population, l string) ([]schema.PersonRow, error) {
				return ByField(ctx, store, sc, pop, "housing", l)
			},
		},
		"isVeteran": {
			func(sc schema.StatsContext, pop schema.Population) ([]schema.GroupCount, error) {
				return agg.GroupByField(ctx, store, sc, pop, "isVeteran")
			},
			func(sc schema.StatsContext, pop schema.Population, l string) ([]schema.PersonRow, error) {
				return ByField(ctx, store, sc, pop, "isVeteran", l)
			},
		},
	}

	for scName, sc := range contexts {
		for _, pop := range []schema.Population{schema.CreatedPopulation, schema.FollowedPopulation, schema.AllPopulation} {
			count, err := agg.Count(ctx, store, sc, pop)
			require.NoError(t, err)

			for name, p := range partitions {
				groups, err := p.group(sc, pop)
				require.NoError(t, err)

				var drilled int64
				for _, g := range groups {
					persons, err := p.drill(sc, pop, g.Label)
					require.NoError(t, err)
					assert.Len(t, persons, int(g.Count), "%s/%s/%s label %s", scName, pop, name, g.Label)
					drilled += int64(len(persons))
				}
				assert.Equal(t, count, drilled, "%s/%s/%s", scName, pop, name)
			}
		}
	}
}

func TestWorkedExampleDrill(t *testing.T) {
	store := snapshottest.Open(t, snapshottest.WorkedExampleFixture)
	sc := schema.StatsContext{
		Teams:  []string{"T1"},
		Period: schema.Period{From: "2023-01-01", To: "2023-12-31"},
	}

	persons, err := ByAge(testContext(), store, sc, schema.CreatedPopulation, schema.NotFilledLabel)
	require.NoError(t, err)
	assert.Equal(t, []string{"P2"}, ids(persons))
	assert.Equal(t, "T1", persons[0].AssignedTeams)
}

func TestSortList(t *testing.T) {
	assert.Equal(t, "", sortList(""))
	assert.Equal(t, "A,B,C", sortList("C,A,B"))
	assert.Equal(t, []string{"a", "b"}, decodeList(`["a","b"]`))
	assert.Nil(t, decodeList(""))
	assert.Equal(t, []string{"raw"}, decodeList("raw"))
}
