// Package agg computes counts, grouped counts and averages over a filtered
// population. Every function renders the population and filtered CTEs through
// package cohort, so drill-downs see exactly the rows counted here.
package agg

import (
	"context"
	"fmt"
	"slices"

	"github.com/huangsam/cohortstats/core/cohort"
	"github.com/huangsam/cohortstats/core/population"
	"github.com/huangsam/cohortstats/internal/contract"
	"github.com/huangsam/cohortstats/schema"
)

// Count returns the size of the filtered population.
func Count(ctx context.Context, snap contract.Snapshot, sc schema.StatsContext, pop schema.Population) (int64, error) {
	q := cohort.New(snap.Dialect(), sc, cohort.Logger(ctx)).
		WithFiltered(pop).
		Write(" SELECT COUNT(*) AS count FROM filtered")
	return selectCount(ctx, snap, q, "agg.count")
}

// CountWithActivity returns the members of the filtered population with at least
// one non-deleted activity of kind dated in the period, or any such activity when
// the period is all time.
func CountWithActivity(ctx context.Context, snap contract.Snapshot, sc schema.StatsContext, pop schema.Population, kind schema.ActivityKind) (int64, error) {
	if !slices.Contains(schema.AllActivityKinds, kind) {
		return 0, fmt.Errorf("unknown activity kind %q", kind)
	}

	q := cohort.New(snap.Dialect(), sc, cohort.Logger(ctx)).WithFiltered(pop)
	q.Write(" SELECT COUNT(*) AS count FROM filtered f WHERE EXISTS (SELECT 1 FROM ", string(kind),
		" x WHERE x.person_id = f.id AND x.deleted_at IS NULL")
	if from, to, ok := sc.Period.Bounds(); ok {
		q.Write(" AND ", population.ActivityDated(q.Builder(), "x", kind, from, to))
	}
	q.Write(")")
	return selectCount(ctx, snap, q, "agg.count_with_activity")
}

// CountActivities returns the distinct activities of kind whose own team is one of
// the context teams, dated in the period and linked to a person of the filtered
// all population. Actions are owned through action_team, other kinds by team_id.
func CountActivities(ctx context.Context, snap contract.Snapshot, sc schema.StatsContext, kind schema.ActivityKind) (int64, error) {
	q := cohort.New(snap.Dialect(), sc, cohort.Logger(ctx)).WithFiltered(schema.AllPopulation)

	switch kind {
	case schema.ActionActivity:
		q.WithActions(nil).Write(" SELECT COUNT(*) AS count FROM actions")
	case schema.ConsultationActivity, schema.PassageActivity, schema.EncounterActivity:
		q.Write(" SELECT COUNT(DISTINCT x.id) AS count FROM ", string(kind),
			" x WHERE x.deleted_at IS NULL AND x.person_id IN (SELECT id FROM filtered) AND ")
		if len(sc.Teams) == 0 {
			q.Write("1 = 0")
		} else {
			q.Write("x.team_id IN (", q.Builder().List(sc.Teams), ")")
		}
		if from, to, ok := sc.Period.Bounds(); ok {
			q.Write(" AND ", population.ActivityDated(q.Builder(), "x", kind, from, to))
		}
	default:
		return 0, fmt.Errorf("cannot count %s activities: only action, consultation, passage and encounter have an owning team", kind)
	}
	return selectCount(ctx, snap, q, "agg.count_activities")
}

func selectCount(ctx context.Context, snap contract.Snapshot, q *cohort.Query, operation string) (int64, error) {
	records, err := q.Select(ctx, snap, operation)
	if err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 0, nil
	}
	return records[0].Int64("count")
}
