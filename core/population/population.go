// Package population resolves the cohort of persons a statistic is computed over.
//
// A cohort is rendered as a `population` CTE so that aggregations and drill-downs
// built on top of it share the exact same membership rules.
package population

import (
	"context"
	"fmt"
	"strings"

	"github.com/huangsam/cohortstats/internal/contract"
	"github.com/huangsam/cohortstats/internal/sqlq"
	"github.com/huangsam/cohortstats/schema"
)

// WriteCTE appends `population AS (...)` to b: every non-deleted person of the
// cohort kind for the period and teams.
func WriteCTE(b *sqlq.Builder, period schema.Period, teams []string, kind schema.Population) error {
	if _, ok := schema.ValidPopulations[kind]; !ok {
		return fmt.Errorf("invalid population %q. Must be created, followed or all", kind)
	}

	b.Write("population AS (SELECT p.* FROM person p WHERE p.deleted_at IS NULL")
	if kind != schema.AllPopulation {
		from, to, bounded := period.Bounds()
		b.Write(" AND ", teamCondition(b, "p", teams, from, to, bounded))
		if bounded {
			switch kind {
			case schema.CreatedPopulation:
				b.Write(" AND ", followStartWithin(b, "p", from, to))
			case schema.FollowedPopulation:
				b.Write(" AND ", followedWithin(b, "p", from, to))
			}
		}
	}
	b.Write(")")
	return nil
}

// teamCondition keeps persons assigned to one of teams. A bounded period needs an
// assignment overlapping it; otherwise the assignment must still be open.
func teamCondition(b *sqlq.Builder, alias string, teams []string, from, to string, bounded bool) string {
	if len(teams) == 0 {
		return "1 = 0"
	}
	cond := "EXISTS (SELECT 1 FROM person_history_team t WHERE t.person_id = " + alias + ".id AND t.team_id IN (" + b.List(teams) + ")"
	if !bounded {
		return cond + " AND t.to_date IS NULL)"
	}
	cond += " AND t.from_date < " + b.Arg(to)
	return cond + " AND (t.to_date IS NULL OR t.to_date > " + b.Arg(from) + "))"
}

func followStartWithin(b *sqlq.Builder, alias, from, to string) string {
	return "COALESCE(NULLIF(" + alias + ".followed_since, ''), " + alias + ".created_at) BETWEEN " + b.Arg(from) + " AND " + b.Arg(to)
}

// followedWithin holds when the follow starts in the period, a history row starts in
// the period, or an activity of any kind is dated in the period.
func followedWithin(b *sqlq.Builder, alias, from, to string) string {
	parts := []string{
		followStartWithin(b, alias, from, to),
		"EXISTS (SELECT 1 FROM person_history h WHERE h.person_id = " + alias + ".id AND h.from_date BETWEEN " + b.Arg(from) + " AND " + b.Arg(to) + ")",
	}
	for _, kind := range schema.AllActivityKinds {
		parts = append(parts, "EXISTS (SELECT 1 FROM "+string(kind)+" x WHERE x.person_id = "+alias+".id AND x.deleted_at IS NULL AND "+
			ActivityDated(b, "x", kind, from, to)+")")
	}
	return "(" + strings.Join(parts, " OR ") + ")"
}

// ActivityDated renders the condition placing an activity row in [from, to].
// Actions and consultations count by due, completion or creation date; passages,
// encounters and comments by their date or creation; treatments and place visits
// by creation.
func ActivityDated(b *sqlq.Builder, alias string, kind schema.ActivityKind, from, to string) string {
	between := func(expr string) string {
		return expr + " BETWEEN " + b.Arg(from) + " AND " + b.Arg(to)
	}
	switch kind {
	case schema.ActionActivity, schema.ConsultationActivity:
		return "(" + between(alias+".due_at") + " OR " + between(alias+".completed_at") + " OR " + between(alias+".created_at") + ")"
	case schema.PassageActivity, schema.EncounterActivity, schema.CommentActivity:
		return "(" + between(alias+".date") + " OR " + between(alias+".created_at") + ")"
	default:
		return between(alias + ".created_at")
	}
}

// Resolve returns the sorted ids of the cohort.
func Resolve(ctx context.Context, snap contract.Snapshot, period schema.Period, teams []string, kind schema.Population) ([]string, error) {
	b := sqlq.NewBuilder(snap.Dialect())
	b.Write("WITH ")
	if err := WriteCTE(b, period, teams, kind); err != nil {
		return nil, err
	}
	b.Write(" SELECT id FROM population ORDER BY id")

	records, err := snap.Select(ctx, "population.resolve", b.SQL(), b.Args()...)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s population: %w", kind, err)
	}
	ids := make([]string, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.String("id"))
	}
	return ids, nil
}
