// Package drill returns the records behind one bucket of a grouped aggregation.
// Each function renders the same CTE chain as its agg counterpart and selects the
// rows of one label instead of counting them.
package drill

import (
	"context"
	"encoding/json"
	"slices"
	"strings"

	"github.com/huangsam/cohortstats/core/agg"
	"github.com/huangsam/cohortstats/core/bucket"
	"github.com/huangsam/cohortstats/core/cohort"
	"github.com/huangsam/cohortstats/internal/contract"
	"github.com/huangsam/cohortstats/schema"
)

// ByAge returns the filtered persons in the age bucket label.
func ByAge(ctx context.Context, snap contract.Snapshot, sc schema.StatsContext, pop schema.Population, label string) ([]schema.PersonRow, error) {
	return byKey(ctx, snap, sc, pop, bucket.Age(cohort.Now(ctx)), label)
}

// ByFollowDuration returns the filtered persons in the follow duration bucket label.
func ByFollowDuration(ctx context.Context, snap contract.Snapshot, sc schema.StatsContext, pop schema.Population, label string) ([]schema.PersonRow, error) {
	return byKey(ctx, snap, sc, pop, bucket.FollowDuration(cohort.Now(ctx)), label)
}

// ByWanderingDuration returns the filtered persons in the wandering duration bucket label.
func ByWanderingDuration(ctx context.Context, snap contract.Snapshot, sc schema.StatsContext, pop schema.Population, label string) ([]schema.PersonRow, error) {
	return byKey(ctx, snap, sc, pop, bucket.WanderingDuration(cohort.Now(ctx)), label)
}

// ByField returns the filtered persons whose field value falls in label.
func ByField(ctx context.Context, snap contract.Snapshot, sc schema.StatsContext, pop schema.Population, fieldID, label string) ([]schema.PersonRow, error) {
	key, err := agg.FieldKey(sc, fieldID)
	if err != nil {
		return nil, err
	}
	return byKey(ctx, snap, sc, pop, key, label)
}

func byKey(ctx context.Context, snap contract.Snapshot, sc schema.StatsContext, pop schema.Population, key bucket.Key, label string) ([]schema.PersonRow, error) {
	q := cohort.New(snap.Dialect(), sc, cohort.Logger(ctx)).
		WithFiltered(pop).
		WithBucketed(key)
	q.Write(" SELECT x.*, ", assignedTeams(q), " AS assigned_teams FROM bucketed x WHERE x.bucket_key = ", q.Arg(label), " ORDER BY x.id")

	records, err := q.Select(ctx, snap, "drill.by_"+string(key.Grouping))
	if err != nil {
		return nil, err
	}
	return toPersons(records), nil
}

// ByOutOfActiveListReason returns the filtered persons out of the active list
// with reason among their reasons.
func ByOutOfActiveListReason(ctx context.Context, snap contract.Snapshot, sc schema.StatsContext, pop schema.Population, reason string) ([]schema.PersonRow, error) {
	q := cohort.New(snap.Dialect(), sc, cohort.Logger(ctx)).
		WithFiltered(pop).
		WithOutReasons()
	q.Write(" SELECT x.*, ", assignedTeams(q), " AS assigned_teams FROM filtered x",
		" WHERE x.id IN (SELECT r.id FROM out_reasons r WHERE r.reason = ", q.Arg(reason), ") ORDER BY x.id")

	records, err := q.Select(ctx, snap, "drill.by_out_reason")
	if err != nil {
		return nil, err
	}
	return toPersons(records), nil
}

// PersonsByActionCategory returns the filtered persons with at least one action
// in category.
func PersonsByActionCategory(ctx context.Context, snap contract.Snapshot, sc schema.StatsContext, pop schema.Population, category string, statuses []string) ([]schema.PersonRow, error) {
	q := cohort.New(snap.Dialect(), sc, cohort.Logger(ctx)).
		WithFiltered(pop).
		WithActions(statuses).
		WithActionCategories()
	q.Write(" SELECT x.*, ", assignedTeams(q), " AS assigned_teams FROM filtered x",
		" WHERE x.id IN (SELECT ac.person_id FROM action_categories ac WHERE ac.category = ", q.Arg(category), ") ORDER BY x.id")

	records, err := q.Select(ctx, snap, "drill.persons_by_action_category")
	if err != nil {
		return nil, err
	}
	return toPersons(records), nil
}

// ActionsByCategory returns the actions counted in category by
// agg.GroupActionsByCategory.
func ActionsByCategory(ctx context.Context, snap contract.Snapshot, sc schema.StatsContext, category string, statuses []string) ([]schema.ActionRow, error) {
	q := cohort.New(snap.Dialect(), sc, cohort.Logger(ctx)).
		WithFiltered(schema.AllPopulation).
		WithActions(statuses).
		WithActionCategories()
	q.Write(" SELECT id, person_id, status, categories, due_at, completed_at, created_at, teams",
		" FROM action_categories WHERE category = ", q.Arg(category), " ORDER BY created_at, id")

	records, err := q.Select(ctx, snap, "drill.actions_by_category")
	if err != nil {
		return nil, err
	}

	actions := make([]schema.ActionRow, 0, len(records))
	for _, r := range records {
		actions = append(actions, schema.ActionRow{
			ID:          r.String("id"),
			PersonID:    r.String("person_id"),
			Status:      r.String("status"),
			Categories:  decodeList(r.String("categories")),
			DueAt:       r.String("due_at"),
			CompletedAt: r.String("completed_at"),
			CreatedAt:   r.String("created_at"),
			Teams:       sortList(r.String("teams")),
		})
	}
	return actions, nil
}

// All returns the whole filtered population.
func All(ctx context.Context, snap contract.Snapshot, sc schema.StatsContext, pop schema.Population) ([]schema.PersonRow, error) {
	q := cohort.New(snap.Dialect(), sc, cohort.Logger(ctx)).WithFiltered(pop)
	q.Write(" SELECT x.*, ", assignedTeams(q), " AS assigned_teams FROM filtered x ORDER BY x.id")

	records, err := q.Select(ctx, snap, "drill.all")
	if err != nil {
		return nil, err
	}
	return toPersons(records), nil
}

// assignedTeams renders the teams a person row x is currently assigned to.
func assignedTeams(q *cohort.Query) string {
	return "(SELECT " + q.Builder().Dialect().GroupConcat("t.team_id") +
		" FROM person_history_team t WHERE t.person_id = x.id AND t.to_date IS NULL)"
}

// internalColumns are query helpers that are not person fields.
var internalColumns = []string{"id", "assigned_teams", "bucket_key", "bucket_value"}

func toPersons(records []schema.Record) []schema.PersonRow {
	persons := make([]schema.PersonRow, 0, len(records))
	for _, r := range records {
		fields := make(map[string]any, len(r))
		for col, v := range r {
			if !slices.Contains(internalColumns, col) {
				fields[col] = v
			}
		}
		persons = append(persons, schema.PersonRow{
			ID:            r.String("id"),
			AssignedTeams: sortList(r.String("assigned_teams")),
			Fields:        fields,
		})
	}
	return persons
}

// sortList sorts a comma-separated list.
func sortList(s string) string {
	if s == "" {
		return ""
	}
	values := strings.Split(s, ",")
	slices.Sort(values)
	return strings.Join(values, ",")
}

func decodeList(s string) []string {
	if s == "" {
		return nil
	}
	var values []string
	if err := json.Unmarshal([]byte(s), &values); err != nil {
		return []string{s}
	}
	return values
}
