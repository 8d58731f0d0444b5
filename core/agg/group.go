package agg

import (
	"context"
	"fmt"

	"github.com/huangsam/cohortstats/core/bucket"
	"github.com/huangsam/cohortstats/core/cohort"
	"github.com/huangsam/cohortstats/internal/contract"
	"github.com/huangsam/cohortstats/schema"
)

// GroupByAge counts the filtered population per age bucket.
func GroupByAge(ctx context.Context, snap contract.Snapshot, sc schema.StatsContext, pop schema.Population) ([]schema.GroupCount, error) {
	return groupByKey(ctx, snap, sc, pop, bucket.Age(cohort.Now(ctx)))
}

// GroupByFollowDuration counts the filtered population per follow duration bucket.
func GroupByFollowDuration(ctx context.Context, snap contract.Snapshot, sc schema.StatsContext, pop schema.Population) ([]schema.GroupCount, error) {
	return groupByKey(ctx, snap, sc, pop, bucket.FollowDuration(cohort.Now(ctx)))
}

// GroupByWanderingDuration counts the filtered population per wandering duration bucket.
func GroupByWanderingDuration(ctx context.Context, snap contract.Snapshot, sc schema.StatsContext, pop schema.Population) ([]schema.GroupCount, error) {
	return groupByKey(ctx, snap, sc, pop, bucket.WanderingDuration(cohort.Now(ctx)))
}

// GroupByField counts the filtered population per value of an enum, boolean or
// yes-no field of the catalog.
func GroupByField(ctx context.Context, snap contract.Snapshot, sc schema.StatsContext, pop schema.Population, fieldID string) ([]schema.GroupCount, error) {
	key, err := FieldKey(sc, fieldID)
	if err != nil {
		return nil, err
	}
	return groupByKey(ctx, snap, sc, pop, key)
}

// FieldKey returns the bucket key of a catalog field.
func FieldKey(sc schema.StatsContext, fieldID string) (bucket.Key, error) {
	def, ok := sc.Definition(fieldID)
	if !ok {
		return bucket.Key{}, fmt.Errorf("unknown field %q: not in the filter catalog", fieldID)
	}
	return bucket.Field(def)
}

func groupByKey(ctx context.Context, snap contract.Snapshot, sc schema.StatsContext, pop schema.Population, key bucket.Key) ([]schema.GroupCount, error) {
	q := cohort.New(snap.Dialect(), sc, cohort.Logger(ctx)).
		WithFiltered(pop).
		WithBucketed(key).
		Write(" SELECT bucket_key AS label, COUNT(*) AS count FROM bucketed GROUP BY bucket_key")

	records, err := q.Select(ctx, snap, "agg.group_by_"+string(key.Grouping))
	if err != nil {
		return nil, err
	}
	return toGroups(records, key)
}

// GroupByOutOfActiveListReason counts the filtered persons out of the active list
// per recorded reason. A person with several reasons counts once in each.
func GroupByOutOfActiveListReason(ctx context.Context, snap contract.Snapshot, sc schema.StatsContext, pop schema.Population) ([]schema.GroupCount, error) {
	q := cohort.New(snap.Dialect(), sc, cohort.Logger(ctx)).
		WithFiltered(pop).
		WithOutReasons().
		Write(" SELECT reason AS label, COUNT(DISTINCT id) AS count FROM out_reasons GROUP BY reason")

	records, err := q.Select(ctx, snap, "agg.group_by_out_reason")
	if err != nil {
		return nil, err
	}
	return toGroups(records, bucket.Key{})
}

// GroupActionsByCategory counts the actions of the context teams per category.
// Actions are linked to the filtered all population; categories and statuses
// restrict the result when set.
func GroupActionsByCategory(ctx context.Context, snap contract.Snapshot, sc schema.StatsContext, categories, statuses []string) ([]schema.GroupCount, error) {
	return groupByCategory(ctx, snap, sc, schema.AllPopulation, categories, statuses, "id", "agg.group_actions_by_category")
}

// GroupPersonsByActionCategory counts the filtered persons with at least one
// action per category.
func GroupPersonsByActionCategory(ctx context.Context, snap contract.Snapshot, sc schema.StatsContext, pop schema.Population, categories, statuses []string) ([]schema.GroupCount, error) {
	return groupByCategory(ctx, snap, sc, pop, categories, statuses, "person_id", "agg.group_persons_by_action_category")
}

func groupByCategory(ctx context.Context, snap contract.Snapshot, sc schema.StatsContext, pop schema.Population, categories, statuses []string, counted, operation string) ([]schema.GroupCount, error) {
	q := cohort.New(snap.Dialect(), sc, cohort.Logger(ctx)).
		WithFiltered(pop).
		WithActions(statuses).
		WithActionCategories().
		Write(" SELECT category AS label, COUNT(DISTINCT ", counted, ") AS count FROM action_categories")
	if len(categories) > 0 {
		q.Write(" WHERE category IN (", q.Builder().List(categories), ")")
	}
	q.Write(" GROUP BY category")

	records, err := q.Select(ctx, snap, operation)
	if err != nil {
		return nil, err
	}
	return toGroups(records, bucket.Key{})
}

// toGroups converts label/count rows into groups sorted in key order.
func toGroups(records []schema.Record, key bucket.Key) ([]schema.GroupCount, error) {
	counts := make(map[string]int64, len(records))
	labels := make([]string, 0, len(records))
	for _, r := range records {
		count, err := r.Int64("count")
		if err != nil {
			return nil, err
		}
		label := r.String("label")
		if _, seen := counts[label]; !seen {
			labels = append(labels, label)
		}
		counts[label] += count
	}

	key.Order(labels)
	groups := make([]schema.GroupCount, 0, len(labels))
	for _, label := range labels {
		groups = append(groups, schema.GroupCount{Label: label, Count: counts[label]})
	}
	return groups, nil
}

// Total sums the counts of groups.
func Total(groups []schema.GroupCount) int64 {
	var total int64
	for _, g := range groups {
		total += g.Count
	}
	return total
}

