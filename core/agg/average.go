package agg

import (
	"context"
	"fmt"
	"math"

	"github.com/huangsam/cohortstats/core/bucket"
	"github.com/huangsam/cohortstats/core/cohort"
	"github.com/huangsam/cohortstats/internal/contract"
	"github.com/huangsam/cohortstats/internal/sqlq"
	"github.com/huangsam/cohortstats/schema"
)

const daysPerYear = 365.25

// Humanize converts a day count to days under 90 days, to months under 24 months
// and to years beyond, each rounded to the nearest integer.
func Humanize(days float64) schema.Duration {
	if days < 90 {
		return schema.Duration{Value: int(math.Round(days)), Unit: "jours"}
	}
	if months := days / (daysPerYear / 12); months < 24 {
		return schema.Duration{Value: int(math.Round(months)), Unit: "mois"}
	}
	return schema.Duration{Value: int(math.Round(days / daysPerYear)), Unit: "ans"}
}

// AverageFollowDuration returns the mean follow duration of the filtered population.
func AverageFollowDuration(ctx context.Context, snap contract.Snapshot, sc schema.StatsContext, pop schema.Population) (schema.Average, error) {
	now := cohort.Now(ctx)
	return averageDays(ctx, snap, sc, pop, "agg.average_follow_duration", func(b *sqlq.Builder) string {
		return bucket.FollowDays(b, "f", now)
	})
}

// AverageWanderingDuration returns the mean wandering duration of the filtered
// persons with a wandering start.
func AverageWanderingDuration(ctx context.Context, snap contract.Snapshot, sc schema.StatsContext, pop schema.Population) (schema.Average, error) {
	now := cohort.Now(ctx)
	return averageDays(ctx, snap, sc, pop, "agg.average_wandering_duration", func(b *sqlq.Builder) string {
		return bucket.WanderingDays(b, "f", now)
	})
}

// AverageDateField returns the mean number of days since a date field of the
// catalog, over the filtered persons where it is set.
func AverageDateField(ctx context.Context, snap contract.Snapshot, sc schema.StatsContext, pop schema.Population, fieldID string) (schema.Average, error) {
	def, err := catalogField(sc, fieldID, schema.DateField, schema.DateWithTimeField, schema.DurationField)
	if err != nil {
		return schema.Average{}, err
	}
	now := cohort.Now(ctx)
	return averageDays(ctx, snap, sc, pop, "agg.average_date_field", func(b *sqlq.Builder) string {
		return bucket.DaysSince(b, b.Column("f", def.ID), now)
	})
}

// averageDays averages a day expression over filtered rows aliased f. NULL values
// are left out of both the count and the mean.
func averageDays(ctx context.Context, snap contract.Snapshot, sc schema.StatsContext, pop schema.Population, operation string, days func(b *sqlq.Builder) string) (schema.Average, error) {
	q := cohort.New(snap.Dialect(), sc, cohort.Logger(ctx)).WithFiltered(pop)
	q.Write(" SELECT COUNT(d.days) AS count, AVG(d.days) AS days FROM (SELECT ", days(q.Builder()), " AS days FROM filtered f) d")

	records, err := q.Select(ctx, snap, operation)
	if err != nil {
		return schema.Average{}, err
	}
	if len(records) == 0 {
		return schema.Average{Human: Humanize(0)}, nil
	}

	count, err := records[0].Int64("count")
	if err != nil {
		return schema.Average{}, err
	}
	mean, _, err := records[0].Float64("days")
	if err != nil {
		return schema.Average{}, err
	}
	return schema.Average{Count: count, Days: mean, Human: Humanize(mean)}, nil
}

// SummarizeNumberField returns the count, sum and mean of a number field of the
// catalog over the filtered persons where it is set.
func SummarizeNumberField(ctx context.Context, snap contract.Snapshot, sc schema.StatsContext, pop schema.Population, fieldID string) (schema.NumberSummary, error) {
	def, err := catalogField(sc, fieldID, schema.NumberField)
	if err != nil {
		return schema.NumberSummary{}, err
	}

	q := cohort.New(snap.Dialect(), sc, cohort.Logger(ctx)).WithFiltered(pop)
	col := q.Builder().Column("f", def.ID)
	q.Write(" SELECT COUNT(", col, ") AS count, SUM(", col, ") AS total, AVG(", col, ") AS average FROM filtered f")

	records, err := q.Select(ctx, snap, "agg.summarize_number_field")
	if err != nil {
		return schema.NumberSummary{}, err
	}
	if len(records) == 0 {
		return schema.NumberSummary{}, nil
	}

	var summary schema.NumberSummary
	if summary.Count, err = records[0].Int64("count"); err != nil {
		return schema.NumberSummary{}, err
	}
	if summary.Total, _, err = records[0].Float64("total"); err != nil {
		return schema.NumberSummary{}, err
	}
	if summary.Average, _, err = records[0].Float64("average"); err != nil {
		return schema.NumberSummary{}, err
	}
	return summary, nil
}

// catalogField returns the catalog entry of fieldID when its type is one of types.
func catalogField(sc schema.StatsContext, fieldID string, types ...schema.FieldType) (schema.FilterDefinition, error) {
	def, ok := sc.Definition(fieldID)
	if !ok {
		return def, fmt.Errorf("unknown field %q: not in the filter catalog", fieldID)
	}
	if err := sqlq.ValidateIdent(def.ID); err != nil {
		return def, err
	}
	for _, t := range types {
		if def.Type == t {
			return def, nil
		}
	}
	return def, fmt.Errorf("field %q has type %s, expected one of %v", fieldID, def.Type, types)
}
