// Package bucket defines the ordered scales and key expressions that split a
// population into groups. Aggregations and drill-downs render the same key.
package bucket

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/huangsam/cohortstats/internal/sqlq"
	"github.com/huangsam/cohortstats/schema"
)

// Threshold labels every value strictly below Upper not claimed by a previous threshold.
type Threshold struct {
	Upper int64
	Label string
}

// Scale is an ordered list of thresholds. Values above the last threshold get Overflow;
// a NULL value gets schema.NotFilledLabel.
type Scale struct {
	Thresholds []Threshold
	Overflow   string
}

// AgeScale buckets ages in years.
var AgeScale = Scale{
	Thresholds: []Threshold{
		{3, "- de 2 ans"},
		{18, "3 - 17 ans"},
		{25, "18 - 24 ans"},
		{45, "25 - 44 ans"},
		{60, "45 - 59 ans"},
	},
	Overflow: "60+ ans",
}

// DurationScale buckets durations in days.
var DurationScale = Scale{
	Thresholds: []Threshold{
		{180, "0-6 mois"},
		{365, "6-12 mois"},
		{730, "1-2 ans"},
		{1825, "2-5 ans"},
		{3650, "5-10 ans"},
	},
	Overflow: "+ 10 ans",
}

// Label returns the bucket of v. A nil v is not filled.
func (s Scale) Label(v *int64) string {
	if v == nil {
		return schema.NotFilledLabel
	}
	for _, t := range s.Thresholds {
		if *v < t.Upper {
			return t.Label
		}
	}
	return s.Overflow
}

// Labels returns every label of the scale in display order.
func (s Scale) Labels() []string {
	labels := make([]string, 0, len(s.Thresholds)+2)
	for _, t := range s.Thresholds {
		labels = append(labels, t.Label)
	}
	return append(labels, s.Overflow, schema.NotFilledLabel)
}

// Case renders Label as a CASE expression over expr, binding bounds and labels on b.
func (s Scale) Case(b *sqlq.Builder, expr string) string {
	var sb strings.Builder
	sb.WriteString("CASE WHEN " + expr + " IS NULL THEN " + b.Arg(schema.NotFilledLabel))
	for _, t := range s.Thresholds {
		sb.WriteString(" WHEN " + expr + " < " + b.Arg(t.Upper) + " THEN " + b.Arg(t.Label))
	}
	sb.WriteString(" ELSE " + b.Arg(s.Overflow) + " END")
	return sb.String()
}

// Key derives the bucket of each person row. Value renders the raw value over a row
// alias; Bucket maps that value onto a label. Both bind their values on b, and Bucket
// is rendered before Value since it comes first in the query text.
type Key struct {
	Grouping schema.Grouping
	Value    func(b *sqlq.Builder, alias string) string
	Bucket   func(b *sqlq.Builder, value string) string
	order    []string
}

// Order sorts group labels the way the key displays them: known labels first,
// other labels alphabetically, the not-filled label last.
func (k Key) Order(labels []string) {
	rank := func(label string) int {
		if label == schema.NotFilledLabel {
			return len(k.order) + 1
		}
		if i := slices.Index(k.order, label); i >= 0 {
			return i
		}
		return len(k.order)
	}
	slices.SortStableFunc(labels, func(a, b string) int {
		if ra, rb := rank(a), rank(b); ra != rb {
			return ra - rb
		}
		return strings.Compare(a, b)
	})
}

func scaled(s Scale) func(b *sqlq.Builder, value string) string {
	return func(b *sqlq.Builder, value string) string { return s.Case(b, value) }
}

// Age buckets persons by year difference between now and their birth date.
// Age is evaluated against now, not against the end of the period.
func Age(now time.Time) Key {
	return Key{
		Grouping: schema.AgeGrouping,
		Value: func(b *sqlq.Builder, alias string) string {
			year := b.Arg(int64(now.Year()))
			return "(" + year + " - " + b.Dialect().CastInt("SUBSTR(NULLIF("+alias+".birthdate, ''), 1, 4)") + ")"
		},
		Bucket: scaled(AgeScale),
		order:  AgeScale.Labels(),
	}
}

// FollowDays renders the days from the follow start (or creation) to leaving the
// active list (or now).
func FollowDays(b *sqlq.Builder, alias string, now time.Time) string {
	later := "COALESCE(NULLIF(" + alias + ".out_of_active_list_date, ''), " + b.Arg(schema.FormatTimestamp(now)) + ")"
	earlier := "COALESCE(NULLIF(" + alias + ".followed_since, ''), " + alias + ".created_at)"
	return b.Dialect().DaysBetween(later, earlier)
}

// WanderingDays renders the days from wandering_at to now, NULL when unset.
func WanderingDays(b *sqlq.Builder, alias string, now time.Time) string {
	return DaysSince(b, alias+".wandering_at", now)
}

// DaysSince renders the days from a timestamp column to now, NULL when unset.
func DaysSince(b *sqlq.Builder, column string, now time.Time) string {
	return b.Dialect().DaysBetween(b.Arg(schema.FormatTimestamp(now)), "NULLIF("+column+", '')")
}

// FollowDuration buckets persons by follow duration.
func FollowDuration(now time.Time) Key {
	return Key{
		Grouping: schema.FollowDurationGrouping,
		Value:    func(b *sqlq.Builder, alias string) string { return FollowDays(b, alias, now) },
		Bucket:   scaled(DurationScale),
		order:    DurationScale.Labels(),
	}
}

// WanderingDuration buckets persons by time spent wandering.
func WanderingDuration(now time.Time) Key {
	return Key{
		Grouping: schema.WanderingDurationGrouping,
		Value:    func(b *sqlq.Builder, alias string) string { return WanderingDays(b, alias, now) },
		Bucket:   scaled(DurationScale),
		order:    DurationScale.Labels(),
	}
}

// Field buckets persons by the raw value of an enum, boolean or yes-no field.
func Field(def schema.FilterDefinition) (Key, error) {
	if err := sqlq.ValidateIdent(def.ID); err != nil {
		return Key{}, err
	}
	key := Key{
		Grouping: schema.FieldGrouping,
		Value: func(b *sqlq.Builder, alias string) string {
			return b.Column(alias, def.ID)
		},
	}

	switch def.Type {
	case schema.EnumField:
		key.Bucket = func(b *sqlq.Builder, value string) string {
			return "COALESCE(" + value + ", " + b.Arg(schema.NotFilledLabel) + ")"
		}
		key.order = def.Options
	case schema.BooleanField, schema.YesNoField:
		key.Bucket = func(b *sqlq.Builder, value string) string {
			return "CASE WHEN " + value + " IS NULL THEN " + b.Arg(schema.NotFilledLabel) +
				" WHEN " + value + " = 1 THEN " + b.Arg(schema.YesLabel) +
				" ELSE " + b.Arg(schema.NoLabel) + " END"
		}
		key.order = []string{schema.YesLabel, schema.NoLabel}
	default:
		return Key{}, fmt.Errorf("cannot group by %s field %q: only enum, boolean and yes-no fields can be grouped", def.Type, def.ID)
	}
	return key, nil
}
