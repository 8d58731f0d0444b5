// Package filter compiles user-chosen filter values into a SQL predicate over
// person rows. Every value is bound as a parameter; only catalog ids reach the
// query text, quoted by the dialect.
package filter

import (
	"slices"
	"strings"

	"github.com/huangsam/cohortstats/core/population"
	"github.com/huangsam/cohortstats/internal/logger"
	"github.com/huangsam/cohortstats/internal/sqlq"
	"github.com/huangsam/cohortstats/schema"
)

// Compile returns the conjunction of the predicates of sc.Filters over the person
// rows aliased by alias, or "" when no filter applies. Filters with an unknown id,
// an empty value or an unsupported type are skipped and reported to log.
func Compile(b *sqlq.Builder, sc schema.StatsContext, alias string, log *logger.Logger) string {
	if log == nil {
		log = logger.Nop()
	}

	var parts []string
	for _, f := range sc.Filters {
		var pred, reason string
		if f.ID == schema.HasConsultationFilterID {
			pred, reason = hasConsultation(b, f.Value, sc.Period, alias)
		} else if def, ok := sc.Definition(f.ID); !ok {
			reason = "unknown field"
		} else if err := sqlq.ValidateIdent(def.ID); err != nil {
			reason = err.Error()
		} else {
			pred, reason = compileOne(b, def, f.Value, b.Column(alias, def.ID))
		}

		if pred == "" {
			log.LogSkippedFilter(f.ID, reason)
			continue
		}
		parts = append(parts, pred)
	}
	return strings.Join(parts, " AND ")
}

func compileOne(b *sqlq.Builder, def schema.FilterDefinition, v schema.FilterValue, col string) (string, string) {
	// Yes-no treats an absent answer as not filled
	if def.Type == schema.YesNoField {
		return yesNo(b, v, col)
	}
	if v.IsEmpty() {
		return "", "empty value"
	}

	switch def.Type {
	case schema.TextField, schema.TextareaField:
		return text(b, v, col)
	case schema.EnumField:
		return enum(b, v, col)
	case schema.DateField, schema.DateWithTimeField, schema.DurationField:
		return date(b, v, col)
	case schema.BooleanField:
		return boolean(b, v, col)
	default:
		return "", "unsupported field type " + string(def.Type)
	}
}

func text(b *sqlq.Builder, v schema.FilterValue, col string) (string, string) {
	value := strings.TrimSpace(v.Text)
	switch value {
	case "":
		return "", "text filter needs a single value"
	case schema.NotFilledLabel:
		return "(" + col + " IS NULL OR " + col + " = '')", ""
	}
	return b.Dialect().Contains(col, b.Arg(sqlq.EscapeLike(value))), ""
}

func enum(b *sqlq.Builder, v schema.FilterValue, col string) (string, string) {
	values := v.List
	if values == nil && v.Text != "" {
		values = []string{v.Text}
	}

	var options []string
	notFilled := false
	for _, value := range values {
		switch {
		case value == "":
		case value == schema.NotFilledLabel:
			notFilled = true
		case !slices.Contains(options, value):
			options = append(options, value)
		}
	}

	switch {
	case notFilled && len(options) > 0:
		return "(" + col + " IS NULL OR " + col + " IN (" + b.List(options) + "))", ""
	case notFilled:
		return col + " IS NULL", ""
	case len(options) > 0:
		return col + " IN (" + b.List(options) + ")", ""
	default:
		return "", "empty value"
	}
}

func date(b *sqlq.Builder, v schema.FilterValue, col string) (string, string) {
	if v.Date == nil || v.Date.Comparator == "" || strings.TrimSpace(v.Date.Date) == "" {
		return "", "date filter needs a date and a comparator"
	}
	if v.Date.Comparator == schema.UnfilledComparator {
		return col + " IS NULL", ""
	}
	at, err := schema.NormalizeTimestamp(v.Date.Date)
	if err != nil {
		return "", err.Error()
	}

	switch v.Date.Comparator {
	case schema.BeforeComparator:
		return col + " < " + b.Arg(at), ""
	case schema.AfterComparator:
		return col + " > " + b.Arg(at), ""
	case schema.EqualsComparator:
		return "SUBSTR(" + col + ", 1, 10) = " + b.Arg(at[:len(schema.DayFormat)]), ""
	default:
		return "", "unknown comparator " + string(v.Date.Comparator)
	}
}

func boolean(b *sqlq.Builder, v schema.FilterValue, col string) (string, string) {
	if strings.TrimSpace(v.Text) == "" {
		return "", "boolean filter needs a single value"
	}
	if v.Text == schema.YesLabel {
		return col + " = " + b.Arg(1), ""
	}
	return col + " = " + b.Arg(0), ""
}

func yesNo(b *sqlq.Builder, v schema.FilterValue, col string) (string, string) {
	switch strings.TrimSpace(v.Text) {
	case schema.YesLabel:
		return col + " = " + b.Arg(1), ""
	case schema.NoLabel:
		return col + " = " + b.Arg(0), ""
	case schema.NotFilledLabel, "":
		if len(v.List) > 0 || v.Date != nil {
			return "", "yes-no filter needs a single value"
		}
		return col + " IS NULL", ""
	default:
		return "", "unknown yes-no value " + v.Text
	}
}

// hasConsultation keeps persons with (or without) a consultation, dated in the
// period when it has both bounds.
func hasConsultation(b *sqlq.Builder, v schema.FilterValue, period schema.Period, alias string) (string, string) {
	value := strings.TrimSpace(v.Text)
	if value == "" {
		return "", "empty value"
	}

	var sb strings.Builder
	if value != schema.YesLabel {
		sb.WriteString("NOT ")
	}
	sb.WriteString("EXISTS (SELECT 1 FROM consultation c WHERE c.person_id = " + alias + ".id AND c.deleted_at IS NULL")
	if from, to, ok := period.Bounds(); ok {
		sb.WriteString(" AND " + population.ActivityDated(b, "c", schema.ConsultationActivity, from, to))
	}
	sb.WriteString(")")
	return sb.String(), ""
}
