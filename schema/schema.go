// Package schema has models, enums and shared constants for all parts of cohortstats.
package schema

import "strconv"

// Period is the reporting window of a statistic. Both bounds set means a bounded
// window; both empty means all time. A one-sided or unparsable period is treated as all time.
type Period struct {
	From string `json:"from" yaml:"from"`
	To   string `json:"to" yaml:"to"`
}

// FilterDefinition describes one filterable person column.
type FilterDefinition struct {
	ID      string    `json:"id" yaml:"id"` // column name in the person table
	Type    FieldType `json:"type" yaml:"type"`
	Label   string    `json:"label" yaml:"label"`
	Options []string  `json:"options,omitempty" yaml:"options,omitempty"`
}

// DateFilterValue is the value of a date, date-with-time or duration filter.
type DateFilterValue struct {
	Date       string     `json:"date" yaml:"date"`
	Comparator Comparator `json:"comparator" yaml:"comparator"`
}

// Filter is one user-chosen filter value. Its shape depends on the field type.
type Filter struct {
	ID    string      `json:"id" yaml:"id"`
	Value FilterValue `json:"value" yaml:"value"`
}

// StatsContext is the single object threaded through every query.
type StatsContext struct {
	BaseFilters []FilterDefinition `json:"baseFilters" yaml:"baseFilters"`
	Filters     []Filter           `json:"filters" yaml:"filters"`
	Teams       []string           `json:"teams" yaml:"teams"`
	Period      Period             `json:"period" yaml:"period"`
}

// GroupCount is the count of one bucket of a grouped aggregation.
type GroupCount struct {
	Label string `json:"label"`
	Count int64  `json:"count"`
}

// PersonRow is a full person row returned by a drill-down.
type PersonRow struct {
	ID            string         `json:"id"`
	AssignedTeams string         `json:"assignedTeams"` // comma-separated, sorted
	Fields        map[string]any `json:"fields"`
}

// ActionRow is an action returned by the action category drill-down.
type ActionRow struct {
	ID          string   `json:"id"`
	PersonID    string   `json:"personId"`
	Status      string   `json:"status"`
	Categories  []string `json:"categories"`
	DueAt       string   `json:"dueAt,omitempty"`
	CompletedAt string   `json:"completedAt,omitempty"`
	CreatedAt   string   `json:"createdAt"`
	Teams       string   `json:"teams"`
}

// HistoryRow is one point-in-time snapshot of a person.
type HistoryRow struct {
	Seq      int64  `json:"seq"`
	PersonID string `json:"personId"`
	FromDate string `json:"fromDate"`
	ToDate   string `json:"toDate,omitempty"`
	Data     string `json:"data,omitempty"`
}

// Duration is a day count converted to its human unit.
type Duration struct {
	Value int    `json:"value"`
	Unit  string `json:"unit"`
}

// String renders the duration as "<value> <unit>".
func (d Duration) String() string {
	return strconv.Itoa(d.Value) + " " + d.Unit
}

// Average is the mean of a day count over a population.
type Average struct {
	Count int64    `json:"count"` // persons with a value
	Days  float64  `json:"days"`
	Human Duration `json:"human"`
}

// NumberSummary summarizes a numeric person field.
type NumberSummary struct {
	Count   int64   `json:"count"`
	Total   float64 `json:"total"`
	Average float64 `json:"average"`
}

// Record is one result row keyed by column name. Driver values are normalized:
// byte slices become strings and times become TimestampFormat strings.
type Record map[string]any
