package schema

import (
	"fmt"
	"strings"
	"time"
)

// timestampLayouts are tried in order by ParseTimestamp.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.000Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ParseTimestamp parses an ISO-8601 timestamp or a bare calendar day.
// dayOnly reports whether the input carried no time of day.
func ParseTimestamp(s string) (t time.Time, dayOnly bool, err error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(DayFormat, s); err == nil {
		return t, true, nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), false, nil
		}
	}
	return time.Time{}, false, fmt.Errorf("invalid timestamp %q: expected ISO-8601 or YYYY-MM-DD", s)
}

// FormatTimestamp renders t in the canonical stored format.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampFormat)
}

// NormalizeTimestamp rewrites an ISO-8601 timestamp or day into the canonical stored format.
// Empty input stays empty.
func NormalizeTimestamp(s string) (string, error) {
	if strings.TrimSpace(s) == "" {
		return "", nil
	}
	t, _, err := ParseTimestamp(s)
	if err != nil {
		return "", err
	}
	return FormatTimestamp(t), nil
}

// Bounds returns the canonical inclusive bounds of the period. A bare day as upper
// bound covers that whole day. ok is false for all-time, one-sided or unparsable periods.
func (p Period) Bounds() (from, to string, ok bool) {
	if strings.TrimSpace(p.From) == "" || strings.TrimSpace(p.To) == "" {
		return "", "", false
	}
	start, _, err := ParseTimestamp(p.From)
	if err != nil {
		return "", "", false
	}
	end, dayOnly, err := ParseTimestamp(p.To)
	if err != nil {
		return "", "", false
	}
	if dayOnly {
		end = end.Add(24*time.Hour - time.Millisecond)
	}
	return FormatTimestamp(start), FormatTimestamp(end), true
}

// IsAllTime reports whether the period carries no usable bounds.
func (p Period) IsAllTime() bool {
	_, _, ok := p.Bounds()
	return !ok
}

// Definition returns the catalog entry with the given id.
func (sc StatsContext) Definition(id string) (FilterDefinition, bool) {
	for _, def := range sc.BaseFilters {
		if def.ID == id {
			return def, true
		}
	}
	return FilterDefinition{}, false
}

// WithFilter returns a copy of the context with one more filter appended.
func (sc StatsContext) WithFilter(f Filter) StatsContext {
	filters := make([]Filter, 0, len(sc.Filters)+1)
	filters = append(filters, sc.Filters...)
	sc.Filters = append(filters, f)
	return sc
}
