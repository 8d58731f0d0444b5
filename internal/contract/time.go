package contract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/huangsam/cohortstats/schema"
)

// relativeTimeRe captures "N [units] ago", e.g. "2 years ago" or "3 months ago".
var relativeTimeRe = regexp.MustCompile(`^(\d+)\s+(year|month|week|day)s?\s+ago$`)

// ParseRelativeTime converts strings like "2 years ago" into a time in the past.
func ParseRelativeTime(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	matches := relativeTimeRe.FindStringSubmatch(s)
	if len(matches) == 0 {
		return time.Time{}, fmt.Errorf("invalid relative time format: %s", s)
	}

	value, _ := strconv.Atoi(matches[1])
	switch matches[2] {
	case "year":
		return now.AddDate(-value, 0, 0), nil
	case "month":
		return now.AddDate(0, -value, 0), nil
	case "week":
		return now.AddDate(0, 0, -7*value), nil
	default:
		return now.AddDate(0, 0, -value), nil
	}
}

// ResolvePeriodBound turns a --from/--to flag value into a period bound.
// It accepts ISO-8601, a bare day, "now" or "N [units] ago"; empty stays empty.
func ResolvePeriodBound(s string, now time.Time) (string, error) {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		return "", nil
	case strings.EqualFold(s, "now"):
		return schema.FormatTimestamp(now), nil
	}

	if _, dayOnly, err := schema.ParseTimestamp(s); err == nil {
		if dayOnly {
			// Keep bare days so the upper bound still covers the whole day.
			return s, nil
		}
		return schema.NormalizeTimestamp(s)
	}

	t, err := ParseRelativeTime(s, now)
	if err != nil {
		return "", fmt.Errorf("invalid date '%s'. Expected ISO8601, YYYY-MM-DD, 'now' or 'N [units] ago'", s)
	}
	return schema.FormatTimestamp(t), nil
}
