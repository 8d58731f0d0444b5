package schema

import "strings"

// ReportHeader describes what a printed statistic was computed over.
type ReportHeader struct {
	Statistic  string     `json:"statistic"`
	Population Population `json:"population,omitempty"`
	Teams      []string   `json:"teams"`
	Period     Period     `json:"period"`
	Filters    int        `json:"filters"` // number of filters in the context
}

// Scope renders the population, teams and period in one line.
func (h ReportHeader) Scope() string {
	var parts []string
	if h.Population != "" {
		parts = append(parts, string(h.Population))
	}
	if len(h.Teams) > 0 {
		parts = append(parts, "teams "+strings.Join(h.Teams, ","))
	} else {
		parts = append(parts, "no team")
	}
	if h.Period.IsAllTime() {
		parts = append(parts, "all time")
	} else {
		parts = append(parts, h.Period.From+" to "+h.Period.To)
	}
	return strings.Join(parts, " | ")
}

// DrillResult holds the records behind one bucket. Action category drill-downs
// return actions, every other grouping returns persons.
type DrillResult struct {
	Grouping Grouping    `json:"grouping"`
	Label    string      `json:"label"`
	Persons  []PersonRow `json:"persons,omitempty"`
	Actions  []ActionRow `json:"actions,omitempty"`
}

// Len returns the number of records.
func (r DrillResult) Len() int {
	return len(r.Persons) + len(r.Actions)
}

// EnrichedGroupCount adds presentation data to a GroupCount.
type EnrichedGroupCount struct {
	Rank  int     `json:"rank"`
	Share float64 `json:"share"` // percentage of the total
	GroupCount
}

// EnrichGroups adds rank and share to a list of group counts. Shares are
// relative to the sum of counts, so they add up to 100 for a partition.
func EnrichGroups(groups []GroupCount) []EnrichedGroupCount {
	var total int64
	for _, g := range groups {
		total += g.Count
	}
	output := make([]EnrichedGroupCount, len(groups))
	for i, g := range groups {
		output[i] = EnrichedGroupCount{Rank: i + 1, GroupCount: g}
		if total > 0 {
			output[i].Share = float64(g.Count) * 100 / float64(total)
		}
	}
	return output
}
