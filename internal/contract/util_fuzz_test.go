package contract

import (
	"testing"
)

// FuzzResolvePeriodBound fuzzes period bound parsing with random flag values.
func FuzzResolvePeriodBound(f *testing.F) {
	seeds := []string{
		"now",
		"2024-01-31",
		"2024-01-31T08:30:00Z",
		"3 months ago",
		"",
		"0 days ago",
		"99999999999999 years ago",
	}
	for _, seed := range seeds {
		f.Add(seed)
	}

	f.Fuzz(func(_ *testing.T, s string) {
		_, _ = ResolvePeriodBound(s, fixedNow)
	})
}

// FuzzSplitList checks that split values never carry surrounding blanks.
func FuzzSplitList(f *testing.F) {
	f.Add("team-a, team-b")
	f.Add(",,,")
	f.Add("")

	f.Fuzz(func(t *testing.T, s string) {
		for _, part := range SplitList(s) {
			if part == "" {
				t.Fatalf("empty part from %q", s)
			}
		}
	})
}
