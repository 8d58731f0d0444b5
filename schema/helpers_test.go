package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestPeriodBounds(t *testing.T) {
	tests := []struct {
		name     string
		period   Period
		wantFrom string
		wantTo   string
		wantOK   bool
	}{
		{"days", Period{From: "2023-01-01", To: "2023-12-31"}, "2023-01-01T00:00:00.000Z", "2023-12-31T23:59:59.999Z", true},
		{"timestamps", Period{From: "2023-01-01T08:00:00Z", To: "2023-02-01T10:30:00.250Z"}, "2023-01-01T08:00:00.000Z", "2023-02-01T10:30:00.250Z", true},
		{"offset converted to utc", Period{From: "2023-01-01T02:00:00+02:00", To: "2023-01-02"}, "2023-01-01T00:00:00.000Z", "2023-01-02T23:59:59.999Z", true},
		{"all time", Period{}, "", "", false},
		{"missing to", Period{From: "2023-01-01"}, "", "", false},
		{"missing from", Period{To: "2023-01-01"}, "", "", false},
		{"garbage", Period{From: "yesterday", To: "2023-01-01"}, "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			from, to, ok := tt.period.Bounds()
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantFrom, from)
			assert.Equal(t, tt.wantTo, to)
			assert.Equal(t, !tt.wantOK, tt.period.IsAllTime())
		})
	}
}

func TestNormalizeTimestamp(t *testing.T) {
	got, err := NormalizeTimestamp("2024-03-05")
	require.NoError(t, err)
	assert.Equal(t, "2024-03-05T00:00:00.000Z", got)

	got, err = NormalizeTimestamp("2024-03-05T10:11:12Z")
	require.NoError(t, err)
	assert.Equal(t, "2024-03-05T10:11:12.000Z", got)

	got, err = NormalizeTimestamp("  ")
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = NormalizeTimestamp("05/03/2024")
	assert.Error(t, err)
}

func TestFilterValueJSON(t *testing.T) {
	var filters []Filter
	raw := `[
		{"id": "name", "value": "ali"},
		{"id": "gender", "value": ["Non renseigné", "F"]},
		{"id": "birthdate", "value": {"date": "2000-01-01", "comparator": "before"}},
		{"id": "alertness", "value": 3},
		{"id": "housing", "value": null}
	]`
	require.NoError(t, json.Unmarshal([]byte(raw), &filters))
	require.Len(t, filters, 5)

	assert.Equal(t, TextValue("ali"), filters[0].Value)
	assert.Equal(t, ListValue(NotFilledLabel, "F"), filters[1].Value)
	assert.Equal(t, DateValue("2000-01-01", BeforeComparator), filters[2].Value)
	assert.True(t, filters[3].Value.IsEmpty(), "wrong-shaped values decode to empty")
	assert.True(t, filters[4].Value.IsEmpty())

	out, err := json.Marshal(filters[1])
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"gender","value":["Non renseigné","F"]}`, string(out))
}

func TestFilterValueYAML(t *testing.T) {
	raw := `
teams: [T1, T2]
period:
  from: "2023-01-01"
  to: "2023-12-31"
filters:
  - id: gender
    value: [F]
  - id: outOfActiveList
    value: Oui
  - id: birthdate
    value:
      date: "1990-05-01"
      comparator: equals
  - id: name
    value: ~
`
	var sc StatsContext
	require.NoError(t, yaml.Unmarshal([]byte(raw), &sc))
	assert.Equal(t, []string{"T1", "T2"}, sc.Teams)
	assert.Equal(t, "2023-12-31", sc.Period.To)
	require.Len(t, sc.Filters, 4)
	assert.Equal(t, ListValue("F"), sc.Filters[0].Value)
	assert.Equal(t, TextValue(YesLabel), sc.Filters[1].Value)
	assert.Equal(t, DateValue("1990-05-01", EqualsComparator), sc.Filters[2].Value)
	assert.True(t, sc.Filters[3].Value.IsEmpty())
}

func TestStatsContextWithFilter(t *testing.T) {
	base := StatsContext{Filters: []Filter{{ID: "a", Value: TextValue("x")}}}
	extended := base.WithFilter(Filter{ID: "b", Value: TextValue("y")})

	assert.Len(t, base.Filters, 1, "original context must not change")
	assert.Len(t, extended.Filters, 2)
}

func TestDurationString(t *testing.T) {
	assert.Equal(t, "3 mois", Duration{Value: 3, Unit: "mois"}.String())
}

func TestRecordConversions(t *testing.T) {
	r := Record{
		"count_int":   int64(3),
		"count_str":   "4",
		"count_float": float64(5),
		"avg_str":     "12.5000",
		"avg_float":   2.25,
		"name":        "P1",
		"null":        nil,
		"dirty_bool":  true,
		"dirty_int":   int64(0),
	}

	for col, want := range map[string]int64{"count_int": 3, "count_str": 4, "count_float": 5, "null": 0} {
		got, err := r.Int64(col)
		require.NoError(t, err)
		assert.Equal(t, want, got, col)
	}

	f, ok, err := r.Float64("avg_str")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.InDelta(t, 12.5, f, 1e-9)

	_, ok, err = r.Float64("null")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = r.Int64("name")
	assert.Error(t, err)

	assert.Equal(t, "P1", r.String("name"))
	assert.Equal(t, "", r.String("null"))
	_, ok = r.NullString("null")
	assert.False(t, ok)
	assert.True(t, r.Bool("dirty_bool"))
	assert.False(t, r.Bool("dirty_int"))
}
