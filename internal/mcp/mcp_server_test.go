package mcp_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/huangsam/cohortstats/internal/contract"
	mcp_internal "github.com/huangsam/cohortstats/internal/mcp"
	"github.com/huangsam/cohortstats/internal/metrics"
	"github.com/huangsam/cohortstats/internal/snapshot/snapshottest"
	"github.com/huangsam/cohortstats/schema"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*server.MCPServer, *metrics.Metrics) {
	t.Helper()
	store := snapshottest.Open(t, snapshottest.CohortFixture)
	baseCfg := &contract.Config{
		Stats:      snapshottest.CohortContext(),
		Population: schema.FollowedPopulation,
		Now:        snapshottest.Now,
	}
	m := metrics.New(prometheus.NewRegistry())
	return mcp_internal.NewMCPServer(baseCfg, store, m), m
}

func callTool(t *testing.T, s *server.MCPServer, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	tool := s.GetTool(name)
	require.NotNil(t, tool, "Tool %s should exist", name)

	req := mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
	res, err := tool.Handler(context.Background(), req)
	require.NoError(t, err, "The MCP handler should not return a raw error for tool logic failures")
	return res
}

func resultText(res *mcp.CallToolResult) string {
	return res.Content[0].(mcp.TextContent).Text
}

func TestMCPServerHandlers_ValidationErrors(t *testing.T) {
	s, m := newTestServer(t)

	tests := []struct {
		name     string
		tool     string
		args     map[string]any
		expected string
	}{
		{"unknown grouping", "group_population", map[string]any{"grouping": "shoe-size"}, "invalid grouping"},
		{"field grouping without field", "group_population", map[string]any{"grouping": "field"}, "--field is required"},
		{"drill without value", "drill_down", map[string]any{"grouping": "age"}, "--value is required"},
		{"bad filters", "count_population", map[string]any{"filters": "{not json"}, "invalid filters"},
		{"bad population", "count_population", map[string]any{"population": "everyone"}, "invalid population"},
		{"bad activity", "count_population", map[string]any{"activity": "visit"}, "invalid activity kind"},
		{"unknown measure", "average_duration", map[string]any{"measure": "age"}, "invalid measure"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := callTool(t, s, tt.tool, tt.args)
			assert.True(t, res.IsError, "The response should indicate an error state")
			assert.Contains(t, resultText(res), tt.expected)
		})
	}

	assert.InDelta(t, 3, testutil.ToFloat64(m.ToolCalls.WithLabelValues("count_population", "error")), 0.001)
}

func TestCountPopulationTool(t *testing.T) {
	s, m := newTestServer(t)

	tests := []struct {
		name     string
		args     map[string]any
		expected float64
	}{
		{"followed", map[string]any{}, 5},
		{"created", map[string]any{"population": "created"}, 2},
		{"created in both teams", map[string]any{"population": "created", "teams": "A,B"}, 3},
		{"persons with an action", map[string]any{"activity": "action"}, 3},
		{"consultations", map[string]any{"activity": "consultation", "of": "activities"}, 1},
		{"filtered", map[string]any{"filters": `[{"id":"gender","value":["Homme"]}]`}, 2},
		{"one-sided period is all time", map[string]any{"population": "created", "from": "2024-06-01"}, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := callTool(t, s, "count_population", tt.args)
			require.False(t, res.IsError, resultText(res))

			var doc map[string]float64
			require.NoError(t, json.Unmarshal([]byte(resultText(res)), &doc))
			assert.Equal(t, tt.expected, doc["count"])
		})
	}

	assert.InDelta(t, float64(len(tests)), testutil.ToFloat64(m.ToolCalls.WithLabelValues("count_population", "success")), 0.001)
}

func TestGroupPopulationTool(t *testing.T) {
	s, _ := newTestServer(t)

	res := callTool(t, s, "group_population", map[string]any{"grouping": "field", "field": "gender"})
	require.False(t, res.IsError, resultText(res))

	var groups []schema.EnrichedGroupCount
	require.NoError(t, json.Unmarshal([]byte(resultText(res)), &groups))
	require.Len(t, groups, 3)
	assert.Equal(t, "Femme", groups[0].Label)
	assert.Equal(t, schema.NotFilledLabel, groups[2].Label)
	assert.InDelta(t, 40.0, groups[2].Share, 0.001)
}

func TestDrillDownTool(t *testing.T) {
	s, _ := newTestServer(t)

	res := callTool(t, s, "drill_down", map[string]any{"grouping": "age", "value": schema.NotFilledLabel})
	require.False(t, res.IsError, resultText(res))

	var result schema.DrillResult
	require.NoError(t, json.Unmarshal([]byte(resultText(res)), &result))
	require.Len(t, result.Persons, 2)
	assert.Equal(t, "P2", result.Persons[0].ID)
	assert.Equal(t, "P8", result.Persons[1].ID)

	res = callTool(t, s, "drill_down", map[string]any{"grouping": "all"})
	require.False(t, res.IsError, resultText(res))
	require.NoError(t, json.Unmarshal([]byte(resultText(res)), &result))
	assert.Len(t, result.Persons, 5)
}

func TestAverageDurationTool(t *testing.T) {
	s, _ := newTestServer(t)

	res := callTool(t, s, "average_duration", map[string]any{"measure": "wandering-duration"})
	require.False(t, res.IsError, resultText(res))
	var avg schema.Average
	require.NoError(t, json.Unmarshal([]byte(resultText(res)), &avg))
	assert.InDelta(t, 381, avg.Days, 0.001)
	assert.Equal(t, "13 mois", avg.Human.String())

	res = callTool(t, s, "average_duration", map[string]any{"measure": "number-field", "field": "income"})
	require.False(t, res.IsError, resultText(res))
	var summary schema.NumberSummary
	require.NoError(t, json.Unmarshal([]byte(resultText(res)), &summary))
	assert.Equal(t, schema.NumberSummary{Count: 2, Total: 1500, Average: 750}, summary)
}
