// Package mcp provides the Model Context Protocol (MCP) server implementation.
package mcp

import (
	"context"
	"slices"

	"github.com/huangsam/cohortstats/internal/contract"
	"github.com/huangsam/cohortstats/internal/metrics"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Shared argument descriptions.
const (
	populationDesc = "Cohort: created (registered in the period), followed (active in the period) or all. Defaults to followed."
	teamsDesc      = "Comma-separated team ids. Defaults to the configured teams."
	fromDesc       = "Period start (ISO-8601 or YYYY-MM-DD). Give both from and to, or neither for all time."
	toDesc         = "Period end (ISO-8601 or YYYY-MM-DD). A bare day covers the whole day."
	filtersDesc    = `JSON array of filters, e.g. [{"id":"gender","value":["Femme"]}]. Ids must exist in the configured filter catalog.`
)

var groupings = []string{"age", "follow-duration", "wandering-duration", "field", "out-reason", "action-category", "person-action-category"}

// contextOptions are the arguments every tool accepts to scope its population.
func contextOptions() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithString("population", mcp.Description(populationDesc), mcp.Enum("created", "followed", "all")),
		mcp.WithString("teams", mcp.Description(teamsDesc)),
		mcp.WithString("from", mcp.Description(fromDesc)),
		mcp.WithString("to", mcp.Description(toDesc)),
		mcp.WithString("filters", mcp.Description(filtersDesc)),
	}
}

// NewMCPServer initializes and configures the cohort statistics MCP server without starting it.
// This is exposed for unit testing.
func NewMCPServer(baseCfg *contract.Config, snap contract.Snapshot, m *metrics.Metrics) *server.MCPServer {
	s := server.NewMCPServer(
		"Cohort Statistics Server",
		"1.0.0",
		server.WithLogging(),
	)

	h := &toolHandler{
		baseCfg: baseCfg,
		snap:    snap,
		metrics: m,
	}

	// --- 1. Tool: count_population ---
	s.AddTool(mcp.NewTool("count_population",
		append([]mcp.ToolOption{
			mcp.WithDescription("Count the persons of a cohort, the persons having an activity, or the activities of the teams."),
			mcp.WithString("activity", mcp.Description("Activity kind (action, consultation, passage, encounter, treatment, person_place, comment).")),
			mcp.WithString("of", mcp.Description("What to count when an activity is given: persons having one, or the activities themselves. Defaults to persons."), mcp.Enum("persons", "activities")),
		}, contextOptions()...)...,
	), h.handleCountPopulation)

	// --- 2. Tool: group_population ---
	s.AddTool(mcp.NewTool("group_population",
		append([]mcp.ToolOption{
			mcp.WithDescription("Split a cohort into ordered buckets and count each one. Only non-empty buckets are returned."),
			mcp.WithString("grouping", mcp.Description("Grouping to apply."), mcp.Required(), mcp.Enum(groupings...)),
			mcp.WithString("field", mcp.Description("Catalog field id, required for the field grouping.")),
			mcp.WithString("categories", mcp.Description("Comma-separated action categories to keep (action groupings).")),
			mcp.WithString("statuses", mcp.Description("Comma-separated action statuses to keep (action groupings).")),
		}, contextOptions()...)...,
	), h.handleGroupPopulation)

	// --- 3. Tool: drill_down ---
	s.AddTool(mcp.NewTool("drill_down",
		append([]mcp.ToolOption{
			mcp.WithDescription("List the records behind one bucket of a grouping. The 'all' grouping lists the whole filtered cohort."),
			mcp.WithString("grouping", mcp.Description("Grouping the bucket belongs to."), mcp.Required(), mcp.Enum(append(slices.Clone(groupings), "all")...)),
			mcp.WithString("value", mcp.Description("Bucket label as returned by group_population.")),
			mcp.WithString("field", mcp.Description("Catalog field id, required for the field grouping.")),
			mcp.WithString("statuses", mcp.Description("Comma-separated action statuses to keep (action groupings).")),
		}, contextOptions()...)...,
	), h.handleDrillDown)

	// --- 4. Tool: average_duration ---
	s.AddTool(mcp.NewTool("average_duration",
		append([]mcp.ToolOption{
			mcp.WithDescription("Average follow or wandering duration, days since a date field, or the count, total and average of a number field."),
			mcp.WithString("measure", mcp.Description("Measure to average."), mcp.Required(), mcp.Enum("follow-duration", "wandering-duration", "date-field", "number-field")),
			mcp.WithString("field", mcp.Description("Catalog field id, required for date-field and number-field.")),
		}, contextOptions()...)...,
	), h.handleAverageDuration)

	return s
}

// StartMCPServer starts the cohort statistics MCP server on stdio.
func StartMCPServer(_ context.Context, baseCfg *contract.Config, snap contract.Snapshot, m *metrics.Metrics) error {
	s := NewMCPServer(baseCfg, snap, m)
	return server.ServeStdio(s)
}
