package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/huangsam/cohortstats/core"
	"github.com/huangsam/cohortstats/internal/contract"
	"github.com/huangsam/cohortstats/internal/metrics"
	"github.com/huangsam/cohortstats/schema"
	"github.com/mark3labs/mcp-go/mcp"
)

// toolHandler holds common dependencies for MCP tool handlers.
type toolHandler struct {
	baseCfg *contract.Config
	snap    contract.Snapshot
	metrics *metrics.Metrics
}

// requestConfig clones the base config and applies the scoping arguments of request.
func (h *toolHandler) requestConfig(request mcp.CallToolRequest) (*contract.Config, error) {
	cfg := h.baseCfg.Clone()

	pop, err := contract.ParsePopulation(request.GetString("population", string(cfg.Population)))
	if err != nil {
		return nil, err
	}
	cfg.Population = pop

	if teams := contract.SplitList(request.GetString("teams", "")); len(teams) > 0 {
		cfg.Stats.Teams = teams
	}

	from, err := contract.ResolvePeriodBound(request.GetString("from", ""), cfg.Now)
	if err != nil {
		return nil, fmt.Errorf("invalid from: %w", err)
	}
	to, err := contract.ResolvePeriodBound(request.GetString("to", ""), cfg.Now)
	if err != nil {
		return nil, fmt.Errorf("invalid to: %w", err)
	}
	if from != "" || to != "" {
		cfg.Stats.Period = contract.PeriodOf(from, to)
	}

	if raw := request.GetString("filters", ""); raw != "" {
		var filters []schema.Filter
		if err := json.Unmarshal([]byte(raw), &filters); err != nil {
			return nil, fmt.Errorf("invalid filters: %w", err)
		}
		cfg.Stats.Filters = filters
	}

	cfg.Field = request.GetString("field", cfg.Field)
	if c := contract.SplitList(request.GetString("categories", "")); len(c) > 0 {
		cfg.Categories = c
	}
	if s := contract.SplitList(request.GetString("statuses", "")); len(s) > 0 {
		cfg.Statuses = s
	}
	return cfg, nil
}

// respond marshals result, or turns err into a tool error, and records the call.
func (h *toolHandler) respond(tool string, result any, err error) (*mcp.CallToolResult, error) {
	h.metrics.ObserveTool(tool, err)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	jsonData, _ := json.MarshalIndent(result, "", "  ")
	return mcp.NewToolResultText(string(jsonData)), nil
}

func (h *toolHandler) handleCountPopulation(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	const tool = "count_population"
	cfg, err := h.requestConfig(request)
	if err != nil {
		return h.respond(tool, nil, fmt.Errorf("invalid parameters: %w", err))
	}

	activity := request.GetString("activity", "")
	of := request.GetString("of", "persons")

	var count int64
	switch {
	case activity == "":
		count, _, err = core.GetCountResult(ctx, cfg, h.snap)
	default:
		if cfg.Activity, err = contract.ParseActivityKind(activity); err != nil {
			return h.respond(tool, nil, fmt.Errorf("invalid parameters: %w", err))
		}
		if of == "activities" {
			count, _, err = core.GetActivityCountResult(ctx, cfg, h.snap)
		} else {
			count, _, err = core.GetCountWithActivityResult(ctx, cfg, h.snap)
		}
	}
	if err != nil {
		return h.respond(tool, nil, err)
	}
	return h.respond(tool, map[string]any{"count": count}, nil)
}

func (h *toolHandler) handleGroupPopulation(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	const tool = "group_population"
	cfg, err := h.requestConfig(request)
	if err != nil {
		return h.respond(tool, nil, fmt.Errorf("invalid parameters: %w", err))
	}
	if cfg.Grouping, err = contract.ParseGrouping(request.GetString("grouping", ""), false); err != nil {
		return h.respond(tool, nil, fmt.Errorf("invalid parameters: %w", err))
	}

	groups, _, err := core.GetGroupResults(ctx, cfg, h.snap)
	if err != nil {
		return h.respond(tool, nil, err)
	}
	return h.respond(tool, schema.EnrichGroups(groups), nil)
}

func (h *toolHandler) handleDrillDown(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	const tool = "drill_down"
	cfg, err := h.requestConfig(request)
	if err != nil {
		return h.respond(tool, nil, fmt.Errorf("invalid parameters: %w", err))
	}
	if cfg.Grouping, err = contract.ParseGrouping(request.GetString("grouping", ""), true); err != nil {
		return h.respond(tool, nil, fmt.Errorf("invalid parameters: %w", err))
	}
	cfg.GroupValue = request.GetString("value", "")

	result, _, err := core.GetDrillResults(ctx, cfg, h.snap)
	if err != nil {
		return h.respond(tool, nil, err)
	}
	return h.respond(tool, result, nil)
}

func (h *toolHandler) handleAverageDuration(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	const tool = "average_duration"
	cfg, err := h.requestConfig(request)
	if err != nil {
		return h.respond(tool, nil, fmt.Errorf("invalid parameters: %w", err))
	}
	if cfg.Measure, err = contract.ParseMeasure(request.GetString("measure", "")); err != nil {
		return h.respond(tool, nil, fmt.Errorf("invalid parameters: %w", err))
	}

	if cfg.Measure == schema.NumberFieldMeasure {
		summary, _, err := core.GetNumberSummaryResult(ctx, cfg, h.snap)
		return h.respond(tool, summary, err)
	}
	avg, _, err := core.GetAverageResult(ctx, cfg, h.snap)
	return h.respond(tool, avg, err)
}
