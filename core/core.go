// Package core binds the statistics libraries to a snapshot and a configuration.
// Get functions return typed results for the MCP server; Execute functions
// print them for the CLI.
package core

import (
	"context"

	"github.com/huangsam/cohortstats/core/cohort"
	"github.com/huangsam/cohortstats/internal/contract"
	"github.com/huangsam/cohortstats/internal/outwriter"
	"github.com/huangsam/cohortstats/schema"
)

// ExecutorFunc defines the function signature for executing different statistics.
type ExecutorFunc func(ctx context.Context, cfg *contract.Config, snap contract.Snapshot) error

// withClock evaluates ages and open-ended durations at the configured instant.
func withClock(ctx context.Context, cfg *contract.Config) context.Context {
	if cfg.Now.IsZero() {
		return ctx
	}
	return cohort.WithNow(ctx, cfg.Now)
}

// reportHeader describes the scope of a statistic for printed output.
func reportHeader(cfg *contract.Config, statistic string, withPopulation bool) schema.ReportHeader {
	header := schema.ReportHeader{
		Statistic: statistic,
		Teams:     cfg.Stats.Teams,
		Period:    cfg.Stats.Period,
		Filters:   len(cfg.Stats.Filters),
	}
	if withPopulation {
		header.Population = cfg.Population
	}
	return header
}

// ExecuteCount counts the configured population and prints the result.
func ExecuteCount(ctx context.Context, cfg *contract.Config, snap contract.Snapshot) error {
	count, duration, err := GetCountResult(ctx, cfg, snap)
	if err != nil {
		return err
	}
	return outwriter.NewOutWriter().WriteCount(reportHeader(cfg, "count", true), count, cfg, duration)
}

// ExecuteActivityCount counts the activities of the configured kind and prints the result.
func ExecuteActivityCount(ctx context.Context, cfg *contract.Config, snap contract.Snapshot) error {
	count, duration, err := GetActivityCountResult(ctx, cfg, snap)
	if err != nil {
		return err
	}
	header := reportHeader(cfg, "count "+string(cfg.Activity), false)
	return outwriter.NewOutWriter().WriteCount(header, count, cfg, duration)
}

// ExecuteCountWithActivity counts persons of the population having at least one
// activity of the configured kind and prints the result.
func ExecuteCountWithActivity(ctx context.Context, cfg *contract.Config, snap contract.Snapshot) error {
	count, duration, err := GetCountWithActivityResult(ctx, cfg, snap)
	if err != nil {
		return err
	}
	header := reportHeader(cfg, "count with "+string(cfg.Activity), true)
	return outwriter.NewOutWriter().WriteCount(header, count, cfg, duration)
}

// ExecuteGroup runs the configured grouping and prints every non-empty bucket.
func ExecuteGroup(ctx context.Context, cfg *contract.Config, snap contract.Snapshot) error {
	groups, duration, err := GetGroupResults(ctx, cfg, snap)
	if err != nil {
		return err
	}
	header := reportHeader(cfg, groupStatistic(cfg), cfg.Grouping != schema.ActionCategoryGrouping)
	return outwriter.NewOutWriter().WriteGroups(header, groups, cfg, duration)
}

// ExecuteDrill prints the records behind the configured bucket.
func ExecuteDrill(ctx context.Context, cfg *contract.Config, snap contract.Snapshot) error {
	result, duration, err := GetDrillResults(ctx, cfg, snap)
	if err != nil {
		return err
	}
	header := reportHeader(cfg, groupStatistic(cfg), cfg.Grouping != schema.ActionCategoryGrouping)
	return outwriter.NewOutWriter().WriteDrill(header, result, cfg, duration)
}

// ExecuteAverage prints the average of the configured measure. Number fields
// print their count, total and average instead.
func ExecuteAverage(ctx context.Context, cfg *contract.Config, snap contract.Snapshot) error {
	statistic := "average " + string(cfg.Measure)
	if cfg.Field != "" {
		statistic += " " + cfg.Field
	}
	header := reportHeader(cfg, statistic, true)

	if cfg.Measure == schema.NumberFieldMeasure {
		summary, duration, err := GetNumberSummaryResult(ctx, cfg, snap)
		if err != nil {
			return err
		}
		return outwriter.NewOutWriter().WriteNumberSummary(header, summary, cfg, duration)
	}

	avg, duration, err := GetAverageResult(ctx, cfg, snap)
	if err != nil {
		return err
	}
	return outwriter.NewOutWriter().WriteAverage(header, avg, cfg, duration)
}

// ExecuteState prints the history row describing the configured person at the configured instant.
func ExecuteState(ctx context.Context, cfg *contract.Config, snap contract.Snapshot) error {
	row, found, _, err := GetStateResult(ctx, cfg, snap)
	if err != nil {
		return err
	}
	return outwriter.NewOutWriter().WriteState(cfg.PersonID, stateInstant(cfg), row, found, cfg)
}

// groupStatistic names a grouping in printed headers.
func groupStatistic(cfg *contract.Config) string {
	if cfg.Grouping == schema.FieldGrouping {
		return string(cfg.Grouping) + " " + cfg.Field
	}
	return string(cfg.Grouping)
}

