package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/huangsam/cohortstats/core/agg"
	"github.com/huangsam/cohortstats/core/drill"
	"github.com/huangsam/cohortstats/core/population"
	"github.com/huangsam/cohortstats/internal/contract"
	"github.com/huangsam/cohortstats/schema"
)

// GetCountResult counts the configured population.
func GetCountResult(ctx context.Context, cfg *contract.Config, snap contract.Snapshot) (int64, time.Duration, error) {
	start := time.Now()
	count, err := agg.Count(withClock(ctx, cfg), snap, cfg.Stats, cfg.Population)
	if err != nil {
		return 0, 0, fmt.Errorf("count failed: %w", err)
	}
	return count, time.Since(start), nil
}

// GetActivityCountResult counts activities of the configured kind owned by the configured teams.
func GetActivityCountResult(ctx context.Context, cfg *contract.Config, snap contract.Snapshot) (int64, time.Duration, error) {
	start := time.Now()
	count, err := agg.CountActivities(withClock(ctx, cfg), snap, cfg.Stats, cfg.Activity)
	if err != nil {
		return 0, 0, fmt.Errorf("activity count failed: %w", err)
	}
	return count, time.Since(start), nil
}

// GetCountWithActivityResult counts persons having at least one activity of the configured kind.
func GetCountWithActivityResult(ctx context.Context, cfg *contract.Config, snap contract.Snapshot) (int64, time.Duration, error) {
	start := time.Now()
	count, err := agg.CountWithActivity(withClock(ctx, cfg), snap, cfg.Stats, cfg.Population, cfg.Activity)
	if err != nil {
		return 0, 0, fmt.Errorf("count with activity failed: %w", err)
	}
	return count, time.Since(start), nil
}

// GetGroupResults runs the configured grouping.
func GetGroupResults(ctx context.Context, cfg *contract.Config, snap contract.Snapshot) ([]schema.GroupCount, time.Duration, error) {
	start := time.Now()
	ctx = withClock(ctx, cfg)

	var groups []schema.GroupCount
	var err error
	switch cfg.Grouping {
	case schema.AgeGrouping:
		groups, err = agg.GroupByAge(ctx, snap, cfg.Stats, cfg.Population)
	case schema.FollowDurationGrouping:
		groups, err = agg.GroupByFollowDuration(ctx, snap, cfg.Stats, cfg.Population)
	case schema.WanderingDurationGrouping:
		groups, err = agg.GroupByWanderingDuration(ctx, snap, cfg.Stats, cfg.Population)
	case schema.FieldGrouping:
		if cfg.Field == "" {
			return nil, 0, errors.New("--field is required for field groupings")
		}
		groups, err = agg.GroupByField(ctx, snap, cfg.Stats, cfg.Population, cfg.Field)
	case schema.OutReasonGrouping:
		groups, err = agg.GroupByOutOfActiveListReason(ctx, snap, cfg.Stats, cfg.Population)
	case schema.ActionCategoryGrouping:
		groups, err = agg.GroupActionsByCategory(ctx, snap, cfg.Stats, cfg.Categories, cfg.Statuses)
	case schema.PersonActionCategoryGrouping:
		groups, err = agg.GroupPersonsByActionCategory(ctx, snap, cfg.Stats, cfg.Population, cfg.Categories, cfg.Statuses)
	default:
		return nil, 0, fmt.Errorf("unknown grouping %q", cfg.Grouping)
	}
	if err != nil {
		return nil, 0, fmt.Errorf("%s grouping failed: %w", cfg.Grouping, err)
	}
	return groups, time.Since(start), nil
}

// GetDrillResults returns the records behind the configured bucket. The all-rows
// grouping returns the whole filtered population and ignores the bucket label.
func GetDrillResults(ctx context.Context, cfg *contract.Config, snap contract.Snapshot) (schema.DrillResult, time.Duration, error) {
	start := time.Now()
	ctx = withClock(ctx, cfg)
	result := schema.DrillResult{Grouping: cfg.Grouping, Label: cfg.GroupValue}

	if cfg.Grouping != schema.AllRowsGrouping && cfg.GroupValue == "" {
		return result, 0, errors.New("--value is required to drill into a bucket")
	}

	var err error
	switch cfg.Grouping {
	case schema.AllRowsGrouping:
		result.Label = ""
		result.Persons, err = drill.All(ctx, snap, cfg.Stats, cfg.Population)
	case schema.AgeGrouping:
		result.Persons, err = drill.ByAge(ctx, snap, cfg.Stats, cfg.Population, cfg.GroupValue)
	case schema.FollowDurationGrouping:
		result.Persons, err = drill.ByFollowDuration(ctx, snap, cfg.Stats, cfg.Population, cfg.GroupValue)
	case schema.WanderingDurationGrouping:
		result.Persons, err = drill.ByWanderingDuration(ctx, snap, cfg.Stats, cfg.Population, cfg.GroupValue)
	case schema.FieldGrouping:
		if cfg.Field == "" {
			return result, 0, errors.New("--field is required for field drill-downs")
		}
		result.Persons, err = drill.ByField(ctx, snap, cfg.Stats, cfg.Population, cfg.Field, cfg.GroupValue)
	case schema.OutReasonGrouping:
		result.Persons, err = drill.ByOutOfActiveListReason(ctx, snap, cfg.Stats, cfg.Population, cfg.GroupValue)
	case schema.ActionCategoryGrouping:
		result.Actions, err = drill.ActionsByCategory(ctx, snap, cfg.Stats, cfg.GroupValue, cfg.Statuses)
	case schema.PersonActionCategoryGrouping:
		result.Persons, err = drill.PersonsByActionCategory(ctx, snap, cfg.Stats, cfg.Population, cfg.GroupValue, cfg.Statuses)
	default:
		return result, 0, fmt.Errorf("unknown grouping %q", cfg.Grouping)
	}
	if err != nil {
		return result, 0, fmt.Errorf("%s drill-down failed: %w", cfg.Grouping, err)
	}
	return result, time.Since(start), nil
}

// GetAverageResult averages the configured duration measure.
func GetAverageResult(ctx context.Context, cfg *contract.Config, snap contract.Snapshot) (schema.Average, time.Duration, error) {
	start := time.Now()
	ctx = withClock(ctx, cfg)

	var avg schema.Average
	var err error
	switch cfg.Measure {
	case schema.FollowDurationMeasure:
		avg, err = agg.AverageFollowDuration(ctx, snap, cfg.Stats, cfg.Population)
	case schema.WanderingDurationMeasure:
		avg, err = agg.AverageWanderingDuration(ctx, snap, cfg.Stats, cfg.Population)
	case schema.DateFieldMeasure:
		if cfg.Field == "" {
			return avg, 0, errors.New("--field is required for date field averages")
		}
		avg, err = agg.AverageDateField(ctx, snap, cfg.Stats, cfg.Population, cfg.Field)
	case schema.NumberFieldMeasure:
		return avg, 0, errors.New("number fields are summarized, not averaged as durations")
	default:
		return avg, 0, fmt.Errorf("unknown measure %q", cfg.Measure)
	}
	if err != nil {
		return avg, 0, fmt.Errorf("%s average failed: %w", cfg.Measure, err)
	}
	return avg, time.Since(start), nil
}

// GetNumberSummaryResult sums and averages the configured number field.
func GetNumberSummaryResult(ctx context.Context, cfg *contract.Config, snap contract.Snapshot) (schema.NumberSummary, time.Duration, error) {
	start := time.Now()
	if cfg.Field == "" {
		return schema.NumberSummary{}, 0, errors.New("--field is required for number field summaries")
	}
	summary, err := agg.SummarizeNumberField(withClock(ctx, cfg), snap, cfg.Stats, cfg.Population, cfg.Field)
	if err != nil {
		return summary, 0, fmt.Errorf("number summary failed: %w", err)
	}
	return summary, time.Since(start), nil
}

// GetStateResult looks up the history row describing the configured person at the
// configured instant. found is false when no version covers the instant.
func GetStateResult(ctx context.Context, cfg *contract.Config, snap contract.Snapshot) (schema.HistoryRow, bool, time.Duration, error) {
	start := time.Now()
	if cfg.PersonID == "" {
		return schema.HistoryRow{}, false, 0, errors.New("a person id is required")
	}
	row, found, err := population.StateAt(ctx, snap, cfg.PersonID, stateInstant(cfg))
	if err != nil {
		return row, false, 0, fmt.Errorf("state lookup failed: %w", err)
	}
	return row, found, time.Since(start), nil
}

// stateInstant defaults a state lookup to the evaluation instant.
func stateInstant(cfg *contract.Config) string {
	if cfg.At != "" {
		return cfg.At
	}
	if cfg.Now.IsZero() {
		return schema.FormatTimestamp(time.Now())
	}
	return schema.FormatTimestamp(cfg.Now)
}
