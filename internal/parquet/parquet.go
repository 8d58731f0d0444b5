// Package parquet provides data structures and functions for exporting cohort
// statistics to Parquet files using github.com/parquet-go/parquet-go.
package parquet

import (
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/huangsam/cohortstats/schema"
	"github.com/parquet-go/parquet-go"
)

// GroupRecord is one bucket of a grouped statistic.
type GroupRecord struct {
	// Statistic names the grouping or count the row belongs to
	Statistic string `parquet:"statistic,snappy"`

	// Population is the cohort kind (nullable for action counts)
	Population *string `parquet:"population,optional,snappy"`

	// Label is the bucket label
	Label string `parquet:"label,snappy"`

	// Count is the number of records in the bucket
	Count int64 `parquet:"count,snappy"`

	// Share is the percentage of the total
	Share float64 `parquet:"share,snappy"`
}

// PersonRecord is one person returned by a drill-down.
type PersonRecord struct {
	ID            string `parquet:"id,snappy"`
	AssignedTeams string `parquet:"assigned_teams,snappy"`

	// Fields holds every other column as a JSON object
	Fields string `parquet:"fields,snappy"`
}

// ActionRecord is one action returned by the action category drill-down.
type ActionRecord struct {
	ID          string  `parquet:"id,snappy"`
	PersonID    string  `parquet:"person_id,snappy"`
	Status      string  `parquet:"status,snappy"`
	Categories  string  `parquet:"categories,snappy"` // pipe-separated
	DueAt       *string `parquet:"due_at,optional,snappy"`
	CompletedAt *string `parquet:"completed_at,optional,snappy"`
	CreatedAt   string  `parquet:"created_at,snappy"`
	Teams       string  `parquet:"teams,snappy"`
}

// writeParquet writes rows to a Parquet file whose schema is inferred from T.
func writeParquet[T any](data []T, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() { _ = file.Close() }()

	writer := parquet.NewGenericWriter[T](file)
	if _, err := writer.Write(data); err != nil {
		return fmt.Errorf("failed to write data to parquet file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close parquet writer: %w", err)
	}
	return nil
}

// WriteGroupsParquet writes group counts to a Parquet file.
func WriteGroupsParquet(header schema.ReportHeader, groups []schema.GroupCount, outputPath string) error {
	return writeParquet(GroupRecords(header, groups), outputPath)
}

// WritePersonsParquet writes drill-down persons to a Parquet file.
func WritePersonsParquet(persons []schema.PersonRow, outputPath string) error {
	records, err := PersonRecords(persons)
	if err != nil {
		return err
	}
	return writeParquet(records, outputPath)
}

// WriteActionsParquet writes drill-down actions to a Parquet file.
func WriteActionsParquet(actions []schema.ActionRow, outputPath string) error {
	return writeParquet(ActionRecords(actions), outputPath)
}

// GroupRecords converts group counts to Parquet rows.
func GroupRecords(header schema.ReportHeader, groups []schema.GroupCount) []GroupRecord {
	var population *string
	if header.Population != "" {
		p := string(header.Population)
		population = &p
	}
	records := make([]GroupRecord, 0, len(groups))
	for _, g := range schema.EnrichGroups(groups) {
		records = append(records, GroupRecord{
			Statistic:  header.Statistic,
			Population: population,
			Label:      g.Label,
			Count:      g.Count,
			Share:      g.Share,
		})
	}
	return records
}

// PersonRecords converts persons to Parquet rows. Custom fields are kept as a
// JSON object since their columns differ between organisations.
func PersonRecords(persons []schema.PersonRow) ([]PersonRecord, error) {
	records := make([]PersonRecord, 0, len(persons))
	for _, p := range persons {
		fields, err := json.Marshal(p.Fields)
		if err != nil {
			return nil, fmt.Errorf("failed to encode fields of person %s: %w", p.ID, err)
		}
		records = append(records, PersonRecord{ID: p.ID, AssignedTeams: p.AssignedTeams, Fields: string(fields)})
	}
	return records, nil
}

// ActionRecords converts actions to Parquet rows.
func ActionRecords(actions []schema.ActionRow) []ActionRecord {
	records := make([]ActionRecord, 0, len(actions))
	for _, a := range actions {
		records = append(records, ActionRecord{
			ID:          a.ID,
			PersonID:    a.PersonID,
			Status:      a.Status,
			Categories:  strings.Join(slices.Clone(a.Categories), "|"),
			DueAt:       optional(a.DueAt),
			CompletedAt: optional(a.CompletedAt),
			CreatedAt:   a.CreatedAt,
			Teams:       a.Teams,
		})
	}
	return records
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
