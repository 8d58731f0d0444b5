package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/huangsam/cohortstats/internal/contract"
	"github.com/huangsam/cohortstats/internal/parquet"
	"github.com/huangsam/cohortstats/schema"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// personTableFields are the person columns shown in table output, after id and teams.
var personTableFields = []struct {
	Header string
	Key    string
}{
	{"Name", "name"},
	{"Gender", "gender"},
	{"Birthdate", "birthdate"},
	{"Followed since", "followed_since"},
}

// drillJSON is the JSON document of a drill-down.
type drillJSON struct {
	Header schema.ReportHeader `json:"header"`
	schema.DrillResult
}

// WriteDrillResults outputs the records behind one bucket, dispatching based on the output format configured.
func WriteDrillResults(header schema.ReportHeader, result schema.DrillResult, cfg *contract.Config, duration time.Duration) error {
	switch cfg.Output {
	case schema.JSONOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, drillJSON{Header: header, DrillResult: result})
		}, "Wrote JSON"); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
	case schema.CSVOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			if result.Grouping == schema.ActionCategoryGrouping {
				return writeActionsCSV(w, result.Actions)
			}
			return writePersonsCSV(w, result.Persons)
		}, "Wrote CSV"); err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
	case schema.ParquetOut:
		var err error
		if result.Grouping == schema.ActionCategoryGrouping {
			err = parquet.WriteActionsParquet(result.Actions, cfg.OutputFile)
		} else {
			err = parquet.WritePersonsParquet(result.Persons, cfg.OutputFile)
		}
		if err != nil {
			return fmt.Errorf("error writing parquet output: %w", err)
		}
		reportParquet(result.Len(), cfg.OutputFile)
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeDrillTable(w, header, result, cfg, duration)
		}, "Wrote table")
	}
	return nil
}

// personFieldKeys returns every field key present in the persons, sorted.
func personFieldKeys(persons []schema.PersonRow) []string {
	keys := map[string]struct{}{}
	for _, p := range persons {
		for k := range p.Fields {
			keys[k] = struct{}{}
		}
	}
	return slices.Sorted(maps.Keys(keys))
}

// formatField renders a normalized driver value as text. NULL becomes empty.
func formatField(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%f", val), "0"), ".")
	default:
		return fmt.Sprint(val)
	}
}

func writePersonsCSV(w io.Writer, persons []schema.PersonRow) error {
	keys := personFieldKeys(persons)
	header := append([]string{"id", "assigned_teams"}, keys...)
	return writeCSVWithHeader(w, header, func(csvWriter *csv.Writer) error {
		for _, p := range persons {
			row := []string{p.ID, p.AssignedTeams}
			for _, k := range keys {
				row = append(row, formatField(p.Fields[k]))
			}
			if err := csvWriter.Write(row); err != nil {
				return fmt.Errorf("failed to write CSV row: %w", err)
			}
		}
		return nil
	})
}

func writeActionsCSV(w io.Writer, actions []schema.ActionRow) error {
	header := []string{"id", "person_id", "status", "categories", "due_at", "completed_at", "created_at", "teams"}
	return writeCSVWithHeader(w, header, func(csvWriter *csv.Writer) error {
		for _, a := range actions {
			row := []string{
				a.ID,
				a.PersonID,
				a.Status,
				strings.Join(a.Categories, "|"),
				a.DueAt,
				a.CompletedAt,
				a.CreatedAt,
				a.Teams,
			}
			if err := csvWriter.Write(row); err != nil {
				return fmt.Errorf("failed to write CSV row: %w", err)
			}
		}
		return nil
	})
}

// writeDrillTable prints persons or actions in a table, truncating free text to the terminal.
func writeDrillTable(w io.Writer, header schema.ReportHeader, result schema.DrillResult, cfg *contract.Config, duration time.Duration) error {
	if err := writeReportTitle(w, header); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Bucket: %s\n", contract.ColorLabel(result.Label)); err != nil {
		return err
	}

	table := tablewriter.NewWriter(w)
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignLeft
	})

	var data [][]string
	if result.Grouping == schema.ActionCategoryGrouping {
		table.Header([]string{"ID", "Person", "Status", "Categories", "Due", "Completed", "Created", "Teams"})
		textWidth := GetMaxTableTextWidth(cfg, 90)
		for _, a := range result.Actions {
			data = append(data, []string{
				a.ID,
				a.PersonID,
				a.Status,
				contract.TruncateText(strings.Join(a.Categories, ", "), textWidth),
				day(a.DueAt),
				day(a.CompletedAt),
				day(a.CreatedAt),
				a.Teams,
			})
		}
	} else {
		headers := []string{"ID", "Teams"}
		for _, f := range personTableFields {
			headers = append(headers, f.Header)
		}
		table.Header(headers)
		textWidth := GetMaxTableTextWidth(cfg, 75)
		for _, p := range result.Persons {
			row := []string{p.ID, p.AssignedTeams}
			for _, f := range personTableFields {
				value := formatField(p.Fields[f.Key])
				if f.Key == "name" {
					value = contract.TruncateText(value, textWidth)
				} else {
					value = day(value)
				}
				row = append(row, value)
			}
			data = append(data, row)
		}
	}

	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}
	if _, err := contract.TotalColor.Fprintf(w, "Showing %d records\n", result.Len()); err != nil {
		return err
	}
	return writeReportFooter(w, duration)
}

// day shortens a stored timestamp to its calendar day for display.
func day(ts string) string {
	if len(ts) >= len(schema.DayFormat) && ts[4] == '-' {
		return ts[:len(schema.DayFormat)]
	}
	return ts
}
