package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/huangsam/cohortstats/internal/contract"
	"github.com/huangsam/cohortstats/internal/parquet"
	"github.com/huangsam/cohortstats/schema"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// groupsJSON is the JSON document of a grouped statistic.
type groupsJSON struct {
	Header schema.ReportHeader          `json:"header"`
	Total  int64                        `json:"total"`
	Groups []schema.EnrichedGroupCount `json:"groups"`
}

// WriteGroupResults outputs grouped counts, dispatching based on the output format configured.
func WriteGroupResults(header schema.ReportHeader, groups []schema.GroupCount, cfg *contract.Config, duration time.Duration) error {
	fmtFloat, intFmt := createFormatters(cfg.Precision)

	switch cfg.Output {
	case schema.JSONOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeGroupsJSON(w, header, groups)
		}, "Wrote JSON"); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
	case schema.CSVOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeGroupsCSV(w, groups, fmtFloat, intFmt)
		}, "Wrote CSV"); err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
	case schema.ParquetOut:
		if err := parquet.WriteGroupsParquet(header, groups, cfg.OutputFile); err != nil {
			return fmt.Errorf("error writing parquet output: %w", err)
		}
		reportParquet(len(groups), cfg.OutputFile)
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeGroupsTable(w, header, groups, fmtFloat, intFmt, duration)
		}, "Wrote table")
	}
	return nil
}

func writeGroupsJSON(w io.Writer, header schema.ReportHeader, groups []schema.GroupCount) error {
	enriched := schema.EnrichGroups(groups)
	var total int64
	for _, g := range groups {
		total += g.Count
	}
	return writeJSON(w, groupsJSON{Header: header, Total: total, Groups: enriched})
}

func writeGroupsCSV(w io.Writer, groups []schema.GroupCount, fmtFloat func(float64) string, intFmt string) error {
	header := []string{"rank", "label", "count", "share"}
	return writeCSVWithHeader(w, header, func(csvWriter *csv.Writer) error {
		for _, g := range schema.EnrichGroups(groups) {
			row := []string{
				strconv.Itoa(g.Rank),
				g.Label,
				fmt.Sprintf(intFmt, g.Count),
				fmtFloat(g.Share),
			}
			if err := csvWriter.Write(row); err != nil {
				return fmt.Errorf("failed to write CSV row: %w", err)
			}
		}
		return nil
	})
}

// writeGroupsTable prints one row per bucket and a total line.
func writeGroupsTable(w io.Writer, header schema.ReportHeader, groups []schema.GroupCount, fmtFloat func(float64) string, intFmt string, duration time.Duration) error {
	if err := writeReportTitle(w, header); err != nil {
		return err
	}

	table := tablewriter.NewWriter(w)
	table.Header([]string{"Rank", "Label", "Count", "Share"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	var data [][]string
	var total int64
	for _, g := range schema.EnrichGroups(groups) {
		total += g.Count
		data = append(data, []string{
			strconv.Itoa(g.Rank),
			contract.ColorLabel(g.Label),
			fmt.Sprintf(intFmt, g.Count),
			fmtFloat(g.Share) + "%",
		})
	}

	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}
	if _, err := contract.TotalColor.Fprintf(w, "Total: "+intFmt+" across %d groups\n", total, len(groups)); err != nil {
		return err
	}
	return writeReportFooter(w, duration)
}
