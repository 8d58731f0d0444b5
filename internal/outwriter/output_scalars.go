package outwriter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/huangsam/cohortstats/internal/contract"
	"github.com/huangsam/cohortstats/internal/parquet"
	"github.com/huangsam/cohortstats/schema"
)

// WriteCountResult outputs a single count, dispatching based on the output format configured.
// Parquet output stores the count as a one-row group table.
func WriteCountResult(header schema.ReportHeader, count int64, cfg *contract.Config, duration time.Duration) error {
	_, intFmt := createFormatters(cfg.Precision)

	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, struct {
				Header schema.ReportHeader `json:"header"`
				Count  int64               `json:"count"`
			}{header, count})
		}, "Wrote JSON")
	case schema.CSVOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeCSVWithHeader(w, []string{"statistic", "population", "count"}, func(csvWriter *csv.Writer) error {
				return csvWriter.Write([]string{header.Statistic, string(header.Population), fmt.Sprintf(intFmt, count)})
			})
		}, "Wrote CSV")
	case schema.ParquetOut:
		groups := []schema.GroupCount{{Label: header.Statistic, Count: count}}
		if err := parquet.WriteGroupsParquet(header, groups, cfg.OutputFile); err != nil {
			return fmt.Errorf("error writing parquet output: %w", err)
		}
		reportParquet(1, cfg.OutputFile)
		return nil
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			if err := writeReportTitle(w, header); err != nil {
				return err
			}
			if _, err := contract.TotalColor.Fprintf(w, "Count: "+intFmt+"\n", count); err != nil {
				return err
			}
			return writeReportFooter(w, duration)
		}, "Wrote table")
	}
}

// WriteAverageResult outputs an average duration, dispatching based on the output format configured.
func WriteAverageResult(header schema.ReportHeader, avg schema.Average, cfg *contract.Config, duration time.Duration) error {
	fmtFloat, intFmt := createFormatters(cfg.Precision)

	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, struct {
				Header  schema.ReportHeader `json:"header"`
				Average schema.Average      `json:"average"`
			}{header, avg})
		}, "Wrote JSON")
	case schema.CSVOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeCSVWithHeader(w, []string{"statistic", "count", "days", "value", "unit"}, func(csvWriter *csv.Writer) error {
				return csvWriter.Write([]string{
					header.Statistic,
					fmt.Sprintf(intFmt, avg.Count),
					fmtFloat(avg.Days),
					strconv.Itoa(avg.Human.Value),
					avg.Human.Unit,
				})
			})
		}, "Wrote CSV")
	case schema.ParquetOut:
		return unsupportedParquet("averages")
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			if err := writeReportTitle(w, header); err != nil {
				return err
			}
			if _, err := contract.TotalColor.Fprintf(w, "Average: %s\n", avg.Human); err != nil {
				return err
			}
			if _, err := fmt.Fprintf(w, "Based on "+intFmt+" persons (%s days)\n", avg.Count, fmtFloat(avg.Days)); err != nil {
				return err
			}
			return writeReportFooter(w, duration)
		}, "Wrote table")
	}
}

// WriteNumberSummaryResult outputs the count, total and average of a number field.
func WriteNumberSummaryResult(header schema.ReportHeader, summary schema.NumberSummary, cfg *contract.Config, duration time.Duration) error {
	fmtFloat, intFmt := createFormatters(cfg.Precision)

	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, struct {
				Header  schema.ReportHeader  `json:"header"`
				Summary schema.NumberSummary `json:"summary"`
			}{header, summary})
		}, "Wrote JSON")
	case schema.CSVOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeCSVWithHeader(w, []string{"statistic", "count", "total", "average"}, func(csvWriter *csv.Writer) error {
				return csvWriter.Write([]string{
					header.Statistic,
					fmt.Sprintf(intFmt, summary.Count),
					fmtFloat(summary.Total),
					fmtFloat(summary.Average),
				})
			})
		}, "Wrote CSV")
	case schema.ParquetOut:
		return unsupportedParquet("number summaries")
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			if err := writeReportTitle(w, header); err != nil {
				return err
			}
			if _, err := fmt.Fprintf(w, "Count: "+intFmt+"\nTotal: %s\n", summary.Count, fmtFloat(summary.Total)); err != nil {
				return err
			}
			if _, err := contract.TotalColor.Fprintf(w, "Average: %s\n", fmtFloat(summary.Average)); err != nil {
				return err
			}
			return writeReportFooter(w, duration)
		}, "Wrote table")
	}
}

// WriteStateResult outputs the history row describing a person at an instant.
func WriteStateResult(personID, instant string, row schema.HistoryRow, found bool, cfg *contract.Config) error {
	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			doc := struct {
				PersonID string             `json:"personId"`
				Instant  string             `json:"instant"`
				Found    bool               `json:"found"`
				State    *schema.HistoryRow `json:"state,omitempty"`
			}{PersonID: personID, Instant: instant, Found: found}
			if found {
				doc.State = &row
			}
			return writeJSON(w, doc)
		}, "Wrote JSON")
	case schema.CSVOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeCSVWithHeader(w, []string{"seq", "person_id", "from_date", "to_date", "data"}, func(csvWriter *csv.Writer) error {
				if !found {
					return nil
				}
				return csvWriter.Write([]string{strconv.FormatInt(row.Seq, 10), row.PersonID, row.FromDate, row.ToDate, row.Data})
			})
		}, "Wrote CSV")
	case schema.ParquetOut:
		return unsupportedParquet("person states")
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeStateText(w, personID, instant, row, found)
		}, "Wrote state")
	}
}

func writeStateText(w io.Writer, personID, instant string, row schema.HistoryRow, found bool) error {
	if _, err := contract.HeaderColor.Fprintf(w, "🕒 %s at %s\n", personID, instant); err != nil {
		return err
	}
	if !found {
		_, err := fmt.Fprintln(w, "No recorded state at this instant")
		return err
	}
	validTo := row.ToDate
	if validTo == "" {
		validTo = "open"
	}
	if _, err := fmt.Fprintf(w, "Version %d valid from %s to %s\n", row.Seq, row.FromDate, validTo); err != nil {
		return err
	}
	if row.Data == "" {
		return nil
	}
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, []byte(row.Data), "", "  "); err != nil {
		// Not JSON, print as stored
		_, err = fmt.Fprintln(w, row.Data)
		return err
	}
	_, err := fmt.Fprintln(w, pretty.String())
	return err
}
