package outwriter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/huangsam/cohortstats/internal/contract"
	"github.com/huangsam/cohortstats/schema"
)

// writeWithFile handles the common pattern of opening a file, writing to it, and cleaning up.
// It accepts a writer function that takes an io.Writer and returns an error.
func writeWithFile(outputFile string, writer func(io.Writer) error, successMsg string) error {
	file, err := contract.SelectOutputFile(outputFile)
	if err != nil {
		return err
	}
	// Only close if it's not stdout
	if file != os.Stdout {
		defer func() { _ = file.Close() }()
	}

	if err := writer(file); err != nil {
		return err
	}

	if file != os.Stdout {
		_, _ = fmt.Fprintf(os.Stderr, "💾 %s to %s\n", successMsg, outputFile)
	}
	return nil
}

// writeJSON is a generic JSON encoder that handles indentation consistently.
func writeJSON(w io.Writer, data any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// writeCSVWithHeader handles the common pattern of creating a CSV writer,
// writing a header, and writing data rows.
func writeCSVWithHeader(w io.Writer, header []string, writeRows func(*csv.Writer) error) error {
	csvWriter := csv.NewWriter(w)
	defer csvWriter.Flush()

	if err := csvWriter.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	return writeRows(csvWriter)
}

// createFormatters creates the common formatter closures used across multiple output types.
func createFormatters(precision int) (fmtFloat func(float64) string, intFmt string) {
	numFmt := "%.*f"
	intFmt = "%d"
	fmtFloat = func(v float64) string {
		return fmt.Sprintf(numFmt, precision, v)
	}
	return fmtFloat, intFmt
}

// writeReportTitle prints the statistic name and its scope above a table.
func writeReportTitle(w io.Writer, header schema.ReportHeader) error {
	if _, err := contract.HeaderColor.Fprintf(w, "📊 %s\n", header.Statistic); err != nil {
		return err
	}
	scope := header.Scope()
	if header.Filters > 0 {
		scope += fmt.Sprintf(" | %d filters", header.Filters)
	}
	_, err := fmt.Fprintln(w, scope)
	return err
}

// writeReportFooter prints how long the statistic took to compute.
func writeReportFooter(w io.Writer, duration time.Duration) error {
	_, err := fmt.Fprintf(w, "Computed in %v\n", duration.Round(time.Millisecond))
	return err
}

// unsupportedParquet is returned by writers whose result has no tabular shape.
func unsupportedParquet(what string) error {
	return fmt.Errorf("parquet output is not supported for %s", what)
}

// reportParquet tells the user where a Parquet export went.
func reportParquet(n int, outputFile string) {
	fmt.Printf("Exported %d records to: %s\n", n, outputFile)
}
