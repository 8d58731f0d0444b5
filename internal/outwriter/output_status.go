package outwriter

import (
	"fmt"
	"io"

	"github.com/huangsam/cohortstats/internal/contract"
	"github.com/huangsam/cohortstats/schema"
)

// WriteStatusResult prints snapshot status information. tables sets the display order.
func WriteStatusResult(status schema.SnapshotStatus, tables []string, cfg *contract.Config) error {
	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, status)
		}, "Wrote JSON")
	case schema.ParquetOut, schema.CSVOut:
		return fmt.Errorf("%s output is not supported for snapshot status", cfg.Output)
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeStatusText(w, status, tables)
		}, "Wrote status")
	}
}

func writeStatusText(w io.Writer, status schema.SnapshotStatus, tables []string) error {
	_, _ = fmt.Fprintf(w, "Snapshot Backend: %s\n", status.Backend)
	_, _ = fmt.Fprintf(w, "Connected: %t\n", status.Connected)
	if !status.Connected {
		return nil
	}
	_, _ = fmt.Fprintf(w, "Schema Version: %d", status.SchemaVersion)
	if status.Dirty {
		_, _ = fmt.Fprint(w, " (dirty)")
	}
	_, _ = fmt.Fprintln(w)
	if status.LatestChange != "" {
		_, _ = fmt.Fprintf(w, "Latest History Change: %s\n", status.LatestChange)
	}
	_, _ = fmt.Fprintln(w, "Table Sizes:")
	for _, table := range tables {
		if n, ok := status.TableRows[table]; ok {
			_, _ = fmt.Fprintf(w, "  %s: %d rows\n", table, n)
		}
	}
	return nil
}
