// Package outwriter has output and writer logic.
package outwriter

import (
	"os"
	"time"

	"github.com/huangsam/cohortstats/internal/contract"
	"github.com/huangsam/cohortstats/schema"
	"golang.org/x/term"
)

// OutWriter provides a unified interface for all output operations.
// It encapsulates the various output formats and provides a clean API for the core logic.
type OutWriter struct{}

// NewOutWriter creates a new instance of the output writer.
func NewOutWriter() *OutWriter {
	return &OutWriter{}
}

// WriteCount prints a single count using the configured output format.
func (ow *OutWriter) WriteCount(header schema.ReportHeader, count int64, cfg *contract.Config, duration time.Duration) error {
	return WriteCountResult(header, count, cfg, duration)
}

// WriteGroups prints grouped counts using the configured output format.
func (ow *OutWriter) WriteGroups(header schema.ReportHeader, groups []schema.GroupCount, cfg *contract.Config, duration time.Duration) error {
	return WriteGroupResults(header, groups, cfg, duration)
}

// WriteDrill prints the records behind one bucket using the configured output format.
func (ow *OutWriter) WriteDrill(header schema.ReportHeader, result schema.DrillResult, cfg *contract.Config, duration time.Duration) error {
	return WriteDrillResults(header, result, cfg, duration)
}

// WriteAverage prints an average duration using the configured output format.
func (ow *OutWriter) WriteAverage(header schema.ReportHeader, avg schema.Average, cfg *contract.Config, duration time.Duration) error {
	return WriteAverageResult(header, avg, cfg, duration)
}

// WriteNumberSummary prints a numeric field summary using the configured output format.
func (ow *OutWriter) WriteNumberSummary(header schema.ReportHeader, summary schema.NumberSummary, cfg *contract.Config, duration time.Duration) error {
	return WriteNumberSummaryResult(header, summary, cfg, duration)
}

// WriteState prints the state of a person at an instant using the configured output format.
func (ow *OutWriter) WriteState(personID, instant string, row schema.HistoryRow, found bool, cfg *contract.Config) error {
	return WriteStateResult(personID, instant, row, found, cfg)
}

// WriteStatus prints the status of a snapshot using the configured output format.
func (ow *OutWriter) WriteStatus(status schema.SnapshotStatus, tables []string, cfg *contract.Config) error {
	return WriteStatusResult(status, tables, cfg)
}

// GetMaxTableTextWidth calculates the maximum width for free text columns in table
// output based on terminal width and the width already taken by fixed columns.
func GetMaxTableTextWidth(cfg *contract.Config, baseWidth int) int {
	var termWidth int

	// Check for absolute width override from flag/env
	if cfg.Width > 0 {
		termWidth = cfg.Width
	}

	if termWidth == 0 { // Not set by override
		detectedWidth, _, err := term.GetSize(int(os.Stdout.Fd()))
		if err != nil || detectedWidth <= 0 {
			termWidth = 80 // Conservative default for narrow terminals and CI
		} else {
			termWidth = detectedWidth
		}
	}

	// Reserve generous space for table borders, separators, and padding
	baseWidth += 20

	available := termWidth - baseWidth
	if available < 15 {
		return 15
	}
	if available > 70 {
		return 70
	}
	return available
}
