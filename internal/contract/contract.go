// Package contract provides interfaces and shared utilities for internal architecture.
package contract

import (
	"context"

	"github.com/huangsam/cohortstats/internal/sqlq"
	"github.com/huangsam/cohortstats/schema"
)

// Snapshot is the read-only handle on the decrypted relational snapshot.
// It is injected into every query so the engine can run against a fixture store.
type Snapshot interface {
	// Select runs a read query and returns every row. operation names the query
	// for logging and metrics.
	Select(ctx context.Context, operation string, query string, args ...any) ([]schema.Record, error)

	// Dialect returns the SQL dialect of the underlying backend.
	Dialect() sqlq.Dialect
}
