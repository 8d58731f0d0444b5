// Package snapshot opens the relational snapshot the statistics engine reads from.
package snapshot

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql" // MySQL driver
	"github.com/huangsam/cohortstats/internal/contract"
	"github.com/huangsam/cohortstats/internal/logger"
	"github.com/huangsam/cohortstats/internal/metrics"
	"github.com/huangsam/cohortstats/internal/sqlq"
	"github.com/huangsam/cohortstats/schema"
	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	_ "modernc.org/sqlite"             // SQLite driver
)

// Store is a read handle on a snapshot database.
type Store struct {
	db      *sql.DB
	backend schema.DatabaseBackend
	dialect sqlq.Dialect
	connStr string
	logger  *logger.Logger
	metrics *metrics.Metrics
}

var _ contract.Snapshot = &Store{} // Compile-time check

// Option customizes a Store.
type Option func(*Store)

// WithLogger logs every query through l.
func WithLogger(l *logger.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithMetrics records every query in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

// Open connects to the snapshot for the given backend.
func Open(backend schema.DatabaseBackend, connStr string, opts ...Option) (*Store, error) {
	dialect, err := sqlq.For(backend)
	if err != nil {
		return nil, err
	}

	db, err := openDB(backend, connStr, false)
	if err != nil {
		return nil, err
	}

	// Ping to verify connection
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to %s snapshot. Check that the server is running and connection parameters are valid: %w", backend, err)
	}

	s := &Store{
		db:      db,
		backend: backend,
		dialect: dialect,
		connStr: connStr,
		logger:  logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// openDB opens a pool for the backend. multiStatements is only honored by MySQL,
// whose migrations need it.
func openDB(backend schema.DatabaseBackend, connStr string, multiStatements bool) (*sql.DB, error) {
	switch backend {
	case schema.SQLiteBackend:
		dbPath := connStr
		if dbPath == "" {
			dbPath = contract.GetSnapshotDBFilePath()
		}
		db, err := sql.Open("sqlite", dbPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open SQLite snapshot at %q: %w", dbPath, err)
		}
		// Limit SQLite to a single open connection to avoid "database is locked" errors
		// and to keep in-memory databases alive across queries
		db.SetMaxOpenConns(1)
		return db, nil

	case schema.MySQLBackend:
		// connStr should be:
		// user:password@tcp(host:port)/dbname
		cfg, err := mysql.ParseDSN(connStr)
		if err != nil {
			return nil, fmt.Errorf("invalid MySQL connection string: %w. Check connection format: user:password@tcp(host:port)/dbname", err)
		}
		cfg.MultiStatements = multiStatements
		db, err := sql.Open("mysql", cfg.FormatDSN())
		if err != nil {
			return nil, fmt.Errorf("failed to connect to MySQL snapshot: %w", err)
		}
		return db, nil

	case schema.PostgreSQLBackend:
		// connStr should be:
		// host=localhost port=5432 user=postgres password=mysecretpassword dbname=postgres
		db, err := sql.Open("pgx", connStr)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to PostgreSQL snapshot: %w. Check connection format: host=localhost port=5432 user=postgres dbname=mydb", err)
		}
		return db, nil

	default:
		return nil, fmt.Errorf("unsupported snapshot backend: %s. Must be sqlite, mysql, or postgresql", backend)
	}
}

// Select runs a read query and returns every row with normalized values.
func (s *Store) Select(ctx context.Context, operation string, query string, args ...any) ([]schema.Record, error) {
	start := time.Now()
	records, err := s.selectRows(ctx, query, args...)
	elapsed := time.Since(start)

	s.logger.LogQuery(operation, elapsed, len(records), err)
	s.metrics.ObserveQuery(operation, elapsed, len(records), err)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", operation, err)
	}
	return records, nil
}

func (s *Store) selectRows(ctx context.Context, query string, args ...any) ([]schema.Record, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var records []schema.Record
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		record := make(schema.Record, len(columns))
		for i, col := range columns {
			record[col] = normalizeValue(values[i])
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// normalizeValue maps driver values onto strings, integers and floats.
func normalizeValue(v any) any {
	switch val := v.(type) {
	case []byte:
		return string(val)
	case time.Time:
		return schema.FormatTimestamp(val)
	default:
		return val
	}
}

// Dialect returns the SQL dialect of the backend.
func (s *Store) Dialect() sqlq.Dialect {
	return s.dialect
}

// Backend returns the backend of the store.
func (s *Store) Backend() schema.DatabaseBackend {
	return s.backend
}

// Close releases the connection pool.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
