// Package sqlq builds parameterized SQL for the supported snapshot backends.
package sqlq

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/huangsam/cohortstats/schema"
)

// Dialect renders the backend-specific fragments the query builders need.
type Dialect interface {
	// Backend returns the backend this dialect targets.
	Backend() schema.DatabaseBackend

	// Placeholder returns the bind marker for the n-th argument, starting at 1.
	Placeholder(n int) string

	// QuoteIdent quotes a validated identifier.
	QuoteIdent(name string) string

	// DaysBetween returns the whole-day difference later - earlier of two ISO timestamp expressions.
	DaysBetween(later, earlier string) string

	// CastInt casts a text expression to an integer.
	CastInt(expr string) string

	// Contains returns a case-insensitive substring match of expr against a LIKE pattern
	// escaped with EscapeLike.
	Contains(expr, pattern string) string

	// JSONElements returns the join clause decomposing a JSON array column into rows,
	// and the expression of one element.
	JSONElements(column, alias string) (join string, elem string)

	// GroupConcat returns the comma-separated distinct values of expr within a group.
	GroupConcat(expr string) string
}

// Dialects for every supported backend.
var (
	SQLite   Dialect = sqliteDialect{}
	Postgres Dialect = postgresDialect{}
	MySQL    Dialect = mysqlDialect{}
)

// For returns the dialect of the given backend.
func For(backend schema.DatabaseBackend) (Dialect, error) {
	switch backend {
	case schema.SQLiteBackend:
		return SQLite, nil
	case schema.PostgreSQLBackend:
		return Postgres, nil
	case schema.MySQLBackend:
		return MySQL, nil
	default:
		return nil, fmt.Errorf("unsupported backend: %s. Must be sqlite, mysql, or postgresql", backend)
	}
}

var identPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// ValidateIdent rejects names that cannot be safely quoted as identifiers.
func ValidateIdent(name string) error {
	if name == "" {
		return fmt.Errorf("identifier cannot be empty")
	}
	if !identPattern.MatchString(name) {
		return fmt.Errorf("invalid identifier: %s (must match pattern ^[a-zA-Z_][a-zA-Z0-9_]*$)", name)
	}
	return nil
}

// likeEscaper escapes LIKE wildcards with '!', the escape character every dialect declares.
var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// EscapeLike returns a LIKE pattern matching s anywhere in a value.
func EscapeLike(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

type sqliteDialect struct{}

func (sqliteDialect) Backend() schema.DatabaseBackend { return schema.SQLiteBackend }

func (sqliteDialect) Placeholder(int) string { return "?" }

func (sqliteDialect) QuoteIdent(name string) string { return `"` + name + `"` }

func (sqliteDialect) DaysBetween(later, earlier string) string {
	return fmt.Sprintf("CAST(julianday(SUBSTR(%s, 1, 10)) - julianday(SUBSTR(%s, 1, 10)) AS INTEGER)", later, earlier)
}

func (sqliteDialect) CastInt(expr string) string { return "CAST(" + expr + " AS INTEGER)" }

func (sqliteDialect) Contains(expr, pattern string) string {
	return expr + " LIKE " + pattern + " ESCAPE '!'"
}

func (sqliteDialect) JSONElements(column, alias string) (string, string) {
	return fmt.Sprintf("CROSS JOIN json_each(%s) AS %s", column, alias), alias + ".value"
}

func (sqliteDialect) GroupConcat(expr string) string { return "group_concat(DISTINCT " + expr + ")" }

type postgresDialect struct{}

func (postgresDialect) Backend() schema.DatabaseBackend { return schema.PostgreSQLBackend }

func (postgresDialect) Placeholder(n int) string { return "$" + strconv.Itoa(n) }

func (postgresDialect) QuoteIdent(name string) string { return `"` + name + `"` }

func (postgresDialect) DaysBetween(later, earlier string) string {
	return fmt.Sprintf("(CAST(SUBSTR(%s, 1, 10) AS date) - CAST(SUBSTR(%s, 1, 10) AS date))", later, earlier)
}

func (postgresDialect) CastInt(expr string) string { return "CAST(" + expr + " AS INTEGER)" }

func (postgresDialect) Contains(expr, pattern string) string {
	return expr + " ILIKE " + pattern + " ESCAPE '!'"
}

func (postgresDialect) JSONElements(column, alias string) (string, string) {
	return fmt.Sprintf("CROSS JOIN LATERAL jsonb_array_elements_text(CAST(%s AS jsonb)) AS %s(elem)", column, alias), alias + ".elem"
}

func (postgresDialect) GroupConcat(expr string) string { return "string_agg(DISTINCT " + expr + ", ',')" }

type mysqlDialect struct{}

func (mysqlDialect) Backend() schema.DatabaseBackend { return schema.MySQLBackend }

func (mysqlDialect) Placeholder(int) string { return "?" }

func (mysqlDialect) QuoteIdent(name string) string { return "`" + name + "`" }

func (mysqlDialect) DaysBetween(later, earlier string) string {
	return fmt.Sprintf("DATEDIFF(SUBSTR(%s, 1, 10), SUBSTR(%s, 1, 10))", later, earlier)
}

func (mysqlDialect) CastInt(expr string) string { return "CAST(" + expr + " AS SIGNED)" }

func (mysqlDialect) Contains(expr, pattern string) string {
	return expr + " LIKE " + pattern + " ESCAPE '!'"
}

func (mysqlDialect) JSONElements(column, alias string) (string, string) {
	return fmt.Sprintf("CROSS JOIN JSON_TABLE(%s, '$[*]' COLUMNS (elem VARCHAR(255) PATH '$')) AS %s", column, alias), alias + ".elem"
}

func (mysqlDialect) GroupConcat(expr string) string {
	return "GROUP_CONCAT(DISTINCT " + expr + " SEPARATOR ',')"
}
