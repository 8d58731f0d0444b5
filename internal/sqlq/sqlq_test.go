package sqlq

import (
	"testing"

	"github.com/huangsam/cohortstats/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFor(t *testing.T) {
	for _, backend := range []schema.DatabaseBackend{schema.SQLiteBackend, schema.PostgreSQLBackend, schema.MySQLBackend} {
		d, err := For(backend)
		require.NoError(t, err)
		assert.Equal(t, backend, d.Backend())
	}

	_, err := For("oracle")
	assert.Error(t, err)
}

func TestBuilderPlaceholders(t *testing.T) {
	tests := []struct {
		dialect Dialect
		want    string
	}{
		{SQLite, `SELECT * FROM person p WHERE p."gender" IN (?, ?) AND p.id = ?`},
		{MySQL, "SELECT * FROM person p WHERE p.`gender` IN (?, ?) AND p.id = ?"},
		{Postgres, `SELECT * FROM person p WHERE p."gender" IN ($1, $2) AND p.id = $3`},
	}

	for _, tt := range tests {
		t.Run(string(tt.dialect.Backend()), func(t *testing.T) {
			b := NewBuilder(tt.dialect)
			b.Write("SELECT * FROM person p WHERE ", b.Column("p", "gender"), " IN (", b.List([]string{"F", "M"}), ")")
			b.Write(" AND p.id = ", b.Arg("p1"))

			assert.Equal(t, tt.want, b.SQL())
			assert.Equal(t, []any{"F", "M", "p1"}, b.Args())
		})
	}
}

func TestValidateIdent(t *testing.T) {
	valid := []string{"gender", "custom_field_1", "_x"}
	for _, name := range valid {
		assert.NoError(t, ValidateIdent(name), name)
	}

	invalid := []string{"", "1abc", "name; DROP TABLE person", `a"b`, "a-b"}
	for _, name := range invalid {
		assert.Error(t, ValidateIdent(name), name)
	}
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, "%abc%", EscapeLike("abc"))
	assert.Equal(t, "%50!%!_off!!%", EscapeLike("50%_off!"))
}

func TestDialectFragments(t *testing.T) {
	join, elem := SQLite.JSONElements("f.categories", "je")
	assert.Equal(t, "CROSS JOIN json_each(f.categories) AS je", join)
	assert.Equal(t, "je.value", elem)

	join, elem = Postgres.JSONElements("f.categories", "je")
	assert.Contains(t, join, "jsonb_array_elements_text")
	assert.Equal(t, "je.elem", elem)

	join, elem = MySQL.JSONElements("f.categories", "je")
	assert.Contains(t, join, "JSON_TABLE")
	assert.Equal(t, "je.elem", elem)

	assert.Equal(t, "CAST(x AS SIGNED)", MySQL.CastInt("x"))
	assert.Contains(t, Postgres.Contains("p.name", "$1"), "ILIKE $1 ESCAPE '!'")
	assert.Contains(t, SQLite.DaysBetween("a", "b"), "julianday")
	assert.Contains(t, MySQL.DaysBetween("a", "b"), "DATEDIFF")
	assert.Equal(t, "string_agg(DISTINCT t.team_id, ',')", Postgres.GroupConcat("t.team_id"))
}
