package snapshot

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/huangsam/cohortstats/internal/sqlq"
	"github.com/huangsam/cohortstats/schema"
	"gopkg.in/yaml.v3"
)

// Fixture is a YAML description of snapshot rows used to build local snapshots.
type Fixture struct {
	CustomFields  []schema.FilterDefinition `yaml:"customFields"`
	Persons       []PersonFixture           `yaml:"persons"`
	Actions       []ActionFixture           `yaml:"actions"`
	Consultations []ConsultationFixture     `yaml:"consultations"`
	Passages      []DatedFixture            `yaml:"passages"`
	Encounters    []DatedFixture            `yaml:"encounters"`
	Comments      []DatedFixture            `yaml:"comments"`
	Treatments    []CreatedFixture          `yaml:"treatments"`
	Places        []PlaceFixture            `yaml:"places"`
}

// PersonFixture is one person with its team and history logs.
type PersonFixture struct {
	ID                     string         `yaml:"id"`
	Name                   string         `yaml:"name"`
	Gender                 string         `yaml:"gender"`
	Birthdate              string         `yaml:"birthdate"`
	FollowedSince          string         `yaml:"followedSince"`
	CreatedAt              string         `yaml:"createdAt"`
	DeletedAt              string         `yaml:"deletedAt"`
	WanderingAt            string         `yaml:"wanderingAt"`
	OutOfActiveList        bool           `yaml:"outOfActiveList"`
	OutOfActiveListDate    string         `yaml:"outOfActiveListDate"`
	OutOfActiveListReasons []string       `yaml:"outOfActiveListReasons"`
	Alertness              *bool          `yaml:"alertness"`
	Fields                 map[string]any `yaml:"fields"`
	Teams                  []TeamInterval `yaml:"teams"`
	History                []HistoryEntry `yaml:"history"`
}

// TeamInterval is one row of the team assignment log. An empty To means current.
type TeamInterval struct {
	Team string `yaml:"team"`
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

// HistoryEntry is one row of the person history log.
type HistoryEntry struct {
	From string         `yaml:"from"`
	To   string         `yaml:"to"`
	Data map[string]any `yaml:"data"`
}

// ActionFixture is an action, possibly shared by several teams.
type ActionFixture struct {
	ID          string   `yaml:"id"`
	Person      string   `yaml:"person"`
	Status      string   `yaml:"status"`
	Categories  []string `yaml:"categories"`
	DueAt       string   `yaml:"dueAt"`
	CompletedAt string   `yaml:"completedAt"`
	CreatedAt   string   `yaml:"createdAt"`
	DeletedAt   string   `yaml:"deletedAt"`
	Teams       []string `yaml:"teams"`
}

// ConsultationFixture is a consultation owned by one team.
type ConsultationFixture struct {
	ID          string `yaml:"id"`
	Person      string `yaml:"person"`
	Team        string `yaml:"team"`
	Type        string `yaml:"type"`
	Status      string `yaml:"status"`
	DueAt       string `yaml:"dueAt"`
	CompletedAt string `yaml:"completedAt"`
	CreatedAt   string `yaml:"createdAt"`
	DeletedAt   string `yaml:"deletedAt"`
}

// DatedFixture is a passage, encounter or comment.
type DatedFixture struct {
	ID        string `yaml:"id"`
	Person    string `yaml:"person"`
	Team      string `yaml:"team"`
	Date      string `yaml:"date"`
	CreatedAt string `yaml:"createdAt"`
	DeletedAt string `yaml:"deletedAt"`
}

// CreatedFixture is a treatment.
type CreatedFixture struct {
	ID        string `yaml:"id"`
	Person    string `yaml:"person"`
	CreatedAt string `yaml:"createdAt"`
	DeletedAt string `yaml:"deletedAt"`
}

// PlaceFixture is a place visit.
type PlaceFixture struct {
	ID        string `yaml:"id"`
	Person    string `yaml:"person"`
	Place     string `yaml:"place"`
	CreatedAt string `yaml:"createdAt"`
	DeletedAt string `yaml:"deletedAt"`
}

// SeedSummary counts the rows written per table.
type SeedSummary map[string]int

// LoadFixture reads a YAML fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read fixture: %w", err)
	}
	return ParseFixture(data)
}

// ParseFixture decodes YAML fixture content.
func ParseFixture(data []byte) (*Fixture, error) {
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("cannot parse fixture: %w", err)
	}
	return &f, nil
}

// seeder writes fixture rows in one transaction.
type seeder struct {
	tx      *sql.Tx
	dialect sqlq.Dialect
	now     time.Time
	summary SeedSummary
	fields  map[string]schema.FieldType
}

// Seed inserts the fixture rows. Custom fields become person columns first.
// Timestamps are rewritten to the canonical stored form and missing ids are generated.
func (s *Store) Seed(ctx context.Context, f *Fixture, now time.Time) (SeedSummary, error) {
	if err := s.addCustomFields(ctx, f.CustomFields); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin seed transaction: %w", err)
	}
	sd := &seeder{
		tx:      tx,
		dialect: s.dialect,
		now:     now,
		summary: SeedSummary{},
		fields:  map[string]schema.FieldType{},
	}
	for _, def := range f.CustomFields {
		sd.fields[def.ID] = def.Type
	}

	if err := sd.seedAll(ctx, f); err != nil {
		_ = tx.Rollback()
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit seed transaction: %w", err)
	}
	return sd.summary, nil
}

// addCustomFields adds one person column per custom field not yet present.
func (s *Store) addCustomFields(ctx context.Context, defs []schema.FilterDefinition) error {
	if len(defs) == 0 {
		return nil
	}
	rows, err := s.db.QueryContext(ctx, "SELECT * FROM person WHERE 1 = 0")
	if err != nil {
		return fmt.Errorf("failed to read person columns (is the snapshot migrated?): %w", err)
	}
	existing, err := rows.Columns()
	_ = rows.Close()
	if err != nil {
		return fmt.Errorf("failed to read person columns: %w", err)
	}

	for _, def := range defs {
		if err := sqlq.ValidateIdent(def.ID); err != nil {
			return fmt.Errorf("custom field: %w", err)
		}
		if slices.Contains(existing, def.ID) {
			continue
		}
		stmt := fmt.Sprintf("ALTER TABLE person ADD COLUMN %s %s", s.dialect.QuoteIdent(def.ID), columnType(s.backend, def.Type))
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to add custom field %s: %w", def.ID, err)
		}
		existing = append(existing, def.ID)
	}
	return nil
}

// columnType maps a field type onto a column type of the backend.
func columnType(backend schema.DatabaseBackend, t schema.FieldType) string {
	switch t {
	case schema.BooleanField, schema.YesNoField:
		return "INTEGER"
	case schema.NumberField:
		if backend == schema.PostgreSQLBackend {
			return "DOUBLE PRECISION"
		}
		return "DOUBLE"
	case schema.DateField, schema.DateWithTimeField, schema.DurationField:
		if backend == schema.MySQLBackend {
			return "VARCHAR(32)"
		}
		return "TEXT"
	default:
		if backend == schema.MySQLBackend {
			return "VARCHAR(255)"
		}
		return "TEXT"
	}
}

func (sd *seeder) seedAll(ctx context.Context, f *Fixture) error {
	for _, p := range f.Persons {
		if err := sd.person(ctx, p); err != nil {
			return fmt.Errorf("person %s: %w", p.ID, err)
		}
	}
	for _, a := range f.Actions {
		if err := sd.action(ctx, a); err != nil {
			return fmt.Errorf("action %s: %w", a.ID, err)
		}
	}
	for _, c := range f.Consultations {
		cols := []string{"id", "person_id", "team_id", "type", "status", "due_at", "completed_at", "created_at", "deleted_at"}
		vals := []any{sd.id(c.ID), c.Person, nullable(c.Team), nullable(c.Type), nullable(c.Status), c.DueAt, c.CompletedAt, sd.created(c.CreatedAt), c.DeletedAt}
		if err := sd.insert(ctx, "consultation", cols, vals); err != nil {
			return fmt.Errorf("consultation %s: %w", c.ID, err)
		}
	}
	for table, rows := range map[string][]DatedFixture{"passage": f.Passages, "encounter": f.Encounters, "comment": f.Comments} {
		for _, d := range rows {
			cols := []string{"id", "person_id", "team_id", "date", "created_at", "deleted_at"}
			vals := []any{sd.id(d.ID), d.Person, nullable(d.Team), d.Date, sd.created(d.CreatedAt), d.DeletedAt}
			if err := sd.insert(ctx, table, cols, vals); err != nil {
				return fmt.Errorf("%s %s: %w", table, d.ID, err)
			}
		}
	}
	for _, t := range f.Treatments {
		cols := []string{"id", "person_id", "created_at", "deleted_at"}
		if err := sd.insert(ctx, "treatment", cols, []any{sd.id(t.ID), t.Person, sd.created(t.CreatedAt), t.DeletedAt}); err != nil {
			return fmt.Errorf("treatment %s: %w", t.ID, err)
		}
	}
	for _, pl := range f.Places {
		cols := []string{"id", "person_id", "place_id", "created_at", "deleted_at"}
		if err := sd.insert(ctx, "person_place", cols, []any{sd.id(pl.ID), pl.Person, nullable(pl.Place), sd.created(pl.CreatedAt), pl.DeletedAt}); err != nil {
			return fmt.Errorf("place %s: %w", pl.ID, err)
		}
	}
	return nil
}

func (sd *seeder) person(ctx context.Context, p PersonFixture) error {
	id := sd.id(p.ID)
	cols := []string{
		"id", "name", "gender", "birthdate", "followed_since", "created_at", "deleted_at",
		"wandering_at", "out_of_active_list", "out_of_active_list_date", "out_of_active_list_reasons", "alertness",
	}
	vals := []any{
		id, nullable(p.Name), nullable(p.Gender), p.Birthdate, p.FollowedSince, sd.created(p.CreatedAt), p.DeletedAt,
		p.WanderingAt, boolInt(p.OutOfActiveList), p.OutOfActiveListDate, jsonList(p.OutOfActiveListReasons), optionalBool(p.Alertness),
	}

	names := make([]string, 0, len(p.Fields))
	for name := range p.Fields {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		if err := sqlq.ValidateIdent(name); err != nil {
			return err
		}
		v, err := fieldValue(sd.fields[name], p.Fields[name])
		if err != nil {
			return fmt.Errorf("field %s: %w", name, err)
		}
		cols = append(cols, name)
		vals = append(vals, v)
	}
	if err := sd.insert(ctx, "person", cols, vals); err != nil {
		return err
	}

	for _, t := range p.Teams {
		cols := []string{"person_id", "team_id", "from_date", "to_date"}
		if err := sd.insert(ctx, "person_history_team", cols, []any{id, t.Team, sd.created(t.From), t.To}); err != nil {
			return err
		}
	}
	for _, h := range p.History {
		data, err := json.Marshal(h.Data)
		if err != nil {
			return err
		}
		cols := []string{"person_id", "from_date", "to_date", "data"}
		if err := sd.insert(ctx, "person_history", cols, []any{id, sd.created(h.From), h.To, string(data)}); err != nil {
			return err
		}
	}
	return nil
}

func (sd *seeder) action(ctx context.Context, a ActionFixture) error {
	id := sd.id(a.ID)
	cols := []string{"id", "person_id", "status", "categories", "due_at", "completed_at", "created_at", "deleted_at"}
	vals := []any{id, a.Person, nullable(a.Status), jsonList(a.Categories), a.DueAt, a.CompletedAt, sd.created(a.CreatedAt), a.DeletedAt}
	if err := sd.insert(ctx, "action", cols, vals); err != nil {
		return err
	}
	for _, team := range a.Teams {
		if err := sd.insert(ctx, "action_team", []string{"action_id", "team_id"}, []any{id, team}); err != nil {
			return err
		}
	}
	return nil
}

// insert writes one row. String values that look like timestamps in *_at, *_date,
// *_since and date columns are normalized; empty strings become NULL.
func (sd *seeder) insert(ctx context.Context, table string, cols []string, vals []any) error {
	b := sqlq.NewBuilder(sd.dialect)
	quoted := make([]string, len(cols))
	marks := make([]string, len(cols))
	for i, col := range cols {
		quoted[i] = b.Ident(col)
		v, err := storedValue(col, vals[i])
		if err != nil {
			return err
		}
		marks[i] = b.Arg(v)
	}
	b.Write("INSERT INTO ", table, " (", strings.Join(quoted, ", "), ") VALUES (", strings.Join(marks, ", "), ")")

	if _, err := sd.tx.ExecContext(ctx, b.SQL(), b.Args()...); err != nil {
		return fmt.Errorf("insert into %s: %w", table, err)
	}
	sd.summary[table]++
	return nil
}

func (sd *seeder) id(id string) string {
	if id == "" {
		return uuid.NewString()
	}
	return id
}

// created defaults a missing creation date to the seeding instant.
func (sd *seeder) created(s string) string {
	if strings.TrimSpace(s) == "" {
		return schema.FormatTimestamp(sd.now)
	}
	return s
}

func isTimestampColumn(col string) bool {
	return col == "date" || col == "birthdate" ||
		strings.HasSuffix(col, "_at") || strings.HasSuffix(col, "_date") || strings.HasSuffix(col, "_since")
}

func storedValue(col string, v any) (any, error) {
	s, ok := v.(string)
	if !ok {
		return v, nil
	}
	if s == "" {
		return nil, nil
	}
	if isTimestampColumn(col) {
		normalized, err := schema.NormalizeTimestamp(s)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", col, err)
		}
		return normalized, nil
	}
	return s, nil
}

// fieldValue converts a YAML custom field value to its stored form.
func fieldValue(t schema.FieldType, v any) (any, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case bool:
		return boolInt(val), nil
	case time.Time:
		return schema.FormatTimestamp(val), nil
	case string:
		switch t {
		case schema.DateField, schema.DateWithTimeField, schema.DurationField:
			return schema.NormalizeTimestamp(val)
		case schema.BooleanField, schema.YesNoField:
			switch val {
			case schema.YesLabel:
				return 1, nil
			case schema.NoLabel:
				return 0, nil
			}
			return nil, nil
		}
		return nullable(val), nil
	case []any:
		data, err := json.Marshal(val)
		if err != nil {
			return nil, err
		}
		return string(data), nil
	default:
		return val, nil
	}
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func optionalBool(b *bool) any {
	if b == nil {
		return nil
	}
	return boolInt(*b)
}

// jsonList stores a list as a JSON array; an empty list is NULL.
func jsonList(values []string) any {
	if len(values) == 0 {
		return nil
	}
	data, _ := json.Marshal(values)
	return string(data)
}
