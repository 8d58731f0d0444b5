// Package cohort assembles the CTE chain shared by aggregations and drill-downs:
// population, then filtered, then optional bucketed, action and reason expansions.
// An aggregation and its drill-down render the same chain and differ only in the
// final SELECT.
package cohort

import (
	"context"
	"fmt"

	"github.com/huangsam/cohortstats/core/bucket"
	"github.com/huangsam/cohortstats/core/filter"
	"github.com/huangsam/cohortstats/core/population"
	"github.com/huangsam/cohortstats/internal/contract"
	"github.com/huangsam/cohortstats/internal/logger"
	"github.com/huangsam/cohortstats/internal/sqlq"
	"github.com/huangsam/cohortstats/schema"
)

// Query builds one statement over a stats context. The first error sticks and
// is returned by Select.
type Query struct {
	b       *sqlq.Builder
	sc      schema.StatsContext
	log     *logger.Logger
	started bool
	err     error
}

// New is the starting point for building a query over sc.
func New(d sqlq.Dialect, sc schema.StatsContext, log *logger.Logger) *Query {
	if log == nil {
		log = logger.Nop()
	}
	return &Query{b: sqlq.NewBuilder(d), sc: sc, log: log}
}

func (q *Query) next() {
	if q.started {
		q.b.Write(", ")
		return
	}
	q.b.Write("WITH ")
	q.started = true
}

// WithFiltered adds the population CTE of kind and the filtered CTE narrowing it
// by the context filters.
func (q *Query) WithFiltered(kind schema.Population) *Query {
	if q.err != nil {
		return q
	}
	q.next()
	if err := population.WriteCTE(q.b, q.sc.Period, q.sc.Teams, kind); err != nil {
		q.err = err
		return q
	}
	q.b.Write(", filtered AS (SELECT p.* FROM population p")
	if pred := filter.Compile(q.b, q.sc, "p", q.log); pred != "" {
		q.b.Write(" WHERE ", pred)
	}
	q.b.Write(")")
	return q
}

// WithBucketed adds the bucketed CTE: every filtered row with its raw key value
// in bucket_value and its label in bucket_key.
func (q *Query) WithBucketed(key bucket.Key) *Query {
	if q.err != nil {
		return q
	}
	q.next()
	q.b.Write("bucketed AS (SELECT v.*, ", key.Bucket(q.b, "v.bucket_value"),
		" AS bucket_key FROM (SELECT f.*, ", key.Value(q.b, "f"), " AS bucket_value FROM filtered f) v)")
	return q
}

// WithActions adds the actions CTE: non-deleted actions of filtered persons that
// belong to one of the context teams, dated in the period, optionally restricted
// to statuses. Its teams column lists every team of the action.
func (q *Query) WithActions(statuses []string) *Query {
	if q.err != nil {
		return q
	}
	d := q.b.Dialect()
	q.next()
	q.b.Write("actions AS (SELECT a.id, a.person_id, a.status, a.categories, a.due_at, a.completed_at, a.created_at, ",
		d.GroupConcat("atm.team_id"), " AS teams FROM action a JOIN action_team atm ON atm.action_id = a.id",
		" WHERE a.deleted_at IS NULL AND a.person_id IN (SELECT id FROM filtered) AND ")
	if len(q.sc.Teams) == 0 {
		q.b.Write("1 = 0")
	} else {
		q.b.Write("EXISTS (SELECT 1 FROM action_team own WHERE own.action_id = a.id AND own.team_id IN (", q.b.List(q.sc.Teams), "))")
	}
	if len(statuses) > 0 {
		q.b.Write(" AND a.status IN (", q.b.List(statuses), ")")
	}
	if from, to, ok := q.sc.Period.Bounds(); ok {
		q.b.Write(" AND ", population.ActivityDated(q.b, "a", schema.ActionActivity, from, to))
	}
	q.b.Write(" GROUP BY a.id, a.person_id, a.status, a.categories, a.due_at, a.completed_at, a.created_at)")
	return q
}

// WithActionCategories adds the action_categories CTE: one row per action and
// category. Actions without categories get the not-filled label. Requires WithActions.
func (q *Query) WithActionCategories() *Query {
	if q.err != nil {
		return q
	}
	join, elem := q.b.Dialect().JSONElements("NULLIF(a.categories, '')", "e")
	q.next()
	q.b.Write("action_categories AS (SELECT a.*, ", elem, " AS category FROM actions a ", join,
		" UNION ALL SELECT a.*, ", q.b.Arg(schema.NotFilledLabel), " AS category FROM actions a",
		" WHERE a.categories IS NULL OR a.categories = '' OR a.categories = '[]')")
	return q
}

// WithOutReasons adds the out_reasons CTE: one row per filtered person out of the
// active list and per reason recorded.
func (q *Query) WithOutReasons() *Query {
	if q.err != nil {
		return q
	}
	join, elem := q.b.Dialect().JSONElements("NULLIF(f.out_of_active_list_reasons, '')", "e")
	q.next()
	q.b.Write("out_reasons AS (SELECT f.*, ", elem, " AS reason FROM filtered f ", join,
		" WHERE f.out_of_active_list = 1)")
	return q
}

// Write appends raw SQL after the CTE chain.
func (q *Query) Write(parts ...string) *Query {
	q.b.Write(parts...)
	return q
}

// Arg binds a value and returns its placeholder.
func (q *Query) Arg(v any) string {
	return q.b.Arg(v)
}

// Builder returns the underlying builder for dialect-specific fragments.
func (q *Query) Builder() *sqlq.Builder {
	return q.b
}

// Err returns the first error met while building.
func (q *Query) Err() error {
	return q.err
}

// Select runs the query on snap.
func (q *Query) Select(ctx context.Context, snap contract.Snapshot, operation string) ([]schema.Record, error) {
	if q.err != nil {
		return nil, q.err
	}
	if snap.Dialect().Backend() != q.b.Dialect().Backend() {
		return nil, fmt.Errorf("query built for %s cannot run on %s", q.b.Dialect().Backend(), snap.Dialect().Backend())
	}
	return snap.Select(ctx, operation, q.b.SQL(), q.b.Args()...)
}
