package population

import (
	"context"
	"fmt"

	"github.com/huangsam/cohortstats/internal/contract"
	"github.com/huangsam/cohortstats/internal/sqlq"
	"github.com/huangsam/cohortstats/schema"
)

// WriteStateAtCTE appends `state_at AS (...)`: for every person, or only personID
// when set, the history row whose interval covers instant. Rows starting on the same
// date are ranked by insertion order.
func WriteStateAtCTE(b *sqlq.Builder, instant, personID string) {
	b.Write("state_at AS (SELECT seq, person_id, from_date, to_date, data FROM (",
		"SELECT h.seq, h.person_id, h.from_date, h.to_date, h.data, ",
		"ROW_NUMBER() OVER (PARTITION BY h.person_id ORDER BY h.from_date DESC, h.seq DESC) AS rn ",
		"FROM person_history h WHERE h.from_date <= ", b.Arg(instant),
		" AND (h.to_date IS NULL OR h.to_date > ", b.Arg(instant), ")")
	if personID != "" {
		b.Write(" AND h.person_id = ", b.Arg(personID))
	}
	b.Write(") ranked WHERE rn = 1)")
}

// StateAt returns the history row of the person in effect at instant.
// ok is false when no row covers the instant.
func StateAt(ctx context.Context, snap contract.Snapshot, personID, instant string) (schema.HistoryRow, bool, error) {
	at, err := schema.NormalizeTimestamp(instant)
	if err != nil {
		return schema.HistoryRow{}, false, err
	}
	if at == "" {
		return schema.HistoryRow{}, false, fmt.Errorf("instant is required")
	}

	b := sqlq.NewBuilder(snap.Dialect())
	b.Write("WITH ")
	WriteStateAtCTE(b, at, personID)
	b.Write(" SELECT seq, person_id, from_date, to_date, data FROM state_at")

	records, err := snap.Select(ctx, "population.state_at", b.SQL(), b.Args()...)
	if err != nil {
		return schema.HistoryRow{}, false, fmt.Errorf("failed to read state of person %s: %w", personID, err)
	}
	if len(records) == 0 {
		return schema.HistoryRow{}, false, nil
	}

	r := records[0]
	seq, err := r.Int64("seq")
	if err != nil {
		return schema.HistoryRow{}, false, err
	}
	return schema.HistoryRow{
		Seq:      seq,
		PersonID: r.String("person_id"),
		FromDate: r.String("from_date"),
		ToDate:   r.String("to_date"),
		Data:     r.String("data"),
	}, true, nil
}
