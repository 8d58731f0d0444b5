package snapshot

import (
	"context"

	"github.com/huangsam/cohortstats/schema"
)

// Tables lists every snapshot table in dependency order.
var Tables = []string{
	"person",
	"person_history",
	"person_history_team",
	"action",
	"action_team",
	"consultation",
	"passage",
	"encounter",
	"treatment",
	"person_place",
	"comment",
}

// Status reports the schema version and the row count of every table.
// Tables that do not exist yet are left out.
func (s *Store) Status(ctx context.Context) (schema.SnapshotStatus, error) {
	status := schema.SnapshotStatus{
		Backend:   string(s.backend),
		TableRows: map[string]int64{},
	}
	if err := s.db.PingContext(ctx); err != nil {
		return status, nil
	}
	status.Connected = true

	version, dirty, err := s.SchemaVersion(ctx)
	if err != nil {
		return status, err
	}
	status.SchemaVersion = version
	status.Dirty = dirty

	for _, table := range Tables {
		records, err := s.selectRows(ctx, "SELECT COUNT(*) AS n FROM "+table)
		if err != nil || len(records) == 0 {
			continue
		}
		n, err := records[0].Int64("n")
		if err != nil {
			return status, err
		}
		status.TableRows[table] = n
	}

	if records, err := s.selectRows(ctx, "SELECT MAX(from_date) AS latest FROM person_history"); err == nil && len(records) > 0 {
		status.LatestChange = records[0].String("latest")
	}
	return status, nil
}
