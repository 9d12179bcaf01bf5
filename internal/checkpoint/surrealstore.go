package checkpoint

import (
	"context"
	"fmt"
	"time"

	"github.com/surrealdb/surrealdb.go"

	"github.com/replicore/syncengine/internal/errs"
)

// SurrealStore persists checkpoints as records in a SurrealDB table,
// one row per (table, phase) pair, so a run against a SurrealDB sink can
// keep checkpoint state in the same database it is replicating into
// instead of needing a separate filesystem (spec §6.1 names this as the
// alternative to FileStore).
type SurrealStore struct {
	DB    *surrealdb.DB
	Table string
}

func NewSurrealStore(db *surrealdb.DB, table string) *SurrealStore {
	return &SurrealStore{DB: db, Table: table}
}

type surrealCheckpointRow struct {
	ID         string    `json:"id"`
	TableName  string    `json:"table_name"`
	Phase      Phase     `json:"phase"`
	Checkpoint string    `json:"checkpoint"`
	CapturedAt time.Time `json:"captured_at"`
}

func (s *SurrealStore) recordID(table string, phase Phase) string {
	return fmt.Sprintf("%s:%s_%s", s.Table, table, phase)
}

func (s *SurrealStore) Save(ctx context.Context, rec Record) error {
	if !validPhase(rec.Phase) {
		return invalidPhaseError(rec.Phase)
	}

	encoded, err := Encode(rec.Point)
	if err != nil {
		return fmt.Errorf("checkpoint surrealstore: encode: %w", err)
	}

	row := surrealCheckpointRow{
		ID:         s.recordID(rec.Table, rec.Phase),
		TableName:  rec.Table,
		Phase:      rec.Phase,
		Checkpoint: encoded,
		CapturedAt: rec.CapturedAt,
	}

	query := fmt.Sprintf("UPSERT %s CONTENT $data", row.ID)
	if _, err := surrealdb.Query[any](ctx, s.DB, query, map[string]any{"data": row}); err != nil {
		return fmt.Errorf("checkpoint surrealstore: upsert %q: %w: %w", row.ID, err, errs.ErrSinkIO)
	}
	return nil
}

func (s *SurrealStore) Latest(ctx context.Context, table string, phase Phase) (Record, bool, error) {
	id := s.recordID(table, phase)
	rows, err := surrealdb.Select[surrealCheckpointRow](ctx, s.DB, id)
	if err != nil {
		return Record{}, false, fmt.Errorf("checkpoint surrealstore: select %q: %w: %w", id, err, errs.ErrSinkIO)
	}
	if rows == nil {
		return Record{}, false, nil
	}

	cp, err := Decode(rows.Checkpoint)
	if err != nil {
		return Record{}, false, err
	}
	return Record{
		Table:      rows.TableName,
		Phase:      rows.Phase,
		Point:      cp,
		CapturedAt: rows.CapturedAt,
	}, true, nil
}
