// Package source holds the C4 adapters: one package per backend, each
// exposing RunFullSync and/or RunIncrementalSync (csvsource and
// jsonlsource have only a full sync; kafkasource and pglogical only an
// incremental one).
// Spec §9's redesign flag rules out smf's dialect/introspect
// mutable-registry pattern (RegisterDialect/GetDialect) for dispatch
// here: callers select an adapter by importing its package and calling
// its functions directly, never through a runtime lookup table.
package source

import (
	"context"

	"github.com/replicore/syncengine/internal/checkpoint"
	"github.com/replicore/syncengine/internal/schema"
	"github.com/replicore/syncengine/internal/uvalue"
)

// Op distinguishes an upsert-worthy row from a delete. The zero value,
// OpUpsert, keeps every adapter that never produces deletes (full sync,
// CSV/JSONL, Neo4j, Kafka) working without naming it explicitly.
type Op int

const (
	OpUpsert Op = iota
	OpDelete
)

// Row is a single source row, already converted to universal values and
// paired with its table's declared schema. For an OpDelete row, Columns
// and Values carry only the primary-key columns, in the table's
// declared ordinal order; there is no "rest of the row" to recover from
// a delete.
type Row struct {
	Table   string
	Columns []string
	Values  []uvalue.Typed
	Op      Op
}

// RowSink receives each row an adapter produces, in order, for a single
// table scan or change batch. Returning an error aborts the sync; the
// adapter does not retry delivery itself (that's the sink writer's job,
// once the row reaches component C5).
type RowSink func(ctx context.Context, row Row) error

// FullSyncResult summarizes a completed full sync.
type FullSyncResult struct {
	RowsRead        int64
	StartCheckpoint checkpoint.Checkpoint
	EndCheckpoint   checkpoint.Checkpoint
}

// IncrementalSyncResult summarizes one incremental batch.
type IncrementalSyncResult struct {
	RowsRead      int64
	NextCheckpoint checkpoint.Checkpoint
	Done          bool
}

// Table is the subset of a schema.TableDefinition an adapter needs:
// kept as its own parameter rather than the full *schema.Schema so
// adapters don't need to import the registry lookup logic themselves.
type Table = schema.TableDefinition
