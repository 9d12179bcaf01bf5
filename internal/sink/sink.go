// Package sink implements component C5: the single write path every
// source adapter's rows flow through on their way into the destination
// database. Writes are idempotent UPSERTs keyed by primary key, so a
// row replayed after a crash or a retried batch never produces a
// duplicate (spec §4.5, §8).
package sink

import (
	"context"

	"github.com/replicore/syncengine/internal/uvalue"
)

// Row is a single table row bound for the sink, already converted to
// universal values and keyed by column name.
type Row struct {
	Table   string
	Columns []string
	Values  []uvalue.Typed
	// PrimaryKey lists the subset of Columns (by name) that make up this
	// row's identity. The sink uses it to build the record id it upserts
	// against, never the row's position in a batch.
	PrimaryKey []string
}

// Writer is the closed interface every sink implementation satisfies.
// Exactly one real implementation exists (SurrealWriter); spec §9's
// redesign flag rules out an open sink registry, so a second backend
// would be added by extending this package, not by registering a
// constructor at runtime.
type Writer interface {
	// Upsert writes rows, replacing any existing record with the same
	// primary key. Partial failure within a batch must not silently drop
	// the remaining rows: an implementation returns as soon as a row
	// fails after exhausting retries (spec §4.5).
	Upsert(ctx context.Context, rows []Row) error
	// Delete removes the record identified by pk's primary-key values
	// from table, if present. Deleting an absent record is not an error.
	Delete(ctx context.Context, table string, pk []uvalue.Typed) error
	Close(ctx context.Context) error
}
