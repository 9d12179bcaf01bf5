package checkpoint

import (
	"context"
	"time"
)

// Record pairs a Checkpoint with the table and phase it was captured
// for, the unit every Store persists and retrieves.
type Record struct {
	Table     string
	Phase     Phase
	Point     Checkpoint
	CapturedAt time.Time
}

// Store is the closed persistence boundary for checkpoints. Exactly two
// implementations exist in this package (filesystem and SurrealDB); spec
// §9's redesign flag rules out an open/pluggable store registry, so new
// backends are added by extending this package, not by registering a
// constructor at runtime.
type Store interface {
	Save(ctx context.Context, rec Record) error
	Latest(ctx context.Context, table string, phase Phase) (Record, bool, error)
}
