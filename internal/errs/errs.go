// Package errs defines the closed error taxonomy shared by every package in
// the replication engine. Every propagated failure wraps one of the
// sentinels below with fmt.Errorf("...: %w", ...) so callers can classify
// it with errors.Is, the same way smf's core.ValidationError identifies a
// failing entity/field instead of returning an opaque string.
package errs

import (
	"errors"
	"strconv"
)

// Sentinel kinds. See spec §7 for the full taxonomy and propagation policy.
var (
	// ErrConfiguration covers invalid CLI input, a missing schema, or
	// invalid checkpoint text. Fatal at startup.
	ErrConfiguration = errors.New("configuration error")

	// ErrSchemaParse covers a malformed schema document. Fatal.
	ErrSchemaParse = errors.New("schema parse error")

	// ErrNoPrimaryKey marks a source table with no primary key. Fatal
	// per-table; the run aborts rather than silently skipping the table.
	ErrNoPrimaryKey = errors.New("table has no primary key")

	// ErrTypeMismatch marks a value that cannot be coerced to its
	// declared universal type. Fatal per-row.
	ErrTypeMismatch = errors.New("type mismatch")

	// ErrUnsupported marks a declared type or universal value with no
	// representation on one side of a conversion. Fatal per-row.
	ErrUnsupported = errors.New("unsupported type")

	// ErrSourceIO marks a transient source query/connection failure,
	// surfaced after the adapter exhausts its own internal retries.
	ErrSourceIO = errors.New("source I/O error")

	// ErrSinkConflict marks a serialization / read-write conflict at the
	// sink. Retried up to the writer's retry ceiling before becoming
	// ErrSinkIO.
	ErrSinkConflict = errors.New("sink conflict")

	// ErrSinkIO marks a non-conflict sink error, or a conflict that
	// outlived the retry ceiling. The batch aborts.
	ErrSinkIO = errors.New("sink I/O error")

	// ErrCheckpointCorrupted marks a persisted checkpoint that failed to
	// deserialize. Fatal; starting "from now" instead would silently
	// drop changes.
	ErrCheckpointCorrupted = errors.New("checkpoint corrupted")
)

// Fatal reports whether err belongs to a kind that must abort the run
// rather than be retried locally.
func Fatal(err error) bool {
	switch {
	case errors.Is(err, ErrConfiguration),
		errors.Is(err, ErrSchemaParse),
		errors.Is(err, ErrNoPrimaryKey),
		errors.Is(err, ErrTypeMismatch),
		errors.Is(err, ErrUnsupported),
		errors.Is(err, ErrSinkIO),
		errors.Is(err, ErrCheckpointCorrupted):
		return true
	default:
		return false
	}
}

// RowError decorates err with the table, phase, and (if known) row index
// where it occurred, the way the CLI is required to report user-visible
// failures (spec §7: "naming the phase, table, row index, and cause").
type RowError struct {
	Phase    string
	Table    string
	RowIndex int64
	HasRow   bool
	Err      error
}

func (e *RowError) Error() string {
	if e.HasRow {
		return "phase " + e.Phase + ", table " + e.Table + ", row " + strconv.FormatInt(e.RowIndex, 10) + ": " + e.Err.Error()
	}
	return "phase " + e.Phase + ", table " + e.Table + ": " + e.Err.Error()
}

func (e *RowError) Unwrap() error { return e.Err }

// WithRow returns a RowError naming the given row index.
func WithRow(phase, table string, rowIndex int64, err error) error {
	if err == nil {
		return nil
	}
	return &RowError{Phase: phase, Table: table, RowIndex: rowIndex, HasRow: true, Err: err}
}

// WithTable returns a RowError with no row index, used for table-level
// failures such as NoPrimaryKey.
func WithTable(phase, table string, err error) error {
	if err == nil {
		return nil
	}
	return &RowError{Phase: phase, Table: table, Err: err}
}
