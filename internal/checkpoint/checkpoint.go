// Package checkpoint implements component C3: the resumable position
// marker every source adapter advances during incremental sync and
// reads back on resume. Each backend contributes its own variant
// (audit-table id, WAL LSN, change-stream resume token, polled
// timestamp, or partition offsets), but all of them round-trip through
// one canonical text encoding so a checkpoint can be stored, logged, or
// passed on a command line without backend-specific code at the call
// site (spec §3.1, §6.1).
package checkpoint

import (
	"fmt"
	"time"
)

// Checkpoint is the sealed interface every backend-specific checkpoint
// variant implements. isCheckpoint is unexported so the set of variants
// is closed to this package, the same pattern uvalue.Value uses to seal
// its tagged union.
type Checkpoint interface {
	Backend() string
	isCheckpoint()
}

// MySQLCheckpoint marks the last audit-log row id a trigger-based MySQL
// incremental sync has consumed.
type MySQLCheckpoint struct{ AuditID int64 }

func (MySQLCheckpoint) Backend() string { return "mysql" }
func (MySQLCheckpoint) isCheckpoint()   {}

// PostgresCheckpoint marks the last audit-log row id a trigger-based
// Postgres incremental sync has consumed.
type PostgresCheckpoint struct{ AuditID int64 }

func (PostgresCheckpoint) Backend() string { return "postgresql" }
func (PostgresCheckpoint) isCheckpoint()   {}

// PostgresLogicalCheckpoint marks the WAL LSN a logical-replication
// incremental sync has confirmed flushed back to the publisher.
type PostgresLogicalCheckpoint struct{ LSN string }

func (PostgresLogicalCheckpoint) Backend() string { return "postgresql-logical" }
func (PostgresLogicalCheckpoint) isCheckpoint()   {}

// MongoCheckpoint carries an opaque, driver-issued change-stream resume
// token plus the wall-clock time it was captured at. Unlike every other
// variant the token itself is not human-constructed and must never be
// hand-edited; an empty or malformed token is refused at resume time
// rather than silently restarted from the beginning (spec §4.4.3, §7).
type MongoCheckpoint struct {
	ResumeToken string
	WallTime    time.Time
}

func (MongoCheckpoint) Backend() string { return "mongodb" }
func (MongoCheckpoint) isCheckpoint()   {}

// Neo4jCheckpoint marks the last polled timestamp boundary, formatted as
// RFC3339Nano.
type Neo4jCheckpoint struct{ LastTimestamp string }

func (Neo4jCheckpoint) Backend() string { return "neo4j" }
func (Neo4jCheckpoint) isCheckpoint()   {}

// KafkaCheckpoint marks the last consumed offset per partition. Offsets
// are exclusive: resuming from a KafkaCheckpoint starts at Offsets[p]+1.
type KafkaCheckpoint struct{ Offsets map[int32]int64 }

func (KafkaCheckpoint) Backend() string { return "kafka" }
func (KafkaCheckpoint) isCheckpoint()   {}

// Phase marks which half of a replication run a checkpoint belongs to,
// per the file-naming convention in spec §6.1.
type Phase string

const (
	PhaseFullSyncStart Phase = "full_sync_start"
	PhaseFullSyncEnd   Phase = "full_sync_end"
	PhaseIncremental   Phase = "incremental"
)

func validPhase(p Phase) bool {
	switch p {
	case PhaseFullSyncStart, PhaseFullSyncEnd, PhaseIncremental:
		return true
	default:
		return false
	}
}

func invalidPhaseError(p Phase) error {
	return fmt.Errorf("checkpoint: invalid phase %q", p)
}
