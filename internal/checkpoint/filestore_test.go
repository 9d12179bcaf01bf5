package checkpoint

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStoreSaveAndLatest(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(dir)
	ctx := context.Background()

	first := Record{Table: "users", Phase: PhaseIncremental, Point: MySQLCheckpoint{AuditID: 1}, CapturedAt: time.Now().Add(-time.Minute)}
	second := Record{Table: "users", Phase: PhaseIncremental, Point: MySQLCheckpoint{AuditID: 2}, CapturedAt: time.Now()}

	require.NoError(t, store.Save(ctx, first))
	require.NoError(t, store.Save(ctx, second))

	latest, ok, err := store.Latest(ctx, "users", PhaseIncremental)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, MySQLCheckpoint{AuditID: 2}, latest.Point)
}

func TestFileStoreLatestMissingReturnsFalse(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(dir)
	_, ok, err := store.Latest(context.Background(), "users", PhaseIncremental)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFileStoreRejectsInvalidPhase(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(dir)
	err := store.Save(context.Background(), Record{Table: "users", Phase: Phase("bogus"), Point: MySQLCheckpoint{AuditID: 1}})
	assert.Error(t, err)
}

// TestFileStoreOnDiskSchemaMatchesSpec pins the literal filename pattern
// and JSON keys spec §6.1 defines for the filesystem checkpoint store:
// no table segment in the filename, and database_type/phase/created_at/
// checkpoint_data as the JSON keys (not the package's internal Record
// field names).
func TestFileStoreOnDiskSchemaMatchesSpec(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(dir)
	captured := time.Date(2026, 7, 30, 10, 0, 0, 0, time.UTC)

	require.NoError(t, store.Save(context.Background(), Record{
		Table:      "users",
		Phase:      PhaseFullSyncStart,
		Point:      MySQLCheckpoint{AuditID: 0},
		CapturedAt: captured,
	}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "checkpoint_full_sync_start_2026-07-30T10:00:00Z.json", entries[0].Name())

	body, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(body, &fields))
	assert.Equal(t, "mysql", fields["database_type"])
	assert.Equal(t, "full_sync_start", fields["phase"])
	assert.Equal(t, "mysql:sequence:0", fields["checkpoint_data"])
	assert.Contains(t, fields, "created_at")
}
