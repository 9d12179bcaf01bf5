package checkpoint

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/replicore/syncengine/internal/errs"
)

// FileStore persists checkpoints as one JSON file per save under Dir,
// named "checkpoint_<phase>_<rfc3339>.json" (spec §6.1). Latest scans
// Dir for the newest matching file rather than keeping an index,
// mirroring smf's apply.Applier preference for operating directly on
// the filesystem over maintaining separate metadata. A directory holds
// the checkpoints for one table's replication run; a pipeline
// replicating several tables points --checkpoint-dir at a separate
// directory per table.
type FileStore struct {
	Dir string
}

// fileRecord is the literal on-disk schema spec §6.1 defines.
type fileRecord struct {
	DatabaseType   string    `json:"database_type"`
	Phase          Phase     `json:"phase"`
	CreatedAt      time.Time `json:"created_at"`
	CheckpointData string    `json:"checkpoint_data"`
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{Dir: dir}
}

func (s *FileStore) Save(ctx context.Context, rec Record) error {
	if !validPhase(rec.Phase) {
		return invalidPhaseError(rec.Phase)
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	encoded, err := Encode(rec.Point)
	if err != nil {
		return fmt.Errorf("checkpoint filestore: encode: %w", err)
	}

	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("checkpoint filestore: mkdir %q: %w", s.Dir, err)
	}

	fr := fileRecord{
		DatabaseType:   rec.Point.Backend(),
		Phase:          rec.Phase,
		CreatedAt:      rec.CapturedAt,
		CheckpointData: encoded,
	}
	body, err := json.MarshalIndent(fr, "", "  ")
	if err != nil {
		return fmt.Errorf("checkpoint filestore: marshal: %w", err)
	}

	name := s.fileName(rec.Phase, rec.CapturedAt)
	path := filepath.Join(s.Dir, name)
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return fmt.Errorf("checkpoint filestore: write %q: %w", path, err)
	}
	return nil
}

func (s *FileStore) fileName(phase Phase, t time.Time) string {
	return fmt.Sprintf("checkpoint_%s_%s.json", phase, t.UTC().Format(time.RFC3339Nano))
}

// Latest returns the most recently created checkpoint for phase. table
// is accepted for interface parity with Store (spec's filesystem record
// has no table field of its own), and is expected to already be
// reflected by the caller pointing a distinct Dir at each table's run.
func (s *FileStore) Latest(ctx context.Context, table string, phase Phase) (Record, bool, error) {
	select {
	case <-ctx.Done():
		return Record{}, false, ctx.Err()
	default:
	}

	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return Record{}, false, nil
		}
		return Record{}, false, fmt.Errorf("checkpoint filestore: readdir %q: %w", s.Dir, err)
	}

	prefix := fmt.Sprintf("checkpoint_%s_", phase)
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.HasPrefix(e.Name(), prefix) && strings.HasSuffix(e.Name(), ".json") {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return Record{}, false, nil
	}
	// RFC3339Nano drops trailing zeros from the fraction, so two names
	// from the same second do not sort chronologically as plain strings;
	// order by the parsed timestamp instead.
	stamp := func(name string) time.Time {
		t, _ := time.Parse(time.RFC3339Nano, strings.TrimSuffix(strings.TrimPrefix(name, prefix), ".json"))
		return t
	}
	sort.Slice(names, func(i, j int) bool { return stamp(names[i]).Before(stamp(names[j])) })
	latest := names[len(names)-1]

	body, err := os.ReadFile(filepath.Join(s.Dir, latest))
	if err != nil {
		return Record{}, false, fmt.Errorf("checkpoint filestore: read %q: %w", latest, err)
	}

	var fr fileRecord
	if err := json.Unmarshal(body, &fr); err != nil {
		return Record{}, false, fmt.Errorf("checkpoint filestore: %q: %w: %w", latest, err, errs.ErrCheckpointCorrupted)
	}
	cp, err := Decode(fr.CheckpointData)
	if err != nil {
		return Record{}, false, err
	}
	return Record{Table: table, Phase: fr.Phase, Point: cp, CapturedAt: fr.CreatedAt}, true, nil
}
