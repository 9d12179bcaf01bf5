package checkpoint

import (
	"encoding/base64"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/replicore/syncengine/internal/errs"
)

// Encode renders a Checkpoint as its canonical "<backend>:<payload>"
// text form (spec §3.1, §6.1). Decode(Encode(c)) reconstructs an
// equivalent Checkpoint for every c this package can produce, except
// that a MongoCheckpoint's WallTime comes back in UTC truncated to
// whole seconds (it is encoded as RFC 3339 without a fraction).
func Encode(c Checkpoint) (string, error) {
	payload, err := encodePayload(c)
	if err != nil {
		return "", err
	}
	return c.Backend() + ":" + payload, nil
}

func encodePayload(c Checkpoint) (string, error) {
	switch v := c.(type) {
	case MySQLCheckpoint:
		return "sequence:" + strconv.FormatInt(v.AuditID, 10), nil
	case PostgresCheckpoint:
		return "sequence:" + strconv.FormatInt(v.AuditID, 10), nil
	case PostgresLogicalCheckpoint:
		if v.LSN == "" {
			return "", fmt.Errorf("checkpoint: postgresql-logical LSN is empty: %w", errs.ErrCheckpointCorrupted)
		}
		return v.LSN, nil
	case MongoCheckpoint:
		if v.ResumeToken == "" {
			return "", fmt.Errorf("checkpoint: mongo resume token is empty: %w", errs.ErrCheckpointCorrupted)
		}
		token := base64.StdEncoding.EncodeToString([]byte(v.ResumeToken))
		return token + ":" + v.WallTime.UTC().Format(time.RFC3339), nil
	case Neo4jCheckpoint:
		if v.LastTimestamp == "" {
			return "", fmt.Errorf("checkpoint: neo4j timestamp is empty: %w", errs.ErrCheckpointCorrupted)
		}
		return v.LastTimestamp, nil
	case KafkaCheckpoint:
		return encodeKafkaOffsets(v.Offsets), nil
	default:
		return "", fmt.Errorf("checkpoint: unknown variant %T: %w", c, errs.ErrUnsupported)
	}
}

func encodeKafkaOffsets(offsets map[int32]int64) string {
	partitions := make([]int32, 0, len(offsets))
	for p := range offsets {
		partitions = append(partitions, p)
	}
	sort.Slice(partitions, func(i, j int) bool { return partitions[i] < partitions[j] })

	parts := make([]string, 0, len(partitions))
	for _, p := range partitions {
		parts = append(parts, fmt.Sprintf("%d=%d", p, offsets[p]))
	}
	return strings.Join(parts, ",")
}

// Decode parses the canonical text form back into a Checkpoint. A text
// that doesn't match any known backend prefix, or whose payload is
// malformed for its backend, returns errs.ErrCheckpointCorrupted.
func Decode(s string) (Checkpoint, error) {
	backend, payload, ok := strings.Cut(s, ":")
	if !ok {
		return nil, fmt.Errorf("checkpoint: %q missing backend prefix: %w", s, errs.ErrCheckpointCorrupted)
	}

	switch backend {
	case "mysql":
		id, err := decodeSequence(payload)
		if err != nil {
			return nil, corruptErr(s, err)
		}
		return MySQLCheckpoint{AuditID: id}, nil
	case "postgresql":
		id, err := decodeSequence(payload)
		if err != nil {
			return nil, corruptErr(s, err)
		}
		return PostgresCheckpoint{AuditID: id}, nil
	case "postgresql-logical":
		if payload == "" {
			return nil, fmt.Errorf("checkpoint: %q empty LSN: %w", s, errs.ErrCheckpointCorrupted)
		}
		return PostgresLogicalCheckpoint{LSN: payload}, nil
	case "mongodb":
		tokenB64, wallTime, ok := strings.Cut(payload, ":")
		if !ok || tokenB64 == "" || wallTime == "" {
			return nil, fmt.Errorf("checkpoint: %q malformed mongodb payload: %w", s, errs.ErrCheckpointCorrupted)
		}
		tokenBytes, err := base64.StdEncoding.DecodeString(tokenB64)
		if err != nil {
			return nil, corruptErr(s, err)
		}
		t, err := time.Parse(time.RFC3339, wallTime)
		if err != nil {
			return nil, corruptErr(s, err)
		}
		return MongoCheckpoint{ResumeToken: string(tokenBytes), WallTime: t}, nil
	case "neo4j":
		if payload == "" {
			return nil, fmt.Errorf("checkpoint: %q empty timestamp: %w", s, errs.ErrCheckpointCorrupted)
		}
		return Neo4jCheckpoint{LastTimestamp: payload}, nil
	case "kafka":
		offsets, err := decodeKafkaOffsets(payload)
		if err != nil {
			return nil, corruptErr(s, err)
		}
		return KafkaCheckpoint{Offsets: offsets}, nil
	default:
		return nil, fmt.Errorf("checkpoint: %q unknown backend %q: %w", s, backend, errs.ErrCheckpointCorrupted)
	}
}

func decodeSequence(payload string) (int64, error) {
	rest, ok := strings.CutPrefix(payload, "sequence:")
	if !ok {
		return 0, fmt.Errorf("missing sequence: prefix in %q", payload)
	}
	return strconv.ParseInt(rest, 10, 64)
}

func decodeKafkaOffsets(payload string) (map[int32]int64, error) {
	offsets := make(map[int32]int64)
	if payload == "" {
		return offsets, nil
	}
	for _, pair := range strings.Split(payload, ",") {
		part, off, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("malformed partition pair %q", pair)
		}
		p, err := strconv.ParseInt(part, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("malformed partition %q: %w", part, err)
		}
		o, err := strconv.ParseInt(off, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("malformed offset %q: %w", off, err)
		}
		offsets[int32(p)] = o
	}
	return offsets, nil
}

func corruptErr(s string, cause error) error {
	return fmt.Errorf("checkpoint: %q: %w: %w", s, cause, errs.ErrCheckpointCorrupted)
}
