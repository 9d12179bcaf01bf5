package checkpoint

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/replicore/syncengine/internal/errs"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	wallTime := time.Date(2026, 7, 30, 10, 0, 0, 0, time.UTC)
	cases := []Checkpoint{
		MySQLCheckpoint{AuditID: 42},
		PostgresCheckpoint{AuditID: 7},
		PostgresLogicalCheckpoint{LSN: "0/1A2B3C0"},
		MongoCheckpoint{ResumeToken: "82B4...", WallTime: wallTime},
		Neo4jCheckpoint{LastTimestamp: "2026-07-30T10:00:00Z"},
		KafkaCheckpoint{Offsets: map[int32]int64{0: 100, 1: 203}},
	}
	for _, c := range cases {
		t.Run(c.Backend(), func(t *testing.T) {
			s, err := Encode(c)
			require.NoError(t, err)
			got, err := Decode(s)
			require.NoError(t, err)
			assert.Equal(t, c, got)
		})
	}
}

// TestCheckpointDataMatchesCanonicalGrammar pins the literal wire text
// the checkpoint on-disk record and the CLI's --incremental-from flag
// depend on (spec §6.1), not just this package's own round-trip.
func TestCheckpointDataMatchesCanonicalGrammar(t *testing.T) {
	mysql, err := Encode(MySQLCheckpoint{AuditID: 0})
	require.NoError(t, err)
	assert.Equal(t, "mysql:sequence:0", mysql)

	postgres, err := Encode(PostgresCheckpoint{AuditID: 4})
	require.NoError(t, err)
	assert.Equal(t, "postgresql:sequence:4", postgres)

	logical, err := Encode(PostgresLogicalCheckpoint{LSN: "0/1949850"})
	require.NoError(t, err)
	assert.Equal(t, "postgresql-logical:0/1949850", logical)

	neo4j, err := Encode(Neo4jCheckpoint{LastTimestamp: "2024-01-01T00:00:00Z"})
	require.NoError(t, err)
	assert.Equal(t, "neo4j:2024-01-01T00:00:00Z", neo4j)

	mongo, err := Encode(MongoCheckpoint{
		ResumeToken: "token-bytes",
		WallTime:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, "mongodb:dG9rZW4tYnl0ZXM=:2024-01-01T00:00:00Z", mongo)

	decoded, err := Decode("mongodb:!!!invalid-base64!!!:2024-01-01T00:00:00Z")
	require.Error(t, err)
	assert.Nil(t, decoded)
	assert.ErrorIs(t, err, errs.ErrCheckpointCorrupted)
}

func TestDecodeRejectsUnknownBackend(t *testing.T) {
	_, err := Decode("oracle:123")
	assert.Error(t, err)
}

func TestDecodeRejectsMissingPrefix(t *testing.T) {
	_, err := Decode("nobackendhere")
	assert.Error(t, err)
}

func TestEncodeRejectsEmptyMongoToken(t *testing.T) {
	_, err := Encode(MongoCheckpoint{ResumeToken: ""})
	assert.Error(t, err)
}

func TestKafkaOffsetsEncodeDeterministicOrder(t *testing.T) {
	s, err := Encode(KafkaCheckpoint{Offsets: map[int32]int64{2: 1, 0: 1, 1: 1}})
	require.NoError(t, err)
	assert.Equal(t, "kafka:0=1,1=1,2=1", s)
}
