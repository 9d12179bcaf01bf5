package uvalue

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveNodeIDConflictRenamesExistingID(t *testing.T) {
	props := map[string]any{"id": "user-supplied", "name": "alice"}
	got := ResolveNodeIDConflict("4:abc:1", props)
	assert.Equal(t, "4:abc:1", got["id"])
	assert.Equal(t, "user-supplied", got["neo4j_original_id"])
	assert.Equal(t, "alice", got["name"])
}

func TestResolveNodeIDConflictNoCollision(t *testing.T) {
	props := map[string]any{"name": "alice"}
	got := ResolveNodeIDConflict("4:abc:1", props)
	assert.Equal(t, "4:abc:1", got["id"])
	_, collided := got["neo4j_original_id"]
	assert.False(t, collided)
}
