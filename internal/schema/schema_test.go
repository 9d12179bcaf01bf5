package schema

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDoc = `
[[tables]]
name = "users"
primary_key = ["id"]

  [[tables.fields]]
  name = "id"
  kind = "int64"

  [[tables.fields]]
  name = "email"
  kind = "varchar"
  length = 255

[[tables]]
name = "orders"
primary_key = ["id"]

  [[tables.fields]]
  name = "id"
  kind = "uuid"

  [[tables.fields]]
  name = "user_id"
  kind = "int64"
  thing_table = "users"
`

func TestParseLoadsTablesAndFields(t *testing.T) {
	s, err := Parse(strings.NewReader(sampleDoc))
	require.NoError(t, err)
	require.Len(t, s.Tables, 2)

	users, ok := s.Table("users")
	require.True(t, ok)
	email, ok := users.Field("email")
	require.True(t, ok)
	assert.Equal(t, 255, email.Type.Length)
}

func TestParseRejectsMissingPrimaryKey(t *testing.T) {
	doc := `
[[tables]]
name = "broken"

  [[tables.fields]]
  name = "x"
  kind = "text"
`
	_, err := Parse(strings.NewReader(doc))
	assert.Error(t, err)
}

func TestParseRejectsUnknownKind(t *testing.T) {
	doc := `
[[tables]]
name = "t"
primary_key = ["id"]

  [[tables.fields]]
  name = "id"
  kind = "bogus"
`
	_, err := Parse(strings.NewReader(doc))
	assert.Error(t, err)
}

func TestFieldTypeMissingField(t *testing.T) {
	s, err := Parse(strings.NewReader(sampleDoc))
	require.NoError(t, err)
	users, _ := s.Table("users")
	_, err = users.FieldType("nonexistent")
	assert.Error(t, err)
}
