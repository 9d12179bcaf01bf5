package uvalue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTextInt64(t *testing.T) {
	tv, err := ParseText(Type{Kind: KindInt64}, "42")
	require.NoError(t, err)
	assert.Equal(t, Int64{V: 42, DeclaredWidth: 64}, tv.Value)
}

func TestParseTextThingReference(t *testing.T) {
	tv, err := ParseText(Type{Kind: KindThing, Element: &Type{Kind: KindInt64}}, "users:42")
	require.NoError(t, err)
	thing, ok := tv.Value.(Thing)
	require.True(t, ok)
	assert.Equal(t, "users", thing.Table)
	assert.Equal(t, Int64{V: 42, DeclaredWidth: 64}, thing.ID)
}

func TestParseTextThingMalformed(t *testing.T) {
	_, err := ParseText(Type{Kind: KindThing}, "no-colon-here")
	assert.Error(t, err)
}

func TestParseTextBoolInvalid(t *testing.T) {
	_, err := ParseText(Type{Kind: KindBool}, "not-a-bool")
	assert.Error(t, err)
}
