package uvalue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromMySQLTinyintOneIsBool(t *testing.T) {
	tv, err := FromMySQL("tinyint(1)", int64(1))
	require.NoError(t, err)
	assert.Equal(t, KindBool, tv.Value.Kind())
	assert.Equal(t, Bool{V: true}, tv.Value)
}

func TestFromMySQLTinyintWiderStaysInt8(t *testing.T) {
	tv, err := FromMySQL("tinyint(4)", int64(42))
	require.NoError(t, err)
	assert.Equal(t, KindInt8, tv.Value.Kind())
	assert.Equal(t, Int8{V: 42, DeclaredWidth: 8}, tv.Value)
}

func TestFromMySQLDecimalPreservesDigitsAsText(t *testing.T) {
	tv, err := FromMySQL("decimal(10,2)", []byte("123.45"))
	require.NoError(t, err)
	d, ok := tv.Value.(Decimal)
	require.True(t, ok)
	assert.Equal(t, "123.45", d.Digits)
	assert.Equal(t, 10, d.Precision)
	assert.Equal(t, 2, d.Scale)
}

func TestFromMySQLNullAnyType(t *testing.T) {
	tv, err := FromMySQL("varchar(255)", nil)
	require.NoError(t, err)
	assert.Equal(t, KindNull, tv.Value.Kind())
}

func TestFromMySQLUnsignedIntWidensToInt64(t *testing.T) {
	tv, err := FromMySQL("int unsigned", int64(4000000000))
	require.NoError(t, err)
	assert.Equal(t, KindInt64, tv.Value.Kind())
}

func TestToMySQLRoundTripsIntWidening(t *testing.T) {
	tv := Typed{Type: Type{Kind: KindInt32}, Value: Int32{V: 9, DeclaredWidth: 32}}
	got, err := ToMySQL(tv)
	require.NoError(t, err)
	assert.Equal(t, int64(9), got)
}
