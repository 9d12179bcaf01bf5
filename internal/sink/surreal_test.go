package sink

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/replicore/syncengine/internal/uvalue"
)

func TestRecordIDCompositeKey(t *testing.T) {
	id, err := recordID(
		"order_items",
		[]string{"order_id", "line_no", "qty"},
		[]uvalue.Typed{
			{Value: uvalue.Int32{V: 7}},
			{Value: uvalue.Int32{V: 2}},
			{Value: uvalue.Int32{V: 5}},
		},
		[]string{"order_id", "line_no"},
	)
	require.NoError(t, err)
	assert.Equal(t, "order_items:7_2", id)
}

func TestIdComponentArray(t *testing.T) {
	s, err := idComponent(uvalue.Typed{Value: uvalue.Array{Elements: []uvalue.Value{
		uvalue.Int32{V: 7},
		uvalue.Text{V: "a"},
	}}})
	require.NoError(t, err)
	assert.Equal(t, "7_a", s)
}

func TestToSurrealArraySetObject(t *testing.T) {
	arr, err := toSurreal(uvalue.Typed{Value: uvalue.Array{Elements: []uvalue.Value{
		uvalue.Int32{V: 1}, uvalue.Int32{V: 2},
	}}})
	require.NoError(t, err)
	assert.Equal(t, []any{int64(1), int64(2)}, arr)

	set, err := toSurreal(uvalue.Typed{Value: uvalue.Set{Elements: []uvalue.Value{
		uvalue.Text{V: "x"},
	}}})
	require.NoError(t, err)
	assert.Equal(t, []any{"x"}, set)

	obj, err := toSurreal(uvalue.Typed{Value: uvalue.Object{Fields: map[string]uvalue.Value{
		"nested": uvalue.Bool{V: true},
	}}})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"nested": true}, obj)
}

func TestToSurrealThingUsesIDComponent(t *testing.T) {
	id := uuid.New()
	thing, err := uvalue.NewThing("users", uvalue.UUID{V: id})
	require.NoError(t, err)

	got, err := toSurreal(uvalue.Typed{Value: thing})
	require.NoError(t, err)
	assert.Equal(t, "users:"+id.String(), got)
}
