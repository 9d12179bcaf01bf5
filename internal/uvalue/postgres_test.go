package uvalue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromPostgresIntervalApproximatesMonthsAndDays(t *testing.T) {
	tv, err := FromPostgres("interval", pgIntervalComponents{Microseconds: 0, Days: 1, Months: 1})
	require.NoError(t, err)
	d, ok := tv.Value.(Duration)
	require.True(t, ok)
	assert.Equal(t, 31*24*time.Hour, d.V)
}

func TestFromPostgresUUID(t *testing.T) {
	tv, err := FromPostgres("uuid", "123e4567-e89b-12d3-a456-426614174000")
	require.NoError(t, err)
	assert.Equal(t, KindUUID, tv.Value.Kind())
}

func TestFromPostgresInvalidUUID(t *testing.T) {
	_, err := FromPostgres("uuid", "not-a-uuid")
	assert.Error(t, err)
}

func TestFromPostgresNumericKeepsDigitsAsText(t *testing.T) {
	tv, err := FromPostgres("numeric(8,3)", "12.500")
	require.NoError(t, err)
	d, ok := tv.Value.(Decimal)
	require.True(t, ok)
	assert.Equal(t, "12.500", d.Digits)
}
