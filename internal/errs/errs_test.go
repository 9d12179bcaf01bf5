package errs

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFatal(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"no primary key is fatal", ErrNoPrimaryKey, true},
		{"type mismatch is fatal", ErrTypeMismatch, true},
		{"sink io is fatal", ErrSinkIO, true},
		{"sink conflict is not fatal", ErrSinkConflict, false},
		{"source io is not fatal", ErrSourceIO, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Fatal(tt.err))
		})
	}
}

func TestWithRowFormatsPhaseTableRow(t *testing.T) {
	err := WithRow("full_sync", "users", 42, ErrTypeMismatch)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "phase full_sync")
	assert.Contains(t, err.Error(), "table users")
	assert.Contains(t, err.Error(), "row 42")
	assert.True(t, errors.Is(err, ErrTypeMismatch))
}

func TestWithTableOmitsRowIndex(t *testing.T) {
	err := WithTable("full_sync", "orders", ErrNoPrimaryKey)
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "row")
	assert.True(t, errors.Is(err, ErrNoPrimaryKey))
}

func TestWithRowNilError(t *testing.T) {
	assert.Nil(t, WithRow("p", "t", 0, nil))
	assert.Nil(t, WithTable("p", "t", nil))
}
