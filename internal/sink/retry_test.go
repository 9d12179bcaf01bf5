package sink

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/replicore/syncengine/internal/errs"
)

func TestWithRetrySucceedsAfterTransientFailures(t *testing.T) {
	attempts := 0
	err := WithRetry(context.Background(), func() error {
		attempts++
		if attempts < 3 {
			return errs.ErrSinkConflict
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestWithRetryStopsImmediatelyOnFatalError(t *testing.T) {
	attempts := 0
	err := WithRetry(context.Background(), func() error {
		attempts++
		return errs.ErrSinkIO
	})
	assert.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrSinkIO))
	assert.Equal(t, 1, attempts)
}

func TestWithRetryExhaustsAfterMaxAttempts(t *testing.T) {
	attempts := 0
	err := WithRetry(context.Background(), func() error {
		attempts++
		return errs.ErrSinkConflict
	})
	assert.Error(t, err)
	assert.GreaterOrEqual(t, attempts, 2)
}
