package uvalue

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/replicore/syncengine/internal/errs"
)

// parseUUIDString is the single place every adapter routes a textual
// UUID through, so a malformed id always surfaces as errs.ErrTypeMismatch
// rather than a raw uuid package error.
func parseUUIDString(s string) (uuid.UUID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.UUID{}, fmt.Errorf("uuid %q: %w", s, errs.ErrTypeMismatch)
	}
	return u, nil
}
