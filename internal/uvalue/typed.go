package uvalue

import (
	"fmt"

	"github.com/replicore/syncengine/internal/errs"
)

// Typed pairs a declared Type with the Value it describes. Every value
// that crosses a source/sink boundary travels as a Typed.
type Typed struct {
	Type  Type
	Value Value
}

// consistencyPanic is raised by NewTyped when the type and value tags
// disagree. Spec §3.1: "a constructor that returns an inconsistent pair
// is a fatal programming error (tested)" — this is a panic, not an
// error return, because it can only be triggered by a bug in an
// adapter's own conversion code, never by untrusted input.
type consistencyPanic struct {
	typeKind  Kind
	valueKind Kind
}

func (p consistencyPanic) String() string {
	return fmt.Sprintf("uvalue: inconsistent TypedValue: type kind %q, value kind %q", p.typeKind, p.valueKind)
}

// NewTyped constructs a Typed, panicking if t.Kind and v.Kind() disagree.
func NewTyped(t Type, v Value) Typed {
	if t.Kind != v.Kind() {
		panic(consistencyPanic{typeKind: t.Kind, valueKind: v.Kind()}.String())
	}
	return Typed{Type: t, Value: v}
}

func newThingIDError(k Kind) error {
	return fmt.Errorf("thing id must be Text, Int32, Int64, or Uuid, got %s: %w", k, errs.ErrUnsupported)
}
