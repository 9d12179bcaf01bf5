package uvalue

import (
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// Value is the sealed interface implemented by every UValue variant.
// isValue is unexported so the set of implementations is closed to this
// package, the same way smf treats core.Dialect/core.ConstraintType as
// closed string enums rather than open interfaces.
type Value interface {
	Kind() Kind
	isValue()
}

type Null struct{}

func (Null) Kind() Kind { return KindNull }
func (Null) isValue()   {}

type Bool struct{ V bool }

func (Bool) Kind() Kind { return KindBool }
func (Bool) isValue()   {}

// Int8/Int16/Int32/Int64 each carry the declared width they were widened
// from, if any. The variant itself is never auto-promoted (spec §3.1);
// widening only happens at sink time, in the To* converters (ToMySQL,
// ToPostgres, ToMongo, ToNeo4jProperty).
type Int8 struct {
	V             int8
	DeclaredWidth int
}

func (Int8) Kind() Kind { return KindInt8 }
func (Int8) isValue()   {}

type Int16 struct {
	V             int16
	DeclaredWidth int
}

func (Int16) Kind() Kind { return KindInt16 }
func (Int16) isValue()   {}

type Int32 struct {
	V             int32
	DeclaredWidth int
}

func (Int32) Kind() Kind { return KindInt32 }
func (Int32) isValue()   {}

type Int64 struct {
	V             int64
	DeclaredWidth int
}

func (Int64) Kind() Kind { return KindInt64 }
func (Int64) isValue()   {}

type Float32 struct{ V float32 }

func (Float32) Kind() Kind { return KindFloat32 }
func (Float32) isValue()   {}

type Float64 struct{ V float64 }

func (Float64) Kind() Kind { return KindFloat64 }
func (Float64) isValue()   {}

// Decimal carries its digits as text so backends that disagree on
// native decimal width round-trip exactly (spec §3.1, §4.1).
type Decimal struct {
	Digits    string
	Precision int
	Scale     int
}

func (Decimal) Kind() Kind { return KindDecimal }
func (Decimal) isValue()   {}

type Char struct {
	V      string
	Length int
}

func (Char) Kind() Kind { return KindChar }
func (Char) isValue()   {}

type VarChar struct {
	V      string
	Length int
}

func (VarChar) Kind() Kind { return KindVarChar }
func (VarChar) isValue()   {}

type Text struct{ V string }

func (Text) Kind() Kind { return KindText }
func (Text) isValue()   {}

type Blob struct{ V []byte }

func (Blob) Kind() Kind { return KindBlob }
func (Blob) isValue()   {}

type Bytes struct{ V []byte }

func (Bytes) Kind() Kind { return KindBytes }
func (Bytes) isValue()   {}

type Date struct{ V time.Time }

func (Date) Kind() Kind { return KindDate }
func (Date) isValue()   {}

type Time struct{ V time.Time }

func (Time) Kind() Kind { return KindTime }
func (Time) isValue()   {}

type LocalDateTime struct{ V time.Time }

func (LocalDateTime) Kind() Kind { return KindLocalDateTime }
func (LocalDateTime) isValue()   {}

type LocalDateTimeNano struct{ V time.Time }

func (LocalDateTimeNano) Kind() Kind { return KindLocalDateTimeNano }
func (LocalDateTimeNano) isValue()   {}

type ZonedDateTime struct{ V time.Time }

func (ZonedDateTime) Kind() Kind { return KindZonedDateTime }
func (ZonedDateTime) isValue()   {}

type UUID struct{ V uuid.UUID }

func (UUID) Kind() Kind { return KindUUID }
func (UUID) isValue()   {}

type ULID struct{ V ulid.ULID }

func (ULID) Kind() Kind { return KindULID }
func (ULID) isValue()   {}

// JSON/JSONB carry the already-encoded payload bytes, never a
// Go-formatted fallback (spec §4.1 forbids Debug-formatted fallbacks).
type JSON struct{ Payload []byte }

func (JSON) Kind() Kind { return KindJSON }
func (JSON) isValue()   {}

type JSONB struct{ Payload []byte }

func (JSONB) Kind() Kind { return KindJSONB }
func (JSONB) isValue()   {}

type Object struct{ Fields map[string]Value }

func (Object) Kind() Kind { return KindObject }
func (Object) isValue()   {}

type Array struct {
	Elements    []Value
	ElementType Type
}

func (Array) Kind() Kind { return KindArray }
func (Array) isValue()   {}

type Set struct {
	Elements []Value
	Members  []string
}

func (Set) Kind() Kind { return KindSet }
func (Set) isValue()   {}

type Enum struct {
	V       string
	Members []string
}

func (Enum) Kind() Kind { return KindEnum }
func (Enum) isValue()   {}

// Geometry carries the raw GeoJSON payload plus the geometry kind the
// "type" field inside that payload must match (spec §4.1).
type Geometry struct {
	GeoJSON []byte
	Kind_   GeometryKind
}

func (Geometry) Kind() Kind { return KindGeometry }
func (Geometry) isValue()   {}

type Duration struct{ V time.Duration }

func (Duration) Kind() Kind { return KindDuration }
func (Duration) isValue()   {}

// Thing is a typed foreign reference. ID is restricted to
// Text|Int32|Int64|UUID; NewThing enforces this (spec §3.1, invariant 4
// in §8).
type Thing struct {
	Table string
	ID    Value
}

func (Thing) Kind() Kind { return KindThing }
func (Thing) isValue()   {}

// NewThing validates the id subtype restriction before returning a
// Thing, so malformed Things can never leave this package.
func NewThing(table string, id Value) (Thing, error) {
	if !ThingIDKinds[id.Kind()] {
		return Thing{}, newThingIDError(id.Kind())
	}
	return Thing{Table: table, ID: id}, nil
}
