// Package uvalue implements the universal value and type model (spec
// component C1): the closed tagged union used as the lingua franca
// between every source adapter and the sink writer. Nothing in the
// replication engine moves a native driver value across a package
// boundary without first passing through Value/Type here.
//
// The enum-with-const-block shape below mirrors smf's internal/core
// (core.DataType, core.ConstraintType): a closed Go string type plus a
// const block, never an open interface a caller could extend.
package uvalue

// Kind tags each Value/Type variant. The set is closed: spec §3.1 lists
// every variant and no more are added at runtime.
type Kind string

const (
	KindNull              Kind = "null"
	KindBool              Kind = "bool"
	KindInt8              Kind = "int8"
	KindInt16             Kind = "int16"
	KindInt32             Kind = "int32"
	KindInt64             Kind = "int64"
	KindFloat32           Kind = "float32"
	KindFloat64           Kind = "float64"
	KindDecimal           Kind = "decimal"
	KindChar              Kind = "char"
	KindVarChar           Kind = "varchar"
	KindText              Kind = "text"
	KindBlob              Kind = "blob"
	KindBytes             Kind = "bytes"
	KindDate              Kind = "date"
	KindTime              Kind = "time"
	KindLocalDateTime     Kind = "local_date_time"
	KindLocalDateTimeNano Kind = "local_date_time_nano"
	KindZonedDateTime     Kind = "zoned_date_time"
	KindUUID              Kind = "uuid"
	KindULID              Kind = "ulid"
	KindJSON              Kind = "json"
	KindJSONB             Kind = "jsonb"
	KindObject            Kind = "object"
	KindArray             Kind = "array"
	KindSet               Kind = "set"
	KindEnum              Kind = "enum"
	KindGeometry          Kind = "geometry"
	KindDuration          Kind = "duration"
	KindThing             Kind = "thing"
)

// GeometryKind enumerates the GeoJSON geometry shapes carried by a
// Geometry value (spec §3.1).
type GeometryKind string

const (
	GeometryPoint              GeometryKind = "Point"
	GeometryLineString         GeometryKind = "LineString"
	GeometryPolygon            GeometryKind = "Polygon"
	GeometryMultiPoint         GeometryKind = "MultiPoint"
	GeometryMultiLineString    GeometryKind = "MultiLineString"
	GeometryMultiPolygon       GeometryKind = "MultiPolygon"
	GeometryGeometryCollection GeometryKind = "GeometryCollection"
)

// Type is the declared universal type paired with every Value inside a
// TypedValue. It carries only the metadata needed to validate a Value's
// tag and to drive ddl() / sink-side widening decisions; it is never
// itself the payload.
type Type struct {
	Kind Kind

	// Width is the declared bit width for the integer family (8/16/32/64).
	Width int

	// Precision/Scale describe a Decimal's declared precision and scale.
	Precision int
	Scale     int

	// Length is the declared character length for Char/VarChar.
	Length int

	// Element is the declared element type for Array, and the id type of
	// a Thing (set by the schema loader from the referenced table's key).
	Element *Type

	// Members enumerates the allowed values for Set/Enum.
	Members []string

	// Geometry is the declared geometry kind for Geometry.
	Geometry GeometryKind

	// Table names the referenced table for Thing.
	Table string
}

// ThingIDKinds are the only Kinds a Thing's inner id may carry (spec
// §3.1, invariant 4 in §8).
var ThingIDKinds = map[Kind]bool{
	KindText:  true,
	KindInt32: true,
	KindInt64: true,
	KindUUID:  true,
}
