package uvalue

import (
	"fmt"
	"time"

	"github.com/replicore/syncengine/internal/errs"
)

// FromNeo4jProperty converts a single property value as returned by the
// official neo4j-go-driver (already unmarshaled into Go native types:
// int64, float64, bool, string, []byte, time.Time, []any, map[string]any,
// or nil) into a Typed.
func FromNeo4jProperty(raw any) (Typed, error) {
	switch v := raw.(type) {
	case nil:
		return Typed{Type: Type{Kind: KindNull}, Value: Null{}}, nil
	case bool:
		return Typed{Type: Type{Kind: KindBool}, Value: Bool{V: v}}, nil
	case int64:
		return Typed{Type: Type{Kind: KindInt64, Width: 64}, Value: Int64{V: v, DeclaredWidth: 64}}, nil
	case float64:
		return Typed{Type: Type{Kind: KindFloat64}, Value: Float64{V: v}}, nil
	case string:
		return Typed{Type: Type{Kind: KindText}, Value: Text{V: v}}, nil
	case []byte:
		return Typed{Type: Type{Kind: KindBytes}, Value: Bytes{V: v}}, nil
	case time.Time:
		return Typed{Type: Type{Kind: KindZonedDateTime}, Value: ZonedDateTime{V: v}}, nil
	case []any:
		elements := make([]Value, 0, len(v))
		for i, e := range v {
			tv, err := FromNeo4jProperty(e)
			if err != nil {
				return Typed{}, fmt.Errorf("neo4j: element %d: %w", i, err)
			}
			elements = append(elements, tv.Value)
		}
		return Typed{Type: Type{Kind: KindArray}, Value: Array{Elements: elements}}, nil
	case map[string]any:
		fields := make(map[string]Value, len(v))
		for k, e := range v {
			tv, err := FromNeo4jProperty(e)
			if err != nil {
				return Typed{}, fmt.Errorf("neo4j: field %q: %w", k, err)
			}
			fields[k] = tv.Value
		}
		return Typed{Type: Type{Kind: KindObject}, Value: Object{Fields: fields}}, nil
	default:
		return Typed{}, fmt.Errorf("neo4j: unsupported property type %T: %w", raw, errs.ErrUnsupported)
	}
}

// ResolveNodeIDConflict applies the id-property rename rule demanded by
// a node whose own properties already use the key "id": Neo4j's internal
// element id always occupies "id" in the universal row, so a pre-existing
// user property of that name is renamed to "neo4j_original_id" rather
// than silently overwritten.
func ResolveNodeIDConflict(elementID string, properties map[string]any) map[string]any {
	out := make(map[string]any, len(properties)+1)
	for k, v := range properties {
		out[k] = v
	}
	if existing, collides := out["id"]; collides {
		out["neo4j_original_id"] = existing
	}
	out["id"] = elementID
	return out
}

// ToNeo4jProperty converts a Typed into a value acceptable as a Cypher
// query parameter for the official driver.
func ToNeo4jProperty(tv Typed) (any, error) {
	switch v := tv.Value.(type) {
	case Null:
		return nil, nil
	case Bool:
		return v.V, nil
	case Int8:
		return int64(v.V), nil
	case Int16:
		return int64(v.V), nil
	case Int32:
		return int64(v.V), nil
	case Int64:
		return v.V, nil
	case Float32:
		return float64(v.V), nil
	case Float64:
		return v.V, nil
	case Decimal:
		return v.Digits, nil
	case Char:
		return v.V, nil
	case VarChar:
		return v.V, nil
	case Text:
		return v.V, nil
	case Blob:
		return v.V, nil
	case Bytes:
		return v.V, nil
	case Date:
		return v.V, nil
	case Time:
		return v.V, nil
	case LocalDateTime:
		return v.V, nil
	case LocalDateTimeNano:
		return v.V, nil
	case ZonedDateTime:
		return v.V, nil
	case UUID:
		return v.V.String(), nil
	case Enum:
		return v.V, nil
	case Duration:
		return EncodeDuration(v.V), nil
	case JSON:
		return string(v.Payload), nil
	case JSONB:
		return string(v.Payload), nil
	default:
		return nil, fmt.Errorf("neo4j: no sink encoding for kind %s: %w", tv.Value.Kind(), errs.ErrUnsupported)
	}
}
