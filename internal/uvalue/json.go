package uvalue

import (
	"encoding/json"
	"fmt"

	"github.com/replicore/syncengine/internal/errs"
)

// jsonEncodeValue renders a single Value as a JSON payload, used both by
// csv.go (embedding JSON inside a CSV field) and by EncodeJSONRow below.
// Geometry is the one variant spec §4.1 singles out: its GeoJSON payload
// is re-marshaled through geoJSONWithType to guarantee the mandatory
// "type" field matches the declared GeometryKind, rather than trusting
// whatever bytes the source adapter produced.
func jsonEncodeValue(v Value) (json.RawMessage, error) {
	switch vv := v.(type) {
	case Null:
		return json.RawMessage("null"), nil
	case Bool:
		return json.Marshal(vv.V)
	case Int8:
		return json.Marshal(vv.V)
	case Int16:
		return json.Marshal(vv.V)
	case Int32:
		return json.Marshal(vv.V)
	case Int64:
		return json.Marshal(vv.V)
	case Float32:
		return json.Marshal(vv.V)
	case Float64:
		return json.Marshal(vv.V)
	case Decimal:
		return json.Marshal(vv.Digits)
	case Char:
		return json.Marshal(vv.V)
	case VarChar:
		return json.Marshal(vv.V)
	case Text:
		return json.Marshal(vv.V)
	case Blob:
		return json.Marshal(vv.V)
	case Bytes:
		return json.Marshal(vv.V)
	case Date:
		return json.Marshal(vv.V.Format("2006-01-02"))
	case Time:
		return json.Marshal(vv.V.Format("15:04:05"))
	case LocalDateTime:
		return json.Marshal(vv.V.Format("2006-01-02T15:04:05"))
	case LocalDateTimeNano:
		return json.Marshal(vv.V.Format("2006-01-02T15:04:05.999999999"))
	case ZonedDateTime:
		return json.Marshal(vv.V.Format(timeRFC3339Nano))
	case UUID:
		return json.Marshal(vv.V.String())
	case ULID:
		return json.Marshal(vv.V.String())
	case JSON:
		return json.RawMessage(vv.Payload), nil
	case JSONB:
		return json.RawMessage(vv.Payload), nil
	case Object:
		m := make(map[string]json.RawMessage, len(vv.Fields))
		for k, fv := range vv.Fields {
			raw, err := jsonEncodeValue(fv)
			if err != nil {
				return nil, err
			}
			m[k] = raw
		}
		return json.Marshal(m)
	case Array:
		raws := make([]json.RawMessage, 0, len(vv.Elements))
		for _, e := range vv.Elements {
			raw, err := jsonEncodeValue(e)
			if err != nil {
				return nil, err
			}
			raws = append(raws, raw)
		}
		return json.Marshal(raws)
	case Set:
		return json.Marshal(setMemberStrings(vv))
	case Enum:
		return json.Marshal(vv.V)
	case Geometry:
		return geoJSONWithType(vv)
	case Duration:
		return json.Marshal(EncodeDuration(vv.V))
	case Thing:
		ref, err := thingCSVRef(vv)
		if err != nil {
			return nil, err
		}
		return json.Marshal(ref)
	default:
		return nil, fmt.Errorf("json: no encoding for kind %s: %w", v.Kind(), errs.ErrUnsupported)
	}
}

const timeRFC3339Nano = "2006-01-02T15:04:05.999999999Z07:00"

// geoJSONWithType decodes the stored GeoJSON payload, forces its "type"
// field to match g.Kind_, and re-encodes. A payload whose own "type"
// disagrees with g.Kind_ is not rejected: its "type" is replaced and the
// rest of the payload is kept as it is. Only a payload that is not a
// JSON object fails, with errs.ErrTypeMismatch.
func geoJSONWithType(g Geometry) (json.RawMessage, error) {
	var decoded map[string]json.RawMessage
	if err := json.Unmarshal(g.GeoJSON, &decoded); err != nil {
		return nil, fmt.Errorf("geometry payload: %w", errs.ErrTypeMismatch)
	}
	typeRaw, err := json.Marshal(string(g.Kind_))
	if err != nil {
		return nil, err
	}
	decoded["type"] = typeRaw
	return json.Marshal(decoded)
}

// EncodeJSONRow renders a full row of TypedValues as a JSON object keyed
// by column name, used by sinks and diagnostics that want structured
// rather than delimited output.
func EncodeJSONRow(columns []string, values []Typed) (json.RawMessage, error) {
	if len(columns) != len(values) {
		return nil, fmt.Errorf("json row: %d columns, %d values: %w", len(columns), len(values), errs.ErrTypeMismatch)
	}
	m := make(map[string]json.RawMessage, len(values))
	for i, tv := range values {
		raw, err := jsonEncodeValue(tv.Value)
		if err != nil {
			return nil, fmt.Errorf("json row: column %s: %w", columns[i], err)
		}
		m[columns[i]] = raw
	}
	return json.Marshal(m)
}
