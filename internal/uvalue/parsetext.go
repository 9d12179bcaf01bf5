package uvalue

import (
	"fmt"
	"strconv"
	"time"

	"github.com/replicore/syncengine/internal/errs"
)

// ParseText parses a plain-text field (as found in a CSV cell or a
// command-line argument) into a Typed matching t.Kind. Used by the CSV
// and JSONL source adapters wherever the declared schema, not the
// source format, determines a field's type.
func ParseText(t Type, raw string) (Typed, error) {
	switch t.Kind {
	case KindBool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return Typed{}, fmt.Errorf("text %q not a bool: %w", raw, errs.ErrTypeMismatch)
		}
		return Typed{Type: t, Value: Bool{V: b}}, nil
	case KindInt8:
		n, err := strconv.ParseInt(raw, 10, 8)
		if err != nil {
			return Typed{}, fmt.Errorf("text %q not an int8: %w", raw, errs.ErrTypeMismatch)
		}
		return Typed{Type: t, Value: Int8{V: int8(n), DeclaredWidth: 8}}, nil
	case KindInt16:
		n, err := strconv.ParseInt(raw, 10, 16)
		if err != nil {
			return Typed{}, fmt.Errorf("text %q not an int16: %w", raw, errs.ErrTypeMismatch)
		}
		return Typed{Type: t, Value: Int16{V: int16(n), DeclaredWidth: 16}}, nil
	case KindInt32:
		n, err := strconv.ParseInt(raw, 10, 32)
		if err != nil {
			return Typed{}, fmt.Errorf("text %q not an int32: %w", raw, errs.ErrTypeMismatch)
		}
		return Typed{Type: t, Value: Int32{V: int32(n), DeclaredWidth: 32}}, nil
	case KindInt64:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return Typed{}, fmt.Errorf("text %q not an int64: %w", raw, errs.ErrTypeMismatch)
		}
		return Typed{Type: t, Value: Int64{V: n, DeclaredWidth: 64}}, nil
	case KindFloat32:
		f, err := strconv.ParseFloat(raw, 32)
		if err != nil {
			return Typed{}, fmt.Errorf("text %q not a float32: %w", raw, errs.ErrTypeMismatch)
		}
		return Typed{Type: t, Value: Float32{V: float32(f)}}, nil
	case KindFloat64:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return Typed{}, fmt.Errorf("text %q not a float64: %w", raw, errs.ErrTypeMismatch)
		}
		return Typed{Type: t, Value: Float64{V: f}}, nil
	case KindDecimal:
		return Typed{Type: t, Value: Decimal{Digits: raw, Precision: t.Precision, Scale: t.Scale}}, nil
	case KindChar:
		return Typed{Type: t, Value: Char{V: raw, Length: t.Length}}, nil
	case KindVarChar:
		return Typed{Type: t, Value: VarChar{V: raw, Length: t.Length}}, nil
	case KindText:
		return Typed{Type: t, Value: Text{V: raw}}, nil
	case KindBlob:
		return Typed{Type: t, Value: Blob{V: []byte(raw)}}, nil
	case KindBytes:
		return Typed{Type: t, Value: Bytes{V: []byte(raw)}}, nil
	case KindDate:
		tm, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return Typed{}, fmt.Errorf("text %q not a date: %w", raw, errs.ErrTypeMismatch)
		}
		return Typed{Type: t, Value: Date{V: tm}}, nil
	case KindTime:
		tm, err := time.Parse("15:04:05", raw)
		if err != nil {
			return Typed{}, fmt.Errorf("text %q not a time: %w", raw, errs.ErrTypeMismatch)
		}
		return Typed{Type: t, Value: Time{V: tm}}, nil
	case KindLocalDateTime, KindLocalDateTimeNano, KindZonedDateTime:
		tm, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return Typed{}, fmt.Errorf("text %q not a timestamp: %w", raw, errs.ErrTypeMismatch)
		}
		return newTemporal(t, tm), nil
	case KindUUID:
		u, err := parseUUIDString(raw)
		if err != nil {
			return Typed{}, err
		}
		return Typed{Type: t, Value: UUID{V: u}}, nil
	case KindJSON:
		return Typed{Type: t, Value: JSON{Payload: []byte(raw)}}, nil
	case KindJSONB:
		return Typed{Type: t, Value: JSONB{Payload: []byte(raw)}}, nil
	case KindEnum:
		return Typed{Type: t, Value: Enum{V: raw, Members: t.Members}}, nil
	case KindGeometry:
		return Typed{Type: t, Value: Geometry{GeoJSON: []byte(raw), Kind_: t.Geometry}}, nil
	case KindDuration:
		d, err := ParseDuration(raw)
		if err != nil {
			return Typed{}, err
		}
		return Typed{Type: t, Value: Duration{V: d}}, nil
	case KindThing:
		return parseThingText(t, raw)
	default:
		return Typed{}, fmt.Errorf("text: no parser for kind %s: %w", t.Kind, errs.ErrUnsupported)
	}
}

func newTemporal(t Type, tm time.Time) Typed {
	switch t.Kind {
	case KindLocalDateTime:
		return Typed{Type: t, Value: LocalDateTime{V: tm}}
	case KindLocalDateTimeNano:
		return Typed{Type: t, Value: LocalDateTimeNano{V: tm}}
	default:
		return Typed{Type: t, Value: ZonedDateTime{V: tm}}
	}
}

// parseThingText parses the "table:id" reference form produced by
// EncodeCSVField/thingCSVRef back into a Thing. The id component's Kind
// is recovered from t.Element, which the schema loader populates from
// the referenced table's declared primary-key type (spec §3.1).
func parseThingText(t Type, raw string) (Typed, error) {
	idx := -1
	for i := 0; i < len(raw); i++ {
		if raw[i] == ':' {
			idx = i
			break
		}
	}
	if idx < 0 {
		return Typed{}, fmt.Errorf("text %q not a thing reference (want table:id): %w", raw, errs.ErrTypeMismatch)
	}
	table, idText := raw[:idx], raw[idx+1:]

	idKind := KindText
	if t.Element != nil {
		idKind = t.Element.Kind
	}
	idType := Type{Kind: idKind}
	idTyped, err := ParseText(idType, idText)
	if err != nil {
		return Typed{}, fmt.Errorf("thing id: %w", err)
	}

	thing, err := NewThing(table, idTyped.Value)
	if err != nil {
		return Typed{}, err
	}
	return Typed{Type: t, Value: thing}, nil
}
