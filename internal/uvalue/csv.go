package uvalue

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/replicore/syncengine/internal/errs"
)

// needsCSVQuoting reports whether field must be wrapped in double quotes
// per spec §4.1: wrap iff it contains a comma, double quote, CR, or LF.
func needsCSVQuoting(field string) bool {
	return strings.ContainsAny(field, ",\"\n\r")
}

// EncodeCSVField applies the engine's CSV escape policy to a single raw
// field: wrap in double quotes iff the value contains `, " \n \r`, and
// within the wrapping double every literal `"` (spec §4.1, §6.4). This
// is deliberately hand-rolled rather than routed through encoding/csv:
// the policy here governs a single field's text, not a whole record, and
// differs from encoding/csv's own quoting heuristics (e.g. encoding/csv
// always quotes fields starting with a space). See DESIGN.md.
func EncodeCSVField(field string) string {
	if !needsCSVQuoting(field) {
		return field
	}
	var sb strings.Builder
	sb.Grow(len(field) + 8)
	sb.WriteByte('"')
	for _, r := range field {
		if r == '"' {
			sb.WriteByte('"')
		}
		sb.WriteRune(r)
	}
	sb.WriteByte('"')
	return sb.String()
}

// EncodeCSVRow renders a full row of TypedValues as a single CSV line
// (no trailing newline), following spec §6.4's per-type conventions.
func EncodeCSVRow(values []Typed) (string, error) {
	fields := make([]string, len(values))
	for i, tv := range values {
		f, err := csvField(tv)
		if err != nil {
			return "", fmt.Errorf("csv field %d: %w", i, err)
		}
		fields[i] = EncodeCSVField(f)
	}
	return strings.Join(fields, ","), nil
}

func csvField(tv Typed) (string, error) {
	switch v := tv.Value.(type) {
	case Null:
		return "", nil
	case Bool:
		return strconv.FormatBool(v.V), nil
	case Int8:
		return strconv.FormatInt(int64(v.V), 10), nil
	case Int16:
		return strconv.FormatInt(int64(v.V), 10), nil
	case Int32:
		return strconv.FormatInt(int64(v.V), 10), nil
	case Int64:
		return strconv.FormatInt(v.V, 10), nil
	case Float32:
		return strconv.FormatFloat(float64(v.V), 'g', -1, 32), nil
	case Float64:
		return strconv.FormatFloat(v.V, 'g', -1, 64), nil
	case Decimal:
		return v.Digits, nil
	case Char:
		return v.V, nil
	case VarChar:
		return v.V, nil
	case Text:
		return v.V, nil
	case Blob:
		return string(v.V), nil
	case Bytes:
		return string(v.V), nil
	case Date:
		return v.V.Format("2006-01-02"), nil
	case Time:
		return v.V.Format("15:04:05"), nil
	case LocalDateTime, LocalDateTimeNano, ZonedDateTime:
		return csvTemporal(v)
	case UUID:
		return v.V.String(), nil
	case ULID:
		return v.V.String(), nil
	case JSON:
		return string(v.Payload), nil
	case JSONB:
		return string(v.Payload), nil
	case Object:
		return jsonEncodeObject(v)
	case Array:
		return jsonEncodeArray(v)
	case Set:
		return strings.Join(setMemberStrings(v), ","), nil
	case Enum:
		return v.V, nil
	case Geometry:
		return string(v.GeoJSON), nil
	case Duration:
		return EncodeDuration(v.V), nil
	case Thing:
		return thingCSVRef(v)
	default:
		return "", fmt.Errorf("csv: no encoding for kind %s: %w", tv.Value.Kind(), errs.ErrUnsupported)
	}
}

func csvTemporal(v Value) (string, error) {
	var t time.Time
	switch vv := v.(type) {
	case LocalDateTime:
		t = vv.V
	case LocalDateTimeNano:
		t = vv.V
	case ZonedDateTime:
		t = vv.V
	default:
		return "", fmt.Errorf("csv: not a temporal value: %w", errs.ErrUnsupported)
	}
	return t.Format(time.RFC3339Nano), nil
}

func setMemberStrings(s Set) []string {
	out := make([]string, 0, len(s.Elements))
	for _, e := range s.Elements {
		switch v := e.(type) {
		case Enum:
			out = append(out, v.V)
		case Text:
			out = append(out, v.V)
		case VarChar:
			out = append(out, v.V)
		default:
			out = append(out, fmt.Sprint(v))
		}
	}
	return out
}

func thingCSVRef(t Thing) (string, error) {
	idStr, err := csvField(Typed{Type: Type{Kind: t.ID.Kind()}, Value: t.ID})
	if err != nil {
		return "", err
	}
	return t.Table + ":" + idStr, nil
}

func jsonEncodeObject(o Object) (string, error) {
	m := make(map[string]json.RawMessage, len(o.Fields))
	for k, v := range o.Fields {
		raw, err := jsonEncodeValue(v)
		if err != nil {
			return "", err
		}
		m[k] = raw
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("csv: encode object: %w", err)
	}
	return string(b), nil
}

func jsonEncodeArray(a Array) (string, error) {
	raws := make([]json.RawMessage, 0, len(a.Elements))
	for _, e := range a.Elements {
		raw, err := jsonEncodeValue(e)
		if err != nil {
			return "", err
		}
		raws = append(raws, raw)
	}
	b, err := json.Marshal(raws)
	if err != nil {
		return "", fmt.Errorf("csv: encode array: %w", err)
	}
	return string(b), nil
}
