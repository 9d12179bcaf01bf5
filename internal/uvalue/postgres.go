package uvalue

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/replicore/syncengine/internal/errs"
)

func postgresBaseType(rawType string) (base string, width int) {
	upper := strings.ToUpper(strings.TrimSpace(rawType))
	if i := strings.IndexByte(upper, '('); i >= 0 {
		if j := strings.IndexByte(upper[i:], ')'); j >= 0 {
			inner := upper[i+1 : i+j]
			if n, err := strconv.Atoi(strings.TrimSpace(inner)); err == nil {
				width = n
			}
			upper = upper[:i] + upper[i+j+1:]
		}
	}
	return strings.TrimSpace(upper), width
}

// FromPostgres converts a value decoded by jackc/pgx/v5 (already a Go
// native type via pgx's default type map) into a Typed, given the
// column's declared Postgres type name.
//
// INTERVAL is the one documented lossy conversion (spec §9 open
// question): Postgres intervals carry independent months/days/micros
// components, but Duration is a flat time.Duration. This conversion
// approximates months as 30 days and days as 24h, which is exact for
// intervals expressed purely in smaller units and approximate for
// calendar-relative ones (e.g. "1 month" in a 31-day month). Round-tripping
// through Duration back to Postgres never reconstructs the original
// month/day decomposition.
func FromPostgres(rawType string, raw any) (Typed, error) {
	base, width := postgresBaseType(rawType)

	if raw == nil {
		return Typed{Type: Type{Kind: KindNull}, Value: Null{}}, nil
	}

	switch base {
	case "BOOLEAN", "BOOL":
		b, ok := raw.(bool)
		if !ok {
			return Typed{}, fmt.Errorf("postgres: %T not a bool: %w", raw, errs.ErrTypeMismatch)
		}
		return Typed{Type: Type{Kind: KindBool}, Value: Bool{V: b}}, nil
	case "SMALLINT", "INT2", "SMALLSERIAL", "SERIAL2":
		n, err := pgInt(raw)
		if err != nil {
			return Typed{}, err
		}
		return Typed{Type: Type{Kind: KindInt16, Width: 16}, Value: Int16{V: int16(n), DeclaredWidth: 16}}, nil
	case "INTEGER", "INT", "INT4", "SERIAL", "SERIAL4":
		n, err := pgInt(raw)
		if err != nil {
			return Typed{}, err
		}
		return Typed{Type: Type{Kind: KindInt32, Width: 32}, Value: Int32{V: int32(n), DeclaredWidth: 32}}, nil
	case "BIGINT", "INT8", "BIGSERIAL", "SERIAL8":
		n, err := pgInt(raw)
		if err != nil {
			return Typed{}, err
		}
		return Typed{Type: Type{Kind: KindInt64, Width: 64}, Value: Int64{V: n, DeclaredWidth: 64}}, nil
	case "REAL", "FLOAT4":
		f, err := pgFloat(raw)
		if err != nil {
			return Typed{}, err
		}
		return Typed{Type: Type{Kind: KindFloat32}, Value: Float32{V: float32(f)}}, nil
	case "DOUBLE PRECISION", "FLOAT8", "FLOAT":
		f, err := pgFloat(raw)
		if err != nil {
			return Typed{}, err
		}
		return Typed{Type: Type{Kind: KindFloat64}, Value: Float64{V: f}}, nil
	case "DECIMAL", "NUMERIC":
		s, err := pgString(raw)
		if err != nil {
			return Typed{}, err
		}
		p, sc := decimalPrecisionScale(rawType)
		return Typed{Type: Type{Kind: KindDecimal, Precision: p, Scale: sc}, Value: Decimal{Digits: s, Precision: p, Scale: sc}}, nil
	case "CHARACTER", "CHAR":
		s, err := pgString(raw)
		if err != nil {
			return Typed{}, err
		}
		return Typed{Type: Type{Kind: KindChar, Length: width}, Value: Char{V: s, Length: width}}, nil
	case "CHARACTER VARYING", "VARCHAR":
		s, err := pgString(raw)
		if err != nil {
			return Typed{}, err
		}
		return Typed{Type: Type{Kind: KindVarChar, Length: width}, Value: VarChar{V: s, Length: width}}, nil
	case "TEXT":
		s, err := pgString(raw)
		if err != nil {
			return Typed{}, err
		}
		return Typed{Type: Type{Kind: KindText}, Value: Text{V: s}}, nil
	case "BYTEA":
		b, ok := raw.([]byte)
		if !ok {
			return Typed{}, fmt.Errorf("postgres: %T not bytea: %w", raw, errs.ErrTypeMismatch)
		}
		return Typed{Type: Type{Kind: KindBlob}, Value: Blob{V: b}}, nil
	case "DATE":
		t, err := pgTime(raw)
		if err != nil {
			return Typed{}, err
		}
		return Typed{Type: Type{Kind: KindDate}, Value: Date{V: t}}, nil
	case "TIME", "TIME WITHOUT TIME ZONE":
		t, err := pgTime(raw)
		if err != nil {
			return Typed{}, err
		}
		return Typed{Type: Type{Kind: KindTime}, Value: Time{V: t}}, nil
	case "TIMESTAMP", "TIMESTAMP WITHOUT TIME ZONE":
		t, err := pgTime(raw)
		if err != nil {
			return Typed{}, err
		}
		return Typed{Type: Type{Kind: KindLocalDateTimeNano}, Value: LocalDateTimeNano{V: t}}, nil
	case "TIMESTAMPTZ", "TIMESTAMP WITH TIME ZONE":
		t, err := pgTime(raw)
		if err != nil {
			return Typed{}, err
		}
		return Typed{Type: Type{Kind: KindZonedDateTime}, Value: ZonedDateTime{V: t}}, nil
	case "INTERVAL":
		d, err := pgInterval(raw)
		if err != nil {
			return Typed{}, err
		}
		return Typed{Type: Type{Kind: KindDuration}, Value: Duration{V: d}}, nil
	case "UUID":
		s, err := pgString(raw)
		if err != nil {
			return Typed{}, err
		}
		u, err := parseUUIDString(s)
		if err != nil {
			return Typed{}, err
		}
		return Typed{Type: Type{Kind: KindUUID}, Value: UUID{V: u}}, nil
	case "JSON":
		b, err := pgJSONBytes(raw)
		if err != nil {
			return Typed{}, err
		}
		return Typed{Type: Type{Kind: KindJSON}, Value: JSON{Payload: b}}, nil
	case "JSONB":
		b, err := pgJSONBytes(raw)
		if err != nil {
			return Typed{}, err
		}
		return Typed{Type: Type{Kind: KindJSONB}, Value: JSONB{Payload: b}}, nil
	case "GEOMETRY", "GEOGRAPHY":
		b, err := pgJSONBytes(raw)
		if err != nil {
			return Typed{}, err
		}
		return Typed{Type: Type{Kind: KindGeometry}, Value: Geometry{GeoJSON: b}}, nil
	default:
		s, err := pgString(raw)
		if err != nil {
			return Typed{}, err
		}
		return Typed{Type: Type{Kind: KindText}, Value: Text{V: s}}, nil
	}
}

// pgIntervalComponents mirrors the fields of pgx's pgtype.Interval:
// Microseconds plus calendar-relative Days/Months. pgInterval accepts
// either pgx's own struct or this plain equivalent, so tests can build
// an interval without pgx.
type pgIntervalComponents struct {
	Microseconds int64
	Days         int32
	Months       int32
}

func pgInterval(raw any) (time.Duration, error) {
	switch v := raw.(type) {
	case time.Duration:
		return v, nil
	case pgtype.Interval:
		return pgInterval(pgIntervalComponents{Microseconds: v.Microseconds, Days: v.Days, Months: v.Months})
	case pgIntervalComponents:
		total := time.Duration(v.Microseconds) * time.Microsecond
		total += time.Duration(v.Days) * 24 * time.Hour
		total += time.Duration(v.Months) * 30 * 24 * time.Hour
		return total, nil
	default:
		return 0, fmt.Errorf("postgres: %T not an interval: %w", raw, errs.ErrTypeMismatch)
	}
}

func pgInt(raw any) (int64, error) {
	switch v := raw.(type) {
	case int64:
		return v, nil
	case int32:
		return int64(v), nil
	case int16:
		return int64(v), nil
	default:
		return 0, fmt.Errorf("postgres: %T not convertible to int: %w", raw, errs.ErrTypeMismatch)
	}
}

func pgFloat(raw any) (float64, error) {
	switch v := raw.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	default:
		return 0, fmt.Errorf("postgres: %T not convertible to float: %w", raw, errs.ErrTypeMismatch)
	}
}

func pgString(raw any) (string, error) {
	switch v := raw.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	default:
		return fmt.Sprint(v), nil
	}
}

func pgJSONBytes(raw any) ([]byte, error) {
	switch v := raw.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("postgres: %T not convertible to json bytes: %w", raw, errs.ErrTypeMismatch)
	}
}

func pgTime(raw any) (time.Time, error) {
	t, ok := raw.(time.Time)
	if !ok {
		return time.Time{}, fmt.Errorf("postgres: %T not a time: %w", raw, errs.ErrTypeMismatch)
	}
	return t, nil
}

// ToPostgres widens a Typed back into a value suitable as a jackc/pgx/v5
// query argument.
func ToPostgres(tv Typed) (any, error) {
	switch v := tv.Value.(type) {
	case Null:
		return nil, nil
	case Bool:
		return v.V, nil
	case Int8:
		return int16(v.V), nil
	case Int16:
		return v.V, nil
	case Int32:
		return v.V, nil
	case Int64:
		return v.V, nil
	case Float32:
		return v.V, nil
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
	case Date, Time, LocalDateTime, LocalDateTimeNano, ZonedDateTime:
		return pgTemporalArg(v)
	case Duration:
		return v.V, nil
	case UUID:
		return v.V, nil
	case JSON:
		return v.Payload, nil
	case JSONB:
		return v.Payload, nil
	case Enum:
		return v.V, nil
	default:
		return nil, fmt.Errorf("postgres: no sink encoding for kind %s: %w", tv.Value.Kind(), errs.ErrUnsupported)
	}
}

func pgTemporalArg(v Value) (any, error) {
	switch vv := v.(type) {
	case Date:
		return vv.V, nil
	case Time:
		return vv.V, nil
	case LocalDateTime:
		return vv.V, nil
	case LocalDateTimeNano:
		return vv.V, nil
	case ZonedDateTime:
		return vv.V, nil
	default:
		return nil, fmt.Errorf("postgres: not a temporal value: %w", errs.ErrUnsupported)
	}
}
