package uvalue

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/replicore/syncengine/internal/errs"
)

// mysqlBaseType mirrors smf's normalizeRawTypeBase (internal/core/raw_types.go):
// strip parenthesized width/precision and UNSIGNED/ZEROFILL modifiers, then
// uppercase. It is not imported directly because core is not on the
// replication engine's dependency graph; the normalization rule is the
// grounded part, not the package.
func mysqlBaseType(rawType string) (base string, width int, isUnsigned bool) {
	upper := strings.ToUpper(strings.TrimSpace(rawType))
	isUnsigned = strings.Contains(upper, "UNSIGNED")
	upper = strings.ReplaceAll(upper, "UNSIGNED", "")
	upper = strings.ReplaceAll(upper, "ZEROFILL", "")

	if i := strings.IndexByte(upper, '('); i >= 0 {
		if j := strings.IndexByte(upper[i:], ')'); j >= 0 {
			inner := upper[i+1 : i+j]
			if n, err := strconv.Atoi(strings.TrimSpace(inner)); err == nil {
				width = n
			}
			upper = upper[:i] + upper[i+j+1:]
		}
	}
	return strings.TrimSpace(upper), width, isUnsigned
}

// FromMySQL converts a single column's raw driver value into a Typed,
// given the column's declared MySQL raw type string (e.g. "varchar(255)",
// "tinyint(1)", "decimal(10,2)"). raw is whatever the go-sql-driver/mysql
// driver handed back for a *sql.Rows scan into an `any` destination:
// int64, float64, []byte, time.Time, or nil.
//
// TINYINT(1) is treated as Bool per spec §4.1's MySQL boolean convention;
// every other TINYINT width stays Int8.
func FromMySQL(rawType string, raw any) (Typed, error) {
	base, width, unsigned := mysqlBaseType(rawType)

	if raw == nil {
		return Typed{Type: Type{Kind: KindNull}, Value: Null{}}, nil
	}

	switch base {
	case "TINYINT", "BOOL", "BOOLEAN":
		if base == "BOOL" || base == "BOOLEAN" || width == 1 {
			b, err := mysqlBool(raw)
			if err != nil {
				return Typed{}, err
			}
			return Typed{Type: Type{Kind: KindBool}, Value: Bool{V: b}}, nil
		}
		n, err := mysqlInt(raw)
		if err != nil {
			return Typed{}, err
		}
		return Typed{Type: Type{Kind: KindInt8, Width: 8}, Value: Int8{V: int8(n), DeclaredWidth: 8}}, nil
	case "SMALLINT", "YEAR":
		n, err := mysqlInt(raw)
		if err != nil {
			return Typed{}, err
		}
		return Typed{Type: Type{Kind: KindInt16, Width: 16}, Value: Int16{V: int16(n), DeclaredWidth: 16}}, nil
	case "MEDIUMINT", "INT", "INTEGER":
		n, err := mysqlInt(raw)
		if err != nil {
			return Typed{}, err
		}
		if unsigned && base != "MEDIUMINT" {
			return Typed{Type: Type{Kind: KindInt64, Width: 64}, Value: Int64{V: n, DeclaredWidth: 32}}, nil
		}
		return Typed{Type: Type{Kind: KindInt32, Width: 32}, Value: Int32{V: int32(n), DeclaredWidth: 32}}, nil
	case "BIGINT":
		n, err := mysqlInt(raw)
		if err != nil {
			return Typed{}, err
		}
		return Typed{Type: Type{Kind: KindInt64, Width: 64}, Value: Int64{V: n, DeclaredWidth: 64}}, nil
	case "FLOAT":
		f, err := mysqlFloat(raw)
		if err != nil {
			return Typed{}, err
		}
		return Typed{Type: Type{Kind: KindFloat32}, Value: Float32{V: float32(f)}}, nil
	case "DOUBLE", "DOUBLE PRECISION":
		f, err := mysqlFloat(raw)
		if err != nil {
			return Typed{}, err
		}
		return Typed{Type: Type{Kind: KindFloat64}, Value: Float64{V: f}}, nil
	case "DECIMAL", "DEC", "NUMERIC", "FIXED":
		s, err := mysqlString(raw)
		if err != nil {
			return Typed{}, err
		}
		p, sc := decimalPrecisionScale(rawType)
		return Typed{Type: Type{Kind: KindDecimal, Precision: p, Scale: sc}, Value: Decimal{Digits: s, Precision: p, Scale: sc}}, nil
	case "CHAR":
		s, err := mysqlString(raw)
		if err != nil {
			return Typed{}, err
		}
		return Typed{Type: Type{Kind: KindChar, Length: width}, Value: Char{V: s, Length: width}}, nil
	case "VARCHAR":
		s, err := mysqlString(raw)
		if err != nil {
			return Typed{}, err
		}
		return Typed{Type: Type{Kind: KindVarChar, Length: width}, Value: VarChar{V: s, Length: width}}, nil
	case "TINYTEXT", "TEXT", "MEDIUMTEXT", "LONGTEXT":
		s, err := mysqlString(raw)
		if err != nil {
			return Typed{}, err
		}
		return Typed{Type: Type{Kind: KindText}, Value: Text{V: s}}, nil
	case "BINARY":
		b, err := mysqlBytes(raw)
		if err != nil {
			return Typed{}, err
		}
		return Typed{Type: Type{Kind: KindBytes}, Value: Bytes{V: b}}, nil
	case "VARBINARY", "TINYBLOB", "BLOB", "MEDIUMBLOB", "LONGBLOB":
		b, err := mysqlBytes(raw)
		if err != nil {
			return Typed{}, err
		}
		return Typed{Type: Type{Kind: KindBlob}, Value: Blob{V: b}}, nil
	case "DATE":
		t, err := mysqlTime(raw)
		if err != nil {
			return Typed{}, err
		}
		return Typed{Type: Type{Kind: KindDate}, Value: Date{V: t}}, nil
	case "TIME":
		t, err := mysqlTime(raw)
		if err != nil {
			return Typed{}, err
		}
		return Typed{Type: Type{Kind: KindTime}, Value: Time{V: t}}, nil
	case "DATETIME":
		t, err := mysqlTime(raw)
		if err != nil {
			return Typed{}, err
		}
		return Typed{Type: Type{Kind: KindLocalDateTime}, Value: LocalDateTime{V: t}}, nil
	case "TIMESTAMP":
		t, err := mysqlTime(raw)
		if err != nil {
			return Typed{}, err
		}
		return Typed{Type: Type{Kind: KindZonedDateTime}, Value: ZonedDateTime{V: t}}, nil
	case "JSON":
		b, err := mysqlBytes(raw)
		if err != nil {
			return Typed{}, err
		}
		return Typed{Type: Type{Kind: KindJSON}, Value: JSON{Payload: b}}, nil
	case "GEOMETRY", "POINT", "LINESTRING", "POLYGON", "MULTIPOINT", "MULTILINESTRING", "MULTIPOLYGON", "GEOMETRYCOLLECTION":
		b, err := mysqlBytes(raw)
		if err != nil {
			return Typed{}, err
		}
		gk := GeometryKind(base)
		if base == "GEOMETRYCOLLECTION" {
			gk = GeometryGeometryCollection
		}
		return Typed{Type: Type{Kind: KindGeometry, Geometry: gk}, Value: Geometry{GeoJSON: b, Kind_: gk}}, nil
	default:
		s, err := mysqlString(raw)
		if err != nil {
			return Typed{}, err
		}
		return Typed{Type: Type{Kind: KindText}, Value: Text{V: s}}, nil
	}
}

func decimalPrecisionScale(rawType string) (precision, scale int) {
	i := strings.IndexByte(rawType, '(')
	if i < 0 {
		return 0, 0
	}
	j := strings.IndexByte(rawType[i:], ')')
	if j < 0 {
		return 0, 0
	}
	parts := strings.Split(rawType[i+1:i+j], ",")
	if len(parts) >= 1 {
		precision, _ = strconv.Atoi(strings.TrimSpace(parts[0]))
	}
	if len(parts) >= 2 {
		scale, _ = strconv.Atoi(strings.TrimSpace(parts[1]))
	}
	return precision, scale
}

func mysqlBool(raw any) (bool, error) {
	switch v := raw.(type) {
	case bool:
		return v, nil
	case int64:
		return v != 0, nil
	case []byte:
		return len(v) == 1 && v[0] != 0, nil
	default:
		return false, fmt.Errorf("mysql: %T not convertible to bool: %w", raw, errs.ErrTypeMismatch)
	}
}

func mysqlInt(raw any) (int64, error) {
	switch v := raw.(type) {
	case int64:
		return v, nil
	case uint64:
		return int64(v), nil
	case []byte:
		n, err := strconv.ParseInt(string(v), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("mysql: %q not an integer: %w", v, errs.ErrTypeMismatch)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("mysql: %T not convertible to int: %w", raw, errs.ErrTypeMismatch)
	}
}

func mysqlFloat(raw any) (float64, error) {
	switch v := raw.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case []byte:
		f, err := strconv.ParseFloat(string(v), 64)
		if err != nil {
			return 0, fmt.Errorf("mysql: %q not a float: %w", v, errs.ErrTypeMismatch)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("mysql: %T not convertible to float: %w", raw, errs.ErrTypeMismatch)
	}
}

func mysqlString(raw any) (string, error) {
	switch v := raw.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	default:
		return fmt.Sprint(v), nil
	}
}

func mysqlBytes(raw any) ([]byte, error) {
	switch v := raw.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("mysql: %T not convertible to bytes: %w", raw, errs.ErrTypeMismatch)
	}
}

func mysqlTime(raw any) (time.Time, error) {
	switch v := raw.(type) {
	case time.Time:
		return v, nil
	case []byte:
		for _, layout := range []string{"2006-01-02 15:04:05", "2006-01-02", "15:04:05"} {
			if t, err := time.Parse(layout, string(v)); err == nil {
				return t, nil
			}
		}
		return time.Time{}, fmt.Errorf("mysql: %q not a recognized time layout: %w", v, errs.ErrTypeMismatch)
	default:
		return time.Time{}, fmt.Errorf("mysql: %T not convertible to time: %w", raw, errs.ErrTypeMismatch)
	}
}

// ToMySQL widens a Typed back into a driver-acceptable value for use as
// a query argument against go-sql-driver/mysql, per the sink-time
// widening rule noted on Int8/Int16/Int32/Int64 in value.go.
func ToMySQL(tv Typed) (any, error) {
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
		return v.V.Format("2006-01-02"), nil
	case Time:
		return v.V.Format("15:04:05"), nil
	case LocalDateTime:
		return v.V.Format("2006-01-02 15:04:05"), nil
	case LocalDateTimeNano:
		return v.V.Format("2006-01-02 15:04:05.999999999"), nil
	case ZonedDateTime:
		return v.V.Format("2006-01-02 15:04:05"), nil
	case UUID:
		return v.V.String(), nil
	case ULID:
		return v.V.String(), nil
	case JSON:
		return string(v.Payload), nil
	case JSONB:
		return string(v.Payload), nil
	case Enum:
		return v.V, nil
	case Duration:
		return EncodeDuration(v.V), nil
	default:
		return nil, fmt.Errorf("mysql: no sink encoding for kind %s: %w", tv.Value.Kind(), errs.ErrUnsupported)
	}
}
