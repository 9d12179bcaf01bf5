package uvalue

import (
	"fmt"
)

// Dialect identifies the SQL-family backend a DDL string targets.
// Closed enum, same shape as smf's core.Dialect, but only the dialects
// this engine's trigger-based source adapters actually create audit
// tables against are represented.
type Dialect string

const (
	DialectMySQL      Dialect = "mysql"
	DialectMariaDB    Dialect = "mariadb"
	DialectPostgreSQL Dialect = "postgresql"
)

// DDL renders t as the column-type keyword a CREATE TABLE statement for
// dialect would use. It is a pure function: no registry, no package
// state, callable directly by any adapter that needs to stand up an
// audit or checkpoint table (spec §9's closed-dispatch redesign flag
// rules out smf's RegisterDialect/GetDialect mutable-registry shape for
// this purpose).
func DDL(t Type, dialect Dialect) (string, error) {
	switch dialect {
	case DialectMySQL, DialectMariaDB:
		return mysqlDDL(t)
	case DialectPostgreSQL:
		return postgresDDL(t)
	default:
		return "", fmt.Errorf("ddl: unsupported dialect %q", dialect)
	}
}

func mysqlDDL(t Type) (string, error) {
	switch t.Kind {
	case KindBool:
		return "TINYINT(1)", nil
	case KindInt8:
		return "TINYINT", nil
	case KindInt16:
		return "SMALLINT", nil
	case KindInt32:
		return "INT", nil
	case KindInt64:
		return "BIGINT", nil
	case KindFloat32:
		return "FLOAT", nil
	case KindFloat64:
		return "DOUBLE", nil
	case KindDecimal:
		return fmt.Sprintf("DECIMAL(%d,%d)", nonZero(t.Precision, 65), t.Scale), nil
	case KindChar:
		return fmt.Sprintf("CHAR(%d)", nonZero(t.Length, 1)), nil
	case KindVarChar:
		return fmt.Sprintf("VARCHAR(%d)", nonZero(t.Length, 255)), nil
	case KindText:
		return "LONGTEXT", nil
	case KindBlob:
		return "LONGBLOB", nil
	case KindBytes:
		return "VARBINARY(255)", nil
	case KindDate:
		return "DATE", nil
	case KindTime:
		return "TIME", nil
	case KindLocalDateTime, KindLocalDateTimeNano:
		return "DATETIME(6)", nil
	case KindZonedDateTime:
		return "TIMESTAMP(6)", nil
	case KindUUID, KindULID:
		return "CHAR(36)", nil
	case KindJSON, KindJSONB:
		return "JSON", nil
	case KindObject, KindArray:
		return "JSON", nil
	case KindSet:
		return "JSON", nil
	case KindEnum:
		return enumDDL(t.Members)
	case KindGeometry:
		return string(t.Geometry), nil
	case KindDuration:
		return "VARCHAR(40)", nil
	case KindThing:
		return "VARCHAR(255)", nil
	default:
		return "", fmt.Errorf("ddl: mysql has no mapping for kind %s", t.Kind)
	}
}

func postgresDDL(t Type) (string, error) {
	switch t.Kind {
	case KindBool:
		return "BOOLEAN", nil
	case KindInt8, KindInt16:
		return "SMALLINT", nil
	case KindInt32:
		return "INTEGER", nil
	case KindInt64:
		return "BIGINT", nil
	case KindFloat32:
		return "REAL", nil
	case KindFloat64:
		return "DOUBLE PRECISION", nil
	case KindDecimal:
		return fmt.Sprintf("NUMERIC(%d,%d)", nonZero(t.Precision, 38), t.Scale), nil
	case KindChar:
		return fmt.Sprintf("CHAR(%d)", nonZero(t.Length, 1)), nil
	case KindVarChar:
		return fmt.Sprintf("VARCHAR(%d)", nonZero(t.Length, 255)), nil
	case KindText:
		return "TEXT", nil
	case KindBlob, KindBytes:
		return "BYTEA", nil
	case KindDate:
		return "DATE", nil
	case KindTime:
		return "TIME", nil
	case KindLocalDateTime, KindLocalDateTimeNano:
		return "TIMESTAMP", nil
	case KindZonedDateTime:
		return "TIMESTAMPTZ", nil
	case KindUUID, KindULID:
		return "UUID", nil
	case KindJSON:
		return "JSON", nil
	case KindJSONB:
		return "JSONB", nil
	case KindObject, KindArray, KindSet:
		return "JSONB", nil
	case KindEnum:
		return enumDDL(t.Members)
	case KindGeometry:
		return "GEOMETRY", nil
	case KindDuration:
		return "INTERVAL", nil
	case KindThing:
		return "VARCHAR(255)", nil
	default:
		return "", fmt.Errorf("ddl: postgres has no mapping for kind %s", t.Kind)
	}
}

// enumDDL renders an inline CHECK-constrained VARCHAR for dialects
// without a first-class enum keyword in this context (audit tables,
// unlike user schemas, never need CREATE TYPE). Quoting follows the
// same single-quote doubling smf's core.BuildEnumTypeRaw uses for SQL
// string literals.
func enumDDL(members []string) (string, error) {
	quoted := make([]string, len(members))
	for i, m := range members {
		quoted[i] = "'" + escapeSingleQuotes(m) + "'"
	}
	return "VARCHAR(255) CHECK (value IN (" + join(quoted, ",") + "))", nil
}

func escapeSingleQuotes(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\'' {
			out = append(out, '\'', '\'')
			continue
		}
		out = append(out, s[i])
	}
	return string(out)
}

func join(parts []string, sep string) string {
	if len(parts) == 0 {
		return ""
	}
	out := parts[0]
	for _, p := range parts[1:] {
		out += sep + p
	}
	return out
}

func nonZero(v, fallback int) int {
	if v == 0 {
		return fallback
	}
	return v
}
