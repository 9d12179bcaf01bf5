package sink

import (
	"context"
	"fmt"
	"strings"

	"github.com/surrealdb/surrealdb.go"

	"github.com/replicore/syncengine/internal/errs"
	"github.com/replicore/syncengine/internal/uvalue"
)

// SurrealWriter is the engine's one production Writer, backed by the
// official surrealdb.go SDK. Each Row becomes `UPSERT <table>:<id>
// CONTENT <fields>`; the record id is built from the row's primary-key
// columns so repeated delivery of the same row is always a no-op write,
// never a duplicate insert (spec §4.5). Every error the SurrealDB client
// returns is tagged errs.ErrSinkIO, which errs.Fatal treats as fatal, so
// WithRetry does not retry a failed query; no client error is classified
// as errs.ErrSinkConflict.
type SurrealWriter struct {
	DB *surrealdb.DB
}

func NewSurrealWriter(db *surrealdb.DB) *SurrealWriter {
	return &SurrealWriter{DB: db}
}

func (w *SurrealWriter) Upsert(ctx context.Context, rows []Row) error {
	for _, row := range rows {
		if err := WithRetry(ctx, func() error { return w.upsertOne(ctx, row) }); err != nil {
			return fmt.Errorf("sink: upsert %s: %w", row.Table, err)
		}
	}
	return nil
}

func (w *SurrealWriter) upsertOne(ctx context.Context, row Row) error {
	id, err := recordID(row.Table, row.Columns, row.Values, row.PrimaryKey)
	if err != nil {
		return err
	}

	content := make(map[string]any, len(row.Columns))
	for i, col := range row.Columns {
		conv, err := toSurreal(row.Values[i])
		if err != nil {
			return fmt.Errorf("column %q: %w", col, err)
		}
		content[col] = conv
	}

	query := fmt.Sprintf("UPSERT %s CONTENT $content", id)
	if _, err := surrealdb.Query[any](ctx, w.DB, query, map[string]any{"content": content}); err != nil {
		return fmt.Errorf("%w: %w", err, errs.ErrSinkIO)
	}
	return nil
}

func (w *SurrealWriter) Delete(ctx context.Context, table string, pk []uvalue.Typed) error {
	columns := make([]string, len(pk))
	for i := range pk {
		columns[i] = fmt.Sprintf("pk%d", i)
	}
	id, err := recordID(table, columns, pk, columns)
	if err != nil {
		return err
	}

	return WithRetry(ctx, func() error {
		query := fmt.Sprintf("DELETE %s", id)
		if _, err := surrealdb.Query[any](ctx, w.DB, query, nil); err != nil {
			return fmt.Errorf("sink: delete %s: %w: %w", id, err, errs.ErrSinkIO)
		}
		return nil
	})
}

func (w *SurrealWriter) Close(ctx context.Context) error {
	return w.DB.Close(ctx)
}

// recordID builds the "table:id" identifier SurrealDB uses to address a
// record, concatenating the primary-key column values in declared
// order. A single-column key is rendered bare; a composite key is
// joined with "_" so it stays a syntactically valid SurrealDB record id.
func recordID(table string, columns []string, values []uvalue.Typed, pk []string) (string, error) {
	index := make(map[string]int, len(columns))
	for i, c := range columns {
		index[c] = i
	}

	parts := make([]string, 0, len(pk))
	for _, col := range pk {
		i, ok := index[col]
		if !ok {
			return "", fmt.Errorf("sink: primary key column %q not present in row: %w", col, errs.ErrNoPrimaryKey)
		}
		s, err := idComponent(values[i])
		if err != nil {
			return "", err
		}
		parts = append(parts, s)
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("sink: empty primary key for table %q: %w", table, errs.ErrNoPrimaryKey)
	}
	return table + ":" + strings.Join(parts, "_"), nil
}

func idComponent(tv uvalue.Typed) (string, error) {
	switch v := tv.Value.(type) {
	case uvalue.Text:
		return v.V, nil
	case uvalue.VarChar:
		return v.V, nil
	case uvalue.Int32:
		return fmt.Sprintf("%d", v.V), nil
	case uvalue.Int64:
		return fmt.Sprintf("%d", v.V), nil
	case uvalue.UUID:
		return v.V.String(), nil
	case uvalue.Array:
		parts := make([]string, len(v.Elements))
		for i, e := range v.Elements {
			s, err := idComponent(uvalue.Typed{Value: e})
			if err != nil {
				return "", err
			}
			parts[i] = s
		}
		return strings.Join(parts, "_"), nil
	default:
		return "", fmt.Errorf("sink: unsupported primary key kind %s: %w", tv.Value.Kind(), errs.ErrUnsupported)
	}
}

func toSurreal(tv uvalue.Typed) (any, error) {
	switch v := tv.Value.(type) {
	case uvalue.Null:
		return nil, nil
	case uvalue.Bool:
		return v.V, nil
	case uvalue.Int8:
		return int64(v.V), nil
	case uvalue.Int16:
		return int64(v.V), nil
	case uvalue.Int32:
		return int64(v.V), nil
	case uvalue.Int64:
		return v.V, nil
	case uvalue.Float32:
		return float64(v.V), nil
	case uvalue.Float64:
		return v.V, nil
	case uvalue.Decimal:
		return v.Digits, nil
	case uvalue.Char:
		return v.V, nil
	case uvalue.VarChar:
		return v.V, nil
	case uvalue.Text:
		return v.V, nil
	case uvalue.Blob:
		return v.V, nil
	case uvalue.Bytes:
		return v.V, nil
	case uvalue.Date:
		return v.V, nil
	case uvalue.Time:
		return v.V, nil
	case uvalue.LocalDateTime:
		return v.V, nil
	case uvalue.LocalDateTimeNano:
		return v.V, nil
	case uvalue.ZonedDateTime:
		return v.V, nil
	case uvalue.UUID:
		return v.V.String(), nil
	case uvalue.ULID:
		return v.V.String(), nil
	case uvalue.JSON:
		return string(v.Payload), nil
	case uvalue.JSONB:
		return string(v.Payload), nil
	case uvalue.Enum:
		return v.V, nil
	case uvalue.Duration:
		return uvalue.EncodeDuration(v.V), nil
	case uvalue.Geometry:
		return string(v.GeoJSON), nil
	case uvalue.Thing:
		ref, err := idComponent(uvalue.Typed{Value: v.ID})
		if err != nil {
			return nil, err
		}
		return v.Table + ":" + ref, nil
	case uvalue.Array:
		out := make([]any, len(v.Elements))
		for i, e := range v.Elements {
			conv, err := toSurreal(uvalue.Typed{Value: e})
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			out[i] = conv
		}
		return out, nil
	case uvalue.Set:
		out := make([]any, len(v.Elements))
		for i, e := range v.Elements {
			conv, err := toSurreal(uvalue.Typed{Value: e})
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			out[i] = conv
		}
		return out, nil
	case uvalue.Object:
		out := make(map[string]any, len(v.Fields))
		for k, f := range v.Fields {
			conv, err := toSurreal(uvalue.Typed{Value: f})
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", k, err)
			}
			out[k] = conv
		}
		return out, nil
	default:
		return nil, fmt.Errorf("sink: no surreal encoding for kind %s: %w", tv.Value.Kind(), errs.ErrUnsupported)
	}
}
