// Package pgtrigger implements the PostgreSQL trigger-based source
// adapter (spec §4.4.2): the same audit-log idiom as mysqltrigger, built
// on jackc/pgx/v5 instead of database/sql.
package pgtrigger

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/replicore/syncengine/internal/checkpoint"
	"github.com/replicore/syncengine/internal/errs"
	"github.com/replicore/syncengine/internal/source"
	"github.com/replicore/syncengine/internal/uvalue"
)

// pkSep joins a composite primary key's column values into the audit
// log's single row_pk text column, mirroring mysqltrigger's convention.
const pkSep = "\x1f"

func auditTableName(table string) string { return "_replication_audit_" + table }

// InstallAuditInfrastructure creates the audit table, a trigger
// function, and the AFTER INSERT/UPDATE/DELETE trigger for table. Every
// statement is idempotent: CREATE TABLE IF NOT EXISTS and CREATE OR
// REPLACE FUNCTION, then a DROP TRIGGER IF EXISTS before the CREATE
// TRIGGER, so re-running this against an already-instrumented table is
// a no-op. primaryKey lists the table's key columns in ordinal order
// (spec §4.4: a composite key's row identity is those columns in that
// order).
func InstallAuditInfrastructure(ctx context.Context, pool *pgxpool.Pool, table string, primaryKey []string) error {
	audit := auditTableName(table)

	createAudit := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		audit_id BIGSERIAL PRIMARY KEY,
		op VARCHAR(8) NOT NULL,
		row_pk TEXT NOT NULL,
		captured_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`, audit)
	if _, err := pool.Exec(ctx, createAudit); err != nil {
		return fmt.Errorf("pgtrigger: create audit table %q: %w: %w", audit, err, errs.ErrSourceIO)
	}

	fn := "_replication_fn_" + table
	createFn := fmt.Sprintf(`CREATE OR REPLACE FUNCTION %s() RETURNS trigger AS $$
	BEGIN
		IF (TG_OP = 'DELETE') THEN
			INSERT INTO %s (op, row_pk) VALUES (TG_OP, %s);
		ELSE
			INSERT INTO %s (op, row_pk) VALUES (TG_OP, %s);
		END IF;
		RETURN NULL;
	END;
	$$ LANGUAGE plpgsql`, fn, audit, triggerRowPKExpr("OLD", primaryKey), audit, triggerRowPKExpr("NEW", primaryKey))
	if _, err := pool.Exec(ctx, createFn); err != nil {
		return fmt.Errorf("pgtrigger: create trigger function %q: %w: %w", fn, err, errs.ErrSourceIO)
	}

	trigger := "_replication_trg_" + table
	drop := fmt.Sprintf("DROP TRIGGER IF EXISTS %s ON %s", trigger, table)
	if _, err := pool.Exec(ctx, drop); err != nil {
		return fmt.Errorf("pgtrigger: drop trigger %q: %w: %w", trigger, err, errs.ErrSourceIO)
	}
	create := fmt.Sprintf("CREATE TRIGGER %s AFTER INSERT OR UPDATE OR DELETE ON %s FOR EACH ROW EXECUTE FUNCTION %s()", trigger, table, fn)
	if _, err := pool.Exec(ctx, create); err != nil {
		return fmt.Errorf("pgtrigger: create trigger %q: %w: %w", trigger, err, errs.ErrSourceIO)
	}
	return nil
}

// triggerRowPKExpr builds the plpgsql expression a trigger function uses
// to capture a row's identity under record variable rec ("OLD"/"NEW"):
// the bare referenced column, cast to text, for a single-column key, or
// a concat_ws of every key column (in ordinal order) for a composite one.
func triggerRowPKExpr(rec string, primaryKey []string) string {
	if len(primaryKey) == 1 {
		return fmt.Sprintf("%s.%s::text", rec, primaryKey[0])
	}
	refs := make([]string, len(primaryKey))
	for i, col := range primaryKey {
		refs[i] = fmt.Sprintf("%s.%s::text", rec, col)
	}
	return fmt.Sprintf("concat_ws('%s', %s)", pkSep, strings.Join(refs, ", "))
}

// RunFullSync reads every row of table in primary-key order, batchSize
// at a time. A single-column key pages by keyset; a composite key pages
// by OFFSET instead (see mysqltrigger.RunFullSync's doc comment for why).
func RunFullSync(ctx context.Context, pool *pgxpool.Pool, table *source.Table, rawTypes map[string]string, batchSize int, sink source.RowSink) (source.FullSyncResult, error) {
	if len(table.PrimaryKey) == 0 {
		return source.FullSyncResult{}, fmt.Errorf("pgtrigger: table %q has no primary key: %w", table.Name, errs.ErrNoPrimaryKey)
	}
	columns := columnNames(table)
	orderBy := strings.Join(table.PrimaryKey, ", ")

	var total int64
	if len(table.PrimaryKey) == 1 {
		pk := table.PrimaryKey[0]
		var lastPK any
		for {
			query := fmt.Sprintf("SELECT %s FROM %s ORDER BY %s LIMIT $1", columnList(columns), table.Name, pk)
			args := []any{batchSize}
			if lastPK != nil {
				query = fmt.Sprintf("SELECT %s FROM %s WHERE %s > $1 ORDER BY %s LIMIT $2", columnList(columns), table.Name, pk, pk)
				args = []any{lastPK, batchSize}
			}
			rows, err := pool.Query(ctx, query, args...)
			if err != nil {
				return source.FullSyncResult{}, fmt.Errorf("pgtrigger: query %q: %w: %w", table.Name, err, errs.ErrSourceIO)
			}
			n, newLastPK, err := scanAndEmit(ctx, rows, columns, rawTypes, table.Name, pk, sink)
			if err != nil {
				return source.FullSyncResult{}, err
			}
			total += int64(n)
			if n < batchSize {
				break
			}
			lastPK = newLastPK
		}
	} else {
		offset := 0
		for {
			query := fmt.Sprintf("SELECT %s FROM %s ORDER BY %s LIMIT $1 OFFSET $2", columnList(columns), table.Name, orderBy)
			rows, err := pool.Query(ctx, query, batchSize, offset)
			if err != nil {
				return source.FullSyncResult{}, fmt.Errorf("pgtrigger: query %q: %w: %w", table.Name, err, errs.ErrSourceIO)
			}
			n, _, err := scanAndEmit(ctx, rows, columns, rawTypes, table.Name, "", sink)
			if err != nil {
				return source.FullSyncResult{}, err
			}
			total += int64(n)
			if n < batchSize {
				break
			}
			offset += n
		}
	}

	return source.FullSyncResult{RowsRead: total, EndCheckpoint: checkpoint.PostgresCheckpoint{AuditID: 0}}, nil
}

type pgxRows interface {
	Next() bool
	Values() ([]any, error)
	Err() error
	Close()
}

// scanAndEmit emits every row in rows. pk names the single-column
// keyset column to track for the caller's next page, or "" when the
// caller pages by OFFSET instead (composite keys).
func scanAndEmit(ctx context.Context, rows pgxRows, columns []string, rawTypes map[string]string, table, pk string, sink source.RowSink) (int, any, error) {
	defer rows.Close()

	var n int
	var lastPK any
	for rows.Next() {
		raw, err := rows.Values()
		if err != nil {
			return n, lastPK, fmt.Errorf("pgtrigger: scan row %d of %q: %w: %w", n, table, err, errs.ErrSourceIO)
		}

		values := make([]uvalue.Typed, len(columns))
		for i, col := range columns {
			tv, err := uvalue.FromPostgres(rawTypes[col], raw[i])
			if err != nil {
				return n, lastPK, errs.WithRow("full_sync", table, int64(n), fmt.Errorf("column %q: %w", col, err))
			}
			values[i] = tv
			if pk != "" && col == pk {
				lastPK = raw[i]
			}
		}

		if err := sink(ctx, source.Row{Table: table, Columns: columns, Values: values}); err != nil {
			return n, lastPK, fmt.Errorf("pgtrigger: sink row %d of %q: %w", n, table, err)
		}
		n++
	}
	if err := rows.Err(); err != nil {
		return n, lastPK, fmt.Errorf("pgtrigger: iterate %q: %w: %w", table, err, errs.ErrSourceIO)
	}
	return n, lastPK, nil
}

// RunIncrementalSync reads audit log entries since from.AuditID and
// re-reads the current row state for each Create/Update entry; a
// Delete entry is forwarded to sink as an OpDelete row instead of being
// skipped (spec §4.4.1: a dropped delete is worse than stopping).
func RunIncrementalSync(ctx context.Context, pool *pgxpool.Pool, table *source.Table, rawTypes map[string]string, from checkpoint.PostgresCheckpoint, batchSize int, sink source.RowSink) (source.IncrementalSyncResult, error) {
	audit := auditTableName(table.Name)
	pk := table.PrimaryKey
	columns := columnNames(table)

	query := fmt.Sprintf("SELECT audit_id, op, row_pk FROM %s WHERE audit_id > $1 ORDER BY audit_id LIMIT $2", audit)
	auditRows, err := pool.Query(ctx, query, from.AuditID, batchSize)
	if err != nil {
		return source.IncrementalSyncResult{}, fmt.Errorf("pgtrigger: query audit %q: %w: %w", audit, err, errs.ErrSourceIO)
	}
	defer auditRows.Close()

	lastAuditID := from.AuditID
	var n int64
	for auditRows.Next() {
		var auditID int64
		var op, rowPK string
		if err := auditRows.Scan(&auditID, &op, &rowPK); err != nil {
			return source.IncrementalSyncResult{}, fmt.Errorf("pgtrigger: scan audit row: %w: %w", err, errs.ErrSourceIO)
		}
		lastAuditID = auditID

		pkValues := strings.Split(rowPK, pkSep)
		if len(pkValues) != len(pk) {
			return source.IncrementalSyncResult{}, fmt.Errorf("pgtrigger: audit row_pk %q has %d component(s), table %q has %d key column(s): %w", rowPK, len(pkValues), table.Name, len(pk), errs.ErrCheckpointCorrupted)
		}

		if op == "DELETE" {
			values := make([]uvalue.Typed, len(pk))
			for i, col := range pk {
				tv, err := pkComponentFromText(rawTypes[col], pkValues[i])
				if err != nil {
					return source.IncrementalSyncResult{}, fmt.Errorf("pgtrigger: decode deleted key column %q: %w", col, err)
				}
				values[i] = tv
			}
			if err := sink(ctx, source.Row{Table: table.Name, Columns: pk, Values: values, Op: source.OpDelete}); err != nil {
				return source.IncrementalSyncResult{}, fmt.Errorf("pgtrigger: sink delete for row %q: %w", rowPK, err)
			}
			n++
			continue
		}

		where := make([]string, len(pk))
		args := make([]any, len(pk))
		for i, col := range pk {
			where[i] = fmt.Sprintf("%s::text = $%d", col, i+1)
			args[i] = pkValues[i]
		}
		rowQuery := fmt.Sprintf("SELECT %s FROM %s WHERE %s", columnList(columns), table.Name, strings.Join(where, " AND "))
		rows, err := pool.Query(ctx, rowQuery, args...)
		if err != nil {
			return source.IncrementalSyncResult{}, fmt.Errorf("pgtrigger: re-read row %q: %w: %w", rowPK, err, errs.ErrSourceIO)
		}
		if _, _, err := scanAndEmit(ctx, rows, columns, rawTypes, table.Name, "", sink); err != nil {
			return source.IncrementalSyncResult{}, err
		}
		n++
	}
	if err := auditRows.Err(); err != nil {
		return source.IncrementalSyncResult{}, fmt.Errorf("pgtrigger: iterate audit %q: %w: %w", audit, err, errs.ErrSourceIO)
	}

	return source.IncrementalSyncResult{
		RowsRead:       n,
		NextCheckpoint: checkpoint.PostgresCheckpoint{AuditID: lastAuditID},
		Done:           n < int64(batchSize),
	}, nil
}

func columnNames(table *source.Table) []string {
	columns := make([]string, len(table.Fields))
	for i, f := range table.Fields {
		columns[i] = f.Name
	}
	return columns
}

func columnList(columns []string) string {
	out := columns[0]
	for _, c := range columns[1:] {
		out += ", " + c
	}
	return out
}

// pkComponentFromText converts one audit-log row_pk component, always
// captured as ::text by the trigger function, back into a Typed value
// using rawType's declared base. Unlike a full column re-read this
// never sees the live pgx driver value, so it can't go through
// uvalue.FromPostgres directly; it covers exactly the column kinds a
// primary key plausibly is.
func pkComponentFromText(rawType, s string) (uvalue.Typed, error) {
	base := strings.ToUpper(strings.TrimSpace(rawType))
	if i := strings.IndexByte(base, '('); i >= 0 {
		base = strings.TrimSpace(base[:i])
	}

	switch base {
	case "SMALLINT", "INT2", "SMALLSERIAL", "SERIAL2":
		n, err := strconv.ParseInt(s, 10, 16)
		if err != nil {
			return uvalue.Typed{}, fmt.Errorf("pgtrigger: %q not a smallint: %w: %w", s, err, errs.ErrTypeMismatch)
		}
		return uvalue.Typed{Type: uvalue.Type{Kind: uvalue.KindInt16, Width: 16}, Value: uvalue.Int16{V: int16(n), DeclaredWidth: 16}}, nil
	case "INTEGER", "INT", "INT4", "SERIAL", "SERIAL4":
		n, err := strconv.ParseInt(s, 10, 32)
		if err != nil {
			return uvalue.Typed{}, fmt.Errorf("pgtrigger: %q not an integer: %w: %w", s, err, errs.ErrTypeMismatch)
		}
		return uvalue.Typed{Type: uvalue.Type{Kind: uvalue.KindInt32, Width: 32}, Value: uvalue.Int32{V: int32(n), DeclaredWidth: 32}}, nil
	case "BIGINT", "INT8", "BIGSERIAL", "SERIAL8":
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return uvalue.Typed{}, fmt.Errorf("pgtrigger: %q not a bigint: %w: %w", s, err, errs.ErrTypeMismatch)
		}
		return uvalue.Typed{Type: uvalue.Type{Kind: uvalue.KindInt64, Width: 64}, Value: uvalue.Int64{V: n, DeclaredWidth: 64}}, nil
	case "UUID":
		id, err := uuid.Parse(s)
		if err != nil {
			return uvalue.Typed{}, fmt.Errorf("pgtrigger: %q not a uuid: %w: %w", s, err, errs.ErrTypeMismatch)
		}
		return uvalue.Typed{Type: uvalue.Type{Kind: uvalue.KindUUID}, Value: uvalue.UUID{V: id}}, nil
	default:
		return uvalue.Typed{Type: uvalue.Type{Kind: uvalue.KindText}, Value: uvalue.Text{V: s}}, nil
	}
}
