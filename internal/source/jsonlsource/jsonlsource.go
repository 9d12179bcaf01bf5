// Package jsonlsource implements the JSONL source adapter (spec
// §4.4.6 variant, §6.5's grammar): one JSON object per line, each
// object's fields converted according to the target table's declared
// schema. A field whose schema kind is Thing is expected to carry a
// bare scalar (the referenced id) rather than a "table:id" string; the
// table name comes from the schema's declared ThingTable, not the file.
package jsonlsource

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/replicore/syncengine/internal/errs"
	"github.com/replicore/syncengine/internal/schema"
	"github.com/replicore/syncengine/internal/source"
	"github.com/replicore/syncengine/internal/uvalue"
)

// RunFullSync reads newline-delimited JSON objects from r, one per
// line, converting each according to table's declared schema.
func RunFullSync(ctx context.Context, r io.Reader, table *source.Table, sink source.RowSink) (source.FullSyncResult, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var n int64
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var raw map[string]json.RawMessage
		if err := json.Unmarshal(line, &raw); err != nil {
			return source.FullSyncResult{}, errs.WithRow("full_sync", table.Name, n, fmt.Errorf("decode line: %w: %w", err, errs.ErrSourceIO))
		}

		columns := make([]string, 0, len(raw))
		values := make([]uvalue.Typed, 0, len(raw))
		for col, fieldRaw := range raw {
			fd, ok := table.Field(col)
			if !ok {
				return source.FullSyncResult{}, errs.WithRow("full_sync", table.Name, n, fmt.Errorf("column %q not declared in schema: %w", col, errs.ErrSchemaParse))
			}
			tv, err := convertField(fd, fieldRaw)
			if err != nil {
				return source.FullSyncResult{}, errs.WithRow("full_sync", table.Name, n, fmt.Errorf("column %q: %w", col, err))
			}
			columns = append(columns, col)
			values = append(values, tv)
		}

		if err := sink(ctx, source.Row{Table: table.Name, Columns: columns, Values: values}); err != nil {
			return source.FullSyncResult{}, fmt.Errorf("jsonlsource: sink record %d: %w", n, err)
		}
		n++
	}
	if err := scanner.Err(); err != nil {
		return source.FullSyncResult{}, fmt.Errorf("jsonlsource: scan: %w: %w", err, errs.ErrSourceIO)
	}

	return source.FullSyncResult{RowsRead: n}, nil
}

// convertField applies the JSONL conversion-rule grammar for a single
// field: most kinds decode straight through encoding/json against the
// declared Go shape, but Thing fields are the one rule requiring
// special handling, since raw JSON has no reference type of its own —
// the bare scalar in the document becomes the id half of a Thing whose
// table half comes from the schema's declared ThingTable (spec §6.5).
func convertField(fd schema.FieldDefinition, fieldRaw json.RawMessage) (uvalue.Typed, error) {
	if string(fieldRaw) == "null" {
		return uvalue.Typed{Type: uvalue.Type{Kind: uvalue.KindNull}, Value: uvalue.Null{}}, nil
	}

	if fd.Type.Kind == uvalue.KindThing {
		return convertThingField(fd, fieldRaw)
	}

	var text string
	if err := json.Unmarshal(fieldRaw, &text); err == nil {
		return uvalue.ParseText(fd.Type, text)
	}

	// Not a JSON string: numbers, bools, objects, and arrays are passed
	// through their natural JSON text form, which ParseText's numeric and
	// JSON-payload branches accept directly.
	return uvalue.ParseText(fd.Type, string(fieldRaw))
}

func convertThingField(fd schema.FieldDefinition, fieldRaw json.RawMessage) (uvalue.Typed, error) {
	idKind := uvalue.KindText
	if fd.Type.Element != nil {
		idKind = fd.Type.Element.Kind
	}

	var idText string
	if err := json.Unmarshal(fieldRaw, &idText); err != nil {
		idText = string(fieldRaw)
	}

	idTyped, err := uvalue.ParseText(uvalue.Type{Kind: idKind}, idText)
	if err != nil {
		return uvalue.Typed{}, fmt.Errorf("thing id: %w", err)
	}

	thing, err := uvalue.NewThing(fd.ThingTable, idTyped.Value)
	if err != nil {
		return uvalue.Typed{}, err
	}
	return uvalue.Typed{Type: fd.Type, Value: thing}, nil
}
