// Package schema implements the replication engine's schema registry
// (component C2): a closed, in-memory description of every table a
// source adapter may read from and a sink may write to, plus the
// declared universal Type every field carries.
//
// The shape mirrors smf's internal/core.Database/Table/Column, but
// trimmed to what a replication pipeline needs at runtime: no DDL
// generation, no constraint diffing, just name -> declared type lookup.
package schema

import (
	"fmt"

	"github.com/replicore/syncengine/internal/errs"
	"github.com/replicore/syncengine/internal/uvalue"
)

// FieldDefinition describes a single column/property across every
// backend a table is replicated through.
type FieldDefinition struct {
	Name     string
	Type     uvalue.Type
	Nullable bool
	// ThingTable names the table a field of Kind uvalue.KindThing
	// references; the loader requires it for every Thing field. A field of
	// another kind may also carry it, but is then not read as a reference.
	// The reference's id must be one of uvalue.ThingIDKinds (spec §3.1, §4.1).
	ThingTable string
}

// TableDefinition describes one replicated table: its fields, in
// declaration order, and which fields make up its primary key.
type TableDefinition struct {
	Name       string
	Fields     []FieldDefinition
	PrimaryKey []string

	byName map[string]int
}

// Field looks up a field by name. The second return is false if no such
// field is declared.
func (t *TableDefinition) Field(name string) (FieldDefinition, bool) {
	if t.byName == nil {
		t.indexFields()
	}
	i, ok := t.byName[name]
	if !ok {
		return FieldDefinition{}, false
	}
	return t.Fields[i], true
}

// FieldType is a convenience wrapper around Field that returns only the
// declared uvalue.Type, used by adapters that already know the field
// exists (e.g. iterating PrimaryKey).
func (t *TableDefinition) FieldType(name string) (uvalue.Type, error) {
	f, ok := t.Field(name)
	if !ok {
		return uvalue.Type{}, fmt.Errorf("schema: table %q has no field %q: %w", t.Name, name, errs.ErrSchemaParse)
	}
	return f.Type, nil
}

func (t *TableDefinition) indexFields() {
	t.byName = make(map[string]int, len(t.Fields))
	for i, f := range t.Fields {
		t.byName[f.Name] = i
	}
}

// Schema is the full set of tables known to a replication run.
type Schema struct {
	Tables []TableDefinition

	byName map[string]int
}

// Table looks up a table definition by name.
func (s *Schema) Table(name string) (*TableDefinition, bool) {
	if s.byName == nil {
		s.indexTables()
	}
	i, ok := s.byName[name]
	if !ok {
		return nil, false
	}
	return &s.Tables[i], true
}

func (s *Schema) indexTables() {
	s.byName = make(map[string]int, len(s.Tables))
	for i, t := range s.Tables {
		s.byName[t.Name] = i
	}
}

// Validate checks the structural invariants every Schema must satisfy
// before a replication run starts (spec §8): every table has at least
// one primary-key field, and every declared primary-key field name
// actually exists on the table (mirrors smf's
// Database.Validate/Column.Validate orchestration in internal/core).
func (s *Schema) Validate() error {
	for i := range s.Tables {
		t := &s.Tables[i]
		if len(t.PrimaryKey) == 0 {
			return fmt.Errorf("schema: table %q declares no primary key: %w", t.Name, errs.ErrNoPrimaryKey)
		}
		for _, pk := range t.PrimaryKey {
			if _, ok := t.Field(pk); !ok {
				return fmt.Errorf("schema: table %q primary key references unknown field %q: %w", t.Name, pk, errs.ErrSchemaParse)
			}
		}
	}
	return nil
}
