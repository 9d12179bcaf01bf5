package schema

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/replicore/syncengine/internal/errs"
	"github.com/replicore/syncengine/internal/uvalue"
)

// tomlSchema is the top-level TOML document shape, modeled directly on
// smf's internal/parser/toml schemaFile: tables are a top-level key,
// not nested under a [database] section.
type tomlSchema struct {
	Tables []tomlTable `toml:"tables"`
}

type tomlTable struct {
	Name       string      `toml:"name"`
	PrimaryKey []string    `toml:"primary_key"`
	Fields     []tomlField `toml:"fields"`
}

type tomlField struct {
	Name       string   `toml:"name"`
	Kind       string   `toml:"kind"`
	Nullable   bool     `toml:"nullable"`
	Width      int      `toml:"width"`
	Precision  int      `toml:"precision"`
	Scale      int      `toml:"scale"`
	Length     int      `toml:"length"`
	Members    []string `toml:"members"`
	Geometry   string   `toml:"geometry"`
	ThingTable string   `toml:"thing_table"`
}

// Load reads and parses the schema document at path.
func Load(path string) (*Schema, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("schema: open %q: %w: %w", path, err, errs.ErrConfiguration)
	}
	defer f.Close()
	return Parse(f)
}

// Parse decodes a schema document from r.
func Parse(r io.Reader) (*Schema, error) {
	var doc tomlSchema
	if _, err := toml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("schema: decode: %w: %w", err, errs.ErrSchemaParse)
	}

	s := &Schema{Tables: make([]TableDefinition, 0, len(doc.Tables))}
	for _, tt := range doc.Tables {
		td, err := convertTable(tt)
		if err != nil {
			return nil, fmt.Errorf("schema: table %q: %w", tt.Name, err)
		}
		s.Tables = append(s.Tables, td)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	// A Thing field's id type is the referenced table's single-column key type.
	for i := range s.Tables {
		for j := range s.Tables[i].Fields {
			f := &s.Tables[i].Fields[j]
			if f.Type.Kind != uvalue.KindThing {
				continue
			}
			if ref, ok := s.Table(f.ThingTable); ok && len(ref.PrimaryKey) == 1 {
				if pk, err := ref.FieldType(ref.PrimaryKey[0]); err == nil && uvalue.ThingIDKinds[pk.Kind] {
					f.Type.Element = &uvalue.Type{Kind: pk.Kind}
				}
			}
		}
	}
	return s, nil
}

func convertTable(tt tomlTable) (TableDefinition, error) {
	td := TableDefinition{
		Name:       tt.Name,
		PrimaryKey: tt.PrimaryKey,
		Fields:     make([]FieldDefinition, 0, len(tt.Fields)),
	}
	for _, tf := range tt.Fields {
		fd, err := convertField(tf)
		if err != nil {
			return TableDefinition{}, fmt.Errorf("field %q: %w", tf.Name, err)
		}
		td.Fields = append(td.Fields, fd)
	}
	return td, nil
}

func convertField(tf tomlField) (FieldDefinition, error) {
	kind := uvalue.Kind(strings.ToLower(tf.Kind))
	fd := FieldDefinition{
		Name:       tf.Name,
		Nullable:   tf.Nullable,
		ThingTable: tf.ThingTable,
		Type: uvalue.Type{
			Kind:      kind,
			Width:     tf.Width,
			Precision: tf.Precision,
			Scale:     tf.Scale,
			Length:    tf.Length,
			Members:   tf.Members,
			Geometry:  uvalue.GeometryKind(tf.Geometry),
			Table:     tf.ThingTable,
		},
	}
	if !validKind(kind) {
		return FieldDefinition{}, fmt.Errorf("unknown field kind %q: %w", tf.Kind, errs.ErrSchemaParse)
	}
	if kind == uvalue.KindThing && tf.ThingTable == "" {
		return FieldDefinition{}, fmt.Errorf("thing field missing thing_table: %w", errs.ErrSchemaParse)
	}
	return fd, nil
}

func validKind(k uvalue.Kind) bool {
	switch k {
	case uvalue.KindNull, uvalue.KindBool, uvalue.KindInt8, uvalue.KindInt16, uvalue.KindInt32, uvalue.KindInt64,
		uvalue.KindFloat32, uvalue.KindFloat64, uvalue.KindDecimal, uvalue.KindChar, uvalue.KindVarChar,
		uvalue.KindText, uvalue.KindBlob, uvalue.KindBytes, uvalue.KindDate, uvalue.KindTime,
		uvalue.KindLocalDateTime, uvalue.KindLocalDateTimeNano, uvalue.KindZonedDateTime,
		uvalue.KindUUID, uvalue.KindULID, uvalue.KindJSON, uvalue.KindJSONB, uvalue.KindObject,
		uvalue.KindArray, uvalue.KindSet, uvalue.KindEnum, uvalue.KindGeometry, uvalue.KindDuration,
		uvalue.KindThing:
		return true
	default:
		return false
	}
}
