package uvalue

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/replicore/syncengine/internal/errs"
)

// FromMongo converts a single bson.RawValue (as produced by scanning a
// change-stream fullDocument field) into a Typed. Mongo documents are
// self-describing, so unlike the SQL adapters there is no declared raw
// type string to consult: the BSON type tag alone determines the Kind.
func FromMongo(rv bson.RawValue) (Typed, error) {
	switch rv.Type {
	case bson.TypeNull, bson.TypeUndefined:
		return Typed{Type: Type{Kind: KindNull}, Value: Null{}}, nil
	case bson.TypeBoolean:
		return Typed{Type: Type{Kind: KindBool}, Value: Bool{V: rv.Boolean()}}, nil
	case bson.TypeInt32:
		n := rv.Int32()
		return Typed{Type: Type{Kind: KindInt32, Width: 32}, Value: Int32{V: n, DeclaredWidth: 32}}, nil
	case bson.TypeInt64:
		n := rv.Int64()
		return Typed{Type: Type{Kind: KindInt64, Width: 64}, Value: Int64{V: n, DeclaredWidth: 64}}, nil
	case bson.TypeDouble:
		f := rv.Double()
		return Typed{Type: Type{Kind: KindFloat64}, Value: Float64{V: f}}, nil
	case bson.TypeDecimal128:
		d := rv.Decimal128()
		return Typed{Type: Type{Kind: KindDecimal}, Value: Decimal{Digits: d.String()}}, nil
	case bson.TypeString:
		return Typed{Type: Type{Kind: KindText}, Value: Text{V: rv.StringValue()}}, nil
	case bson.TypeBinary:
		_, data := rv.Binary()
		return Typed{Type: Type{Kind: KindBytes}, Value: Bytes{V: data}}, nil
	case bson.TypeDateTime:
		t := rv.Time()
		return Typed{Type: Type{Kind: KindZonedDateTime}, Value: ZonedDateTime{V: t}}, nil
	case bson.TypeTimestamp:
		sec, _ := rv.Timestamp()
		t := time.Unix(int64(sec), 0).UTC()
		return Typed{Type: Type{Kind: KindZonedDateTime}, Value: ZonedDateTime{V: t}}, nil
	case bson.TypeObjectID:
		oid := rv.ObjectID()
		return Typed{Type: Type{Kind: KindText}, Value: Text{V: oid.Hex()}}, nil
	case bson.TypeEmbeddedDocument:
		return fromMongoDocument(rv)
	case bson.TypeArray:
		return fromMongoArray(rv)
	default:
		return Typed{}, fmt.Errorf("mongo: unsupported bson type %s: %w", rv.Type, errs.ErrUnsupported)
	}
}

func fromMongoDocument(rv bson.RawValue) (Typed, error) {
	doc, ok := rv.DocumentOK()
	if !ok {
		return Typed{}, fmt.Errorf("mongo: not an embedded document: %w", errs.ErrTypeMismatch)
	}
	elems, err := doc.Elements()
	if err != nil {
		return Typed{}, fmt.Errorf("mongo: %w: %w", err, errs.ErrSourceIO)
	}
	fields := make(map[string]Value, len(elems))
	for _, e := range elems {
		key := e.Key()
		tv, err := FromMongo(e.Value())
		if err != nil {
			return Typed{}, fmt.Errorf("mongo: field %q: %w", key, err)
		}
		fields[key] = tv.Value
	}
	return Typed{Type: Type{Kind: KindObject}, Value: Object{Fields: fields}}, nil
}

func fromMongoArray(rv bson.RawValue) (Typed, error) {
	arr, ok := rv.ArrayOK()
	if !ok {
		return Typed{}, fmt.Errorf("mongo: not an array: %w", errs.ErrTypeMismatch)
	}
	vals, err := arr.Values()
	if err != nil {
		return Typed{}, fmt.Errorf("mongo: %w: %w", err, errs.ErrSourceIO)
	}
	elements := make([]Value, 0, len(vals))
	for i, v := range vals {
		tv, err := FromMongo(v)
		if err != nil {
			return Typed{}, fmt.Errorf("mongo: element %d: %w", i, err)
		}
		elements = append(elements, tv.Value)
	}
	return Typed{Type: Type{Kind: KindArray}, Value: Array{Elements: elements}}, nil
}

// ToMongo converts a Typed into a value the official Go driver's bson
// marshaler can encode directly into an UPSERT replacement document.
func ToMongo(tv Typed) (any, error) {
	switch v := tv.Value.(type) {
	case Null:
		return nil, nil
	case Bool:
		return v.V, nil
	case Int8:
		return int32(v.V), nil
	case Int16:
		return int32(v.V), nil
	case Int32:
		return v.V, nil
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
		return v.V, nil
	case Time:
		return v.V, nil
	case LocalDateTime:
		return v.V, nil
	case LocalDateTimeNano:
		return v.V, nil
	case ZonedDateTime:
		return v.V, nil
	case UUID:
		return v.V.String(), nil
	case JSON:
		return string(v.Payload), nil
	case JSONB:
		return string(v.Payload), nil
	case Enum:
		return v.V, nil
	case Duration:
		return EncodeDuration(v.V), nil
	case Object:
		m := make(map[string]any, len(v.Fields))
		for k, fv := range v.Fields {
			conv, err := ToMongo(Typed{Type: Type{Kind: fv.Kind()}, Value: fv})
			if err != nil {
				return nil, err
			}
			m[k] = conv
		}
		return m, nil
	case Array:
		out := make([]any, 0, len(v.Elements))
		for _, e := range v.Elements {
			conv, err := ToMongo(Typed{Type: Type{Kind: e.Kind()}, Value: e})
			if err != nil {
				return nil, err
			}
			out = append(out, conv)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("mongo: no sink encoding for kind %s: %w", tv.Value.Kind(), errs.ErrUnsupported)
	}
}
