package uvalue

import (
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"

	"github.com/replicore/syncengine/internal/errs"
)

// FromKafkaProto decodes a single protobuf-encoded Kafka message value
// against msgDesc's dynamic descriptor into a row of Typeds keyed by
// field name, per the wire format in spec §6.5. msgDesc comes from a
// compiled descriptor set loaded at run time (cmd/syncctl's
// loadMessageDescriptor); this package never imports a generated
// message type.
func FromKafkaProto(msgDesc protoreflect.MessageDescriptor, payload []byte) (map[string]Typed, error) {
	msg := dynamicpb.NewMessage(msgDesc)
	if err := proto.Unmarshal(payload, msg); err != nil {
		return nil, fmt.Errorf("kafka: decode protobuf: %w: %w", err, errs.ErrSourceIO)
	}

	out := make(map[string]Typed)
	fields := msgDesc.Fields()
	for i := 0; i < fields.Len(); i++ {
		fd := fields.Get(i)
		name := string(fd.Name())
		if !msg.Has(fd) {
			out[name] = Typed{Type: Type{Kind: KindNull}, Value: Null{}}
			continue
		}
		tv, err := fromProtoValue(fd, msg.Get(fd))
		if err != nil {
			return nil, fmt.Errorf("kafka: field %q: %w", name, err)
		}
		out[name] = tv
	}
	return out, nil
}

// fromProtoValue maps a single protoreflect.Value to a Typed according
// to its field descriptor's kind, handling the scalar kinds spec §6.5
// requires plus nested messages (recursed into Object) and repeated
// fields (recursed into Array).
func fromProtoValue(fd protoreflect.FieldDescriptor, v protoreflect.Value) (Typed, error) {
	if fd.IsList() {
		list := v.List()
		elements := make([]Value, 0, list.Len())
		for i := 0; i < list.Len(); i++ {
			tv, err := fromProtoScalar(fd, list.Get(i))
			if err != nil {
				return Typed{}, fmt.Errorf("element %d: %w", i, err)
			}
			elements = append(elements, tv.Value)
		}
		return Typed{Type: Type{Kind: KindArray}, Value: Array{Elements: elements}}, nil
	}
	return fromProtoScalar(fd, v)
}

func fromProtoScalar(fd protoreflect.FieldDescriptor, v protoreflect.Value) (Typed, error) {
	switch fd.Kind() {
	case protoreflect.BoolKind:
		return Typed{Type: Type{Kind: KindBool}, Value: Bool{V: v.Bool()}}, nil
	case protoreflect.Int32Kind, protoreflect.Sint32Kind, protoreflect.Sfixed32Kind:
		return Typed{Type: Type{Kind: KindInt32, Width: 32}, Value: Int32{V: int32(v.Int()), DeclaredWidth: 32}}, nil
	case protoreflect.Int64Kind, protoreflect.Sint64Kind, protoreflect.Sfixed64Kind:
		return Typed{Type: Type{Kind: KindInt64, Width: 64}, Value: Int64{V: v.Int(), DeclaredWidth: 64}}, nil
	case protoreflect.Uint32Kind, protoreflect.Fixed32Kind:
		return Typed{Type: Type{Kind: KindInt64, Width: 64}, Value: Int64{V: int64(v.Uint()), DeclaredWidth: 32}}, nil
	case protoreflect.Uint64Kind, protoreflect.Fixed64Kind:
		return Typed{Type: Type{Kind: KindInt64, Width: 64}, Value: Int64{V: int64(v.Uint()), DeclaredWidth: 64}}, nil
	case protoreflect.FloatKind:
		return Typed{Type: Type{Kind: KindFloat32}, Value: Float32{V: float32(v.Float())}}, nil
	case protoreflect.DoubleKind:
		return Typed{Type: Type{Kind: KindFloat64}, Value: Float64{V: v.Float()}}, nil
	case protoreflect.StringKind:
		return Typed{Type: Type{Kind: KindText}, Value: Text{V: v.String()}}, nil
	case protoreflect.BytesKind:
		return Typed{Type: Type{Kind: KindBytes}, Value: Bytes{V: v.Bytes()}}, nil
	case protoreflect.EnumKind:
		return Typed{Type: Type{Kind: KindEnum}, Value: Enum{V: string(fd.Enum().Values().ByNumber(v.Enum()).Name())}}, nil
	case protoreflect.MessageKind, protoreflect.GroupKind:
		return fromProtoMessage(v.Message())
	default:
		return Typed{}, fmt.Errorf("kafka: unsupported protobuf field kind %s: %w", fd.Kind(), errs.ErrUnsupported)
	}
}

func fromProtoMessage(m protoreflect.Message) (Typed, error) {
	fields := make(map[string]Value)
	var rangeErr error
	m.Range(func(fd protoreflect.FieldDescriptor, v protoreflect.Value) bool {
		tv, err := fromProtoValue(fd, v)
		if err != nil {
			rangeErr = fmt.Errorf("field %q: %w", fd.Name(), err)
			return false
		}
		fields[string(fd.Name())] = tv.Value
		return true
	})
	if rangeErr != nil {
		return Typed{}, rangeErr
	}
	return Typed{Type: Type{Kind: KindObject}, Value: Object{Fields: fields}}, nil
}
