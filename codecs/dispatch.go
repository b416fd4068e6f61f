package codecs

import (
	"reflect"

	"golang.org/x/xerrors"
	"google.golang.org/protobuf/proto"
)

// protoMessageType is the proto.Message interface type, used to recognize
// generated message types during dynamic dispatch.
var protoMessageType = reflect.TypeOf((*proto.Message)(nil)).Elem()

/*
ForType constructs a codec for a type known only by name at registry build
time. Selection runs in a fixed order:

• named types with an integer underlying kind get an enum codec,

• proto.Message implementations get a deterministic protobuf message codec,

• everything else gets a generic reflective codec.

Returns an error for types no arm can serve (unnamed types, func kinds, and
channel kinds). Callers are expected to memoize both the codec and the
failure.
*/
func ForType(t reflect.Type) (Codec, error) {
	if t == nil {
		return nil, xerrors.New("codecs: cannot build codec for nil type")
	}
	if isEnumShape(t) {
		return NewEnumCodec(t), nil
	}
	if t.Implements(protoMessageType) || reflect.PtrTo(t).Implements(protoMessageType) {
		return NewMessageCodec(t)
	}
	switch t.Kind() {
	case reflect.Func:
		return nil, xerrors.Errorf(
			"codecs: func type %s has no dynamic codec; declare a named func "+
				"type implementing codecs.SerializableFunc", t,
		)
	case reflect.Chan:
		return nil, xerrors.Errorf("codecs: channel type %s is not serializable", t)
	}
	return NewDynamicCodec(t)
}

// isEnumShape reports whether t is the Go analog of an enumerated type: a
// package-level named type whose underlying kind is integral.
func isEnumShape(t reflect.Type) bool {
	if t.PkgPath() == "" || t.Name() == "" {
		return false
	}
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}
