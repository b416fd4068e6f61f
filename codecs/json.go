package codecs

import (
	"io"
	"reflect"

	"github.com/ugorji/go/codec"
	"golang.org/x/xerrors"
)

/*
JSONCodec is a stock explicit codec that serializes one concrete type as JSON.
It is intended for types whose payloads must stay human-readable; for compact
wire bytes prefer the registry's dynamic CBOR path.

The underlying handle is exposed through Handle() so callers can attach
interface extensions before the codec is registered, mirroring how content
engines customize their JSON handling.
*/
type JSONCodec struct {
	valueType       reflect.Type
	additionalTypes []reflect.Type
	jsonHandle      *codec.JsonHandle
}

// NewJSONCodec returns a JSON codec for the type of prototype. Additional
// prototypes route further types to the same codec.
func NewJSONCodec(prototype interface{}, additional ...interface{}) *JSONCodec {
	additionalTypes := make([]reflect.Type, 0, len(additional))
	for _, value := range additional {
		additionalTypes = append(additionalTypes, reflect.TypeOf(value))
	}

	return &JSONCodec{
		valueType:       reflect.TypeOf(prototype),
		additionalTypes: additionalTypes,
		jsonHandle:      &codec.JsonHandle{},
	}
}

// Handle returns the codec's JSON handle for extension registration.
func (jsonCodec *JSONCodec) Handle() *codec.JsonHandle {
	return jsonCodec.jsonHandle
}

func (jsonCodec *JSONCodec) EncodedType() reflect.Type {
	return jsonCodec.valueType
}

func (jsonCodec *JSONCodec) AdditionalEncodedTypes() []reflect.Type {
	return jsonCodec.additionalTypes
}

func (jsonCodec *JSONCodec) Encode(
	engine Engine, writer io.Writer, value interface{},
) error {
	encoder := codec.NewEncoder(writer, jsonCodec.jsonHandle)
	if err := encoder.Encode(value); err != nil {
		return xerrors.Errorf("json encode err: %w", err)
	}
	return nil
}

func (jsonCodec *JSONCodec) Decode(
	engine Engine, reader io.Reader,
) (interface{}, error) {
	receiver := reflect.New(typeNormalized(jsonCodec.valueType))

	decoder := codec.NewDecoder(reader, jsonCodec.jsonHandle)
	if err := decoder.Decode(receiver.Interface()); err != nil {
		return nil, xerrors.Errorf("json decode err: %w", err)
	}
	return receiver.Elem().Interface(), nil
}

// typeNormalized collapses pointer types onto their element so decode targets
// are always addressable values of the concrete type.
func typeNormalized(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t
}
