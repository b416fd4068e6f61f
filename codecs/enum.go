package codecs

import (
	"io"
	"reflect"

	"golang.org/x/xerrors"
	"google.golang.org/protobuf/encoding/protowire"
)

/*
EnumCodec serializes values of a single named integer type as a zig-zag varint
ordinal. It covers exactly its declaring type: two distinct named types with
identical underlying kinds never share an enum codec, since their ordinals are
not interchangeable.
*/
type EnumCodec struct {
	enumType reflect.Type
}

// NewEnumCodec returns a codec for the named integer type t. ForType is the
// usual entry point; construct directly only for explicit registration.
func NewEnumCodec(t reflect.Type) *EnumCodec {
	return &EnumCodec{enumType: t}
}

func (codec *EnumCodec) EncodedType() reflect.Type {
	return codec.enumType
}

func (codec *EnumCodec) AdditionalEncodedTypes() []reflect.Type {
	return nil
}

func (codec *EnumCodec) Encode(
	engine Engine, writer io.Writer, value interface{},
) error {
	enumValue := reflect.Indirect(reflect.ValueOf(value))
	if enumValue.Type() != codec.enumType {
		return xerrors.Errorf(
			"enum codec for %s cannot encode %s", codec.enumType, enumValue.Type(),
		)
	}

	var ordinal int64
	switch enumValue.Kind() {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		ordinal = int64(enumValue.Uint())
	default:
		ordinal = enumValue.Int()
	}

	_, err := writer.Write(protowire.AppendVarint(nil, protowire.EncodeZigZag(ordinal)))
	return err
}

func (codec *EnumCodec) Decode(
	engine Engine, reader io.Reader,
) (interface{}, error) {
	raw, err := io.ReadAll(reader)
	if err != nil {
		return nil, xerrors.Errorf("error reading enum ordinal: %w", err)
	}

	wire, n := protowire.ConsumeVarint(raw)
	if n < 0 {
		return nil, xerrors.New("malformed enum ordinal varint")
	}
	ordinal := protowire.DecodeZigZag(wire)

	enumValue := reflect.New(codec.enumType).Elem()
	switch enumValue.Kind() {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		enumValue.SetUint(uint64(ordinal))
	default:
		enumValue.SetInt(ordinal)
	}
	return enumValue.Interface(), nil
}
