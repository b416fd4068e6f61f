package codecs

import (
	"io"
	"reflect"

	uuid "github.com/satori/go.uuid"
	"golang.org/x/xerrors"
)

// UUIDCodec is a stock explicit codec for uuid.UUID values, written as their
// raw 16-byte form.
type UUIDCodec struct{}

func (codec UUIDCodec) EncodedType() reflect.Type {
	return reflect.TypeOf(uuid.UUID{})
}

func (codec UUIDCodec) AdditionalEncodedTypes() []reflect.Type {
	return []reflect.Type{reflect.TypeOf(&uuid.UUID{})}
}

func (codec UUIDCodec) Encode(
	engine Engine, writer io.Writer, value interface{},
) error {
	var valueUUID uuid.UUID
	switch typed := value.(type) {
	case uuid.UUID:
		valueUUID = typed
	case *uuid.UUID:
		valueUUID = *typed
	default:
		return xerrors.Errorf("uuid codec cannot encode %T", value)
	}

	_, err := writer.Write(valueUUID.Bytes())
	return err
}

func (codec UUIDCodec) Decode(
	engine Engine, reader io.Reader,
) (interface{}, error) {
	raw := make([]byte, uuid.Size)
	if _, err := io.ReadFull(reader, raw); err != nil {
		return nil, xerrors.Errorf("error reading uuid bytes: %w", err)
	}

	valueUUID, err := uuid.FromBytes(raw)
	if err != nil {
		return nil, xerrors.Errorf("error converting uuid: %w", err)
	}
	return valueUUID, nil
}
