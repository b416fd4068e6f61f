package codecs

import (
	"io"
	"reflect"

	"go.mongodb.org/mongo-driver/bson"
	"golang.org/x/xerrors"
)

/*
BSONRawCodec is a stock explicit codec for bson.Raw documents. Raw documents
are already wire bytes, so encoding is a straight copy and decoding validates
the document framing without unmarshaling fields.
*/
type BSONRawCodec struct{}

func (codec BSONRawCodec) EncodedType() reflect.Type {
	return reflect.TypeOf(bson.Raw{})
}

func (codec BSONRawCodec) AdditionalEncodedTypes() []reflect.Type {
	return []reflect.Type{reflect.TypeOf(&bson.Raw{})}
}

func (codec BSONRawCodec) Encode(
	engine Engine, writer io.Writer, value interface{},
) error {
	var raw bson.Raw
	switch typed := value.(type) {
	case bson.Raw:
		raw = typed
	case *bson.Raw:
		raw = *typed
	default:
		return xerrors.Errorf("bson raw codec cannot encode %T", value)
	}

	_, err := writer.Write(raw)
	return err
}

func (codec BSONRawCodec) Decode(
	engine Engine, reader io.Reader,
) (interface{}, error) {
	document, err := bson.NewFromIOReader(reader)
	if err != nil {
		return nil, xerrors.Errorf("error reading bson document: %w", err)
	}
	return document, nil
}
