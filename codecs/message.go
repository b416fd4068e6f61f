package codecs

import (
	"io"
	"reflect"

	"golang.org/x/xerrors"
	"google.golang.org/protobuf/proto"
)

/*
MessageCodec serializes generated protobuf message types. Marshaling is
deterministic so that equal messages always produce identical bytes, which the
registry's reproducibility guarantees depend on.
*/
type MessageCodec struct {
	messageType reflect.Type

	marshalOpts   proto.MarshalOptions
	unmarshalOpts proto.UnmarshalOptions
}

// NewMessageCodec returns a codec for the proto message type t. Both the
// pointer form (*pb.Foo) and the element form (pb.Foo) are accepted; the
// codec's encoded type is whichever was supplied.
func NewMessageCodec(t reflect.Type) (*MessageCodec, error) {
	if !t.Implements(protoMessageType) && !reflect.PtrTo(t).Implements(protoMessageType) {
		return nil, xerrors.Errorf("%s does not implement proto.Message", t)
	}
	return &MessageCodec{
		messageType:   t,
		marshalOpts:   proto.MarshalOptions{Deterministic: true},
		unmarshalOpts: proto.UnmarshalOptions{},
	}, nil
}

func (codec *MessageCodec) EncodedType() reflect.Type {
	return codec.messageType
}

func (codec *MessageCodec) AdditionalEncodedTypes() []reflect.Type {
	return nil
}

func (codec *MessageCodec) Encode(
	engine Engine, writer io.Writer, value interface{},
) error {
	message, ok := value.(proto.Message)
	if !ok {
		return xerrors.Errorf("value of type %T does not implement proto.Message", value)
	}

	marshaled, err := codec.marshalOpts.Marshal(message)
	if err != nil {
		return xerrors.Errorf("error marshaling %s: %w", codec.messageType, err)
	}

	_, err = writer.Write(marshaled)
	return err
}

func (codec *MessageCodec) Decode(
	engine Engine, reader io.Reader,
) (interface{}, error) {
	raw, err := io.ReadAll(reader)
	if err != nil {
		return nil, xerrors.Errorf("error reading message bytes: %w", err)
	}

	// Instantiate the pointer form regardless of how the codec was keyed, as
	// proto.Unmarshal needs an addressable message.
	elemType := codec.messageType
	if elemType.Kind() == reflect.Ptr {
		elemType = elemType.Elem()
	}
	message, ok := reflect.New(elemType).Interface().(proto.Message)
	if !ok {
		return nil, xerrors.Errorf("%s is not instantiable as proto.Message", codec.messageType)
	}

	if err := codec.unmarshalOpts.Unmarshal(raw, message); err != nil {
		return nil, xerrors.Errorf("error unmarshaling %s: %w", codec.messageType, err)
	}
	return message, nil
}
