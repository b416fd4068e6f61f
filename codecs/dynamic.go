package codecs

import (
	"io"
	"reflect"

	cbor "github.com/fxamacker/cbor/v2"
	"golang.org/x/xerrors"
)

// dynamicEncMode is the shared deterministic CBOR encoder configuration.
// Canonical options fix map key order so that equal values always produce
// identical bytes.
var dynamicEncMode, dynamicEncModeErr = cbor.CanonicalEncOptions().EncMode()

/*
DynamicCodec is the generic reflective fallback arm: it serializes a value of
one concrete type field-by-field through deterministic CBOR. It is the codec
of last resort for class-name-driven resolution and makes no attempt to
preserve unexported state or shared substructure.
*/
type DynamicCodec struct {
	valueType reflect.Type
}

// NewDynamicCodec returns a reflective codec for t.
func NewDynamicCodec(t reflect.Type) (*DynamicCodec, error) {
	if dynamicEncModeErr != nil {
		// Only reachable if the canonical option set is itself invalid, which
		// is a packaging defect rather than a per-type failure.
		return nil, xerrors.Errorf("cbor encode mode unavailable: %w", dynamicEncModeErr)
	}
	if t == nil {
		return nil, xerrors.New("cannot build dynamic codec for nil type")
	}
	return &DynamicCodec{valueType: t}, nil
}

func (codec *DynamicCodec) EncodedType() reflect.Type {
	return codec.valueType
}

func (codec *DynamicCodec) AdditionalEncodedTypes() []reflect.Type {
	return nil
}

func (codec *DynamicCodec) Encode(
	engine Engine, writer io.Writer, value interface{},
) (err error) {
	// Reflective marshaling of arbitrary caller types can panic (unexported
	// cycles, unsupported kinds); surface that as an error like the rest of
	// the codec contract.
	defer func() {
		if recovered := recover(); recovered != nil {
			err = xerrors.Errorf("panic during dynamic encode of %s: %v", codec.valueType, recovered)
		}
	}()

	normalized := reflect.Indirect(reflect.ValueOf(value))
	marshaled, err := dynamicEncMode.Marshal(normalized.Interface())
	if err != nil {
		return xerrors.Errorf("error encoding %s: %w", codec.valueType, err)
	}

	_, err = writer.Write(marshaled)
	return err
}

func (codec *DynamicCodec) Decode(
	engine Engine, reader io.Reader,
) (interface{}, error) {
	raw, err := io.ReadAll(reader)
	if err != nil {
		return nil, xerrors.Errorf("error reading value bytes: %w", err)
	}

	receiver := reflect.New(codec.valueType)
	if err := cbor.Unmarshal(raw, receiver.Interface()); err != nil {
		return nil, xerrors.Errorf("error decoding %s: %w", codec.valueType, err)
	}
	return receiver.Elem().Interface(), nil
}
