package codecs

import (
	"io"
	"reflect"
	"sync"

	"golang.org/x/xerrors"
	"google.golang.org/protobuf/encoding/protowire"
)

/*
SerializableFunc marks named func types that may be serialized. Anonymous
function values have compiler-generated, unstable type identities and can
never be resolved to a codec; declaring a named func type with a FuncIdent
method and registering its values through RegisterFunc is the supported
workaround:

	type ScoreFn func(int) int

	func (ScoreFn) FuncIdent() string { return "scoring.linear" }

Values are encoded by identifier only, so every process participating in an
exchange must register the same identifiers.
*/
type SerializableFunc interface {
	// FuncIdent returns the stable identifier this function is registered
	// under.
	FuncIdent() string
}

// SerializableFuncType is the marker interface type. The shared FunctionCodec
// is keyed under it in the registry, so it never clashes with a concrete
// type's codec.
var SerializableFuncType = reflect.TypeOf((*SerializableFunc)(nil)).Elem()

// funcTable maps identifiers to registered function values.
var funcTable sync.Map // string -> SerializableFunc

// RegisterFunc makes fn decodable by its identifier. Re-registering an
// identifier overwrites the previous function; callers are expected to keep
// identifiers unique per process.
func RegisterFunc(fn SerializableFunc) {
	funcTable.Store(fn.FuncIdent(), fn)
}

/*
FunctionCodec is the shared codec for all SerializableFunc implementations.
Its encoded type is the marker interface itself, so a single registration
covers every named func type rather than one tag per function type.
*/
type FunctionCodec struct{}

// NewFunctionCodec returns the shared serializable-function codec.
func NewFunctionCodec() *FunctionCodec {
	return &FunctionCodec{}
}

func (codec *FunctionCodec) EncodedType() reflect.Type {
	return SerializableFuncType
}

func (codec *FunctionCodec) AdditionalEncodedTypes() []reflect.Type {
	return nil
}

func (codec *FunctionCodec) Encode(
	engine Engine, writer io.Writer, value interface{},
) error {
	fn, ok := value.(SerializableFunc)
	if !ok {
		return xerrors.Errorf(
			"value of type %T does not implement codecs.SerializableFunc", value,
		)
	}

	_, err := writer.Write(protowire.AppendString(nil, fn.FuncIdent()))
	return err
}

func (codec *FunctionCodec) Decode(
	engine Engine, reader io.Reader,
) (interface{}, error) {
	raw, err := io.ReadAll(reader)
	if err != nil {
		return nil, xerrors.Errorf("error reading function identifier: %w", err)
	}

	ident, n := protowire.ConsumeString(raw)
	if n < 0 {
		return nil, xerrors.New("malformed function identifier")
	}

	fn, ok := funcTable.Load(ident)
	if !ok {
		return nil, xerrors.Errorf("no function registered under identifier %q", ident)
	}
	return fn, nil
}
