package codecs

import (
	"io"
	"reflect"
)

/*
Codec is the capability contract for serializing values of one or more related
types. A codec is identified by the primary type it encodes, and may declare
additional types whose instances should be routed to it as well (most commonly
an interface type, so that any implementation without its own codec shares this
one).

Codecs are expected to be stateless or internally synchronized: the registry
hands a single codec instance to unbounded concurrent callers.
*/
type Codec interface {
	// EncodedType returns the primary type this codec serializes. The registry
	// keys explicit codecs by this type and sorts the tag space by its
	// canonical name.
	EncodedType() reflect.Type

	// AdditionalEncodedTypes returns further types routed to this codec.
	// May be nil.
	AdditionalEncodedTypes() []reflect.Type

	// Encode writes value to writer. The engine which resolved this codec is
	// made available so implementations can reach registry-level state such
	// as the reference constant index.
	Encode(engine Engine, writer io.Writer, value interface{}) error

	// Decode reads one value from reader and returns it.
	Decode(engine Engine, reader io.Reader) (interface{}, error)
}

/*
Engine is the registry surface visible to codecs while encoding or decoding.
It is deliberately narrow: codecs may consult the reference constant index, but
never mutate registry state.
*/
type Engine interface {
	// MaybeTagForConstant returns the tag of a registered reference constant,
	// matched by identity.
	MaybeTagForConstant(v interface{}) (int, bool)

	// MaybeConstantByTag returns the reference constant registered under tag.
	MaybeConstantByTag(tag int) (interface{}, bool)
}
