package registry

import (
	"github.com/illuscio-dev/spanreg-go/codecs"
)

/*
Descriptor pairs a codec with the tag identifying it in this registry's tag
space. Tags are always >= 1: tag 0 is the null-value sentinel and negative
values are reserved for backreference markers, both of which belong to the
wire layer above this package.

Descriptors are immutable and cached; repeated lookups for the same type or
tag return the same instance.
*/
type Descriptor struct {
	tag   int
	codec codecs.Codec
}

// Tag returns the compact wire identifier for the codec.
func (descriptor *Descriptor) Tag() int {
	return descriptor.tag
}

// Codec returns the underlying codec.
func (descriptor *Descriptor) Codec() codecs.Codec {
	return descriptor.codec
}
