package registry

import (
	"reflect"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/xerrors"

	"github.com/illuscio-dev/spanreg-go/codecs"
	"github.com/illuscio-dev/spanreg-go/typenames"
)

/*
Builder accumulates registry configuration and produces an immutable Registry.
Construction is single-threaded; a Builder must not be shared across
goroutines. Use NewBuilder for a fresh builder or Registry.Builder to clone an
existing registry's contents.
*/
type Builder struct {
	codecsByType       map[reflect.Type]codecs.Codec
	referenceConstants []interface{}

	classNames  map[string]struct{}
	typesByName map[string]reflect.Type

	excludedClassNamePrefixes []string

	allowDefaultCodec bool
	computeChecksum   bool

	logger *zap.Logger
}

// NewBuilder returns an empty builder: default codecs allowed, checksum
// disabled, nop logger.
func NewBuilder() *Builder {
	return &Builder{
		codecsByType:      map[reflect.Type]codecs.Codec{},
		classNames:        map[string]struct{}{},
		typesByName:       map[string]reflect.Type{},
		allowDefaultCodec: true,
		logger:            zap.NewNop(),
	}
}

// Add registers an explicit codec keyed by its primary encoded type. A later
// Add for the same encoded type overwrites the earlier codec.
func (builder *Builder) Add(codec codecs.Codec) *Builder {
	builder.codecsByType[codec.EncodedType()] = codec
	return builder
}

// SetAllowDefaultCodec controls whether lookups may fall back to dynamically
// constructed codecs. When disabled, such lookups fail with NoCodecError.
func (builder *Builder) SetAllowDefaultCodec(allow bool) *Builder {
	builder.allowDefaultCodec = allow
	return builder
}

/*
AddReferenceConstant appends a constant serialized by identity: any value
encountered during serialization that is identical to the constant is
replaced by its tag, and decodes back to the exact same instance.

Constants must be interned, or effectively so: if two values that callers
consider equal can exist where only one is registered here, serialized bytes
stop being bit-for-bit reproducible. Pointer-shaped constants satisfy this
naturally; plain comparable values rely on the caller interning them. This is
a documented contract, not runtime-checked.
*/
func (builder *Builder) AddReferenceConstant(constant interface{}) *Builder {
	builder.referenceConstants = append(builder.referenceConstants, constant)
	return builder
}

// AddReferenceConstants appends constants in order.
func (builder *Builder) AddReferenceConstants(constants ...interface{}) *Builder {
	builder.referenceConstants = append(builder.referenceConstants, constants...)
	return builder
}

// AddClassName marks a class name as eligible for dynamic codec construction.
// Names are deduplicated and sorted at build time. A name with no type bound
// via AddType receives a tag but fails permanently on first use, the analog
// of an unloadable class.
func (builder *Builder) AddClassName(className string) *Builder {
	builder.classNames[className] = struct{}{}
	return builder
}

// AddType marks a runtime type as eligible for dynamic codec construction,
// binding its canonical name so the codec can actually be built on first use.
// Pointer types are collapsed onto their element type.
func (builder *Builder) AddType(eligibleType reflect.Type) *Builder {
	normalized := typenames.Normalize(eligibleType)
	builder.bindType(typenames.Canonical(normalized), normalized)
	return builder
}

func (builder *Builder) bindType(className string, boundType reflect.Type) {
	builder.classNames[className] = struct{}{}
	builder.typesByName[className] = boundType
}

// ExcludeClassNamePrefix drops any eligible class name with the given prefix
// before tag assignment, silently.
func (builder *Builder) ExcludeClassNamePrefix(prefix string) *Builder {
	builder.excludedClassNamePrefixes = append(builder.excludedClassNamePrefixes, prefix)
	return builder
}

// ComputeChecksum toggles computation of the tag-assignment digest. Off by
// default since it costs extra work during Build.
func (builder *Builder) ComputeChecksum(compute bool) *Builder {
	builder.computeChecksum = compute
	return builder
}

// SetLogger sets the logger used for build diagnostics and dynamic codec
// construction failures. Nil resets to a nop logger.
func (builder *Builder) SetLogger(logger *zap.Logger) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	builder.logger = logger
	return builder
}

/*
Build runs the tag allocation algorithm and returns the finished registry.

Tags are assigned from 1 upward: explicit codecs sorted by the canonical name
of their primary encoded type, then reference constants in insertion order,
then the sorted, prefix-filtered dynamic class names. Additional encoded
types are mapped after all primary types, in sorted order, with
last-processed-wins on overlap (each overwrite is logged at Warn).

Errors from Build are fatal configuration errors: callers should abort
startup rather than treat them as request-level failures.
*/
func (builder *Builder) Build() (*Registry, error) {
	var accumulator *checksumAccumulator
	if builder.computeChecksum {
		accumulator = newChecksumAccumulator()
		accumulator.writeBool(builder.allowDefaultCodec)
	}

	built := &Registry{
		allowDefaultCodec:     builder.allowDefaultCodec,
		referenceConstantTags: map[constantKey]int{},
		dynamicCodecs:         map[string]*dynamicCodecEntry{},
		typesByName:           map[string]reflect.Type{},
		logger:                builder.logger,
	}

	nextTag := 1

	// Explicit codecs, sorted by primary encoded type name. Ties are
	// impossible: codecsByType holds one codec per encoded type.
	sortedCodecs := make([]codecs.Codec, 0, len(builder.codecsByType))
	for _, codec := range builder.codecsByType {
		sortedCodecs = append(sortedCodecs, codec)
	}
	sort.Slice(sortedCodecs, func(left, right int) bool {
		return typenames.Canonical(sortedCodecs[left].EncodedType()) <
			typenames.Canonical(sortedCodecs[right].EncodedType())
	})

	built.tagMappedCodecs = make([]*Descriptor, 0, len(sortedCodecs))
	for _, codec := range sortedCodecs {
		descriptor := &Descriptor{tag: nextTag, codec: codec}

		if accumulator != nil {
			// The codec implementation's type name, not the encoded type:
			// swapping the implementation must change the digest.
			accumulator.writeEntry(nextTag, typenames.Canonical(reflect.TypeOf(codec)))
		}

		if _, loaded := built.classMappedCodecs.LoadOrStore(codec.EncodedType(), descriptor); loaded {
			return nil, xerrors.Errorf(
				"duplicate codec descriptor for %s",
				typenames.Canonical(codec.EncodedType()),
			)
		}
		built.tagMappedCodecs = append(built.tagMappedCodecs, descriptor)
		nextTag++
	}

	// Additional encoded types, mapped after every primary type so a codec's
	// extras never displace another codec's primary registration silently --
	// overlaps between two codecs' extras resolve last-processed-wins.
	for _, descriptor := range built.tagMappedCodecs {
		for _, additionalType := range descriptor.codec.AdditionalEncodedTypes() {
			if previous, loaded := built.classMappedCodecs.Load(additionalType); loaded {
				builder.logger.Warn(
					"additional encoded type overwrites an existing codec mapping",
					zap.String("type", typenames.Canonical(additionalType)),
					zap.Int("previousTag", previous.(*Descriptor).Tag()),
					zap.Int("tag", descriptor.Tag()),
				)
			}
			built.classMappedCodecs.Store(additionalType, descriptor)
		}
	}

	built.interfaceCodecs = collectInterfaceCodecs(built)

	// Reference constants, in caller order.
	built.referenceConstantsStartTag = nextTag
	built.referenceConstants = make([]interface{}, 0, len(builder.referenceConstants))
	for _, constant := range builder.referenceConstants {
		if constant == nil {
			return nil, xerrors.New("nil reference constant")
		}
		key, ok := keyForConstant(constant)
		if !ok {
			return nil, xerrors.Errorf(
				"reference constant of type %T is not comparable; register a pointer to it instead",
				constant,
			)
		}

		built.referenceConstantTags[key] = nextTag
		built.referenceConstants = append(built.referenceConstants, constant)
		if accumulator != nil {
			accumulator.writeEntry(nextTag, typenames.Canonical(reflect.TypeOf(constant)))
		}
		nextTag++
	}

	// Dynamic class names: dedupe happened on insert, so filter and sort.
	for className := range builder.classNames {
		if isExcluded(className, builder.excludedClassNamePrefixes) {
			continue
		}
		built.classNames = append(built.classNames, className)
	}
	sort.Strings(built.classNames)

	for _, className := range built.classNames {
		built.dynamicCodecs[className] = &dynamicCodecEntry{tag: nextTag, className: className}
		if accumulator != nil {
			accumulator.writeEntry(nextTag, className)
		}
		nextTag++
	}

	for className, boundType := range builder.typesByName {
		built.typesByName[className] = boundType
	}

	if accumulator != nil {
		built.checksum = accumulator.sum()
	}

	builder.logger.Debug(
		"built codec registry",
		zap.Int("explicitCodecs", len(built.tagMappedCodecs)),
		zap.Int("referenceConstants", len(built.referenceConstants)),
		zap.Int("dynamicClassNames", len(built.classNames)),
		zap.Bool("allowDefaultCodec", built.allowDefaultCodec),
		zap.Bool("checksum", built.checksum != nil),
	)
	return built, nil
}

// collectInterfaceCodecs indexes interface-typed registrations in ascending
// tag order for the ancestor walk. Runs after all explicit and additional
// mappings are in place so it sees final ownership of each interface type.
func collectInterfaceCodecs(built *Registry) []interfaceCodec {
	var collected []interfaceCodec
	built.classMappedCodecs.Range(func(key, cached interface{}) bool {
		mappedType := key.(reflect.Type)
		if mappedType.Kind() == reflect.Interface {
			collected = append(collected, interfaceCodec{
				interfaceType: mappedType,
				descriptor:    cached.(*Descriptor),
			})
		}
		return true
	})
	sort.Slice(collected, func(left, right int) bool {
		if collected[left].descriptor.Tag() != collected[right].descriptor.Tag() {
			return collected[left].descriptor.Tag() < collected[right].descriptor.Tag()
		}
		// Same codec mapped under multiple interfaces: order by name.
		return typenames.Canonical(collected[left].interfaceType) <
			typenames.Canonical(collected[right].interfaceType)
	})
	return collected
}

func isExcluded(className string, excludedPrefixes []string) bool {
	for _, prefix := range excludedPrefixes {
		if strings.HasPrefix(className, prefix) {
			return true
		}
	}
	return false
}
