package registry

import (
	"fmt"
	"reflect"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/xerrors"

	"github.com/illuscio-dev/spanreg-go/codecs"
	"github.com/illuscio-dev/spanreg-go/typenames"
)

/*
Registry maps concrete types to codec descriptors and back again from
previously-assigned tags. It is produced by a Builder and immutable
afterwards; the internal caches mutate under concurrent lookups but are not
observable state. All lookup methods are safe for unbounded concurrent
callers.

Tag space: a single counter starting at 1, partitioned in order into explicit
codecs (sorted by the canonical name of their primary encoded type),
reference constants (builder insertion order), and dynamic class names
(sorted, after prefix exclusion). For fixed builder inputs the assignment is
identical across processes, which is what the optional checksum attests.
*/
type Registry struct {
	allowDefaultCodec bool

	// classMappedCodecs maps reflect.Type to *Descriptor. Seeded with
	// explicit and additional encoded types at build; lazily extended with
	// leaf types resolved through pointer or interface fallback.
	classMappedCodecs sync.Map

	// interfaceCodecs holds the interface-typed registrations in ascending
	// tag order. This is the ancestor chain for the fallback walk.
	interfaceCodecs []interfaceCodec

	tagMappedCodecs []*Descriptor

	referenceConstantsStartTag int
	referenceConstants         []interface{}
	referenceConstantTags      map[constantKey]int

	// classNames is sorted; tag resolution needs index-based access.
	classNames    []string
	dynamicCodecs map[string]*dynamicCodecEntry
	typesByName   map[string]reflect.Type

	checksum []byte

	logger *zap.Logger
}

// Registry is the Engine surface handed to codecs during encode/decode.
var _ codecs.Engine = (*Registry)(nil)

// interfaceCodec is one interface-typed registration in the ancestor walk.
type interfaceCodec struct {
	interfaceType reflect.Type
	descriptor    *Descriptor
}

/*
CodecDescriptorForValue resolves the codec descriptor for a runtime value.
Resolution order: the exact type, the pointer-elem chain, registered
interface types in ascending tag order (each fallback hit is cached under the
leaf type), then -- unless default codecs are disallowed -- dynamic
resolution by canonical class name.
*/
func (registry *Registry) CodecDescriptorForValue(value interface{}) (*Descriptor, error) {
	if value == nil {
		return nil, newNoCodec(
			"cannot resolve a codec for nil; the null sentinel tag is handled by the wire layer",
			"", 0, nil,
		)
	}

	valueType := reflect.TypeOf(value)
	if descriptor := registry.codecDescriptor(valueType); descriptor != nil {
		return descriptor, nil
	}

	if !registry.allowDefaultCodec {
		canonical := typenames.Canonical(valueType)
		return nil, newNoCodec(
			"no codec available for "+canonical+" and default fallback disabled",
			canonical, 0, nil,
		)
	}

	// Dynamic names are assigned to named types, so collapse pointers before
	// computing the lookup key.
	className := typenames.Canonical(typenames.Normalize(valueType))
	return registry.dynamicCodecDescriptor(className, valueType)
}

// codecDescriptor returns the descriptor for valueType or nil, walking the
// pointer chain and interface registrations. Fallback hits are written back
// under the original leaf type so future lookups are a single map load.
func (registry *Registry) codecDescriptor(valueType reflect.Type) *Descriptor {
	if cached, ok := registry.classMappedCodecs.Load(valueType); ok {
		return cached.(*Descriptor)
	}

	for nextType := valueType; nextType.Kind() == reflect.Ptr; {
		nextType = nextType.Elem()
		if cached, ok := registry.classMappedCodecs.Load(nextType); ok {
			descriptor := cached.(*Descriptor)
			registry.classMappedCodecs.Store(valueType, descriptor)
			return descriptor
		}
	}

	for _, entry := range registry.interfaceCodecs {
		if valueType.Implements(entry.interfaceType) {
			registry.classMappedCodecs.Store(valueType, entry.descriptor)
			return entry.descriptor
		}
	}

	return nil
}

/*
CodecDescriptorByTag resolves a descriptor from a previously-assigned tag.
Tags below 1 are rejected immediately. Reference constant tags are
intentionally not covered here -- callers must check MaybeConstantByTag
first -- so a tag in the constant range fails with NoCodecError.
*/
func (registry *Registry) CodecDescriptorByTag(tag int) (*Descriptor, error) {
	tagOffset := tag - 1 // 0 reserved for null
	if tagOffset < 0 {
		return nil, newNoCodec(fmt.Sprintf("no codec available for tag %d", tag), "", tag, nil)
	}
	if tagOffset < len(registry.tagMappedCodecs) {
		return registry.tagMappedCodecs[tagOffset], nil
	}

	tagOffset -= len(registry.tagMappedCodecs)
	tagOffset -= len(registry.referenceConstants)
	if !registry.allowDefaultCodec || tagOffset < 0 || tagOffset >= len(registry.classNames) {
		return nil, newNoCodec(fmt.Sprintf("no codec available for tag %d", tag), "", tag, nil)
	}
	return registry.dynamicCodecDescriptor(registry.classNames[tagOffset], nil)
}

// MaybeConstantByTag returns the reference constant assigned tag, if tag
// falls inside the constant range. Allocation-free; never errors.
func (registry *Registry) MaybeConstantByTag(tag int) (interface{}, bool) {
	if tag >= registry.referenceConstantsStartTag &&
		tag < registry.referenceConstantsStartTag+len(registry.referenceConstants) {
		return registry.referenceConstants[tag-registry.referenceConstantsStartTag], true
	}
	return nil, false
}

// MaybeTagForConstant returns the tag of a registered reference constant.
// Constants are matched by identity, not equality: a distinct value that is
// merely equal to a registered constant does not resolve.
func (registry *Registry) MaybeTagForConstant(value interface{}) (int, bool) {
	if value == nil {
		return 0, false
	}
	key, ok := keyForConstant(value)
	if !ok {
		return 0, false
	}
	tag, found := registry.referenceConstantTags[key]
	return tag, found
}

// dynamicCodecDescriptor resolves a pre-tagged dynamic class name to its
// memoized descriptor, constructing the codec on first access. valueType is
// the runtime type when resolution started from a value, enabling the
// serializable-function special case; it is nil for tag-based resolution.
func (registry *Registry) dynamicCodecDescriptor(
	className string, valueType reflect.Type,
) (*Descriptor, error) {
	if entry, ok := registry.dynamicCodecs[className]; ok {
		descriptor, err := entry.resolve(registry)
		if err != nil {
			return nil, newNoCodec(
				"there was a problem creating a codec for "+className,
				className, 0, err,
			)
		}
		return descriptor, nil
	}

	if valueType != nil && valueType.Kind() == reflect.Func {
		if valueType.Implements(codecs.SerializableFuncType) {
			// The shared function codec is keyed under the marker interface
			// type, avoiding one registration per function type.
			if cached, ok := registry.classMappedCodecs.Load(codecs.SerializableFuncType); ok {
				return cached.(*Descriptor), nil
			}
		}
		return nil, newNoCodec(
			"no default codec available for "+className+
				"; if this is a function value, declare a named func type "+
				"implementing codecs.SerializableFunc and register "+
				"codecs.NewFunctionCodec()",
			className, 0, nil,
		)
	}

	return nil, newNoCodec("no default codec available for "+className, className, 0, nil)
}

// Checksum returns a defensive copy of the build-time digest over the tag
// assignment, or nil if checksums were not enabled on the Builder.
func (registry *Registry) Checksum() []byte {
	if registry.checksum == nil {
		return nil
	}
	duplicate := make([]byte, len(registry.checksum))
	copy(duplicate, registry.checksum)
	return duplicate
}

// AllowsDefaultCodec reports whether dynamic fallback codecs are enabled.
func (registry *Registry) AllowsDefaultCodec() bool {
	return registry.allowDefaultCodec
}

// ClassNames returns the sorted dynamic class names, post-exclusion.
func (registry *Registry) ClassNames() []string {
	duplicate := make([]string, len(registry.classNames))
	copy(duplicate, registry.classNames)
	return duplicate
}

/*
Builder reconstructs a Builder pre-populated with this registry's explicit
codecs, reference constants, class names, and type bindings. Much cheaper
than re-scanning a codebase when deriving an incremental registry, such as a
base registry plus a few test-only codecs.
*/
func (registry *Registry) Builder() *Builder {
	builder := NewBuilder()
	builder.SetAllowDefaultCodec(registry.allowDefaultCodec)
	builder.SetLogger(registry.logger)

	registry.classMappedCodecs.Range(func(_, cached interface{}) bool {
		builder.Add(cached.(*Descriptor).Codec())
		return true
	})

	for _, constant := range registry.referenceConstants {
		builder.AddReferenceConstant(constant)
	}

	for _, className := range registry.classNames {
		builder.AddClassName(className)
	}
	for className, boundType := range registry.typesByName {
		builder.bindType(className, boundType)
	}
	return builder
}

// String summarizes the registry for diagnostics.
func (registry *Registry) String() string {
	return fmt.Sprintf(
		"Registry{allowDefaultCodec: %v, explicitCodecs: %d, referenceConstants: %d, "+
			"dynamicClassNames: %d, checksum: %x}",
		registry.allowDefaultCodec,
		len(registry.tagMappedCodecs),
		len(registry.referenceConstants),
		len(registry.classNames),
		registry.checksum,
	)
}

/*
dynamicCodecEntry is the lazily-computed descriptor for one pre-tagged class
name. Construction runs at most once; both the resulting descriptor and any
construction failure are memoized, so a class that cannot be served fails
identically on every subsequent access until the registry is rebuilt.
*/
type dynamicCodecEntry struct {
	tag       int
	className string

	once       sync.Once
	descriptor *Descriptor
	err        error
}

func (entry *dynamicCodecEntry) resolve(registry *Registry) (*Descriptor, error) {
	entry.once.Do(func() {
		boundType, ok := registry.typesByName[entry.className]
		if !ok {
			// The Go analog of a class that cannot be loaded: the name was
			// tagged but no runtime type was bound via Builder.AddType.
			entry.err = xerrors.Errorf(
				"no runtime type bound for class name %s", entry.className,
			)
		} else {
			var codec codecs.Codec
			codec, entry.err = codecs.ForType(boundType)
			if entry.err == nil {
				entry.descriptor = &Descriptor{tag: entry.tag, codec: codec}
			}
		}

		if entry.err != nil {
			registry.logger.Error(
				"dynamic codec construction failed; failure is permanent for this registry",
				zap.String("className", entry.className),
				zap.Int("tag", entry.tag),
				zap.Error(entry.err),
			)
		}
	})
	return entry.descriptor, entry.err
}

// constantKey is the identity key for the reference constant index. Pointer
// shaped values key on their address; other comparable values key on the
// value itself, relying on the documented interning contract.
type constantKey struct {
	constantType reflect.Type
	pointer      uintptr
	value        interface{}
}

func keyForConstant(value interface{}) (constantKey, bool) {
	reflected := reflect.ValueOf(value)
	switch reflected.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Chan, reflect.Func,
		reflect.Slice, reflect.UnsafePointer:
		return constantKey{constantType: reflected.Type(), pointer: reflected.Pointer()}, true
	default:
		if !reflected.Type().Comparable() {
			return constantKey{}, false
		}
		return constantKey{constantType: reflected.Type(), value: value}, true
	}
}
