package registry_test

//revive:disable:import-shadowing reason: Disabled for assert := assert.New(), which is
// the preferred method of using multiple asserts in a test.

import (
	"bytes"
	"io"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/illuscio-dev/spanreg-go/codecs"
	"github.com/illuscio-dev/spanreg-go/registry"
)

// Fixture types. scoreRequest sorts before scoreResult by canonical name, so
// their explicit tags are predictable.
type scoreRequest struct {
	Total int
}

type scoreResult struct {
	Rank int
}

type scoreEvent struct {
	Source string
	Total  int
}

// rankTier is the enum-shaped fixture.
type rankTier int

const (
	tierBronze rankTier = iota
	tierSilver
	tierGold
)

// Auditable is the interface-registration fixture.
type Auditable interface {
	AuditName() string
}

type auditedEvent struct {
	Name string
}

func (event auditedEvent) AuditName() string { return event.Name }

// auditHook is a named, serializable func type.
type auditHook func() string

func (auditHook) FuncIdent() string { return "registry_test.auditHook" }

// stubCodec is a minimal explicit codec for registration tests.
type stubCodec struct {
	encodedType     reflect.Type
	additionalTypes []reflect.Type
}

func (codec *stubCodec) EncodedType() reflect.Type              { return codec.encodedType }
func (codec *stubCodec) AdditionalEncodedTypes() []reflect.Type { return codec.additionalTypes }

func (codec *stubCodec) Encode(
	engine codecs.Engine, writer io.Writer, value interface{},
) error {
	return nil
}

func (codec *stubCodec) Decode(
	engine codecs.Engine, reader io.Reader,
) (interface{}, error) {
	return nil, nil
}

func stubFor(prototype interface{}, additional ...interface{}) *stubCodec {
	additionalTypes := make([]reflect.Type, 0, len(additional))
	for _, value := range additional {
		additionalTypes = append(additionalTypes, reflect.TypeOf(value))
	}
	return &stubCodec{
		encodedType:     reflect.TypeOf(prototype),
		additionalTypes: additionalTypes,
	}
}

// baseBuilder assembles the shared fixture configuration: two explicit
// codecs, two reference constants, one dynamically eligible type.
func baseBuilder(constants ...interface{}) *registry.Builder {
	builder := registry.NewBuilder().
		Add(stubFor(scoreRequest{})).
		Add(stubFor(scoreResult{})).
		AddType(reflect.TypeOf(scoreEvent{}))
	builder.AddReferenceConstants(constants...)
	return builder
}

func TestBuild_DeterministicTagsAndChecksum(test *testing.T) {
	assert := assert.New(test)

	constant := &scorePolicyConstant
	buildOnce := func() *registry.Registry {
		built, err := baseBuilder(constant).ComputeChecksum(true).Build()
		if err != nil {
			test.Fatal(err)
		}
		return built
	}

	first := buildOnce()
	second := buildOnce()

	for _, value := range []interface{}{scoreRequest{}, scoreResult{}, scoreEvent{}} {
		firstDescriptor, err := first.CodecDescriptorForValue(value)
		assert.Nil(err)
		secondDescriptor, err := second.CodecDescriptorForValue(value)
		assert.Nil(err)
		assert.Equal(firstDescriptor.Tag(), secondDescriptor.Tag())
	}

	assert.NotNil(first.Checksum())
	assert.Equal(first.Checksum(), second.Checksum())
}

var scorePolicyConstant = scoreResult{Rank: -1}

func TestCodecDescriptorForValue_RoundTripsThroughTag(test *testing.T) {
	assert := assert.New(test)

	built, err := baseBuilder().Build()
	if err != nil {
		test.Fatal(err)
	}

	for _, value := range []interface{}{scoreRequest{}, scoreResult{}, scoreEvent{}} {
		byValue, err := built.CodecDescriptorForValue(value)
		if !assert.Nil(err) {
			continue
		}
		byTag, err := built.CodecDescriptorByTag(byValue.Tag())
		assert.Nil(err)
		assert.Equal(byValue.Codec(), byTag.Codec())
	}
}

func TestBuild_TagRangePartition(test *testing.T) {
	assert := assert.New(test)

	firstConstant := &scoreRequest{Total: 1}
	secondConstant := &scoreRequest{Total: 2}
	built, err := baseBuilder(firstConstant, secondConstant).Build()
	if err != nil {
		test.Fatal(err)
	}

	// Explicit range: tags 1..2, sorted by encoded type name, so
	// scoreRequest before scoreResult.
	requestDescriptor, err := built.CodecDescriptorByTag(1)
	assert.Nil(err)
	assert.Equal(reflect.TypeOf(scoreRequest{}), requestDescriptor.Codec().EncodedType())

	resultDescriptor, err := built.CodecDescriptorByTag(2)
	assert.Nil(err)
	assert.Equal(reflect.TypeOf(scoreResult{}), resultDescriptor.Codec().EncodedType())

	// Constant range: tags 3..4 resolve through the constant accessors only.
	for tagOffset, constant := range []interface{}{firstConstant, secondConstant} {
		tag := 3 + tagOffset

		_, err = built.CodecDescriptorByTag(tag)
		assert.True(registry.IsNoCodec(err))

		byTag, found := built.MaybeConstantByTag(tag)
		assert.True(found)
		assert.Same(constant, byTag)

		foundTag, found := built.MaybeTagForConstant(constant)
		assert.True(found)
		assert.Equal(tag, foundTag)
	}

	// Dynamic range: tag 5 is the single eligible class name.
	dynamicDescriptor, err := built.CodecDescriptorByTag(5)
	assert.Nil(err)
	assert.Equal(reflect.TypeOf(scoreEvent{}), dynamicDescriptor.Codec().EncodedType())

	// One past the end.
	_, err = built.CodecDescriptorByTag(6)
	assert.True(registry.IsNoCodec(err))
}

func TestCodecDescriptorForValue_InterfaceFallbackIsCached(test *testing.T) {
	assert := assert.New(test)

	auditableType := reflect.TypeOf((*Auditable)(nil)).Elem()
	built, err := registry.NewBuilder().
		Add(&stubCodec{encodedType: auditableType}).
		Build()
	if err != nil {
		test.Fatal(err)
	}

	firstLookup, err := built.CodecDescriptorForValue(auditedEvent{Name: "login"})
	assert.Nil(err)
	assert.Equal(auditableType, firstLookup.Codec().EncodedType())

	// The leaf type is cached: the repeated lookup returns the identical
	// descriptor instance.
	secondLookup, err := built.CodecDescriptorForValue(auditedEvent{Name: "logout"})
	assert.Nil(err)
	assert.Same(firstLookup, secondLookup)
}

func TestCodecDescriptorForValue_PointerFallsBackToElem(test *testing.T) {
	assert := assert.New(test)

	built, err := baseBuilder().Build()
	if err != nil {
		test.Fatal(err)
	}

	byValue, err := built.CodecDescriptorForValue(scoreRequest{})
	assert.Nil(err)
	byPointer, err := built.CodecDescriptorForValue(&scoreRequest{})
	assert.Nil(err)
	assert.Same(byValue, byPointer)
}

func TestBuild_ExcludedPrefixDropsClassName(test *testing.T) {
	assert := assert.New(test)

	built, err := baseBuilder().
		ExcludeClassNamePrefix("github.com/illuscio-dev/spanreg-go").
		Build()
	if err != nil {
		test.Fatal(err)
	}

	assert.Empty(built.ClassNames())

	// scoreEvent was eligible, but its name matches the excluded prefix, so
	// it never received a tag.
	_, err = built.CodecDescriptorForValue(scoreEvent{})
	assert.True(registry.IsNoCodec(err))
}

func TestCodecDescriptorForValue_DefaultCodecDisabled(test *testing.T) {
	assert := assert.New(test)

	built, err := baseBuilder().SetAllowDefaultCodec(false).Build()
	if err != nil {
		test.Fatal(err)
	}

	// Explicit codecs still resolve.
	_, err = built.CodecDescriptorForValue(scoreRequest{})
	assert.Nil(err)

	// scoreEvent is eligible for a dynamic codec, but the fallback is off.
	_, err = built.CodecDescriptorForValue(scoreEvent{})
	assert.True(registry.IsNoCodec(err))
	assert.Contains(err.Error(), "default fallback disabled")

	// Tag-based dynamic resolution is off as well.
	_, err = built.CodecDescriptorByTag(3)
	assert.True(registry.IsNoCodec(err))
}

func TestMaybeTagForConstant_IdentityNotEquality(test *testing.T) {
	assert := assert.New(test)

	registered := &scoreRequest{Total: 10}
	lookalike := &scoreRequest{Total: 10}

	built, err := registry.NewBuilder().AddReferenceConstant(registered).Build()
	if err != nil {
		test.Fatal(err)
	}

	tag, found := built.MaybeTagForConstant(registered)
	assert.True(found)
	assert.Equal(1, tag)

	// Equal-by-value but not identical: must not resolve.
	_, found = built.MaybeTagForConstant(lookalike)
	assert.False(found)
}

func TestCodecDescriptorByTag_RejectsZeroAndNegative(test *testing.T) {
	assert := assert.New(test)

	built, err := baseBuilder().Build()
	if err != nil {
		test.Fatal(err)
	}

	for _, tag := range []int{0, -1, -100} {
		_, err = built.CodecDescriptorByTag(tag)
		assert.True(registry.IsNoCodec(err))
	}
}

func TestBuilder_CloneExtendsRegistry(test *testing.T) {
	assert := assert.New(test)

	constant := &scoreRequest{Total: 7}
	base, err := baseBuilder(constant).Build()
	if err != nil {
		test.Fatal(err)
	}

	extended, err := base.Builder().
		Add(stubFor(auditedEvent{})).
		Build()
	if err != nil {
		test.Fatal(err)
	}

	// Everything from the base registry survives the clone.
	for _, value := range []interface{}{scoreRequest{}, scoreResult{}, scoreEvent{}} {
		_, err = extended.CodecDescriptorForValue(value)
		assert.Nil(err)
	}
	_, found := extended.MaybeTagForConstant(constant)
	assert.True(found)

	// And the addition resolves too.
	_, err = extended.CodecDescriptorForValue(auditedEvent{})
	assert.Nil(err)

	// The base registry is unaffected by the extension.
	_, err = base.CodecDescriptorForValue(auditedEvent{})
	assert.True(registry.IsNoCodec(err))
}

func TestDynamicCodec_UnboundNameFailsPermanently(test *testing.T) {
	assert := assert.New(test)

	built, err := registry.NewBuilder().
		AddClassName("com.example.Missing").
		Build()
	if err != nil {
		test.Fatal(err)
	}

	_, firstErr := built.CodecDescriptorByTag(1)
	assert.True(registry.IsNoCodec(firstErr))

	// Memoized: the second failure is byte-identical to the first.
	_, secondErr := built.CodecDescriptorByTag(1)
	assert.True(registry.IsNoCodec(secondErr))
	assert.Equal(firstErr.Error(), secondErr.Error())
}

func TestCodecDescriptorForValue_SerializableFunc(test *testing.T) {
	assert := assert.New(test)

	built, err := registry.NewBuilder().
		Add(codecs.NewFunctionCodec()).
		Build()
	if err != nil {
		test.Fatal(err)
	}

	hook := auditHook(func() string { return "ok" })
	descriptor, err := built.CodecDescriptorForValue(hook)
	assert.Nil(err)
	assert.Equal(codecs.SerializableFuncType, descriptor.Codec().EncodedType())

	// A bare anonymous function has no stable identity and must fail with
	// the workaround guidance.
	_, err = built.CodecDescriptorForValue(func() string { return "no" })
	assert.True(registry.IsNoCodec(err))
	assert.Contains(err.Error(), "SerializableFunc")
}

func TestCodecDescriptorForValue_EnumRoundTrip(test *testing.T) {
	assert := assert.New(test)

	built, err := registry.NewBuilder().
		AddType(reflect.TypeOf(rankTier(0))).
		Build()
	if err != nil {
		test.Fatal(err)
	}

	descriptor, err := built.CodecDescriptorForValue(tierGold)
	if !assert.Nil(err) {
		test.FailNow()
	}

	buffer := &bytes.Buffer{}
	err = descriptor.Codec().Encode(built, buffer, tierGold)
	assert.Nil(err)

	decoded, err := descriptor.Codec().Decode(built, buffer)
	assert.Nil(err)
	assert.Equal(tierGold, decoded)
}

func TestCodecDescriptorForValue_NilValue(test *testing.T) {
	assert := assert.New(test)

	built, err := baseBuilder().Build()
	if err != nil {
		test.Fatal(err)
	}

	_, err = built.CodecDescriptorForValue(nil)
	assert.True(registry.IsNoCodec(err))
}
