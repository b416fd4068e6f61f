package registry_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/illuscio-dev/spanreg-go/registry"
)

func buildWithChecksum(test *testing.T, configure func(*registry.Builder)) *registry.Registry {
	builder := registry.NewBuilder().ComputeChecksum(true)
	if configure != nil {
		configure(builder)
	}
	built, err := builder.Build()
	if err != nil {
		test.Fatal(err)
	}
	return built
}

func TestChecksum_DisabledByDefault(test *testing.T) {
	assert := assert.New(test)

	built, err := registry.NewBuilder().Build()
	if err != nil {
		test.Fatal(err)
	}
	assert.Nil(built.Checksum())
}

func TestChecksum_CoversAllowDefaultFlag(test *testing.T) {
	assert := assert.New(test)

	allowing := buildWithChecksum(test, nil)
	denying := buildWithChecksum(test, func(builder *registry.Builder) {
		builder.SetAllowDefaultCodec(false)
	})

	// Same (empty) tag assignment, different wire semantics: the digest must
	// tell them apart.
	assert.NotEqual(allowing.Checksum(), denying.Checksum())
}

func TestChecksum_CoversClassNames(test *testing.T) {
	assert := assert.New(test)

	withEvent := buildWithChecksum(test, func(builder *registry.Builder) {
		builder.AddClassName("github.com/example/scores.Event")
	})
	withOther := buildWithChecksum(test, func(builder *registry.Builder) {
		builder.AddClassName("github.com/example/scores.Other")
	})

	assert.NotEqual(withEvent.Checksum(), withOther.Checksum())
}

func TestChecksum_TruncatesSyntheticFunctionNames(test *testing.T) {
	assert := assert.New(test)

	// Synthetic numbering is a source-layout artifact; registries that differ
	// only in it must agree.
	first := buildWithChecksum(test, func(builder *registry.Builder) {
		builder.AddClassName("github.com/example/scores.Outer.func1")
	})
	second := buildWithChecksum(test, func(builder *registry.Builder) {
		builder.AddClassName("github.com/example/scores.Outer.func2")
	})

	assert.Equal(first.Checksum(), second.Checksum())
}

func TestChecksum_ReturnsDefensiveCopy(test *testing.T) {
	assert := assert.New(test)

	built := buildWithChecksum(test, func(builder *registry.Builder) {
		builder.AddClassName("github.com/example/scores.Event")
	})

	mutated := built.Checksum()
	for i := range mutated {
		mutated[i] = 0
	}
	assert.NotEqual(mutated, built.Checksum())
}
