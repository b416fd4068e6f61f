package registry

import (
	"io"

	"golang.org/x/xerrors"
	"gopkg.in/yaml.v2"
)

/*
Manifest is the YAML form of a registry's builder inputs, for deployments
that configure the eligible class-name set outside of code:

	allow_default_codec: true
	compute_checksum: true
	class_names:
	  - github.com/example/scores.Request
	excluded_class_name_prefixes:
	  - github.com/example/internal

Codecs and reference constants cannot be expressed in a manifest; they are
runtime objects and must be added in code.
*/
type Manifest struct {
	// AllowDefaultCodec is a pointer so an absent key leaves the builder's
	// default (true) untouched.
	AllowDefaultCodec *bool `yaml:"allow_default_codec"`

	ComputeChecksum bool `yaml:"compute_checksum"`

	ClassNames []string `yaml:"class_names"`

	ExcludedClassNamePrefixes []string `yaml:"excluded_class_name_prefixes"`
}

// LoadManifest decodes a manifest from reader.
func LoadManifest(reader io.Reader) (*Manifest, error) {
	manifest := &Manifest{}
	if err := yaml.NewDecoder(reader).Decode(manifest); err != nil {
		return nil, xerrors.Errorf("error decoding registry manifest: %w", err)
	}
	return manifest, nil
}

// Apply copies the manifest's settings onto builder and returns it.
func (manifest *Manifest) Apply(builder *Builder) *Builder {
	if manifest.AllowDefaultCodec != nil {
		builder.SetAllowDefaultCodec(*manifest.AllowDefaultCodec)
	}
	builder.ComputeChecksum(manifest.ComputeChecksum)

	for _, className := range manifest.ClassNames {
		builder.AddClassName(className)
	}
	for _, prefix := range manifest.ExcludedClassNamePrefixes {
		builder.ExcludeClassNamePrefix(prefix)
	}
	return builder
}
