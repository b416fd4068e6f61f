// Helpers for computing canonical, fully-qualified type names used as dispatch
// keys by the codec registry.
package typenames

import (
	"reflect"
	"strings"
)

// Maximum number of container layers Normalize will unwrap before giving up.
// Guards against pathological nesting.
const maxUnwrap = 16

/*
Canonical returns the fully-qualified name of a type: "pkgpath.Name" for named
types, and the reflect string representation for everything else (builtins,
pointers, anonymous structs, and so on). Two distinct types in the same process
never share a canonical name, and the name of a given type is stable across
processes built from the same source, which is what makes it usable as a
deterministic registry key.
*/
func Canonical(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	if t.PkgPath() != "" {
		return t.PkgPath() + "." + t.Name()
	}
	return t.String()
}

// ForValue returns the canonical name of a value's dynamic type after pointer
// normalization. Returns "<nil>" for an untyped nil.
func ForValue(v interface{}) string {
	if v == nil {
		return "<nil>"
	}
	return Canonical(Normalize(reflect.TypeOf(v)))
}

// Normalize collapses pointer chains onto the pointed-to type so that a *T
// value dispatches under the same name as a T value. Other container kinds are
// left alone: a []T or map[K]V is its own encodable shape, unlike a pointer,
// which is just an indirection to one.
func Normalize(t reflect.Type) reflect.Type {
	for i := 0; t != nil && t.Kind() == reflect.Ptr && i < maxUnwrap; i++ {
		t = t.Elem()
	}
	return t
}

/*
TruncateSynthetic trims the compiler-generated suffix of a synthetic function
name. Anonymous functions are named "Enclosing.func1", "Enclosing.func2.1",
etc., and the numbering is an artifact of source layout rather than identity,
so checksums over registry contents hash only the enclosing name.
*/
func TruncateSynthetic(name string) string {
	if idx := strings.Index(name, ".func"); idx != -1 {
		return name[:idx]
	}
	return name
}
