/*
Package codecs defines the codec capability consumed by the registry package,
the dynamic codec arms the registry constructs on demand (enum, protobuf
message, and generic reflective codecs), and a small set of stock explicit
codecs for common wire types (JSON-encoded values, UUIDs, raw BSON documents).

Dynamic construction is dispatched through ForType: named integer types get an
ordinal-based enum codec, proto.Message implementations get a deterministic
protobuf codec, and everything else falls through to a reflective codec over
deterministic CBOR.

Function values are the one shape that cannot be constructed dynamically.
Closures that need serialization must be declared as named func types
implementing SerializableFunc and registered through RegisterFunc; the shared
FunctionCodec then encodes them by identifier.
*/
package codecs
