/*
Package registry implements a type-tagged codec registry: the component that
decides, for any value or previously-assigned tag, which codec serializes it.

A Registry is produced once by a Builder from an unordered set of explicit
codecs, an ordered list of reference constants, and a set of class names
eligible for dynamic codec construction, and is immutable afterwards. Tag
assignment is deterministic for fixed inputs, so two processes built from the
same configuration agree on every tag; the optional checksum turns that
agreement into a byte sequence a handshake layer can compare before
exchanging payloads.

Lookup runs in three tiers: explicit codecs (exact type, pointer chain, then
interface registrations, with results cached per leaf type), the reference
constant index (identity keyed, accessed through MaybeTagForConstant /
MaybeConstantByTag), and dynamic codecs constructed lazily from class names.
Every lookup failure is a NoCodecError; dynamic construction failures are
memoized so a broken class name fails identically until the registry is
rebuilt.

The wire format of individual payloads, and the encoder/decoder that embeds
tags into serialized bytes, live outside this package; it only supplies the
tag numbers and the codecs behind them.
*/
package registry
