package registry

import (
	"crypto/sha256"
	"hash"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/illuscio-dev/spanreg-go/typenames"
)

/*
checksumAccumulator streams the registry's deterministic (tag, class name)
sequence into a SHA-256 digest. Entries are framed with protobuf wire
primitives -- an unprefixed varint for the tag and a length-prefixed string
for the name -- so two registries agree on the digest exactly when they agree
on the full tag assignment.
*/
type checksumAccumulator struct {
	digest  hash.Hash
	scratch []byte
}

func newChecksumAccumulator() *checksumAccumulator {
	return &checksumAccumulator{
		digest:  sha256.New(),
		scratch: make([]byte, 0, 128),
	}
}

func (accumulator *checksumAccumulator) writeBool(value bool) {
	var encoded uint64
	if value {
		encoded = 1
	}
	accumulator.scratch = protowire.AppendVarint(accumulator.scratch[:0], encoded)
	accumulator.flush()
}

// writeEntry hashes one (tag, class name) pair. Synthetic function-name
// suffixes are truncated first: their numbering is unstable across builds and
// would break cross-process digest agreement.
func (accumulator *checksumAccumulator) writeEntry(tag int, className string) {
	className = typenames.TruncateSynthetic(className)
	accumulator.scratch = protowire.AppendVarint(accumulator.scratch[:0], uint64(tag))
	accumulator.scratch = protowire.AppendString(accumulator.scratch, className)
	accumulator.flush()
}

func (accumulator *checksumAccumulator) flush() {
	// hash.Hash writes never fail.
	_, _ = accumulator.digest.Write(accumulator.scratch)
}

func (accumulator *checksumAccumulator) sum() []byte {
	return accumulator.digest.Sum(nil)
}
