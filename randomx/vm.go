// Package randomx wraps the RandomX proof-of-work primitive the way the
// validator needs it: a keyed full hash, and a keyed "entropy scratchpad"
// — the raw working memory left behind after running a fixed number of
// RandomX programs, which is what Arweave's packing scheme XORs (via a
// Feistel cipher) against a chunk of weave data.
package randomx

import (
	"github.com/weavevalidator/validator/types"
)

// VM is the capability the validator consumes. Implementations are
// expected to be safe for concurrent use by a single goroutine at a time;
// callers needing parallelism hold one VM per worker, all sharing the same
// read-only dataset.
type VM interface {
	// Hash computes the full RandomX hash of input under the VM's current
	// key, returning a 32 byte digest.
	Hash(input []byte) (types.Hash32, error)

	// EntropyScratchpad runs programCount RandomX programs seeded from
	// input and returns the final scratchpad contents verbatim. The
	// returned slice is exactly ScratchpadSize bytes.
	EntropyScratchpad(input []byte, programCount uint32) ([]byte, error)

	// Close releases the VM's resources. The underlying dataset, if
	// shared via a Pool, is unaffected.
	Close()
}

// ScratchpadSize is the fixed size of both a RandomX scratchpad and an
// Arweave chunk: 256 KiB.
const ScratchpadSize = 256 * 1024
