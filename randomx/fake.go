package randomx

import (
	"crypto/sha256"
	"encoding/binary"
	"io"

	"golang.org/x/crypto/hkdf"

	"github.com/weavevalidator/validator/types"
)

// FakeVM is a deterministic, pure Go stand-in for the cgo-backed VM, used
// in tests that don't need real RandomX proof-of-work, only a stable
// hash/scratchpad relationship: same key and input always produce the same
// output, and different inputs produce different output with
// overwhelming probability. It satisfies the VM interface so the packing,
// PoA, and orchestrator tests can run without the RandomX C library
// present.
type FakeVM struct {
	Key []byte
}

func NewFakeVM(key []byte) *FakeVM { return &FakeVM{Key: key} }

func (f *FakeVM) Hash(input []byte) (types.Hash32, error) {
	h := sha256.New()
	h.Write(f.Key)
	h.Write(input)
	var out types.Hash32
	h.Sum(out[:0])
	return out, nil
}

// EntropyScratchpad expands (key, input, programCount) into ScratchpadSize
// bytes via HKDF-SHA256, keyed by f.Key with input||programCount as salt,
// standing in for real RandomX's own dataset-expansion step. One HKDF-SHA256
// expansion yields at most 255*32 bytes, so the scratchpad is filled in
// 4 KiB segments, each expanded from the same extracted key with the
// segment number appended to the info string.
func (f *FakeVM) EntropyScratchpad(input []byte, programCount uint32) ([]byte, error) {
	salt := make([]byte, len(input)+4)
	copy(salt, input)
	binary.BigEndian.PutUint32(salt[len(input):], programCount)

	const segment = 4096
	prk := hkdf.Extract(sha256.New, f.Key, salt)
	out := make([]byte, ScratchpadSize)
	for i := 0; i < ScratchpadSize/segment; i++ {
		info := binary.BigEndian.AppendUint32([]byte("arweave-scratchpad"), uint32(i))
		r := hkdf.Expand(sha256.New, prk, info)
		if _, err := io.ReadFull(r, out[i*segment:(i+1)*segment]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (f *FakeVM) Close() {}
