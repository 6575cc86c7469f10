// Package packing derives per-chunk RandomX entropy and applies the
// Feistel cipher Arweave uses to "pack" (encrypt) and "unpack" (decrypt) a
// 256 KiB chunk of weave data against that entropy.
package packing

import (
	"crypto/aes"
	"fmt"

	"github.com/weavevalidator/validator/hashing"
	"github.com/weavevalidator/validator/randomx"
	"github.com/weavevalidator/validator/types"
)

// FeistelBlockSize is the fixed size in bytes of one Feistel half-block,
// taken from the reference implementation's FEISTEL_BLOCK_LENGTH. A 256
// KiB chunk splits into chunkSize/FeistelBlockSize such blocks, paired
// into (L, R) halves.
const FeistelBlockSize = 32

// roundKeySize is the AES-256 key size carved out of the entropy buffer
// for each round key.
const roundKeySize = 32

// roundKeyWindow bounds how much of the entropy buffer the round-key
// schedule addresses before cycling back to the start; this
// implementation's own choice (no reference schedule survives in the
// source this was ported from), sized to the scratchpad so every
// available entropy byte is reachable.
const roundKeyWindow = randomx.ScratchpadSize / roundKeySize

// ChunkEntropyInput computes the SHA-256 seed fed to RandomX's scratchpad
// generator: chunk_offset (32 byte big-endian) || tx_root || reward_addr.
func ChunkEntropyInput(chunkOffset uint64, txRoot, rewardAddr types.Hash32) types.Hash32 {
	offsetBE := make([]byte, 32)
	be8 := hashing.BigEndianU64(chunkOffset)
	copy(offsetBE[24:], be8)
	return hashing.SHA256(offsetBE, txRoot.Bytes(), rewardAddr.Bytes())
}

// DeriveEntropy runs vm's scratchpad generator over the chunk's entropy
// input, returning the 256 KiB buffer used as Feistel key material.
func DeriveEntropy(vm randomx.VM, chunkOffset uint64, txRoot, rewardAddr types.Hash32, programCount uint32) ([]byte, error) {
	input := ChunkEntropyInput(chunkOffset, txRoot, rewardAddr)
	e, err := vm.EntropyScratchpad(input.Bytes(), programCount)
	if err != nil {
		return nil, fmt.Errorf("packing: entropy generation: %w", err)
	}
	if len(e) != randomx.ScratchpadSize {
		return nil, fmt.Errorf("packing: entropy size %d, want %d", len(e), randomx.ScratchpadSize)
	}
	return e, nil
}

// numBlocks returns how many FeistelBlockSize blocks a chunkSize chunk
// divides into; it must be even since blocks are processed in (L, R)
// pairs.
func numBlocks(chunkSize int) (int, error) {
	if chunkSize <= 0 || chunkSize%FeistelBlockSize != 0 {
		return 0, fmt.Errorf("packing: chunk size %d does not divide into %d byte blocks", chunkSize, FeistelBlockSize)
	}
	n := chunkSize / FeistelBlockSize
	if n%2 != 0 {
		return 0, fmt.Errorf("packing: chunk size %d yields an odd block count %d", chunkSize, n)
	}
	return n, nil
}

// roundKey returns round r's AES-256 key for Feistel block index b (the
// global block index of the L half of the pair being processed), sliced
// from entropy at a 32 byte granularity cycling every roundKeyWindow
// blocks.
func roundKey(entropy []byte, b, r, rounds int) []byte {
	idx := (b*rounds + r) % roundKeyWindow
	start := idx * roundKeySize
	return entropy[start : start+roundKeySize]
}

// feistelF is the Feistel round function: AES-256-ENC(key, block) applied
// independently to each 16 byte AES block composing x, concatenated back
// together. x may be any multiple of 16 bytes.
func feistelF(x, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("packing: aes key schedule: %w", err)
	}
	if len(x)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("packing: feistel half size %d not a multiple of %d", len(x), aes.BlockSize)
	}
	out := make([]byte, len(x))
	for off := 0; off < len(x); off += aes.BlockSize {
		block.Encrypt(out[off:off+aes.BlockSize], x[off:off+aes.BlockSize])
	}
	return out, nil
}

func xorBytes(dst, a, b []byte) {
	for i := range dst {
		dst[i] = a[i] ^ b[i]
	}
}

// Pack Feistel-encrypts plaintext (exactly chunkSize bytes) using entropy
// (exactly randomx.ScratchpadSize bytes) as key material over the given
// number of rounds, returning the packed chunk.
func Pack(plaintext, entropy []byte, rounds int) ([]byte, error) {
	return runFeistel(plaintext, entropy, rounds, false)
}

// Unpack Feistel-decrypts packed back to plaintext; unpack(pack(x, E), E)
// == x for any x, E of the right sizes.
func Unpack(packed, entropy []byte, rounds int) ([]byte, error) {
	return runFeistel(packed, entropy, rounds, true)
}

func runFeistel(data, entropy []byte, rounds int, invert bool) ([]byte, error) {
	n, err := numBlocks(len(data))
	if err != nil {
		return nil, err
	}
	bs := FeistelBlockSize
	if len(entropy) != randomx.ScratchpadSize {
		return nil, fmt.Errorf("packing: entropy size %d, want %d", len(entropy), randomx.ScratchpadSize)
	}

	out := make([]byte, len(data))
	copy(out, data)

	numHalves := n / 2
	for i := 0; i < numHalves; i++ {
		lSlice := out[2*i*bs : (2*i+1)*bs]
		rSlice := out[(2*i+1)*bs : (2*i+2)*bs]

		// b is the global block index of the L half of pair i.
		b := 2 * i

		l := append([]byte(nil), lSlice...)
		r := append([]byte(nil), rSlice...)

		if !invert {
			// Forward Feistel: L_{k+1} = R_k; R_{k+1} = L_k ^ F(R_k, K_k).
			for round := 0; round < rounds; round++ {
				key := roundKey(entropy, b, round, rounds)
				f, err := feistelF(r, key)
				if err != nil {
					return nil, err
				}
				newR := make([]byte, bs)
				xorBytes(newR, l, f)
				l, r = r, newR
			}
		} else {
			// Inverse Feistel, rounds undone last-applied-first:
			// L_k = R_{k+1} ^ F(L_{k+1}, K_k); R_k = L_{k+1}.
			for round := rounds - 1; round >= 0; round-- {
				key := roundKey(entropy, b, round, rounds)
				f, err := feistelF(l, key)
				if err != nil {
					return nil, err
				}
				newL := make([]byte, bs)
				xorBytes(newL, r, f)
				l, r = newL, l
			}
		}

		copy(out[2*i*bs:(2*i+1)*bs], l)
		copy(out[(2*i+1)*bs:(2*i+2)*bs], r)
	}

	return out, nil
}
