// Package merkle verifies the tx_path and data_path proofs that anchor a
// chunk of transaction data to a tx_root, and a transaction's chunk to its
// data_root, respectively. Both proof kinds share the same wire shape and
// the same verification walk; only the root hash and target offset differ
// between callers.
package merkle

import (
	"fmt"

	"github.com/weavevalidator/validator/hashing"
	"github.com/weavevalidator/validator/types"
	"github.com/weavevalidator/validator/verrors"
)

const (
	hashSize = 32
	noteSize = 32
	// branchSize is left_id || right_id || note.
	branchSize = hashSize*2 + noteSize
	// leafSize is data_hash || note.
	leafSize = hashSize + noteSize
	// MaxLeafSize is the chunk size every leaf but the last must equal in
	// strict mode (post strict_data_split_threshold).
	MaxLeafSize = 256 * 1024
)

// Result is what a successfully validated path yields: the leaf's data
// hash and the byte range it covers, [LeftBound, RightBound).
type Result struct {
	LeafHash   types.Hash32
	LeftBound  uint64
	RightBound uint64
}

// toNote renders offset as a 32 byte field: 24 zero bytes followed by the
// 8 byte big-endian offset, matching Arweave's on-the-wire note encoding.
func toNote(offset uint64) []byte {
	note := make([]byte, noteSize)
	be := hashing.BigEndianU64(offset)
	copy(note[noteSize-8:], be)
	return note
}

func noteToOffset(note []byte) uint64 {
	var v uint64
	for _, b := range note[len(note)-8:] {
		v = v<<8 | uint64(b)
	}
	return v
}

func hashAllSHA256(parts ...[]byte) types.Hash32 {
	var buf []byte
	for _, p := range parts {
		h := hashing.SHA256(p)
		buf = append(buf, h.Bytes()...)
	}
	return hashing.SHA256(buf)
}

// ValidatePath walks proofBuf, a concatenation of branch proofs (root to
// leaf) followed by a single leaf proof, verifying each branch's hash
// against the hash expected by its parent and descending toward
// targetOffset. It returns the leaf's data hash and byte range on success.
//
// treeName identifies which tree is being validated ("tx_path" or
// "data_path") purely for error attribution. When strict is true and
// totalSize is nonzero, every leaf but the one ending at totalSize must
// span exactly MaxLeafSize, per the post strict_data_split_threshold rule.
func ValidatePath(treeName string, rootHash types.Hash32, proofBuf []byte, targetOffset uint64, strict bool, totalSize uint64) (Result, error) {
	if len(proofBuf) < leafSize {
		return Result{}, verrors.MerkleProofInvalid(treeName, fmt.Errorf("proof shorter than a bare leaf: %d bytes", len(proofBuf)))
	}
	if (len(proofBuf)-leafSize)%branchSize != 0 {
		return Result{}, verrors.MerkleProofInvalid(treeName, fmt.Errorf("proof length %d does not divide into branches + leaf", len(proofBuf)))
	}

	branchCount := (len(proofBuf) - leafSize) / branchSize
	expected := rootHash
	var leftBound uint64

	for i := 0; i < branchCount; i++ {
		b := proofBuf[i*branchSize : (i+1)*branchSize]
		leftID := types.BytesToHash32(b[0:hashSize])
		rightID := types.BytesToHash32(b[hashSize : 2*hashSize])
		note := b[2*hashSize : branchSize]
		offset := noteToOffset(note)

		pathHash := hashAllSHA256(leftID.Bytes(), rightID.Bytes(), note)
		if pathHash != expected {
			return Result{}, verrors.MerkleProofInvalid(treeName, fmt.Errorf("branch %d: hash mismatch", i))
		}

		if targetOffset >= offset {
			expected = rightID
			leftBound = offset
		} else {
			expected = leftID
		}
	}

	leaf := proofBuf[len(proofBuf)-leafSize:]
	dataHash := types.BytesToHash32(leaf[0:hashSize])
	note := leaf[hashSize:leafSize]
	rightBound := noteToOffset(note)

	leafID := hashAllSHA256(dataHash.Bytes(), note)
	if leafID != expected {
		return Result{}, verrors.MerkleProofInvalid(treeName, fmt.Errorf("leaf: hash mismatch"))
	}

	if strict && totalSize != 0 && rightBound != totalSize && rightBound-leftBound != MaxLeafSize {
		return Result{}, verrors.MerkleProofInvalid(treeName, fmt.Errorf("leaf span %d != %d and not final", rightBound-leftBound, MaxLeafSize))
	}

	return Result{LeafHash: dataHash, LeftBound: leftBound, RightBound: rightBound}, nil
}
