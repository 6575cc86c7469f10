// Package poa validates a block's recall-chunk proofs (poa, poa2): the
// tx_path/data_path Merkle proofs anchoring a chunk to the block's
// tx_root, followed by entropy generation and Feistel unpacking to
// recover the chunk's plaintext and confirm its hash.
package poa

import (
	"fmt"

	"github.com/weavevalidator/validator/blockindex"
	"github.com/weavevalidator/validator/config"
	"github.com/weavevalidator/validator/hashing"
	"github.com/weavevalidator/validator/merkle"
	"github.com/weavevalidator/validator/packing"
	"github.com/weavevalidator/validator/randomx"
	"github.com/weavevalidator/validator/types"
	"github.com/weavevalidator/validator/verrors"
)

// Header is the minimal subset of a block header ValidateChunk needs;
// callers pass fields out of types.BlockHeader directly.
type Header struct {
	TxRoot            types.Hash32
	BlockStartOffset  uint64
	MiningAddress     types.Hash32
	ProgramCount      uint32
	StrictDataSplit   bool
	StrictTotalSize   uint64 // total size for strict leaf-span enforcement; 0 disables
}

// ValidateChunk runs the 6 step PoA recipe against recallByte: resolve the
// covering tx_root (from idx if recallByte predates this block), verify
// tx_path then data_path, generate entropy at the chunk's end offset, and
// Feistel-unpack the declared chunk before comparing its hash.
func ValidateChunk(vm randomx.VM, idx *blockindex.Index, hdr Header, poaData types.PoaData, recallByte uint64, expectedChunkHash types.Hash32, cfg config.Config) error {
	txRoot := hdr.TxRoot
	blockStart := hdr.BlockStartOffset

	if idx != nil && recallByte < hdr.BlockStartOffset {
		bounds, err := idx.GetBounds(recallByte)
		if err != nil {
			return verrors.BlockIndexMiss(int64(recallByte), err)
		}
		txRoot = bounds.TxRoot
		blockStart = bounds.BlockStartOffset
	}

	txTarget := recallByte - blockStart
	txRes, err := merkle.ValidatePath("tx_path", txRoot, poaData.TxPath, txTarget, false, 0)
	if err != nil {
		return err
	}
	dataRoot := txRes.LeafHash
	txStart := txRes.LeftBound

	dataTarget := recallByte - blockStart - txStart
	var strictTotal uint64
	if hdr.StrictDataSplit {
		strictTotal = hdr.StrictTotalSize
	}
	dataRes, err := merkle.ValidatePath("data_path", dataRoot, poaData.DataPath, dataTarget, hdr.StrictDataSplit, strictTotal)
	if err != nil {
		return err
	}
	chunkHashFromProof := dataRes.LeafHash
	chunkEnd := dataRes.RightBound

	chunkAbsoluteEnd := blockStart + txStart + chunkEnd

	entropy, err := packing.DeriveEntropy(vm, chunkAbsoluteEnd, txRoot, hdr.MiningAddress, hdr.ProgramCount)
	if err != nil {
		return verrors.RandomXFault(err)
	}

	if len(poaData.Chunk) != int(cfg.ChunkSize) {
		return verrors.MalformedHeader("poa.chunk", fmt.Errorf("chunk size %d != %d", len(poaData.Chunk), cfg.ChunkSize))
	}
	unpacked, err := packing.Unpack(poaData.Chunk, entropy, int(cfg.FeistelRounds))
	if err != nil {
		return verrors.ChunkUnpackFailed(err)
	}

	gotHash := hashing.SHA256(unpacked)
	if gotHash != chunkHashFromProof {
		return verrors.HashMismatch("poa.chunk (vs data_path leaf)", fmt.Errorf("unpacked chunk hash mismatch"))
	}
	if gotHash != expectedChunkHash {
		return verrors.HashMismatch("chunk_hash", fmt.Errorf("unpacked chunk hash does not match declared chunk_hash"))
	}

	return nil
}
