package types

// Chunk is a single unit of weave data addressed by its absolute end
// offset (the offset of the last byte of the chunk, counted from the
// start of the weave).
type Chunk struct {
	DataRoot          Hash32
	DataSize          uint64
	DataPath          []byte
	TxPath            []byte
	Offset            uint64 // relative offset inside the transaction
	AbsoluteEndOffset uint64
	TxRoot            Hash32
}

// ProofNode is one decoded branch node of a tx_path/data_path.
// merkle.ValidatePath decodes branches internally and returns only the
// leaf's Result; it does not produce ProofNodes.
type ProofNode struct {
	LeftHash  Hash32
	RightHash Hash32
	// Offset is the boundary offset encoded at this branch, i.e. the note
	// carried alongside the two child hashes in the hashed triplet.
	Offset uint64
}
