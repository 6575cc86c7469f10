package types

import "github.com/holiman/uint256"

// NumCheckpointsInVDFStep is the number of checkpoints composing a single
// VDF step (each checkpoint being vdf_difficulty sequential SHA-256
// iterations), and the fixed length of LastStepCheckpoints.
const NumCheckpointsInVDFStep = 25

// NonceLimiterInfo is the VDF state attached to a block header.
type NonceLimiterInfo struct {
	Output              Hash32
	GlobalStepNumber     uint64
	PrevOutput           Hash32
	Seed                 Hash48
	NextSeed             Hash48
	ZoneUpperBound       uint64
	NextZoneUpperBound   uint64
	// LastStepCheckpoints and Checkpoints are stored in chronological
	// order (index 0 is earliest); the wire format's descending order is
	// reversed by the JSON decoder, not here.
	LastStepCheckpoints [NumCheckpointsInVDFStep]Hash32
	Checkpoints         []Hash32
	VDFDifficulty        *uint64 // iterations per checkpoint; nil pre-fork 2.6, then config.VDFSha1s/NumCheckpointsInVDFStep is used
	NextVDFDifficulty    *uint64
}

// PoaData is a single recall-chunk proof (poa or poa2).
type PoaData struct {
	Chunk         []byte // plaintext or packed chunk bytes, <= chunk size
	TxPath        []byte
	DataPath      []byte
	UnpackedChunk []byte // optional; poa.ValidateChunk does not fill it in
}

// DoubleSigningProof is carried on the header purely so the canonical
// preimage has a field to serialize; the CORE does not interpret it.
type DoubleSigningProof struct {
	PubKey      []byte
	Sig1        []byte
	CDiff1      *uint256.Int
	PrevCDiff1  *uint256.Int
	Preimage1   []byte
	Sig2        []byte
	CDiff2      *uint256.Int
	PrevCDiff2  *uint256.Int
	Preimage2   []byte
}

// Tag is a transaction tag leaf used in the canonical preimage's tags list.
type Tag struct {
	Name  []byte
	Value []byte
}

// BlockHeader is the CORE's in-memory representation of a received block.
// Field names and grouping follow spec.md §3 and the canonical field order
// of spec.md §6; it is populated by an external JSON decoder (see
// jsontypes), never constructed from raw wire bytes inside the CORE.
type BlockHeader struct {
	IndepHash Hash48 // the block's own SHA-384 hash
	PreviousBlock Hash48
	Height    uint64
	Timestamp uint64
	Nonce     uint64

	RewardAddr Hash32
	TxRoot     Hash32
	WalletList Hash32

	HashPreimage Hash32
	HashListMerkle Hash32

	Diff              *uint256.Int
	CumulativeDiff     *uint256.Int
	PreviousCumulativeDiff *uint256.Int
	LastRetarget      uint64

	BlockSize  *uint256.Int
	WeaveSize  *uint256.Int
	RewardPool *uint256.Int

	Packing25Threshold       *uint256.Int
	Packing26Threshold       *uint256.Int
	StrictDataSplitThreshold *uint256.Int
	MerkleRebaseSupportThreshold *uint256.Int

	USDToARRate          [2]uint64
	ScheduledUSDToARRate [2]uint64

	Tags []Tag
	Txs  [][]byte

	Reward      *uint256.Int
	RecallByte  *uint256.Int
	RecallByte2 *uint256.Int

	RewardKey []byte

	PartitionNumber    uint64
	NonceLimiterInfo   NonceLimiterInfo

	PreviousSolutionHash Hash32

	PricePerGiBMinute          *uint256.Int
	ScheduledPricePerGiBMinute *uint256.Int
	RewardHistoryHash          Hash32

	DebtSupply                    *uint256.Int
	KryderPlusRateMultiplier      *uint256.Int
	KryderPlusRateMultiplierLatch *uint256.Int
	Denomination                  *uint256.Int
	RedenominationHeight           uint64

	DoubleSigningProof *DoubleSigningProof

	Poa  PoaData
	Poa2 PoaData

	ChunkHash  Hash32
	Chunk2Hash *Hash32 // optional

	BlockTimeHistoryHash Hash32

	Signature []byte

	MiningAddress Hash32
}
