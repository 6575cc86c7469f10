// Package blockhash reconstructs a block's canonical signed-field preimage,
// assembles the SPoRA mining and solution hashes, and tests the declared
// difficulty against both the solution hash and the expected retargeted
// value derived from the previous block.
package blockhash

import (
	"math/big"

	"github.com/holiman/uint256"

	"github.com/weavevalidator/validator/config"
	"github.com/weavevalidator/validator/hashing"
	"github.com/weavevalidator/validator/types"
)

func decimalU64(v uint64) []byte {
	return hashing.DecimalASCII(new(uint256.Int).SetUint64(v))
}

func decimalU64Ptr(v *uint64) []byte {
	if v == nil {
		return []byte("0")
	}
	return decimalU64(*v)
}

// reverseHash32 returns a copy of hs in reverse order. The CORE stores a
// nonce_limiter_info's checkpoint arrays in chronological order (see
// types.NonceLimiterInfo), but the network's own hash_preimage was
// assembled from the wire's descending-order arrays, so Preimage must
// un-reverse them before folding them into deep_hash.
func reverseHash32(hs []types.Hash32) []types.Hash32 {
	out := make([]types.Hash32, len(hs))
	for i, h := range hs {
		out[len(hs)-1-i] = h
	}
	return out
}

func hashList(hs []types.Hash32) hashing.Item {
	items := make([]hashing.Item, len(hs))
	for i, h := range hs {
		items[i] = hashing.Blob(h.Bytes())
	}
	return hashing.List(items...)
}

func poaItem(p types.PoaData) hashing.Item {
	return hashing.List(
		hashing.Blob(p.Chunk),
		hashing.Blob(p.TxPath),
		hashing.Blob(p.DataPath),
	)
}

// Preimage reconstructs hash_preimage by deep_hash over the canonical
// ordered field list of §6: every field the network signs, in the order
// it signs them.
func Preimage(h *types.BlockHeader) types.Hash48 {
	var chunk2Hash types.Hash32
	if h.Chunk2Hash != nil {
		chunk2Hash = *h.Chunk2Hash
	}

	ni := h.NonceLimiterInfo

	nonceLimiterItem := hashing.List(
		hashing.Blob(ni.Output.Bytes()),
		hashing.Blob(decimalU64(ni.GlobalStepNumber)),
		hashing.Blob(ni.Seed.Bytes()),
		hashing.Blob(ni.NextSeed.Bytes()),
		hashing.Blob(decimalU64(ni.ZoneUpperBound)),
		hashing.Blob(decimalU64(ni.NextZoneUpperBound)),
		hashing.Blob(ni.PrevOutput.Bytes()),
		hashList(reverseHash32(ni.LastStepCheckpoints[:])),
		hashList(reverseHash32(ni.Checkpoints)),
	)

	txItems := make([]hashing.Item, len(h.Txs))
	for i, tx := range h.Txs {
		txItems[i] = hashing.Blob(tx)
	}

	tagItems := make([]hashing.Item, len(h.Tags))
	for i, tag := range h.Tags {
		tagItems[i] = hashing.List(hashing.Blob(tag.Name), hashing.Blob(tag.Value))
	}

	root := hashing.List(
		hashing.Blob(h.PreviousBlock.Bytes()),
		hashing.Blob(decimalU64(h.Timestamp)),
		hashing.Blob(decimalU64(h.Nonce)),
		hashing.Blob(decimalU64(h.Height)),
		hashing.Blob(hashing.DecimalASCII(h.Diff)),
		hashing.Blob(hashing.DecimalASCII(h.CumulativeDiff)),
		hashing.Blob(decimalU64(h.LastRetarget)),
		hashing.Blob(h.HashPreimage.Bytes()),
		hashing.Blob(hashing.DecimalASCII(h.BlockSize)),
		hashing.Blob(hashing.DecimalASCII(h.WeaveSize)),
		hashing.Blob(h.RewardAddr.Bytes()),
		hashing.Blob(h.TxRoot.Bytes()),
		hashing.Blob(h.WalletList.Bytes()),
		hashing.Blob(h.HashListMerkle.Bytes()),
		hashing.Blob(hashing.DecimalASCII(h.RewardPool)),
		hashing.Blob(hashing.DecimalASCII(h.Packing25Threshold)),
		hashing.Blob(hashing.DecimalASCII(h.StrictDataSplitThreshold)),
		hashing.List(hashing.Blob(decimalU64(h.USDToARRate[0])), hashing.Blob(decimalU64(h.USDToARRate[1]))),
		hashing.List(hashing.Blob(decimalU64(h.ScheduledUSDToARRate[0])), hashing.Blob(decimalU64(h.ScheduledUSDToARRate[1]))),
		hashing.List(tagItems...),
		hashing.List(txItems...),
		hashing.Blob(h.RewardKey),
		hashing.Blob(hashing.DecimalASCII(h.PricePerGiBMinute)),
		hashing.Blob(hashing.DecimalASCII(h.ScheduledPricePerGiBMinute)),
		hashing.Blob(h.RewardHistoryHash.Bytes()),
		hashing.Blob(hashing.DecimalASCII(h.DebtSupply)),
		hashing.Blob(hashing.DecimalASCII(h.KryderPlusRateMultiplier)),
		hashing.Blob(hashing.DecimalASCII(h.Denomination)),
		hashing.Blob(decimalU64(h.RedenominationHeight)),
		hashing.Blob(h.PreviousSolutionHash.Bytes()),
		hashing.Blob(decimalU64(h.PartitionNumber)),
		nonceLimiterItem,
		poaItem(h.Poa),
		poaItem(h.Poa2),
		hashing.Blob(hashing.DecimalASCII(h.RecallByte)),
		hashing.Blob(hashing.DecimalASCII(h.RecallByte2)),
		hashing.Blob(hashing.DecimalASCII(h.Reward)),
		hashing.Blob(hashing.DecimalASCII(h.PreviousCumulativeDiff)),
		hashing.Blob(hashing.DecimalASCII(h.MerkleRebaseSupportThreshold)),
		hashing.Blob(h.ChunkHash.Bytes()),
		hashing.Blob(chunk2Hash.Bytes()),
		hashing.Blob(h.BlockTimeHistoryHash.Bytes()),
		hashing.Blob(decimalU64Ptr(ni.VDFDifficulty)),
		hashing.Blob(decimalU64Ptr(ni.NextVDFDifficulty)),
	)

	return hashing.DeepHash(root)
}

// MiningHash is the SPoRA mining hash bound into the solution hash: a
// SHA-256 over the partition number, the current VDF step's output, the
// mining address, and the VDF seed in force for this step.
func MiningHash(partitionNumber uint64, nonceLimiterOutput types.Hash32, miningAddress types.Hash32, vdfSeed types.Hash48) types.Hash32 {
	return hashing.SHA256(
		hashing.BigEndianU64(partitionNumber),
		nonceLimiterOutput.Bytes(),
		miningAddress.Bytes(),
		vdfSeed.Bytes(),
	)
}

// SolutionHash folds the mining hash together with both recall chunks'
// verified plaintext hashes into the 384-bit value the difficulty test is
// run against.
func SolutionHash(miningHash types.Hash32, poaChunkHash types.Hash32, poa2ChunkHash types.Hash32) types.Hash48 {
	miningHashDigest := hashing.SHA256(miningHash.Bytes())
	return hashing.SHA384(miningHashDigest.Bytes(), poaChunkHash.Bytes(), poa2ChunkHash.Bytes())
}

var twoTo384 = new(big.Int).Lsh(big.NewInt(1), 384)

// DifficultyMet reports whether solutionHash, read as a big-endian 384-bit
// integer, satisfies solutionHash * diff >= 2^384. The comparison needs an
// arbitrary-width integer wider than the 256-bit uint256.Int used
// elsewhere in the validator, so this one site uses math/big instead; see
// DESIGN.md.
func DifficultyMet(solutionHash types.Hash48, diff *uint256.Int) bool {
	if diff == nil {
		return false
	}
	h := new(big.Int).SetBytes(solutionHash.Bytes())
	d := diff.ToBig()
	product := new(big.Int).Mul(h, d)
	return product.Cmp(twoTo384) >= 0
}

// IsRetargetHeight reports whether height is a difficulty-retarget
// boundary: a nonzero multiple of cfg.RetargetBlocks.
func IsRetargetHeight(height uint64, cfg config.Config) bool {
	return height != 0 && height%cfg.RetargetBlocks == 0
}

var maxU256 = func() *uint256.Int {
	m := new(uint256.Int)
	return m.Not(m) // all-ones: 2^256 - 1
}()

// ExpectedDifficulty returns the difficulty height must declare: the
// previous block's difficulty unchanged off a retarget boundary, or a
// retargeted value computed from the elapsed wall-clock time since the
// previous retarget, clamped to at least cfg.MinSporaDifficulty.
func ExpectedDifficulty(height uint64, timestamp uint64, previousLastRetarget uint64, previousDiff *uint256.Int, cfg config.Config) *uint256.Int {
	if !IsRetargetHeight(height, cfg) {
		return previousDiff
	}

	maxDeviation := cfg.JoinClockTolerance*2 + cfg.ClockDriftMax
	targetTime := cfg.RetargetBlocks * cfg.TargetTimeSeconds

	var elapsed uint64
	if timestamp > previousLastRetarget {
		elapsed = timestamp - previousLastRetarget
	}
	actualTime := elapsed
	if actualTime < maxDeviation {
		actualTime = maxDeviation
	}

	upperBound := targetTime + cfg.TargetTimeSeconds
	lowerBound := targetTime - cfg.TargetTimeSeconds
	if actualTime < upperBound && actualTime > lowerBound {
		return previousDiff
	}

	one := uint256.NewInt(1)
	actualTimeU256 := uint256.NewInt(actualTime)
	targetTimeU256 := uint256.NewInt(targetTime)

	headroom := new(uint256.Int).Sub(maxU256, previousDiff)
	headroom.Add(headroom, one)

	diffInverse := new(uint256.Int).Mul(headroom, actualTimeU256)
	diffInverse.Div(diffInverse, targetTimeU256)

	computed := new(uint256.Int).Sub(maxU256, diffInverse)
	computed.Add(computed, one)

	minDiff := uint256.NewInt(cfg.MinSporaDifficulty)
	if computed.Lt(minDiff) {
		return minDiff
	}
	return computed
}

// ExpectedCumulativeDifficulty returns the cumulative difficulty a block
// at diff must declare, given its predecessor's cumulative difficulty:
// previousCumulativeDiff + (maxU256 / (maxU256 - diff)).
func ExpectedCumulativeDifficulty(previousCumulativeDiff *uint256.Int, diff *uint256.Int) *uint256.Int {
	denom := new(uint256.Int).Sub(maxU256, diff)
	if denom.IsZero() {
		return previousCumulativeDiff
	}
	delta := new(uint256.Int).Div(maxU256, denom)
	return new(uint256.Int).Add(previousCumulativeDiff, delta)
}
