// Package validator orchestrates the full block acceptance sequence: a
// cheap VDF fast check, block-hash reconstruction and difficulty test,
// recall-chunk PoA validation, and finally the expensive full VDF replay.
// Any step failing is fatal; no step is retried.
package validator

import (
	"context"
	"fmt"
	"time"

	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/weavevalidator/validator/blockhash"
	"github.com/weavevalidator/validator/blockindex"
	"github.com/weavevalidator/validator/config"
	"github.com/weavevalidator/validator/log"
	"github.com/weavevalidator/validator/metrics_config"
	"github.com/weavevalidator/validator/poa"
	"github.com/weavevalidator/validator/randomx"
	"github.com/weavevalidator/validator/types"
	"github.com/weavevalidator/validator/vdf"
	"github.com/weavevalidator/validator/verrors"
)

var (
	validationHistogram = metrics_config.NewHistogram("validator_block_validation_seconds", "time to validate a single block header")
	blocksAccepted       = metrics_config.NewCounter("validator_blocks_accepted_total", "blocks that passed every validation step")
	blocksRejected       = metrics_config.NewCounterVec("validator_blocks_rejected_total", "blocks rejected, labeled by the failing step", "step")
)

func observeRejection(step string) {
	if blocksRejected != nil {
		blocksRejected.WithLabelValues(step).Inc()
	}
}

var zeroHash32 types.Hash32

// uint64Of truncates v to a uint64, treating nil as zero. The validator's
// recall offsets and weave sizes are modeled as u256 per spec.md, but in
// practice stay well under 2^64; truncation is a latent limitation worth
// flagging if the weave ever approaches that size.
func uint64Of(v *uint256.Int) uint64 {
	if v == nil {
		return 0
	}
	return v.Uint64()
}

// programCount returns the RandomX program count for a chunk offset:
// packing-2.6 (45 programs) once the offset reaches packing26Threshold,
// packing-2.5 (8 programs) otherwise.
func programCount(offset uint64, packing26Threshold *uint256.Int, cfg config.Config) uint32 {
	if packing26Threshold != nil && uint256.NewInt(offset).Cmp(packing26Threshold) >= 0 {
		return cfg.RandomXProgramCount26
	}
	return cfg.RandomXProgramCount25
}

// requiresPoa2 reports whether cur must carry a second recall chunk: true
// when cur declares a nonzero recall_byte2 and a packing_2_6_threshold. The
// partition number and the threshold's value are not compared.
func requiresPoa2(cur *types.BlockHeader, cfg config.Config) bool {
	return cur.RecallByte2 != nil && cur.Packing26Threshold != nil && cur.RecallByte2.Sign() > 0
}

// Validate runs the ordered check sequence against cur given its verified
// predecessor prev: VDF fast check, block-hash reconstruction and
// equality, difficulty test (both the solution hash and the expected
// retargeted difficulty), PoA/PoA2 chunk validation, and full VDF replay.
func Validate(ctx context.Context, cur *types.BlockHeader, prev *types.BlockHeader, idx *blockindex.Index, vm randomx.VM, cfg config.Config) error {
	start := time.Now()
	if validationHistogram != nil {
		timer := prometheus.NewTimer(validationHistogram)
		defer timer.ObserveDuration()
	}
	defer func() {
		log.Debugf("block %d validated in %s", cur.Height, time.Since(start))
	}()

	if err := checkStructure(cur, prev); err != nil {
		observeRejection("structure")
		return fmt.Errorf("structure: %w", err)
	}

	if err := vdf.FastCheck(cur.NonceLimiterInfo, cfg); err != nil {
		observeRejection("vdf_fast_check")
		return fmt.Errorf("vdf_fast_check: %w", err)
	}

	computedPreimage := blockhash.Preimage(cur)
	if computedPreimage != cur.IndepHash {
		observeRejection("preimage")
		return fmt.Errorf("preimage: %w", verrors.HashMismatch("hash", fmt.Errorf("reconstructed hash_preimage does not equal declared hash")))
	}

	if err := checkDifficulty(cur, prev, cfg); err != nil {
		observeRejection("difficulty")
		return fmt.Errorf("difficulty: %w", err)
	}

	if err := validatePoa(vm, idx, cur, prev, cfg); err != nil {
		observeRejection("poa")
		return fmt.Errorf("poa: %w", err)
	}

	if err := vdf.FullCheck(ctx, cur.NonceLimiterInfo, cfg); err != nil {
		observeRejection("vdf_full_check")
		return fmt.Errorf("vdf_full_check: %w", err)
	}

	if blocksAccepted != nil {
		blocksAccepted.Inc()
	}
	log.Infof("block %d (%s) accepted", cur.Height, cur.IndepHash)
	return nil
}

func checkStructure(cur *types.BlockHeader, prev *types.BlockHeader) error {
	if cur == nil {
		return verrors.MalformedHeader("header", fmt.Errorf("nil"))
	}
	if prev == nil {
		return verrors.MalformedHeader("prev", fmt.Errorf("nil"))
	}
	if cur.Height != prev.Height+1 {
		return verrors.MalformedHeader("height", fmt.Errorf("expected %d, got %d", prev.Height+1, cur.Height))
	}
	if cur.PreviousBlock != prev.IndepHash {
		return verrors.HashMismatch("previous_block", fmt.Errorf("does not match predecessor's hash"))
	}
	if cur.Diff == nil {
		return verrors.MalformedHeader("diff", fmt.Errorf("nil"))
	}
	if cur.NonceLimiterInfo.GlobalStepNumber <= prev.NonceLimiterInfo.GlobalStepNumber {
		return verrors.MalformedHeader("nonce_limiter_info.global_step_number", fmt.Errorf("did not advance"))
	}
	return nil
}

func checkDifficulty(cur *types.BlockHeader, prev *types.BlockHeader, cfg config.Config) error {
	expectedDiff := blockhash.ExpectedDifficulty(cur.Height, cur.Timestamp, prev.LastRetarget, prev.Diff, cfg)
	if cur.Diff.Cmp(expectedDiff) != 0 {
		return verrors.DifficultyNotMet(fmt.Errorf("declared diff %s does not match expected retargeted diff %s", cur.Diff.Dec(), expectedDiff.Dec()))
	}
	expectedCumulative := blockhash.ExpectedCumulativeDifficulty(prev.CumulativeDiff, cur.Diff)
	if cur.CumulativeDiff.Cmp(expectedCumulative) != 0 {
		return verrors.MalformedHeader("cumulative_diff", fmt.Errorf("declared %s does not match expected %s", cur.CumulativeDiff.Dec(), expectedCumulative.Dec()))
	}

	miningHash := blockhash.MiningHash(cur.PartitionNumber, cur.NonceLimiterInfo.Output, cur.MiningAddress, prev.NonceLimiterInfo.Seed)
	poa2ChunkHash := zeroHash32
	if cur.Chunk2Hash != nil {
		poa2ChunkHash = *cur.Chunk2Hash
	}
	solutionHash := blockhash.SolutionHash(miningHash, cur.ChunkHash, poa2ChunkHash)
	if !blockhash.DifficultyMet(solutionHash, cur.Diff) {
		return verrors.DifficultyNotMet(fmt.Errorf("solution hash does not satisfy declared diff"))
	}
	return nil
}

func validatePoa(vm randomx.VM, idx *blockindex.Index, cur *types.BlockHeader, prev *types.BlockHeader, cfg config.Config) error {
	blockStart := uint64Of(prev.WeaveSize)
	recallByte := uint64Of(cur.RecallByte)

	hdr := poa.Header{
		TxRoot:           cur.TxRoot,
		BlockStartOffset: blockStart,
		MiningAddress:    cur.MiningAddress,
		ProgramCount:     programCount(recallByte, cur.Packing26Threshold, cfg),
		StrictDataSplit:  cur.StrictDataSplitThreshold != nil && uint256.NewInt(recallByte).Cmp(cur.StrictDataSplitThreshold) >= 0,
		StrictTotalSize:  uint64Of(cur.WeaveSize),
	}
	if err := poa.ValidateChunk(vm, idx, hdr, cur.Poa, recallByte, cur.ChunkHash, cfg); err != nil {
		return err
	}

	if !requiresPoa2(cur, cfg) {
		return nil
	}
	if cur.Chunk2Hash == nil {
		return verrors.MalformedHeader("chunk2_hash", fmt.Errorf("required once partition reaches packing_2_6_threshold"))
	}

	recallByte2 := uint64Of(cur.RecallByte2)
	hdr2 := hdr
	hdr2.ProgramCount = programCount(recallByte2, cur.Packing26Threshold, cfg)
	return poa.ValidateChunk(vm, idx, hdr2, cur.Poa2, recallByte2, *cur.Chunk2Hash, cfg)
}
