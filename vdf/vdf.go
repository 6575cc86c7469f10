// Package vdf verifies Arweave's verifiable delay function: a chain of
// steps, each 25 checkpoints of sequential SHA-256 iterations seeded by the
// previous step's output (or a rotated seed at a reset boundary). It offers a cheap
// FastCheck of only the final step, and a FullCheck that re-executes every
// declared checkpoint, fanned out across a worker pool.
package vdf

import (
	"context"
	"crypto/sha256"
	"fmt"
	"runtime"

	"github.com/holiman/uint256"
	"golang.org/x/sync/errgroup"

	"github.com/weavevalidator/validator/config"
	"github.com/weavevalidator/validator/types"
	"github.com/weavevalidator/validator/verrors"
)

// NumCheckpointsInStep is the number of checkpoints composing one VDF step.
const NumCheckpointsInStep = types.NumCheckpointsInVDFStep

// stepNumberToSaltNumber mirrors the reference checkpoint-salt derivation:
// salt restarts at 1 for the checkpoints of step 1, and advances by
// NumCheckpointsInStep for every subsequent step.
func stepNumberToSaltNumber(stepNumber uint64) uint64 {
	if stepNumber == 0 {
		return 0
	}
	return (stepNumber-1)*NumCheckpointsInStep + 1
}

// iterationsFor returns the number of sequential SHA-256 iterations between
// checkpoints for a header whose nonce_limiter_info may or may not declare
// an explicit vdf_difficulty.
func iterationsFor(vdfDifficulty *uint64, cfg config.Config) uint64 {
	if vdfDifficulty != nil {
		return *vdfDifficulty
	}
	return cfg.VDFSha1s / NumCheckpointsInStep
}

// applyResetSeed mixes a block's SHA-384 reset seed into a SHA-256
// checkpoint seed: SHA-256(seed || SHA-256(resetSeed)).
func applyResetSeed(seed types.Hash32, resetSeed types.Hash48) types.Hash32 {
	resetHash := sha256.Sum256(resetSeed.Bytes())
	h := sha256.New()
	h.Write(seed.Bytes())
	h.Write(resetHash[:])
	var out types.Hash32
	h.Sum(out[:0])
	return out
}

// sha2Checkpoints computes numCheckpoints successive VDF checkpoints
// starting from seed, salted by an auto-incrementing big-endian salt
// counter starting at salt, each separated by numIterations sequential
// SHA-256 hashes.
func sha2Checkpoints(salt uint64, seed types.Hash32, numCheckpoints int, numIterations uint64) []types.Hash32 {
	out := make([]types.Hash32, numCheckpoints)
	localSeed := seed
	localSalt := new(uint256.Int).SetUint64(salt)

	for i := 0; i < numCheckpoints; i++ {
		if i != 0 {
			localSeed = out[i-1]
		}
		saltBytes := localSalt.PaddedBytes(32)

		h := sha256.New()
		h.Write(saltBytes)
		h.Write(localSeed.Bytes())
		var cur types.Hash32
		h.Sum(cur[:0])

		for iter := uint64(1); iter < numIterations; iter++ {
			h := sha256.New()
			h.Write(saltBytes)
			h.Write(cur.Bytes())
			var next types.Hash32
			h.Sum(next[:0])
			cur = next
		}

		out[i] = cur
		localSalt.AddUint64(localSalt, 1)
	}
	return out
}

// stepsSinceReset returns how many steps into the current reset interval
// globalStepNumber falls (0 if the interval boundary is exactly on it).
func stepsSinceReset(globalStepNumber uint64, resetFrequency uint64) uint64 {
	if resetFrequency == 0 {
		return 0
	}
	return globalStepNumber % resetFrequency
}

// FastCheck recomputes the 25 checkpoints of the final declared VDF step
// and compares them against nonceInfo.LastStepCheckpoints, confirming the
// last of them equals the declared Output. It is the cheap pre-check the
// orchestrator runs before any expensive work.
func FastCheck(nonceInfo types.NonceLimiterInfo, cfg config.Config) error {
	numIterations := iterationsFor(nonceInfo.VDFDifficulty, cfg)
	if numIterations == 0 {
		return verrors.MalformedHeader("nonce_limiter_info.vdf_difficulty", fmt.Errorf("zero iterations"))
	}

	// prev_output for the final step is checkpoints[K-2] if at least two
	// steps are declared, else the previous block's own output.
	k := len(nonceInfo.Checkpoints)
	seed := nonceInfo.PrevOutput
	if k >= 2 {
		seed = nonceInfo.Checkpoints[k-2]
	}
	if stepsSinceReset(nonceInfo.GlobalStepNumber, cfg.NonceLimiterResetFrequency) == 0 {
		seed = applyResetSeed(seed, nonceInfo.Seed)
	}

	if nonceInfo.GlobalStepNumber == 0 {
		return verrors.MalformedHeader("nonce_limiter_info.global_step_number", fmt.Errorf("must be > 0"))
	}
	baseSalt := stepNumberToSaltNumber(nonceInfo.GlobalStepNumber - 1)
	computed := sha2Checkpoints(baseSalt, seed, NumCheckpointsInStep, numIterations)

	for i := 0; i < NumCheckpointsInStep; i++ {
		if computed[i] != nonceInfo.LastStepCheckpoints[i] {
			return verrors.VDFCheckpointMismatch(int64(i), fmt.Errorf("last-step checkpoint mismatch"))
		}
	}

	last := nonceInfo.LastStepCheckpoints[NumCheckpointsInStep-1]
	if last != nonceInfo.Output {
		return verrors.HashMismatch("nonce_limiter_info.output", fmt.Errorf("final checkpoint does not equal declared output"))
	}
	return nil
}

// FullCheck re-executes every declared step in nonceInfo.Checkpoints (each
// step's 25 checkpoints are computed but only the final checkpoint of
// each step is kept, matching the header's own per-step granularity),
// fanning the per-step work out across a worker pool sized to GOMAXPROCS.
// Any single mismatch is fatal; ctx cancellation aborts remaining work and
// yields a Timeout error.
func FullCheck(ctx context.Context, nonceInfo types.NonceLimiterInfo, cfg config.Config) error {
	numIterations := iterationsFor(nonceInfo.VDFDifficulty, cfg)
	if numIterations == 0 {
		return verrors.MalformedHeader("nonce_limiter_info.vdf_difficulty", fmt.Errorf("zero iterations"))
	}
	n := len(nonceInfo.Checkpoints)
	if n == 0 {
		return verrors.MalformedHeader("nonce_limiter_info.checkpoints", fmt.Errorf("empty"))
	}
	if nonceInfo.GlobalStepNumber < uint64(n) {
		return verrors.MalformedHeader("nonce_limiter_info.global_step_number", fmt.Errorf("smaller than checkpoint count"))
	}

	// steps[0] is the previous block's output, steps[1..] are this
	// block's declared checkpoints; step i is verified against seed
	// steps[i].
	steps := make([]types.Hash32, n+1)
	steps[0] = nonceInfo.PrevOutput
	copy(steps[1:], nonceInfo.Checkpoints)

	sinceReset := stepsSinceReset(nonceInfo.GlobalStepNumber, cfg.NonceLimiterResetFrequency)
	resetIndex := int(int64(n) - int64(sinceReset) - 1)

	startStepNumber := nonceInfo.GlobalStepNumber - uint64(n)

	results := make([]types.Hash32, n)

	workers := runtime.GOMAXPROCS(0)
	if workers > n {
		workers = n
	}
	if workers < 1 {
		workers = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			seed := steps[i]
			if i == resetIndex {
				seed = applyResetSeed(seed, nonceInfo.Seed)
			}
			salt := stepNumberToSaltNumber(startStepNumber + uint64(i))
			cps := sha2Checkpoints(salt, seed, NumCheckpointsInStep, numIterations)
			results[i] = cps[NumCheckpointsInStep-1]
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return verrors.Timeout(err)
	}

	for i := 0; i < n; i++ {
		if results[i] != nonceInfo.Checkpoints[i] {
			return verrors.VDFCheckpointMismatch(int64(startStepNumber+uint64(i)+1), fmt.Errorf("step checkpoint mismatch"))
		}
	}
	return nil
}
