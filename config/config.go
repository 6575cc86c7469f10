// Package config centralizes the validator's tunable constants: packing
// program counts, chunk geometry, VDF timing, and the protocol fork
// heights. Values are
// loaded through viper so a deployment can override any of them via flag,
// environment variable, or config file, following the same binding style
// the rest of the corpus uses for node configuration.
package config

import (
	"time"

	"github.com/spf13/viper"
)

// Config holds every tunable the validator consults. Zero-value Config is
// not meaningful; use Default() or Load().
type Config struct {
	// RandomX packing program counts, selected by which packing threshold
	// a chunk's offset falls under.
	RandomXProgramCount25 uint32
	RandomXProgramCount26 uint32

	ChunkSize     uint32
	FeistelRounds uint32

	ValidationDeadline time.Duration

	// VDFSha1s is the reference count of SHA-256 iterations per second of
	// VDF wall-clock time. A nonce_limiter_info whose vdf_difficulty is
	// absent (pre fork-2.6 headers) uses VDFSha1s/NumCheckpointsInVDFStep
	// iterations per checkpoint instead of the declared difficulty.
	VDFSha1s uint64

	// NonceLimiterResetFrequency is the step interval at which a VDF seed
	// rotation activates (step_number % this == 0).
	NonceLimiterResetFrequency uint64

	PartitionSize    uint64
	RecallRangeSize  uint64

	// RetargetBlocks is the height interval between difficulty retargets;
	// TargetTimeSeconds is the target wall-clock span of a single
	// retarget block; RetargetTimestampSeconds is the target span for the
	// whole interval (RetargetBlocks * TargetTimeSeconds).
	RetargetBlocks           uint64
	TargetTimeSeconds        uint64
	RetargetTimestampSeconds uint64

	// JoinClockTolerance and ClockDriftMax bound the timestamp deviation
	// a retarget computation treats as the minimum actual_time, so a
	// single maliciously-early or late timestamp can't swing difficulty.
	JoinClockTolerance uint64
	ClockDriftMax      uint64

	// MinSporaDifficulty is the floor a retargeted difficulty is clamped
	// to; it never clamps a maximum, since u256 max is already the
	// ceiling.
	MinSporaDifficulty uint64

	// Fork2_5Height, Fork2_6Height, and Fork2_7Height are the mainnet
	// activation heights of the SPoRA, packing-2.6, and partition-scheme
	// rule changes. They are loaded and carried here only: no validation
	// step reads them, and every block is checked under one rule set.
	Fork2_5Height uint64
	Fork2_6Height uint64
	Fork2_7Height uint64
}

// Default returns the mainnet parameter set.
func Default() Config {
	return Config{
		RandomXProgramCount25:    8,
		RandomXProgramCount26:    45,
		ChunkSize:                262144,
		FeistelRounds:            8,
		ValidationDeadline:       600 * time.Second,
		VDFSha1s:                 15_000_000,
		NonceLimiterResetFrequency: 1200,
		PartitionSize:            3_600_000_000_000,
		RecallRangeSize:          102400,
		RetargetBlocks:           10,
		TargetTimeSeconds:        120,
		RetargetTimestampSeconds: 1200,
		JoinClockTolerance:       15,
		ClockDriftMax:            5,
		MinSporaDifficulty:       2,
		Fork2_5Height:            812970,
		Fork2_6Height:            1132210,
		Fork2_7Height:            1275480,
	}
}

// Load builds a Config from viper, seeding every key with the mainnet
// default first so a partially populated config file or flag set still
// yields a usable Config.
func Load(v *viper.Viper) Config {
	cfg := Default()
	if v == nil {
		return cfg
	}

	v.SetDefault("randomx_program_count_2_5", cfg.RandomXProgramCount25)
	v.SetDefault("randomx_program_count_2_6", cfg.RandomXProgramCount26)
	v.SetDefault("chunk_size", cfg.ChunkSize)
	v.SetDefault("feistel_rounds", cfg.FeistelRounds)
	v.SetDefault("validation_deadline_ms", cfg.ValidationDeadline.Milliseconds())
	v.SetDefault("vdf_sha_1s", cfg.VDFSha1s)
	v.SetDefault("nonce_limiter_reset_frequency", cfg.NonceLimiterResetFrequency)
	v.SetDefault("partition_size", cfg.PartitionSize)
	v.SetDefault("recall_range_size", cfg.RecallRangeSize)
	v.SetDefault("retarget_blocks", cfg.RetargetBlocks)
	v.SetDefault("target_time_seconds", cfg.TargetTimeSeconds)
	v.SetDefault("retarget_timestamp_seconds", cfg.RetargetTimestampSeconds)
	v.SetDefault("join_clock_tolerance", cfg.JoinClockTolerance)
	v.SetDefault("clock_drift_max", cfg.ClockDriftMax)
	v.SetDefault("min_spora_difficulty", cfg.MinSporaDifficulty)
	v.SetDefault("fork_2_5_height", cfg.Fork2_5Height)
	v.SetDefault("fork_2_6_height", cfg.Fork2_6Height)
	v.SetDefault("fork_2_7_height", cfg.Fork2_7Height)

	cfg.RandomXProgramCount25 = v.GetUint32("randomx_program_count_2_5")
	cfg.RandomXProgramCount26 = v.GetUint32("randomx_program_count_2_6")
	cfg.ChunkSize = v.GetUint32("chunk_size")
	cfg.FeistelRounds = v.GetUint32("feistel_rounds")
	cfg.ValidationDeadline = time.Duration(v.GetInt64("validation_deadline_ms")) * time.Millisecond
	cfg.VDFSha1s = v.GetUint64("vdf_sha_1s")
	cfg.NonceLimiterResetFrequency = v.GetUint64("nonce_limiter_reset_frequency")
	cfg.PartitionSize = v.GetUint64("partition_size")
	cfg.RecallRangeSize = v.GetUint64("recall_range_size")
	cfg.RetargetBlocks = v.GetUint64("retarget_blocks")
	cfg.TargetTimeSeconds = v.GetUint64("target_time_seconds")
	cfg.RetargetTimestampSeconds = v.GetUint64("retarget_timestamp_seconds")
	cfg.JoinClockTolerance = v.GetUint64("join_clock_tolerance")
	cfg.ClockDriftMax = v.GetUint64("clock_drift_max")
	cfg.MinSporaDifficulty = v.GetUint64("min_spora_difficulty")
	cfg.Fork2_5Height = v.GetUint64("fork_2_5_height")
	cfg.Fork2_6Height = v.GetUint64("fork_2_6_height")
	cfg.Fork2_7Height = v.GetUint64("fork_2_7_height")

	return cfg
}
