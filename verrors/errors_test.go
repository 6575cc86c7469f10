package verrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorMessageIncludesFieldAndCause(t *testing.T) {
	cause := errors.New("boom")
	err := HashMismatch("tx_root", cause)
	require.Contains(t, err.Error(), "HashMismatch")
	require.Contains(t, err.Error(), "tx_root")
	require.Contains(t, err.Error(), "boom")
}

func TestErrorMessageIncludesIndex(t *testing.T) {
	err := VDFCheckpointMismatch(7, errors.New("mismatch"))
	require.Contains(t, err.Error(), "VdfCheckpointMismatch")
	require.Contains(t, err.Error(), "7")
}

func TestErrorMessageWithoutFieldOrIndex(t *testing.T) {
	err := DifficultyNotMet(errors.New("too low"))
	require.Equal(t, "DifficultyNotMet: too low", err.Error())
}

func TestUnwrapPreservesCause(t *testing.T) {
	cause := errors.New("root cause")
	err := ChunkUnpackFailed(cause)
	require.ErrorIs(t, err, cause)
}

func TestWrappedWithStepNameStillUnwraps(t *testing.T) {
	cause := errors.New("root cause")
	err := fmt.Errorf("poa: %w", MalformedHeader("chunk", cause))
	require.ErrorIs(t, err, cause)
}

func TestIsMatchesByKindAlone(t *testing.T) {
	sentinel := &Error{Kind: KindBlockIndexMiss}
	err := BlockIndexMiss(42, errors.New("beyond range"))
	require.ErrorIs(t, err, sentinel)

	other := &Error{Kind: KindTimeout}
	require.False(t, errors.Is(err, other))
}

func TestKindStringCoversAllKinds(t *testing.T) {
	kinds := []Kind{
		KindHashMismatch, KindVDFCheckpointMismatch, KindMerkleProofInvalid,
		KindChunkUnpackFailed, KindBlockIndexMiss, KindDifficultyNotMet,
		KindMalformedHeader, KindTimeout, KindRandomXFault,
	}
	for _, k := range kinds {
		require.NotEqual(t, "Unknown", k.String())
	}
	require.Equal(t, "Unknown", Kind(999).String())
}
