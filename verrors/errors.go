// Package verrors defines the typed error taxonomy the validator returns.
// Every check in the orchestrator fails with one of these, wrapped with
// the enclosing step's name via fmt.Errorf's %w so the original cause
// survives errors.Is/errors.As.
package verrors

import "fmt"

// Kind identifies which class of failure a Error carries.
type Kind int

const (
	KindHashMismatch Kind = iota
	KindVDFCheckpointMismatch
	KindMerkleProofInvalid
	KindChunkUnpackFailed
	KindBlockIndexMiss
	KindDifficultyNotMet
	KindMalformedHeader
	KindTimeout
	KindRandomXFault
)

func (k Kind) String() string {
	switch k {
	case KindHashMismatch:
		return "HashMismatch"
	case KindVDFCheckpointMismatch:
		return "VdfCheckpointMismatch"
	case KindMerkleProofInvalid:
		return "MerkleProofInvalid"
	case KindChunkUnpackFailed:
		return "ChunkUnpackFailed"
	case KindBlockIndexMiss:
		return "BlockIndexMiss"
	case KindDifficultyNotMet:
		return "DifficultyNotMet"
	case KindMalformedHeader:
		return "MalformedHeader"
	case KindTimeout:
		return "Timeout"
	case KindRandomXFault:
		return "RandomXFault"
	default:
		return "Unknown"
	}
}

// Error is the validator's single error type. Field carries the offending
// field name (HashMismatch, MalformedHeader) or is empty where the kind
// doesn't name one; Index carries a checkpoint or offset where relevant.
type Error struct {
	Kind  Kind
	Field string
	Index int64
	Err   error
}

func (e *Error) Error() string {
	switch {
	case e.Field != "" && e.Index != 0:
		return fmt.Sprintf("%s{%s:%d}: %v", e.Kind, e.Field, e.Index, e.Err)
	case e.Field != "":
		return fmt.Sprintf("%s{%s}: %v", e.Kind, e.Field, e.Err)
	case e.Index != 0:
		return fmt.Sprintf("%s{%d}: %v", e.Kind, e.Index, e.Err)
	default:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
}

func (e *Error) Unwrap() error { return e.Err }

func HashMismatch(field string, cause error) error {
	return &Error{Kind: KindHashMismatch, Field: field, Err: cause}
}

func VDFCheckpointMismatch(index int64, cause error) error {
	return &Error{Kind: KindVDFCheckpointMismatch, Index: index, Err: cause}
}

func MerkleProofInvalid(tree string, cause error) error {
	return &Error{Kind: KindMerkleProofInvalid, Field: tree, Err: cause}
}

func ChunkUnpackFailed(cause error) error {
	return &Error{Kind: KindChunkUnpackFailed, Err: cause}
}

func BlockIndexMiss(offset int64, cause error) error {
	return &Error{Kind: KindBlockIndexMiss, Index: offset, Err: cause}
}

func DifficultyNotMet(cause error) error {
	return &Error{Kind: KindDifficultyNotMet, Err: cause}
}

func MalformedHeader(field string, cause error) error {
	return &Error{Kind: KindMalformedHeader, Field: field, Err: cause}
}

func Timeout(cause error) error {
	return &Error{Kind: KindTimeout, Err: cause}
}

func RandomXFault(cause error) error {
	return &Error{Kind: KindRandomXFault, Err: cause}
}

// Is allows errors.Is(err, &verrors.Error{Kind: verrors.KindHashMismatch})
// style matching by Kind alone; a target that is not an *Error never
// matches, so a bare Kind must be wrapped in an *Error to act as a sentinel.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}
