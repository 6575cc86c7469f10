// Package hashing provides the primitive digests and canonical byte
// encodings the rest of the validator builds on: SHA-256, SHA-384, the
// big-endian fixed-width integer encoders, and deep_hash, the nested-list
// hash used to assemble a block's signed-field preimage.
package hashing

import "github.com/holiman/uint256"

// BigEndianU64 encodes v as an 8 byte big-endian unsigned integer.
func BigEndianU64(v uint64) []byte {
	b := make([]byte, 8)
	for i := 7; i >= 0; i-- {
		b[i] = byte(v)
		v >>= 8
	}
	return b
}

// BigEndianU256 encodes v as a 32 byte big-endian unsigned integer. A nil v
// encodes as zero, matching how an absent optional header field is treated
// through deep_hash.
func BigEndianU256(v *uint256.Int) []byte {
	b := make([]byte, 32)
	if v == nil {
		return b
	}
	return v.PaddedBytes(32)
}

// BigEndianU128 encodes v as a 16 byte big-endian unsigned integer,
// truncating the high 16 bytes of v. Callers are responsible for ensuring
// v fits in 128 bits.
func BigEndianU128(v *uint256.Int) []byte {
	full := BigEndianU256(v)
	return full[16:]
}

// DecimalASCII renders v as its decimal ASCII representation, the encoding
// deep_hash uses for numeric fields per the canonical preimage field list.
// A nil v renders as "0".
func DecimalASCII(v *uint256.Int) []byte {
	if v == nil {
		return []byte("0")
	}
	return []byte(v.Dec())
}
