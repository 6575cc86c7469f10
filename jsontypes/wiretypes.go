// Package jsontypes decodes the JSON block header the network actually
// serves (base64url byte strings, decimal-string big integers, VDF
// checkpoint arrays in descending height order) into the CORE's in-memory
// types.BlockHeader.
package jsontypes

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/holiman/uint256"

	"github.com/weavevalidator/validator/types"
)

// b64Bytes decodes a base64url (no padding) JSON string into raw bytes,
// the encoding Arweave's HTTP API uses for every byte-string field.
type b64Bytes []byte

func (b *b64Bytes) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("jsontypes: byte field: %w", err)
	}
	if s == "" {
		*b = nil
		return nil
	}
	out, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		out, err = base64.URLEncoding.DecodeString(s)
		if err != nil {
			return fmt.Errorf("jsontypes: invalid base64url: %w", err)
		}
	}
	*b = out
	return nil
}

func (b b64Bytes) hash32() (types.Hash32, error) {
	if len(b) != 32 {
		return types.Hash32{}, fmt.Errorf("jsontypes: expected 32 bytes, got %d", len(b))
	}
	return types.MustHash32(b), nil
}

func (b b64Bytes) hash48() (types.Hash48, error) {
	if len(b) != 48 {
		return types.Hash48{}, fmt.Errorf("jsontypes: expected 48 bytes, got %d", len(b))
	}
	return types.BytesToHash48(b), nil
}

// decString is a decimal-ASCII encoded unsigned integer, the encoding
// Arweave uses for every big numeric field (diff, weave_size, ...).
type decString struct {
	v *uint256.Int
}

func (d *decString) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		// Some fields are served as bare JSON numbers rather than
		// quoted strings; fall back to that before giving up.
		var n uint64
		if numErr := json.Unmarshal(data, &n); numErr == nil {
			d.v = uint256.NewInt(n)
			return nil
		}
		return fmt.Errorf("jsontypes: decimal field: %w", err)
	}
	if s == "" {
		d.v = new(uint256.Int)
		return nil
	}
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return fmt.Errorf("jsontypes: invalid decimal integer %q: %w", s, err)
	}
	d.v = v
	return nil
}

func (d *decString) uint256Ptr() *uint256.Int {
	if d == nil {
		return nil
	}
	return d.v
}

// decUint64 is a decimal-ASCII encoded small integer (heights, timestamps,
// step numbers) that fits in a uint64.
type decUint64 uint64

func (d *decUint64) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		var v uint64
		if _, err := fmt.Sscanf(s, "%d", &v); err != nil {
			return fmt.Errorf("jsontypes: invalid decimal uint64 %q: %w", s, err)
		}
		*d = decUint64(v)
		return nil
	}
	var v uint64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("jsontypes: uint64 field: %w", err)
	}
	*d = decUint64(v)
	return nil
}
