package types

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBytesToHash32RightAligns(t *testing.T) {
	h := BytesToHash32([]byte{1, 2, 3})
	require.Equal(t, byte(1), h[29])
	require.Equal(t, byte(2), h[30])
	require.Equal(t, byte(3), h[31])
	for _, b := range h[:29] {
		require.Equal(t, byte(0), b)
	}
}

func TestBytesToHash32TruncatesFromLeft(t *testing.T) {
	full := make([]byte, 40)
	for i := range full {
		full[i] = byte(i)
	}
	h := BytesToHash32(full)
	require.Equal(t, full[8:], h[:])
}

func TestBytesToHash48RightAligns(t *testing.T) {
	h := BytesToHash48([]byte{9, 9})
	require.Equal(t, byte(9), h[46])
	require.Equal(t, byte(9), h[47])
}

func TestMustHash32PanicsOnWrongLength(t *testing.T) {
	require.Panics(t, func() {
		MustHash32([]byte{1, 2, 3})
	})
}

func TestMustHash32AcceptsExactLength(t *testing.T) {
	b := make([]byte, 32)
	b[0] = 0xff
	h := MustHash32(b)
	require.Equal(t, byte(0xff), h[0])
}

func TestHashIsZero(t *testing.T) {
	var h Hash32
	require.True(t, h.IsZero())
	h[0] = 1
	require.False(t, h.IsZero())
}

func TestHashStringIsHex(t *testing.T) {
	h := MustHash32(make([]byte, 32))
	require.Equal(t, 64, len(h.String()))
}

func TestBytesRoundTrip(t *testing.T) {
	b := make([]byte, 32)
	b[5] = 7
	h := BytesToHash32(b)
	require.Equal(t, b, h.Bytes())
}
