package hashing

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

func TestDeepHashLeafIsDeterministic(t *testing.T) {
	a := DeepHash(Blob([]byte("hello")))
	b := DeepHash(Blob([]byte("hello")))
	require.Equal(t, a, b)
}

func TestDeepHashDistinguishesBlobFromSameBytesAsList(t *testing.T) {
	blob := DeepHash(Blob([]byte("ab")))
	list := DeepHash(List(Blob([]byte("a")), Blob([]byte("b"))))
	require.NotEqual(t, blob, list)
}

func TestDeepHashOrderSensitive(t *testing.T) {
	a := DeepHash(List(Blob([]byte("x")), Blob([]byte("y"))))
	b := DeepHash(List(Blob([]byte("y")), Blob([]byte("x"))))
	require.NotEqual(t, a, b)
}

func TestDeepHashNestedLists(t *testing.T) {
	root := List(
		Blob([]byte("top")),
		List(Blob([]byte("nested1")), Blob([]byte("nested2"))),
	)
	h1 := DeepHash(root)
	h2 := DeepHash(List(
		Blob([]byte("top")),
		List(Blob([]byte("nested1")), Blob([]byte("nested2"))),
	))
	require.Equal(t, h1, h2)
}

func TestDeepHashEmptyList(t *testing.T) {
	h := DeepHash(List())
	require.NotEqual(t, [48]byte{}, h)
}

func TestDeepHashDeeplyNestedDoesNotPanic(t *testing.T) {
	item := Blob([]byte("leaf"))
	for i := 0; i < 10000; i++ {
		item = List(item)
	}
	require.NotPanics(t, func() {
		DeepHash(item)
	})
}

func TestSHA256Concatenates(t *testing.T) {
	a := SHA256([]byte("ab"))
	b := SHA256([]byte("a"), []byte("b"))
	require.Equal(t, a, b)
}

func TestSHA384Concatenates(t *testing.T) {
	a := SHA384([]byte("ab"))
	b := SHA384([]byte("a"), []byte("b"))
	require.Equal(t, a, b)
}

func TestBigEndianU64RoundTrips(t *testing.T) {
	b := BigEndianU64(0x0102030405060708)
	require.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8}, b)
}

func TestBigEndianU256NilIsZero(t *testing.T) {
	require.Equal(t, make([]byte, 32), BigEndianU256(nil))
}

func TestBigEndianU256Padding(t *testing.T) {
	v := uint256.NewInt(1)
	b := BigEndianU256(v)
	require.Len(t, b, 32)
	require.Equal(t, byte(1), b[31])
	for _, x := range b[:31] {
		require.Equal(t, byte(0), x)
	}
}

func TestBigEndianU128TruncatesHighBytes(t *testing.T) {
	v := uint256.NewInt(42)
	b := BigEndianU128(v)
	require.Len(t, b, 16)
	require.Equal(t, byte(42), b[15])
}

func TestDecimalASCII(t *testing.T) {
	require.Equal(t, []byte("0"), DecimalASCII(nil))
	require.Equal(t, []byte("123"), DecimalASCII(uint256.NewInt(123)))
}
