package snmp

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// encodeInteger/decodeInteger test vectors mirror spec.md's examples for
// minimal two's-complement encoding.
func TestEncodeIntegerVectors(t *testing.T) {
	require.Equal(t, []byte{0x7C}, encodeInteger(124))
	require.Equal(t, []byte{0x00, 0xFC}, encodeInteger(252))
	require.Equal(t, []byte{0xFC}, encodeInteger(-4))
}

func TestIntegerRoundTrip(t *testing.T) {
	for _, n := range []int64{0, 1, -1, 124, -4, 127, 128, -128, -129, 252, 32767, -32768, 1 << 30, -(1 << 30)} {
		enc := encodeInteger(n)
		require.Equal(t, n, decodeInteger(enc), "round trip for %d", n)
	}
}

func TestEncodeUnsignedIntegerPadsHighBit(t *testing.T) {
	// 0xFF alone would look like a negative two's-complement byte;
	// the encoder must prefix a zero byte.
	require.Equal(t, []byte{0x00, 0xFF}, encodeUnsignedInteger(0xFF))
	require.Equal(t, []byte{0x7F}, encodeUnsignedInteger(0x7F))
	require.Equal(t, []byte{0x01, 0x00}, encodeUnsignedInteger(0x100))
}

func TestUnsignedIntegerRoundTrip(t *testing.T) {
	for _, n := range []uint64{0, 1, 127, 128, 255, 256, 1 << 31, 1<<32 - 1} {
		enc := encodeUnsignedInteger(n)
		require.Equal(t, n, decodeUnsignedInteger(enc))
	}
}

func TestEncodeLengthShortForm(t *testing.T) {
	require.Equal(t, []byte{0x05}, encodeLength(nil, 5))
	require.Equal(t, []byte{0x7F}, encodeLength(nil, 0x7F))
}

func TestEncodeLengthLongForm(t *testing.T) {
	require.Equal(t, []byte{0x81, 0x80}, encodeLength(nil, 0x80))
	require.Equal(t, []byte{0x82, 0x01, 0x00}, encodeLength(nil, 256))
}

func TestDecodeLengthRoundTrip(t *testing.T) {
	for _, n := range []int{0, 1, 0x7F, 0x80, 0xFF, 256, 65535} {
		buf := encodeLength(nil, n)
		got, next, ok := decodeLength(buf, 0)
		require.True(t, ok)
		require.Equal(t, n, got)
		require.Equal(t, len(buf), next)
	}
}

func TestDecodeLengthTruncated(t *testing.T) {
	_, _, ok := decodeLength([]byte{0x82, 0x01}, 0)
	require.False(t, ok)
}

func TestEncodeOIDCombinesFirstTwoComponents(t *testing.T) {
	oid := MustParseOID("1.3.6.1.2.1.1.1.0")
	enc := encodeOID(oid)
	require.Equal(t, byte(isoOrgPrefixByte), enc[0])
}

func TestOIDCodecRoundTrip(t *testing.T) {
	oid := MustParseOID("1.3.6.1.4.1.12345.6.7.8.999999")
	enc := encodeOID(oid)
	decoded, ok := decodeOID(enc)
	require.True(t, ok)
	require.True(t, oid.Equal(decoded))
}

func TestDecodeOIDTruncatedSubIdentifier(t *testing.T) {
	// A final byte with the continuation bit set is an incomplete
	// sub-identifier.
	_, ok := decodeOID([]byte{0x2B, 0x85})
	require.False(t, ok)
}

func TestDecodeTLVStopsOnShortBuffer(t *testing.T) {
	_, ok := decodeTLV([]byte{0x02}, 0)
	require.False(t, ok)
}

func TestDecodeTLVStopsOnOversizeLength(t *testing.T) {
	_, ok := decodeTLV([]byte{0x02, 0x05, 0x01}, 0)
	require.False(t, ok)
}

func TestTLVRoundTrip(t *testing.T) {
	dst := encodeTLV(nil, byte(TagInteger), []byte{0x7C})
	frame, ok := decodeTLV(dst, 0)
	require.True(t, ok)
	require.Equal(t, byte(TagInteger), frame.tag)
	require.Equal(t, []byte{0x7C}, frame.payload)
	require.Equal(t, len(dst), frame.next)
}
