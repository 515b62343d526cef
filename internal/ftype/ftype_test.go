package ftype

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAlignedWidthBitsRounding(t *testing.T) {
	cases := []struct {
		bits int
		want int
		ok   bool
	}{
		// Only whole-octet widths are rounded up to an accessor width;
		// widths that are not a multiple of 8 have no aligned width.
		{1, 0, false}, {8, 8, true}, {9, 0, false}, {16, 16, true}, {17, 0, false}, {24, 24, true},
		{25, 0, false}, {32, 32, true}, {33, 0, false}, {40, 64, true}, {64, 64, true},
	}
	for _, c := range cases {
		got, ok := Of(c.bits).AlignedWidthBits()
		require.Equal(t, c.ok, ok, "bits=%d", c.bits)
		require.Equal(t, c.want, got, "bits=%d", c.bits)
	}
}

func TestAlignedWidthBitsUnaligned(t *testing.T) {
	_, ok := Of(12).AlignedWidthBits()
	require.False(t, ok)
}

func TestAlignedWidthBitsTooWide(t *testing.T) {
	_, ok := Of(65).AlignedWidthBits()
	require.False(t, ok)
}

func TestProtoFieldCtorFallsBackToBytes(t *testing.T) {
	require.Equal(t, "bytes", Of(12).ProtoFieldCtor())
	require.Equal(t, "uint32", Of(32).ProtoFieldCtor())
}

func TestFtypesConst(t *testing.T) {
	require.Equal(t, "ftypes.UINT16", Of(16).FtypesConst())
	require.Equal(t, "ftypes.BYTES", Of(65).FtypesConst())
}
