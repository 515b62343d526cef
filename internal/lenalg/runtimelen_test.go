package lenalg

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRuntimeLenAddIsAdditive(t *testing.T) {
	a := Fixed(16)
	b := Fixed(8)
	sum := a.Add(b)
	require.True(t, sum.IsBounded())
	require.Equal(t, BitLen(24), sum.ConstBits())
}

func TestRuntimeLenUnboundedIsAbsorbing(t *testing.T) {
	require.False(t, Fixed(16).Add(Unbounded()).IsBounded())
	require.False(t, Unbounded().Add(Fixed(16)).IsBounded())
	require.False(t, Unbounded().Add(Unbounded()).IsBounded())
}

func TestRuntimeLenAddFieldRefAccumulatesRefs(t *testing.T) {
	r := Empty().AddFieldRef("length", 0).AddFieldRef("extra", -8)
	require.Equal(t, []string{"length", "extra"}, r.Refs())
	require.Equal(t, BitLen(-8), r.ConstBits())
}

func TestRuntimeLenBitOffsetWrapsModulo8(t *testing.T) {
	require.Equal(t, BitLen(3), Fixed(11).BitOffset())
	require.Equal(t, BitLen(0), Fixed(16).BitOffset())
	require.Equal(t, BitLen(0), Unbounded().BitOffset())
}

func TestRuntimeLenToRuntimeExprPathPrefixesRefs(t *testing.T) {
	r := Fixed(8).AddFieldRef("len", 0)
	expr := r.ToRuntimeExpr("path")
	require.Contains(t, expr, "field_values[path .. \".len\"]")
	require.Contains(t, expr, "sum_or_nil(1")
}

func TestRuntimeLenToRuntimeExprUnboundedIsNil(t *testing.T) {
	require.Equal(t, "nil", Unbounded().ToRuntimeExpr("path"))
}

func TestBitLenOctetsPanicsOnMisalignment(t *testing.T) {
	require.Panics(t, func() { BitLen(5).Octets() })
	require.NotPanics(t, func() { BitLen(16).Octets() })
	require.Equal(t, 2, BitLen(16).Octets())
}
