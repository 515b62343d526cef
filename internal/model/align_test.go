package model

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oakmoss/pdl2lua/internal/lenalg"
)

func TestIsUnalignedNonzeroOffset(t *testing.T) {
	f := &Scalar{CommonField: CommonField{BitOffset: 3}, Width: lenalg.Fixed(8)}
	require.True(t, IsUnaligned(f))
}

func TestIsUnalignedNonNativeWidth(t *testing.T) {
	f := &Scalar{CommonField: CommonField{}, Width: lenalg.Fixed(12)}
	require.True(t, IsUnaligned(f))
}

func TestIsAlignedNativeWidthZeroOffset(t *testing.T) {
	f := &Scalar{CommonField: CommonField{}, Width: lenalg.Fixed(32)}
	require.False(t, IsUnaligned(f))
}

func TestIsUnalignedRuntimeWidth(t *testing.T) {
	f := &Scalar{CommonField: CommonField{}, Width: lenalg.Empty().AddFieldRef("n", 0)}
	require.True(t, IsUnaligned(f))
}

func TestIsUnalignedNonScalarNeverMisaligned(t *testing.T) {
	f := &Payload{CommonField: CommonField{}, SizeExpr: lenalg.Unbounded()}
	require.False(t, IsUnaligned(f))
}

func TestDebugCommentVerboseVsTerse(t *testing.T) {
	f := &Scalar{CommonField: CommonField{DisplayName: "opcode", Abbr: "opcode"}, Width: lenalg.Fixed(8)}
	require.Equal(t, "Scalar: opcode", f.DebugComment(false))
	require.Contains(t, f.DebugComment(true), "DisplayName:\"opcode\"")
}
