package lower_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oakmoss/pdl2lua/internal/ast"
	"github.com/oakmoss/pdl2lua/internal/lower"
	"github.com/oakmoss/pdl2lua/internal/model"
	"github.com/oakmoss/pdl2lua/internal/pdl"
)

func lowerDecl(t *testing.T, src, id string) model.DeclModel {
	t.Helper()
	f, err := pdl.Parse("t.pdl", src)
	require.NoError(t, err)
	scope, err := ast.NewScope(f)
	require.NoError(t, err)
	lw := lower.New(scope, nil)
	m, err := lw.Decl(id)
	require.NoError(t, err)
	return m
}

// A _count_(items) field governing an `items: 8[]` array must not share its
// Lua abbreviation with the array itself (see internal/lower.abbrOf): both
// would otherwise declare the same `<decl>_items_f` ProtoField global and
// the same set of local variable names in the generated dissect function.
func TestLowerCountFieldAbbrDoesNotCollideWithGovernedArray(t *testing.T) {
	seq := lowerDecl(t, `
struct Foo {
    _count_(items): 8,
    items: 8[],
}
`, "Foo").(*model.Sequence)

	require.Len(t, seq.Fields, 2)
	count := seq.Fields[0].(*model.Scalar)
	arr := seq.Fields[1].(*model.ScalarArray)

	require.Equal(t, "items_count", count.Common().Abbr)
	require.Equal(t, "items", arr.Common().Abbr)
	require.NotEqual(t, count.Common().Abbr, arr.Common().Abbr)
	require.Equal(t, "items_count", arr.SizeFieldRef)
	require.True(t, arr.SizeFieldIsCount)
}

// Mirrors the above for a byte _size_ sibling rather than a _count_ sibling.
func TestLowerSizeFieldAbbrDoesNotCollideWithGovernedArray(t *testing.T) {
	seq := lowerDecl(t, `
struct Foo {
    _size_(items): 16,
    items: 8[+items],
}
`, "Foo").(*model.Sequence)

	require.Len(t, seq.Fields, 2)
	size := seq.Fields[0].(*model.Scalar)
	arr := seq.Fields[1].(*model.ScalarArray)

	require.Equal(t, "items_size", size.Common().Abbr)
	require.Equal(t, "items", arr.Common().Abbr)
	require.Equal(t, "items_size", arr.SizeFieldRef)
	require.False(t, arr.SizeFieldIsCount)
}

// Invariant I5 / testable property P5: a Padding field folds into the
// preceding array rather than surviving as its own FieldModel.
func TestLowerPaddingFoldsIntoPrecedingArray(t *testing.T) {
	seq := lowerDecl(t, `
struct Foo {
    items: 8[4],
    _padding_: 10,
}
`, "Foo").(*model.Sequence)

	require.Len(t, seq.Fields, 1)
	arr := seq.Fields[0].(*model.ScalarArray)
	require.NotNil(t, arr.PadToSize)
	require.Equal(t, 10, *arr.PadToSize)
}

// Invariant I5: padding not following an array is malformed input.
func TestLowerPaddingNotAfterArrayIsUnsupported(t *testing.T) {
	f, err := pdl.Parse("t.pdl", `
struct Foo {
    x: 8,
    _padding_: 4,
}
`)
	require.NoError(t, err)
	scope, err := ast.NewScope(f)
	require.NoError(t, err)
	_, err = lower.New(scope, nil).Decl("Foo")
	require.Error(t, err)
}

// Testable property P3/S6: the running bit offset within an unaligned run
// accumulates across fields and resets once a byte boundary is reached.
func TestLowerUnalignedBitOffsetsAccumulateWithinRun(t *testing.T) {
	seq := lowerDecl(t, `
struct Bits {
    a: 3,
    b: 9,
    c: 4,
}
`, "Bits").(*model.Sequence)

	require.Len(t, seq.Fields, 3)
	offsets := make([]int, len(seq.Fields))
	for i, f := range seq.Fields {
		offsets[i] = int(f.Common().BitOffset)
	}
	require.Equal(t, []int{0, 3, 12}, offsets)
	// 3 + 9 + 4 = 16 bits, a whole number of octets.
	require.True(t, seq.Len.IsBounded())
	require.Equal(t, 16, int(seq.Len.ConstBits()))
}

// Open Question 1 (spec §9): element_size fields are rejected outright.
func TestLowerElementSizeIsUnsupported(t *testing.T) {
	f, err := pdl.Parse("t.pdl", `
struct Foo {
    _element_size_: 8,
}
`)
	require.NoError(t, err)
	scope, err := ast.NewScope(f)
	require.NoError(t, err)
	_, err = lower.New(scope, nil).Decl("Foo")
	require.Error(t, err)
}

// A Flag-gated field records the (flag, value) pair on its own FieldModel.
func TestLowerOptionalGateLinksFlagToGatedScalar(t *testing.T) {
	seq := lowerDecl(t, `
struct Foo {
    _flag_ has_extra : 1,
    extra?(has_extra=1): 8,
}
`, "Foo").(*model.Sequence)

	require.Len(t, seq.Fields, 2)
	extra := seq.Fields[1].(*model.Scalar)
	require.NotNil(t, extra.OptionalGate)
	require.Equal(t, "has_extra", extra.OptionalGate.FlagAbbr)
	require.Equal(t, 1, extra.OptionalGate.Value)
}
