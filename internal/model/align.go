package model

import "github.com/oakmoss/pdl2lua/internal/ftype"

// IsUnaligned reports whether a field must be dissected with
// UnalignedProtoField (a bit-level accessor) rather than AlignedProtoField
// (spec P2: "a field is unaligned iff its bit offset is nonzero or its
// width is not one of the native aligned widths"). Only Scalar carries a
// fixed bit width that can be misaligned; every other FieldModel variant is
// either byte-aligned by construction (Payload/Typedef/*Array start and end
// on byte boundaries, per the lowering rules in component E) or has no wire
// width of its own (ChecksumStart).
func IsUnaligned(f FieldModel) bool {
	c := f.Common()
	if c.BitOffset != 0 {
		return true
	}
	s, ok := f.(*Scalar)
	if !ok {
		return false
	}
	if !s.Width.IsBounded() || len(s.Width.Refs()) > 0 {
		return true
	}
	_, aligned := ftype.Of(int(s.Width.ConstBits())).AlignedWidthBits()
	return !aligned
}
