// Package ftype implements the field-type classifier (spec component B):
// mapping a scalar bit width to the Wireshark ProtoField/ftype constructor
// pair that can represent it, and answering the aligned-vs-unaligned
// question that drives emission component C/F's choice between
// AlignedProtoField and UnalignedProtoField.
package ftype

import "fmt"

// FType classifies a scalar field's width for the purpose of choosing a
// ProtoField constructor and a buffer-accessor function.
type FType struct {
	bits int
}

// Of returns the classifier for a scalar field of the given bit width.
func Of(bits int) FType {
	return FType{bits: bits}
}

// Bits returns the field's bit width.
func (f FType) Bits() int { return f.bits }

// Aligned reports whether the width is a whole number of octets.
func (f FType) Aligned() bool { return f.bits%8 == 0 }

// AlignedWidthBits returns the octet-aligned ProtoField width Wireshark
// offers for this FType (8, 16, 24, 32 or 64), and false if the field is
// either unaligned or wider than any native ftype (in which case callers
// fall back to ftypes.BYTES / ProtoField.bytes).
func (f FType) AlignedWidthBits() (int, bool) {
	if !f.Aligned() {
		return 0, false
	}
	switch {
	case f.bits <= 8:
		return 8, true
	case f.bits <= 16:
		return 16, true
	case f.bits <= 24:
		return 24, true
	case f.bits <= 32:
		return 32, true
	case f.bits <= 64:
		return 64, true
	default:
		return 0, false
	}
}

// ProtoFieldCtor returns the Wireshark `ProtoField.*` constructor name used
// to declare this field (e.g. "uint32", "bytes"). Signed fields are out of
// scope (spec.md names no signed scalar kind), so every native width maps to
// the unsigned constructor.
func (f FType) ProtoFieldCtor() string {
	width, ok := f.AlignedWidthBits()
	if !ok {
		return "bytes"
	}
	switch width {
	case 8:
		return "uint8"
	case 16:
		return "uint16"
	case 24:
		return "uint24"
	case 32:
		return "uint32"
	case 64:
		return "uint64"
	default:
		return "bytes"
	}
}

// FtypesConst returns the `ftypes.*` constant name paired with ProtoFieldCtor,
// for use in ProtoField.new(...) calls that take an explicit ftype.
func (f FType) FtypesConst() string {
	width, ok := f.AlignedWidthBits()
	if !ok {
		return "ftypes.BYTES"
	}
	return fmt.Sprintf("ftypes.UINT%d", width)
}
