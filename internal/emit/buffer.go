package emit

import "github.com/oakmoss/pdl2lua/internal/ast"

// BufferAccessor returns the TvbRange method name used to read a field of
// the given endianness and width off the wire, e.g. "uint", "le_uint64",
// "raw". This corrects a naming inversion present in the distilled
// reference: big-endian (network byte order, Wireshark's default) reads use
// the unprefixed accessor name, and only little-endian reads take the "le_"
// prefix — matching real Wireshark Lua TvbRange semantics, not the
// original tool's apparent swap. See DESIGN.md.
//
// alignedWidthBits is the result of ftype.FType.AlignedWidthBits: when ok is
// false (unaligned width, or wider than 64 bits, or the length is only known
// at runtime) the raw byte-range accessor is used instead, since Wireshark's
// sized integer accessors only exist for 8/16/24/32/64-bit aligned reads.
func BufferAccessor(endian ast.Endianness, alignedWidthBits int, ok bool) string {
	if !ok {
		return "raw"
	}
	prefix := ""
	if endian == ast.LittleEndian {
		prefix = "le_"
	}
	switch alignedWidthBits {
	case 8:
		return prefix + "uint"
	case 16:
		return prefix + "uint"
	case 24:
		return prefix + "uint"
	case 32:
		return prefix + "uint"
	case 64:
		return prefix + "uint64"
	default:
		return "raw"
	}
}
