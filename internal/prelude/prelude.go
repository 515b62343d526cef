// Package prelude ships the fixed Lua runtime-support text that every
// generated dissector script assumes is present (spec §6.3): ProtoEnum,
// AlignedProtoField/UnalignedProtoField, enforce_len_limit, sum_or_nil,
// format_bitstring, create_bit_mask and nil_coalesce. The Lua text itself is
// a fixed asset per spec.md §1 (no PDL interpretation/byte-level simulation
// happens here); this package only documents and embeds it, it never
// executes Lua.
package prelude

import _ "embed"

//go:embed utils.lua
var utilsLua string

// Source returns the full prelude text, prepended to every generated
// script by internal/driver.
func Source() string {
	return utilsLua
}
