// Package lenalg implements the length algebra (spec component A): a small
// symbolic type describing byte/bit lengths as either "unbounded" or
// "constant bits plus a sum of runtime field lookups", with addition and
// rendering into a Lua expression.
package lenalg

import "fmt"

// BitLen is a count of bits. Field lengths are non-negative; a negative
// value appears only as a size modifier's contribution. Lengths are kept in bits
// throughout the model; callers that require whole octets call Octets,
// which panics if the count isn't byte-aligned.
type BitLen int

// Octets returns bits/8, panicking if the value is not byte-aligned. Callers
// that may legitimately see unaligned values (bit-level scalars) must not
// call this; they work with BitLen directly instead.
func (b BitLen) Octets() int {
	if b%8 != 0 {
		panic(fmt.Sprintf("lenalg: %d bits is not byte-aligned", b))
	}
	return int(b) / 8
}

// Aligned reports whether b is a whole number of octets.
func (b BitLen) Aligned() bool {
	return b%8 == 0
}
