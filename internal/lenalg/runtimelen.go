package lenalg

import (
	"strconv"
	"strings"
)

// RuntimeLen is the sum-type {Bounded, Unbounded} from spec §3: a length
// resolvable at runtime as a constant bit count plus the runtime values of
// named sibling fields (each contributing whole bytes), or else unbounded
// (e.g. an array with no count/size sibling and no fixed count).
//
// The zero value is Unbounded (bounded is false); use Empty() for the
// Bounded zero length.
type RuntimeLen struct {
	bounded   bool
	refs      []string
	constBits BitLen
}

// Empty returns the additive identity: Bounded with no refs and 0 bits.
func Empty() RuntimeLen {
	return RuntimeLen{bounded: true}
}

// Fixed returns a Bounded length with no referenced fields.
func Fixed(bits BitLen) RuntimeLen {
	return RuntimeLen{bounded: true, constBits: bits}
}

// Unbounded returns the length that can't be resolved until the buffer is
// exhausted.
func Unbounded() RuntimeLen {
	return RuntimeLen{bounded: false}
}

// IsBounded reports whether the length has a computable runtime expression.
func (r RuntimeLen) IsBounded() bool { return r.bounded }

// Refs returns the ordered list of sibling field names this length sums in,
// in addition to ConstBits.
func (r RuntimeLen) Refs() []string { return r.refs }

// ConstBits returns the constant bit contribution (0 for Unbounded).
func (r RuntimeLen) ConstBits() BitLen { return r.constBits }

// AddFieldRef folds in a reference to a sibling field's runtime value (which
// contributes whole bytes), plus a constant bit modifier, mirroring a
// Size/Count field's contribution to an enclosing declaration's length.
// Unbounded is absorbing.
func (r RuntimeLen) AddFieldRef(name string, modifier BitLen) RuntimeLen {
	if !r.bounded {
		return r
	}
	refs := make([]string, len(r.refs), len(r.refs)+1)
	copy(refs, r.refs)
	refs = append(refs, name)
	return RuntimeLen{bounded: true, refs: refs, constBits: r.constBits + modifier}
}

// Add implements the RuntimeLen monoid (spec §3): Bounded+Bounded concatenates
// refs and sums constant bits; anything+Unbounded is Unbounded.
func (r RuntimeLen) Add(other RuntimeLen) RuntimeLen {
	if !r.bounded || !other.bounded {
		return Unbounded()
	}
	refs := make([]string, 0, len(r.refs)+len(other.refs))
	refs = append(refs, r.refs...)
	refs = append(refs, other.refs...)
	return RuntimeLen{bounded: true, refs: refs, constBits: r.constBits + other.constBits}
}

// BitOffset returns ConstBits mod 8 for a Bounded length, or 0 for Unbounded
// (spec §4.A). This is how Lowering threads the running bit offset forward.
func (r RuntimeLen) BitOffset() BitLen {
	if !r.bounded {
		return 0
	}
	return r.constBits % 8
}

// ToRuntimeExpr renders the Lua expression that computes this length at
// dissection time, given the name of the in-scope Lua variable holding the
// current field path ("path"). The result is the analyzer-side
// `sum_or_nil(...)` call: the constant octet count plus the runtime value of
// every referenced sibling field, looked up by its path-qualified key in
// `field_values`. Any nil operand propagates (sum_or_nil's contract),
// signalling "unbounded" at runtime the same way Unbounded does at compile
// time. Returns the literal "nil" for an Unbounded length.
func (r RuntimeLen) ToRuntimeExpr(pathVar string) string {
	if !r.bounded {
		return "nil"
	}
	var sb strings.Builder
	sb.WriteString("sum_or_nil(")
	sb.WriteString(strconv.Itoa(int(r.constBits) / 8))
	for _, ref := range r.refs {
		sb.WriteString(", field_values[")
		sb.WriteString(pathVar)
		sb.WriteString(" .. \".")
		sb.WriteString(ref)
		sb.WriteString("\"]")
	}
	sb.WriteString(")")
	return sb.String()
}
