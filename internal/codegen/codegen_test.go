package codegen_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oakmoss/pdl2lua/internal/ast"
	"github.com/oakmoss/pdl2lua/internal/codegen"
	"github.com/oakmoss/pdl2lua/internal/emit"
	"github.com/oakmoss/pdl2lua/internal/lower"
	"github.com/oakmoss/pdl2lua/internal/pdl"
)

func emitOne(t *testing.T, src, id string, opt codegen.Options) string {
	t.Helper()
	f, err := pdl.Parse("t.pdl", src)
	require.NoError(t, err)
	scope, err := ast.NewScope(f)
	require.NoError(t, err)
	m, err := lower.New(scope, nil).Decl(id)
	require.NoError(t, err)

	w := emit.NewWriter()
	require.NoError(t, codegen.EmitDecl(w, m, opt))
	return w.String()
}

// An aligned scalar's dissect block clamps its read to the buffer's actual
// remaining length rather than the field's declared width (spec §4.F:
// "clamping to the remainder"), using AlignedProtoField the same way
// unaligned fields use UnalignedProtoField.
func TestEmitScalarClampsReadToRemainingBuffer(t *testing.T) {
	out := emitOne(t, `
struct Foo {
    x: 32,
}
`, "Foo", codegen.Options{})

	require.Contains(t, out, "AlignedProtoField.new")
	require.Contains(t, out, "x_len < 4")
	require.Contains(t, out, "x_field:dissect(tree, buf, offset, 4)")
	require.Contains(t, out, "x_raw_field:dissect(tree, buf, offset, x_len)")
	require.Contains(t, out, "offset = offset + x_len")
}

// A file declaring big_endian_packets threads that endianness into every
// scalar's accessor rather than always reading little-endian (spec §1's
// "bit-accurate offsets, endianness").
func TestEmitScalarUsesFileEndianness(t *testing.T) {
	out := emitOne(t, `
big_endian_packets

struct Foo {
    x: 32,
}
`, "Foo", codegen.Options{})

	require.Contains(t, out, `AlignedProtoField.new(Foo_x_f, "uint")`)
	require.NotContains(t, out, `"le_uint"`)
}

// The absence of an explicit endianness directive still defaults to
// little_endian_packets (ast.File's zero value), so an unqualified file
// keeps reading little-endian as before.
func TestEmitScalarDefaultsToLittleEndian(t *testing.T) {
	out := emitOne(t, `
struct Foo {
    x: 32,
}
`, "Foo", codegen.Options{})

	require.Contains(t, out, `AlignedProtoField.new(Foo_x_f, "le_uint")`)
}

// A Checksum declaration's own dissect reads its value using the file's
// declared endianness too, not a hardcoded big-endian accessor (the
// Checksum model has nowhere to store this until Endian is populated from
// the same file-level setting every other declaration uses).
func TestEmitChecksumUsesFileEndianness(t *testing.T) {
	out := emitOne(t, `
little_endian_packets

checksum CRC : 16
`, "CRC", codegen.Options{})

	require.Contains(t, out, "range:le_uint()")
}

// A FixedScalar's Validate check emits a malformed-expert-info warning
// phrased "Expected <Desc> where value=", quoting the field's dissected
// value (spec §7(b)).
func TestEmitScalarValidateWarnsOnMismatch(t *testing.T) {
	out := emitOne(t, `
struct Foo {
    _fixed_ = 42 : 8,
    x: 8,
}
`, "Foo", codegen.Options{})

	require.Contains(t, out, "Expected value == 42 where value=")
	require.Contains(t, out, "PI_MALFORMED, PI_WARN")
}

// A FixedScalar field is validated rather than exposed as a ProtoField of
// its own, so it contributes nothing to the returned protocol_fields list.
func TestEmitFixedScalarHasNoOwnProtoField(t *testing.T) {
	out := emitOne(t, `
struct Foo {
    _fixed_ = 42 : 8,
    x: 8,
}
`, "Foo", codegen.Options{})

	require.NotContains(t, out, "Foo_fixed_1_f = ProtoField")
	require.Contains(t, out, "Foo_x_f = ProtoField.uint8")
}

// An unaligned run whose cumulative width doesn't land on a byte boundary
// warns with the exact residual bit count (spec S6/invariant I3).
func TestEmitUnalignedRunWarnsOnResidualBits(t *testing.T) {
	out := emitOne(t, `
struct Bits {
    a: 3,
    b: 4,
}
`, "Bits", codegen.Options{})

	require.Contains(t, out, "UnalignedProtoField.new")
	require.Contains(t, out, "1 undissected bits remaining")
}

// A fully byte-aligned unaligned-field run (e.g. 3+5 bits) closes cleanly
// with no residual-bits warning.
func TestEmitUnalignedRunClosingOnByteBoundaryHasNoWarning(t *testing.T) {
	out := emitOne(t, `
struct Bits {
    a: 3,
    b: 5,
}
`, "Bits", codegen.Options{})

	require.NotContains(t, out, "undissected bits remaining")
}

// A trailing Padding field folds into the preceding array (invariant I5)
// and the generated dissect warns "Expected a minimum of N octets" when the
// array underruns the padded size.
func TestEmitPaddedArrayWarnsOnUnderrun(t *testing.T) {
	out := emitOne(t, `
struct Foo {
    items: 8[4],
    _padding_: 10,
}
`, "Foo", codegen.Options{})

	require.Contains(t, out, "Expected a minimum of 10 octets in field items")
	require.Contains(t, out, "(Padded)")
}

// An enum-typed Typedef field that resolves to no known tag warns
// "Unknown <field> value=" (invariant I4's catch-all exists precisely so
// this only fires for genuinely out-of-range wire values).
func TestEmitEnumTypedefWarnsOnUnknownValue(t *testing.T) {
	out := emitOne(t, `
enum Opcode : 8 {
    GET = 1,
    SET = 2,
}

struct Foo {
    opcode: Opcode,
}
`, "Foo", codegen.Options{})

	require.Contains(t, out, "Unknown opcode value=")
	require.Contains(t, out, "Opcode_enum:is_known(opcode)")
}

// Emitting the Enum declaration itself registers every declared tag plus
// the synthesized catch-all (invariant I4), with the catch-all registered
// last so ProtoEnum.match only falls through to it once every real tag has
// failed to match.
func TestEmitEnumRegistersCatchAllLast(t *testing.T) {
	f, err := pdl.Parse("t.pdl", `
enum Opcode : 8 {
    GET = 1,
    SET = 2,
}
`)
	require.NoError(t, err)
	scope, err := ast.NewScope(f)
	require.NoError(t, err)
	m, err := lower.New(scope, nil).Decl("Opcode")
	require.NoError(t, err)

	w := emit.NewWriter()
	require.NoError(t, codegen.EmitDecl(w, m, codegen.Options{}))
	out := w.String()

	getIdx := indexOf(out, `Opcode_enum:define("GET", 1)`)
	setIdx := indexOf(out, `Opcode_enum:define("SET", 2)`)
	otherIdx := indexOf(out, `Opcode_enum:define("unknown", nil)`)
	require.Greater(t, getIdx, -1)
	require.Greater(t, setIdx, -1)
	require.Greater(t, otherIdx, getIdx)
	require.Greater(t, otherIdx, setIdx)
}

// Payload/Body dispatch emits one if/elseif branch per candidate child,
// each guarded by that child's own *_body_match_constraints predicate, with
// a final else falling back to an opaque byte range (spec §4.F Payload
// dispatch).
func TestEmitPayloadDispatchBranchesOverChildren(t *testing.T) {
	out := emitOne(t, `
struct Header {
    opcode: 8,
}

packet Request : Header (opcode = 1) {
    _body_,
}

packet GetRequest : Request {
    key: 8,
}

packet SetRequest : Request {
    key: 8,
    value: 8,
}
`, "Request", codegen.Options{})

	require.Contains(t, out, "GetRequest_body_match_constraints")
	require.Contains(t, out, "GetRequest_body_dissect")
	require.Contains(t, out, "SetRequest_body_match_constraints")
	require.Contains(t, out, "SetRequest_body_dissect")
	require.Contains(t, out, "else")
}

// A count-sibling array (the idiomatic no-bracket `_count_(items): 8, items:
// 8[],` form) loops using the sibling's own field_values key, which must be
// the sibling's suffixed abbr ("items_count") rather than the array's own
// abbr, since that's the key its dissect actually populates (see
// internal/lower.abbrOf and fieldCtx.arrayLen).
func TestEmitCountSiblingArrayLoopsOnSiblingFieldValuesKey(t *testing.T) {
	out := emitOne(t, `
struct Foo {
    _count_(items): 8,
    items: 8[],
}
`, "Foo", codegen.Options{})

	require.Contains(t, out, `field_values[path .. ".items_count"]`)
	require.Contains(t, out, "Foo_items_count_f = ProtoField.uint8")
}

// The debug-mode verbose comment supplemental feature: Verbose switches a
// declaration's leading comment to a full struct dump instead of the
// terse "Sequence: <name>" form.
func TestEmitVerboseCommentsDumpStructFields(t *testing.T) {
	out := emitOne(t, `
struct Foo {
    x: 8,
}
`, "Foo", codegen.Options{Verbose: true})

	require.Contains(t, out, `Sequence{Name:"Foo"`)
}

func TestEmitNonVerboseCommentsAreTerse(t *testing.T) {
	out := emitOne(t, `
struct Foo {
    x: 8,
}
`, "Foo", codegen.Options{})

	require.Contains(t, out, "-- Sequence: Foo")
	require.NotContains(t, out, "Sequence{Name:")
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}
