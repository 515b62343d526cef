package pdl

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oakmoss/pdl2lua/internal/ast"
)

const sampleSrc = `
little_endian_packets

enum Opcode : 8 {
    GET = 1,
    SET = 2,
    .. = UNKNOWN,
}

struct Header {
    opcode: Opcode,
    _reserved_: 8,
}

packet Message {
    header: Header,
    _size_(payload): 16,
    _payload_(size=payload),
}
`

func TestParseFileEndianness(t *testing.T) {
	f, err := Parse("sample.pdl", sampleSrc)
	require.NoError(t, err)
	require.Equal(t, ast.LittleEndian, f.Endianness)
	require.Len(t, f.Declarations, 3)
}

func TestParseEnumTagsIncludingCatchAll(t *testing.T) {
	f, err := Parse("sample.pdl", sampleSrc)
	require.NoError(t, err)
	enumDecl := f.Declarations[0]
	require.Equal(t, "Opcode", enumDecl.ID)
	require.Equal(t, ast.DeclEnum, enumDecl.Kind)
	require.Len(t, enumDecl.Tags, 3)
	require.Equal(t, ast.TagOther, enumDecl.Tags[2].Kind)
	require.Equal(t, "UNKNOWN", enumDecl.Tags[2].ID)
}

func TestParseStructFields(t *testing.T) {
	f, err := Parse("sample.pdl", sampleSrc)
	require.NoError(t, err)
	header := f.Declarations[1]
	require.Equal(t, "Header", header.ID)
	require.Len(t, header.DeclFields, 2)
	require.Equal(t, ast.FieldTypedef, header.DeclFields[0].Kind)
	require.Equal(t, "Opcode", header.DeclFields[0].TypeID)
	require.Equal(t, ast.FieldReserved, header.DeclFields[1].Kind)
	require.Equal(t, 8, header.DeclFields[1].Width)
}

func TestParsePacketWithSizeAndPayload(t *testing.T) {
	f, err := Parse("sample.pdl", sampleSrc)
	require.NoError(t, err)
	msg := f.Declarations[2]
	require.Equal(t, "Message", msg.ID)
	require.Len(t, msg.DeclFields, 3)
	sizeField := msg.DeclFields[1]
	require.Equal(t, ast.FieldSize, sizeField.Kind)
	require.Equal(t, "payload", sizeField.ID)
	payloadField := msg.DeclFields[2]
	require.Equal(t, ast.FieldPayload, payloadField.Kind)
	require.Equal(t, "payload", payloadField.SizeFieldID)
}

func TestParseRejectsMalformedInput(t *testing.T) {
	_, err := Parse("bad.pdl", "struct Foo { bar: }")
	require.Error(t, err)
}

func TestParseArrayForms(t *testing.T) {
	src := `
struct Arr {
    fixed_list: 8[4],
    dynamic_list: 8[+n],
    _count_(dynamic_list): 8,
    open_list: 8[],
}
`
	f, err := Parse("arr.pdl", src)
	require.NoError(t, err)
	d := f.Declarations[0]
	require.Equal(t, ast.FieldScalarArray, d.DeclFields[0].Kind)
	require.NotNil(t, d.DeclFields[0].Count)
	require.Equal(t, 4, *d.DeclFields[0].Count)
	require.Equal(t, "n", d.DeclFields[1].SizeFieldID)
	require.Equal(t, ast.FieldScalarArray, d.DeclFields[3].Kind)
	require.Nil(t, d.DeclFields[3].Count)
}
