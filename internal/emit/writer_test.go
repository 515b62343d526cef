package emit

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oakmoss/pdl2lua/internal/ast"
)

func TestWriterIndentUnindent(t *testing.T) {
	w := NewWriter()
	w.P("function f()")
	w.Indent()
	w.P("local x = 1")
	w.Unindent()
	w.P("end")
	require.Equal(t, "function f()\n\tlocal x = 1\nend\n", w.String())
}

func TestWriterUnindentAtZeroIsNoop(t *testing.T) {
	w := NewWriter()
	w.Unindent()
	w.P("x")
	require.Equal(t, "x\n", w.String())
}

func TestWriterResetClearsIndentAndText(t *testing.T) {
	w := NewWriter()
	w.Indent()
	w.P("x")
	w.Reset()
	w.P("y")
	require.Equal(t, "y\n", w.String())
}

func TestEmitIfChain(t *testing.T) {
	w := NewWriter()
	EmitIfChain(w, []IfBranch{
		{Cond: "x == 1", Body: func(w *Writer) { w.P("a()") }},
		{Cond: "x == 2", Body: func(w *Writer) { w.P("b()") }},
		{Body: func(w *Writer) { w.P("c()") }},
	})
	require.Equal(t, "if x == 1 then\n\ta()\nelseif x == 2 then\n\tb()\nelse\n\tc()\nend\n", w.String())
}

func TestBufferAccessorEndianness(t *testing.T) {
	require.Equal(t, "uint", BufferAccessor(ast.BigEndian, 32, true))
	require.Equal(t, "le_uint", BufferAccessor(ast.LittleEndian, 32, true))
	require.Equal(t, "uint64", BufferAccessor(ast.BigEndian, 64, true))
	require.Equal(t, "le_uint64", BufferAccessor(ast.LittleEndian, 64, true))
	require.Equal(t, "raw", BufferAccessor(ast.LittleEndian, 0, false))
}

func TestSameLineComment(t *testing.T) {
	require.Equal(t, "opcode field", SameLineComment("// opcode field"))
	require.Equal(t, "opcode field", SameLineComment("  opcode field  "))
}
