package emit

// IfBranch is one arm of an if/elseif/else cascade: Cond holds the Lua
// boolean expression text, or is empty for the trailing else arm. Body is
// invoked with the Writer already indented one level inside the branch.
type IfBranch struct {
	Cond string
	Body func(w *Writer)
}

// EmitIfChain writes an if <cond> then / elseif <cond> then / ... / else /
// end cascade, used by component F for Payload/Body child dispatch (one
// branch per child's match-constraints predicate, then the fallback arm).
// A branch with an empty Cond is emitted as the trailing "else" and must be
// last if present.
func EmitIfChain(w *Writer, branches []IfBranch) {
	for i, b := range branches {
		switch {
		case b.Cond == "":
			w.P("else")
		case i == 0:
			w.Pf("if %s then", b.Cond)
		default:
			w.Pf("elseif %s then", b.Cond)
		}
		w.Indent()
		b.Body(w)
		w.Unindent()
	}
	w.P("end")
}
