package emit

import "strings"

// SameLineComment extracts the text of a "// ..." or "-- ..." style comment
// that trails a declaration on its own source line, grounded on the
// original tool's find_comments_on_same_line/unwrap_comment
// (original_source/src/comments.rs). The PDL facade stores comment text
// already unwrapped (see ast.Comment), so this just trims surrounding
// whitespace and a leading comment marker a caller might still be carrying.
func SameLineComment(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "//")
	s = strings.TrimPrefix(s, "--")
	return strings.TrimSpace(s)
}

// LuaComment renders text as a Wireshark-script comment line ("-- text"),
// or "" if text is empty.
func LuaComment(text string) string {
	if text == "" {
		return ""
	}
	return "-- " + text
}
