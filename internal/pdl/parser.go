package pdl

import (
	"fmt"
	"strconv"

	"github.com/oakmoss/pdl2lua/internal/ast"
)

// Parse lexes and parses src (named filename for diagnostics) into an
// ast.File. See parseDecl, parseField and parseNamedField for the concrete
// syntax this front end accepts.
func Parse(filename, src string) (*ast.File, error) {
	lx := newLexer(src)
	toks, err := lx.tokenize()
	if err != nil {
		return nil, err
	}
	p := &parser{filename: filename, toks: toks, comments: lx.comments}
	return p.parseFile()
}

type parser struct {
	filename string
	toks     []token
	pos      int
	comments []comment
}

func (p *parser) cur() token  { return p.toks[p.pos] }
func (p *parser) next() token { t := p.toks[p.pos]; if p.pos < len(p.toks)-1 { p.pos++ }; return t }

func (p *parser) loc(startLine int) ast.SourceRange {
	return ast.SourceRange{File: p.filename, StartLine: startLine, EndLine: p.toks[p.pos].line}
}

func (p *parser) errf(format string, args ...interface{}) error {
	return fmt.Errorf("pdl: %s:%d: %s", p.filename, p.cur().line, fmt.Sprintf(format, args...))
}

func (p *parser) expect(k tokenKind, what string) (token, error) {
	if p.cur().kind != k {
		return token{}, p.errf("expected %s, got %q", what, p.cur().text)
	}
	return p.next(), nil
}

func (p *parser) expectIdentText(text string) error {
	if p.cur().kind != tokIdent || p.cur().text != text {
		return p.errf("expected %q, got %q", text, p.cur().text)
	}
	p.next()
	return nil
}

func (p *parser) atIdent(text string) bool {
	return p.cur().kind == tokIdent && p.cur().text == text
}

// commentOnLine returns the trailing same-line comment, if any, recorded by
// the lexer for the given source line.
func (p *parser) commentOnLine(line int) string {
	for _, c := range p.comments {
		if c.line == line {
			return c.text
		}
	}
	return ""
}

func (p *parser) parseFile() (*ast.File, error) {
	f := &ast.File{Endianness: ast.LittleEndian}
	if p.atIdent("little_endian_packets") {
		p.next()
		f.Endianness = ast.LittleEndian
	} else if p.atIdent("big_endian_packets") {
		p.next()
		f.Endianness = ast.BigEndian
	}
	for p.cur().kind != tokEOF {
		d, err := p.parseDecl()
		if err != nil {
			return nil, err
		}
		f.Declarations = append(f.Declarations, d)
	}
	for _, c := range p.comments {
		f.Comments = append(f.Comments, ast.Comment{Loc: ast.SourceRange{File: p.filename, StartLine: c.line, EndLine: c.line}, Text: c.text})
	}
	return f, nil
}

func (p *parser) parseDecl() (*ast.Decl, error) {
	startLine := p.cur().line
	if p.cur().kind != tokIdent {
		return nil, p.errf("expected declaration keyword, got %q", p.cur().text)
	}
	kw := p.cur().text
	switch kw {
	case "enum":
		return p.parseEnum(startLine)
	case "checksum":
		return p.parseChecksum(startLine)
	case "custom_field":
		return p.parseCustomField(startLine)
	case "struct":
		return p.parseSequence(startLine, ast.DeclStruct)
	case "packet":
		return p.parseSequence(startLine, ast.DeclPacket)
	case "group":
		return p.parseSequence(startLine, ast.DeclGroup)
	default:
		return nil, p.errf("unknown declaration keyword %q", kw)
	}
}

func (p *parser) parseEnum(startLine int) (*ast.Decl, error) {
	p.next() // "enum"
	id, err := p.expect(tokIdent, "enum name")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokColon, "':'"); err != nil {
		return nil, err
	}
	width, err := p.expectInt("enum width")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokLBrace, "'{'"); err != nil {
		return nil, err
	}
	d := &ast.Decl{ID: id.text, Kind: ast.DeclEnum, Width: width, Comment: p.commentOnLine(id.line)}
	for p.cur().kind != tokRBrace {
		tag, err := p.parseTag()
		if err != nil {
			return nil, err
		}
		d.Tags = append(d.Tags, tag)
		if p.cur().kind == tokComma {
			p.next()
		}
	}
	p.next() // "}"
	d.Loc = p.loc(startLine)
	return d, nil
}

func (p *parser) parseTag() (ast.Tag, error) {
	if p.cur().kind == tokDotDot {
		p.next()
		if _, err := p.expect(tokEquals, "'='"); err != nil {
			return ast.Tag{}, err
		}
		name, err := p.expect(tokIdent, "catch-all tag name")
		if err != nil {
			return ast.Tag{}, err
		}
		return ast.Tag{Kind: ast.TagOther, ID: name.text}, nil
	}
	if p.cur().kind == tokInt {
		lo, err := p.expectInt("range start")
		if err != nil {
			return ast.Tag{}, err
		}
		if _, err := p.expect(tokDotDot, "'..'"); err != nil {
			return ast.Tag{}, err
		}
		hi, err := p.expectInt("range end")
		if err != nil {
			return ast.Tag{}, err
		}
		if _, err := p.expect(tokEquals, "'='"); err != nil {
			return ast.Tag{}, err
		}
		name, err := p.expect(tokIdent, "range tag name")
		if err != nil {
			return ast.Tag{}, err
		}
		return ast.Tag{Kind: ast.TagRange, ID: name.text, RangeStart: lo, RangeEnd: hi}, nil
	}
	name, err := p.expect(tokIdent, "tag name")
	if err != nil {
		return ast.Tag{}, err
	}
	if _, err := p.expect(tokEquals, "'='"); err != nil {
		return ast.Tag{}, err
	}
	val, err := p.expectInt("tag value")
	if err != nil {
		return ast.Tag{}, err
	}
	return ast.Tag{Kind: ast.TagValue, ID: name.text, Value: val}, nil
}

func (p *parser) parseChecksum(startLine int) (*ast.Decl, error) {
	p.next() // "checksum"
	id, err := p.expect(tokIdent, "checksum name")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokColon, "':'"); err != nil {
		return nil, err
	}
	width, err := p.expectInt("checksum width")
	if err != nil {
		return nil, err
	}
	return &ast.Decl{ID: id.text, Kind: ast.DeclChecksum, Width: width, Loc: p.loc(startLine), Comment: p.commentOnLine(id.line)}, nil
}

func (p *parser) parseCustomField(startLine int) (*ast.Decl, error) {
	p.next() // "custom_field"
	id, err := p.expect(tokIdent, "custom_field name")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokColon, "':'"); err != nil {
		return nil, err
	}
	width, err := p.expectInt("custom_field width")
	if err != nil {
		return nil, err
	}
	return &ast.Decl{ID: id.text, Kind: ast.DeclCustomField, Width: width, Loc: p.loc(startLine), Comment: p.commentOnLine(id.line)}, nil
}

func (p *parser) parseSequence(startLine int, kind ast.DeclKind) (*ast.Decl, error) {
	p.next() // keyword
	id, err := p.expect(tokIdent, "declaration name")
	if err != nil {
		return nil, err
	}
	d := &ast.Decl{ID: id.text, Kind: kind, Comment: p.commentOnLine(id.line)}
	if p.cur().kind == tokColon {
		p.next()
		parent, err := p.expect(tokIdent, "parent declaration name")
		if err != nil {
			return nil, err
		}
		d.ParentID = parent.text
		if p.cur().kind == tokLParen {
			cs, err := p.parseConstraintList()
			if err != nil {
				return nil, err
			}
			d.InheritConstraints = cs
		}
	}
	if _, err := p.expect(tokLBrace, "'{'"); err != nil {
		return nil, err
	}
	for p.cur().kind != tokRBrace {
		f, err := p.parseField()
		if err != nil {
			return nil, err
		}
		d.DeclFields = append(d.DeclFields, f)
		if p.cur().kind == tokComma {
			p.next()
		}
	}
	p.next() // "}"
	d.Loc = p.loc(startLine)
	return d, nil
}

func (p *parser) parseConstraintList() ([]ast.Constraint, error) {
	p.next() // "("
	var cs []ast.Constraint
	for p.cur().kind != tokRParen {
		id, err := p.expect(tokIdent, "constrained field name")
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokEquals, "'='"); err != nil {
			return nil, err
		}
		c := ast.Constraint{ID: id.text}
		if p.cur().kind == tokInt {
			v, err := p.expectInt("constraint value")
			if err != nil {
				return nil, err
			}
			c.Value = &v
		} else {
			tag, err := p.expect(tokIdent, "constraint tag")
			if err != nil {
				return nil, err
			}
			c.TagID = &tag.text
		}
		cs = append(cs, c)
		if p.cur().kind == tokComma {
			p.next()
		}
	}
	p.next() // ")"
	return cs, nil
}

func (p *parser) expectInt(what string) (int, error) {
	t, err := p.expect(tokInt, what)
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(t.text)
	if err != nil {
		return 0, p.errf("invalid integer %q", t.text)
	}
	return v, nil
}

func (p *parser) parseField() (*ast.Field, error) {
	startLine := p.cur().line
	switch {
	case p.atIdent("_reserved_"):
		p.next()
		if _, err := p.expect(tokColon, "':'"); err != nil {
			return nil, err
		}
		w, err := p.expectInt("reserved width")
		if err != nil {
			return nil, err
		}
		return &ast.Field{Kind: ast.FieldReserved, Width: w, Loc: p.loc(startLine)}, nil

	case p.atIdent("_padding_"):
		p.next()
		if _, err := p.expect(tokColon, "':'"); err != nil {
			return nil, err
		}
		size, err := p.expectInt("padding target size")
		if err != nil {
			return nil, err
		}
		return &ast.Field{Kind: ast.FieldPadding, PadToSize: size, Loc: p.loc(startLine)}, nil

	case p.atIdent("_payload_"):
		p.next()
		f := &ast.Field{Kind: ast.FieldPayload, Loc: p.loc(startLine)}
		if p.cur().kind == tokLParen {
			p.next()
			if err := p.expectIdentText("size"); err != nil {
				return nil, err
			}
			if _, err := p.expect(tokEquals, "'='"); err != nil {
				return nil, err
			}
			ref, err := p.expect(tokIdent, "size field name")
			if err != nil {
				return nil, err
			}
			f.SizeFieldID = ref.text
			if _, err := p.expect(tokRParen, "')'"); err != nil {
				return nil, err
			}
		}
		return f, nil

	case p.atIdent("_body_"):
		p.next()
		return &ast.Field{Kind: ast.FieldBody, Loc: p.loc(startLine)}, nil

	case p.atIdent("_element_size_"):
		p.next()
		if _, err := p.expect(tokColon, "':'"); err != nil {
			return nil, err
		}
		w, err := p.expectInt("element_size width")
		if err != nil {
			return nil, err
		}
		return &ast.Field{Kind: ast.FieldElementSize, Width: w, Loc: p.loc(startLine)}, nil

	case p.atIdent("_checksum_start_"):
		p.next()
		if _, err := p.expect(tokLParen, "'('"); err != nil {
			return nil, err
		}
		name, err := p.expect(tokIdent, "checksum name")
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokRParen, "')'"); err != nil {
			return nil, err
		}
		return &ast.Field{Kind: ast.FieldChecksumStart, TypeID: name.text, Loc: p.loc(startLine)}, nil

	case p.atIdent("_fixed_"):
		p.next()
		if _, err := p.expect(tokEquals, "'='"); err != nil {
			return nil, err
		}
		if p.cur().kind == tokInt {
			v, err := p.expectInt("fixed value")
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(tokColon, "':'"); err != nil {
				return nil, err
			}
			w, err := p.expectInt("fixed scalar width")
			if err != nil {
				return nil, err
			}
			return &ast.Field{Kind: ast.FieldFixedScalar, Value: v, Width: w, Loc: p.loc(startLine)}, nil
		}
		tag, err := p.expect(tokIdent, "fixed tag name")
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokColon, "':'"); err != nil {
			return nil, err
		}
		typ, err := p.expect(tokIdent, "fixed enum type")
		if err != nil {
			return nil, err
		}
		return &ast.Field{Kind: ast.FieldFixedEnum, EnumTagID: tag.text, TypeID: typ.text, Loc: p.loc(startLine)}, nil

	case p.atIdent("_size_") || p.atIdent("_count_"):
		isCount := p.atIdent("_count_")
		p.next()
		if _, err := p.expect(tokLParen, "'('"); err != nil {
			return nil, err
		}
		target, err := p.expect(tokIdent, "governed field name")
		if err != nil {
			return nil, err
		}
		modifier := 0
		if p.cur().kind == tokPlus || p.cur().kind == tokMinus {
			sign := 1
			if p.cur().kind == tokMinus {
				sign = -1
			}
			p.next()
			v, err := p.expectInt("size modifier")
			if err != nil {
				return nil, err
			}
			modifier = sign * v
		}
		if _, err := p.expect(tokRParen, "')'"); err != nil {
			return nil, err
		}
		if _, err := p.expect(tokColon, "':'"); err != nil {
			return nil, err
		}
		w, err := p.expectInt("size/count field width")
		if err != nil {
			return nil, err
		}
		kind := ast.FieldSize
		if isCount {
			kind = ast.FieldCount
		}
		return &ast.Field{Kind: kind, ID: target.text, Width: w, SizeModifier: modifier, Loc: p.loc(startLine)}, nil

	case p.atIdent("_flag_"):
		p.next()
		id, err := p.expect(tokIdent, "flag field name")
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokColon, "':'"); err != nil {
			return nil, err
		}
		w, err := p.expectInt("flag width")
		if err != nil {
			return nil, err
		}
		return &ast.Field{Kind: ast.FieldFlag, ID: id.text, Width: w, Loc: p.loc(startLine)}, nil

	case p.cur().kind == tokPlus:
		p.next()
		group, err := p.expect(tokIdent, "group name")
		if err != nil {
			return nil, err
		}
		f := &ast.Field{Kind: ast.FieldGroup, GroupID: group.text, Loc: p.loc(startLine)}
		if p.cur().kind == tokLParen {
			cs, err := p.parseConstraintList()
			if err != nil {
				return nil, err
			}
			f.GroupConstraints = cs
		}
		return f, nil

	default:
		return p.parseNamedField(startLine)
	}
}

// parseNamedField parses `ID ('?' '(' ID '=' INT ')')? ':' TypeRef`,
// covering Scalar, Typedef, ScalarArray and TypedefArray fields, optionally
// gated by a Flag sibling.
func (p *parser) parseNamedField(startLine int) (*ast.Field, error) {
	id, err := p.expect(tokIdent, "field name")
	if err != nil {
		return nil, err
	}
	f := &ast.Field{ID: id.text, Loc: p.loc(startLine)}
	if p.cur().kind == tokQuestion {
		p.next()
		if _, err := p.expect(tokLParen, "'('"); err != nil {
			return nil, err
		}
		flag, err := p.expect(tokIdent, "flag field name")
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokEquals, "'='"); err != nil {
			return nil, err
		}
		v, err := p.expectInt("flag value")
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokRParen, "')'"); err != nil {
			return nil, err
		}
		f.OptionalFieldID = flag.text
		f.OptionalValue = v
	}
	if _, err := p.expect(tokColon, "':'"); err != nil {
		return nil, err
	}

	var typeWidth *int
	var typeID string
	if p.cur().kind == tokInt {
		w, err := p.expectInt("scalar width")
		if err != nil {
			return nil, err
		}
		typeWidth = &w
	} else {
		typ, err := p.expect(tokIdent, "type name")
		if err != nil {
			return nil, err
		}
		typeID = typ.text
	}

	if p.cur().kind != tokLBracket {
		if typeWidth != nil {
			f.Kind = ast.FieldScalar
			f.Width = *typeWidth
		} else {
			f.Kind = ast.FieldTypedef
			f.TypeID = typeID
		}
		f.Comment = p.commentOnLine(f.Loc.StartLine)
		return f, nil
	}

	p.next() // "["
	var count *int
	var sizeFieldID string
	if p.cur().kind == tokPlus {
		p.next()
		ref, err := p.expect(tokIdent, "array size field name")
		if err != nil {
			return nil, err
		}
		sizeFieldID = ref.text
	} else if p.cur().kind == tokInt {
		n, err := p.expectInt("array count")
		if err != nil {
			return nil, err
		}
		count = &n
	}
	if _, err := p.expect(tokRBracket, "']'"); err != nil {
		return nil, err
	}

	if typeWidth != nil {
		f.Kind = ast.FieldScalarArray
		f.ElementWidthBits = *typeWidth
	} else {
		f.Kind = ast.FieldTypedefArray
		f.TypeID = typeID
	}
	f.Count = count
	f.SizeFieldID = sizeFieldID
	f.SizeIsCount = sizeFieldID != ""
	f.Comment = p.commentOnLine(f.Loc.StartLine)
	return f, nil
}
