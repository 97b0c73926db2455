// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package reflection

import (
	"strconv"
	"strings"

	"github.com/gogpu/effectc/diag"
	"github.com/gogpu/effectc/glsl"
)

// LayoutItem is one entry of a layout qualifier: "binding = 2" or "std140".
type LayoutItem struct {
	Key   string
	Value string
}

// Layout is a parsed layout(...) qualifier.
type Layout struct {
	Present bool
	Items   []LayoutItem
	Start   int // offset of the "layout" keyword
	End     int // offset just past the closing parenthesis
}

// Int returns the integer value of key.
func (l Layout) Int(key string) (int, bool) {
	for _, it := range l.Items {
		if it.Key == key {
			n, err := strconv.Atoi(it.Value)
			return n, err == nil
		}
	}
	return 0, false
}

// Has reports whether the qualifier names key.
func (l Layout) Has(key string) bool {
	for _, it := range l.Items {
		if it.Key == key {
			return true
		}
	}
	return false
}

// String formats the qualifier as GLSL.
func (l Layout) String() string {
	parts := make([]string, len(l.Items))
	for i, it := range l.Items {
		if it.Value == "" {
			parts[i] = it.Key
		} else {
			parts[i] = it.Key + " = " + it.Value
		}
	}
	return "layout(" + strings.Join(parts, ", ") + ")"
}

// Variable is one declarator of a declaration.
type Variable struct {
	Name      string
	ArrayExpr string // text between the brackets, empty for non-arrays
	IsArray   bool
	Line      int
	Start     int // offset of the name
	End       int // offset past the array suffix and initializer
}

// Declaration is a top-level interface declaration: a uniform, input,
// output, buffer or block.
type Declaration struct {
	Storage    string // uniform, in, out, inout, buffer, attribute or varying
	Layout     Layout
	Qualifiers []string // interpolation, memory and invariance qualifiers
	Precision  string
	Type       string // type name, or block name for blocks
	TypeOffset int
	Vars       []Variable
	Members    []BlockMember // blocks only
	IsBlock    bool
	Instance   string // block instance name
	Start      int    // offset of the first token
	End        int    // offset just past the terminating ';'
	Line       int
}

// BlockMember is a member declaration inside a block body.
type BlockMember struct {
	Precision string
	Type      string
	Vars      []Variable
	Line      int
}

var storageQualifiers = map[string]bool{
	"uniform": true, "in": true, "out": true, "inout": true, "buffer": true,
	"attribute": true, "varying": true,
}

var otherQualifiers = map[string]bool{
	"flat": true, "smooth": true, "noperspective": true, "centroid": true, "sample": true,
	"invariant": true, "precise": true, "const": true, "shared": true,
	"readonly": true, "writeonly": true, "coherent": true, "volatile": true, "restrict": true,
}

// Declarations scans the top level of a token stream for interface
// declarations. Function bodies and struct definitions are skipped.
func Declarations(tokens []glsl.Token) ([]Declaration, error) {
	cur := glsl.NewCursor(tokens)
	var decls []Declaration
	var stmt []glsl.Token

	for !cur.Done() {
		tok := cur.NextSignificant()
		switch {
		case tok.Kind == glsl.TokenPreprocessor:
			continue
		case tok.IsOp(";"):
			if d, ok, err := parseDeclaration(stmt, tok); err != nil {
				return nil, err
			} else if ok {
				decls = append(decls, d)
			}
			stmt = stmt[:0]
		case tok.IsOp("{"):
			if d, ok, err := parseBlock(stmt, cur); err != nil {
				return nil, err
			} else if ok {
				decls = append(decls, d)
			} else {
				cur.SkipBalanced("{", "}")
			}
			stmt = stmt[:0]
		case tok.IsOp("}"):
			stmt = stmt[:0]
		default:
			stmt = append(stmt, tok)
		}
	}
	return decls, nil
}

// qualifierPrefix consumes leading qualifiers of a statement. It returns
// the index of the first token after them.
func qualifierPrefix(stmt []glsl.Token, d *Declaration) (int, error) {
	i := 0
	for i < len(stmt) {
		tok := stmt[i]
		switch {
		case tok.Is(glsl.TokenKeyword, "layout"):
			end, layout, err := parseLayout(stmt, i)
			if err != nil {
				return 0, err
			}
			d.Layout = layout
			i = end
			continue
		case storageQualifiers[tok.Text] && tok.Kind == glsl.TokenKeyword:
			d.Storage = tok.Text
		case otherQualifiers[tok.Text] && tok.Kind == glsl.TokenKeyword:
			d.Qualifiers = append(d.Qualifiers, tok.Text)
		case glsl.IsPrecision(tok.Text):
			d.Precision = tok.Text
		default:
			return i, nil
		}
		i++
	}
	return i, nil
}

// parseLayout parses "layout ( items )" starting at stmt[i].
func parseLayout(stmt []glsl.Token, i int) (int, Layout, error) {
	start := stmt[i]
	if i+1 >= len(stmt) || !stmt[i+1].IsOp("(") {
		return 0, Layout{}, diag.Errorf(start.Line, "expected '(' after layout")
	}
	layout := Layout{Present: true, Start: start.Offset}
	var item []string
	flush := func() {
		if len(item) == 0 {
			return
		}
		it := LayoutItem{Key: item[0]}
		if len(item) > 2 && item[1] == "=" {
			it.Value = strings.Join(item[2:], "")
		}
		layout.Items = append(layout.Items, it)
		item = item[:0]
	}
	for j := i + 2; j < len(stmt); j++ {
		tok := stmt[j]
		switch {
		case tok.IsOp(")"):
			flush()
			layout.End = tok.End()
			return j + 1, layout, nil
		case tok.IsOp(","):
			flush()
		default:
			item = append(item, tok.Text)
		}
	}
	return 0, Layout{}, diag.Errorf(start.Line, "unterminated layout qualifier")
}

func parseDeclaration(stmt []glsl.Token, semi glsl.Token) (Declaration, bool, error) {
	if len(stmt) == 0 {
		return Declaration{}, false, nil
	}
	d := Declaration{Start: stmt[0].Offset, End: semi.End(), Line: stmt[0].Line}
	i, err := qualifierPrefix(stmt, &d)
	if err != nil {
		return Declaration{}, false, err
	}
	if d.Storage == "" || i >= len(stmt) || !stmt[i].IsWord() {
		return Declaration{}, false, nil
	}
	d.Type, d.TypeOffset = stmt[i].Text, stmt[i].Offset
	vars, ok := parseDeclarators(stmt[i+1:])
	if !ok {
		return Declaration{}, false, nil
	}
	d.Vars = vars
	return d, true, nil
}

// parseDeclarators parses "name[expr] = init, name2 ..." up to the end of
// the statement. It fails on anything else, such as a function prototype.
func parseDeclarators(toks []glsl.Token) ([]Variable, bool) {
	var vars []Variable
	for i := 0; i < len(toks); {
		if !toks[i].IsWord() {
			return nil, false
		}
		v := Variable{Name: toks[i].Text, Line: toks[i].Line, Start: toks[i].Offset}
		i++
		if i < len(toks) && toks[i].IsOp("[") {
			depth, j := 1, i+1
			var expr []string
			for ; j < len(toks) && depth > 0; j++ {
				switch {
				case toks[j].IsOp("["):
					depth++
				case toks[j].IsOp("]"):
					depth--
				}
				if depth > 0 {
					expr = append(expr, toks[j].Text)
				}
			}
			if depth > 0 {
				return nil, false
			}
			v.IsArray = true
			v.ArrayExpr = strings.Join(expr, " ")
			i = j
		}
		if i < len(toks) && toks[i].IsOp("=") {
			depth := 0
			for i < len(toks) && (depth > 0 || !toks[i].IsOp(",")) {
				switch {
				case toks[i].IsOp("(") || toks[i].IsOp("["):
					depth++
				case toks[i].IsOp(")") || toks[i].IsOp("]"):
					depth--
				}
				i++
			}
		}
		v.End = toks[i-1].End()
		vars = append(vars, v)
		if i < len(toks) {
			if !toks[i].IsOp(",") {
				return nil, false
			}
			i++
		}
	}
	return vars, len(vars) > 0
}

// parseBlock parses a block whose opening brace was just consumed. It
// returns false, without consuming anything, if stmt does not start a
// uniform or storage block.
func parseBlock(stmt []glsl.Token, cur *glsl.Cursor) (Declaration, bool, error) {
	if len(stmt) == 0 {
		return Declaration{}, false, nil
	}
	d := Declaration{Start: stmt[0].Offset, Line: stmt[0].Line, IsBlock: true}
	i, err := qualifierPrefix(stmt, &d)
	if err != nil {
		return Declaration{}, false, err
	}
	if (d.Storage != "uniform" && d.Storage != "buffer") || i != len(stmt)-1 || !stmt[i].IsWord() {
		return Declaration{}, false, nil
	}
	d.Type, d.TypeOffset = stmt[i].Text, stmt[i].Offset

	var member []glsl.Token
	for {
		tok := cur.NextSignificant()
		switch {
		case tok.Kind == glsl.TokenEOF:
			return Declaration{}, false, diag.Errorf(d.Line, "unterminated block '%s'", d.Type)
		case tok.Kind == glsl.TokenPreprocessor:
			return Declaration{}, false, diag.Errorf(tok.Line, "preprocessor directives are not allowed inside block '%s'", d.Type)
		case tok.IsOp("{"):
			return Declaration{}, false, diag.Errorf(tok.Line, "struct members are not allowed in block '%s'", d.Type)
		case tok.IsOp(";"):
			m, err := parseMember(member, d.Type)
			if err != nil {
				return Declaration{}, false, err
			}
			d.Members = append(d.Members, m)
			member = member[:0]
		case tok.IsOp("}"):
			if len(member) > 0 {
				return Declaration{}, false, diag.Errorf(tok.Line, "missing ';' after member of block '%s'", d.Type)
			}
			return finishBlock(d, tok, cur)
		default:
			member = append(member, tok)
		}
	}
}

func finishBlock(d Declaration, closing glsl.Token, cur *glsl.Cursor) (Declaration, bool, error) {
	next := cur.PeekSignificant()
	if next.Kind == glsl.TokenIdent {
		cur.NextSignificant()
		d.Instance = next.Text
		if cur.PeekSignificant().IsOp("[") {
			cur.NextSignificant()
			cur.SkipBalanced("[", "]")
		}
		next = cur.PeekSignificant()
	}
	if !next.IsOp(";") {
		return Declaration{}, false, diag.Errorf(closing.Line,
			"block '%s' must be followed by ';' or an instance name and ';'", d.Type)
	}
	cur.NextSignificant()
	d.End = next.End()
	return d, true, nil
}

func parseMember(toks []glsl.Token, block string) (BlockMember, error) {
	if len(toks) == 0 {
		return BlockMember{}, nil
	}
	m := BlockMember{Line: toks[0].Line}
	i := 0
	for i < len(toks) && (glsl.IsPrecision(toks[i].Text) || otherQualifiers[toks[i].Text] || toks[i].Is(glsl.TokenKeyword, "layout")) {
		if toks[i].Is(glsl.TokenKeyword, "layout") {
			end, _, err := parseLayout(toks, i)
			if err != nil {
				return BlockMember{}, err
			}
			i = end
			continue
		}
		if glsl.IsPrecision(toks[i].Text) {
			m.Precision = toks[i].Text
		}
		i++
	}
	if i >= len(toks) || !toks[i].IsWord() {
		return BlockMember{}, diag.Errorf(m.Line, "invalid member declaration in block '%s'", block)
	}
	if toks[i].Is(glsl.TokenKeyword, "struct") {
		return BlockMember{}, diag.Errorf(m.Line, "struct members are not allowed in block '%s'", block)
	}
	m.Type = toks[i].Text
	vars, ok := parseDeclarators(toks[i+1:])
	if !ok {
		return BlockMember{}, diag.Errorf(m.Line, "invalid member declaration in block '%s'", block)
	}
	m.Vars = vars
	return m, nil
}
