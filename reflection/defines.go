// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package reflection

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/gogpu/effectc/diag"
	"github.com/gogpu/effectc/expr"
	"github.com/gogpu/effectc/glsl"
)

// LineDefines maps source lines to the gating macros active there.
type LineDefines struct {
	lines []int
	defs  [][]string
}

func (l *LineDefines) save(line int, defs []string) {
	if n := len(l.lines); n > 0 && l.lines[n-1] == line {
		l.defs[n-1] = defs
		return
	}
	l.lines = append(l.lines, line)
	l.defs = append(l.defs, defs)
}

// At returns the gating macros active at line.
func (l *LineDefines) At(line int) []string {
	i := sort.SearchInts(l.lines, line+1)
	if i == 0 {
		return nil
	}
	return l.defs[i-1]
}

// BuiltinPragma is a "#pragma builtin(global|local)" marker. It applies to
// the first declaration after it.
type BuiltinPragma struct {
	Line   int
	Global bool
}

// Message is a "#pragma warning" or "#pragma error" directive.
type Message struct {
	Line        int
	Text        string
	Error       bool
	Conditional bool // inside an #if block
}

// Extraction is the result of ExtractDefines.
type Extraction struct {
	Lines        LineDefines
	Rates        map[string]Rate
	Unfilterable map[string]bool
	Extensions   []glsl.Extension
	Builtins     []BuiltinPragma
	Messages     []Message
}

// RateOf returns the rate recorded for a resource name.
func (x *Extraction) RateOf(name string) (Rate, bool) {
	r, ok := x.Rates[name]
	return r, ok
}

// BuiltinScope returns the builtin pragma governing a declaration at line:
// the last pragma before it with no other declaration in between.
func (x *Extraction) BuiltinScope(line, prevDecl int) (global, ok bool) {
	for i := len(x.Builtins) - 1; i >= 0; i-- {
		b := x.Builtins[i]
		if b.Line < line {
			if b.Line > prevDecl {
				return b.Global, true
			}
			return false, false
		}
	}
	return false, false
}

// IsReservedMacro reports whether name is provided by the GLSL
// implementation and never becomes a material define.
func IsReservedMacro(name string) bool {
	switch name {
	case "__VERSION__", "__LINE__", "__FILE__", "defined", "GL_ES":
		return true
	}
	return strings.HasPrefix(name, "GL_")
}

// level is one open conditional. Conditions of branches already passed
// are kept negated in done.
type level struct {
	done []string
	cur  []string
}

type extractor struct {
	defines *DefineSet
	out     *Extraction
	stack   []level
	locals  map[string]bool // macros defined with plain #define
}

// ExtractDefines walks the preprocessor directives of tokens. Every macro
// tested by a conditional becomes a Define in defines, gated by the
// conditions enclosing it. Pragmas carrying resource metadata are
// collected into the returned side tables.
func ExtractDefines(tokens []glsl.Token, defines *DefineSet) (*Extraction, error) {
	x := &extractor{
		defines: defines,
		out: &Extraction{
			Rates:        make(map[string]Rate),
			Unfilterable: make(map[string]bool),
		},
		locals: make(map[string]bool),
	}
	for _, tok := range tokens {
		if tok.Kind != glsl.TokenPreprocessor {
			continue
		}
		d, _ := glsl.ParseDirective(tok.Text)
		if err := x.directive(d, tok.Line); err != nil {
			return nil, err
		}
		x.out.Lines.save(tok.Line+strings.Count(tok.Text, "\n"), x.chain())
	}
	if len(x.stack) > 0 {
		return nil, diag.Errorf(lastLine(tokens), "unterminated #if block")
	}
	return x.out, nil
}

func lastLine(tokens []glsl.Token) int {
	if len(tokens) == 0 {
		return 1
	}
	return tokens[len(tokens)-1].Line
}

func (x *extractor) directive(d glsl.Directive, line int) error {
	switch d.Name {
	case "if":
		x.stack = append(x.stack, level{})
		return x.condition(d.Body, line)
	case "elif":
		if len(x.stack) == 0 {
			return diag.Errorf(line, "#elif without #if")
		}
		x.flip()
		return x.condition(d.Body, line)
	case "ifdef", "ifndef":
		name, _, _ := strings.Cut(d.Body, " ")
		if name == "" {
			return diag.Errorf(line, "#%s without a macro name", d.Name)
		}
		cond := name
		if d.Name == "ifndef" {
			cond = "!" + name
		}
		x.use(name, DefineBoolean)
		x.stack = append(x.stack, level{})
		if x.tracked(name) {
			x.stack[len(x.stack)-1].cur = []string{cond}
		}
	case "else":
		if len(x.stack) == 0 {
			return diag.Errorf(line, "#else without #if")
		}
		x.flip()
	case "endif":
		if len(x.stack) == 0 {
			return diag.Errorf(line, "#endif without #if")
		}
		x.stack = x.stack[:len(x.stack)-1]
	case "define":
		name := d.Body
		if i := strings.IndexFunc(name, func(r rune) bool { return r >= 0x80 || !glsl.IsIdentChar(byte(r)) }); i >= 0 {
			name = name[:i]
		}
		x.locals[name] = true
	case "pragma":
		name, args, ok := d.Pragma()
		if !ok {
			return nil
		}
		return x.pragma(name, args, line)
	}
	return nil
}

// condition registers the macros of an #if or #elif expression and adds
// its conjuncts to the current level.
func (x *extractor) condition(body string, line int) error {
	n, err := expr.Parse(body)
	if err != nil {
		return diag.Errorf(line, "invalid preprocessor condition '%s': %v", body, err)
	}
	numeric := make(map[string]bool)
	collectNumeric(n, numeric)
	for _, name := range expr.Identifiers(n) {
		typ := DefineBoolean
		if numeric[name] {
			typ = DefineNumber
		}
		x.use(name, typ)
	}
	top := len(x.stack) - 1
	for _, c := range conjuncts(n) {
		if x.tracked(strings.TrimPrefix(c, "!")) {
			x.stack[top].cur = append(x.stack[top].cur, c)
		}
	}
	return nil
}

func (x *extractor) tracked(name string) bool {
	return !IsReservedMacro(name) && !x.locals[name]
}

func (x *extractor) use(name string, typ DefineType) {
	if !x.tracked(name) {
		return
	}
	d := &Define{Name: name, Type: typ, Defines: x.chain(), used: true}
	if typ == DefineNumber {
		d.Range = slices.Clone(DefaultNumberRange)
	}
	x.defines.Add(d)
}

// chain returns the flattened conditions of every open level.
func (x *extractor) chain() []string {
	out := []string{}
	for _, l := range x.stack {
		out = append(out, l.done...)
		out = append(out, l.cur...)
	}
	return out
}

// flip moves to the next branch of the current level: the conditions of
// the branch just left are negated.
func (x *extractor) flip() {
	l := &x.stack[len(x.stack)-1]
	for _, c := range l.cur {
		if name, ok := strings.CutPrefix(c, "!"); ok {
			l.done = append(l.done, name)
		} else {
			l.done = append(l.done, "!"+c)
		}
	}
	l.cur = nil
}

// conjuncts returns the macros that must hold, or must not hold when
// prefixed with '!', for n to be true. Disjunctions contribute nothing.
func conjuncts(n expr.Node) []string {
	switch n := n.(type) {
	case *expr.Ident:
		return []string{n.Name}
	case *expr.Defined:
		return []string{n.Name}
	case *expr.Unary:
		if n.Op != "!" {
			return nil
		}
		switch x := n.X.(type) {
		case *expr.Ident:
			return []string{"!" + x.Name}
		case *expr.Defined:
			return []string{"!" + x.Name}
		}
	case *expr.Binary:
		switch n.Op {
		case "&&":
			return append(conjuncts(n.Left), conjuncts(n.Right)...)
		case "<", "<=", ">", ">=", "==", "!=":
			var out []string
			if id, ok := n.Left.(*expr.Ident); ok {
				out = append(out, id.Name)
			}
			if id, ok := n.Right.(*expr.Ident); ok {
				out = append(out, id.Name)
			}
			return out
		}
	}
	return nil
}

// collectNumeric marks identifiers compared with an ordering operator, or
// for equality with an integer no boolean can hold.
func collectNumeric(n expr.Node, out map[string]bool) {
	switch n := n.(type) {
	case *expr.Unary:
		collectNumeric(n.X, out)
	case *expr.Binary:
		numeric := false
		switch n.Op {
		case "<", "<=", ">", ">=":
			numeric = true
		case "==", "!=":
			numeric = beyondBool(n.Left) || beyondBool(n.Right)
		}
		if numeric {
			for _, side := range []expr.Node{n.Left, n.Right} {
				if id, ok := side.(*expr.Ident); ok {
					out[id.Name] = true
				}
			}
		}
		collectNumeric(n.Left, out)
		collectNumeric(n.Right, out)
	}
}

func beyondBool(n expr.Node) bool {
	lit, ok := n.(*expr.Literal)
	return ok && lit.Value.Kind != expr.KindBool && (lit.Value.AsFloat() > 1 || lit.Value.AsFloat() < 0)
}

func (x *extractor) pragma(name, args string, line int) error {
	switch name {
	case "define-meta":
		return x.defineMeta(args, line)
	case "rate":
		fields := strings.Fields(args)
		if len(fields) != 2 {
			return diag.Errorf(line, "expected '#pragma rate <name> <rate>'")
		}
		rate, ok := ParseRate(fields[1])
		if !ok {
			return diag.Errorf(line, "unknown rate '%s' for '%s'", fields[1], fields[0])
		}
		x.out.Rates[fields[0]] = rate
	case "unfilterable-float":
		fields := strings.Fields(args)
		if len(fields) != 1 {
			return diag.Errorf(line, "expected '#pragma unfilterable-float <name>'")
		}
		x.out.Unfilterable[fields[0]] = true
	case "extension":
		ext, err := parseExtension(args)
		if err != nil {
			return diag.Errorf(line, "%v", err)
		}
		x.out.Extensions = append(x.out.Extensions, ext)
	case "builtin":
		scope := strings.Trim(args, "() \t")
		switch scope {
		case "global", "local":
			x.out.Builtins = append(x.out.Builtins, BuiltinPragma{Line: line, Global: scope == "global"})
		default:
			return diag.Errorf(line, "expected '#pragma builtin(global)' or '#pragma builtin(local)'")
		}
	case "warning", "error":
		x.out.Messages = append(x.out.Messages, Message{
			Line:        line,
			Text:        strings.TrimSpace(args),
			Error:       name == "error",
			Conditional: len(x.stack) > 0,
		})
	}
	return nil
}

// parseExtension parses "(NAME, CONDITION, BEHAVIOR)", with the two
// trailing fields optional and the list optionally bracketed.
func parseExtension(args string) (glsl.Extension, error) {
	inner := strings.TrimSpace(args)
	if !strings.HasPrefix(inner, "(") || !strings.HasSuffix(inner, ")") {
		return glsl.Extension{}, fmt.Errorf("expected '#pragma extension(<name>, <condition>, <behavior>)'")
	}
	inner = strings.TrimSpace(inner[1 : len(inner)-1])
	inner = strings.TrimSuffix(strings.TrimPrefix(inner, "["), "]")
	parts := splitTopLevel(inner, ',')
	if len(parts) == 0 || parts[0] == "" || len(parts) > 3 {
		return glsl.Extension{}, fmt.Errorf("malformed extension pragma '%s'", args)
	}
	ext := glsl.Extension{Name: parts[0]}
	if len(parts) > 1 {
		ext.Condition = parts[1]
		if _, err := expr.Parse(ext.Condition); err != nil {
			return glsl.Extension{}, fmt.Errorf("invalid condition for extension %s: %w", ext.Name, err)
		}
	}
	if len(parts) > 2 {
		ext.Behavior = parts[2]
	}
	return ext, nil
}

// splitTopLevel splits s at sep outside parentheses, brackets, braces and
// quotes, trimming each part.
func splitTopLevel(s string, sep byte) []string {
	var parts []string
	depth, start := 0, 0
	var quote byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == '(' || c == '[' || c == '{':
			depth++
		case c == ')' || c == ']' || c == '}':
			depth--
		case c == sep && depth == 0:
			parts = append(parts, strings.TrimSpace(s[start:i]))
			start = i + 1
		}
	}
	if rest := strings.TrimSpace(s[start:]); rest != "" || len(parts) > 0 {
		parts = append(parts, rest)
	}
	return parts
}

// defineMeta applies "#pragma define-meta NAME label(value)...". Values
// are flow-style YAML: range([0, 4]), options([a, b]), editor({ x: y }).
func (x *extractor) defineMeta(args string, line int) error {
	name, rest, _ := strings.Cut(strings.TrimSpace(args), " ")
	if name == "" {
		return diag.Errorf(line, "expected '#pragma define-meta <name> <labels>'")
	}
	labels, err := parseLabels(rest)
	if err != nil {
		return diag.Errorf(line, "define-meta %s: %v", name, err)
	}

	d, ok := x.defines.Get(name)
	if !ok {
		d = x.defines.Add(&Define{Name: name, Defines: x.chain()})
	}
	typeSet := false
	for _, l := range labels {
		switch l.key {
		case "range":
			r, err := toFloats(l.value)
			if err != nil || len(r) < 2 || len(r) > 3 {
				return diag.Errorf(line, "define-meta %s: range must be [min, max] or [min, max, step]", name)
			}
			d.Range = r
			if !typeSet {
				d.Type = DefineNumber
			}
		case "options":
			opts, ok := l.value.([]any)
			if !ok || len(opts) == 0 {
				return diag.Errorf(line, "define-meta %s: options must be a non-empty list", name)
			}
			d.Options = d.Options[:0]
			for _, o := range opts {
				d.Options = append(d.Options, fmt.Sprint(o))
			}
			if !typeSet {
				d.Type = DefineString
			}
		case "default":
			d.Default = l.value
		case "type":
			t, ok := ParseDefineType(fmt.Sprint(l.value))
			if !ok {
				return diag.Errorf(line, "define-meta %s: unknown type '%v'", name, l.value)
			}
			d.Type, typeSet = t, true
		case "editor":
			m, ok := l.value.(map[string]any)
			if !ok {
				return diag.Errorf(line, "define-meta %s: editor must be a mapping", name)
			}
			d.Editor = m
		case "rate":
			r, ok := ParseRate(fmt.Sprint(l.value))
			if !ok {
				return diag.Errorf(line, "define-meta %s: unknown rate '%v'", name, l.value)
			}
			d.Rate = &r
		default:
			return diag.Errorf(line, "define-meta %s: unknown label '%s'", name, l.key)
		}
	}
	d.explicit = true
	return nil
}

type label struct {
	key   string
	value any
}

// parseLabels parses a sequence of key(value) pairs.
func parseLabels(s string) ([]label, error) {
	var labels []label
	s = strings.TrimSpace(s)
	for s != "" {
		open := strings.IndexByte(s, '(')
		if open <= 0 {
			return nil, fmt.Errorf("expected label(value) at '%s'", s)
		}
		key := strings.TrimSpace(s[:open])
		depth, end := 0, -1
		for i := open; i < len(s) && end < 0; i++ {
			switch s[i] {
			case '(':
				depth++
			case ')':
				depth--
				if depth == 0 {
					end = i
				}
			}
		}
		if end < 0 {
			return nil, fmt.Errorf("unterminated label '%s'", key)
		}
		var value any
		if err := yaml.Unmarshal([]byte(s[open+1:end]), &value); err != nil {
			return nil, fmt.Errorf("label %s: %w", key, err)
		}
		labels = append(labels, label{key: key, value: value})
		s = strings.TrimSpace(s[end+1:])
	}
	return labels, nil
}

func toFloats(v any) ([]float64, error) {
	list, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("not a list")
	}
	out := make([]float64, len(list))
	for i, e := range list {
		switch n := e.(type) {
		case int:
			out[i] = float64(n)
		case float64:
			out[i] = n
		default:
			return nil, fmt.Errorf("'%v' is not a number", e)
		}
	}
	return out, nil
}
