// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package subpass rewrites subpass pragmas into input attachment and
// framebuffer fetch declarations for every target dialect.
//
//	#pragma subpassColor in highp albedo
//	#pragma usubpassStencil in stencil
//	#pragma subpass
//
// All generated declarations are emitted at the "#pragma subpass" marker,
// or at the first subpass pragma when the marker is absent, guarded by
// __VERSION__ conditions that the downgrader folds per target.
package subpass

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/gogpu/effectc/diag"
	"github.com/gogpu/effectc/glsl"
)

// Kind is the attachment aspect a statement reads or writes.
type Kind uint8

const (
	KindColor Kind = iota
	KindDepth
	KindStencil
)

// String returns the pragma suffix of the kind.
func (k Kind) String() string {
	switch k {
	case KindDepth:
		return "Depth"
	case KindStencil:
		return "Stencil"
	default:
		return "Color"
	}
}

// Direction is the access direction of a statement.
type Direction uint8

const (
	DirIn Direction = iota
	DirOut
	DirInOut
)

// String returns the direction keyword.
func (d Direction) String() string {
	switch d {
	case DirOut:
		return "out"
	case DirInOut:
		return "inout"
	default:
		return "in"
	}
}

// Reads reports whether the direction reads the attachment.
func (d Direction) Reads() bool {
	return d == DirIn || d == DirInOut
}

// Writes reports whether the direction writes the attachment.
func (d Direction) Writes() bool {
	return d == DirOut || d == DirInOut
}

// Statement is one subpass pragma.
type Statement struct {
	Kind       Kind
	Direction  Direction
	Scalar     glsl.ScalarKind
	Precision  string
	Name       string
	Line       int
	InputIndex int // input_attachment_index, -1 if the statement does not read
	Location   int // color location, -1 for depth and stencil
}

// Result is the output of Expand.
type Result struct {
	Code       string
	Statements []Statement // in emission order
	Extensions []glsl.Extension
}

// Extensions used by the generated fallbacks.
const (
	ExtFramebufferFetch             = "GL_EXT_shader_framebuffer_fetch"
	ExtFramebufferFetchDepthStencil = "GL_ARM_shader_framebuffer_fetch_depth_stencil"
	ExtDrawBuffers                  = "GL_EXT_draw_buffers"
)

type capability struct {
	directions []Direction
	scalars    []glsl.ScalarKind
}

var capabilities = map[Kind]capability{
	KindColor:   {[]Direction{DirIn, DirOut, DirInOut}, []glsl.ScalarKind{glsl.ScalarFloat, glsl.ScalarInt, glsl.ScalarUint}},
	KindDepth:   {[]Direction{DirIn}, []glsl.ScalarKind{glsl.ScalarFloat}},
	KindStencil: {[]Direction{DirIn}, []glsl.ScalarKind{glsl.ScalarInt, glsl.ScalarUint}},
}

// Expand replaces subpass pragmas with generated declarations. Source
// without subpass pragmas is returned unchanged. The lines added by the
// generated block are recorded in lines, which may be nil.
func Expand(code string, lines *diag.LineMap) (Result, error) {
	if !strings.Contains(code, "subpass") {
		return Result{Code: code}, nil
	}

	src := strings.Split(code, "\n")
	var stmts []Statement
	marker, first := -1, -1
	for i, line := range src {
		name, args, ok := pragma(line)
		if !ok {
			continue
		}
		if name == "subpass" {
			if marker >= 0 {
				return Result{}, diag.Errorf(i+1, "duplicate '#pragma subpass' marker, first one at line %d", marker+1)
			}
			marker = i
			src[i] = ""
			continue
		}
		st, ok, err := ParsePragma(name, args, i+1)
		if err != nil {
			return Result{}, err
		}
		if !ok {
			continue
		}
		for _, prev := range stmts {
			if prev.Name == st.Name {
				return Result{}, diag.Errorf(i+1, "subpass attachment '%s' already declared at line %d", st.Name, prev.Line)
			}
		}
		if first < 0 {
			first = i
		}
		stmts = append(stmts, st)
		src[i] = ""
	}
	if len(stmts) == 0 {
		if marker >= 0 {
			return Result{Code: strings.Join(src, "\n")}, nil
		}
		return Result{Code: code}, nil
	}

	assign(stmts)
	sortStatements(stmts)

	at := marker
	if at < 0 {
		at = first
	}
	block := emit(stmts)
	src[at] = block
	lines.Splice(at+1, 1, strings.Count(block, "\n")+1)
	return Result{
		Code:       strings.Join(src, "\n"),
		Statements: stmts,
		Extensions: extensions(stmts),
	}, nil
}

func pragma(line string) (string, string, bool) {
	trimmed := strings.TrimLeft(line, " \t")
	if !strings.HasPrefix(trimmed, "#") {
		return "", "", false
	}
	d, ok := glsl.ParseDirective(trimmed)
	if !ok {
		return "", "", false
	}
	return d.Pragma()
}

// ParsePragma parses the arguments of a subpass pragma. The second result
// is false if name is not a subpass pragma.
func ParsePragma(name, args string, line int) (Statement, bool, error) {
	st := Statement{Scalar: glsl.ScalarFloat, Line: line, InputIndex: -1, Location: -1}
	base := name
	switch {
	case strings.HasPrefix(name, "isubpass"):
		st.Scalar, base = glsl.ScalarInt, name[1:]
	case strings.HasPrefix(name, "usubpass"):
		st.Scalar, base = glsl.ScalarUint, name[1:]
	}
	switch base {
	case "subpassColor":
		st.Kind = KindColor
	case "subpassDepth":
		st.Kind = KindDepth
	case "subpassStencil":
		st.Kind = KindStencil
	default:
		return Statement{}, false, nil
	}

	fields := strings.Fields(args)
	if len(fields) < 2 || len(fields) > 3 {
		return Statement{}, false, diag.Errorf(line, "malformed '#pragma %s': expected '<in|out|inout> [precision] name'", name)
	}
	switch fields[0] {
	case "in":
		st.Direction = DirIn
	case "out":
		st.Direction = DirOut
	case "inout":
		st.Direction = DirInOut
	default:
		return Statement{}, false, diag.Errorf(line, "'#pragma %s': unknown direction '%s'", name, fields[0])
	}
	if len(fields) == 3 {
		if !glsl.IsPrecision(fields[1]) {
			return Statement{}, false, diag.Errorf(line, "'#pragma %s': unknown precision '%s'", name, fields[1])
		}
		st.Precision = fields[1]
	}
	st.Name = fields[len(fields)-1]
	if !isIdent(st.Name) {
		return Statement{}, false, diag.Errorf(line, "'#pragma %s': invalid name '%s'", name, st.Name)
	}

	capab := capabilities[st.Kind]
	if !slices.Contains(capab.directions, st.Direction) {
		return Statement{}, false, diag.Errorf(line, "subpass%s does not support '%s'", st.Kind, st.Direction)
	}
	if !slices.Contains(capab.scalars, st.Scalar) {
		return Statement{}, false, diag.Errorf(line, "'%s' is not a valid %s subpass attachment type", name, st.Kind)
	}
	return st, true, nil
}

func isIdent(s string) bool {
	if s == "" || !glsl.IsIdentStart(s[0]) {
		return false
	}
	for i := 1; i < len(s); i++ {
		if !glsl.IsIdentChar(s[i]) {
			return false
		}
	}
	return true
}

// assign numbers input attachments and color locations in declaration order.
func assign(stmts []Statement) {
	input, location := 0, 0
	for i := range stmts {
		if stmts[i].Direction.Reads() {
			stmts[i].InputIndex = input
			input++
		}
		if stmts[i].Kind == KindColor {
			stmts[i].Location = location
			location++
		}
	}
}

// sortStatements orders by direction, then kind, then declaration.
func sortStatements(stmts []Statement) {
	slices.SortStableFunc(stmts, func(a, b Statement) int {
		if c := cmp.Compare(a.Direction, b.Direction); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Kind, b.Kind); c != 0 {
			return c
		}
		return cmp.Compare(a.Line, b.Line)
	})
}

func extensions(stmts []Statement) []glsl.Extension {
	var color, depthStencil, drawBuffers bool
	for _, st := range stmts {
		switch {
		case st.Kind == KindColor && st.Direction.Reads():
			color = true
		case st.Kind != KindColor:
			depthStencil = true
		}
		if st.Kind == KindColor && st.Location > 0 {
			drawBuffers = true
		}
	}
	var exts []glsl.Extension
	if color {
		exts = append(exts, glsl.Extension{Name: ExtFramebufferFetch, Behavior: "require", Condition: "__VERSION__ < 450"})
	}
	if depthStencil {
		exts = append(exts, glsl.Extension{Name: ExtFramebufferFetchDepthStencil, Behavior: "require", Condition: "__VERSION__ < 450"})
	}
	if drawBuffers {
		exts = append(exts, glsl.Extension{Name: ExtDrawBuffers, Behavior: "require", Condition: "__VERSION__ < 300"})
	}
	return exts
}

func (st Statement) qualified(typ string) string {
	if st.Precision == "" {
		return typ
	}
	return st.Precision + " " + typ
}

func vectorType(s glsl.ScalarKind) string {
	switch s {
	case glsl.ScalarInt:
		return "ivec4"
	case glsl.ScalarUint:
		return "uvec4"
	default:
		return "vec4"
	}
}

func inputType(s glsl.ScalarKind) string {
	switch s {
	case glsl.ScalarInt:
		return "isubpassInput"
	case glsl.ScalarUint:
		return "usubpassInput"
	default:
		return "subpassInput"
	}
}

// InputName returns the name of the input attachment uniform a statement
// declares for Vulkan targets.
func (st Statement) InputName() string {
	if st.Direction == DirInOut {
		return st.Name + "_input"
	}
	return st.Name
}

func emit(stmts []Statement) string {
	var sb strings.Builder
	sb.WriteString("#if __VERSION__ >= 450\n")
	for _, st := range stmts {
		emitVulkan(&sb, st)
	}
	sb.WriteString("#elif __VERSION__ >= 300\n")
	for _, st := range stmts {
		emitES3(&sb, st)
	}
	sb.WriteString("#else\n")
	for _, st := range stmts {
		emitES1(&sb, st)
	}
	sb.WriteString("#endif")
	return sb.String()
}

func emitVulkan(sb *strings.Builder, st Statement) {
	if st.Direction.Reads() {
		fmt.Fprintf(sb, "layout(input_attachment_index = %d) uniform %s %s;\n",
			st.InputIndex, st.qualified(inputType(st.Scalar)), st.InputName())
		load := fmt.Sprintf("subpassLoad(%s)", st.InputName())
		if st.Kind != KindColor {
			load += ".x"
		}
		fmt.Fprintf(sb, "#define subpassLoad_%s %s\n", st.Name, load)
	}
	if st.Direction.Writes() {
		fmt.Fprintf(sb, "layout(location = %d) out %s %s;\n", st.Location, st.qualified(vectorType(st.Scalar)), st.Name)
	}
}

func emitES3(sb *strings.Builder, st Statement) {
	switch {
	case st.Kind == KindColor && st.Direction.Reads():
		fmt.Fprintf(sb, "layout(location = %d) inout %s %s;\n", st.Location, st.qualified(vectorType(st.Scalar)), st.Name)
		fmt.Fprintf(sb, "#define subpassLoad_%s %s\n", st.Name, st.Name)
	case st.Kind == KindColor:
		fmt.Fprintf(sb, "layout(location = %d) out %s %s;\n", st.Location, st.qualified(vectorType(st.Scalar)), st.Name)
	default:
		emitDepthStencil(sb, st)
	}
}

func emitES1(sb *strings.Builder, st Statement) {
	switch {
	case st.Kind == KindColor:
		if st.Direction.Reads() {
			fmt.Fprintf(sb, "#define subpassLoad_%s gl_LastFragData[%d]\n", st.Name, st.Location)
		}
		if st.Direction.Writes() {
			fmt.Fprintf(sb, "#define %s gl_FragData[%d]\n", st.Name, st.Location)
		}
	default:
		emitDepthStencil(sb, st)
	}
}

func emitDepthStencil(sb *strings.Builder, st Statement) {
	if st.Kind == KindDepth {
		fmt.Fprintf(sb, "#define subpassLoad_%s gl_LastFragDepthARM\n", st.Name)
		return
	}
	fmt.Fprintf(sb, "#define subpassLoad_%s gl_LastFragStencilARM\n", st.Name)
}
