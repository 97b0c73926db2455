// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package effectc

import (
	"context"
	"fmt"
	"strings"

	"github.com/gogpu/effectc/binding"
	"github.com/gogpu/effectc/chunk"
	"github.com/gogpu/effectc/dce"
	"github.com/gogpu/effectc/diag"
	"github.com/gogpu/effectc/downgrade"
	"github.com/gogpu/effectc/glsl"
	"github.com/gogpu/effectc/macro"
	"github.com/gogpu/effectc/reflection"
	"github.com/gogpu/effectc/subpass"
	"github.com/gogpu/effectc/validate"
)

// builder holds the state shared by the stages of one Build call.
type builder struct {
	name      string
	kind      EffectKind
	opts      *Options
	collector *diag.Collector
	defines   *reflection.DefineSet
	info      *reflection.ShaderInfo
}

// unit is a stage after the front end: canonical code ready to be
// specialized for each dialect.
type unit struct {
	src        StageSource
	chunk      string
	entry      string
	code       string
	extensions []glsl.Extension
}

// splitName splits "chunk:entry" into its parts.
func splitName(name string) (chunkName, entry string) {
	chunkName, entry, ok := strings.Cut(name, ":")
	if !ok || entry == "" {
		entry = "main"
	}
	return chunkName, entry
}

// front runs the stage independent passes and merges the reflection of s
// into the effect.
func (b *builder) front(s StageSource) (*unit, error) {
	c := b.collector
	c.SetShader(s.Name)
	u := &unit{src: s}
	u.chunk, u.entry = splitName(s.Name)

	source := s.Source
	if source == "" {
		source = "#include <" + u.chunk + ">"
	}
	code, err := b.opts.registry().Resolve(source, chunk.Options{
		Search:           b.opts.Search,
		AlternativePaths: b.opts.AlternativePaths,
	})
	if err != nil {
		return nil, c.Fail(err)
	}
	// Diagnostics of the passes below point into the resolved chunk the
	// author wrote, not into the expanded text.
	resolved, lines := code, diag.NewLineMap(code)
	fail := func(err error) error { return b.failAt(err, resolved, lines) }

	sp, err := subpass.Expand(code, lines)
	if err != nil {
		return nil, fail(err)
	}
	code = sp.Code
	u.extensions = append(u.extensions, sp.Extensions...)

	code, literals := macro.ExpandLiteral(code)
	if code, err = macro.ExpandFunctions(code, lines, c); err != nil {
		return nil, fail(err)
	}

	res, err := dce.Eliminate(code, u.entry)
	if err != nil {
		return nil, c.Fail(err)
	}
	if code, err = wrapEntry(res, u.entry, s.Stage); err != nil {
		return nil, fail(err)
	}

	tokens, err := glsl.Tokenize(code)
	if err != nil {
		return nil, fail(err)
	}
	if err := checkDeprecated(tokens, b.opts.registry()); err != nil {
		return nil, fail(err)
	}

	pragmas, err := reflection.ExtractDefines(tokens, b.defines)
	if err != nil {
		return nil, fail(err)
	}
	u.extensions = append(u.extensions, pragmas.Extensions...)
	if err := b.report(pragmas.Messages, resolved, lines); err != nil {
		return nil, err
	}

	// Params are reflected from the Vulkan view so declarations that
	// only exist for the ES targets are not counted.
	vulkan, err := downgrade.Fold(code, b.opts.vulkanVersion().Number())
	if err != nil {
		return nil, fail(err)
	}
	vtokens, err := glsl.Tokenize(vulkan)
	if err != nil {
		return nil, fail(err)
	}
	info, err := reflection.ExtractParams(vtokens, reflection.ParamOptions{
		Stage:          s.Stage,
		Pragmas:        pragmas,
		GlobalBuiltins: b.opts.globalBuiltins(),
	})
	if err != nil {
		return nil, fail(err)
	}
	for _, p := range info.All() {
		p.Line = lines.Source(p.Line)
	}
	if err := b.info.Merge(info); err != nil {
		return nil, c.Fail(err)
	}

	u.code = pragmaErrors(code)
	if err := c.Err(); err != nil {
		return nil, err
	}
	Logger().Debug("effectc: stage reflected",
		"effect", b.name,
		"shader", s.Name,
		"stage", s.Stage.String(),
		"literals", len(literals),
		"bytes", len(u.code))
	return u, nil
}

// back generates the dialect texts of u. It runs after bindings are
// allocated on the merged reflection.
func (b *builder) back(u *unit) (ShaderOutput, error) {
	c := b.collector
	c.SetShader(u.src.Name)
	stage := u.src.Stage
	isVertex := stage == reflection.StageVertex
	out := ShaderOutput{Stage: stage, Name: u.chunk, Entry: u.entry}

	var err error
	if stage == reflection.StageCompute {
		if out.GLSL3, err = downgrade.Downgrade(u.code, glsl.VersionES310, u.extensions, false); err != nil {
			return out, c.Fail(err)
		}
	} else {
		if out.GLSL3, err = downgrade.Downgrade(u.code, glsl.VersionES300, u.extensions, isVertex); err != nil {
			return out, c.Fail(err)
		}
		es1, err := downgrade.Downgrade(u.code, glsl.VersionES100, u.extensions, isVertex)
		if err != nil {
			return out, c.Fail(err)
		}
		if es1, err = downgrade.GLSL300To100(es1, b.info, stage); err != nil {
			return out, c.Fail(err)
		}
		if !b.opts.SkipValidation {
			if err := validate.Check(es1, stage, c); err != nil {
				return out, b.failAt(err, es1, nil)
			}
		}
		out.GLSL1 = clean(es1)
	}

	vk, err := downgrade.Downgrade(u.code, b.opts.vulkanVersion(), u.extensions, isVertex)
	if err != nil {
		return out, c.Fail(err)
	}
	if vk, err = binding.Decorate(vk, stage, b.info); err != nil {
		return out, c.Fail(err)
	}
	out.GLSL3 = clean(out.GLSL3)
	out.GLSL4 = clean(vk)

	Logger().Debug("effectc: stage compiled",
		"effect", b.name,
		"shader", u.src.Name,
		"stage", stage.String(),
		"glsl1", len(out.GLSL1),
		"glsl3", len(out.GLSL3),
		"glsl4", len(out.GLSL4))
	return out, nil
}

// link runs the strict compile of the ES 1.00 vertex and fragment pair.
func (b *builder) link(ctx context.Context, out *BuildOutput) error {
	if b.opts.Compiler == nil || b.kind != KindGraphics {
		return nil
	}
	vert, frag := out.Shader(reflection.StageVertex), out.Shader(reflection.StageFragment)
	if vert == nil || frag == nil {
		return nil
	}
	b.collector.SetShader(vert.Name + "+" + frag.Name)
	defines := b.defines.List()
	err := b.opts.Compiler.Link(ctx,
		validate.StrictSource(vert.GLSL1, defines),
		validate.StrictSource(frag.GLSL1, defines))
	if err != nil {
		return b.collector.Fail(diag.Errorf(0, "GLSL ES 1.00 compile failed: %w", err))
	}
	return nil
}

// report forwards #pragma warning and #pragma error messages. An error
// outside any conditional block fails the build; conditional ones are
// left to the driver through #error.
func (b *builder) report(messages []reflection.Message, code string, lines *diag.LineMap) error {
	for _, m := range messages {
		switch {
		case !m.Error:
			b.collector.Report(lines.Map(diag.Warningf(m.Line, "%s", m.Text)))
		case !m.Conditional:
			return b.failAt(diag.Errorf(m.Line, "%s", m.Text), code, lines)
		}
	}
	return nil
}

// failAt records err with the code its line number refers to. A non-nil
// lines translates the line into code first.
func (b *builder) failAt(err error, code string, lines *diag.LineMap) error {
	d := diag.Wrap(err)
	if d.Source == "" && d.Line > 0 {
		lines.Map(d)
		d.Source = code
	}
	return b.collector.Fail(d)
}

// warnLooseUniforms reports uniforms declared outside a block. The Vulkan
// targets only accept them inside uniform blocks.
func (b *builder) warnLooseUniforms() {
	for _, p := range b.info.Uniforms() {
		b.collector.Report(diag.Warningf(p.Line,
			"uniform '%s' is not inside a uniform block and cannot be bound on Vulkan", p.Name))
	}
}

// wrapEntry adds a main function calling entry when the stage has none.
// A vec4 entry writes gl_Position in a vertex stage and a color output
// in a fragment stage.
func wrapEntry(res dce.Result, entry string, stage reflection.Stage) (string, error) {
	if entry == "main" {
		return res.Code, nil
	}
	var fn *dce.Function
	for i := range res.Functions {
		switch res.Functions[i].Name {
		case "main":
			return res.Code, nil
		case entry:
			fn = &res.Functions[i]
		}
	}
	if fn == nil {
		return res.Code, nil
	}

	line := strings.Count(res.Code[:fn.Start], "\n") + 1
	ret, err := returnType(res.Code[fn.Start:fn.End])
	if err != nil {
		return "", err
	}
	var main string
	switch {
	case ret == "void":
		main = fmt.Sprintf("void main() { %s(); }\n", entry)
	case ret == "vec4" && stage == reflection.StageVertex:
		main = fmt.Sprintf("void main() { gl_Position = %s(); }\n", entry)
	case ret == "vec4" && stage == reflection.StageFragment:
		main = fmt.Sprintf("layout(location = 0) out vec4 cc_FragColor;\nvoid main() { cc_FragColor = %s(); }\n", entry)
	default:
		return "", diag.Errorf(line, "entry '%s' of a %s shader returns '%s', want void or vec4", entry, stage, ret)
	}
	code := res.Code
	if !strings.HasSuffix(code, "\n") {
		code += "\n"
	}
	return code + main, nil
}

// returnType returns the return type of a function definition.
func returnType(def string) (string, error) {
	tokens, err := glsl.Tokenize(def)
	if err != nil {
		return "", err
	}
	for _, tok := range glsl.Significant(tokens) {
		if tok.IsWord() && !glsl.IsPrecision(tok.Text) {
			return tok.Text, nil
		}
	}
	return "", nil
}

// checkDeprecated fails on the first identifier the registry marks as
// deprecated.
func checkDeprecated(tokens []glsl.Token, reg *chunk.Registry) error {
	if !reg.HasDeprecatedIdentifiers() {
		return nil
	}
	for _, tok := range tokens {
		if !tok.IsWord() {
			continue
		}
		if msg, ok := reg.IdentifierDeprecation(tok.Text); ok {
			return diag.Errorf(tok.Line, "'%s' is deprecated: %s", tok.Text, msg)
		}
	}
	return nil
}

// pragmaErrors turns the remaining #pragma error lines into #error so the
// driver rejects the variants that reach them.
func pragmaErrors(code string) string {
	if !strings.Contains(code, "error") {
		return code
	}
	lines := strings.Split(code, "\n")
	for i, line := range lines {
		d, ok := glsl.ParseDirective(line)
		if !ok {
			continue
		}
		if name, args, ok := d.Pragma(); ok && name == "error" {
			indent := line[:len(line)-len(strings.TrimLeft(line, " \t"))]
			lines[i] = indent + "#error " + args
		}
	}
	return strings.Join(lines, "\n")
}

// clean removes custom pragmas and trailing whitespace, drops leading
// blank lines and collapses runs of blank lines.
func clean(code string) string {
	lines := strings.Split(code, "\n")
	out := lines[:0]
	blank, continued := true, false
	for _, line := range lines {
		line = strings.TrimRight(line, " \t\r")
		if continued {
			continued = strings.HasSuffix(line, "\\")
			continue
		}
		if d, ok := glsl.ParseDirective(line); ok {
			if name, _, ok := d.Pragma(); ok && !glsl.IsStandardPragma(name) {
				continued = strings.HasSuffix(line, "\\")
				continue
			}
		}
		empty := line == ""
		if empty && blank {
			continue
		}
		blank = empty
		out = append(out, line)
	}
	return strings.TrimRight(strings.Join(out, "\n"), "\n") + "\n"
}
