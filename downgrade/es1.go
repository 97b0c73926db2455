// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package downgrade

import (
	"fmt"
	"slices"
	"strings"

	"github.com/gogpu/effectc/glsl"
	"github.com/gogpu/effectc/reflection"
)

// Extensions GLSL300To100 may enable.
const (
	ExtDrawBuffers      = "GL_EXT_draw_buffers"
	ExtShaderTextureLod = "GL_EXT_shader_texture_lod"
)

// textureFunc maps an ES 3.00 sampling function to its ES 1.00 names.
type textureFunc struct {
	flat, cube string
	lod        bool // needs the texture LOD extension in fragment shaders
}

var textureFuncs = map[string]textureFunc{
	"texture":        {flat: "texture2D", cube: "textureCube"},
	"textureProj":    {flat: "texture2DProj", cube: "texture2DProj"},
	"textureLod":     {flat: "texture2DLod", cube: "textureCubeLod", lod: true},
	"textureProjLod": {flat: "texture2DProjLod", cube: "texture2DProjLod", lod: true},
	"textureGrad":    {flat: "texture2DGradEXT", cube: "textureCubeGradEXT", lod: true},
}

// interpolation qualifiers ES 1.00 does not have.
var interpolation = map[string]bool{
	"flat": true, "smooth": true, "noperspective": true, "centroid": true,
}

// GLSL300To100 rewrites ES 3.00 code as ES 1.00:
//
//   - members of uniform blocks become plain uniforms; members that are
//     never referenced are dropped
//   - texture(), textureLod() and friends use the legacy per-type names
//   - in and out become attribute and varying
//   - fragment outputs become gl_FragColor, or gl_FragData[n] with
//     GL_EXT_draw_buffers when any n other than 0 is written, including
//     through subpass defines
//   - layout and interpolation qualifiers and custom pragmas are removed
//
// info supplies the locations of fragment outputs and may be nil.
func GLSL300To100(code string, info *reflection.ShaderInfo, stage reflection.Stage) (string, error) {
	r := &es1Rewriter{
		stage:     stage,
		info:      info,
		outputs:   make(map[string]string),
		instances: make(map[string]bool),
		samplers:  make(map[string]string),
	}
	code, err := r.declarations(code)
	if err != nil {
		return "", err
	}
	code, err = r.statements(code)
	if err != nil {
		return "", err
	}
	if r.stage == reflection.StageFragment {
		tokens, err := glsl.Tokenize(code)
		if err != nil {
			return "", err
		}
		if writesExtraBuffers(tokens) {
			r.require(ExtDrawBuffers)
		}
	}

	var prelude strings.Builder
	for _, ext := range r.extensions {
		if !strings.Contains(code, "#extension "+ext) {
			prelude.WriteString(glsl.Extension{Name: ext}.Directive() + "\n")
		}
	}
	return prelude.String() + code, nil
}

type es1Rewriter struct {
	stage      reflection.Stage
	info       *reflection.ShaderInfo
	outputs    map[string]string // fragment output name -> gl_FragColor or gl_FragData[n]
	instances  map[string]bool   // block instance names to strip from member access
	samplers   map[string]string // sampler name -> type
	extensions []string
}

func (r *es1Rewriter) require(ext string) {
	if !slices.Contains(r.extensions, ext) {
		r.extensions = append(r.extensions, ext)
	}
}

// declarations rewrites top-level interface declarations.
func (r *es1Rewriter) declarations(code string) (string, error) {
	tokens, err := glsl.Tokenize(code)
	if err != nil {
		return "", err
	}
	decls, err := reflection.Declarations(tokens)
	if err != nil {
		return "", err
	}
	uses := make(map[string]int)
	for _, t := range tokens {
		if t.IsWord() {
			uses[t.Text]++
		}
	}

	var edits []edit
	var outputs []reflection.Declaration
	for _, d := range decls {
		text := code[d.Start:d.End]
		switch {
		case d.IsBlock && d.Storage == "uniform":
			edits = append(edits, edit{d.Start, d.End, unpackBlock(code, d, uses) + blank(text)})
			if d.Instance != "" {
				r.instances[d.Instance] = true
			}
		case d.IsBlock:
		case d.Storage == "uniform":
			for _, v := range d.Vars {
				r.samplers[v.Name] = d.Type
			}
		case d.Storage == "in" || d.Storage == "attribute":
			storage := "varying"
			if r.stage == reflection.StageVertex {
				storage = "attribute"
			}
			edits = append(edits, edit{d.Start, d.End, redeclare(code, d, storage) + blank(text)})
		case d.Storage == "varying":
			edits = append(edits, edit{d.Start, d.End, redeclare(code, d, "varying") + blank(text)})
		case d.Storage == "out" || d.Storage == "inout":
			if r.stage == reflection.StageVertex {
				edits = append(edits, edit{d.Start, d.End, redeclare(code, d, "varying") + blank(text)})
				break
			}
			outputs = append(outputs, d)
			edits = append(edits, edit{d.Start, d.End, blank(text)})
		}
	}
	r.assignOutputs(outputs)
	return apply(code, edits), nil
}

// unpackBlock declares the referenced members of a uniform block as
// plain uniforms. A member counts as referenced when its name occurs
// anywhere besides its own declaration.
func unpackBlock(code string, d reflection.Declaration, uses map[string]int) string {
	var parts []string
	for _, m := range d.Members {
		for _, v := range m.Vars {
			if uses[v.Name] < 2 {
				continue
			}
			decl := "uniform "
			if m.Precision != "" {
				decl += m.Precision + " "
			}
			parts = append(parts, decl+m.Type+" "+code[v.Start:v.End]+";")
		}
	}
	return strings.Join(parts, " ")
}

// redeclare rebuilds an interface declaration with a new storage
// qualifier, dropping layout and interpolation qualifiers.
func redeclare(code string, d reflection.Declaration, storage string) string {
	var sb strings.Builder
	sb.WriteString(storage)
	sb.WriteByte(' ')
	for _, q := range d.Qualifiers {
		if q == "invariant" {
			sb.WriteString(q + " ")
		}
	}
	if d.Precision != "" {
		sb.WriteString(d.Precision + " ")
	}
	sb.WriteString(d.Type + " ")
	sb.WriteString(code[d.Vars[0].Start:d.Vars[len(d.Vars)-1].End])
	sb.WriteByte(';')
	return sb.String()
}

// assignOutputs maps fragment outputs to gl_FragColor or gl_FragData.
func (r *es1Rewriter) assignOutputs(decls []reflection.Declaration) {
	type output struct {
		name     string
		location int
	}
	var outs []output
	for _, d := range decls {
		for _, v := range d.Vars {
			loc := -1
			if r.info != nil {
				if p := r.info.Find(reflection.CatFragColor, v.Name); p != nil {
					loc = p.Location
				}
			}
			if loc < 0 {
				if n, ok := d.Layout.Int("location"); ok {
					loc = n
				}
			}
			if loc < 0 {
				loc = len(outs)
			}
			outs = append(outs, output{v.Name, loc})
		}
	}
	if len(outs) == 1 && outs[0].location == 0 {
		r.outputs[outs[0].name] = "gl_FragColor"
		return
	}
	for _, o := range outs {
		r.outputs[o.name] = fmt.Sprintf("gl_FragData[%d]", o.location)
	}
	if len(outs) > 1 {
		r.require(ExtDrawBuffers)
	}
}

// writesExtraBuffers reports whether tokens index gl_FragData with
// anything but a literal 0. Macro bodies count, so subpass color defines
// are seen next to declared outputs.
func writesExtraBuffers(tokens []glsl.Token) bool {
	for i, tok := range tokens {
		switch {
		case tok.Kind == glsl.TokenPreprocessor:
			d, ok := glsl.ParseDirective(tok.Text)
			if !ok || d.Name != "define" {
				continue
			}
			body, err := glsl.Tokenize(d.Body)
			if err == nil && writesExtraBuffers(body) {
				return true
			}
		case tok.IsWord() && tok.Text == "gl_FragData":
			open := nextSignificant(tokens, i+1)
			if open >= len(tokens) || !tokens[open].IsOp("[") {
				continue
			}
			if idx := nextSignificant(tokens, open+1); idx < len(tokens) && tokens[idx].Text != "0" {
				return true
			}
		}
	}
	return false
}

// statements rewrites identifiers, sampling calls, qualifiers and pragmas
// token by token.
func (r *es1Rewriter) statements(code string) (string, error) {
	tokens, err := glsl.Tokenize(code)
	if err != nil {
		return "", err
	}
	var edits []edit
	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		switch {
		case tok.Kind == glsl.TokenPreprocessor:
			d, _ := glsl.ParseDirective(tok.Text)
			if name, _, ok := d.Pragma(); ok && !glsl.IsStandardPragma(name) {
				edits = append(edits, edit{tok.Offset, tok.End(), blank(tok.Text)})
			}

		case tok.Is(glsl.TokenKeyword, "layout"):
			open := nextSignificant(tokens, i+1)
			if open >= len(tokens) || !tokens[open].IsOp("(") {
				continue
			}
			end := closing(tokens, open, "(", ")") + 1
			for end < len(tokens) && tokens[end].Kind == glsl.TokenWhitespace && !strings.Contains(tokens[end].Text, "\n") {
				end++
			}
			last := tokens[end-1].End()
			edits = append(edits, edit{tok.Offset, last, blank(code[tok.Offset:last])})
			i = end - 1

		case tok.Kind == glsl.TokenKeyword && interpolation[tok.Text]:
			end := tok.End()
			if next := i + 1; next < len(tokens) && tokens[next].Text == " " {
				end = tokens[next].End()
			}
			edits = append(edits, edit{tok.Offset, end, ""})

		case tok.Kind == glsl.TokenBuiltin:
			if fn, ok := textureFuncs[tok.Text]; ok {
				if name, ok := r.textureCall(tokens, i, fn); ok {
					edits = append(edits, edit{tok.Offset, tok.End(), name})
				}
			}

		case tok.Kind == glsl.TokenIdent:
			prev := prevSignificant(tokens, i)
			if prev >= 0 && tokens[prev].IsOp(".") {
				continue
			}
			if repl, ok := r.outputs[tok.Text]; ok {
				edits = append(edits, edit{tok.Offset, tok.End(), repl})
				continue
			}
			if r.instances[tok.Text] {
				dot := nextSignificant(tokens, i+1)
				if dot < len(tokens) && tokens[dot].IsOp(".") {
					edits = append(edits, edit{tok.Offset, tokens[dot].End(), ""})
				}
			}
		}
	}
	return apply(code, edits), nil
}

// textureCall returns the ES 1.00 name of the sampling call at tokens[i],
// chosen by the type of the sampler passed as first argument.
func (r *es1Rewriter) textureCall(tokens []glsl.Token, i int, fn textureFunc) (string, bool) {
	open := nextSignificant(tokens, i+1)
	if open >= len(tokens) || !tokens[open].IsOp("(") {
		return "", false
	}
	name := fn.flat
	if arg := nextSignificant(tokens, open+1); arg < len(tokens) {
		if typ := r.samplers[tokens[arg].Text]; strings.HasPrefix(typ, "samplerCube") {
			name = fn.cube
		}
	}
	if fn.lod && r.stage == reflection.StageFragment {
		if !strings.HasSuffix(name, "EXT") {
			name += "EXT"
		}
		r.require(ExtShaderTextureLod)
	}
	return name, true
}
