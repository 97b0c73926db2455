// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package downgrade produces the GLSL ES 3.00 and ES 1.00 variants of an
// effect shader from its canonical source.
//
// Downgrade folds version conditionals for a target, drops layout
// qualifiers the target cannot express and prepends the extensions the
// target needs. GLSL300To100 then rewrites ES 3.00 constructs into their
// ES 1.00 equivalents.
package downgrade

import (
	"strings"

	"github.com/gogpu/effectc/expr"
	"github.com/gogpu/effectc/glsl"
	"github.com/gogpu/effectc/reflection"
)

// Downgrade specializes code for version. Below ES 3.10, layout
// qualifiers are removed, except on storage buffers, storage images and
// fragment outputs; a std140 marker is kept. Every extension whose
// condition holds for version is enabled at the top of the result, and an
// extension whose condition cannot be decided is guarded by it.
func Downgrade(code string, version glsl.Version, extensions []glsl.Extension, isVertex bool) (string, error) {
	code, err := Fold(code, version.Number())
	if err != nil {
		return "", err
	}
	if !version.SupportsLayoutBinding() {
		if code, err = collapseLayouts(code, isVertex); err != nil {
			return "", err
		}
	}
	prelude, err := extensionPrelude(extensions, version.Number())
	if err != nil {
		return "", err
	}
	return prelude + code, nil
}

func collapseLayouts(code string, isVertex bool) (string, error) {
	tokens, err := glsl.Tokenize(code)
	if err != nil {
		return "", err
	}
	decls, err := reflection.Declarations(tokens)
	if err != nil {
		return "", err
	}
	var edits []edit
	for _, d := range decls {
		if !d.Layout.Present || keepsLayout(d, isVertex) {
			continue
		}
		end := d.Layout.End
		for end < len(code) && (code[end] == ' ' || code[end] == '\t') {
			end++
		}
		text := ""
		if d.Layout.Has("std140") {
			text = "layout(std140) "
		}
		edits = append(edits, edit{start: d.Layout.Start, end: end, text: text})
	}
	return apply(code, edits), nil
}

func keepsLayout(d reflection.Declaration, isVertex bool) bool {
	if d.IsBlock {
		return d.Storage == "buffer"
	}
	if info, ok := glsl.LookupType(d.Type); ok && info.Class == glsl.ClassImage {
		return true
	}
	return !isVertex && (d.Storage == "out" || d.Storage == "inout")
}

func extensionPrelude(extensions []glsl.Extension, version int) (string, error) {
	env := expr.Map{"__VERSION__": expr.Int(int64(version))}
	var sb strings.Builder
	seen := make(map[string]bool)
	for _, ext := range extensions {
		if seen[ext.Name] {
			continue
		}
		if ext.Condition == "" {
			seen[ext.Name] = true
			sb.WriteString(ext.Directive() + "\n")
			continue
		}
		n, err := expr.Parse(ext.Condition)
		if err != nil {
			return "", err
		}
		v, known, err := expr.Partial(n, env)
		if err != nil {
			return "", err
		}
		switch {
		case !known:
			sb.WriteString("#if " + ext.Condition + "\n" + ext.Directive() + "\n#endif\n")
		case v.Truthy():
			seen[ext.Name] = true
			sb.WriteString(ext.Directive() + "\n")
		}
	}
	return sb.String(), nil
}
