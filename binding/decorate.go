// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package binding

import (
	"strconv"
	"strings"

	"github.com/gogpu/effectc/glsl"
	"github.com/gogpu/effectc/reflection"
)

// Decorate rewrites the interface declarations of one stage so every
// resource carries the set, binding or location allocated for it. A
// declaration without a layout qualifier gets one inserted; an existing
// qualifier gains the missing items. Declarations with several variables
// are split so each variable has its own qualifier. Line numbers are kept.
func Decorate(code string, stage reflection.Stage, info *reflection.ShaderInfo) (string, error) {
	tokens, err := glsl.Tokenize(code)
	if err != nil {
		return "", err
	}
	decls, err := reflection.Declarations(tokens)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.Grow(len(code) + 32*len(decls))
	last := 0
	for _, d := range decls {
		params := paramsFor(d, stage, info)
		if params == nil {
			continue
		}
		sb.WriteString(code[last:d.Start])
		sb.WriteString(rewrite(code, d, params))
		last = d.End
	}
	sb.WriteString(code[last:])
	return sb.String(), nil
}

// paramsFor returns the params declared by d, one per variable (one for a
// block), or nil if none of them needs a qualifier.
func paramsFor(d reflection.Declaration, stage reflection.Stage, info *reflection.ShaderInfo) []*reflection.Param {
	if d.IsBlock {
		cat := reflection.CatBlock
		if d.Storage == "buffer" {
			cat = reflection.CatBuffer
		}
		if p := info.Find(cat, d.Type); p != nil && p.Binding >= 0 {
			return []*reflection.Param{p}
		}
		return nil
	}
	cat, ok, err := reflection.Categorize(d, stage)
	if err != nil || !ok || cat == reflection.CatUniform {
		return nil
	}
	params := make([]*reflection.Param, len(d.Vars))
	found := false
	for i, v := range d.Vars {
		if p := info.Find(cat, v.Name); p != nil && (p.Binding >= 0 || p.Location >= 0) {
			params[i] = p
			found = true
		}
	}
	if !found {
		return nil
	}
	return params
}

func rewrite(code string, d reflection.Declaration, params []*reflection.Param) string {
	if d.IsBlock || len(d.Vars) == 1 {
		return qualify(code, d, params[0], d.Start, d.End)
	}

	// Split "qualifiers type a, b;" into one declaration per variable.
	head := code[d.Start:d.TypeOffset]
	if d.Layout.Present {
		head = code[d.Start:d.Layout.Start] + code[d.Layout.End:d.TypeOffset]
	}
	head = strings.TrimSpace(head)
	parts := make([]string, len(d.Vars))
	for i, v := range d.Vars {
		decl := d.Type + " " + code[v.Start:v.End] + ";"
		if head != "" {
			decl = head + " " + decl
		}
		if params[i] != nil {
			decl = layoutFor(d.Layout.Items, params[i]) + " " + decl
		} else if d.Layout.Present {
			decl = code[d.Layout.Start:d.Layout.End] + " " + decl
		}
		parts[i] = decl
	}
	newlines := strings.Count(code[d.Start:d.End], "\n")
	return strings.Join(parts, " ") + strings.Repeat("\n", newlines)
}

// qualify rewrites the span [start, end) of a single-resource declaration.
func qualify(code string, d reflection.Declaration, p *reflection.Param, start, end int) string {
	layout := layoutFor(d.Layout.Items, p)
	if d.Layout.Present {
		return code[start:d.Layout.Start] + layout + code[d.Layout.End:end]
	}
	return layout + " " + code[start:end]
}

// layoutFor returns a layout qualifier keeping items and adding the set,
// binding or location of p when missing.
func layoutFor(items []reflection.LayoutItem, p *reflection.Param) string {
	l := reflection.Layout{Items: append([]reflection.LayoutItem(nil), items...)}
	if p.Category.UsesLocation() {
		if !l.Has("location") {
			l.Items = append(l.Items, reflection.LayoutItem{Key: "location", Value: strconv.Itoa(p.Location)})
		}
		return l.String()
	}
	if !l.Has("set") {
		l.Items = append(l.Items, reflection.LayoutItem{Key: "set", Value: strconv.Itoa(p.Set)})
	}
	if !l.Has("binding") {
		l.Items = append(l.Items, reflection.LayoutItem{Key: "binding", Value: strconv.Itoa(p.Binding)})
	}
	return l.String()
}
