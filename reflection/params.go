// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package reflection

import (
	"slices"
	"strings"

	"github.com/gogpu/effectc/diag"
	"github.com/gogpu/effectc/expr"
	"github.com/gogpu/effectc/glsl"
)

// ParamOptions configures ExtractParams.
type ParamOptions struct {
	Stage   Stage
	Pragmas *Extraction

	// GlobalBuiltins names the builtins provided by the global descriptor
	// set. Other builtins are local unless a builtin pragma says otherwise.
	GlobalBuiltins map[string]bool
}

// IsBuiltinName reports whether name follows the naming convention of
// pipeline-provided resources.
func IsBuiltinName(name string) bool {
	return strings.HasPrefix(name, "cc_") || strings.HasPrefix(name, "CC")
}

// ExtractParams reflects the interface declarations of one shader stage.
func ExtractParams(tokens []glsl.Token, opts ParamOptions) (*ShaderInfo, error) {
	decls, err := Declarations(tokens)
	if err != nil {
		return nil, err
	}
	pragmas := opts.Pragmas
	if pragmas == nil {
		pragmas = &Extraction{}
	}

	info := &ShaderInfo{}
	prevLine := 0
	for _, d := range decls {
		params, err := paramsOf(d, opts.Stage)
		if err != nil {
			return nil, err
		}
		global, scoped := pragmas.BuiltinScope(d.Line, prevLine)
		prevLine = d.Line
		for _, p := range params {
			p.Stages = opts.Stage
			tag(p, d, pragmas, opts.GlobalBuiltins)
			if scoped {
				p.Builtin, p.Global = true, global
			}
			if err := info.Add(p); err != nil {
				return nil, diag.Errorf(p.Line, "%v", err)
			}
		}
	}
	return info, nil
}

func paramsOf(d Declaration, stage Stage) ([]*Param, error) {
	if d.IsBlock {
		p, err := blockParam(d)
		if err != nil {
			return nil, err
		}
		return []*Param{p}, nil
	}

	var out []*Param
	for _, v := range d.Vars {
		if strings.HasPrefix(v.Name, "gl_") {
			continue
		}
		cat, ok, err := Categorize(d, stage)
		if err != nil {
			return nil, diag.Errorf(v.Line, "'%s': %v", v.Name, err)
		}
		if !ok {
			continue
		}
		p := NewParam(v.Name, cat)
		p.Type = d.Type
		p.Precision = d.Precision
		p.Line = v.Line
		p.IsArray = v.IsArray
		if v.IsArray {
			count, countExpr, err := arrayLength(v.Name, v.ArrayExpr, v.Line)
			if err != nil {
				return nil, err
			}
			p.Count, p.CountExpr = count, countExpr
		}
		out = append(out, p)
	}
	return out, nil
}

type categoryError string

func (e categoryError) Error() string { return string(e) }

// Categorize returns the reflection category of a non-block declaration in
// the given stage. The second result is false for declarations that are
// not reflected, such as compute inputs.
func Categorize(d Declaration, stage Stage) (Category, bool, error) {
	switch d.Storage {
	case "uniform":
		info, ok := glsl.LookupType(d.Type)
		if !ok {
			return CatUniform, true, nil
		}
		switch info.Class {
		case glsl.ClassSamplerTexture:
			return CatSamplerTexture, true, nil
		case glsl.ClassSampler:
			return CatSampler, true, nil
		case glsl.ClassTexture:
			return CatTexture, true, nil
		case glsl.ClassImage:
			return CatImage, true, nil
		case glsl.ClassSubpassInput:
			return CatSubpassInput, true, nil
		}
		return CatUniform, true, nil
	case "buffer":
		return 0, false, categoryError("storage buffers must be declared as blocks")
	case "in", "attribute":
		switch stage {
		case StageVertex:
			return CatAttribute, true, nil
		case StageFragment:
			return CatVarying, true, nil
		}
	case "varying":
		return CatVarying, true, nil
	case "out":
		switch stage {
		case StageVertex:
			return CatVarying, true, nil
		case StageFragment:
			return CatFragColor, true, nil
		}
	case "inout":
		if stage == StageFragment {
			return CatFragColor, true, nil
		}
	}
	return 0, false, nil
}

// arrayLength evaluates an array length. Builtin arrays may be sized by
// macros the pipeline defines at runtime; their length is reported as 0
// with the expression kept.
func arrayLength(name, src string, line int) (int, string, error) {
	if src == "" {
		return 0, "", nil
	}
	v, err := expr.Eval(src, nil)
	if err == nil && v.Kind == expr.KindInt && v.Int > 0 {
		return int(v.Int), "", nil
	}
	if IsBuiltinName(name) {
		return 0, src, nil
	}
	if err == nil {
		return 0, "", diag.Errorf(line, "array length of '%s' must be a positive integer, got '%s'", name, src)
	}
	return 0, "", diag.Errorf(line, "array length of '%s' must be a constant expression: %v", name, err)
}

func blockParam(d Declaration) (*Param, error) {
	cat := CatBlock
	if d.Storage == "buffer" {
		cat = CatBuffer
	}
	p := NewParam(d.Type, cat)
	p.Type = d.Type
	p.Instance = d.Instance
	p.Line = d.Line
	p.Precision = d.Precision
	for _, m := range d.Members {
		info, known := glsl.LookupType(m.Type)
		if known && info.IsOpaque() {
			return nil, diag.Errorf(m.Line, "%s '%s' cannot be declared inside block '%s'", info.Class, firstVar(m), d.Type)
		}
		if !known && cat == CatBlock {
			return nil, diag.Errorf(m.Line, "struct member '%s' of type '%s' is not allowed in block '%s'", firstVar(m), m.Type, d.Type)
		}
		for _, v := range m.Vars {
			mem := Member{Name: v.Name, Type: m.Type, Precision: m.Precision, Count: 1, IsArray: v.IsArray}
			if v.IsArray {
				count, _, err := arrayLength(v.Name, v.ArrayExpr, v.Line)
				if err != nil && !IsBuiltinName(d.Type) {
					return nil, err
				}
				mem.Count = count
			}
			p.Members = append(p.Members, mem)
		}
	}
	if cat == CatBlock && !(IsBuiltinName(d.Type) && runtimeSized(p.Members)) {
		size, err := Std140(d.Type, p.Members, d.Line)
		if err != nil {
			return nil, err
		}
		p.Size = size
	}
	return p, nil
}

func runtimeSized(members []Member) bool {
	for _, m := range members {
		if m.IsArray && m.Count == 0 {
			return true
		}
	}
	return false
}

func firstVar(m BlockMember) string {
	if len(m.Vars) == 0 {
		return m.Type
	}
	return m.Vars[0].Name
}

// tag attaches gating defines, rate, sample type, access and builtin
// scope to a freshly extracted param.
func tag(p *Param, d Declaration, pragmas *Extraction, globals map[string]bool) {
	p.Layout = d.Layout
	if defs := pragmas.Lines.At(p.Line); len(defs) > 0 {
		p.Defines = slices.Clone(defs)
	} else {
		p.Defines = []string{}
	}
	if r, ok := pragmas.RateOf(p.Name); ok {
		p.Rate = r
	}
	if set, ok := d.Layout.Int("set"); ok {
		p.Set = set
	}

	if info, ok := glsl.LookupType(p.Type); ok && info.IsOpaque() {
		p.Sample = info.SampleType()
		if pragmas.Unfilterable[p.Name] {
			p.Sample = glsl.SampleUnfilterableFloat
		}
	}

	if p.Category == CatBuffer || p.Category == CatImage {
		p.Access = AccessReadWrite
		for _, q := range d.Qualifiers {
			switch q {
			case "readonly":
				p.Access = AccessRead
			case "writeonly":
				p.Access = AccessWrite
			}
		}
	}

	if p.Category.IsDescriptor() || p.Category == CatUniform || p.Category == CatAttribute {
		p.Builtin = IsBuiltinName(p.Name) || p.Rate == RatePass
		p.Global = p.Builtin && globals[p.Name]
	}
}
