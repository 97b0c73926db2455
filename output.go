// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package effectc

import (
	"github.com/gogpu/effectc/glsl"
	"github.com/gogpu/effectc/reflection"
)

// BuildOutput is the compiled effect program.
type BuildOutput struct {
	Name string     `json:"name" yaml:"name"`
	Kind EffectKind `json:"kind" yaml:"kind"`
	Hash uint32     `json:"hash" yaml:"hash"`

	Shaders []ShaderOutput `json:"shaders" yaml:"shaders"`

	Blocks          []Block     `json:"blocks" yaml:"blocks"`
	SamplerTextures []Resource  `json:"samplerTextures" yaml:"samplerTextures"`
	Samplers        []Resource  `json:"samplers" yaml:"samplers"`
	Textures        []Resource  `json:"textures" yaml:"textures"`
	Buffers         []Block     `json:"buffers" yaml:"buffers"`
	Images          []Resource  `json:"images" yaml:"images"`
	SubpassInputs   []Resource  `json:"subpassInputs" yaml:"subpassInputs"`
	Attributes      []Interface `json:"attributes" yaml:"attributes"`
	Varyings        []Interface `json:"varyings" yaml:"varyings"`
	FragColors      []Interface `json:"fragColors" yaml:"fragColors"`

	// Uniforms lists loose uniforms. Only the GLSL ES targets can bind
	// them.
	Uniforms []Uniform `json:"uniforms,omitempty" yaml:"uniforms,omitempty"`

	// Descriptors groups the material resources by update rate, indexed
	// by reflection.Rate.
	Descriptors [reflection.NumRates]DescriptorGroup `json:"descriptors" yaml:"descriptors"`

	Defines    []*reflection.Define `json:"defines" yaml:"defines"`
	Builtins   Builtins             `json:"builtins" yaml:"builtins"`
	Statistics map[string]int       `json:"statistics" yaml:"statistics"`
}

// ShaderOutput holds the three dialect texts of one stage.
type ShaderOutput struct {
	Stage reflection.Stage `json:"stage" yaml:"stage"`
	Name  string           `json:"name" yaml:"name"`
	Entry string           `json:"entry" yaml:"entry"`
	GLSL1 string           `json:"glsl1,omitempty" yaml:"glsl1,omitempty"` // GLSL ES 1.00, graphics only
	GLSL3 string           `json:"glsl3" yaml:"glsl3"`                     // GLSL ES 3.00, ES 3.10 for compute
	GLSL4 string           `json:"glsl4" yaml:"glsl4"`                     // GLSL 4.60 for Vulkan
}

// Shader returns the output of a stage, or nil.
func (o *BuildOutput) Shader(stage reflection.Stage) *ShaderOutput {
	for i := range o.Shaders {
		if o.Shaders[i].Stage == stage {
			return &o.Shaders[i]
		}
	}
	return nil
}

// Member is a block member.
type Member struct {
	Name   string `json:"name" yaml:"name"`
	Type   string `json:"type" yaml:"type"`
	Count  int    `json:"count" yaml:"count"`
	Offset int    `json:"offset,omitempty" yaml:"offset,omitempty"`
}

// Block is a uniform block or storage buffer.
type Block struct {
	Name     string            `json:"name" yaml:"name"`
	Defines  []string          `json:"defines" yaml:"defines"`
	Binding  int               `json:"binding" yaml:"binding"`
	Set      int               `json:"set" yaml:"set"`
	Stages   reflection.Stage  `json:"stageFlags" yaml:"stageFlags"`
	Rate     reflection.Rate   `json:"rate" yaml:"rate"`
	Size     int               `json:"size,omitempty" yaml:"size,omitempty"`
	Access   reflection.Access `json:"memoryAccess,omitempty" yaml:"memoryAccess,omitempty"`
	Members  []Member          `json:"members" yaml:"members"`
	Instance string            `json:"instance,omitempty" yaml:"instance,omitempty"`
}

// Resource is a sampler, texture, image or subpass input.
type Resource struct {
	Name       string            `json:"name" yaml:"name"`
	Type       string            `json:"type" yaml:"type"`
	Count      int               `json:"count" yaml:"count"`
	Defines    []string          `json:"defines" yaml:"defines"`
	Binding    int               `json:"binding" yaml:"binding"`
	Set        int               `json:"set" yaml:"set"`
	Stages     reflection.Stage  `json:"stageFlags" yaml:"stageFlags"`
	Rate       reflection.Rate   `json:"rate" yaml:"rate"`
	SampleType glsl.SampleType   `json:"sampleType" yaml:"sampleType"`
	Access     reflection.Access `json:"memoryAccess,omitempty" yaml:"memoryAccess,omitempty"`
}

// Interface is a vertex attribute, varying or fragment output.
type Interface struct {
	Name     string           `json:"name" yaml:"name"`
	Type     string           `json:"type" yaml:"type"`
	Count    int              `json:"count" yaml:"count"`
	Defines  []string         `json:"defines" yaml:"defines"`
	Location int              `json:"location" yaml:"location"`
	Stages   reflection.Stage `json:"stageFlags" yaml:"stageFlags"`
}

// Uniform is a uniform declared outside a block.
type Uniform struct {
	Name    string           `json:"name" yaml:"name"`
	Type    string           `json:"type" yaml:"type"`
	Count   int              `json:"count" yaml:"count"`
	Defines []string         `json:"defines" yaml:"defines"`
	Stages  reflection.Stage `json:"stageFlags" yaml:"stageFlags"`
}

// DescriptorGroup lists the material resources updated at one rate.
type DescriptorGroup struct {
	Rate            reflection.Rate `json:"rate" yaml:"rate"`
	Blocks          []Block         `json:"blocks" yaml:"blocks"`
	SamplerTextures []Resource      `json:"samplerTextures" yaml:"samplerTextures"`
	Samplers        []Resource      `json:"samplers" yaml:"samplers"`
	Textures        []Resource      `json:"textures" yaml:"textures"`
	Buffers         []Block         `json:"buffers" yaml:"buffers"`
	Images          []Resource      `json:"images" yaml:"images"`
	SubpassInputs   []Resource      `json:"subpassInputs" yaml:"subpassInputs"`
}

// BuiltinRef names a pipeline-provided resource used by the effect.
type BuiltinRef struct {
	Name    string   `json:"name" yaml:"name"`
	Defines []string `json:"defines" yaml:"defines"`
}

// BuiltinSet lists the pipeline resources of one scope.
type BuiltinSet struct {
	Blocks          []BuiltinRef `json:"blocks" yaml:"blocks"`
	SamplerTextures []BuiltinRef `json:"samplerTextures" yaml:"samplerTextures"`
	Buffers         []BuiltinRef `json:"buffers" yaml:"buffers"`
	Images          []BuiltinRef `json:"images" yaml:"images"`
}

// Builtins splits the pipeline resources into the global set and the per
// object local set.
type Builtins struct {
	Globals BuiltinSet `json:"globals" yaml:"globals"`
	Locals  BuiltinSet `json:"locals" yaml:"locals"`
}

func (s *BuiltinSet) add(p *reflection.Param) {
	ref := BuiltinRef{Name: p.Name, Defines: p.Defines}
	switch p.Category {
	case reflection.CatBlock:
		s.Blocks = append(s.Blocks, ref)
	case reflection.CatSamplerTexture, reflection.CatTexture, reflection.CatSampler:
		s.SamplerTextures = append(s.SamplerTextures, ref)
	case reflection.CatBuffer:
		s.Buffers = append(s.Buffers, ref)
	case reflection.CatImage:
		s.Images = append(s.Images, ref)
	}
}

func blockOf(p *reflection.Param) Block {
	b := Block{
		Name:     p.Name,
		Defines:  p.Defines,
		Binding:  p.Binding,
		Set:      p.Set,
		Stages:   p.Stages,
		Rate:     p.Rate,
		Size:     p.Size,
		Access:   p.Access,
		Members:  make([]Member, len(p.Members)),
		Instance: p.Instance,
	}
	for i, m := range p.Members {
		b.Members[i] = Member{Name: m.Name, Type: m.Type, Count: m.Count, Offset: m.Offset}
	}
	return b
}

func resourceOf(p *reflection.Param) Resource {
	return Resource{
		Name:       p.Name,
		Type:       p.Type,
		Count:      p.Count,
		Defines:    p.Defines,
		Binding:    p.Binding,
		Set:        p.Set,
		Stages:     p.Stages,
		Rate:       p.Rate,
		SampleType: p.Sample,
		Access:     p.Access,
	}
}

func interfaceOf(p *reflection.Param) Interface {
	return Interface{
		Name:     p.Name,
		Type:     p.Type,
		Count:    p.Count,
		Defines:  p.Defines,
		Location: p.Location,
		Stages:   p.Stages,
	}
}

// reflect fills the reflection lists of o from info. Pass rate
// descriptors are supplied by the render pipeline: they only appear in
// their rate group. Named builtins go to o.Builtins. Every other
// descriptor is listed and joins its rate group.
func (o *BuildOutput) reflect(info *reflection.ShaderInfo) {
	for i := range o.Descriptors {
		o.Descriptors[i].Rate = reflection.Rate(i)
	}
	for _, cat := range reflection.Categories() {
		for _, p := range info.List(cat) {
			if cat.IsDescriptor() && p.Rate == reflection.RatePass {
				o.Descriptors[reflection.RatePass].add(p)
				continue
			}
			if cat.IsDescriptor() && p.Builtin {
				if p.Global {
					o.Builtins.Globals.add(p)
				} else {
					o.Builtins.Locals.add(p)
				}
				continue
			}
			o.add(p)
		}
	}
}

func (g *DescriptorGroup) add(p *reflection.Param) {
	switch p.Category {
	case reflection.CatBlock:
		g.Blocks = append(g.Blocks, blockOf(p))
	case reflection.CatBuffer:
		g.Buffers = append(g.Buffers, blockOf(p))
	case reflection.CatSamplerTexture:
		g.SamplerTextures = append(g.SamplerTextures, resourceOf(p))
	case reflection.CatSampler:
		g.Samplers = append(g.Samplers, resourceOf(p))
	case reflection.CatTexture:
		g.Textures = append(g.Textures, resourceOf(p))
	case reflection.CatImage:
		g.Images = append(g.Images, resourceOf(p))
	case reflection.CatSubpassInput:
		g.SubpassInputs = append(g.SubpassInputs, resourceOf(p))
	}
}

func (o *BuildOutput) add(p *reflection.Param) {
	if p.Category.IsDescriptor() {
		o.Descriptors[p.Rate].add(p)
	}
	switch p.Category {
	case reflection.CatBlock:
		o.Blocks = append(o.Blocks, blockOf(p))
	case reflection.CatBuffer:
		o.Buffers = append(o.Buffers, blockOf(p))
	case reflection.CatSamplerTexture:
		o.SamplerTextures = append(o.SamplerTextures, resourceOf(p))
	case reflection.CatSampler:
		o.Samplers = append(o.Samplers, resourceOf(p))
	case reflection.CatTexture:
		o.Textures = append(o.Textures, resourceOf(p))
	case reflection.CatImage:
		o.Images = append(o.Images, resourceOf(p))
	case reflection.CatSubpassInput:
		o.SubpassInputs = append(o.SubpassInputs, resourceOf(p))
	case reflection.CatAttribute:
		o.Attributes = append(o.Attributes, interfaceOf(p))
	case reflection.CatVarying:
		o.Varyings = append(o.Varyings, interfaceOf(p))
	case reflection.CatFragColor:
		o.FragColors = append(o.FragColors, interfaceOf(p))
	case reflection.CatUniform:
		o.Uniforms = append(o.Uniforms, Uniform{
			Name:    p.Name,
			Type:    p.Type,
			Count:   p.Count,
			Defines: p.Defines,
			Stages:  p.Stages,
		})
	}
}
