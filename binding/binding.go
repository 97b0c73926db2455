// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package binding assigns descriptor bindings and interface locations to
// reflected resources and writes them back into Vulkan GLSL.
//
// Material descriptors share one binding space in MaterialSet. Pipeline
// builtins are numbered separately in GlobalSet and LocalSet. Attributes,
// varyings and fragment outputs each have their own location space.
// Within every space, explicit numbers from layout qualifiers are honored
// when they are consecutive from 0 and the remaining resources fill the
// following slots in declaration order.
package binding

import (
	"slices"

	"github.com/gogpu/effectc/diag"
	"github.com/gogpu/effectc/reflection"
)

// Descriptor set indices.
const (
	GlobalSet   = 0
	MaterialSet = 1
	LocalSet    = 2
)

// space is a set of resources numbered together.
type space struct {
	params   []*reflection.Param
	location bool // numbered by location instead of binding
	mirror   bool // non-explicit slots follow declaration order
}

func (s *space) key() string {
	if s.location {
		return "location"
	}
	return "binding"
}

func (s *space) get(p *reflection.Param) int {
	if s.location {
		return p.Location
	}
	return p.Binding
}

func (s *space) set(p *reflection.Param, n int) {
	if s.location {
		p.Location = n
	} else {
		p.Binding = n
	}
}

// Allocate assigns a binding or location to every resource of info and
// the descriptor set of every descriptor.
func Allocate(info *reflection.ShaderInfo) error {
	var material, global, local space
	for _, cat := range reflection.Categories() {
		if !cat.IsDescriptor() {
			continue
		}
		for _, p := range info.List(cat) {
			switch {
			case !p.Builtin:
				material.params = append(material.params, p)
				p.Set = explicitSet(p, MaterialSet)
			case p.Global:
				global.params = append(global.params, p)
				p.Set = explicitSet(p, GlobalSet)
			default:
				local.params = append(local.params, p)
				p.Set = explicitSet(p, LocalSet)
			}
		}
	}

	spaces := []space{
		material, global, local,
		{params: info.Attributes(), location: true, mirror: true},
		{params: info.Varyings(), location: true},
		{params: info.FragColors(), location: true},
	}
	for i := range spaces {
		if err := spaces[i].allocate(); err != nil {
			return err
		}
	}
	return nil
}

func explicitSet(p *reflection.Param, def int) int {
	if set, ok := p.Layout.Int("set"); ok {
		return set
	}
	return def
}

func (s *space) allocate() error {
	claimed := make(map[int]*reflection.Param)
	var explicit []int
	for _, p := range s.params {
		n, ok := p.Layout.Int(s.key())
		if !ok {
			s.set(p, -1)
			continue
		}
		if other, taken := claimed[n]; taken && other.Name != p.Name {
			return diag.Errorf(p.Line, "%s '%s' uses %s %d, already used by %s '%s'",
				singular(p.Category), p.Name, s.key(), n, singular(other.Category), other.Name)
		}
		claimed[n] = p
		explicit = append(explicit, n)
		s.set(p, n)
	}

	slices.Sort(explicit)
	explicit = slices.Compact(explicit)
	for i, n := range explicit {
		if n != i {
			p := claimed[n]
			return diag.Errorf(p.Line,
				"explicit %s %d of %s '%s' is not consecutive: explicit %ss of %s must start at 0 without gaps",
				s.key(), n, singular(p.Category), p.Name, s.key(), p.Category)
		}
	}

	next := len(explicit)
	for i, p := range s.params {
		if s.get(p) >= 0 {
			continue
		}
		if s.mirror {
			if n, ok := s.mirrored(i, claimed); ok {
				s.set(p, n)
				claimed[n] = p
				continue
			}
		}
		for claimed[next] != nil {
			next++
		}
		s.set(p, next)
		claimed[next] = p
		next++
	}
	return nil
}

// mirrored returns the slot an attribute takes from its declaration
// order: the number of a same-named attribute declared earlier, or its
// own index when that is free. The scan is linear, so allocation is
// quadratic in the number of attributes.
func (s *space) mirrored(i int, claimed map[int]*reflection.Param) (int, bool) {
	p := s.params[i]
	for _, prev := range s.params[:i] {
		if prev.Name == p.Name && s.get(prev) >= 0 {
			return s.get(prev), true
		}
	}
	if owner := claimed[i]; owner == nil || owner.Name == p.Name {
		return i, true
	}
	return 0, false
}

func singular(c reflection.Category) string {
	switch c {
	case reflection.CatBlock:
		return "uniform block"
	case reflection.CatSamplerTexture:
		return "sampler texture"
	case reflection.CatSampler:
		return "sampler"
	case reflection.CatTexture:
		return "texture"
	case reflection.CatImage:
		return "storage image"
	case reflection.CatSubpassInput:
		return "subpass input"
	case reflection.CatBuffer:
		return "storage buffer"
	case reflection.CatAttribute:
		return "attribute"
	case reflection.CatVarying:
		return "varying"
	case reflection.CatFragColor:
		return "fragment output"
	default:
		return "uniform"
	}
}
