// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package reflection

import (
	"fmt"
	"strings"

	"github.com/gogpu/effectc/glsl"
)

// Stage is a bitmask of shader stages.
type Stage uint8

const (
	StageVertex Stage = 1 << iota
	StageFragment
	StageCompute
)

// String returns the stage names joined by '|'.
func (s Stage) String() string {
	var names []string
	if s&StageVertex != 0 {
		names = append(names, "vertex")
	}
	if s&StageFragment != 0 {
		names = append(names, "fragment")
	}
	if s&StageCompute != 0 {
		names = append(names, "compute")
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "|")
}

// MarshalText implements encoding.TextMarshaler.
func (s Stage) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Rate is how often a descriptor is expected to change.
type Rate uint8

const (
	RateInstance Rate = iota
	RateBatch
	RatePhase
	RatePass
)

// NumRates is the number of descriptor rate groups.
const NumRates = 4

// DefaultRate is the rate of resources without a rate pragma.
const DefaultRate = RateBatch

// String returns the rate name.
func (r Rate) String() string {
	switch r {
	case RateInstance:
		return "instance"
	case RatePhase:
		return "phase"
	case RatePass:
		return "pass"
	default:
		return "batch"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (r Rate) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// ParseRate parses a rate name.
func ParseRate(s string) (Rate, bool) {
	switch s {
	case "instance":
		return RateInstance, true
	case "batch":
		return RateBatch, true
	case "phase":
		return RatePhase, true
	case "pass":
		return RatePass, true
	}
	return 0, false
}

// Access is the memory access of storage buffers and images.
type Access uint8

const (
	AccessRead Access = 1 << iota
	AccessWrite

	AccessNone      Access = 0
	AccessReadWrite        = AccessRead | AccessWrite
)

// String returns the access name.
func (a Access) String() string {
	switch a {
	case AccessRead:
		return "read-only"
	case AccessWrite:
		return "write-only"
	case AccessReadWrite:
		return "read-write"
	default:
		return "none"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (a Access) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// Category is the reflection list a resource belongs to.
type Category uint8

const (
	CatBlock Category = iota
	CatSamplerTexture
	CatSampler
	CatTexture
	CatImage
	CatSubpassInput
	CatBuffer
	CatAttribute
	CatVarying
	CatFragColor
	CatUniform
	numCategories
)

var categoryNames = [numCategories]string{
	"blocks", "samplerTextures", "samplers", "textures", "images", "subpassInputs",
	"buffers", "attributes", "varyings", "fragColors", "uniforms",
}

// String returns the reflection list name of the category.
func (c Category) String() string {
	if c < numCategories {
		return categoryNames[c]
	}
	return "unknown"
}

// UsesLocation reports whether the category is numbered by location
// rather than binding.
func (c Category) UsesLocation() bool {
	return c == CatAttribute || c == CatVarying || c == CatFragColor
}

// IsDescriptor reports whether resources of the category are bound through
// descriptor sets.
func (c Category) IsDescriptor() bool {
	return c <= CatBuffer
}

// Categories returns every category in output order.
func Categories() []Category {
	out := make([]Category, numCategories)
	for i := range out {
		out[i] = Category(i)
	}
	return out
}

// Member is a member of a uniform or storage block.
type Member struct {
	Name      string
	Type      string
	Precision string
	Count     int // 1 for non-arrays, 0 for unsized arrays
	IsArray   bool
	Offset    int // std140 byte offset, uniform blocks only
}

// Param is one reflected resource.
type Param struct {
	Name      string
	Type      string // GLSL type, or the block name for blocks
	Category  Category
	Count     int    // 1 for non-arrays, 0 for unsized or non-constant arrays
	CountExpr string // array length expression kept for built-in arrays
	IsArray   bool
	Precision string
	Defines   []string
	Stages    Stage
	Rate      Rate
	Sample    glsl.SampleType
	Access    Access
	Members   []Member // blocks only
	Size      int      // std140 size of uniform blocks
	Instance  string   // block instance name
	Builtin   bool
	Global    bool // builtin provided by the global set
	Line      int

	Layout   Layout
	Binding  int // -1 until allocated
	Location int // -1 until allocated
	Set      int
}

// NewParam returns a param with unassigned binding and location.
func NewParam(name string, cat Category) *Param {
	return &Param{Name: name, Category: cat, Count: 1, Binding: -1, Location: -1, Rate: DefaultRate}
}

// VectorSlots returns the number of vec4 uniform slots the param occupies.
func (p *Param) VectorSlots() int {
	if p.Category == CatBlock {
		return (p.Size + 15) / 16
	}
	info, ok := glsl.LookupType(p.Type)
	if !ok || info.IsOpaque() {
		return 0
	}
	count := max(p.Count, 1)
	if info.Class == glsl.ClassMatrix {
		return info.Columns * count
	}
	return count
}

// ShaderInfo holds the reflected resources of one shader program.
type ShaderInfo struct {
	lists [numCategories][]*Param
}

// List returns the resources of a category in declaration order.
func (s *ShaderInfo) List(cat Category) []*Param {
	return s.lists[cat]
}

// Blocks returns the uniform blocks.
func (s *ShaderInfo) Blocks() []*Param { return s.lists[CatBlock] }

// SamplerTextures returns the combined image samplers.
func (s *ShaderInfo) SamplerTextures() []*Param { return s.lists[CatSamplerTexture] }

// Samplers returns the separate samplers.
func (s *ShaderInfo) Samplers() []*Param { return s.lists[CatSampler] }

// Textures returns the separate textures.
func (s *ShaderInfo) Textures() []*Param { return s.lists[CatTexture] }

// Images returns the storage images.
func (s *ShaderInfo) Images() []*Param { return s.lists[CatImage] }

// SubpassInputs returns the input attachments.
func (s *ShaderInfo) SubpassInputs() []*Param { return s.lists[CatSubpassInput] }

// Buffers returns the storage buffers.
func (s *ShaderInfo) Buffers() []*Param { return s.lists[CatBuffer] }

// Attributes returns the vertex inputs.
func (s *ShaderInfo) Attributes() []*Param { return s.lists[CatAttribute] }

// Varyings returns the vertex outputs and fragment inputs.
func (s *ShaderInfo) Varyings() []*Param { return s.lists[CatVarying] }

// FragColors returns the fragment outputs.
func (s *ShaderInfo) FragColors() []*Param { return s.lists[CatFragColor] }

// Uniforms returns the loose non-opaque uniforms.
func (s *ShaderInfo) Uniforms() []*Param { return s.lists[CatUniform] }

// Find returns the param with the given name in a category.
func (s *ShaderInfo) Find(cat Category, name string) *Param {
	for _, p := range s.lists[cat] {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// Lookup returns the param with the given name in any category.
func (s *ShaderInfo) Lookup(name string) *Param {
	for cat := range s.lists {
		if p := s.Find(Category(cat), name); p != nil {
			return p
		}
	}
	return nil
}

// Add merges p into the info. A param already present under the same name
// gains p's stages and keeps only the gating defines both share; blocks
// must declare identical members.
func (s *ShaderInfo) Add(p *Param) error {
	existing := s.Find(p.Category, p.Name)
	if existing == nil {
		s.lists[p.Category] = append(s.lists[p.Category], p)
		return nil
	}
	if p.Category == CatBlock || p.Category == CatBuffer {
		if err := sameMembers(existing, p); err != nil {
			return err
		}
	} else if existing.Type != p.Type || existing.Count != p.Count {
		return fmt.Errorf("'%s' is declared with different types (lines %d and %d)", p.Name, existing.Line, p.Line)
	}
	existing.Stages |= p.Stages
	existing.Defines = commonDefines(existing.Defines, p.Defines)
	if !existing.Layout.Present && p.Layout.Present {
		existing.Layout = p.Layout
	}
	return nil
}

// Merge adds every param of other.
func (s *ShaderInfo) Merge(other *ShaderInfo) error {
	for cat := range other.lists {
		for _, p := range other.lists[cat] {
			if err := s.Add(p); err != nil {
				return err
			}
		}
	}
	return nil
}

// Remove deletes params for which drop returns true and returns them.
func (s *ShaderInfo) Remove(drop func(*Param) bool) []*Param {
	var removed []*Param
	for cat := range s.lists {
		kept := s.lists[cat][:0]
		for _, p := range s.lists[cat] {
			if drop(p) {
				removed = append(removed, p)
			} else {
				kept = append(kept, p)
			}
		}
		s.lists[cat] = kept
	}
	return removed
}

// All returns every param in category order.
func (s *ShaderInfo) All() []*Param {
	var out []*Param
	for cat := range s.lists {
		out = append(out, s.lists[cat]...)
	}
	return out
}

func sameMembers(a, b *Param) error {
	mismatch := len(a.Members) != len(b.Members)
	for i := 0; !mismatch && i < len(a.Members); i++ {
		ma, mb := a.Members[i], b.Members[i]
		mismatch = ma.Name != mb.Name || ma.Type != mb.Type || ma.Count != mb.Count
	}
	if mismatch {
		return fmt.Errorf("%s '%s' is declared with different members (lines %d and %d)",
			strings.TrimSuffix(a.Category.String(), "s"), a.Name, a.Line, b.Line)
	}
	return nil
}

// commonDefines keeps the defines of a that b also requires.
func commonDefines(a, b []string) []string {
	var out []string
	for _, d := range a {
		for _, e := range b {
			if d == e {
				out = append(out, d)
				break
			}
		}
	}
	return out
}
