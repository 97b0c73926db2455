// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package reflection

import (
	"slices"
)

// DefineType is the value kind of a material define.
type DefineType uint8

const (
	DefineBoolean DefineType = iota
	DefineNumber
	DefineString
	DefineConstant
)

// String returns the type name used in reflection output.
func (t DefineType) String() string {
	switch t {
	case DefineNumber:
		return "number"
	case DefineString:
		return "string"
	case DefineConstant:
		return "constant"
	default:
		return "boolean"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (t DefineType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// ParseDefineType parses a define type name.
func ParseDefineType(s string) (DefineType, bool) {
	switch s {
	case "boolean":
		return DefineBoolean, true
	case "number":
		return DefineNumber, true
	case "string":
		return DefineString, true
	case "constant":
		return DefineConstant, true
	}
	return 0, false
}

// DefaultNumberRange is the range of a define compared with an ordering
// operator and not described by define-meta.
var DefaultNumberRange = []float64{0, 3}

// Define is a preprocessor switch exposed to material authors.
type Define struct {
	Name    string         `json:"name" yaml:"name"`
	Type    DefineType     `json:"type" yaml:"type"`
	Range   []float64      `json:"range,omitempty" yaml:"range,omitempty"`
	Options []string       `json:"options,omitempty" yaml:"options,omitempty"`
	Default any            `json:"default,omitempty" yaml:"default,omitempty"`
	Editor  map[string]any `json:"editor,omitempty" yaml:"editor,omitempty"`
	Defines []string       `json:"defines" yaml:"defines"` // gating macros, '!' marks negation

	// Rate is set when a define-meta label binds the define to a
	// descriptor rate.
	Rate *Rate `json:"rate,omitempty" yaml:"rate,omitempty"`

	explicit bool // type fixed by define-meta
	used     bool // gating chain comes from an actual use
}

// DefineSet is an insertion-ordered set of defines keyed by name.
type DefineSet struct {
	order []*Define
	index map[string]int
}

// NewDefineSet returns an empty set.
func NewDefineSet() *DefineSet {
	return &DefineSet{index: make(map[string]int)}
}

// Get returns the define with the given name.
func (s *DefineSet) Get(name string) (*Define, bool) {
	i, ok := s.index[name]
	if !ok {
		return nil, false
	}
	return s.order[i], true
}

// Add inserts d, or updates the existing define of the same name. An
// existing define keeps the shorter gating chain and its explicit metadata;
// a chain recorded from define-meta alone is replaced by the first use.
func (s *DefineSet) Add(d *Define) *Define {
	if s.index == nil {
		s.index = make(map[string]int)
	}
	i, ok := s.index[d.Name]
	if !ok {
		s.index[d.Name] = len(s.order)
		s.order = append(s.order, d)
		return d
	}
	old := s.order[i]
	switch {
	case !d.used:
	case !old.used:
		old.Defines, old.used = d.Defines, true
	case len(d.Defines) < len(old.Defines):
		old.Defines = d.Defines
	}
	if !old.explicit && d.Type > old.Type {
		old.Type = d.Type
		if old.Range == nil {
			old.Range = d.Range
		}
	}
	return old
}

// Remove deletes the named define.
func (s *DefineSet) Remove(name string) {
	i, ok := s.index[name]
	if !ok {
		return
	}
	s.order = slices.Delete(s.order, i, i+1)
	delete(s.index, name)
	for j := i; j < len(s.order); j++ {
		s.index[s.order[j].Name] = j
	}
}

// Len returns the number of defines.
func (s *DefineSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.order)
}

// List returns the defines in first-use order.
func (s *DefineSet) List() []*Define {
	if s == nil {
		return nil
	}
	return s.order
}
