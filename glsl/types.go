// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package glsl

import (
	"fmt"
	"strings"
)

// TypeClass groups GLSL types by how they are bound and laid out.
type TypeClass uint8

const (
	ClassUnknown TypeClass = iota
	ClassScalar
	ClassVector
	ClassMatrix
	ClassSamplerTexture // combined image sampler: sampler2D, samplerCube, ...
	ClassSampler        // separate sampler: sampler, samplerShadow
	ClassTexture        // separate texture: texture2D, ...
	ClassImage          // storage image: image2D, ...
	ClassSubpassInput   // input attachment: subpassInput, ...
)

// String returns the class name.
func (c TypeClass) String() string {
	switch c {
	case ClassScalar:
		return "scalar"
	case ClassVector:
		return "vector"
	case ClassMatrix:
		return "matrix"
	case ClassSamplerTexture:
		return "sampler-texture"
	case ClassSampler:
		return "sampler"
	case ClassTexture:
		return "texture"
	case ClassImage:
		return "image"
	case ClassSubpassInput:
		return "subpass-input"
	default:
		return "unknown"
	}
}

// ScalarKind is the component type of a scalar, vector or matrix.
type ScalarKind uint8

const (
	ScalarFloat ScalarKind = iota
	ScalarInt
	ScalarUint
	ScalarBool
)

// SampleType describes what a texture resource returns when sampled.
type SampleType uint8

const (
	SampleFloat SampleType = iota
	SampleUnfilterableFloat
	SampleDepth
	SampleSint
	SampleUint
)

// String returns the sample type name used in reflection output.
func (s SampleType) String() string {
	switch s {
	case SampleUnfilterableFloat:
		return "unfilterable-float"
	case SampleDepth:
		return "depth"
	case SampleSint:
		return "sint"
	case SampleUint:
		return "uint"
	default:
		return "float"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s SampleType) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// TypeInfo describes a GLSL type.
type TypeInfo struct {
	Name    string
	Class   TypeClass
	Scalar  ScalarKind
	Rows    int // vector components, or rows of a matrix column
	Columns int // matrix columns, 1 otherwise
}

// IsOpaque reports whether values of the type can only be bound as descriptors.
func (t TypeInfo) IsOpaque() bool {
	return t.Class >= ClassSamplerTexture
}

// Size returns the std140 size of one element in bytes. Matrix columns are
// padded to 16 bytes.
func (t TypeInfo) Size() int {
	switch t.Class {
	case ClassScalar:
		return 4
	case ClassVector:
		return 4 * t.Rows
	case ClassMatrix:
		return 16 * t.Columns
	default:
		return 0
	}
}

// BaseAlignment returns the alignment used by the uniform block layout
// rules: the packed size for scalars and vectors, 16 for matrices.
// A vec3 reports 12, which the layout checker rejects.
func (t TypeInfo) BaseAlignment() int {
	switch t.Class {
	case ClassScalar:
		return 4
	case ClassVector:
		return 4 * t.Rows
	case ClassMatrix:
		return 16
	default:
		return 0
	}
}

// SampleType returns the sample type implied by the type name.
func (t TypeInfo) SampleType() SampleType {
	switch {
	case strings.HasSuffix(t.Name, "Shadow"):
		return SampleDepth
	case t.Scalar == ScalarInt:
		return SampleSint
	case t.Scalar == ScalarUint:
		return SampleUint
	default:
		return SampleFloat
	}
}

var typeTable = buildTypeTable()

func buildTypeTable() map[string]TypeInfo {
	table := make(map[string]TypeInfo, 96)
	scalars := []struct {
		name   string
		prefix string
		kind   ScalarKind
	}{
		{"float", "", ScalarFloat},
		{"int", "i", ScalarInt},
		{"uint", "u", ScalarUint},
		{"bool", "b", ScalarBool},
	}
	for _, s := range scalars {
		table[s.name] = TypeInfo{Name: s.name, Class: ClassScalar, Scalar: s.kind, Rows: 1, Columns: 1}
		for n := 2; n <= 4; n++ {
			name := fmt.Sprintf("%svec%d", s.prefix, n)
			table[name] = TypeInfo{Name: name, Class: ClassVector, Scalar: s.kind, Rows: n, Columns: 1}
		}
	}
	for c := 2; c <= 4; c++ {
		name := fmt.Sprintf("mat%d", c)
		table[name] = TypeInfo{Name: name, Class: ClassMatrix, Rows: c, Columns: c}
		for r := 2; r <= 4; r++ {
			name := fmt.Sprintf("mat%dx%d", c, r)
			table[name] = TypeInfo{Name: name, Class: ClassMatrix, Rows: r, Columns: c}
		}
	}
	for name := range glslKeywords {
		if class := opaqueClass(name); class != ClassUnknown {
			info := TypeInfo{Name: name, Class: class}
			switch name[0] {
			case 'i':
				if !strings.HasPrefix(name, "image") {
					info.Scalar = ScalarInt
				}
			case 'u':
				info.Scalar = ScalarUint
			}
			table[name] = info
		}
	}
	return table
}

func opaqueClass(name string) TypeClass {
	base := name
	if strings.HasPrefix(base, "i") || strings.HasPrefix(base, "u") {
		base = base[1:]
	}
	switch {
	case name == "sampler" || name == "samplerShadow":
		return ClassSampler
	case strings.HasPrefix(base, "sampler"):
		return ClassSamplerTexture
	case strings.HasPrefix(base, "texture"):
		return ClassTexture
	case strings.HasPrefix(base, "image") || strings.HasPrefix(name, "image"):
		return ClassImage
	case strings.HasPrefix(base, "subpassInput"):
		return ClassSubpassInput
	default:
		return ClassUnknown
	}
}

// LookupType returns the type information for a GLSL type name.
func LookupType(name string) (TypeInfo, bool) {
	info, ok := typeTable[name]
	return info, ok
}
