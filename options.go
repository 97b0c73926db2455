// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package effectc

import (
	"fmt"
	"maps"

	"github.com/gogpu/effectc/chunk"
	"github.com/gogpu/effectc/glsl"
	"github.com/gogpu/effectc/validate"
)

// EffectKind selects the stages an effect may contain.
type EffectKind uint8

const (
	// KindGraphics effects have vertex and fragment stages.
	KindGraphics EffectKind = iota
	// KindCompute effects have a single compute stage.
	KindCompute
)

// String returns the kind name.
func (k EffectKind) String() string {
	if k == KindCompute {
		return "compute"
	}
	return "graphics"
}

// MarshalText implements encoding.TextMarshaler.
func (k EffectKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// ParseEffectKind parses "graphics" or "compute".
func ParseEffectKind(s string) (EffectKind, error) {
	switch s {
	case "graphics", "":
		return KindGraphics, nil
	case "compute":
		return KindCompute, nil
	}
	return 0, fmt.Errorf("effectc: unknown effect kind %q", s)
}

// DefaultGlobalBuiltins names the pipeline resources bound through the
// global descriptor set. Every other builtin is per object.
var DefaultGlobalBuiltins = map[string]bool{
	"CCGlobal":         true,
	"CCCamera":         true,
	"CCShadow":         true,
	"CCCSM":            true,
	"cc_shadowMap":     true,
	"cc_environment":   true,
	"cc_diffuseMap":    true,
	"cc_spotShadowMap": true,
}

// Options configures Build.
type Options struct {
	// Registry holds the chunks stages are loaded from and includes
	// resolve against. Nil selects chunk.Default().
	Registry *chunk.Registry

	// Search and AlternativePaths locate chunks missing from Registry.
	Search           chunk.SearchFunc
	AlternativePaths func(name string) []string

	// ThrowOnWarning turns the first warning into a build error.
	ThrowOnWarning bool

	// SkipValidation disables the GLSL ES 1.00 checks.
	SkipValidation bool

	// Compiler, when set, compiles and links the ES 1.00 vertex and
	// fragment pair of graphics effects.
	Compiler validate.Compiler

	// GlobalBuiltins names builtins provided by the global set.
	GlobalBuiltins map[string]bool

	// VulkanVersion is the target of the GLSL4 text. The zero value
	// selects GLSL 4.60.
	VulkanVersion glsl.Version
}

// DefaultOptions returns options using the process-wide chunk registry.
func DefaultOptions() Options {
	return Options{
		Registry:       chunk.Default(),
		GlobalBuiltins: maps.Clone(DefaultGlobalBuiltins),
		VulkanVersion:  glsl.Version460,
	}
}

func (o *Options) registry() *chunk.Registry {
	if o.Registry == nil {
		return chunk.Default()
	}
	return o.Registry
}

func (o *Options) vulkanVersion() glsl.Version {
	if o.VulkanVersion.Major == 0 {
		return glsl.Version460
	}
	return o.VulkanVersion
}

func (o *Options) globalBuiltins() map[string]bool {
	if o.GlobalBuiltins == nil {
		return DefaultGlobalBuiltins
	}
	return o.GlobalBuiltins
}
