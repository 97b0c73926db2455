// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package effectc compiles effect shaders into the GLSL dialects of the
// engine's render backends.
//
// An effect shader is GLSL with a pragma layer on top: chunk includes,
// literal and function-like macros declared through pragmas, define
// metadata, descriptor update rates and subpass inputs. Build runs every
// stage of one effect through the pipeline
//
//	include → subpass → macros → dead code → defines → params
//	        → bindings → GLSL ES 1.00 / ES 3.00 / GLSL 4.60
//
// and returns the three dialect texts per stage with the reflection data
// shared by all stages.
//
// Example usage:
//
//	opts := effectc.DefaultOptions()
//	opts.Registry.Register("standard-vs", vsSource)
//	opts.Registry.Register("standard-fs", fsSource)
//	out, err := effectc.Build("builtin-standard", effectc.KindGraphics, []effectc.StageSource{
//		{Stage: reflection.StageVertex, Name: "standard-vs:vert"},
//		{Stage: reflection.StageFragment, Name: "standard-fs:frag"},
//	}, opts)
package effectc

import (
	"context"
	"errors"
	"fmt"

	"github.com/gogpu/effectc/binding"
	"github.com/gogpu/effectc/diag"
	"github.com/gogpu/effectc/reflection"
)

// ErrMixedStages is returned when a graphics effect has a compute stage or
// a compute effect has a vertex or fragment stage.
var ErrMixedStages = errors.New("graphics and compute stages cannot be mixed")

// StageSource is one stage of an effect.
type StageSource struct {
	Stage reflection.Stage

	// Name is "chunk" or "chunk:entry". The entry defaults to main.
	Name string

	// Source is the stage code. When empty, the chunk named by Name is
	// loaded from the registry.
	Source string
}

// Build compiles the stages of an effect.
func Build(effectName string, kind EffectKind, stages []StageSource, opts Options) (*BuildOutput, error) {
	return BuildContext(context.Background(), effectName, kind, stages, opts)
}

// BuildContext is like Build. ctx bounds the strict compile run by
// opts.Compiler; the pipeline itself is not interruptible.
func BuildContext(ctx context.Context, effectName string, kind EffectKind, stages []StageSource, opts Options) (*BuildOutput, error) {
	if err := checkStages(kind, stages); err != nil {
		return nil, fmt.Errorf("effectc: %s: %w", effectName, err)
	}

	b := &builder{
		name:      effectName,
		kind:      kind,
		opts:      &opts,
		collector: diag.NewCollector(effectName, Logger(), opts.ThrowOnWarning),
		defines:   reflection.NewDefineSet(),
		info:      &reflection.ShaderInfo{},
	}

	units := make([]*unit, 0, len(stages))
	for _, s := range stages {
		u, err := b.front(s)
		if err != nil {
			return nil, err
		}
		units = append(units, u)
	}

	b.collector.SetShader("")
	if err := binding.Allocate(b.info); err != nil {
		return nil, b.collector.Fail(err)
	}
	b.warnLooseUniforms()
	if err := b.collector.Err(); err != nil {
		return nil, err
	}

	out := &BuildOutput{Name: effectName, Kind: kind}
	for _, u := range units {
		so, err := b.back(u)
		if err != nil {
			return nil, err
		}
		out.Shaders = append(out.Shaders, so)
	}
	if err := b.link(ctx, out); err != nil {
		return nil, err
	}
	if err := b.collector.Err(); err != nil {
		return nil, err
	}

	out.reflect(b.info)
	out.Defines = b.defines.List()
	out.Statistics = b.info.Statistics()

	texts := make([]string, 0, 3*len(out.Shaders))
	for _, s := range out.Shaders {
		texts = append(texts, s.GLSL1, s.GLSL3, s.GLSL4)
	}
	out.Hash = Hash(texts...)

	Logger().Debug("effectc: effect built",
		"effect", effectName,
		"kind", kind.String(),
		"stages", len(out.Shaders),
		"hash", out.Hash)
	return out, nil
}

func checkStages(kind EffectKind, stages []StageSource) error {
	if len(stages) == 0 {
		return errors.New("no stages")
	}
	var seen reflection.Stage
	for _, s := range stages {
		switch s.Stage {
		case reflection.StageVertex, reflection.StageFragment, reflection.StageCompute:
		default:
			return fmt.Errorf("invalid stage %s for '%s'", s.Stage, s.Name)
		}
		if (kind == KindCompute) != (s.Stage == reflection.StageCompute) {
			return fmt.Errorf("%w: %s stage '%s' in a %s effect", ErrMixedStages, s.Stage, s.Name, kind)
		}
		if seen&s.Stage != 0 {
			return fmt.Errorf("duplicate %s stage '%s'", s.Stage, s.Name)
		}
		seen |= s.Stage
	}
	return nil
}
