// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/gogpu/effectc"
	"github.com/gogpu/effectc/chunk"
	"github.com/gogpu/effectc/reflection"
)

// chunkExt is the file extension of chunk sources.
const chunkExt = ".chunk"

// program is an effect to build.
type program struct {
	name   string
	kind   effectc.EffectKind
	stages []effectc.StageSource
}

// parseProgram parses "name=vert:entry,frag:entry" or
// "name=compute:chunk:entry".
func parseProgram(arg string) (program, error) {
	name, stages, ok := strings.Cut(arg, "=")
	if !ok || name == "" || stages == "" {
		return program{}, fmt.Errorf("invalid program %q, want name=vert:entry,frag:entry or name=compute:chunk:entry", arg)
	}
	pc := ProgramConfig{Name: name}
	if rest, ok := strings.CutPrefix(stages, "compute:"); ok {
		pc.Compute = rest
	} else {
		vert, frag, ok := strings.Cut(stages, ",")
		if !ok {
			return program{}, fmt.Errorf("program %q needs a vertex and a fragment stage", name)
		}
		pc.Vertex, pc.Fragment = vert, frag
	}
	return pc.program()
}

func (pc ProgramConfig) program() (program, error) {
	p := program{name: pc.Name}
	if pc.Name == "" {
		return p, fmt.Errorf("program without a name")
	}
	switch {
	case pc.Compute != "" && (pc.Vertex != "" || pc.Fragment != ""):
		return p, fmt.Errorf("program %q: %w", pc.Name, effectc.ErrMixedStages)
	case pc.Compute != "":
		p.kind = effectc.KindCompute
		p.stages = []effectc.StageSource{{Stage: reflection.StageCompute, Name: pc.Compute}}
	case pc.Vertex != "" && pc.Fragment != "":
		p.kind = effectc.KindGraphics
		p.stages = []effectc.StageSource{
			{Stage: reflection.StageVertex, Name: pc.Vertex},
			{Stage: reflection.StageFragment, Name: pc.Fragment},
		}
	default:
		return p, fmt.Errorf("program %q needs a vertex and a fragment stage, or a compute stage", pc.Name)
	}
	return p, nil
}

// chunkName returns the registry name of a chunk file below dir.
func chunkName(dir, path string) (string, error) {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return "", err
	}
	return strings.TrimSuffix(filepath.ToSlash(rel), chunkExt), nil
}

// loadChunks registers every chunk file below dirs. It returns the number
// of chunks registered.
func loadChunks(reg *chunk.Registry, dirs []string) (int, error) {
	n := 0
	for _, dir := range dirs {
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || filepath.Ext(path) != chunkExt {
				return nil
			}
			if err := registerChunk(reg, dir, path); err != nil {
				return err
			}
			n++
			return nil
		})
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

func registerChunk(reg *chunk.Registry, dir, path string) error {
	name, err := chunkName(dir, path)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	reg.Register(name, string(data))
	return nil
}
