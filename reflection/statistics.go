// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package reflection

// Statistic keys reported in build output.
const (
	StatVertexUniformVectors   = "CC_EFFECT_USED_VERTEX_UNIFORM_VECTORS"
	StatFragmentUniformVectors = "CC_EFFECT_USED_FRAGMENT_UNIFORM_VECTORS"
	StatComputeUniformVectors  = "CC_EFFECT_USED_COMPUTE_UNIFORM_VECTORS"
)

// UniformVectors returns the number of vec4 uniform slots used by the
// blocks and loose uniforms visible to stage.
func (s *ShaderInfo) UniformVectors(stage Stage) int {
	n := 0
	for _, cat := range []Category{CatBlock, CatUniform} {
		for _, p := range s.lists[cat] {
			if p.Stages&stage != 0 {
				n += p.VectorSlots()
			}
		}
	}
	return n
}

// Statistics returns the uniform vector usage per stage present in the
// info, keyed by the statistic names.
func (s *ShaderInfo) Statistics() map[string]int {
	var present Stage
	for _, p := range s.All() {
		present |= p.Stages
	}
	stats := make(map[string]int)
	for stage, key := range map[Stage]string{
		StageVertex:   StatVertexUniformVectors,
		StageFragment: StatFragmentUniformVectors,
		StageCompute:  StatComputeUniformVectors,
	} {
		if present&stage != 0 {
			stats[key] = s.UniformVectors(stage)
		}
	}
	return stats
}
