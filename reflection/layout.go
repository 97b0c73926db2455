// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package reflection

import (
	"github.com/gogpu/effectc/diag"
	"github.com/gogpu/effectc/glsl"
)

// Std140 assigns std140 offsets to the members of a uniform block and
// returns the block size rounded up to 16 bytes.
//
// Members must be laid out without implicit padding. Arrays need a base
// alignment of 16 bytes and 12-byte aligned members (vec3) are rejected,
// since drivers disagree on how to pack them.
func Std140(block string, members []Member, line int) (int, error) {
	offset := 0
	for i := range members {
		m := &members[i]
		info, ok := glsl.LookupType(m.Type)
		if !ok || info.IsOpaque() {
			return 0, diag.Errorf(line, "unsupported type '%s' for member '%s' of block '%s'", m.Type, m.Name, block)
		}
		if m.IsArray && m.Count == 0 {
			return 0, diag.Errorf(line, "member '%s' of block '%s' must have a constant array length", m.Name, block)
		}
		align := info.BaseAlignment()
		if m.Count > 1 && align < 16 {
			return 0, diag.Errorf(line,
				"array member '%s' of block '%s' has a base alignment of %d bytes, arrays must be 16-byte aligned (use a vec4 element type)",
				m.Name, block, align)
		}
		if align == 12 {
			return 0, diag.Errorf(line,
				"member '%s' of block '%s' has a base alignment of 12 bytes, use vec4 instead of vec3",
				m.Name, block)
		}
		if m.IsArray {
			align = 16
		}
		if offset%align != 0 {
			return 0, diag.Errorf(line,
				"member '%s' of block '%s' needs %d bytes of implicit padding, reorder the members or pad explicitly",
				m.Name, block, align-offset%align)
		}
		m.Offset = offset
		size := info.Size()
		if m.IsArray {
			size = roundUp(size, 16) * m.Count
		}
		offset += size
	}
	return roundUp(offset, 16), nil
}

func roundUp(n, align int) int {
	return (n + align - 1) / align * align
}
