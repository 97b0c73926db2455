// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package effectc

import (
	"hash/fnv"
	"io"
)

// Hash returns the 32-bit FNV-1a hash of the concatenated texts. Build
// uses it over every generated dialect text as a cache key.
func Hash(texts ...string) uint32 {
	h := fnv.New32a()
	for _, t := range texts {
		_, _ = io.WriteString(h, t)
	}
	return h.Sum32()
}
