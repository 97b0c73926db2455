// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package chunk

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry() *Registry {
	r := NewRegistry()
	r.Register("common", "#define PI 3.14159\nfloat square(float x) { return x * x; }")
	r.Register("lighting.chunk", "#include <common>\nfloat lambert(float d) { return max(d, 0.0); }")
	r.Register("packing", "vec4 pack(float v) {  \r\n  return vec4(v);\r\n}\r\n")
	return r
}

func TestRegisterCleansContent(t *testing.T) {
	r := newTestRegistry()
	c, ok := r.Lookup("packing")
	require.True(t, ok)
	assert.Equal(t, "vec4 pack(float v) {\n  return vec4(v);\n}", c.Content)

	_, ok = r.Lookup("lighting")
	assert.True(t, ok, ".chunk suffix is stripped on registration")
	assert.Equal(t, []string{"common", "lighting", "packing"}, r.Names())
}

func TestResolveNested(t *testing.T) {
	r := newTestRegistry()
	out, err := r.Resolve("#include <lighting.chunk>\nvoid main() {}", Options{})
	require.NoError(t, err)

	assert.Equal(t, 1, strings.Count(out, "float square"))
	assert.Contains(t, out, "float lambert")
	assert.NotContains(t, out, "#include")
	assert.True(t, strings.HasSuffix(out, "void main() {}"))
}

func TestResolveIncludesOnce(t *testing.T) {
	r := newTestRegistry()
	out, err := r.Resolve("#include <common>\n#include \"common\"\n#include <lighting>", Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(out, "#define PI"))
}

func TestResolveIdempotent(t *testing.T) {
	r := newTestRegistry()
	src := "precision highp float;\n  #include <lighting>\nvoid main() { float a = square(2.0); }"
	once, err := r.Resolve(src, Options{})
	require.NoError(t, err)
	twice, err := r.Resolve(once, Options{})
	require.NoError(t, err)
	assert.Equal(t, once, twice)
}

func TestResolvePrefixSuffix(t *testing.T) {
	r := NewRegistry()
	r.Register("body", "a = 1;\nb = 2;")
	out, err := r.Resolve("#define F() \\\n  #include <body> \\\n", Options{})
	require.NoError(t, err)
	assert.Equal(t, "#define F() \\\n  a = 1; \\\n  b = 2; \\\n", out)
}

func TestResolveSearch(t *testing.T) {
	r := NewRegistry()
	var asked []string
	opts := Options{
		Search: func(names []string) (string, string, bool) {
			asked = names
			return names[1], "float fromDisk;", true
		},
		AlternativePaths: func(name string) []string {
			return []string{"legacy/" + name}
		},
	}
	out, err := r.Resolve("#include <disk>", opts)
	require.NoError(t, err)
	assert.Equal(t, "float fromDisk;", out)
	assert.Equal(t, []string{"disk", "legacy/disk"}, asked)

	_, ok := r.Lookup("disk")
	assert.True(t, ok, "found chunks are registered")
}

func TestResolveErrors(t *testing.T) {
	r := newTestRegistry()
	r.Deprecate("packing", "use 'packing-v2' instead")

	_, err := r.Resolve("\n#include <comon>", Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Contains(t, err.Error(), "can not resolve 'comon'")
	assert.Contains(t, err.Error(), "did you mean 'common'")
	assert.Contains(t, err.Error(), "line 2")

	_, err = r.Resolve("#include <packing>", Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDeprecated))
	assert.Contains(t, err.Error(), "packing-v2")
}

func TestParseInclude(t *testing.T) {
	tests := []struct {
		line string
		ok   bool
		want Include
	}{
		{"#include <common>", true, Include{Name: "common"}},
		{"  #include \"a/b.chunk\" // c", true, Include{Name: "a/b", Prefix: "  ", Suffix: " // c"}},
		{"// #include <common>", false, Include{}},
		{"#include common", false, Include{}},
		{"#include <unterminated", false, Include{}},
	}
	for _, tt := range tests {
		got, ok := ParseInclude(tt.line)
		assert.Equal(t, tt.ok, ok, tt.line)
		if tt.ok {
			assert.Equal(t, tt.want, got, tt.line)
		}
	}
}

func TestDeprecatedIdentifiers(t *testing.T) {
	r := NewRegistry()
	assert.False(t, r.HasDeprecatedIdentifiers())
	r.DeprecateIdentifier("cc_matWorldIT", "use cc_matWorld instead")
	msg, ok := r.IdentifierDeprecation("cc_matWorldIT")
	assert.True(t, ok)
	assert.Equal(t, "use cc_matWorld instead", msg)
}
