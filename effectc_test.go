// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package effectc_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/effectc"
	"github.com/gogpu/effectc/chunk"
	"github.com/gogpu/effectc/dce"
	"github.com/gogpu/effectc/diag"
	"github.com/gogpu/effectc/reflection"
)

func testOptions() effectc.Options {
	opts := effectc.DefaultOptions()
	opts.Registry = chunk.NewRegistry()
	return opts
}

func vertex(name, src string) effectc.StageSource {
	return effectc.StageSource{Stage: reflection.StageVertex, Name: name, Source: src}
}

func fragment(name, src string) effectc.StageSource {
	return effectc.StageSource{Stage: reflection.StageFragment, Name: name, Source: src}
}

func defineNames(defs []*reflection.Define) []string {
	names := make([]string, len(defs))
	for i, d := range defs {
		names[i] = d.Name
	}
	return names
}

func TestBuildMinimalVertex(t *testing.T) {
	src := "void main(){ float a = 1.0; gl_Position = vec4(a);}"
	out, err := effectc.Build("minimal", effectc.KindGraphics,
		[]effectc.StageSource{vertex("minimal-vs", src)}, testOptions())
	require.NoError(t, err)

	require.Len(t, out.Shaders, 1)
	vs := out.Shader(reflection.StageVertex)
	require.NotNil(t, vs)
	assert.Equal(t, "minimal-vs", vs.Name)
	assert.Equal(t, "main", vs.Entry)
	for name, text := range map[string]string{"glsl1": vs.GLSL1, "glsl3": vs.GLSL3, "glsl4": vs.GLSL4} {
		assert.Contains(t, text, "gl_Position", name)
	}
	assert.Empty(t, out.Defines)
	assert.Nil(t, out.Shader(reflection.StageFragment))
}

func TestBuildLiteralMacro(t *testing.T) {
	src := `#pragma define USE_FOO 1
void main() {
  gl_Position = vec4(0.0);
#if USE_FOO
#if USE_BAR
  gl_Position = vec4(1.0);
#endif
#endif
}
`
	out, err := effectc.Build("literal", effectc.KindGraphics,
		[]effectc.StageSource{vertex("literal-vs", src)}, testOptions())
	require.NoError(t, err)

	names := defineNames(out.Defines)
	assert.NotContains(t, names, "USE_FOO")
	assert.Contains(t, names, "USE_BAR")

	vs := out.Shader(reflection.StageVertex)
	assert.NotContains(t, vs.GLSL3, "USE_FOO")
	assert.NotContains(t, vs.GLSL3, "#pragma define")
}

func TestBuildLogsLiteralMacros(t *testing.T) {
	var buf bytes.Buffer
	effectc.SetLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	defer effectc.SetLogger(nil)

	src := `#pragma define SCALE 2.0
#pragma define HALF SCALE * 0.5
void main() { gl_Position = vec4(HALF); }
`
	_, err := effectc.Build("literal", effectc.KindGraphics,
		[]effectc.StageSource{vertex("literal-vs", src)}, testOptions())
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "effectc: stage reflected")
	assert.Contains(t, buf.String(), "literals=2")
}

func TestBuildMergesStages(t *testing.T) {
	vs := `#if USE_A
uniform vec4 color;
#endif
void main() {
#if USE_A
  gl_Position = color;
#else
  gl_Position = vec4(0.0);
#endif
}
`
	fs := `precision mediump float;
#if USE_B
uniform vec4 color;
#endif
layout(location = 0) out vec4 fragColor;
void main() {
#if USE_B
  fragColor = color;
#else
  fragColor = vec4(1.0);
#endif
}
`
	out, err := effectc.Build("merge", effectc.KindGraphics,
		[]effectc.StageSource{vertex("merge-vs", vs), fragment("merge-fs", fs)}, testOptions())
	require.NoError(t, err)

	require.Len(t, out.Uniforms, 1)
	color := out.Uniforms[0]
	assert.Equal(t, "color", color.Name)
	assert.Equal(t, reflection.StageVertex|reflection.StageFragment, color.Stages)
	assert.Empty(t, color.Defines)

	assert.ElementsMatch(t, []string{"USE_A", "USE_B"}, defineNames(out.Defines))
	assert.Equal(t, 1, out.Statistics[reflection.StatVertexUniformVectors])
	assert.Equal(t, 1, out.Statistics[reflection.StatFragmentUniformVectors])

	fsOut := out.Shader(reflection.StageFragment)
	assert.Contains(t, fsOut.GLSL1, "gl_FragColor = color;")
	assert.Contains(t, fsOut.GLSL3, "layout(location = 0) out vec4 fragColor;")
}

func TestBuildSubpassInput(t *testing.T) {
	fs := `precision highp float;
#pragma subpassColor in highp myColor
layout(location = 0) out vec4 fragColor;
void main() {
  fragColor = subpassLoad_myColor;
}
`
	out, err := effectc.Build("deferred", effectc.KindGraphics,
		[]effectc.StageSource{fragment("deferred-fs", fs)}, testOptions())
	require.NoError(t, err)

	s := out.Shader(reflection.StageFragment)
	require.NotNil(t, s)
	assert.Contains(t, s.GLSL4, "input_attachment_index = 0")
	assert.Contains(t, s.GLSL4, "subpassLoad_myColor")
	assert.NotContains(t, s.GLSL4, "gl_LastFragData")

	assert.Contains(t, s.GLSL1, "gl_LastFragData[0]")
	assert.Contains(t, s.GLSL1, "#extension GL_EXT_shader_framebuffer_fetch: require")
	assert.Contains(t, s.GLSL1, "gl_FragColor = subpassLoad_myColor;")
	assert.NotContains(t, s.GLSL1, "subpassInput")

	assert.Contains(t, s.GLSL3, "inout highp vec4 myColor;")

	require.Len(t, out.SubpassInputs, 1)
	assert.Equal(t, "myColor", out.SubpassInputs[0].Name)
	assert.Len(t, out.Descriptors[reflection.RateBatch].SubpassInputs, 1)
}

func TestBuildSubpassColorWithDeclaredOutput(t *testing.T) {
	fs := `precision highp float;
#pragma subpassColor out highp gbuf
layout(location = 1) out vec4 o1;
void main() {
  gbuf = vec4(1.0);
  o1 = vec4(0.0);
}
`
	out, err := effectc.Build("gbuffer", effectc.KindGraphics,
		[]effectc.StageSource{fragment("gbuffer-fs", fs)}, testOptions())
	require.NoError(t, err)

	s := out.Shader(reflection.StageFragment)
	require.NotNil(t, s)
	assert.Contains(t, s.GLSL1, "gl_FragData[0]")
	assert.Contains(t, s.GLSL1, "gl_FragData[1] = vec4(0.0);")
	assert.Contains(t, s.GLSL1, "#extension GL_EXT_draw_buffers")
	assert.Equal(t, 1, strings.Count(s.GLSL1, "#extension GL_EXT_draw_buffers"))
}

const litVS = `in vec3 a_position;
in vec2 a_uv;
out vec2 v_uv;
uniform Constants { vec4 tint; };
void main() {
  v_uv = a_uv;
  gl_Position = vec4(a_position, 1.0) * tint;
}
`

const litFS = `precision highp float;
in vec2 v_uv;
uniform Constants { vec4 tint; };
uniform sampler2D albedo;
uniform sampler2D normalMap;
layout(location = 0) out vec4 fragColor;
void main() {
  fragColor = texture(albedo, v_uv) * texture(normalMap, v_uv) * tint;
}
`

func buildLit(t *testing.T, opts effectc.Options) *effectc.BuildOutput {
	t.Helper()
	out, err := effectc.Build("lit", effectc.KindGraphics,
		[]effectc.StageSource{vertex("lit-vs", litVS), fragment("lit-fs", litFS)}, opts)
	require.NoError(t, err)
	return out
}

func TestBuildHashIsStable(t *testing.T) {
	a := buildLit(t, testOptions())
	b := buildLit(t, testOptions())
	assert.Equal(t, a.Hash, b.Hash)
	assert.Equal(t, a.Shaders, b.Shaders)

	var texts []string
	for _, s := range a.Shaders {
		texts = append(texts, s.GLSL1, s.GLSL3, s.GLSL4)
	}
	assert.Equal(t, effectc.Hash(texts...), a.Hash)

	changed, err := effectc.Build("lit", effectc.KindGraphics, []effectc.StageSource{
		vertex("lit-vs", litVS),
		fragment("lit-fs", strings.Replace(litFS, "* tint;", "* tint * 2.0;", 1)),
	}, testOptions())
	require.NoError(t, err)
	assert.NotEqual(t, a.Hash, changed.Hash)
}

func TestBuildBindings(t *testing.T) {
	out := buildLit(t, testOptions())

	var bindings []int
	for _, b := range out.Blocks {
		bindings = append(bindings, b.Binding)
	}
	for _, r := range out.SamplerTextures {
		bindings = append(bindings, r.Binding)
	}
	slices.Sort(bindings)
	assert.Equal(t, []int{0, 1, 2}, bindings)

	require.Len(t, out.Blocks, 1)
	assert.Equal(t, reflection.StageVertex|reflection.StageFragment, out.Blocks[0].Stages)
	assert.Equal(t, 16, out.Blocks[0].Size)

	group := out.Descriptors[reflection.RateBatch]
	assert.Len(t, group.Blocks, 1)
	assert.Len(t, group.SamplerTextures, 2)
	for i, g := range out.Descriptors {
		assert.Equal(t, reflection.Rate(i), g.Rate)
	}

	assert.Len(t, out.Attributes, 2)
	assert.Len(t, out.Varyings, 1)
	require.Len(t, out.FragColors, 1)
	assert.Equal(t, 0, out.FragColors[0].Location)

	fs := out.Shader(reflection.StageFragment)
	assert.Contains(t, fs.GLSL4, "layout(set = 1, binding = 1) uniform sampler2D albedo;")
	assert.Contains(t, fs.GLSL1, "texture2D(albedo, v_uv)")
	assert.Contains(t, fs.GLSL1, "uniform vec4 tint;")
	assert.Contains(t, fs.GLSL1, "varying vec2 v_uv;")
	assert.NotContains(t, fs.GLSL3, "set = ")

	vs := out.Shader(reflection.StageVertex)
	assert.Contains(t, vs.GLSL1, "attribute vec3 a_position;")
}

func TestBuildPassRate(t *testing.T) {
	fs := `precision highp float;
#pragma rate Globals pass
uniform Globals { vec4 ambient; };
uniform Material { vec4 albedo; };
layout(location = 0) out vec4 fragColor;
void main() { fragColor = ambient * albedo; }
`
	out, err := effectc.Build("pass", effectc.KindGraphics,
		[]effectc.StageSource{fragment("pass-fs", fs)}, testOptions())
	require.NoError(t, err)

	require.Len(t, out.Blocks, 1)
	assert.Equal(t, "Material", out.Blocks[0].Name)
	pass := out.Descriptors[reflection.RatePass]
	require.Len(t, pass.Blocks, 1)
	assert.Equal(t, "Globals", pass.Blocks[0].Name)
	assert.Equal(t, reflection.RatePass, pass.Blocks[0].Rate)
}

func TestBuildBuiltins(t *testing.T) {
	vs := `uniform CCGlobal { vec4 cc_time; };
uniform CCLocal { mat4 cc_matWorld; };
in vec3 a_position;
void main() { gl_Position = cc_matWorld * vec4(a_position, cc_time.x); }
`
	out, err := effectc.Build("builtins", effectc.KindGraphics,
		[]effectc.StageSource{vertex("builtins-vs", vs)}, testOptions())
	require.NoError(t, err)

	assert.Empty(t, out.Blocks)
	require.Len(t, out.Builtins.Globals.Blocks, 1)
	assert.Equal(t, "CCGlobal", out.Builtins.Globals.Blocks[0].Name)
	require.Len(t, out.Builtins.Locals.Blocks, 1)
	assert.Equal(t, "CCLocal", out.Builtins.Locals.Blocks[0].Name)
}

func TestBuildStd140Errors(t *testing.T) {
	tests := []struct {
		name string
		decl string
		want string
	}{
		{"vec3 array", "uniform Params { vec3 dirs[2]; };", "16-byte aligned"},
		{"vec3", "uniform Params { vec3 dir; };", "12 bytes"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := tt.decl + "\nvoid main() { gl_Position = vec4(0.0); }\n"
			_, err := effectc.Build("std140", effectc.KindGraphics,
				[]effectc.StageSource{vertex("std140-vs", src)}, testOptions())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
			assert.Contains(t, err.Error(), "std140.std140-vs - 1:")
		})
	}
}

func TestBuildMixedStages(t *testing.T) {
	compute := effectc.StageSource{Stage: reflection.StageCompute, Name: "cs", Source: "void main() {}"}
	_, err := effectc.Build("mixed", effectc.KindGraphics,
		[]effectc.StageSource{vertex("vs", "void main() {}"), compute}, testOptions())
	assert.ErrorIs(t, err, effectc.ErrMixedStages)

	_, err = effectc.Build("mixed", effectc.KindCompute,
		[]effectc.StageSource{vertex("vs", "void main() {}")}, testOptions())
	assert.ErrorIs(t, err, effectc.ErrMixedStages)

	_, err = effectc.Build("dup", effectc.KindGraphics,
		[]effectc.StageSource{vertex("a", "void main() {}"), vertex("b", "void main() {}")}, testOptions())
	assert.Error(t, err)
}

func TestBuildCompute(t *testing.T) {
	cs := `layout(local_size_x = 8) in;
layout(std430) buffer Particles { vec4 positions[]; };
void main() { positions[gl_GlobalInvocationID.x] += vec4(1.0); }
`
	out, err := effectc.Build("particles", effectc.KindCompute, []effectc.StageSource{
		{Stage: reflection.StageCompute, Name: "particles-cs", Source: cs},
	}, testOptions())
	require.NoError(t, err)

	s := out.Shader(reflection.StageCompute)
	require.NotNil(t, s)
	assert.Empty(t, s.GLSL1)
	assert.Contains(t, s.GLSL3, "buffer Particles")
	assert.Contains(t, s.GLSL4, "binding = 0")
	require.Len(t, out.Buffers, 1)
	assert.Equal(t, reflection.StageCompute, out.Buffers[0].Stages)
}

func TestBuildThrowOnWarning(t *testing.T) {
	fs := `layout(location = 0) out vec4 fragColor;
void main() { fragColor = vec4(1.0); }
`
	stages := []effectc.StageSource{fragment("noprec-fs", fs)}

	_, err := effectc.Build("noprec", effectc.KindGraphics, stages, testOptions())
	require.NoError(t, err)

	opts := testOptions()
	opts.ThrowOnWarning = true
	_, err = effectc.Build("noprec", effectc.KindGraphics, stages, opts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no default precision")
}

func TestBuildRegistryChunks(t *testing.T) {
	opts := testOptions()
	opts.Registry.Register("common", "vec4 scale(vec4 v) { return v * 2.0; }\nfloat unused() { return 0.0; }\n")
	opts.Registry.Register("my-vs", "#include <common>\nvec4 vert() { return scale(vec4(1.0)); }\n")

	out, err := effectc.Build("chunks", effectc.KindGraphics, []effectc.StageSource{
		{Stage: reflection.StageVertex, Name: "my-vs:vert"},
	}, opts)
	require.NoError(t, err)

	vs := out.Shader(reflection.StageVertex)
	assert.Equal(t, "my-vs", vs.Name)
	assert.Equal(t, "vert", vs.Entry)
	assert.Contains(t, vs.GLSL3, "void main() { gl_Position = vert(); }")
	assert.Contains(t, vs.GLSL3, "vec4 scale(vec4 v)")
	assert.NotContains(t, vs.GLSL3, "unused")
}

func TestBuildFragmentEntry(t *testing.T) {
	fs := "precision mediump float;\nvec4 frag() { return vec4(1.0); }\n"
	out, err := effectc.Build("entry", effectc.KindGraphics,
		[]effectc.StageSource{fragment("entry-fs:frag", fs)}, testOptions())
	require.NoError(t, err)

	s := out.Shader(reflection.StageFragment)
	assert.Contains(t, s.GLSL1, "gl_FragColor = frag();")
	assert.Contains(t, s.GLSL4, "layout(location = 0) out vec4 cc_FragColor;")
	require.Len(t, out.FragColors, 1)
	assert.Equal(t, "cc_FragColor", out.FragColors[0].Name)

	_, err = effectc.Build("entry", effectc.KindGraphics,
		[]effectc.StageSource{fragment("entry-fs:frag", "float frag() { return 1.0; }\n")}, testOptions())
	assert.ErrorContains(t, err, "want void or vec4")
}

func TestBuildErrors(t *testing.T) {
	_, err := effectc.Build("missing", effectc.KindGraphics,
		[]effectc.StageSource{vertex("vs:nope", "void vert() {}\n")}, testOptions())
	assert.ErrorIs(t, err, dce.ErrEntryNotFound)

	_, err = effectc.Build("include", effectc.KindGraphics,
		[]effectc.StageSource{vertex("vs", "#include <nowhere>\nvoid main() {}\n")}, testOptions())
	assert.ErrorIs(t, err, chunk.ErrNotFound)

	opts := testOptions()
	opts.Registry.DeprecateIdentifier("cc_matViewProj", "use cc_matViewProjection")
	_, err = effectc.Build("deprecated", effectc.KindGraphics, []effectc.StageSource{
		vertex("vs", "uniform mat4 cc_matViewProj;\nvoid main() { gl_Position = cc_matViewProj[0]; }\n"),
	}, opts)
	assert.ErrorContains(t, err, "use cc_matViewProjection")

	_, err = effectc.Build("reserved", effectc.KindGraphics, []effectc.StageSource{
		vertex("vs", "void main() { float texture = 1.0; gl_Position = vec4(texture); }\n"),
	}, testOptions())
	assert.Error(t, err)

	opts = testOptions()
	opts.SkipValidation = true
	_, err = effectc.Build("reserved", effectc.KindGraphics, []effectc.StageSource{
		vertex("vs", "void main() { float texture = 1.0; gl_Position = vec4(texture); }\n"),
	}, opts)
	assert.NoError(t, err)
}

func TestBuildPragmaMessages(t *testing.T) {
	_, err := effectc.Build("msg", effectc.KindGraphics, []effectc.StageSource{
		vertex("vs", "#pragma error unsupported platform\nvoid main() {}\n"),
	}, testOptions())
	assert.ErrorContains(t, err, "unsupported platform")

	src := "#if USE_SKINNING\n#pragma error skinning is not available\n#endif\n#pragma warning check inputs\nvoid main() { gl_Position = vec4(0.0); }\n"
	out, err := effectc.Build("msg", effectc.KindGraphics,
		[]effectc.StageSource{vertex("vs", src)}, testOptions())
	require.NoError(t, err)
	vs := out.Shader(reflection.StageVertex)
	assert.Contains(t, vs.GLSL3, "#error skinning is not available")
	assert.NotContains(t, vs.GLSL3, "#pragma")

	opts := testOptions()
	opts.ThrowOnWarning = true
	_, err = effectc.Build("msg", effectc.KindGraphics, []effectc.StageSource{vertex("vs", src)}, opts)
	assert.ErrorContains(t, err, "check inputs")
}

type recordingCompiler struct {
	vert, frag string
	err        error
}

func (c *recordingCompiler) Link(_ context.Context, vert, frag string) error {
	c.vert, c.frag = vert, frag
	return c.err
}

func TestBuildStrictCompile(t *testing.T) {
	fs := strings.Replace(litFS, "void main() {", "void main() {\n#if USE_TINT\n  fragColor = vec4(0.0);\n#endif", 1)
	compiler := &recordingCompiler{}
	opts := testOptions()
	opts.Compiler = compiler
	_, err := effectc.Build("strict", effectc.KindGraphics,
		[]effectc.StageSource{vertex("lit-vs", litVS), fragment("lit-fs", fs)}, opts)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(compiler.vert, "#version 100\n"))
	assert.True(t, strings.HasPrefix(compiler.frag, "#version 100\n#define USE_TINT 0\n"))
	assert.Contains(t, compiler.frag, "gl_FragColor")

	compiler.err = errors.New("ERROR: 0:3: 'x' : undeclared identifier")
	_, err = effectc.Build("strict", effectc.KindGraphics,
		[]effectc.StageSource{vertex("lit-vs", litVS), fragment("lit-fs", fs)}, opts)
	assert.ErrorContains(t, err, "undeclared identifier")
}

func TestBuildReportsAuthorLines(t *testing.T) {
	body := `precision highp float;
#pragma subpassColor in highp myColor
#pragma define BLEND(a, b) \
  vec4 c = a; \
  c += b;
layout(location = 0) out vec4 fragColor;
void main() {
  BLEND(subpassLoad_myColor, vec4(0.1))
  fragColor = c;
}
uniform vec4 tint;
`
	_, err := effectc.Build("lines", effectc.KindGraphics,
		[]effectc.StageSource{fragment("lines-fs", body+"#pragma error stop here\n")}, testOptions())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lines.lines-fs - 12: stop here")
	d := diag.Wrap(err)
	require.NotEmpty(t, d.Source)
	assert.Equal(t, "#pragma error stop here", strings.Split(d.Source, "\n")[d.Line-1])

	opts := testOptions()
	opts.ThrowOnWarning = true
	_, err = effectc.Build("lines", effectc.KindGraphics,
		[]effectc.StageSource{fragment("lines-fs", body)}, opts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), " - 11: uniform 'tint'")
}
