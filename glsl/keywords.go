// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package glsl

import "strings"

// glslKeywords contains the language keywords and type names of GLSL ES 3.20
// and GLSL 4.60. Words in this table lex as TokenKeyword.
var glslKeywords = map[string]struct{}{
	// Basic types
	"void": {}, "bool": {}, "int": {}, "uint": {}, "float": {}, "double": {},

	// Vector types
	"vec2": {}, "vec3": {}, "vec4": {},
	"ivec2": {}, "ivec3": {}, "ivec4": {},
	"uvec2": {}, "uvec3": {}, "uvec4": {},
	"bvec2": {}, "bvec3": {}, "bvec4": {},
	"dvec2": {}, "dvec3": {}, "dvec4": {},

	// Matrix types
	"mat2": {}, "mat3": {}, "mat4": {},
	"mat2x2": {}, "mat2x3": {}, "mat2x4": {},
	"mat3x2": {}, "mat3x3": {}, "mat3x4": {},
	"mat4x2": {}, "mat4x3": {}, "mat4x4": {},

	// Sampler types
	"sampler": {}, "samplerShadow": {},
	"sampler2D": {}, "sampler3D": {}, "samplerCube": {}, "sampler2DArray": {},
	"sampler2DShadow": {}, "samplerCubeShadow": {}, "sampler2DArrayShadow": {},
	"sampler2DMS": {}, "samplerBuffer": {}, "samplerExternalOES": {},
	"isampler2D": {}, "isampler3D": {}, "isamplerCube": {}, "isampler2DArray": {},
	"usampler2D": {}, "usampler3D": {}, "usamplerCube": {}, "usampler2DArray": {},

	// Separate texture types
	"texture2D": {}, "texture3D": {}, "textureCube": {}, "texture2DArray": {},
	"itexture2D": {}, "itexture3D": {}, "itextureCube": {}, "itexture2DArray": {},
	"utexture2D": {}, "utexture3D": {}, "utextureCube": {}, "utexture2DArray": {},

	// Image types
	"image2D": {}, "image3D": {}, "imageCube": {}, "image2DArray": {},
	"iimage2D": {}, "iimage3D": {}, "iimageCube": {}, "iimage2DArray": {},
	"uimage2D": {}, "uimage3D": {}, "uimageCube": {}, "uimage2DArray": {},

	// Subpass inputs
	"subpassInput": {}, "isubpassInput": {}, "usubpassInput": {},
	"subpassInputMS": {}, "isubpassInputMS": {}, "usubpassInputMS": {},

	// Atomic counter types
	"atomic_uint": {},

	// Qualifiers and control flow
	"attribute": {}, "const": {}, "uniform": {}, "varying": {},
	"buffer": {}, "shared": {}, "coherent": {}, "volatile": {}, "restrict": {}, "readonly": {}, "writeonly": {},
	"layout": {}, "centroid": {}, "flat": {}, "smooth": {}, "noperspective": {},
	"patch": {}, "sample": {},
	"break": {}, "continue": {}, "do": {}, "for": {}, "while": {}, "switch": {}, "case": {}, "default": {},
	"if": {}, "else": {},
	"in": {}, "out": {}, "inout": {},
	"true": {}, "false": {},
	"invariant": {}, "precise": {},
	"discard": {}, "return": {},
	"struct": {},

	// Precision qualifiers
	"lowp": {}, "mediump": {}, "highp": {}, "precision": {},
}

// glslBuiltins contains built-in variables and functions. Words in this
// table lex as TokenBuiltin.
var glslBuiltins = map[string]struct{}{
	// Built-in variables
	"gl_VertexID": {}, "gl_InstanceID": {}, "gl_VertexIndex": {}, "gl_InstanceIndex": {},
	"gl_Position": {}, "gl_PointSize": {},
	"gl_FragCoord": {}, "gl_FrontFacing": {}, "gl_PointCoord": {},
	"gl_FragColor": {}, "gl_FragData": {}, "gl_FragDepth": {}, "gl_FragDepthEXT": {},
	"gl_LastFragData": {}, "gl_LastFragColorARM": {}, "gl_LastFragDepthARM": {}, "gl_LastFragStencilARM": {},
	"gl_NumWorkGroups": {}, "gl_WorkGroupSize": {}, "gl_WorkGroupID": {},
	"gl_LocalInvocationID": {}, "gl_GlobalInvocationID": {}, "gl_LocalInvocationIndex": {},

	// Texture functions
	"texture": {}, "textureLod": {}, "textureProj": {}, "textureProjLod": {},
	"textureGrad": {}, "textureOffset": {}, "textureSize": {}, "texelFetch": {},
	"texture2D": {}, "texture2DProj": {}, "texture2DLod": {}, "texture2DProjLod": {},
	"textureCubeLod": {}, "texture2DLodEXT": {}, "textureCubeLodEXT": {},
	"texture2DGradEXT": {}, "textureCubeGradEXT": {},
	"subpassLoad": {},

	// Math and geometry
	"radians": {}, "degrees": {}, "sin": {}, "cos": {}, "tan": {}, "asin": {}, "acos": {}, "atan": {},
	"sinh": {}, "cosh": {}, "tanh": {}, "pow": {}, "exp": {}, "log": {}, "exp2": {}, "log2": {},
	"sqrt": {}, "inversesqrt": {}, "abs": {}, "sign": {}, "floor": {}, "ceil": {}, "fract": {},
	"trunc": {}, "round": {}, "mod": {}, "min": {}, "max": {}, "clamp": {}, "mix": {}, "step": {},
	"smoothstep": {}, "length": {}, "distance": {}, "dot": {}, "cross": {}, "normalize": {},
	"faceforward": {}, "reflect": {}, "refract": {}, "matrixCompMult": {}, "transpose": {},
	"inverse": {}, "determinant": {}, "outerProduct": {},
	"lessThan": {}, "lessThanEqual": {}, "greaterThan": {}, "greaterThanEqual": {},
	"equal": {}, "notEqual": {}, "any": {}, "all": {}, "not": {},
	"dFdx": {}, "dFdy": {}, "fwidth": {},
	"packHalf2x16": {}, "unpackHalf2x16": {}, "floatBitsToInt": {}, "floatBitsToUint": {},
	"intBitsToFloat": {}, "uintBitsToFloat": {},

	// Compute and memory
	"barrier": {}, "memoryBarrier": {}, "memoryBarrierShared": {}, "memoryBarrierBuffer": {},
	"memoryBarrierImage": {}, "groupMemoryBarrier": {},
	"imageLoad": {}, "imageStore": {}, "imageSize": {},
	"atomicAdd": {}, "atomicMin": {}, "atomicMax": {}, "atomicAnd": {}, "atomicOr": {}, "atomicXor": {},
	"atomicExchange": {}, "atomicCompSwap": {},
}

// es1Reserved contains words reserved in GLSL ES 1.00 that are not usable
// as identifiers: future-use keywords and ES 3.00 keywords that legacy
// drivers reject.
var es1Reserved = map[string]struct{}{
	"asm": {}, "class": {}, "union": {}, "enum": {}, "typedef": {}, "template": {}, "this": {},
	"packed": {}, "goto": {}, "switch": {}, "default": {}, "inline": {}, "noinline": {},
	"volatile": {}, "public": {}, "static": {}, "extern": {}, "external": {}, "interface": {},
	"flat": {}, "long": {}, "short": {}, "double": {}, "half": {}, "fixed": {}, "unsigned": {},
	"superp": {}, "input": {}, "output": {},
	"hvec2": {}, "hvec3": {}, "hvec4": {}, "dvec2": {}, "dvec3": {}, "dvec4": {},
	"fvec2": {}, "fvec3": {}, "fvec4": {},
	"sampler1D": {}, "sampler3D": {}, "sampler1DShadow": {}, "sampler2DShadow": {},
	"sampler2DRect": {}, "sampler3DRect": {}, "sampler2DRectShadow": {},
	"sizeof": {}, "cast": {}, "namespace": {}, "using": {},
	"uint": {}, "uvec2": {}, "uvec3": {}, "uvec4": {},
	"layout": {}, "centroid": {}, "smooth": {}, "case": {},
	"sampler2DArray": {}, "samplerCubeShadow": {},
}

// es1Unsafe lists identifiers that are legal GLSL ES 1.00 but break on
// shipping drivers, with the reason reported to the author.
var es1Unsafe = map[string]string{
	"texture": "'texture' is a built-in function on some mobile drivers and fails to compile as an identifier",
}

// IsKeyword checks if a name is a GLSL keyword or type name.
func IsKeyword(name string) bool {
	_, ok := glslKeywords[name]
	return ok
}

// IsBuiltin checks if a name is a GLSL built-in variable or function.
func IsBuiltin(name string) bool {
	_, ok := glslBuiltins[name]
	return ok
}

// IsReservedES1 checks if a name cannot be used as an identifier in GLSL ES 1.00.
func IsReservedES1(name string) bool {
	if _, ok := es1Reserved[name]; ok {
		return true
	}
	// The gl_ prefix is reserved for the implementation.
	return strings.HasPrefix(name, "gl_") && !IsBuiltin(name)
}

// UnsafeES1 returns why an otherwise legal GLSL ES 1.00 identifier must not
// be used, or false if it is safe.
func UnsafeES1(name string) (string, bool) {
	reason, ok := es1Unsafe[name]
	return reason, ok
}

// IsPrecision checks if a word is a precision qualifier.
func IsPrecision(name string) bool {
	return name == "lowp" || name == "mediump" || name == "highp"
}

func classifyWord(word string) TokenKind {
	if IsKeyword(word) {
		return TokenKeyword
	}
	if IsBuiltin(word) {
		return TokenBuiltin
	}
	return TokenIdent
}
