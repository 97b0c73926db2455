// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package glsl provides the lexical layer shared by every effectc stage.
//
// It contains the GLSL tokenizer, an explicit cursor over the resulting
// immutable token sequence, the GLSL type table used for reflection and
// std140 layout checks, the reserved-word tables for each dialect, and
// the dialect versions the compiler targets:
//
//   - GLSL ES 1.00: WebGL 1.0, legacy mobile OpenGL ES 2.0
//   - GLSL ES 3.00: WebGL 2.0, OpenGL ES 3.0
//   - GLSL 4.60: Vulkan (SPIR-V oriented)
//
// # Tokens
//
// The tokenizer never discards input: whitespace and comments are kept
// as tokens so that stages can rewrite source text by byte offset.
// Preprocessor directives, including their backslash continuations, are
// a single [TokenPreprocessor] token.
//
//	tokens, err := glsl.NewLexer(source).Tokenize()
//	cur := glsl.NewCursor(tokens)
//	for !cur.Done() {
//	    tok := cur.NextSignificant()
//	    ...
//	}
package glsl
