// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package reflection extracts material-facing metadata from effect shader
// source: the preprocessor defines authors can toggle, and every resource
// the shader binds (uniform blocks, samplers, textures, images, storage
// buffers, subpass inputs, vertex attributes, varyings and fragment
// outputs).
//
// Extraction runs on tokens. ExtractDefines walks the preprocessor
// directives and records which macros gate each source line. ExtractParams
// then scans top-level declarations, tags each resource with the gating
// macros of its line and the rate and sampling pragmas naming it, and
// checks the std140 layout of uniform blocks.
package reflection
