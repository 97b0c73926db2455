// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package validate checks GLSL ES 1.00 output before it is shipped to
// legacy drivers.
//
// Check runs the static checks: reserved words, default precision and a
// grammar pass over the source with preprocessor lines removed. A Compiler
// performs the optional strict pass that compiles and links a vertex and
// fragment pair with a real GLSL front end.
package validate

import (
	"github.com/gogpu/effectc/diag"
	"github.com/gogpu/effectc/glsl"
	"github.com/gogpu/effectc/reflection"
)

// Check validates ES 1.00 code for stage. Reserved words and syntax
// errors are fatal; precision problems are reported to sink.
func Check(code string, stage reflection.Stage, sink diag.Sink) error {
	tokens, err := glsl.Tokenize(code)
	if err != nil {
		return err
	}
	if err := ReservedWords(tokens); err != nil {
		return err
	}
	Precision(tokens, stage, sink)
	return Syntax(tokens)
}

// ReservedWords rejects identifiers that GLSL ES 1.00 reserves or that
// break known drivers. Member names after '.' are not checked.
func ReservedWords(tokens []glsl.Token) error {
	prev := glsl.Token{}
	for _, tok := range tokens {
		if tok.IsTrivia() {
			continue
		}
		if tok.IsWord() && !prev.IsOp(".") {
			if glsl.IsReservedES1(tok.Text) {
				return diag.Errorf(tok.Line, "'%s' is a reserved word in GLSL ES 1.00", tok.Text)
			}
			if reason, ok := glsl.UnsafeES1(tok.Text); ok {
				return diag.Errorf(tok.Line, "%s", reason)
			}
		}
		prev = tok
	}
	return nil
}

// Precision warns when a fragment shader has no default float precision
// and when a precision statement comes before an #extension directive.
// The missing precision is reported at the first float typed declaration.
func Precision(tokens []glsl.Token, stage reflection.Stage, sink diag.Sink) {
	firstPrecision, firstFloat := 0, 0
	floatPrecision := false
	sig := glsl.Significant(tokens)
	for i, tok := range sig {
		switch {
		case tok.Kind == glsl.TokenPreprocessor:
			d, _ := glsl.ParseDirective(tok.Text)
			if d.Name == "extension" && firstPrecision > 0 {
				sink.Report(diag.Warningf(tok.Line,
					"#extension must come before the precision statement on line %d", firstPrecision))
			}
		case tok.Is(glsl.TokenKeyword, "precision"):
			if firstPrecision == 0 {
				firstPrecision = tok.Line
			}
			if i+2 < len(sig) && sig[i+2].Is(glsl.TokenKeyword, "float") {
				floatPrecision = true
			}
		case firstFloat == 0 && isFloatType(tok):
			if i < 2 || !sig[i-2].Is(glsl.TokenKeyword, "precision") {
				firstFloat = tok.Line
			}
		}
	}
	if stage == reflection.StageFragment && !floatPrecision {
		sink.Report(diag.Warningf(firstFloat, "fragment shader declares no default precision for float"))
	}
}

// isFloatType reports whether tok names a float scalar, vector or matrix.
func isFloatType(tok glsl.Token) bool {
	if !tok.IsWord() {
		return false
	}
	t, ok := glsl.LookupType(tok.Text)
	return ok && !t.IsOpaque() && t.Scalar == glsl.ScalarFloat
}
