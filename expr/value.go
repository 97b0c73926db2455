// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package expr

import (
	"strconv"
)

// Kind is the type of a Value.
type Kind uint8

const (
	KindInt Kind = iota
	KindFloat
	KindBool
)

// Value is the result of evaluating an expression.
type Value struct {
	Kind  Kind
	Int   int64
	Float float64
}

// Int returns an integer value.
func Int(v int64) Value { return Value{Kind: KindInt, Int: v} }

// Float returns a floating-point value.
func Float(v float64) Value { return Value{Kind: KindFloat, Float: v} }

// Bool returns a boolean value.
func Bool(b bool) Value {
	if b {
		return Value{Kind: KindBool, Int: 1}
	}
	return Value{Kind: KindBool}
}

// Truthy reports whether the value is non-zero.
func (v Value) Truthy() bool {
	if v.Kind == KindFloat {
		return v.Float != 0
	}
	return v.Int != 0
}

// AsInt converts the value to an integer, truncating floats.
func (v Value) AsInt() int64 {
	if v.Kind == KindFloat {
		return int64(v.Float)
	}
	return v.Int
}

// AsFloat converts the value to a float.
func (v Value) AsFloat() float64 {
	if v.Kind == KindFloat {
		return v.Float
	}
	return float64(v.Int)
}

// String formats the value as GLSL source.
func (v Value) String() string {
	switch v.Kind {
	case KindFloat:
		return strconv.FormatFloat(v.Float, 'g', -1, 64)
	case KindBool:
		if v.Int != 0 {
			return "true"
		}
		return "false"
	default:
		return strconv.FormatInt(v.Int, 10)
	}
}
