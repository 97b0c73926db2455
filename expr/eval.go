// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package expr

import (
	"errors"
	"fmt"
	"math"
)

// Errors returned by evaluation.
var (
	ErrUnknownIdentifier = errors.New("unknown identifier")
	ErrDivisionByZero    = errors.New("division by zero")
)

// Env resolves identifiers during evaluation.
type Env interface {
	Lookup(name string) (Value, bool)
}

// Map is an Env backed by a map.
type Map map[string]Value

// Lookup implements Env.
func (m Map) Lookup(name string) (Value, bool) {
	v, ok := m[name]
	return v, ok
}

// EnvFunc adapts a function to Env.
type EnvFunc func(name string) (Value, bool)

// Lookup implements Env.
func (f EnvFunc) Lookup(name string) (Value, bool) {
	return f(name)
}

// Eval parses and evaluates source. Every identifier must resolve through
// env, which may be nil.
func Eval(source string, env Env) (Value, error) {
	n, err := Parse(source)
	if err != nil {
		return Value{}, err
	}
	return EvalNode(n, env)
}

// EvalNode evaluates a parsed expression.
func EvalNode(n Node, env Env) (Value, error) {
	e := evaluator{env: env}
	v, known, err := e.eval(n)
	if err != nil {
		return Value{}, err
	}
	if !known {
		return Value{}, fmt.Errorf("%w '%s'", ErrUnknownIdentifier, e.unknown)
	}
	return v, nil
}

// Partial evaluates n with three-valued logic: identifiers env cannot
// resolve are unknown, and unknown operands make the result unknown unless
// && or || is decided by the other side. The second result reports whether
// the value is known.
func Partial(n Node, env Env) (Value, bool, error) {
	e := evaluator{env: env}
	return e.eval(n)
}

// Identifiers returns the identifiers referenced by n in first-use order,
// including names tested with defined().
func Identifiers(n Node) []string {
	var names []string
	seen := make(map[string]bool)
	var walk func(Node)
	walk = func(n Node) {
		switch n := n.(type) {
		case *Ident:
			if !seen[n.Name] {
				seen[n.Name] = true
				names = append(names, n.Name)
			}
		case *Defined:
			if !seen[n.Name] {
				seen[n.Name] = true
				names = append(names, n.Name)
			}
		case *Unary:
			walk(n.X)
		case *Binary:
			walk(n.Left)
			walk(n.Right)
		}
	}
	walk(n)
	return names
}

type evaluator struct {
	env     Env
	unknown string
}

func (e *evaluator) lookup(name string) (Value, bool) {
	if e.env == nil {
		return Value{}, false
	}
	return e.env.Lookup(name)
}

func (e *evaluator) eval(n Node) (Value, bool, error) {
	switch n := n.(type) {
	case *Literal:
		return n.Value, true, nil

	case *Ident:
		v, ok := e.lookup(n.Name)
		if !ok && e.unknown == "" {
			e.unknown = n.Name
		}
		return v, ok, nil

	case *Defined:
		if _, ok := e.lookup(n.Name); ok {
			return Bool(true), true, nil
		}
		if e.unknown == "" {
			e.unknown = n.Name
		}
		return Value{}, false, nil

	case *Unary:
		x, known, err := e.eval(n.X)
		if err != nil || !known {
			return Value{}, false, err
		}
		return unary(n.Op, x), true, nil

	case *Binary:
		return e.binary(n)
	}
	return Value{}, false, fmt.Errorf("unsupported expression node %T", n)
}

func (e *evaluator) binary(n *Binary) (Value, bool, error) {
	l, lk, err := e.eval(n.Left)
	if err != nil {
		return Value{}, false, err
	}
	r, rk, err := e.eval(n.Right)
	if err != nil {
		return Value{}, false, err
	}

	switch n.Op {
	case "&&":
		if (lk && !l.Truthy()) || (rk && !r.Truthy()) {
			return Bool(false), true, nil
		}
		if lk && rk {
			return Bool(true), true, nil
		}
		return Value{}, false, nil
	case "||":
		if (lk && l.Truthy()) || (rk && r.Truthy()) {
			return Bool(true), true, nil
		}
		if lk && rk {
			return Bool(false), true, nil
		}
		return Value{}, false, nil
	}

	if !lk || !rk {
		return Value{}, false, nil
	}
	v, err := arith(n.Op, l, r)
	if err != nil {
		return Value{}, false, err
	}
	return v, true, nil
}

func unary(op string, x Value) Value {
	switch op {
	case "!":
		return Bool(!x.Truthy())
	case "-":
		if x.Kind == KindFloat {
			return Float(-x.Float)
		}
		return Int(-x.Int)
	default:
		if x.Kind == KindBool {
			return Int(x.Int)
		}
		return x
	}
}

func arith(op string, l, r Value) (Value, error) {
	if l.Kind == KindFloat || r.Kind == KindFloat {
		a, b := l.AsFloat(), r.AsFloat()
		switch op {
		case "+":
			return Float(a + b), nil
		case "-":
			return Float(a - b), nil
		case "*":
			return Float(a * b), nil
		case "/":
			if b == 0 {
				return Value{}, ErrDivisionByZero
			}
			return Float(a / b), nil
		case "%":
			if b == 0 {
				return Value{}, ErrDivisionByZero
			}
			return Float(math.Mod(a, b)), nil
		}
		return compare(op, a < b, a == b), nil
	}

	a, b := l.Int, r.Int
	switch op {
	case "+":
		return Int(a + b), nil
	case "-":
		return Int(a - b), nil
	case "*":
		return Int(a * b), nil
	case "/":
		if b == 0 {
			return Value{}, ErrDivisionByZero
		}
		return Int(a / b), nil
	case "%":
		if b == 0 {
			return Value{}, ErrDivisionByZero
		}
		return Int(a % b), nil
	}
	return compare(op, a < b, a == b), nil
}

func compare(op string, less, equal bool) Value {
	switch op {
	case "<":
		return Bool(less)
	case "<=":
		return Bool(less || equal)
	case ">":
		return Bool(!less && !equal)
	case ">=":
		return Bool(!less)
	case "==":
		return Bool(equal)
	default:
		return Bool(!equal)
	}
}
