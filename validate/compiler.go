// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package validate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/mattn/go-shellwords"

	"github.com/gogpu/effectc/reflection"
)

// DefaultCommand is the reference compiler invocation that links a
// vertex and a fragment shader.
const DefaultCommand = "glslangValidator -l"

// Compiler compiles and links a GLSL ES 1.00 vertex and fragment pair.
// The error carries the compiler's diagnostics verbatim.
type Compiler interface {
	Link(ctx context.Context, vert, frag string) error
}

// ExternalCompiler runs a command line compiler. The shader files are
// appended to the command as name.vert and name.frag.
type ExternalCompiler struct {
	Bin  string
	Args []string
	Dir  string // parent of the temporary work directory; empty means os.TempDir
}

// NewExternalCompiler parses a shell-style command line. An empty command
// selects DefaultCommand.
func NewExternalCompiler(command string) (*ExternalCompiler, error) {
	if strings.TrimSpace(command) == "" {
		command = DefaultCommand
	}
	args, err := shellwords.Parse(command)
	if err != nil {
		return nil, fmt.Errorf("validate: parse compiler command %q: %w", command, err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("validate: compiler command %q is empty", command)
	}
	return &ExternalCompiler{Bin: args[0], Args: args[1:]}, nil
}

// LinkError is a failed compile or link.
type LinkError struct {
	Args   []string
	Output string
	Err    error
}

func (e *LinkError) Error() string {
	return fmt.Sprintf("%s\nfailed to run %v: %v", strings.TrimSpace(e.Output), e.Args, e.Err)
}

func (e *LinkError) Unwrap() error {
	return e.Err
}

// Link writes both shaders to a temporary directory and runs the compiler
// on them.
func (c *ExternalCompiler) Link(ctx context.Context, vert, frag string) error {
	dir, err := os.MkdirTemp(c.Dir, "effectc-")
	if err != nil {
		return err
	}
	defer os.RemoveAll(dir)

	vertPath := filepath.Join(dir, "shader.vert")
	fragPath := filepath.Join(dir, "shader.frag")
	if err := errors.Join(
		os.WriteFile(vertPath, []byte(vert), 0o600),
		os.WriteFile(fragPath, []byte(frag), 0o600),
	); err != nil {
		return err
	}

	args := append(slices.Clone(c.Args), vertPath, fragPath)
	cmd := exec.CommandContext(ctx, c.Bin, args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		return &LinkError{Args: cmd.Args, Output: string(out), Err: err}
	}
	return nil
}

// StrictSource prepares ES 1.00 code for a standalone compile: it adds the
// version directive and defines every switch to its most restrictive
// value. Booleans are off, numbers take the low end of their range,
// strings their first option and constants their default.
func StrictSource(code string, defines []*reflection.Define) string {
	var sb strings.Builder
	sb.WriteString("#version 100\n")
	for _, d := range defines {
		if v, ok := restrictiveValue(d); ok {
			fmt.Fprintf(&sb, "#define %s %s\n", d.Name, v)
		}
	}
	sb.WriteString(code)
	return sb.String()
}

func restrictiveValue(d *reflection.Define) (string, bool) {
	switch d.Type {
	case reflection.DefineBoolean:
		return "0", true
	case reflection.DefineNumber:
		r := d.Range
		if len(r) == 0 {
			r = reflection.DefaultNumberRange
		}
		return strconv.FormatFloat(r[0], 'f', -1, 64), true
	case reflection.DefineString:
		if len(d.Options) > 0 {
			return d.Options[0], true
		}
	case reflection.DefineConstant:
		if d.Default != nil {
			return fmt.Sprint(d.Default), true
		}
	}
	return "", false
}
