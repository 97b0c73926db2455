// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/muesli/termenv"
	"gopkg.in/yaml.v3"

	"github.com/gogpu/effectc"
	"github.com/gogpu/effectc/diag"
)

// encode serializes a build output as json or yaml.
func encode(out *effectc.BuildOutput, format string) ([]byte, error) {
	switch format {
	case "json", "":
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	case "yaml":
		return yaml.Marshal(out)
	}
	return nil, fmt.Errorf("unknown output format %q", format)
}

// writeOutput writes an encoded build to dir/<name>.<format>, or to w when
// dir is empty.
func writeOutput(w io.Writer, dir, name, format string, data []byte) error {
	if dir == "" {
		_, err := w.Write(data)
		return err
	}
	if format == "" {
		format = "json"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, name+"."+format), data, 0o644)
}

// reporter prints build errors, colored when the writer is a terminal.
type reporter struct {
	out *termenv.Output
}

func newReporter(w io.Writer) *reporter {
	return &reporter{out: termenv.NewOutput(w)}
}

func (r *reporter) error(err error) {
	red := r.out.Color("1")
	if d := diag.Wrap(err); d.Source != "" {
		head, rest, _ := strings.Cut(d.FormatWithContext(), "\n")
		fmt.Fprintln(r.out, r.out.String(head).Foreground(red).Bold())
		fmt.Fprint(r.out, rest)
		return
	}
	fmt.Fprintf(r.out, "%s %v\n", r.out.String("error:").Foreground(red).Bold(), err)
}

func (r *reporter) built(name string, hash uint32, path string) {
	ok := r.out.String("ok").Foreground(r.out.Color("2"))
	if path == "" {
		path = "stdout"
	}
	fmt.Fprintf(r.out, "%s %s %08x -> %s\n", ok, name, hash, path)
}
