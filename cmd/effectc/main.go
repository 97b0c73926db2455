// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Command effectc compiles effect shaders to GLSL ES 1.00, GLSL ES 3.00
// and Vulkan GLSL with their reflection data.
//
// Usage:
//
//	effectc [options] [program ...]
//
// A program is "name=vertChunk:entry,fragChunk:entry" or
// "name=compute:chunk:entry". Programs from the config file are built
// when none is given on the command line.
//
// Examples:
//
//	effectc -chunks shaders standard=standard-vs:vert,standard-fs:frag
//	effectc -config effectc.toml -o build/effects -format yaml
//	effectc -watch -j 8
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/mitchellh/go-homedir"
	"golang.org/x/sync/errgroup"

	"github.com/gogpu/effectc"
	"github.com/gogpu/effectc/chunk"
	"github.com/gogpu/effectc/validate"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

// options are the resolved settings of one run.
type options struct {
	chunks    []string
	output    string
	format    string
	jobs      int
	warnError bool
	watch     bool
	validator string
	deprecate Deprecations
	programs  []program
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("effectc", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		configPath = fs.String("config", "", "TOML config file (default "+defaultConfig+" if present)")
		chunkDirs  = fs.String("chunks", "", "comma-separated chunk directories")
		output     = fs.String("o", "", "output directory (default: stdout)")
		format     = fs.String("format", "json", "output format: json or yaml")
		watch      = fs.Bool("watch", false, "rebuild when chunk files change")
		jobs       = fs.Int("j", runtime.NumCPU(), "number of parallel builds")
		warnError  = fs.Bool("warn-error", false, "treat warnings as errors")
		verbose    = fs.Bool("v", false, "debug logging")
	)
	fs.Usage = func() { usage(fs) }
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
	effectc.SetLogger(logger)
	defer effectc.SetLogger(nil)
	rep := newReporter(stderr)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		rep.error(err)
		return 1
	}
	opts := options{
		chunks:    cfg.Chunks,
		output:    cfg.Output,
		format:    cfg.Format,
		jobs:      cfg.Jobs,
		warnError: cfg.WarnError,
		watch:     *watch,
		validator: cfg.Validator,
		deprecate: cfg.Deprecations,
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "chunks":
			opts.chunks = splitList(*chunkDirs)
			for i, dir := range opts.chunks {
				opts.chunks[i] = expandPath(dir)
			}
		case "o":
			opts.output = expandPath(*output)
		case "format":
			opts.format = *format
		case "j":
			opts.jobs = *jobs
		case "warn-error":
			opts.warnError = *warnError
		}
	})
	if opts.format == "" {
		opts.format = *format
	}
	if opts.jobs <= 0 {
		opts.jobs = *jobs
	}

	if fs.NArg() > 0 {
		for _, arg := range fs.Args() {
			p, err := parseProgram(arg)
			if err != nil {
				rep.error(err)
				return 2
			}
			opts.programs = append(opts.programs, p)
		}
	} else if opts.programs, err = cfg.programs(); err != nil {
		rep.error(err)
		return 1
	}
	if len(opts.programs) == 0 {
		fmt.Fprintln(stderr, "Error: no programs to build")
		usage(fs)
		return 2
	}

	reg := chunk.NewRegistry()
	n, err := loadChunks(reg, opts.chunks)
	if err != nil {
		rep.error(err)
		return 1
	}
	for name, msg := range opts.deprecate.Chunks {
		reg.Deprecate(name, msg)
	}
	for name, msg := range opts.deprecate.Identifiers {
		reg.DeprecateIdentifier(name, msg)
	}
	logger.Debug("chunks loaded", "count", n, "dirs", strings.Join(opts.chunks, ","))

	b := &batch{opts: &opts, registry: reg, stdout: stdout, report: rep}
	if opts.validator != "" {
		c, err := validate.NewExternalCompiler(opts.validator)
		if err != nil {
			rep.error(err)
			return 1
		}
		b.compiler = c
	}

	failed := b.build(ctx)
	if !opts.watch {
		if failed > 0 {
			return 1
		}
		return 0
	}
	if err := b.watch(ctx, logger); err != nil && !errors.Is(err, context.Canceled) {
		rep.error(err)
		return 1
	}
	return 0
}

// batch builds a set of programs against one registry.
type batch struct {
	opts     *options
	registry *chunk.Registry
	compiler validate.Compiler
	stdout   io.Writer
	report   *reporter
}

type result struct {
	out  *effectc.BuildOutput
	data []byte
	err  error
}

// build compiles every program, at most opts.jobs at a time, and writes
// the outputs in program order. It returns the number of failed programs.
func (b *batch) build(ctx context.Context) int {
	results := make([]result, len(b.opts.programs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(b.opts.jobs)
	for i, p := range b.opts.programs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			out, err := effectc.BuildContext(ctx, p.name, p.kind, p.stages, b.buildOptions())
			if err != nil {
				results[i].err = err
				return nil
			}
			data, err := encode(out, b.opts.format)
			results[i] = result{out: out, data: data, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		b.report.error(err)
		return len(results)
	}

	failed := 0
	for i, r := range results {
		name := b.opts.programs[i].name
		if r.err == nil {
			r.err = writeOutput(b.stdout, b.opts.output, name, b.opts.format, r.data)
		}
		if r.err != nil {
			b.report.error(r.err)
			failed++
			continue
		}
		path := ""
		if b.opts.output != "" {
			path = filepath.Join(b.opts.output, name+"."+b.opts.format)
		}
		b.report.built(name, r.out.Hash, path)
	}
	return failed
}

func (b *batch) buildOptions() effectc.Options {
	opts := effectc.DefaultOptions()
	opts.Registry = b.registry
	opts.ThrowOnWarning = b.opts.warnError
	opts.Compiler = b.compiler
	return opts
}

// expandPath expands a leading ~. Paths that cannot be expanded are kept.
func expandPath(p string) string {
	if expanded, err := homedir.Expand(p); err == nil {
		return expanded
	}
	return p
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func usage(fs *flag.FlagSet) {
	w := fs.Output()
	fmt.Fprintf(w, "Usage: effectc [options] [program ...]\n\n")
	fmt.Fprintf(w, "Options:\n")
	fs.PrintDefaults()
	fmt.Fprintf(w, "\nPrograms:\n")
	fmt.Fprintf(w, "  name=vertChunk:entry,fragChunk:entry   graphics effect\n")
	fmt.Fprintf(w, "  name=compute:chunk:entry               compute effect\n")
	fmt.Fprintf(w, "\nExamples:\n")
	fmt.Fprintf(w, "  effectc -chunks shaders std=standard-vs:vert,standard-fs:frag\n")
	fmt.Fprintf(w, "  effectc -config effectc.toml -o build -format yaml\n")
}
