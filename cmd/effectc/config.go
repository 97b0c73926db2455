// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/mitchellh/go-homedir"
	"github.com/pelletier/go-toml/v2"
)

// defaultConfig is read when -config is not given and the file exists.
const defaultConfig = "effectc.toml"

// Config is the TOML configuration file.
type Config struct {
	Chunks    []string `toml:"chunks"`
	Output    string   `toml:"output"`
	Format    string   `toml:"format"`
	Jobs      int      `toml:"jobs"`
	WarnError bool     `toml:"warn-error"`

	// Validator is the command line of the strict GLSL ES 1.00 compile.
	// Empty disables it.
	Validator string `toml:"validator"`

	Deprecations Deprecations    `toml:"deprecations"`
	Programs     []ProgramConfig `toml:"program"`
}

// Deprecations map chunk and identifier names to the message reported
// when they are used.
type Deprecations struct {
	Chunks      map[string]string `toml:"chunks"`
	Identifiers map[string]string `toml:"identifiers"`
}

// ProgramConfig is one effect to build. Either Compute or the vertex and
// fragment pair is set; stage names have the form "chunk:entry".
type ProgramConfig struct {
	Name     string `toml:"name"`
	Vertex   string `toml:"vertex"`
	Fragment string `toml:"fragment"`
	Compute  string `toml:"compute"`
}

// loadConfig reads a config file. A missing default file yields an empty
// config.
func loadConfig(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = defaultConfig
	}
	path, err := homedir.Expand(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := toml.Unmarshal(data, cfg); err != nil {
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			row, col := derr.Position()
			return nil, fmt.Errorf("%s:%d:%d: %v", path, row, col, derr)
		}
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if err := cfg.expandPaths(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) expandPaths() error {
	for i, dir := range c.Chunks {
		p, err := homedir.Expand(dir)
		if err != nil {
			return err
		}
		c.Chunks[i] = p
	}
	if c.Output != "" {
		p, err := homedir.Expand(c.Output)
		if err != nil {
			return err
		}
		c.Output = p
	}
	return nil
}

// programs converts the configured programs.
func (c *Config) programs() ([]program, error) {
	out := make([]program, 0, len(c.Programs))
	for _, pc := range c.Programs {
		p, err := pc.program()
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}
