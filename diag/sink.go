// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package diag

import (
	"context"
	"log/slog"
)

// Sink receives non-fatal diagnostics from compiler stages.
type Sink interface {
	Report(d *Diagnostic)
}

type discard struct{}

func (discard) Report(*Diagnostic) {}

// Discard is a Sink that drops every diagnostic.
var Discard Sink = discard{}

// Collector is the reporting sink of one build. It is not safe for
// concurrent use; every build owns its collector.
type Collector struct {
	Effect         string
	ThrowOnWarning bool

	shader string
	logger *slog.Logger
	diags  Diagnostics
	fatal  *Diagnostic
}

// NewCollector creates a collector for the named effect. A nil logger
// disables log output.
func NewCollector(effect string, logger *slog.Logger, throwOnWarning bool) *Collector {
	return &Collector{Effect: effect, ThrowOnWarning: throwOnWarning, logger: logger}
}

// SetShader sets the shader name stamped on subsequent diagnostics.
func (c *Collector) SetShader(name string) {
	c.shader = name
}

// Report records d. Warnings are logged; with ThrowOnWarning the first
// warning becomes the collector's error.
func (c *Collector) Report(d *Diagnostic) {
	c.stamp(d)
	c.diags.Add(d)
	if c.logger != nil && d.Severity == SeverityWarning {
		c.logger.LogAttrs(context.Background(), slog.LevelWarn, d.Message,
			slog.String("effect", d.Effect),
			slog.String("shader", d.Shader),
			slog.Int("line", d.Line))
	}
	if c.fatal == nil && (d.Severity == SeverityError || c.ThrowOnWarning) {
		promoted := *d
		promoted.Severity = SeverityError
		c.fatal = &promoted
	}
}

// Fail stamps a stage error with the effect and shader names, records it
// and returns it. A nil err returns nil.
func (c *Collector) Fail(err error) error {
	if err == nil {
		return nil
	}
	d := Wrap(err)
	c.stamp(d)
	c.diags.Add(d)
	return d
}

// Err returns the first error reported to the collector, including
// warnings promoted by ThrowOnWarning.
func (c *Collector) Err() error {
	if c.fatal == nil {
		return nil
	}
	return c.fatal
}

// Diagnostics returns everything recorded so far.
func (c *Collector) Diagnostics() Diagnostics {
	return c.diags
}

func (c *Collector) stamp(d *Diagnostic) {
	if d.Effect == "" {
		d.Effect = c.Effect
	}
	if d.Shader == "" {
		d.Shader = c.shader
	}
}
