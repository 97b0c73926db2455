// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package glsl

import (
	"fmt"
)

// Version represents a GLSL version.
type Version struct {
	Major uint8
	Minor uint8
	ES    bool // true for GLSL ES (OpenGL ES / WebGL)
}

// Target dialect versions.
var (
	VersionES100 = Version{Major: 1, Minor: 0, ES: true}  // ES 2.0 / WebGL 1.0
	VersionES300 = Version{Major: 3, Minor: 0, ES: true}  // ES 3.0 / WebGL 2.0
	VersionES310 = Version{Major: 3, Minor: 10, ES: true} // ES 3.1 (storage buffers, images)
	Version450   = Version{Major: 4, Minor: 50, ES: false}
	Version460   = Version{Major: 4, Minor: 60, ES: false} // Vulkan
)

// String returns the version as a GLSL version directive value.
func (v Version) String() string {
	if v.ES && v.Number() > 100 {
		return fmt.Sprintf("%d%02d es", v.Major, v.Minor)
	}
	return v.VersionNumber()
}

// VersionNumber returns just the numeric version (e.g., "460", "300").
func (v Version) VersionNumber() string {
	return fmt.Sprintf("%d%02d", v.Major, v.Minor)
}

// Number returns the value __VERSION__ expands to for this version.
func (v Version) Number() int {
	return int(v.Major)*100 + int(v.Minor)
}

// Directive returns the #version line for this version.
func (v Version) Directive() string {
	return "#version " + v.String()
}

// SupportsLayoutBinding returns true if layout(binding = N) and friends are
// legal, which is GLSL ES 3.10 and desktop 4.20 onwards.
func (v Version) SupportsLayoutBinding() bool {
	return v.Number() >= 310
}

// VersionFromNumber converts a __VERSION__ value into a Version.
// 100 and 300 map to the ES dialects, everything else to desktop GLSL.
func VersionFromNumber(n int) Version {
	v := Version{Major: uint8(n / 100), Minor: uint8(n % 100)} //nolint:gosec // G115: GLSL versions fit in a byte
	v.ES = n == 100 || n == 300 || n == 310 || n == 320
	return v
}

// Extension is a GLSL extension required by generated code. Condition is
// a preprocessor expression (usually over __VERSION__) deciding whether the
// directive is emitted for a given target; empty means always.
type Extension struct {
	Name      string
	Behavior  string // "require", "enable" or "warn"
	Condition string
}

// Directive returns the #extension line.
func (e Extension) Directive() string {
	behavior := e.Behavior
	if behavior == "" {
		behavior = "require"
	}
	return fmt.Sprintf("#extension %s: %s", e.Name, behavior)
}
