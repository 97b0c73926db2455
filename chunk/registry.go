// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package chunk stores reusable shader source fragments and expands
// #include directives that reference them.
//
// A Registry is safe for concurrent reads. Registration takes a write lock,
// so parallel builds should either fill a shared registry before they start
// or use a registry each.
package chunk

import (
	"errors"
	"slices"
	"strings"
	"sync"
)

// Errors returned by Resolve, wrapped with the offending chunk name.
var (
	ErrNotFound   = errors.New("chunk not found")
	ErrDeprecated = errors.New("chunk is deprecated")
)

// Chunk is a named source fragment.
type Chunk struct {
	Name        string
	Content     string
	Deprecation string // non-empty if including the chunk is an error
}

// Registry maps chunk names to chunks.
type Registry struct {
	mu               sync.RWMutex
	chunks           map[string]*Chunk
	deprecatedChunks map[string]string
	deprecatedIdents map[string]string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		chunks:           make(map[string]*Chunk),
		deprecatedChunks: make(map[string]string),
		deprecatedIdents: make(map[string]string),
	}
}

var defaultRegistry = NewRegistry()

// Default returns the process-wide registry.
func Default() *Registry {
	return defaultRegistry
}

// Register adds or replaces a chunk. The content is cleaned: line endings
// are normalized and trailing whitespace is trimmed from every line.
func (r *Registry) Register(name, content string) {
	name = normalizeName(name)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chunks[name] = &Chunk{Name: name, Content: Clean(content)}
}

// Deprecate marks a chunk name as deprecated. Including it fails with
// message, whether or not the chunk is registered.
func (r *Registry) Deprecate(name, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deprecatedChunks[normalizeName(name)] = message
}

// DeprecateIdentifier marks an identifier whose use in shader code is an error.
func (r *Registry) DeprecateIdentifier(name, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deprecatedIdents[name] = message
}

// IdentifierDeprecation returns the deprecation message for an identifier.
func (r *Registry) IdentifierDeprecation(name string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	msg, ok := r.deprecatedIdents[name]
	return msg, ok
}

// HasDeprecatedIdentifiers reports whether any identifier is deprecated.
func (r *Registry) HasDeprecatedIdentifiers() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.deprecatedIdents) > 0
}

// Lookup returns a copy of the named chunk, with its deprecation note.
func (r *Registry) Lookup(name string) (Chunk, bool) {
	name = normalizeName(name)
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.chunks[name]
	if !ok {
		return Chunk{}, false
	}
	out := *c
	out.Deprecation = r.deprecatedChunks[name]
	return out, true
}

// Names returns the registered chunk names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.chunks))
	for name := range r.chunks {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Len returns the number of registered chunks.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.chunks)
}

func (r *Registry) deprecation(name string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	msg, ok := r.deprecatedChunks[name]
	return msg, ok
}

// Clean normalizes line endings and trims trailing whitespace from each line.
func Clean(content string) string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t\r")
	}
	return strings.TrimRight(strings.Join(lines, "\n"), "\n")
}

func normalizeName(name string) string {
	return strings.TrimSuffix(strings.TrimSpace(name), ".chunk")
}
