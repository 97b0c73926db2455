// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package chunk

import (
	"strings"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"

	"github.com/gogpu/effectc/diag"
)

// SearchFunc looks for a chunk that is not registered. It receives the
// requested name followed by its alternative paths and returns the content
// of the first one found.
type SearchFunc func(names []string) (name, content string, ok bool)

// Options configure include resolution.
type Options struct {
	Search           SearchFunc
	AlternativePaths func(name string) []string
}

// suggestThreshold is the minimum similarity for a "did you mean" hint.
const suggestThreshold = 0.6

// Resolve expands every #include directive in source, recursively. Each
// chunk is expanded at most once per call; repeated includes are dropped.
// Text before and after a directive on its line is applied to every line of
// the expanded chunk.
func (r *Registry) Resolve(source string, opts Options) (string, error) {
	res := resolver{registry: r, opts: opts, included: make(map[string]bool)}
	return res.expand(source)
}

type resolver struct {
	registry *Registry
	opts     Options
	included map[string]bool
}

func (res *resolver) expand(source string) (string, error) {
	if !strings.Contains(source, "#include") {
		return source, nil
	}

	lines := strings.Split(source, "\n")
	out := make([]string, 0, len(lines))
	for i, line := range lines {
		inc, ok := ParseInclude(line)
		if !ok {
			out = append(out, line)
			continue
		}

		if res.included[inc.Name] {
			if rest := inc.Prefix + inc.Suffix; strings.TrimSpace(rest) != "" {
				out = append(out, rest)
			}
			continue
		}

		content, err := res.load(inc.Name, i+1)
		if err != nil {
			return "", err
		}
		res.included[inc.Name] = true

		expanded, err := res.expand(content)
		if err != nil {
			return "", err
		}
		for _, l := range strings.Split(expanded, "\n") {
			out = append(out, inc.Prefix+l+inc.Suffix)
		}
	}
	return strings.Join(out, "\n"), nil
}

func (res *resolver) load(name string, line int) (string, error) {
	if msg, ok := res.registry.deprecation(name); ok {
		return "", diag.Errorf(line, "%w: '%s': %s", ErrDeprecated, name, msg)
	}
	if c, ok := res.registry.Lookup(name); ok {
		return c.Content, nil
	}

	if res.opts.Search != nil {
		names := []string{name}
		if res.opts.AlternativePaths != nil {
			names = append(names, res.opts.AlternativePaths(name)...)
		}
		if _, content, ok := res.opts.Search(names); ok {
			res.registry.Register(name, content)
			c, _ := res.registry.Lookup(name)
			return c.Content, nil
		}
	}

	if hint := res.registry.suggest(name); hint != "" {
		return "", diag.Errorf(line, "can not resolve '%s', did you mean '%s'?: %w", name, hint, ErrNotFound)
	}
	return "", diag.Errorf(line, "can not resolve '%s': %w", name, ErrNotFound)
}

// suggest returns the registered name most similar to name, if any is close.
func (r *Registry) suggest(name string) string {
	metric := metrics.NewLevenshtein()
	best, bestScore := "", suggestThreshold
	for _, candidate := range r.Names() {
		if score := strutil.Similarity(name, candidate, metric); score >= bestScore {
			best, bestScore = candidate, score
		}
	}
	return best
}

// Include is a parsed #include directive.
type Include struct {
	Name   string // chunk name, .chunk suffix removed
	Prefix string // text before the directive on its line
	Suffix string // text after the directive on its line
}

// ParseInclude finds an #include directive in a single line. Directives
// after a line comment are ignored.
func ParseInclude(line string) (Include, bool) {
	idx := strings.Index(line, "#include")
	if idx < 0 {
		return Include{}, false
	}
	if c := strings.Index(line, "//"); c >= 0 && c < idx {
		return Include{}, false
	}

	rest := line[idx+len("#include"):]
	trimmed := strings.TrimLeft(rest, " \t")
	if trimmed == "" {
		return Include{}, false
	}
	var closer byte
	switch trimmed[0] {
	case '<':
		closer = '>'
	case '"':
		closer = '"'
	default:
		return Include{}, false
	}
	end := strings.IndexByte(trimmed[1:], closer)
	if end < 0 {
		return Include{}, false
	}
	name := normalizeName(trimmed[1 : end+1])
	if name == "" {
		return Include{}, false
	}
	return Include{
		Name:   name,
		Prefix: line[:idx],
		Suffix: trimmed[end+2:],
	}, true
}
