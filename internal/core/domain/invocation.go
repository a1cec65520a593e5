// Package domain contains the core domain model for the cache engine and invocation pipeline.
package domain

import (
	"path/filepath"
	"strings"
)

// Invocation is the unit of work the front end intercepts: a tool path, its
// arguments, the environment it ran in, and the directory it ran from.
type Invocation struct {
	// Executable is the path the caller requested, before any PATH search.
	Executable string

	// Args is the ordered argument sequence, excluding the executable itself.
	Args []string

	// Env is the invoking process's environment, "KEY=VALUE" pairs.
	Env []string

	// WorkDir is the working directory the invocation ran from.
	WorkDir string
}

// RewritePath rewrites an absolute path under baseDir to a relative one, so
// a cache populated from one checkout is reusable from another at a
// different absolute location (ccache's base_dir). baseDir == "" disables
// rewriting entirely, and a path outside baseDir is returned unchanged.
func RewritePath(path, baseDir string) string {
	if baseDir == "" || !filepath.IsAbs(path) {
		return path
	}
	rel, err := filepath.Rel(baseDir, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return rel
}

// EnvMap parses Env into a map, last occurrence of a key wins.
func (i Invocation) EnvMap() map[string]string {
	m := make(map[string]string, len(i.Env))
	for _, e := range i.Env {
		for j := 0; j < len(e); j++ {
			if e[j] == '=' {
				m[e[:j]] = e[j+1:]
				break
			}
		}
	}
	return m
}

// AccuracyLevel is the configured trade-off between cache-hit rate and
// fidelity of debug/coverage information. The level is reported by the
// config command and selects which hit counter RecordHit bumps; it does not
// change how keys are computed or how arguments are canonicalized.
type AccuracyLevel int

const (
	// AccuracySloppy is the "SLOPPY" level; its hits count as direct hits.
	AccuracySloppy AccuracyLevel = iota
	// AccuracyDefault is the "DEFAULT" level; its hits count as direct hits.
	AccuracyDefault
	// AccuracyStrict is the "STRICT" level; its hits count as preprocessed hits.
	AccuracyStrict
)

// ParseAccuracyLevel parses a config string into an AccuracyLevel.
// Unknown values fall back to AccuracyDefault.
func ParseAccuracyLevel(s string) AccuracyLevel {
	switch s {
	case "SLOPPY":
		return AccuracySloppy
	case "STRICT":
		return AccuracyStrict
	default:
		return AccuracyDefault
	}
}

func (a AccuracyLevel) String() string {
	switch a {
	case AccuracySloppy:
		return "SLOPPY"
	case AccuracyStrict:
		return "STRICT"
	default:
		return "DEFAULT"
	}
}
