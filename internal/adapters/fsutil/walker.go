// Package fsutil implements the file primitives the core consumes (component B):
// atomic write, link-or-copy, recursive walk, canonicalization, and executable lookup.
package fsutil

import (
	iofs "io/fs"
	"path/filepath"

	"github.com/buildcache/buildcache/internal/core/ports"
)

var _ ports.FileOps = (*FileOps)(nil)

// FileOps is the concrete ports.FileOps implementation.
type FileOps struct{}

// New creates a new FileOps.
func New() *FileOps {
	return &FileOps{}
}

// Walk recursively walks root, yielding FileInfo for every entry that does
// not match an ignore pattern. Always skips .git, matching the teacher's walker.
func (f *FileOps) Walk(root string, ignores []string, yield func(ports.FileInfo) bool) {
	_ = filepath.WalkDir(root, func(path string, d iofs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if skip := shouldSkipDir(d, ignores); skip != nil {
			return skip
		}

		info, statErr := d.Info()
		if statErr != nil {
			return nil //nolint:nilerr // best-effort walk, skip unreadable entries
		}

		fi := toFileInfo(path, info)
		if !yield(fi) {
			return filepath.SkipAll
		}
		return nil
	})
}

func shouldSkipDir(d iofs.DirEntry, ignores []string) error {
	name := d.Name()

	if d.IsDir() && (name == ".git" || name == ".jj") {
		return filepath.SkipDir
	}

	for _, ignore := range ignores {
		matched, _ := filepath.Match(ignore, name)
		if matched {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
	}
	return nil
}
