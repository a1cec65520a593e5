package ports

import "io/fs"

// FileInfo is the subset of file metadata the core needs from a walk:
// enough to drive hashing, LRU eviction, and atomic replay decisions.
type FileInfo struct {
	Path  string
	Size  int64
	Mtime int64
	Atime int64
	Inode uint64
	IsDir bool
}

// FileOps groups the file primitives the core consumes (component B):
// atomic write, link-or-copy, walk, canonicalization, and executable lookup.
//
//go:generate go run go.uber.org/mock/mockgen -source=fileops.go -destination=mocks/mock_fileops.go -package=mocks
type FileOps interface {
	// AtomicWrite writes data to path via a temp file in the same directory
	// followed by rename, so readers never observe a partial write.
	AtomicWrite(path string, data []byte, perm fs.FileMode) error

	// LinkOrCopy materializes src at dst, trying a hard link first and
	// falling back to a byte copy on cross-device or permission failure.
	LinkOrCopy(src, dst string) error

	// Walk recursively walks root, yielding FileInfo for every entry that
	// does not match an ignore pattern.
	Walk(root string, ignores []string, yield func(FileInfo) bool)

	// ResolvePath returns the canonicalized real path, following symlinks.
	ResolvePath(path string) (string, error)

	// FindExecutable searches the host's PATH-like search path for name,
	// honoring host-specific extension conventions, skipping any candidate
	// whose resolved path equals exclude (so a symlink front end can avoid
	// finding itself).
	FindExecutable(name string, pathEnv string, exclude string) (string, error)
}

// ScopedTempPath is a temporary path whose Close removes it; errors during
// removal are swallowed and logged, never propagated (best-effort cleanup).
type ScopedTempPath interface {
	Path() string
	Close()
}
