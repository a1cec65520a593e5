package fsutil

import (
	"os"
	"path/filepath"

	"github.com/buildcache/buildcache/internal/core/ports"
	"github.com/google/uuid"
	"go.trai.ch/zerr"
)

var _ ports.ScopedTempPath = (*scopedTempPath)(nil)

// ScopedTempPath returns a fresh path under dir whose Close removes it.
// Removal errors are swallowed and logged, never propagated, matching the
// teacher's tmp_file_t destructor discipline in the original C++ (best-effort
// cleanup that must never fail a build).
func ScopedTempPath(dir, ext string, logger ports.Logger) (ports.ScopedTempPath, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to create temp directory"), "dir", dir)
	}
	path := filepath.Join(dir, uuid.NewString()+ext)
	return &scopedTempPath{path: path, logger: logger}, nil
}

type scopedTempPath struct {
	path   string
	logger ports.Logger
}

func (s *scopedTempPath) Path() string { return s.path }

func (s *scopedTempPath) Close() {
	if err := os.RemoveAll(s.path); err != nil && !os.IsNotExist(err) {
		if s.logger != nil {
			s.logger.Debug("failed to remove scoped temp path", "path", s.path, "error", err)
		}
	}
}
