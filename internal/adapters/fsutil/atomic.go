package fsutil

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"go.trai.ch/zerr"
)

// AtomicWrite writes data to path via a temp file in the same directory
// followed by rename, so readers never observe a partial write.
func (f *FileOps) AtomicWrite(path string, data []byte, perm fs.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to create parent directory"), "path", path)
	}

	tmpPath := filepath.Join(dir, ".tmp-"+uuid.NewString())
	if err := os.WriteFile(tmpPath, data, perm); err != nil {
		_ = os.Remove(tmpPath)
		return zerr.With(zerr.Wrap(err, "failed to write temp file"), "path", tmpPath)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return zerr.With(zerr.Wrap(err, "failed to rename temp file into place"), "path", path)
	}
	return nil
}

// LinkOrCopy materializes src at dst, trying a hard link first and falling
// back to a byte copy on cross-device or permission failure.
func (f *FileOps) LinkOrCopy(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o750); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to create destination directory"), "path", dst)
	}

	_ = os.Remove(dst) // best-effort: dst may not exist, or may be stale

	if err := os.Link(src, dst); err == nil {
		return nil
	}

	return copyFile(src, dst)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src) //nolint:gosec // path is controlled by caller
	if err != nil {
		return zerr.With(zerr.Wrap(err, "failed to open source file"), "path", src)
	}
	defer in.Close() //nolint:errcheck // best-effort close

	info, err := in.Stat()
	if err != nil {
		return zerr.With(zerr.Wrap(err, "failed to stat source file"), "path", src)
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return zerr.With(zerr.Wrap(err, "failed to create destination file"), "path", dst)
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return zerr.With(zerr.Wrap(err, "failed to copy file content"), "path", dst)
	}

	return out.Close()
}

// ResolvePath returns the canonicalized real path, following symlinks.
func (f *FileOps) ResolvePath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", zerr.With(zerr.Wrap(err, "failed to make path absolute"), "path", path)
	}

	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		// A path that doesn't exist yet (e.g. an output about to be produced)
		// still canonicalizes to its absolute, cleaned form.
		if os.IsNotExist(err) {
			return filepath.Clean(abs), nil
		}
		return "", zerr.With(zerr.Wrap(err, "failed to resolve symlinks"), "path", abs)
	}
	return resolved, nil
}
