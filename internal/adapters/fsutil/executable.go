package fsutil

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"go.trai.ch/zerr"
)

// windowsExecExts are the extensions PATHEXT conventionally carries; used
// only to decide which candidate names to probe on that platform.
var windowsExecExts = []string{".exe", ".bat", ".cmd"}

// FindExecutable searches the host's PATH-like search path for name,
// skipping any candidate whose resolved path equals exclude so a front-end
// binary installed as a same-named symlink can avoid finding itself.
func (f *FileOps) FindExecutable(name string, pathEnv string, exclude string) (string, error) {
	excludeResolved := ""
	if exclude != "" {
		if r, err := f.ResolvePath(exclude); err == nil {
			excludeResolved = r
		}
	}

	for _, dir := range filepath.SplitList(pathEnv) {
		if dir == "" {
			dir = "."
		}
		for _, candidate := range candidateNames(name) {
			full := filepath.Join(dir, candidate)
			if !isExecutableFile(full) {
				continue
			}
			resolved, err := f.ResolvePath(full)
			if err != nil {
				continue
			}
			if excludeResolved != "" && resolved == excludeResolved {
				continue
			}
			return full, nil
		}
	}
	return "", zerr.With(zerr.New("executable not found"), "name", name)
}

func candidateNames(name string) []string {
	if runtime.GOOS != "windows" || strings.Contains(filepath.Base(name), ".") {
		return []string{name}
	}
	names := make([]string, 0, len(windowsExecExts)+1)
	for _, ext := range windowsExecExts {
		names = append(names, name+ext)
	}
	return append(names, name)
}

func isExecutableFile(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode()&0o111 != 0
}
