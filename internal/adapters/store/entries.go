package store

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/buildcache/buildcache/internal/core/domain"
	"go.trai.ch/zerr"
)

const (
	stdoutFile     = "stdout"
	stderrFile     = "stderr"
	returnCodeFile = "return_code"
)

// PublishEntry atomically inserts entry under entryKey. Readers never observe
// a half-written entry: the bundle is assembled in a temp directory under
// c/tmp (same filesystem as the shard parent) and only then renamed into
// place (invariant 1).
func (s *Store) PublishEntry(entryKey domain.EntryKey, entry domain.CacheEntry) error {
	finalPath, err := shardPath(s.root, entriesDir, string(entryKey))
	if err != nil {
		return err
	}

	tmp := s.tmpPath()
	if err := os.MkdirAll(tmp, 0o750); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to create temp entry dir"), "path", tmp)
	}

	if err := writeEntryFiles(tmp, entry); err != nil {
		_ = os.RemoveAll(tmp)
		return err
	}

	published, err := publishDir(tmp, finalPath)
	if err != nil {
		return err
	}
	if published {
		size := entrySizeOnDisk(entry)
		if err := s.ledger.recordPublish(size); err != nil {
			return err
		}
	}
	return nil
}

func writeEntryFiles(dir string, entry domain.CacheEntry) error {
	for _, a := range entry.Artifacts {
		if err := os.WriteFile(filepath.Join(dir, a.Name), a.Data, 0o644); err != nil {
			return zerr.With(zerr.Wrap(err, "failed to write artifact"), "artifact", a.Name)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, stdoutFile), entry.Stdout, 0o644); err != nil {
		return zerr.Wrap(err, "failed to write captured stdout")
	}
	if err := os.WriteFile(filepath.Join(dir, stderrFile), entry.Stderr, 0o644); err != nil {
		return zerr.Wrap(err, "failed to write captured stderr")
	}
	rc := []byte(strconv.Itoa(entry.ReturnCode))
	if err := os.WriteFile(filepath.Join(dir, returnCodeFile), rc, 0o644); err != nil {
		return zerr.Wrap(err, "failed to write return code")
	}
	return nil
}

func entrySizeOnDisk(entry domain.CacheEntry) int64 {
	var total int64
	for _, a := range entry.Artifacts {
		total += int64(len(a.Data))
	}
	total += int64(len(entry.Stdout) + len(entry.Stderr))
	return total
}

// LookupEntry returns the cache entry for entryKey, or ok=false on any miss,
// including a corrupted/partial entry — per §7, lookup errors degrade to a
// miss rather than propagating.
func (s *Store) LookupEntry(entryKey domain.EntryKey) (domain.CacheEntry, bool, error) {
	dir, err := shardPath(s.root, entriesDir, string(entryKey))
	if err != nil {
		return domain.CacheEntry{}, false, nil //nolint:nilerr // malformed key degrades to miss
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return domain.CacheEntry{}, false, nil //nolint:nilerr // missing entry is a miss, not an error
	}

	var entry domain.CacheEntry
	for _, de := range entries {
		if de.IsDir() {
			continue
		}
		name := de.Name()
		switch name {
		case stdoutFile:
			entry.Stdout, err = os.ReadFile(filepath.Join(dir, name)) //nolint:gosec // dir is store-internal
		case stderrFile:
			entry.Stderr, err = os.ReadFile(filepath.Join(dir, name)) //nolint:gosec // dir is store-internal
		case returnCodeFile:
			var rc []byte
			rc, err = os.ReadFile(filepath.Join(dir, name)) //nolint:gosec // dir is store-internal
			if err == nil {
				entry.ReturnCode, err = strconv.Atoi(string(rc))
			}
		default:
			var data []byte
			data, err = os.ReadFile(filepath.Join(dir, name)) //nolint:gosec // dir is store-internal
			if err == nil {
				entry.Artifacts = append(entry.Artifacts, domain.Artifact{Name: name, Data: data})
			}
		}
		if err != nil {
			return domain.CacheEntry{}, false, nil //nolint:nilerr // corrupted entry degrades to miss
		}
	}

	return entry, true, nil
}

// ArtifactPath returns the absolute path of entryKey's artifact named name,
// and whether it currently exists on disk.
func (s *Store) ArtifactPath(entryKey domain.EntryKey, name string) (string, bool) {
	dir, err := shardPath(s.root, entriesDir, string(entryKey))
	if err != nil {
		return "", false
	}
	path := filepath.Join(dir, name)
	if _, err := os.Stat(path); err != nil {
		return "", false
	}
	return path, true
}
