package store

import (
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/buildcache/buildcache/internal/core/domain"
	"go.trai.ch/zerr"
)

// RecordAccess touches the entry directory's mtime so EvictUntil's LRU sweep
// can order candidates by recency without a separate access-log file.
func (s *Store) RecordAccess(entryKey domain.EntryKey) error {
	dir, err := shardPath(s.root, entriesDir, string(entryKey))
	if err != nil {
		return err
	}
	now := time.Now()
	if err := os.Chtimes(dir, now, now); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return zerr.With(zerr.Wrap(err, "failed to record access"), "entry", entryKey)
	}
	return nil
}

type evictionCandidate struct {
	path  string
	size  int64
	mtime time.Time
}

// EvictUntil removes least-recently-used entries until total usage is at or
// below capBytes, or until no further candidates remain (invariant 4: the
// sweep always terminates, even if capacity can't be reached because a
// single entry exceeds capBytes by itself).
func (s *Store) EvictUntil(capBytes int64) error {
	snap, err := s.ledger.snapshot()
	if err != nil {
		return err
	}
	if snap.TotalBytes <= capBytes {
		return nil
	}

	candidates, err := s.listEntries()
	if err != nil {
		return err
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].mtime.Before(candidates[j].mtime) })

	remaining := snap.TotalBytes
	for _, c := range candidates {
		if remaining <= capBytes {
			break
		}
		if err := os.RemoveAll(c.path); err != nil {
			continue
		}
		remaining -= c.size
		if err := s.ledger.recordEviction(c.size); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) listEntries() ([]evictionCandidate, error) {
	root := filepath.Join(s.root, entriesDir)
	var candidates []evictionCandidate

	shards, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, zerr.Wrap(err, "failed to list entry shards")
	}

	for _, shard := range shards {
		if !shard.IsDir() {
			continue
		}
		shardPath := filepath.Join(root, shard.Name())
		entries, err := os.ReadDir(shardPath)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if !e.IsDir() {
				continue
			}
			entryPath := filepath.Join(shardPath, e.Name())
			info, err := os.Stat(entryPath)
			if err != nil {
				continue
			}
			size, err := dirSize(entryPath)
			if err != nil {
				continue
			}
			candidates = append(candidates, evictionCandidate{
				path:  entryPath,
				size:  size,
				mtime: info.ModTime(),
			})
		}
	}
	return candidates, nil
}

func dirSize(path string) (int64, error) {
	var total int64
	entries, err := os.ReadDir(path)
	if err != nil {
		return 0, err
	}
	for _, e := range entries {
		info, err := e.Info()
		if err != nil {
			continue
		}
		total += info.Size()
	}
	return total, nil
}
