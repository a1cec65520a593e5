package store

import (
	"os"
	"path/filepath"

	"github.com/buildcache/buildcache/internal/core/domain"
	"go.trai.ch/zerr"
)

// Stats returns the current counters from the stats ledger.
func (s *Store) Stats() (domain.StatsSnapshot, error) {
	return s.ledger.snapshot()
}

// ZeroStats resets every counter to zero without touching any cached entry.
func (s *Store) ZeroStats() error {
	return s.ledger.zero()
}

// Clear removes every entry and manifest and resets the ledger, leaving the
// directory skeleton in place so the store remains usable afterward.
func (s *Store) Clear() error {
	for _, sub := range []string{entriesDir, manifestsDir, tmpDir} {
		dir := filepath.Join(s.root, sub)
		if err := os.RemoveAll(dir); err != nil {
			return zerr.With(zerr.Wrap(err, "failed to clear store directory"), "dir", sub)
		}
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return zerr.With(zerr.Wrap(err, "failed to recreate store directory"), "dir", sub)
		}
	}
	return s.ledger.zero()
}
