package ports

import "github.com/buildcache/buildcache/internal/core/domain"

// LocalStore is the content-addressed local store (component C).
//
//go:generate go run go.uber.org/mock/mockgen -source=store.go -destination=mocks/mock_store.go -package=mocks
type LocalStore interface {
	// LookupManifest returns every manifest published for direct-mode key,
	// newest first.
	LookupManifest(directKey domain.DirectKey) ([]domain.Manifest, error)

	// LookupEntry returns the cache entry for entryKey, or ok=false on miss.
	LookupEntry(entryKey domain.EntryKey) (entry domain.CacheEntry, ok bool, err error)

	// ArtifactPath returns the absolute on-disk path of entryKey's artifact
	// named name, and whether it currently exists. Lets a caller that can
	// hard link (domain.CapabilityHardLinks) materialize the artifact
	// without reading it fully into memory first.
	ArtifactPath(entryKey domain.EntryKey, name string) (path string, ok bool)

	// PublishEntry atomically inserts entry under entryKey. Publishing a key
	// that already exists is a no-op; the existing entry is canonical
	// (first-writer-wins).
	PublishEntry(entryKey domain.EntryKey, entry domain.CacheEntry) error

	// PublishManifest atomically inserts manifest under directKey. Publishing
	// a (directKey, manifest.EntryKey) pair that already exists is a no-op.
	PublishManifest(directKey domain.DirectKey, manifest domain.Manifest) error

	// RecordAccess updates entryKey's access timestamp for LRU accounting.
	RecordAccess(entryKey domain.EntryKey) error

	// EvictUntil runs a single-pass LRU sweep ordered by each entry's last
	// access (the mtime RecordAccess sets), deleting entries until
	// the recorded total size is at or below cap.
	EvictUntil(capBytes int64) error

	// Stats returns the current ledger snapshot.
	Stats() (domain.StatsSnapshot, error)

	// ZeroStats resets the ledger counters to zero, preserving structure.
	ZeroStats() error

	// Clear removes all entries and manifests, keeping the stats structure.
	Clear() error

	// RecordHit bumps the local-hit counter appropriate to level (direct-mode
	// accuracy levels count as direct hits, strict counts as preprocessed).
	RecordHit(level domain.AccuracyLevel) error

	// RecordRemoteHit bumps the remote-hit counter.
	RecordRemoteHit() error

	// RecordMiss bumps the miss counter.
	RecordMiss() error
}
