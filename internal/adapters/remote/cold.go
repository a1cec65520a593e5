package remote

import (
	"context"

	"github.com/buildcache/buildcache/internal/core/domain"
)

// Cold is the RemoteProvider used when no remote URL is configured. Every
// call reports a clean miss rather than an error so the pipeline's remote
// probe stays a no-op instead of a special case.
type Cold struct{}

func (Cold) Has(context.Context, domain.EntryKey) (bool, error) { return false, nil }

func (Cold) Get(context.Context, domain.EntryKey) (domain.CacheEntry, bool, error) {
	return domain.CacheEntry{}, false, nil
}

func (Cold) Put(context.Context, domain.EntryKey, domain.CacheEntry) error { return nil }

func (Cold) ReadOnly() bool { return true }
