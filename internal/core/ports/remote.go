package ports

import (
	"context"

	"github.com/buildcache/buildcache/internal/core/domain"
)

// RemoteProvider is the uniform get/put/has interface every remote backend
// satisfies (component D). Concrete transports (HTTP/Redis/S3/...) are opaque
// to the core; it only ever sees this contract. Failures surface as
// domain.ErrRemoteUnavailable and the core downgrades silently to "cold".
//
//go:generate go run go.uber.org/mock/mockgen -source=remote.go -destination=mocks/mock_remote.go -package=mocks
type RemoteProvider interface {
	// Has reports whether entryKey exists remotely.
	Has(ctx context.Context, entryKey domain.EntryKey) (bool, error)

	// Get fetches entryKey's entry, or ok=false on miss.
	Get(ctx context.Context, entryKey domain.EntryKey) (entry domain.CacheEntry, ok bool, err error)

	// Put uploads entry under entryKey. Callers invoke this from a detached
	// task; Put itself is a plain blocking call and must never be invoked
	// synchronously from the hot path.
	Put(ctx context.Context, entryKey domain.EntryKey, entry domain.CacheEntry) error

	// ReadOnly reports whether Put should be skipped (ccache's read-only
	// remote mode, for CI workers that must not pollute a shared cache).
	ReadOnly() bool
}
