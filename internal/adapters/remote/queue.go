package remote

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/buildcache/buildcache/internal/core/domain"
	"github.com/buildcache/buildcache/internal/core/ports"
)

// PutQueue fans freshly published cache-miss results out to a RemoteProvider's Put
// without ever blocking the invocation that triggered it. An errgroup with
// SetLimit caps concurrent uploads; a singleflight.Group collapses redundant
// publishes for the same entry key when several wrapper processes finish the
// same miss at nearly the same time.
type PutQueue struct {
	provider ports.RemoteProvider
	log      ports.Logger

	group  errgroup.Group
	flight singleflight.Group

	closeOnce sync.Once
}

// NewPutQueue creates a PutQueue bounded to maxConcurrent simultaneous
// uploads.
func NewPutQueue(provider ports.RemoteProvider, log ports.Logger, maxConcurrent int) *PutQueue {
	q := &PutQueue{provider: provider, log: log}
	q.group.SetLimit(maxConcurrent)
	return q
}

// Enqueue schedules entry to be published under entryKey and returns
// immediately. Errors are logged, never returned, since the caller has
// already moved on to reporting its own result to the invoking process.
func (q *PutQueue) Enqueue(entryKey domain.EntryKey, entry domain.CacheEntry) {
	key := string(entryKey)
	q.group.Go(func() error {
		_, err, _ := q.flight.Do(key, func() (any, error) {
			return nil, q.provider.Put(context.Background(), entryKey, entry)
		})
		if err != nil {
			q.log.Debug("async remote publish failed", "entry", key, "error", err)
		}
		return nil
	})
}

// Wait blocks until every enqueued publish has finished. Nothing in the
// module calls it at present.
func (q *PutQueue) Wait() {
	_ = q.group.Wait()
}
