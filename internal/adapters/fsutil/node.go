package fsutil

import (
	"context"

	"github.com/buildcache/buildcache/internal/core/ports"
	"github.com/grindlemire/graft"
)

// NodeID is the unique identifier for the file-ops Graft node.
const NodeID graft.ID = "adapter.fsutil"

func init() {
	graft.Register(graft.Node[ports.FileOps]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(_ context.Context) (ports.FileOps, error) {
			return New(), nil
		},
	})
}
