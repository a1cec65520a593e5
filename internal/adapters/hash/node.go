package hash

import (
	"context"

	"github.com/buildcache/buildcache/internal/core/ports"
	"github.com/grindlemire/graft"
)

// NodeID is the unique identifier for the hasher factory Graft node.
const NodeID graft.ID = "adapter.hash"

func init() {
	graft.Register(graft.Node[ports.HasherFactory]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(_ context.Context) (ports.HasherFactory, error) {
			return Factory{}, nil
		},
	})
}
