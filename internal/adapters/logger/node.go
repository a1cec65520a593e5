package logger

import (
	"context"
	"os"

	"github.com/buildcache/buildcache/internal/core/ports"
	"github.com/grindlemire/graft"
)

// NodeID is the unique identifier for the logger Graft node.
const NodeID graft.ID = "adapter.logger"

func init() {
	graft.Register(graft.Node[ports.Logger]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(_ context.Context) (ports.Logger, error) {
			// The logger has no DependsOn on the config node: config loading
			// itself needs to log (e.g. "config file not found"), so the
			// logger bootstraps from the raw environment instead.
			return New(os.Getenv("BUILDCACHE_DEBUG")), nil
		},
	})
}
