package wrapper

import (
	"context"

	"github.com/buildcache/buildcache/internal/adapters/fsutil" //nolint:depguard // wired in app layer
	"github.com/buildcache/buildcache/internal/adapters/store"  //nolint:depguard // wired in app layer
	"github.com/buildcache/buildcache/internal/core/ports"
	"github.com/grindlemire/graft"
)

// RegistryNodeID is the unique identifier for the wrapper-registry Graft
// node. The registry is tried in order; Generic is always last so every
// invocation has somewhere to land.
const RegistryNodeID graft.ID = "adapter.wrapper_registry"

func init() {
	graft.Register(graft.Node[[]ports.Wrapper]{
		ID:        RegistryNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{fsutil.NodeID, store.ToolIDNodeID},
		Run: func(ctx context.Context) ([]ports.Wrapper, error) {
			fs, err := graft.Dep[ports.FileOps](ctx)
			if err != nil {
				return nil, err
			}
			toolID, err := graft.Dep[ports.ToolIDCache](ctx)
			if err != nil {
				return nil, err
			}
			return []ports.Wrapper{
				NewGCCLike(fs, toolID),
				NewMSVCLike(fs, toolID),
				NewGeneric(),
			}, nil
		},
	})
}
