package pipeline

import (
	"context"

	"github.com/buildcache/buildcache/internal/adapters/config"    //nolint:depguard // wired in app layer
	"github.com/buildcache/buildcache/internal/adapters/fsutil"    //nolint:depguard // wired in app layer
	"github.com/buildcache/buildcache/internal/adapters/hash"      //nolint:depguard // wired in app layer
	"github.com/buildcache/buildcache/internal/adapters/logger"    //nolint:depguard // wired in app layer
	"github.com/buildcache/buildcache/internal/adapters/remote"    //nolint:depguard // wired in app layer
	"github.com/buildcache/buildcache/internal/adapters/store"     //nolint:depguard // wired in app layer
	"github.com/buildcache/buildcache/internal/adapters/telemetry" //nolint:depguard // wired in app layer
	"github.com/buildcache/buildcache/internal/adapters/wrapper"   //nolint:depguard // wired in app layer
	"github.com/buildcache/buildcache/internal/core/domain"
	"github.com/buildcache/buildcache/internal/core/ports"
	"github.com/grindlemire/graft"
)

// NodeID is the unique identifier for the invocation-pipeline Graft node.
const NodeID graft.ID = "engine.pipeline"

func init() {
	graft.Register(graft.Node[*Pipeline]{
		ID: NodeID,
		DependsOn: []graft.ID{
			wrapper.RegistryNodeID,
			store.NodeID,
			remote.ProviderNodeID,
			remote.QueueNodeID,
			hash.NodeID,
			fsutil.NodeID,
			config.ValueNodeID,
			telemetry.NodeID,
			logger.NodeID,
		},
		Run: func(ctx context.Context) (*Pipeline, error) {
			wrappers, err := graft.Dep[[]ports.Wrapper](ctx)
			if err != nil {
				return nil, err
			}
			localStore, err := graft.Dep[ports.LocalStore](ctx)
			if err != nil {
				return nil, err
			}
			remoteProvider, err := graft.Dep[ports.RemoteProvider](ctx)
			if err != nil {
				return nil, err
			}
			queue, err := graft.Dep[*remote.PutQueue](ctx)
			if err != nil {
				return nil, err
			}
			hasherFac, err := graft.Dep[ports.HasherFactory](ctx)
			if err != nil {
				return nil, err
			}
			fs, err := graft.Dep[ports.FileOps](ctx)
			if err != nil {
				return nil, err
			}
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			tracer, err := graft.Dep[ports.Tracer](ctx)
			if err != nil {
				return nil, err
			}
			cfg, err := graft.Dep[domain.Config](ctx)
			if err != nil {
				return nil, err
			}
			return New(wrappers, localStore, remoteProvider, queue.Enqueue, hasherFac, fs, log, tracer, cfg), nil
		},
	})
}
