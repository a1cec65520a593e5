package remote

import (
	"context"

	"github.com/buildcache/buildcache/internal/adapters/config" //nolint:depguard // wired in app layer
	"github.com/buildcache/buildcache/internal/adapters/logger" //nolint:depguard // wired in app layer
	"github.com/buildcache/buildcache/internal/core/domain"
	"github.com/buildcache/buildcache/internal/core/ports"
	"github.com/grindlemire/graft"
)

const maxConcurrentPuts = 4

// ProviderNodeID is the unique identifier for the remote-provider Graft node.
const ProviderNodeID graft.ID = "adapter.remote_provider"

// QueueNodeID is the unique identifier for the async publish-queue Graft node.
const QueueNodeID graft.ID = "adapter.remote_queue"

func init() {
	graft.Register(graft.Node[ports.RemoteProvider]{
		ID:        ProviderNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{config.ValueNodeID},
		Run: func(ctx context.Context) (ports.RemoteProvider, error) {
			cfg, err := graft.Dep[domain.Config](ctx)
			if err != nil {
				return nil, err
			}
			if cfg.RemoteURL == "" {
				return Cold{}, nil
			}
			return New(cfg.RemoteURL, cfg.RemoteTimeout, cfg.RemoteReadOnly), nil
		},
	})

	graft.Register(graft.Node[*PutQueue]{
		ID:        QueueNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{ProviderNodeID, logger.NodeID},
		Run: func(ctx context.Context) (*PutQueue, error) {
			provider, err := graft.Dep[ports.RemoteProvider](ctx)
			if err != nil {
				return nil, err
			}
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			return NewPutQueue(provider, log, maxConcurrentPuts), nil
		},
	})
}
