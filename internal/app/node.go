package app

import (
	"context"

	"github.com/buildcache/buildcache/internal/adapters/config"  //nolint:depguard // wired in app layer
	"github.com/buildcache/buildcache/internal/adapters/fsutil"  //nolint:depguard // wired in app layer
	"github.com/buildcache/buildcache/internal/adapters/logger"  //nolint:depguard // wired in app layer
	"github.com/buildcache/buildcache/internal/adapters/store"   //nolint:depguard // wired in app layer
	"github.com/buildcache/buildcache/internal/core/domain"
	"github.com/buildcache/buildcache/internal/core/ports"
	"github.com/buildcache/buildcache/internal/engine/pipeline" //nolint:depguard // wired in app layer
	"github.com/grindlemire/graft"
)

const (
	// AppNodeID is the unique identifier for the *App Graft node.
	AppNodeID graft.ID = "app.main"
	// ComponentsNodeID is the unique identifier for the app-layer Components
	// Graft node the front end actually asks Graft for.
	ComponentsNodeID graft.ID = "app.components"
)

// Components bundles everything cmd/buildcache needs, resolved once by
// Graft at process start.
type Components struct {
	App    *App
	Logger ports.Logger
}

func init() {
	graft.Register(graft.Node[*App]{
		ID:        AppNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			pipeline.NodeID,
			store.NodeID,
			config.ValueNodeID,
			fsutil.NodeID,
			logger.NodeID,
		},
		Run: func(ctx context.Context) (*App, error) {
			p, err := graft.Dep[*pipeline.Pipeline](ctx)
			if err != nil {
				return nil, err
			}
			// The pipeline depends on ports.LocalStore itself, but the app
			// layer's maintenance commands (stats/clear) need to talk to the
			// store directly rather than through a wrapped invocation, so
			// it's resolved here too rather than threaded out of Pipeline.
			store, err := graft.Dep[ports.LocalStore](ctx)
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
			cfg, err := graft.Dep[domain.Config](ctx)
			if err != nil {
				return nil, err
			}
			return New(p, store, fs, log, cfg), nil
		},
	})

	graft.Register(graft.Node[*Components]{
		ID:        ComponentsNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{AppNodeID, logger.NodeID},
		Run: func(ctx context.Context) (*Components, error) {
			a, err := graft.Dep[*App](ctx)
			if err != nil {
				return nil, err
			}
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			return &Components{App: a, Logger: log}, nil
		},
	})
}
