package config

import (
	"context"
	"os"

	"github.com/buildcache/buildcache/internal/adapters/logger" //nolint:depguard // wired in app layer
	"github.com/buildcache/buildcache/internal/core/domain"
	"github.com/buildcache/buildcache/internal/core/ports"
	"github.com/grindlemire/graft"
)

const (
	// NodeID is the unique identifier for the config-loader Graft node.
	NodeID graft.ID = "adapter.config_loader"
	// ValueNodeID is the unique identifier for the resolved domain.Config
	// Graft node. Unlike the teacher's build graph, which is only loaded
	// once a target is actually requested, buildcache needs its config
	// resolved before it can even decide whether to wrap or pass through,
	// so the loaded value is wired as its own node rather than loaded
	// lazily inside the app layer.
	ValueNodeID graft.ID = "adapter.config"

	// PathEnvVar names the environment variable holding an explicit config
	// file path, checked before the default location.
	PathEnvVar = "BUILDCACHE_CONFIG"
)

func init() {
	graft.Register(graft.Node[ports.ConfigLoader]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{logger.NodeID},
		Run: func(ctx context.Context) (ports.ConfigLoader, error) {
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			return NewLoader(log), nil
		},
	})

	graft.Register(graft.Node[domain.Config]{
		ID:        ValueNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{NodeID},
		Run: func(ctx context.Context) (domain.Config, error) {
			loader, err := graft.Dep[ports.ConfigLoader](ctx)
			if err != nil {
				return domain.Config{}, err
			}
			return loader.Load(resolveConfigPath())
		},
	})
}

func resolveConfigPath() string {
	if p := os.Getenv(PathEnvVar); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return home + string(os.PathSeparator) + defaultDirName + string(os.PathSeparator) + "config.yaml"
}
