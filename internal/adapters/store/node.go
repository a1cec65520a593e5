package store

import (
	"context"

	"github.com/buildcache/buildcache/internal/adapters/config" //nolint:depguard // wired in app layer
	"github.com/buildcache/buildcache/internal/adapters/fsutil" //nolint:depguard // wired in app layer
	"github.com/buildcache/buildcache/internal/core/domain"
	"github.com/buildcache/buildcache/internal/core/ports"
	"github.com/grindlemire/graft"
	"go.trai.ch/zerr"
)

// NodeID is the unique identifier for the local-store Graft node.
const NodeID graft.ID = "adapter.store"

// ToolIDNodeID is the unique identifier for the tool-ID memo cache Graft
// node. It shares the same *Store instance as NodeID rather than
// constructing a second ledger, since both are facets of the one on-disk
// stats file.
const ToolIDNodeID graft.ID = "adapter.store_toolid"

func init() {
	graft.Register(graft.Node[ports.LocalStore]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{config.ValueNodeID, fsutil.NodeID},
		Run: func(ctx context.Context) (ports.LocalStore, error) {
			cfg, err := graft.Dep[domain.Config](ctx)
			if err != nil {
				return nil, err
			}
			fs, err := graft.Dep[ports.FileOps](ctx)
			if err != nil {
				return nil, err
			}
			return New(cfg.Dir, fs)
		},
	})

	graft.Register(graft.Node[ports.ToolIDCache]{
		ID:        ToolIDNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{NodeID},
		Run: func(ctx context.Context) (ports.ToolIDCache, error) {
			ls, err := graft.Dep[ports.LocalStore](ctx)
			if err != nil {
				return nil, err
			}
			s, ok := ls.(*Store)
			if !ok {
				return nil, zerr.New("local store is not the filesystem-backed implementation")
			}
			return s, nil
		},
	})
}

// RecordHit bumps the local-hit counter appropriate to level.
func (s *Store) RecordHit(level domain.AccuracyLevel) error {
	return s.ledger.recordHit(level)
}

// RecordRemoteHit bumps the remote-hit counter.
func (s *Store) RecordRemoteHit() error {
	return s.ledger.recordHitRemote()
}

// RecordMiss bumps the miss counter.
func (s *Store) RecordMiss() error {
	return s.ledger.recordMiss()
}

// ToolID implements ports.ToolIDCache by delegating to the ledger's memo.
func (s *Store) ToolID(path string, mtime int64, compute func() (string, error)) (string, error) {
	return s.ledger.toolID(path, mtime, compute)
}
