// Package wiring registers all Graft nodes for the application.
package wiring

import (
	// Register adapter nodes.
	_ "github.com/buildcache/buildcache/internal/adapters/config"
	_ "github.com/buildcache/buildcache/internal/adapters/fsutil"
	_ "github.com/buildcache/buildcache/internal/adapters/hash"
	_ "github.com/buildcache/buildcache/internal/adapters/logger"
	_ "github.com/buildcache/buildcache/internal/adapters/remote"
	_ "github.com/buildcache/buildcache/internal/adapters/store"
	_ "github.com/buildcache/buildcache/internal/adapters/telemetry"
	_ "github.com/buildcache/buildcache/internal/adapters/wrapper"
	// Register app and engine nodes.
	_ "github.com/buildcache/buildcache/internal/app"
	_ "github.com/buildcache/buildcache/internal/engine/pipeline"
)
