package ports

import "github.com/buildcache/buildcache/internal/core/domain"

// ConfigLoader loads the effective configuration from a config file path and
// the current environment (§6: file, then environment variable overrides).
//
//go:generate go run go.uber.org/mock/mockgen -source=config.go -destination=mocks/mock_config.go -package=mocks
type ConfigLoader interface {
	Load(path string) (domain.Config, error)
}
