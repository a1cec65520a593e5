// Package config loads buildcache's configuration: a YAML file on disk,
// overridden field-by-field by BUILDCACHE_* environment variables, matching
// the layering the teacher's own loader uses for its build graph file.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/buildcache/buildcache/internal/core/domain"
	"github.com/buildcache/buildcache/internal/core/ports"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

const (
	envPrefix      = "BUILDCACHE_"
	defaultDirName = ".buildcache"
)

// fileConfig mirrors domain.Config's on-disk shape; yaml.v3 tags keep the
// config file's keys snake_case while the domain type stays idiomatic Go.
type fileConfig struct {
	Dir            string   `yaml:"dir"`
	MaxSize        string   `yaml:"max_size"`
	Accuracy       string   `yaml:"accuracy"`
	DirectMode     *bool    `yaml:"direct_mode"`
	Disabled       *bool    `yaml:"disabled"`
	RemoteURL      string   `yaml:"remote_url"`
	RemoteReadOnly *bool    `yaml:"remote_read_only"`
	RemoteTimeout  string   `yaml:"remote_timeout"`
	DebugLogLevel  string   `yaml:"debug_log_level"`
	BaseDir        string   `yaml:"base_dir"`
	PrefixCommand  []string `yaml:"prefix_command"`
}

// Loader is the ports.ConfigLoader adapter.
type Loader struct {
	log ports.Logger
}

// NewLoader creates a Loader that logs unknown config-file keys and unknown
// BUILDCACHE_* environment variables as warnings rather than failing the
// build over them.
func NewLoader(log ports.Logger) *Loader {
	return &Loader{log: log}
}

// Load reads path (if it exists), layers BUILDCACHE_* env var overrides on
// top, and fills defaults for anything still unset.
func (l *Loader) Load(path string) (domain.Config, error) {
	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path) //nolint:gosec // path is an operator-supplied config file
		switch {
		case err == nil:
			var fc fileConfig
			if err := yaml.Unmarshal(data, &fc); err != nil {
				return domain.Config{}, zerr.With(zerr.Wrap(err, "failed to parse config file"), "path", path)
			}
			var raw map[string]any
			if yaml.Unmarshal(data, &raw) == nil {
				known := map[string]bool{
					"dir": true, "max_size": true, "accuracy": true, "direct_mode": true,
					"disabled": true, "remote_url": true, "remote_read_only": true,
					"remote_timeout": true, "debug_log_level": true, "base_dir": true,
					"prefix_command": true,
				}
				for key := range raw {
					if !known[key] {
						l.log.Warn("ignoring unknown config key", "key", key, "path", path)
					}
				}
			}
			applyFileConfig(&cfg, fc)
		case os.IsNotExist(err):
			l.log.Debug("config file not found, using defaults", "path", path)
		default:
			return domain.Config{}, zerr.With(zerr.Wrap(err, "failed to read config file"), "path", path)
		}
	}

	applyEnvOverrides(&cfg, os.Environ(), l.log)

	if cfg.Dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return domain.Config{}, zerr.Wrap(err, "failed to resolve default cache dir")
		}
		cfg.Dir = home + string(os.PathSeparator) + defaultDirName
	}

	return cfg, nil
}

func defaultConfig() domain.Config {
	return domain.Config{
		MaxSizeBytes:  5 * 1024 * 1024 * 1024,
		Accuracy:      domain.AccuracyDefault,
		DirectMode:    true,
		RemoteTimeout: 10 * time.Second,
		DebugLogLevel: "warn",
	}
}

func applyFileConfig(cfg *domain.Config, fc fileConfig) {
	if fc.Dir != "" {
		cfg.Dir = fc.Dir
	}
	if fc.MaxSize != "" {
		if n, err := parseSize(fc.MaxSize); err == nil {
			cfg.MaxSizeBytes = n
		}
	}
	if fc.Accuracy != "" {
		cfg.Accuracy = domain.ParseAccuracyLevel(fc.Accuracy)
	}
	if fc.DirectMode != nil {
		cfg.DirectMode = *fc.DirectMode
	}
	if fc.Disabled != nil {
		cfg.Disabled = *fc.Disabled
	}
	if fc.RemoteURL != "" {
		cfg.RemoteURL = fc.RemoteURL
	}
	if fc.RemoteReadOnly != nil {
		cfg.RemoteReadOnly = *fc.RemoteReadOnly
	}
	if fc.RemoteTimeout != "" {
		if d, err := time.ParseDuration(fc.RemoteTimeout); err == nil {
			cfg.RemoteTimeout = d
		}
	}
	if fc.DebugLogLevel != "" {
		cfg.DebugLogLevel = fc.DebugLogLevel
	}
	if fc.BaseDir != "" {
		cfg.BaseDir = fc.BaseDir
	}
	if len(fc.PrefixCommand) > 0 {
		cfg.PrefixCommand = fc.PrefixCommand
	}
}

// applyEnvOverrides layers BUILDCACHE_* variables on top of cfg. Unknown
// BUILDCACHE_ keys are logged and ignored rather than treated as fatal,
// since a future buildcache version may define keys this one doesn't know.
func applyEnvOverrides(cfg *domain.Config, environ []string, log ports.Logger) {
	for _, kv := range environ {
		key, val, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(key, envPrefix) {
			continue
		}
		name := strings.TrimPrefix(key, envPrefix)
		switch name {
		case "DIR":
			cfg.Dir = val
		case "MAX_SIZE":
			if n, err := parseSize(val); err == nil {
				cfg.MaxSizeBytes = n
			}
		case "ACCURACY":
			cfg.Accuracy = domain.ParseAccuracyLevel(val)
		case "DIRECT_MODE":
			cfg.DirectMode = parseBool(val, cfg.DirectMode)
		case "DISABLE":
			cfg.Disabled = parseBool(val, cfg.Disabled)
		case "REMOTE_URL":
			cfg.RemoteURL = val
		case "REMOTE_READ_ONLY":
			cfg.RemoteReadOnly = parseBool(val, cfg.RemoteReadOnly)
		case "REMOTE_TIMEOUT":
			if d, err := time.ParseDuration(val); err == nil {
				cfg.RemoteTimeout = d
			}
		case "DEBUG":
			cfg.DebugLogLevel = val
		case "BASEDIR":
			cfg.BaseDir = val
		case "PREFIX":
			cfg.PrefixCommand = strings.Fields(val)
		case "CONFIG", "TRACE":
			// Read directly by the config and telemetry nodes.
		default:
			log.Warn("ignoring unknown environment override", "key", key)
		}
	}
}

func parseBool(val string, fallback bool) bool {
	b, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return b
}

// parseSize accepts a plain byte count or a "<n>{K,M,G}" suffix, matching
// ccache's own config size syntax.
func parseSize(val string) (int64, error) {
	val = strings.TrimSpace(val)
	if val == "" {
		return 0, zerr.New("empty size value")
	}
	multiplier := int64(1)
	suffix := val[len(val)-1]
	switch suffix {
	case 'k', 'K':
		multiplier = 1024
		val = val[:len(val)-1]
	case 'm', 'M':
		multiplier = 1024 * 1024
		val = val[:len(val)-1]
	case 'g', 'G':
		multiplier = 1024 * 1024 * 1024
		val = val[:len(val)-1]
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, zerr.Wrap(err, "invalid size value")
	}
	return n * multiplier, nil
}
