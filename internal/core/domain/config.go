package domain

import "time"

// Config is the cache's effective, fully-resolved configuration: the union of
// the config file and any environment variable overrides (§6).
type Config struct {
	// Dir is the local store's root directory.
	Dir string

	// MaxSizeBytes is the configured size cap in bytes.
	MaxSizeBytes int64

	// Accuracy is the hash/fidelity trade-off level.
	Accuracy AccuracyLevel

	// DirectMode enables the direct-mode (manifest) fast path.
	DirectMode bool

	// Disabled bypasses the cache entirely; the real tool is always invoked.
	Disabled bool

	// RemoteURL is the remote provider endpoint, empty disables the remote tier.
	RemoteURL string

	// RemoteReadOnly restores ccache's read-only remote mode: has/get stay
	// active but put_async is skipped, so a worker cannot pollute a shared cache.
	RemoteReadOnly bool

	// RemoteTimeout bounds each remote call; on expiry the provider reports
	// RemoteUnavailable and the cache degrades silently to "cold".
	RemoteTimeout time.Duration

	// DebugLogLevel controls the slog level used by the logger adapter.
	DebugLogLevel string

	// BaseDir, when non-empty, causes absolute paths under it in the relevant
	// arguments to be rewritten to relative form before they are hashed into
	// the direct key, so a cache populated from one checkout path is reusable
	// from another. Replay and the preprocessed text are not rewritten.
	BaseDir string

	// PrefixCommand, when non-empty, wraps run_for_miss's invocation of the
	// real tool (e.g. "distcc"), letting the cache compose with a distributed
	// execution front end.
	PrefixCommand []string
}

// DefaultLowWaterMark is the fraction of MaxSizeBytes eviction stops at.
const DefaultLowWaterMark = 0.9

// StatsSnapshot is the stats ledger's counters, read-modify-written as a whole
// record under the global file lock.
type StatsSnapshot struct {
	TotalBytes       int64
	EntryCount       int64
	HitsDirect       int64
	HitsPreprocessed int64
	HitsRemote       int64
	Misses           int64
	Evictions        int64
}
