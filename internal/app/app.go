// Package app implements the application layer for buildcache: the glue
// between the front end (a wrapped-compiler invocation or a maintenance
// command) and the invocation pipeline.
package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/buildcache/buildcache/internal/core/domain"
	"github.com/buildcache/buildcache/internal/core/ports"
	"github.com/buildcache/buildcache/internal/engine/pipeline"
	"go.trai.ch/zerr"
)

// App is buildcache's application layer: it owns the pipeline plus the
// store/config/logger handles the maintenance commands need directly.
type App struct {
	pipeline *pipeline.Pipeline
	store    ports.LocalStore
	fs       ports.FileOps
	logger   ports.Logger
	cfg      domain.Config
}

// New creates an App from its dependencies.
func New(p *pipeline.Pipeline, store ports.LocalStore, fs ports.FileOps, log ports.Logger, cfg domain.Config) *App {
	return &App{pipeline: p, store: store, fs: fs, logger: log, cfg: cfg}
}

// InvokeResult is what the front end needs to reproduce the wrapped tool's
// exit behavior byte-for-byte.
type InvokeResult struct {
	Stdout     []byte
	Stderr     []byte
	ReturnCode int
}

// Invoke runs one wrapped-tool invocation through the pipeline and maps the
// result onto the error-handling policy of §7: lookup/publish errors never
// reach here (the pipeline already degrades those to a debug log and a
// miss), so anything Invoke returns is either a tool failure (still not an
// error: forwarded verbatim) or a genuine internal failure that should make
// the front end print a diagnostic and exit 1 before ever running the tool.
func (a *App) Invoke(ctx context.Context, inv domain.Invocation) (InvokeResult, error) {
	result, err := a.pipeline.Run(ctx, inv)
	if err != nil {
		a.logger.Error(err, "executable", inv.Executable)
		return InvokeResult{}, zerr.Wrap(err, "invocation pipeline failed")
	}
	return InvokeResult{Stdout: result.Stdout, Stderr: result.Stderr, ReturnCode: result.ReturnCode}, nil
}

// ResolveExecutable finds name's real path via the host's PATH-like search,
// excluding the front end's own resolved path so a symlink-installed
// buildcache doesn't find itself (§6).
func (a *App) ResolveExecutable(name, pathEnv, exclude string) (string, error) {
	return a.fs.FindExecutable(name, pathEnv, exclude)
}

// Stats returns the current stats ledger snapshot.
func (a *App) Stats() (domain.StatsSnapshot, error) {
	return a.store.Stats()
}

// ZeroStats resets the ledger counters to zero.
func (a *App) ZeroStats() error {
	return a.store.ZeroStats()
}

// Clear removes every cached entry and manifest, preserving stats structure.
func (a *App) Clear() error {
	return a.store.Clear()
}

// Config returns the effective, fully-resolved configuration.
func (a *App) Config() domain.Config {
	return a.cfg
}

// FormatStats renders a StatsSnapshot the way the CLI's --show-stats prints
// it: one "key  value" line per counter, in a fixed order.
func FormatStats(s domain.StatsSnapshot) string {
	return fmt.Sprintf(
		"cache directory size\t%d bytes\ncache entries\t%d\ncache hit (direct)\t%d\ncache hit (preprocessed)\t%d\ncache hit (remote)\t%d\ncache miss\t%d\nevictions\t%d\n",
		s.TotalBytes, s.EntryCount, s.HitsDirect, s.HitsPreprocessed, s.HitsRemote, s.Misses, s.Evictions,
	)
}

// FormatConfig renders the effective configuration the way --get-config
// prints it: one "key  value" line per field, in struct order.
func FormatConfig(cfg domain.Config) string {
	return fmt.Sprintf(
		"dir\t%s\nmax_size\t%d\naccuracy\t%s\ndirect_mode\t%t\ndisabled\t%t\nremote_url\t%s\nremote_read_only\t%t\nremote_timeout\t%s\ndebug_log_level\t%s\nbase_dir\t%s\nprefix_command\t%s\n",
		cfg.Dir, cfg.MaxSizeBytes, cfg.Accuracy, cfg.DirectMode, cfg.Disabled,
		cfg.RemoteURL, cfg.RemoteReadOnly, cfg.RemoteTimeout, cfg.DebugLogLevel,
		cfg.BaseDir, strings.Join(cfg.PrefixCommand, " "),
	)
}

// ExitCode maps a non-nil error from Invoke, ZeroStats, or Clear onto §7's
// policy: anything that reaches here happened before (or instead of) the
// tool running, so it always exits 1. A successful Invoke's exit code comes
// from InvokeResult.ReturnCode instead, forwarding the real tool's own code
// byte-for-byte — ToolFailed never surfaces as a Go error at all.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	return 1
}
