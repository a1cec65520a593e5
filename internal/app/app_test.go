package app_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/buildcache/buildcache/internal/adapters/fsutil"
	"github.com/buildcache/buildcache/internal/adapters/hash"
	"github.com/buildcache/buildcache/internal/adapters/logger"
	"github.com/buildcache/buildcache/internal/adapters/remote"
	"github.com/buildcache/buildcache/internal/adapters/store"
	"github.com/buildcache/buildcache/internal/adapters/telemetry"
	"github.com/buildcache/buildcache/internal/app"
	"github.com/buildcache/buildcache/internal/core/domain"
	"github.com/buildcache/buildcache/internal/core/ports"
	"github.com/buildcache/buildcache/internal/engine/pipeline"
)

type echoWrapper struct{ runs int }

func (*echoWrapper) CanHandle(domain.Invocation) bool { return true }

func (*echoWrapper) ResolveArgs(inv domain.Invocation) ([]string, error) {
	return append([]string{inv.Executable}, inv.Args...), nil
}

func (*echoWrapper) ProgramID(domain.Invocation) (domain.ProgramID, error) { return "echo-v1", nil }

func (*echoWrapper) RelevantArgs(args []string) domain.RelevantArgs {
	return domain.RelevantArgs(args)
}

func (*echoWrapper) RelevantEnv(domain.Invocation) map[string]string { return nil }

func (*echoWrapper) InputFiles(args []string, workDir string) ([]string, error) {
	return []string{filepath.Join(workDir, args[1])}, nil
}

func (*echoWrapper) ExpectedOutputs(args []string, workDir string) ([]domain.OutputSpec, error) {
	return []domain.OutputSpec{{Path: filepath.Join(workDir, args[1]+".o"), Required: true}}, nil
}

func (*echoWrapper) Preprocess(args []string, workDir string, _ []string, _ bool) (domain.PreprocessResult, error) {
	data, err := os.ReadFile(filepath.Join(workDir, args[1]))
	return domain.PreprocessResult{Preprocessed: data}, err
}

func (*echoWrapper) Capabilities() map[domain.Capability]bool { return nil }

func (w *echoWrapper) RunForMiss(args []string, workDir string, _ []string) (domain.RunResult, error) {
	w.runs++
	source := filepath.Join(workDir, args[1])
	data, err := os.ReadFile(source)
	if err != nil {
		return domain.RunResult{}, err
	}
	if err := os.WriteFile(source+".o", data, 0o644); err != nil {
		return domain.RunResult{}, err
	}
	return domain.RunResult{Stdout: data, ReturnCode: 0}, nil
}

func newTestApp(t *testing.T, w ports.Wrapper) (*app.App, string) {
	t.Helper()
	workDir := t.TempDir()
	storeDir := t.TempDir()

	s, err := store.New(storeDir, fsutil.New())
	require.NoError(t, err)

	cfg := domain.Config{Dir: storeDir}
	p := pipeline.New(
		[]ports.Wrapper{w},
		s,
		remote.Cold{},
		nil,
		hash.Factory{},
		fsutil.New(),
		logger.New("error"),
		telemetry.NewNoOpTracer(),
		cfg,
	)
	return app.New(p, s, fsutil.New(), logger.New("error"), cfg), workDir
}

func TestAppInvokeMissThenHit(t *testing.T) {
	w := &echoWrapper{}
	a, workDir := newTestApp(t, w)
	require.NoError(t, os.WriteFile(filepath.Join(workDir, "a.c"), []byte("int main(){return 0;}"), 0o644))

	inv := domain.Invocation{Executable: "cc", Args: []string{"a.c"}, WorkDir: workDir}

	first, err := a.Invoke(context.Background(), inv)
	require.NoError(t, err)
	require.Equal(t, 0, first.ReturnCode)
	require.Equal(t, 1, w.runs)

	second, err := a.Invoke(context.Background(), inv)
	require.NoError(t, err)
	require.Equal(t, first.Stdout, second.Stdout)
	require.Equal(t, 1, w.runs, "second invocation should be served from the cache")
}

func TestAppStatsRoundTrip(t *testing.T) {
	w := &echoWrapper{}
	a, workDir := newTestApp(t, w)
	require.NoError(t, os.WriteFile(filepath.Join(workDir, "a.c"), []byte("int main(){return 0;}"), 0o644))

	inv := domain.Invocation{Executable: "cc", Args: []string{"a.c"}, WorkDir: workDir}
	_, err := a.Invoke(context.Background(), inv)
	require.NoError(t, err)

	stats, err := a.Stats()
	require.NoError(t, err)
	require.Equal(t, int64(1), stats.Misses)

	require.NoError(t, a.ZeroStats())
	stats, err = a.Stats()
	require.NoError(t, err)
	require.Equal(t, domain.StatsSnapshot{}, stats)
}

func TestAppClearRemovesEntries(t *testing.T) {
	w := &echoWrapper{}
	a, workDir := newTestApp(t, w)
	require.NoError(t, os.WriteFile(filepath.Join(workDir, "a.c"), []byte("int main(){return 0;}"), 0o644))

	inv := domain.Invocation{Executable: "cc", Args: []string{"a.c"}, WorkDir: workDir}
	_, err := a.Invoke(context.Background(), inv)
	require.NoError(t, err)

	require.NoError(t, a.Clear())
	_, err = os.Stat(filepath.Join(workDir, "a.c.o"))
	require.NoError(t, err, "clearing the store must not touch the work dir's own files")

	require.NoError(t, os.Remove(filepath.Join(workDir, "a.c.o")))
	_, err = a.Invoke(context.Background(), inv)
	require.NoError(t, err)
	require.Equal(t, 2, w.runs, "a cleared store must miss again")
}

func TestExitCode(t *testing.T) {
	require.Equal(t, 0, app.ExitCode(nil))
	require.Equal(t, 1, app.ExitCode(errors.New("boom")))
}

func TestFormatStatsContainsCounters(t *testing.T) {
	out := app.FormatStats(domain.StatsSnapshot{EntryCount: 3, Misses: 5})
	require.Contains(t, out, "cache entries\t3")
	require.Contains(t, out, "cache miss\t5")
}
