package pipeline_test

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/buildcache/buildcache/internal/adapters/fsutil"
	"github.com/buildcache/buildcache/internal/adapters/hash"
	"github.com/buildcache/buildcache/internal/adapters/logger"
	"github.com/buildcache/buildcache/internal/adapters/store"
	"github.com/buildcache/buildcache/internal/adapters/telemetry"
	"github.com/buildcache/buildcache/internal/core/domain"
	"github.com/buildcache/buildcache/internal/core/ports"
	"github.com/buildcache/buildcache/internal/engine/pipeline"
)

// fakeCompiler is a minimal ports.Wrapper stand-in: it treats args[1] as the
// source file and always claims to produce <source>.o, reading the source's
// bytes back as stdout on RunForMiss so tests can tell runs apart.
type fakeCompiler struct {
	runs           *int
	directCapable  bool
	implicitInputs []string
}

func (f *fakeCompiler) CanHandle(domain.Invocation) bool { return true }

func (f *fakeCompiler) ResolveArgs(inv domain.Invocation) ([]string, error) {
	return append([]string{inv.Executable}, inv.Args...), nil
}

func (f *fakeCompiler) ProgramID(domain.Invocation) (domain.ProgramID, error) {
	return "fake-v1", nil
}

func (f *fakeCompiler) RelevantArgs(args []string) domain.RelevantArgs {
	return domain.RelevantArgs(args)
}

func (f *fakeCompiler) RelevantEnv(domain.Invocation) map[string]string { return nil }

func (f *fakeCompiler) InputFiles(args []string, workDir string) ([]string, error) {
	return []string{filepath.Join(workDir, args[1])}, nil
}

func (f *fakeCompiler) ExpectedOutputs(args []string, workDir string) ([]domain.OutputSpec, error) {
	return []domain.OutputSpec{{Path: filepath.Join(workDir, args[1]+".o"), Required: true}}, nil
}

func (f *fakeCompiler) Preprocess(args []string, workDir string, _ []string, directMode bool) (domain.PreprocessResult, error) {
	data, err := os.ReadFile(filepath.Join(workDir, args[1]))
	if err != nil {
		return domain.PreprocessResult{}, err
	}
	// Like a real preprocessor, the output carries the text of every
	// included header, so editing a header changes the preprocessed text.
	for _, inc := range f.implicitInputs {
		text, err := os.ReadFile(inc)
		if err != nil {
			return domain.PreprocessResult{}, err
		}
		data = append(data, text...)
	}
	result := domain.PreprocessResult{Preprocessed: data}
	if directMode {
		result.ImplicitInputs = f.implicitInputs
	}
	return result, nil
}

func (f *fakeCompiler) Capabilities() map[domain.Capability]bool {
	return map[domain.Capability]bool{domain.CapabilityDirectMode: f.directCapable}
}

func (f *fakeCompiler) RunForMiss(args []string, workDir string, _ []string) (domain.RunResult, error) {
	*f.runs++
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

type coldRemote struct{}

func (coldRemote) Has(context.Context, domain.EntryKey) (bool, error) { return false, nil }
func (coldRemote) Get(context.Context, domain.EntryKey) (domain.CacheEntry, bool, error) {
	return domain.CacheEntry{}, false, nil
}
func (coldRemote) Put(context.Context, domain.EntryKey, domain.CacheEntry) error { return nil }
func (coldRemote) ReadOnly() bool                                               { return true }

func newTestPipeline(t *testing.T, w ports.Wrapper, cfg domain.Config) *pipeline.Pipeline {
	t.Helper()
	s, err := store.New(t.TempDir(), fsutil.New())
	require.NoError(t, err)
	return pipeline.New(
		[]ports.Wrapper{w},
		s,
		coldRemote{},
		nil,
		hash.Factory{},
		fsutil.New(),
		logger.New("error"),
		telemetry.NewNoOpTracer(),
		cfg,
	)
}

func writeSource(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestRunMissThenHitSkipsSecondToolInvocation(t *testing.T) {
	workDir := t.TempDir()
	writeSource(t, workDir, "main.c", "int main() { return 0; }")

	runs := 0
	w := &fakeCompiler{runs: &runs, directCapable: false}
	p := newTestPipeline(t, w, domain.Config{DirectMode: false})

	inv := domain.Invocation{Executable: "cc", Args: []string{"main.c"}, WorkDir: workDir}

	first, err := p.Run(context.Background(), inv)
	require.NoError(t, err)
	require.False(t, first.Hit)
	require.Equal(t, 1, runs)

	second, err := p.Run(context.Background(), inv)
	require.NoError(t, err)
	require.True(t, second.Hit)
	require.Equal(t, 1, runs, "second invocation must not re-run the real tool")
	require.Equal(t, first.Stdout, second.Stdout)
}

func TestRunDirectModeHitsWithoutPreprocessingOnUnchangedInputs(t *testing.T) {
	workDir := t.TempDir()
	writeSource(t, workDir, "main.c", "int main() { return 1; }")
	headerPath := filepath.Join(workDir, "util.h")
	writeSource(t, workDir, "util.h", "#define X 1")

	runs := 0
	w := &fakeCompiler{runs: &runs, directCapable: true, implicitInputs: []string{headerPath}}
	p := newTestPipeline(t, w, domain.Config{DirectMode: true})

	inv := domain.Invocation{Executable: "cc", Args: []string{"main.c"}, WorkDir: workDir}

	_, err := p.Run(context.Background(), inv)
	require.NoError(t, err)
	require.Equal(t, 1, runs)

	hit, err := p.Run(context.Background(), inv)
	require.NoError(t, err)
	require.True(t, hit.Hit)
	require.Equal(t, 1, runs)
}

func TestRunDirectModeMissesAfterHeaderChanges(t *testing.T) {
	workDir := t.TempDir()
	writeSource(t, workDir, "main.c", "int main() { return 2; }")
	writeSource(t, workDir, "util.h", "#define X 1")
	headerPath := filepath.Join(workDir, "util.h")

	runs := 0
	w := &fakeCompiler{runs: &runs, directCapable: true, implicitInputs: []string{headerPath}}
	p := newTestPipeline(t, w, domain.Config{DirectMode: true})

	inv := domain.Invocation{Executable: "cc", Args: []string{"main.c"}, WorkDir: workDir}

	_, err := p.Run(context.Background(), inv)
	require.NoError(t, err)
	require.Equal(t, 1, runs)

	writeSource(t, workDir, "util.h", "#define X 2")

	result, err := p.Run(context.Background(), inv)
	require.NoError(t, err)
	require.False(t, result.Hit)
	require.Equal(t, 2, runs, "a changed header must invalidate the manifest and force a rebuild")
}

func TestRunMaterializesObjectFileOnHit(t *testing.T) {
	workDir := t.TempDir()
	writeSource(t, workDir, "main.c", "int main() { return 3; }")

	runs := 0
	w := &fakeCompiler{runs: &runs, directCapable: false}
	p := newTestPipeline(t, w, domain.Config{})

	inv := domain.Invocation{Executable: "cc", Args: []string{"main.c"}, WorkDir: workDir}

	_, err := p.Run(context.Background(), inv)
	require.NoError(t, err)

	objPath := filepath.Join(workDir, "main.c.o")
	require.NoError(t, os.Remove(objPath))

	hit, err := p.Run(context.Background(), inv)
	require.NoError(t, err)
	require.True(t, hit.Hit)

	_, statErr := os.Stat(objPath)
	require.NoError(t, statErr, "a cache hit must rewrite the object file the tool would have produced")
}

// multiOutputCompiler produces two distinct output files per invocation
// (like gcc's object file plus a .gcno coverage note file), so tests can
// check that a replayed cache hit doesn't swap their contents.
type multiOutputCompiler struct {
	fakeCompiler
}

func (c *multiOutputCompiler) ExpectedOutputs(args []string, workDir string) ([]domain.OutputSpec, error) {
	base := filepath.Join(workDir, args[1])
	return []domain.OutputSpec{
		{Path: base + ".o", Required: true},
		{Path: base + ".gcno", Required: true},
	}, nil
}

func (c *multiOutputCompiler) RunForMiss(args []string, workDir string, _ []string) (domain.RunResult, error) {
	*c.runs++
	base := filepath.Join(workDir, args[1])
	if err := os.WriteFile(base+".o", []byte("object-bytes"), 0o644); err != nil {
		return domain.RunResult{}, err
	}
	if err := os.WriteFile(base+".gcno", []byte("coverage-bytes"), 0o644); err != nil {
		return domain.RunResult{}, err
	}
	return domain.RunResult{ReturnCode: 0}, nil
}

func TestRunMaterializesMultipleOutputsWithoutSwappingContent(t *testing.T) {
	workDir := t.TempDir()
	writeSource(t, workDir, "main.c", "int main() { return 0; }")

	runs := 0
	w := &multiOutputCompiler{fakeCompiler: fakeCompiler{runs: &runs, directCapable: false}}
	p := newTestPipeline(t, w, domain.Config{})

	inv := domain.Invocation{Executable: "cc", Args: []string{"main.c"}, WorkDir: workDir}

	_, err := p.Run(context.Background(), inv)
	require.NoError(t, err)

	objPath := filepath.Join(workDir, "main.c.o")
	gcnoPath := filepath.Join(workDir, "main.c.gcno")
	require.NoError(t, os.Remove(objPath))
	require.NoError(t, os.Remove(gcnoPath))

	hit, err := p.Run(context.Background(), inv)
	require.NoError(t, err)
	require.True(t, hit.Hit)

	objData, err := os.ReadFile(objPath)
	require.NoError(t, err)
	gcnoData, err := os.ReadFile(gcnoPath)
	require.NoError(t, err)
	require.Equal(t, "object-bytes", string(objData))
	require.Equal(t, "coverage-bytes", string(gcnoData))
}

// hardLinkingCompiler is a fakeCompiler that advertises
// domain.CapabilityHardLinks, so replayed cache hits are materialized via
// fsutil.LinkOrCopy instead of a fresh AtomicWrite of bytes already held in
// memory.
type hardLinkingCompiler struct {
	fakeCompiler
}

func (c *hardLinkingCompiler) Capabilities() map[domain.Capability]bool {
	return map[domain.Capability]bool{domain.CapabilityHardLinks: true}
}

func TestRunMaterializesLocalHitViaHardLink(t *testing.T) {
	workDir := t.TempDir()
	writeSource(t, workDir, "main.c", "int main() { return 0; }")

	runs := 0
	w := &hardLinkingCompiler{fakeCompiler: fakeCompiler{runs: &runs, directCapable: false}}

	root := t.TempDir()
	s, err := store.New(root, fsutil.New())
	require.NoError(t, err)
	p := pipeline.New(
		[]ports.Wrapper{w}, s, coldRemote{}, nil,
		hash.Factory{}, fsutil.New(), logger.New("error"), telemetry.NewNoOpTracer(), domain.Config{},
	)

	inv := domain.Invocation{Executable: "cc", Args: []string{"main.c"}, WorkDir: workDir}

	_, err = p.Run(context.Background(), inv)
	require.NoError(t, err)

	objPath := filepath.Join(workDir, "main.c.o")
	require.NoError(t, os.Remove(objPath))

	hit, err := p.Run(context.Background(), inv)
	require.NoError(t, err)
	require.True(t, hit.Hit)

	var storedPath string
	require.NoError(t, filepath.WalkDir(filepath.Join(root, "c", "entries"), func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || d.Name() != "object" {
			return err
		}
		storedPath = path
		return nil
	}))
	require.NotEmpty(t, storedPath, "expected a published artifact file named \"object\" under the entries shard")

	replayedInfo, err := os.Stat(objPath)
	require.NoError(t, err)
	storedInfo, err := os.Stat(storedPath)
	require.NoError(t, err)
	require.True(t, os.SameFile(replayedInfo, storedInfo), "a hard-link-capable replay must share the stored artifact's inode")
}

type unsupportedWrapper struct {
	runs *int
}

func (unsupportedWrapper) CanHandle(domain.Invocation) bool { return true }

func (unsupportedWrapper) ResolveArgs(inv domain.Invocation) ([]string, error) {
	return append([]string{inv.Executable}, inv.Args...), nil
}

func (unsupportedWrapper) ProgramID(domain.Invocation) (domain.ProgramID, error) {
	return "", domain.ErrUnsupportedInvocation
}

func (unsupportedWrapper) RelevantArgs([]string) domain.RelevantArgs { return nil }
func (unsupportedWrapper) RelevantEnv(domain.Invocation) map[string]string { return nil }
func (unsupportedWrapper) InputFiles([]string, string) ([]string, error)   { return nil, nil }

func (unsupportedWrapper) ExpectedOutputs([]string, string) ([]domain.OutputSpec, error) {
	return nil, nil
}

func (unsupportedWrapper) Preprocess([]string, string, []string, bool) (domain.PreprocessResult, error) {
	return domain.PreprocessResult{}, domain.ErrUnsupportedInvocation
}

func (unsupportedWrapper) Capabilities() map[domain.Capability]bool { return nil }

func (w unsupportedWrapper) RunForMiss(args []string, workDir string, _ []string) (domain.RunResult, error) {
	*w.runs++
	return domain.RunResult{Stdout: []byte("ran"), ReturnCode: 0}, nil
}

func TestRunUnsupportedInvocationPassesThroughSilently(t *testing.T) {
	workDir := t.TempDir()
	runs := 0
	w := unsupportedWrapper{runs: &runs}
	p := newTestPipeline(t, w, domain.Config{})

	inv := domain.Invocation{Executable: "ld", Args: []string{"-o", "a.out"}, WorkDir: workDir}

	result, err := p.Run(context.Background(), inv)
	require.NoError(t, err)
	require.False(t, result.Hit)
	require.Equal(t, []byte("ran"), result.Stdout)
	require.Equal(t, 1, runs)
}

func TestRunDisabledAlwaysRunsRealTool(t *testing.T) {
	workDir := t.TempDir()
	writeSource(t, workDir, "main.c", "int main() { return 4; }")

	runs := 0
	w := &fakeCompiler{runs: &runs, directCapable: false}
	p := newTestPipeline(t, w, domain.Config{Disabled: true})

	inv := domain.Invocation{Executable: "cc", Args: []string{"main.c"}, WorkDir: workDir}

	_, err := p.Run(context.Background(), inv)
	require.NoError(t, err)
	_, err = p.Run(context.Background(), inv)
	require.NoError(t, err)

	require.Equal(t, 2, runs, "a disabled cache must never short-circuit the real tool")
}

// capturingCompiler records the exact args it was run with, so tests can
// check prefix_command rewriting without the source/object-file juggling
// fakeCompiler does.
type capturingCompiler struct {
	fakeCompiler
	lastArgs []string
}

func (c *capturingCompiler) RunForMiss(args []string, workDir string, env []string) (domain.RunResult, error) {
	c.lastArgs = append([]string(nil), args...)
	return c.fakeCompiler.RunForMiss(args[len(args)-2:], workDir, env)
}

func TestRunPrefixesRealToolInvocationWithConfiguredCommand(t *testing.T) {
	workDir := t.TempDir()
	writeSource(t, workDir, "main.c", "int main() { return 0; }")

	runs := 0
	w := &capturingCompiler{fakeCompiler: fakeCompiler{runs: &runs, directCapable: false}}
	p := newTestPipeline(t, w, domain.Config{PrefixCommand: []string{"distcc"}})

	inv := domain.Invocation{Executable: "cc", Args: []string{"main.c"}, WorkDir: workDir}

	_, err := p.Run(context.Background(), inv)
	require.NoError(t, err)
	require.Equal(t, []string{"distcc", "cc", "main.c"}, w.lastArgs)
}

func TestRunWithNoPrefixCommandLeavesArgsUnchanged(t *testing.T) {
	workDir := t.TempDir()
	writeSource(t, workDir, "main.c", "int main() { return 0; }")

	runs := 0
	w := &capturingCompiler{fakeCompiler: fakeCompiler{runs: &runs, directCapable: false}}
	p := newTestPipeline(t, w, domain.Config{})

	inv := domain.Invocation{Executable: "cc", Args: []string{"main.c"}, WorkDir: workDir}

	_, err := p.Run(context.Background(), inv)
	require.NoError(t, err)
	require.Equal(t, []string{"cc", "main.c"}, w.lastArgs)
}
