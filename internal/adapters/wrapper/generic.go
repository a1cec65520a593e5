package wrapper

import (
	"bytes"
	"errors"
	"os/exec"

	"github.com/buildcache/buildcache/internal/core/domain"
	"go.trai.ch/zerr"
)

// Generic is the fallback wrapper: it accepts any invocation (it's always
// registered last) and runs the tool through unmodified, never caching.
// This is what lets buildcache sit in front of an unrecognized tool as a
// transparent passthrough instead of refusing to run it.
type Generic struct{}

// NewGeneric creates a Generic wrapper.
func NewGeneric() *Generic { return &Generic{} }

func (g *Generic) CanHandle(domain.Invocation) bool { return true }

func (g *Generic) ResolveArgs(inv domain.Invocation) ([]string, error) {
	return append([]string{inv.Executable}, inv.Args...), nil
}

func (g *Generic) ProgramID(domain.Invocation) (domain.ProgramID, error) {
	return "", zerr.Wrap(domain.ErrUnsupportedInvocation, "generic wrapper does not cache")
}

func (g *Generic) RelevantArgs([]string) domain.RelevantArgs { return nil }

func (g *Generic) RelevantEnv(domain.Invocation) map[string]string { return nil }

func (g *Generic) InputFiles([]string, string) ([]string, error) { return nil, nil }

func (g *Generic) ExpectedOutputs([]string, string) ([]domain.OutputSpec, error) {
	return nil, zerr.Wrap(domain.ErrUnsupportedInvocation, "generic wrapper does not cache")
}

func (g *Generic) Preprocess([]string, string, []string, bool) (domain.PreprocessResult, error) {
	return domain.PreprocessResult{}, zerr.Wrap(domain.ErrUnsupportedInvocation, "generic wrapper does not cache")
}

func (g *Generic) Capabilities() map[domain.Capability]bool { return nil }

// RunForMiss runs the tool exactly as invoked, with no argument rewriting.
func (g *Generic) RunForMiss(args []string, workDir string, env []string) (domain.RunResult, error) {
	cmd := exec.Command(args[0], args[1:]...) //nolint:gosec // args[0] is the wrapped tool itself
	cmd.Dir = workDir
	cmd.Env = env
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := domain.RunResult{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		result.ReturnCode = 0
	case errors.As(err, &exitErr):
		result.ReturnCode = exitErr.ExitCode()
	default:
		return result, zerr.Wrap(err, "failed to execute tool")
	}
	return result, nil
}
