package ports

import "github.com/buildcache/buildcache/internal/core/domain"

// Wrapper is the tool-adapter contract (component E). Adapters are selected
// by matching the invoked program's file name against adapter-declared
// patterns; the first that accepts wins.
//
//go:generate go run go.uber.org/mock/mockgen -source=wrapper.go -destination=mocks/mock_wrapper.go -package=mocks
type Wrapper interface {
	// CanHandle is a pure, cheap predicate over the raw invocation.
	CanHandle(inv domain.Invocation) bool

	// ResolveArgs expands response files (@file) and returns the invocation's
	// effective argv with the executable as args[0]. Environment-variable
	// references in arguments or response files are passed through
	// unexpanded, and no tool-specific aliasing is applied.
	ResolveArgs(inv domain.Invocation) ([]string, error)

	// ProgramID returns this tool build's stable identity: hash-format epoch
	// plus version-banner bytes.
	ProgramID(inv domain.Invocation) (domain.ProgramID, error)

	// RelevantArgs returns the deterministic filter over arguments.
	RelevantArgs(args []string) domain.RelevantArgs

	// RelevantEnv returns the subset of environment variables known to
	// influence output.
	RelevantEnv(inv domain.Invocation) map[string]string

	// InputFiles returns the explicit sources named on the command line,
	// canonicalized.
	InputFiles(args []string, workDir string) ([]string, error)

	// ExpectedOutputs returns the outputs the tool will produce. Exactly one
	// must be Required.
	ExpectedOutputs(args []string, workDir string) ([]domain.OutputSpec, error)

	// Preprocess runs the tool in "emit preprocessed text" mode. Returns
	// domain.ErrUnsupportedInvocation if the command cannot be cached.
	Preprocess(args []string, workDir string, env []string, directMode bool) (domain.PreprocessResult, error)

	// Capabilities returns the subset of optional features this wrapper supports.
	Capabilities() map[domain.Capability]bool

	// RunForMiss invokes the real tool and captures stdout, stderr, return
	// code, and produced files.
	RunForMiss(args []string, workDir string, env []string) (domain.RunResult, error)
}
