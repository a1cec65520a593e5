// Package wrapper implements the tool-adapter contract (component E):
// GCC/Clang-, MSVC-, and generic-style front ends that know how to extract
// the relevant arguments, inputs, and outputs from a given compiler
// invocation.
package wrapper

import (
	"bytes"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/buildcache/buildcache/internal/core/domain"
	"github.com/buildcache/buildcache/internal/core/ports"
	"go.trai.ch/zerr"
)

// hashVersion is bumped whenever the relevant-argument or program-ID
// extraction logic changes in a way that would silently collide with
// previously published keys.
const hashVersion = "3"

var (
	clangNameRe = regexp.MustCompile(`.*clang(\+\+|-cpp)?(-[1-9][0-9]*(\.[0-9]+)*)?(\.exe)?$`)
	includeRe   = regexp.MustCompile(`^\.+\s+(\S.*\S|\S)\s*$`)

	pathArgs = map[string]bool{"-I": true, "-MF": true, "-MT": true, "-MQ": true, "-o": true}

	debugOptions = map[string]bool{
		"-g": true, "-ggdb": true, "-gdwarf": true, "-gdwarf-2": true, "-gdwarf-3": true,
		"-gdwarf-4": true, "-gdwarf-5": true, "-gstabs": true, "-gstabs+": true,
		"-gxcoff": true, "-gxcoff+": true, "-gvms": true,
	}
	coverageOptions = map[string]bool{"-ftest-coverage": true, "-fprofile-arcs": true, "--coverage": true}

	sourceExts = map[string]bool{".c": true, ".cc": true, ".cpp": true, ".cxx": true}
)

// GCCLike implements ports.Wrapper for gcc, g++, and clang-family front
// ends (excluding clang-cl, which the MSVC-style wrapper claims instead).
type GCCLike struct {
	fs     ports.FileOps
	toolID ports.ToolIDCache
}

// NewGCCLike creates a GCCLike wrapper. toolID memoizes program-identity
// lookups (spawning "--version" is the expensive part).
func NewGCCLike(fs ports.FileOps, toolID ports.ToolIDCache) *GCCLike {
	return &GCCLike{fs: fs, toolID: toolID}
}

// CanHandle recognizes gcc/g++/clang family executable names, but defers to
// the MSVC-style wrapper for clang-cl.
func (g *GCCLike) CanHandle(inv domain.Invocation) bool {
	name := strings.ToLower(filepath.Base(inv.Executable))
	if name == "clang-cl" || name == "clang-cl.exe" {
		return false
	}
	if strings.Contains(name, "gcc") || strings.Contains(name, "g++") {
		return true
	}
	return clangNameRe.MatchString(name)
}

// ResolveArgs expands @file response files into the effective argv.
func (g *GCCLike) ResolveArgs(inv domain.Invocation) ([]string, error) {
	return append([]string{inv.Executable}, expandArgs(inv.Args)...), nil
}

// ProgramID returns the compiler's own "--version" banner, prefixed by the
// hash-format epoch, so bumping hashVersion or the compiler build both
// invalidate prior entries. The result is memoized per executable path and
// mtime.
func (g *GCCLike) ProgramID(inv domain.Invocation) (domain.ProgramID, error) {
	var mtime int64
	if info, err := os.Stat(inv.Executable); err == nil {
		mtime = info.ModTime().UnixNano()
	}

	id, err := g.toolID.ToolID(inv.Executable, mtime, func() (string, error) {
		cmd := exec.Command(inv.Executable, "--version") //nolint:gosec // executable is the wrapped tool itself
		cmd.Dir = inv.WorkDir
		var out bytes.Buffer
		cmd.Stdout = &out
		if err := cmd.Run(); err != nil {
			return "", zerr.Wrap(err, "failed to query compiler version")
		}
		return hashVersion + out.String(), nil
	})
	if err != nil {
		return "", err
	}
	return domain.ProgramID(id), nil
}

// RelevantArgs filters args per gcc_wrapper's get_relevant_arguments: drop
// include/define/dependency flags and source file names (they're captured
// by the preprocessed text instead), and skip any path argument's value.
func (g *GCCLike) RelevantArgs(args []string) domain.RelevantArgs {
	if len(args) == 0 {
		return nil
	}
	filtered := domain.RelevantArgs{filepath.Base(args[0])}

	skipNext := true // first arg already handled above
	for _, arg := range args {
		if skipNext {
			skipNext = false
			continue
		}
		if pathArgs[arg] {
			skipNext = true
			continue
		}
		if isUnwantedArg(arg) {
			continue
		}
		filtered = append(filtered, arg)
	}
	return filtered
}

func isUnwantedArg(arg string) bool {
	if strings.HasPrefix(arg, "-I") || strings.HasPrefix(arg, "-D") || strings.HasPrefix(arg, "-M") {
		return true
	}
	if strings.HasPrefix(arg, "--sysroot=") {
		return true
	}
	return isSourceFile(arg)
}

func isSourceFile(arg string) bool {
	return sourceExts[strings.ToLower(filepath.Ext(arg))]
}

// RelevantEnv reports no environment variables as relevant for gcc/clang,
// matching the original wrapper's own (documented as incomplete) answer.
func (g *GCCLike) RelevantEnv(_ domain.Invocation) map[string]string {
	return nil
}

// InputFiles returns every source file named on the command line,
// canonicalized relative to workDir.
func (g *GCCLike) InputFiles(args []string, workDir string) ([]string, error) {
	var inputs []string
	skipNext := true
	for _, arg := range args {
		if skipNext {
			skipNext = false
			continue
		}
		if pathArgs[arg] {
			skipNext = true
			continue
		}
		if isSourceFile(arg) {
			resolved, err := g.fs.ResolvePath(joinIfRelative(workDir, arg))
			if err != nil {
				return nil, err
			}
			inputs = append(inputs, resolved)
		}
	}
	return inputs, nil
}

func joinIfRelative(workDir, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(workDir, path)
}

// ExpectedOutputs returns the -o target as the sole required output, plus a
// .gcno coverage side-file when coverage instrumentation is requested.
func (g *GCCLike) ExpectedOutputs(args []string, workDir string) ([]domain.OutputSpec, error) {
	var object string
	for i, arg := range args {
		if arg == "-o" && i+1 < len(args) {
			if object != "" {
				return nil, zerr.New("only a single target object file can be specified")
			}
			object = joinIfRelative(workDir, args[i+1])
		}
	}
	if object == "" {
		return nil, zerr.Wrap(domain.ErrUnsupportedInvocation, "unable to determine target object file")
	}

	outputs := []domain.OutputSpec{{Path: object, Required: true}}
	if hasAny(args, coverageOptions) {
		ext := filepath.Ext(object)
		gcno := strings.TrimSuffix(object, ext) + ".gcno"
		outputs = append(outputs, domain.OutputSpec{Path: gcno, Required: false})
	}
	return outputs, nil
}

func hasAny(args []string, set map[string]bool) bool {
	for _, a := range args {
		if set[a] {
			return true
		}
	}
	return false
}

// Preprocess runs the compiler in "-E" mode to obtain preprocessed text,
// optionally adding "-H" to capture the implicit include list for
// direct-mode (§ gcc_wrapper_t::preprocess_source).
func (g *GCCLike) Preprocess(args []string, workDir string, env []string, directMode bool) (domain.PreprocessResult, error) {
	if !hasAny(args, map[string]bool{"-c": true}) {
		return domain.PreprocessResult{}, zerr.Wrap(domain.ErrUnsupportedInvocation, "not an object compilation")
	}

	preArgs := makePreprocessorArgs(args, directMode)

	cmd := exec.Command(args[0], preArgs[1:]...) //nolint:gosec // args[0] is the wrapped compiler itself
	cmd.Dir = workDir
	cmd.Env = env
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return domain.PreprocessResult{}, zerr.Wrap(err, "preprocessing command was unsuccessful")
	}

	result := domain.PreprocessResult{Preprocessed: stdout.Bytes()}
	if directMode {
		result.ImplicitInputs = parseIncludeFiles(stderr.String())
	}
	return result, nil
}

// makePreprocessorArgs mirrors make_preprocessor_cmd: drop "-c" and "-o
// <file>", then append "-E [-P] -o <stdout-placeholder> [-H]". Since the
// Go wrapper captures stdout directly rather than writing to a temp file,
// "-o" is omitted entirely and the compiler's own stdout is used.
func makePreprocessorArgs(args []string, directMode bool) []string {
	filtered := make([]string, 0, len(args))
	dropNext := false
	for _, arg := range args {
		dropThis := dropNext
		dropNext = false
		switch arg {
		case "-c":
			dropThis = true
		case "-o":
			dropThis = true
			dropNext = true
		}
		if !dropThis {
			filtered = append(filtered, arg)
		}
	}

	inhibitLineInfo := !(hasAny(args, debugOptions) || hasAny(args, coverageOptions))
	filtered = append(filtered, "-E")
	if inhibitLineInfo {
		filtered = append(filtered, "-P")
	}
	if directMode {
		filtered = append(filtered, "-H")
	}
	return filtered
}

// parseIncludeFiles extracts header paths from gcc -H's stderr output,
// where each included header is reported as one or more dots, a space, and
// the resolved path.
func parseIncludeFiles(stderrText string) []string {
	seen := map[string]bool{}
	var includes []string
	for _, line := range strings.Split(stderrText, "\n") {
		m := includeRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		path := strings.TrimSpace(m[1])
		if path == "" || seen[path] {
			continue
		}
		seen[path] = true
		includes = append(includes, path)
	}
	return includes
}

// Capabilities reports direct-mode and hard-link support, matching
// gcc_wrapper_t::get_capabilities: GCC never overwrites an already-existing
// output file out from under a hard link.
func (g *GCCLike) Capabilities() map[domain.Capability]bool {
	return map[domain.Capability]bool{
		domain.CapabilityDirectMode: true,
		domain.CapabilityHardLinks:  true,
	}
}

// RunForMiss invokes the real compiler and captures its result.
func (g *GCCLike) RunForMiss(args []string, workDir string, env []string) (domain.RunResult, error) {
	cmd := exec.Command(args[0], args[1:]...) //nolint:gosec // args[0] is the wrapped compiler itself
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
		return result, zerr.Wrap(err, "failed to execute compiler")
	}
	return result, nil
}
