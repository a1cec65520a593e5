package wrapper

import (
	"bytes"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/buildcache/buildcache/internal/core/domain"
	"github.com/buildcache/buildcache/internal/core/ports"
	"go.trai.ch/zerr"
)

const msvcHashVersion = "1"

const showIncludesPrefix = "Note: including file:"

// MSVCLike implements ports.Wrapper for cl.exe and clang-cl, whose flag
// syntax (leading "/" or "-", no space before an option's value) differs
// enough from gcc's that it gets its own, thinner adapter rather than
// branching inside GCCLike.
type MSVCLike struct {
	fs     ports.FileOps
	toolID ports.ToolIDCache
}

// NewMSVCLike creates an MSVCLike wrapper.
func NewMSVCLike(fs ports.FileOps, toolID ports.ToolIDCache) *MSVCLike {
	return &MSVCLike{fs: fs, toolID: toolID}
}

func (m *MSVCLike) CanHandle(inv domain.Invocation) bool {
	name := strings.ToLower(filepath.Base(inv.Executable))
	return name == "cl.exe" || name == "cl" || name == "clang-cl" || name == "clang-cl.exe"
}

func (m *MSVCLike) ResolveArgs(inv domain.Invocation) ([]string, error) {
	return append([]string{inv.Executable}, expandArgs(inv.Args)...), nil
}

func (m *MSVCLike) ProgramID(inv domain.Invocation) (domain.ProgramID, error) {
	var mtime int64
	if info, err := os.Stat(inv.Executable); err == nil {
		mtime = info.ModTime().UnixNano()
	}

	id, err := m.toolID.ToolID(inv.Executable, mtime, func() (string, error) {
		// cl.exe prints its version banner to stderr even with no arguments.
		cmd := exec.Command(inv.Executable) //nolint:gosec // executable is the wrapped tool itself
		cmd.Dir = inv.WorkDir
		var out bytes.Buffer
		cmd.Stderr = &out
		_ = cmd.Run() // cl.exe with no input exits non-zero; the banner is still captured.
		return msvcHashVersion + out.String(), nil
	})
	if err != nil {
		return "", err
	}
	return domain.ProgramID(id), nil
}

// RelevantArgs keeps every flag except the object-output and
// debug-format-only flags, matching the intent of the original wrapper's
// preprocessor-arg filter (it never separately implemented a relevant-args
// filter; caching relies on the preprocessed text for everything else).
func (m *MSVCLike) RelevantArgs(args []string) domain.RelevantArgs {
	if len(args) == 0 {
		return nil
	}
	filtered := domain.RelevantArgs{filepath.Base(args[0])}
	for _, arg := range args[1:] {
		if argStartsWith(arg, "Fo") || isSourceFile(arg) {
			continue
		}
		filtered = append(filtered, arg)
	}
	return filtered
}

func (m *MSVCLike) RelevantEnv(inv domain.Invocation) map[string]string {
	env := inv.EnvMap()
	if v, ok := env["VS_UNICODE_OUTPUT"]; ok {
		return map[string]string{"VS_UNICODE_OUTPUT": v}
	}
	return nil
}

func (m *MSVCLike) InputFiles(args []string, workDir string) ([]string, error) {
	var inputs []string
	for _, arg := range args {
		if isSourceFile(arg) {
			resolved, err := m.fs.ResolvePath(joinIfRelative(workDir, arg))
			if err != nil {
				return nil, err
			}
			inputs = append(inputs, resolved)
		}
	}
	return inputs, nil
}

func (m *MSVCLike) ExpectedOutputs(args []string, workDir string) ([]domain.OutputSpec, error) {
	object, err := objectFilename(args, workDir)
	if err != nil {
		return nil, err
	}
	return []domain.OutputSpec{{Path: object, Required: true}}, nil
}

func objectFilename(args []string, workDir string) (string, error) {
	var object string
	for i, arg := range args {
		if !argStartsWith(arg, "Fo") {
			continue
		}
		value := dropLeadingColon(arg[3:])
		if isObjectFile(value) {
			if object != "" {
				return "", zerr.New("only a single target object file can be specified")
			}
			object = joinIfRelative(workDir, value)
		} else if strings.HasSuffix(value, string(filepath.Separator)) && i == len(args)-1 {
			continue // a bare "/Fo<dir>\" with no trailing input is unsupported here
		}
	}
	if object == "" {
		return "", zerr.Wrap(domain.ErrUnsupportedInvocation, "unable to determine target object file")
	}
	return object, nil
}

func argStartsWith(arg, prefix string) bool {
	if len(arg) < 1 || (arg[0] != '/' && arg[0] != '-') {
		return false
	}
	return strings.HasPrefix(arg[1:], prefix)
}

func dropLeadingColon(s string) string {
	return strings.TrimPrefix(s, ":")
}

func isObjectFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".obj" || ext == ".o"
}

// Preprocess runs cl.exe in "/E" or "/EP" mode, capturing /showIncludes
// output for direct mode.
func (m *MSVCLike) Preprocess(args []string, workDir string, env []string, directMode bool) (domain.PreprocessResult, error) {
	preArgs := makeMSVCPreprocessorArgs(args, directMode)

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
		result.ImplicitInputs = parseShowIncludes(stderr.String())
	}
	return result, nil
}

func makeMSVCPreprocessorArgs(args []string, directMode bool) []string {
	filtered := make([]string, 0, len(args))
	inhibitLineInfo := true
	for _, arg := range args {
		drop := argEquals(arg, "c") || argStartsWith(arg, "Fo") || argEquals(arg, "C") ||
			argEquals(arg, "E") || argEquals(arg, "EP")
		if argEquals(arg, "Z7") || argEquals(arg, "Zi") || argEquals(arg, "ZI") {
			inhibitLineInfo = false
		}
		if !drop {
			filtered = append(filtered, arg)
		}
	}
	if inhibitLineInfo {
		filtered = append(filtered, "/EP")
	} else {
		filtered = append(filtered, "/E")
	}
	if directMode {
		filtered = append(filtered, "/showIncludes")
	}
	return filtered
}

func argEquals(arg, flag string) bool {
	if len(arg) < 1 || (arg[0] != '/' && arg[0] != '-') {
		return false
	}
	return arg[1:] == flag
}

func parseShowIncludes(stderrText string) []string {
	seen := map[string]bool{}
	var includes []string
	for _, line := range strings.Split(stderrText, "\n") {
		idx := strings.Index(line, showIncludesPrefix)
		if idx < 0 {
			continue
		}
		path := strings.TrimSpace(line[idx+len(showIncludesPrefix):])
		if path == "" || seen[path] {
			continue
		}
		seen[path] = true
		includes = append(includes, path)
	}
	return includes
}

// Capabilities reports direct-mode support only: cl.exe can overwrite an
// existing .obj in place, so hard-linking replayed artifacts back out would
// let a later unrelated write corrupt a different cache entry.
func (m *MSVCLike) Capabilities() map[domain.Capability]bool {
	return map[domain.Capability]bool{domain.CapabilityDirectMode: true}
}

func (m *MSVCLike) RunForMiss(args []string, workDir string, env []string) (domain.RunResult, error) {
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
