// Package main is the entry point for the buildcache front end.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/grindlemire/graft"

	"github.com/buildcache/buildcache/cmd/buildcache/commands"
	"github.com/buildcache/buildcache/internal/app"
	"github.com/buildcache/buildcache/internal/core/domain"
	_ "github.com/buildcache/buildcache/internal/wiring"
)

// selfName is the front-end binary's own name. A symlink installed under any
// other name (gcc, clang, cl, …) is what turns an ordinary compiler
// invocation into a wrapped one (§6).
const selfName = "buildcache"

// maintenanceTokens are the flags and discoverability subcommands that mean
// "this is a maintenance invocation", checked against argv[1] before cobra
// ever gets a chance to parse compiler-style flags like -c or -o.
var maintenanceTokens = map[string]bool{
	"-s": true, "--show-stats": true,
	"-z": true, "--zero-stats": true,
	"-C": true, "--clear": true,
	"-c": true, "--get-config": true,
	"-h": true, "--help": true,
	"--version": true,
	"stats":         true,
	"zero-stats":    true,
	"clear":         true,
	"config":        true,
	"version":       true,
	"help":          true,
	"dump-manifest": true,
}

// ComponentProvider resolves the application's Graft component graph.
type ComponentProvider func(context.Context) (*app.Components, error)

func main() {
	os.Exit(run(context.Background(), os.Args, os.Stdout, os.Stderr, func(ctx context.Context) (*app.Components, error) {
		c, _, err := graft.ExecuteFor[*app.Components](ctx)
		return c, err
	}))
}

func run(ctx context.Context, argv []string, stdout, stderr io.Writer, provider ComponentProvider) int {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	components, err := provider(ctx)
	if err != nil {
		// §7 ConfigError/Internal at startup: print and exit 1 before
		// running anything. The logger isn't available yet, so this goes
		// straight to the stderr the caller gave us.
		fmt.Fprintln(stderr, "Error: "+err.Error())
		return 1
	}

	tool, rest, maintenance := classifyInvocation(argv)
	if maintenance {
		cli := commands.New(components.App)
		cli.SetArgs(rest)
		cli.SetOutput(stdout, stderr)
		if err := cli.Execute(ctx); err != nil {
			components.Logger.Error(err)
			return app.ExitCode(err)
		}
		return 0
	}

	return invokeWrappedTool(ctx, components.App, tool, rest, stdout, stderr)
}

// classifyInvocation decides whether argv is a maintenance command or a
// wrapped-tool invocation, and for the latter recovers the real tool name
// and its arguments. rest is always the argument slice the chosen mode
// should act on.
func classifyInvocation(argv []string) (tool string, rest []string, maintenance bool) {
	base := filepath.Base(argv[0])
	if base != selfName {
		// Invoked via a compiler-named symlink: everything after argv[0]
		// belongs to the wrapped tool.
		return base, argv[1:], false
	}
	if len(argv) < 2 {
		return "", nil, true
	}
	if maintenanceTokens[argv[1]] {
		return "", argv[1:], true
	}
	// `buildcache <tool> args…`
	return argv[1], argv[2:], false
}

func invokeWrappedTool(ctx context.Context, a *app.App, tool string, args []string, stdout, stderr io.Writer) int {
	if tool == "" {
		fmt.Fprintln(stderr, "Error: no tool given")
		return 1
	}

	selfPath, _ := os.Executable()
	resolved, err := a.ResolveExecutable(tool, os.Getenv("PATH"), selfPath)
	if err != nil {
		fmt.Fprintln(stderr, "Error: "+err.Error())
		return 1
	}

	workDir, err := os.Getwd()
	if err != nil {
		fmt.Fprintln(stderr, "Error: "+err.Error())
		return 1
	}

	inv := domain.Invocation{
		Executable: resolved,
		Args:       args,
		Env:        os.Environ(),
		WorkDir:    workDir,
	}

	result, err := a.Invoke(ctx, inv)
	if err != nil {
		fmt.Fprintln(stderr, "Error: "+err.Error())
		return app.ExitCode(err)
	}
	_, _ = stdout.Write(result.Stdout)
	_, _ = stderr.Write(result.Stderr)
	return result.ReturnCode
}
