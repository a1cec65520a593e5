package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buildcache/buildcache/internal/adapters/fsutil"
	"github.com/buildcache/buildcache/internal/adapters/hash"
	"github.com/buildcache/buildcache/internal/adapters/logger"
	"github.com/buildcache/buildcache/internal/adapters/remote"
	"github.com/buildcache/buildcache/internal/adapters/store"
	"github.com/buildcache/buildcache/internal/adapters/telemetry"
	"github.com/buildcache/buildcache/internal/adapters/wrapper"
	"github.com/buildcache/buildcache/internal/app"
	"github.com/buildcache/buildcache/internal/core/domain"
	"github.com/buildcache/buildcache/internal/core/ports"
	"github.com/buildcache/buildcache/internal/engine/pipeline"
)

func TestClassifyInvocation(t *testing.T) {
	tests := []struct {
		name      string
		argv      []string
		wantTool  string
		wantRest  []string
		wantMaint bool
	}{
		{"symlinked compiler", []string{"/usr/local/bin/gcc", "-c", "a.c"}, "gcc", []string{"-c", "a.c"}, false},
		{"explicit tool form", []string{"/usr/bin/buildcache", "gcc", "-c", "a.c"}, "gcc", []string{"-c", "a.c"}, false},
		{"show-stats short flag", []string{"/usr/bin/buildcache", "-s"}, "", []string{"-s"}, true},
		{"show-stats long flag", []string{"/usr/bin/buildcache", "--show-stats"}, "", []string{"--show-stats"}, true},
		{"stats subcommand", []string{"/usr/bin/buildcache", "stats"}, "", []string{"stats"}, true},
		{"bare invocation", []string{"/usr/bin/buildcache"}, "", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tool, rest, maintenance := classifyInvocation(tt.argv)
			assert.Equal(t, tt.wantTool, tool)
			assert.Equal(t, tt.wantRest, rest)
			assert.Equal(t, tt.wantMaint, maintenance)
		})
	}
}

func newTestApp(t *testing.T) *app.App {
	t.Helper()
	storeDir := t.TempDir()
	s, err := store.New(storeDir, fsutil.New())
	require.NoError(t, err)

	cfg := domain.Config{Dir: storeDir}
	wrappers := []ports.Wrapper{wrapper.NewGeneric()}
	p := pipeline.New(
		wrappers,
		s,
		remote.Cold{},
		nil,
		hash.Factory{},
		fsutil.New(),
		logger.New("error"),
		telemetry.NewNoOpTracer(),
		cfg,
	)
	return app.New(p, s, fsutil.New(), logger.New("error"), cfg)
}

func TestRunInitializationError(t *testing.T) {
	provider := func(context.Context) (*app.Components, error) {
		return nil, errors.New("init failed")
	}

	stderr := new(bytes.Buffer)
	exitCode := run(context.Background(), []string{"/usr/bin/buildcache", "stats"}, io.Discard, stderr, provider)

	assert.Equal(t, 1, exitCode)
	assert.Contains(t, stderr.String(), "Error: init failed")
}

func TestRunVersionCommand(t *testing.T) {
	a := newTestApp(t)
	provider := func(context.Context) (*app.Components, error) {
		return &app.Components{App: a, Logger: logger.New("error")}, nil
	}

	stdout := new(bytes.Buffer)
	exitCode := run(context.Background(), []string{"/usr/bin/buildcache", "version"}, stdout, io.Discard, provider)

	assert.Equal(t, 0, exitCode)
	assert.Contains(t, stdout.String(), "buildcache version")
}

func TestRunWrappedToolPassthrough(t *testing.T) {
	a := newTestApp(t)
	provider := func(context.Context) (*app.Components, error) {
		return &app.Components{App: a, Logger: logger.New("error")}, nil
	}

	stdout := new(bytes.Buffer)
	stderr := new(bytes.Buffer)
	exitCode := run(context.Background(), []string{"/usr/bin/buildcache", "true"}, stdout, stderr, provider)

	assert.Equal(t, 0, exitCode)
}
