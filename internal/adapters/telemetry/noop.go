package telemetry

import (
	"context"

	"github.com/buildcache/buildcache/internal/core/ports"
)

// NoOpTracer discards every span; used when tracing is disabled.
type NoOpTracer struct{}

// NewNoOpTracer creates a NoOpTracer.
func NewNoOpTracer() *NoOpTracer {
	return &NoOpTracer{}
}

func (t *NoOpTracer) Start(ctx context.Context, _ string) (context.Context, ports.Span) {
	return ctx, &noOpSpan{}
}

type noOpSpan struct{}

func (s *noOpSpan) End()                          {}
func (s *noOpSpan) RecordError(_ error)           {}
func (s *noOpSpan) SetAttribute(_ string, _ any)  {}
func (s *noOpSpan) Write(p []byte) (int, error)   { return len(p), nil }
