// Package observability lets uvbrew report what it is doing without
// committing to a metrics or tracing backend.
//
// Two event sources exist. The pipeline runner reports each of its three
// stages (reading pyproject.toml, resolving the project's sdist, exporting
// the lock), and the index client in pkg/integrations reports every HTTP
// request it makes. Both go through process-wide registries that default to
// no-ops; the CLI installs an implementation that logs at debug level.
//
//	observability.SetPipelineHooks(myHooks)
//	observability.SetHTTPHooks(myHooks)
//
// Emitting side:
//
//	observability.Pipeline().OnStageStart(ctx, observability.StageLock)
//	pkgs, err := lock.Resolve(ctx, tool, root, opts)
//	observability.Pipeline().OnStageComplete(ctx, observability.StageLock, time.Since(start), err)
package observability

import (
	"context"
	"sync"
	"time"
)

// Stage names passed to [PipelineHooks], in execution order.
const (
	StageManifest = "manifest" // reading pyproject.toml
	StageArtifact = "artifact" // index lookup or local build
	StageLock     = "lock"     // uv export
)

// PipelineHooks observes pipeline stages. OnStageComplete receives the
// stage's error, nil on success.
type PipelineHooks interface {
	OnStageStart(ctx context.Context, stage string)
	OnStageComplete(ctx context.Context, stage string, duration time.Duration, err error)
}

// HTTPHooks observes index traffic. Every request produces OnRequest
// followed by exactly one of OnResponse (any status, including 404) or
// OnError (the request never got a response).
type HTTPHooks interface {
	OnRequest(ctx context.Context, method, host, path string)
	OnResponse(ctx context.Context, method, host, path string, statusCode int, duration time.Duration)
	OnError(ctx context.Context, method, host, path string, err error)
}

// NoopPipelineHooks discards pipeline events.
type NoopPipelineHooks struct{}

func (NoopPipelineHooks) OnStageStart(context.Context, string)                          {}
func (NoopPipelineHooks) OnStageComplete(context.Context, string, time.Duration, error) {}

// NoopHTTPHooks discards HTTP events.
type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnRequest(context.Context, string, string, string)                      {}
func (NoopHTTPHooks) OnResponse(context.Context, string, string, string, int, time.Duration) {}
func (NoopHTTPHooks) OnError(context.Context, string, string, string, error)                 {}

var (
	mu            sync.RWMutex
	pipelineHooks PipelineHooks = NoopPipelineHooks{}
	httpHooks     HTTPHooks     = NoopHTTPHooks{}
)

// SetPipelineHooks installs h. A nil h leaves the current hooks in place.
func SetPipelineHooks(h PipelineHooks) {
	if h == nil {
		return
	}
	mu.Lock()
	pipelineHooks = h
	mu.Unlock()
}

// SetHTTPHooks installs h. A nil h leaves the current hooks in place.
func SetHTTPHooks(h HTTPHooks) {
	if h == nil {
		return
	}
	mu.Lock()
	httpHooks = h
	mu.Unlock()
}

// Pipeline returns the installed pipeline hooks.
func Pipeline() PipelineHooks {
	mu.RLock()
	defer mu.RUnlock()
	return pipelineHooks
}

// HTTP returns the installed HTTP hooks.
func HTTP() HTTPHooks {
	mu.RLock()
	defer mu.RUnlock()
	return httpHooks
}

// Reset reinstalls the no-op hooks. Tests that install hooks call it on cleanup.
func Reset() {
	mu.Lock()
	pipelineHooks = NoopPipelineHooks{}
	httpHooks = NoopHTTPHooks{}
	mu.Unlock()
}
