// Package reload wires the file watcher, build runner, protocol handler and
// server lifecycle into the hot-reload loop (the Orchestrator, component J
// in spec.md §2): watch for a debounced batch of changed files, build,
// restart the child, reconnect the protocol handler, and notify the client
// if its session had already completed initialization.
package reload

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/cordwainer/mcpwatch/internal/build"
	"github.com/cordwainer/mcpwatch/internal/lifecycle"
	"github.com/cordwainer/mcpwatch/internal/metrics"
	"github.com/cordwainer/mcpwatch/internal/protocol"
	"github.com/cordwainer/mcpwatch/internal/watch"
)

// Orchestrator drives one hot-reload cycle at a time: wait for a file
// change, build, restart, reconnect.
type Orchestrator struct {
	watcher   *watch.Watcher
	builder   *build.Runner
	lifecycle *lifecycle.Lifecycle
	handler   *protocol.Handler
	logger    *slog.Logger
	metrics   *metrics.Metrics
	tracer    trace.Tracer

	restarting atomic.Bool
}

// New assembles an Orchestrator from its already-constructed parts.
func New(w *watch.Watcher, b *build.Runner, lc *lifecycle.Lifecycle, h *protocol.Handler, m *metrics.Metrics, tracer trace.Tracer, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if tracer == nil {
		tracer = trace.NewNoopTracerProvider().Tracer("mcpwatch")
	}
	return &Orchestrator{watcher: w, builder: b, lifecycle: lc, handler: h, metrics: m, tracer: tracer, logger: logger}
}

// Run starts the watcher and blocks running hot-reload cycles until ctx is
// canceled.
func (o *Orchestrator) Run(ctx context.Context) error {
	if err := o.watcher.Start(); err != nil {
		return fmt.Errorf("start file watcher: %w", err)
	}
	defer o.watcher.Stop()
	stopOnCancel := context.AfterFunc(ctx, func() { _ = o.watcher.Stop() })
	defer stopOnCancel()

	for {
		changed, ok := o.watcher.WaitForChange()
		if !ok {
			return ctx.Err()
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		// A cycle already in flight collapses this trigger — any files it
		// touched will resurface in the next debounced batch anyway, since
		// the watcher keeps watching while a restart runs.
		if !o.restarting.CompareAndSwap(false, true) {
			continue
		}
		o.runCycle(ctx, changed)
		o.restarting.Store(false)
	}
}

func (o *Orchestrator) runCycle(ctx context.Context, changed []string) {
	ctx, span := o.tracer.Start(ctx, "hot_reload.cycle")
	defer span.End()
	span.SetAttributes(attribute.Int("files.changed", len(changed)))

	o.logger.Info("file change detected, rebuilding", "files", changed)

	buildCtx, buildSpan := o.tracer.Start(ctx, "build.run")
	buildStart := time.Now()
	result := o.builder.Run(buildCtx)
	buildDuration := time.Since(buildStart)
	buildSpan.End()

	if result.Canceled {
		o.logger.Debug("build canceled")
		return
	}

	if o.metrics != nil {
		o.metrics.BuildDurationSecond.Observe(buildDuration.Seconds())
	}

	if !result.Success {
		if o.metrics != nil {
			o.metrics.BuildFailuresTotal.Inc()
		}
		span.SetStatus(codes.Error, "build failed")
		o.logger.Warn("build failed, keeping current server", "output", result.Output, "error", result.Err)
		return
	}

	wasInitialized := o.handler.SessionState().Initialized()

	_, restartSpan := o.tracer.Start(ctx, "lifecycle.restart")
	o.handler.DisconnectServer()
	conn, err := o.lifecycle.Restart(ctx)
	restartSpan.End()
	if err != nil {
		span.SetStatus(codes.Error, "restart failed")
		o.logger.Error("restart failed", "error", err)
		return
	}

	if o.metrics != nil {
		o.metrics.RestartsTotal.WithLabelValues("file_change").Inc()
	}

	o.handler.ConnectServer(conn)

	if o.metrics != nil {
		o.metrics.QueueDepth.Set(float64(o.handler.QueueSize()))
	}

	if wasInitialized {
		o.handler.EmitToolsListChanged()
	}
}
