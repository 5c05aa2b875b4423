// pkg/appdctl_io/context.go

package appdctl_io

import (
	"context"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	cerr "github.com/cockroachdb/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/opsdep/appdctl/pkg/appdctl_err"
	"github.com/opsdep/appdctl/pkg/shared"
	"github.com/opsdep/appdctl/pkg/telemetry"
)

// RuntimeContext carries everything a command handler needs: a cancellable
// context, a scoped logger, the command identity and the telemetry span.
type RuntimeContext struct {
	Ctx        context.Context
	Log        *zap.Logger
	Timestamp  time.Time
	Span       trace.Span
	Command    string
	Component  string
	Attributes map[string]string

	cancel  context.CancelFunc
	sigDone chan struct{}
}

// NewContext sets up tracing, logging and signal-driven cancellation for one
// command invocation.
func NewContext(ctx context.Context, cmdName string) *RuntimeContext {
	ctx, span := telemetry.Start(ctx, cmdName)
	traceID := span.SpanContext().TraceID().String()

	comp, action := resolveCallContext(3)
	logger := zap.L().With(
		zap.String("component", comp),
		zap.String("action", action),
		zap.String("trace_id", traceID),
	).Named(comp)

	ctx, cancel := context.WithCancel(ctx)

	rc := &RuntimeContext{
		Ctx:        ctx,
		Span:       span,
		Log:        logger,
		Timestamp:  time.Now(),
		Component:  comp,
		Command:    cmdName,
		Attributes: make(map[string]string),
		cancel:     cancel,
		sigDone:    make(chan struct{}),
	}
	rc.watchSignals()
	return rc
}

// watchSignals cancels Ctx on the first SIGINT/SIGTERM so in-flight external
// commands are killed; a second signal exits immediately.
func (rc *RuntimeContext) watchSignals() {
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigCh)
		select {
		case sig := <-sigCh:
			rc.Log.Warn("Received signal, cancelling operation", zap.String("signal", sig.String()))
			rc.cancel()
			select {
			case <-sigCh:
				os.Exit(1)
			case <-rc.sigDone:
			}
		case <-rc.sigDone:
		}
	}()
}

// HandlePanic recovers panics, logs them, and converts to an error.
func (rc *RuntimeContext) HandlePanic(errPtr *error) {
	if r := recover(); r != nil {
		*errPtr = cerr.AssertionFailedf("panic: %v", r)
		rc.Log.Error("panic recovered", zap.Any("panic", r))
	}
}

// End logs the outcome, emits the final telemetry span, and releases the
// signal watcher. Call exactly once, with a pointer to the handler error.
func (rc *RuntimeContext) End(errPtr *error) {
	defer rc.Span.End()
	close(rc.sigDone)
	rc.cancel()

	duration := time.Since(rc.Timestamp)
	success := *errPtr == nil

	if success {
		rc.Log.Info("Command completed", zap.Duration("duration", duration))
	} else if appdctl_err.IsExpectedUserError(*errPtr) {
		rc.Log.Info("Command ended early", zap.Duration("duration", duration), zap.Error(*errPtr))
	} else {
		rc.Log.Error("Command failed", zap.Duration("duration", duration), zap.Error(*errPtr))
	}

	attrs := []attribute.KeyValue{
		attribute.Bool("success", success),
		attribute.Int64("duration_ms", duration.Milliseconds()),
		attribute.String("os", runtime.GOOS),
		attribute.String("args", telemetry.TruncateOrHashArgs(os.Args[1:])),
		attribute.String("version", shared.Version),
		attribute.String("error_type", classifyError(*errPtr)),
	}
	if telemetry.IsEnabled() {
		attrs = append(attrs, attribute.String("install_id", telemetry.AnonTelemetryID()))
	}
	_, span := telemetry.Start(rc.Ctx, rc.Command, attrs...)
	span.End()
}

func classifyError(err error) string {
	if err == nil {
		return ""
	}
	if appdctl_err.IsExpectedUserError(err) {
		return "user"
	}
	return "system"
}

func resolveCallContext(skip int) (component, action string) {
	pc, file, _, ok := runtime.Caller(skip)
	if !ok {
		return "unknown", "unknown"
	}
	parts := strings.Split(file, "/")
	if len(parts) >= 2 {
		component = parts[len(parts)-2]
	} else {
		component = "unknown"
	}
	if fn := runtime.FuncForPC(pc); fn != nil {
		fields := strings.Split(fn.Name(), ".")
		action = fields[len(fields)-1]
	} else {
		action = "unknown"
	}
	return
}
