// pkg/execute/execute.go

package execute

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"time"

	cerr "github.com/cockroachdb/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/opsdep/appdctl/pkg/appdctl_err"
	"github.com/opsdep/appdctl/pkg/telemetry"
)

// Options controls a single external command invocation. Output is always
// captured to a buffer and surfaced through structured logging; stdout is
// never written to directly so probe metric lines stay uncontaminated.
type Options struct {
	Command string
	Args    []string
	Dir     string
	Env     []string // appended to the inherited environment
	Capture bool
	Retries int
	Delay   time.Duration
	Timeout time.Duration
	DryRun  bool
	Logger  *zap.Logger
}

// DefaultDryRun flips every Run into a no-op; set once by the --dry-run flag.
var DefaultDryRun bool

// Run executes a command synchronously, waiting for completion. The combined
// stdout+stderr is returned when Capture is set, and always used for error
// summaries.
func Run(ctx context.Context, opts Options) (string, error) {
	cmdStr := buildCommandString(opts.Command, opts.Args...)

	logger := opts.Logger
	if logger == nil {
		logger = zap.L()
	}
	if ctx == nil {
		ctx = context.Background()
	}
	runCtx, cancel := context.WithTimeout(ctx, defaultTimeout(opts.Timeout))
	defer cancel()

	runCtx, span := telemetry.Start(runCtx, "execute.Run")
	defer span.End()
	span.SetAttributes(
		attribute.String("command", opts.Command),
		attribute.String("args", strings.Join(opts.Args, " ")),
	)

	if opts.DryRun || DefaultDryRun {
		logger.Info("Dry run mode - command not executed", zap.String("command", cmdStr))
		return "", nil
	}

	logger.Debug("Starting execution", zap.String("command", cmdStr))

	attempts := max(1, opts.Retries)
	var output string
	var err error

	for i := 1; i <= attempts; i++ {
		cmd := exec.CommandContext(runCtx, opts.Command, opts.Args...)
		if opts.Dir != "" {
			cmd.Dir = opts.Dir
		}
		if len(opts.Env) > 0 {
			cmd.Env = append(cmd.Environ(), opts.Env...)
		}

		var buf bytes.Buffer
		cmd.Stdout = &buf
		cmd.Stderr = &buf

		err = cmd.Run()
		output = buf.String()

		if err == nil {
			logger.Debug("Execution succeeded", zap.String("command", cmdStr))
			break
		}

		summary := appdctl_err.ExtractSummary(output, 2)
		span.RecordError(err)
		logger.Warn("Execution failed",
			zap.Error(err),
			zap.Int("attempt", i),
			zap.String("command", cmdStr),
			zap.String("summary", summary),
		)

		if i < attempts {
			select {
			case <-runCtx.Done():
				return output, cerr.Wrap(runCtx.Err(), "command cancelled")
			case <-time.After(opts.Delay):
			}
		}
	}

	if err != nil {
		return output, cerr.Wrapf(err, "command %q failed after %d attempt(s)", opts.Command, attempts)
	}

	if opts.Capture {
		return output, nil
	}
	return "", nil
}

// RunSimple executes a command with minimal options.
func RunSimple(ctx context.Context, cmd string, args ...string) error {
	_, err := Run(ctx, Options{
		Command: cmd,
		Args:    args,
	})
	return err
}

// Cmd returns a closure running the given command with default options.
func Cmd(ctx context.Context, cmd string, args ...string) func() error {
	return func() error {
		return RunSimple(ctx, cmd, args...)
	}
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func defaultTimeout(t time.Duration) time.Duration {
	if t > 0 {
		return t
	}
	return 30 * time.Second
}

func buildCommandString(command string, args ...string) string {
	return command + " " + strings.Join(args, " ")
}
