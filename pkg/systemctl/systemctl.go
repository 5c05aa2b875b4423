// pkg/systemctl/systemctl.go

package systemctl

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	cerr "github.com/cockroachdb/errors"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"

	"github.com/opsdep/appdctl/pkg/execute"
)

// Systemctl exit codes, per systemctl(1). Query subcommands use non-zero
// codes to report state, not failure.
const (
	ExitSuccess     = 0
	ExitGenericFail = 1
	ExitInactive    = 3
	ExitUnknown     = 4
	ExitNotLoaded   = 5
)

// Client is the seam between the agent lifecycle managers and the host
// service manager. The exec-backed implementation shells out to systemctl
// and journalctl; tests substitute the Fake from this package.
type Client interface {
	Start(ctx context.Context, unit string) error
	Stop(ctx context.Context, unit string) error
	Restart(ctx context.Context, unit string) error
	Enable(ctx context.Context, unit string) error
	Disable(ctx context.Context, unit string) error
	DaemonReload(ctx context.Context) error

	// ActiveState returns the raw is-active answer: active, inactive,
	// failed, activating. A state-reporting exit code is not an error.
	ActiveState(ctx context.Context, unit string) (string, error)

	// Show queries unit properties in one call, returning key=value pairs.
	Show(ctx context.Context, unit string, properties ...string) (map[string]string, error)

	// UnitExists reports whether the service manager knows the unit.
	UnitExists(ctx context.Context, unit string) (bool, error)

	// JournalTail returns the last n journal lines for the unit.
	JournalTail(ctx context.Context, unit string, lines int) (string, error)
}

// ExecClient runs real systemctl commands.
type ExecClient struct{}

var _ Client = (*ExecClient)(nil)

func NewExecClient() *ExecClient {
	return &ExecClient{}
}

func (c *ExecClient) run(ctx context.Context, args ...string) (string, error) {
	return execute.Run(ctx, execute.Options{
		Command: "systemctl",
		Args:    args,
		Capture: true,
	})
}

func (c *ExecClient) Start(ctx context.Context, unit string) error {
	if out, err := c.run(ctx, "start", unit); err != nil {
		return cerr.Wrapf(err, "systemctl start %s: %s", unit, strings.TrimSpace(out))
	}
	return nil
}

func (c *ExecClient) Stop(ctx context.Context, unit string) error {
	if out, err := c.run(ctx, "stop", unit); err != nil {
		return cerr.Wrapf(err, "systemctl stop %s: %s", unit, strings.TrimSpace(out))
	}
	return nil
}

func (c *ExecClient) Restart(ctx context.Context, unit string) error {
	if out, err := c.run(ctx, "restart", unit); err != nil {
		return cerr.Wrapf(err, "systemctl restart %s: %s", unit, strings.TrimSpace(out))
	}
	return nil
}

func (c *ExecClient) Enable(ctx context.Context, unit string) error {
	if out, err := c.run(ctx, "enable", unit); err != nil {
		return cerr.Wrapf(err, "systemctl enable %s: %s", unit, strings.TrimSpace(out))
	}
	return nil
}

func (c *ExecClient) Disable(ctx context.Context, unit string) error {
	if out, err := c.run(ctx, "disable", unit); err != nil {
		return cerr.Wrapf(err, "systemctl disable %s: %s", unit, strings.TrimSpace(out))
	}
	return nil
}

func (c *ExecClient) DaemonReload(ctx context.Context) error {
	if out, err := c.run(ctx, "daemon-reload"); err != nil {
		return cerr.Wrapf(err, "systemctl daemon-reload: %s", strings.TrimSpace(out))
	}
	return nil
}

func (c *ExecClient) ActiveState(ctx context.Context, unit string) (string, error) {
	out, err := c.run(ctx, "is-active", unit)
	state := strings.TrimSpace(out)
	if err != nil {
		// is-active reports inactive/failed through its exit code; only a
		// failure to run systemctl at all is an error here.
		if code, ok := exitCode(err); ok && code != ExitGenericFail {
			if state == "" {
				state = "unknown"
			}
			return state, nil
		}
		if state != "" {
			return state, nil
		}
		return "", cerr.Wrapf(err, "systemctl is-active %s", unit)
	}
	return state, nil
}

func (c *ExecClient) Show(ctx context.Context, unit string, properties ...string) (map[string]string, error) {
	args := []string{"show", unit, "--no-pager"}
	if len(properties) > 0 {
		args = append(args, "--property="+strings.Join(properties, ","))
	}
	out, err := c.run(ctx, args...)
	if err != nil {
		return nil, cerr.Wrapf(err, "systemctl show %s", unit)
	}

	props := make(map[string]string)
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		key, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}
		props[key] = value
	}
	return props, nil
}

func (c *ExecClient) UnitExists(ctx context.Context, unit string) (bool, error) {
	logger := otelzap.Ctx(ctx)
	_, err := c.run(ctx, "cat", unit)
	if err != nil {
		if _, ok := exitCode(err); ok {
			logger.Debug("Unit not known to systemd", zap.String("unit", unit))
			return false, nil
		}
		return false, cerr.Wrapf(err, "systemctl cat %s", unit)
	}
	return true, nil
}

func (c *ExecClient) JournalTail(ctx context.Context, unit string, lines int) (string, error) {
	out, err := execute.Run(ctx, execute.Options{
		Command: "journalctl",
		Args:    []string{"-u", unit, "-n", fmt.Sprint(lines), "--no-pager"},
		Capture: true,
		Timeout: 15 * time.Second,
	})
	if err != nil {
		return "", cerr.Wrapf(err, "journalctl -u %s", unit)
	}
	return out, nil
}

// exitCode digs the process exit code out of a wrapped error.
func exitCode(err error) (int, bool) {
	var exitErr *exec.ExitError
	if cerr.As(err, &exitErr) {
		return exitErr.ExitCode(), true
	}
	return 0, false
}
