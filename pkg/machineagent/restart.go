// pkg/machineagent/restart.go

package machineagent

import (
	"time"

	cerr "github.com/cockroachdb/errors"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"

	"github.com/opsdep/appdctl/pkg/appdctl_io"
	"github.com/opsdep/appdctl/pkg/systemctl"
)

// Restart bounces the agent service and confirms it came back with one
// poll after the fixed wait.
func (m *Manager) Restart(rc *appdctl_io.RuntimeContext) error {
	logger := otelzap.Ctx(rc.Ctx)
	unit := m.paths.UnitName()

	registered, err := m.sys.UnitExists(rc.Ctx, unit)
	if err != nil {
		return err
	}
	if !registered {
		return cerr.Newf("service %s is not registered; is the agent installed?", unit)
	}

	logger.Info("Restarting service", zap.String("unit", unit))
	if err := m.sys.Restart(rc.Ctx, unit); err != nil {
		return err
	}
	if err := m.confirmActive(rc, unit); err != nil {
		diag := systemctl.CaptureDiagnostics(rc.Ctx, m.sys, unit)
		logger.Error("Service did not come back after restart",
			zap.String("status", diag.StatusOutput),
			zap.String("journal", diag.JournalOutput))
		return err
	}
	logger.Info("Service restarted", zap.String("unit", unit))
	return nil
}

// confirmActive waits the fixed start delay and polls the state once.
func (m *Manager) confirmActive(rc *appdctl_io.RuntimeContext, unit string) error {
	select {
	case <-rc.Ctx.Done():
		return rc.Ctx.Err()
	case <-time.After(m.startWait):
	}

	state, err := m.sys.ActiveState(rc.Ctx, unit)
	if err != nil {
		return err
	}
	if state != "active" {
		return cerr.Newf("service %s is %s after %s", unit, state, m.startWait)
	}
	return nil
}
