// pkg/machineagent/remove.go

package machineagent

import (
	"os"
	"path/filepath"
	"time"

	cerr "github.com/cockroachdb/errors"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"

	"github.com/opsdep/appdctl/pkg/appdctl_err"
	"github.com/opsdep/appdctl/pkg/appdctl_io"
	"github.com/opsdep/appdctl/pkg/systemctl"
)

// RemoveOptions control agent removal.
type RemoveOptions struct {
	// Force skips the interactive confirmation.
	Force bool
	// KeepConfig parks conf/ in a timestamped folder before deletion.
	KeepConfig bool
	// DryRun reports what would happen and stops before any side effect.
	DryRun bool
}

// Remove takes the agent off the host: final backup, service stopped and
// disabled, unit file deleted, installation tree deleted. With nothing
// installed it is a successful no-op.
func (m *Manager) Remove(rc *appdctl_io.RuntimeContext, opts RemoveOptions) (*Result, error) {
	logger := otelzap.Ctx(rc.Ctx)
	result := &Result{}

	installed := m.IsInstalled()
	unitOnDisk := m.UnitFileExists()
	if !installed && !unitOnDisk {
		result.NothingToDo = true
		logger.Info("Agent not installed, nothing to remove",
			zap.String("install_dir", m.paths.InstallDir))
		return result, nil
	}

	if opts.DryRun {
		logger.Info("Dry run, stopping before any change",
			zap.Bool("install_dir_present", installed),
			zap.Bool("unit_file_present", unitOnDisk),
			zap.Bool("keep_config", opts.KeepConfig))
		return result, nil
	}

	if !opts.Force {
		ok, err := appdctl_io.PromptYesNo(rc, "Remove the Machine Agent and its service")
		if err != nil {
			return result, err
		}
		if !ok {
			return result, appdctl_err.NewUserError("removal cancelled")
		}
	}

	if installed {
		backup, err := m.CreateBackup(rc, "pre-remove-"+time.Now().Format(BackupTimestampLayout))
		if err != nil {
			return result, cerr.Wrap(err, "final backup")
		}
		result.BackupName = backup.Name
	}

	unit := m.paths.UnitName()
	if err := systemctl.StopAndConfirm(rc.Ctx, m.sys, unit, m.stopWait); err != nil {
		return result, err
	}

	registered, err := m.sys.UnitExists(rc.Ctx, unit)
	if err != nil {
		return result, err
	}
	if registered {
		if err := m.sys.Disable(rc.Ctx, unit); err != nil {
			return result, err
		}
	}

	if unitOnDisk {
		if err := os.Remove(m.paths.UnitPath); err != nil {
			return result, cerr.Wrapf(err, "delete %s", m.paths.UnitPath)
		}
		if err := m.sys.DaemonReload(rc.Ctx); err != nil {
			return result, err
		}
		logger.Info("Unit file removed", zap.String("path", m.paths.UnitPath))
	}

	if installed {
		if opts.KeepConfig {
			dest := filepath.Join(m.paths.ParentDir, "config-preserved-"+time.Now().Format(BackupTimestampLayout))
			if err := copyTree(rc.Ctx, m.paths.ConfDir(), dest); err != nil {
				return result, cerr.Wrap(err, "preserve configuration")
			}
			result.PreservedConfigPath = dest
			logger.Info("Configuration preserved", zap.String("path", dest))
		}
		if err := os.RemoveAll(m.paths.InstallDir); err != nil {
			return result, cerr.Wrapf(err, "delete %s", m.paths.InstallDir)
		}
		logger.Info("Installation directory removed",
			zap.String("path", m.paths.InstallDir))
	}

	removed, err := removeDirIfEmpty(m.paths.ParentDir)
	if err != nil {
		result.warnf("parent directory check: %v", err)
	} else if removed {
		logger.Info("Empty parent directory removed",
			zap.String("path", m.paths.ParentDir))
	}
	return result, nil
}
