// pkg/machineagent/restore.go

package machineagent

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	cerr "github.com/cockroachdb/errors"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"

	"github.com/opsdep/appdctl/pkg/appdctl_err"
	"github.com/opsdep/appdctl/pkg/appdctl_io"
	"github.com/opsdep/appdctl/pkg/shared"
	"github.com/opsdep/appdctl/pkg/systemctl"
)

// Restore replaces the installation wholesale with the named backup's
// copy. The state being replaced is snapshotted first as a
// pre-restore-<timestamp> backup, so a bad restore can itself be undone.
// A failed restart at the end is reported; the restored files stay.
func (m *Manager) Restore(rc *appdctl_io.RuntimeContext, name string, force bool) (*Result, error) {
	logger := otelzap.Ctx(rc.Ctx)
	result := &Result{}

	backup, err := m.FindBackup(rc, name)
	if err != nil {
		return result, err
	}
	src := backup.InstallDirCopy()
	if !dirExists(src) {
		return result, cerr.Newf("backup %s is incomplete: %s is missing", name, src)
	}

	if !force {
		ok, err := appdctl_io.PromptYesNo(rc,
			fmt.Sprintf("Replace the current installation with backup %q", name))
		if err != nil {
			return result, err
		}
		if !ok {
			return result, appdctl_err.NewUserError("restore cancelled")
		}
	}

	unit := m.paths.UnitName()
	if err := systemctl.StopAndConfirm(rc.Ctx, m.sys, unit, m.stopWait); err != nil {
		return result, err
	}

	if m.IsInstalled() {
		snapshot, err := m.CreateBackup(rc, "pre-restore-"+time.Now().Format(BackupTimestampLayout))
		if err != nil {
			return result, cerr.Wrap(err, "pre-restore snapshot")
		}
		result.BackupName = snapshot.Name
		logger.Info("Current state snapshotted", zap.String("backup", snapshot.Name))
	}

	if err := os.RemoveAll(m.paths.InstallDir); err != nil {
		return result, cerr.Wrapf(err, "remove %s", m.paths.InstallDir)
	}
	if err := copyTree(rc.Ctx, src, m.paths.InstallDir); err != nil {
		return result, err
	}
	logger.Info("Installation directory restored",
		zap.String("backup", name),
		zap.String("install_dir", m.paths.InstallDir))

	if backup.HasUnitFile {
		unitSrc := filepath.Join(backup.Path, unit)
		if err := copyFile(unitSrc, m.paths.UnitPath, shared.FilePermStandard); err != nil {
			return result, cerr.Wrap(err, "restore unit file")
		}
		if err := m.sys.DaemonReload(rc.Ctx); err != nil {
			return result, err
		}
		logger.Info("Unit file restored", zap.String("path", m.paths.UnitPath))
	}

	if err := systemctl.StartAndConfirm(rc.Ctx, m.sys, unit, m.startWait); err != nil {
		diag := systemctl.CaptureDiagnostics(rc.Ctx, m.sys, unit)
		logger.Error("Restored service did not come up",
			zap.String("status", diag.StatusOutput),
			zap.String("journal", diag.JournalOutput))
		return result, cerr.Wrap(err, "service failed to start after restore")
	}

	result.Version = m.InstalledVersion(rc)
	logger.Info("Restore complete",
		zap.String("backup", name),
		zap.String("version", result.Version))
	return result, nil
}
