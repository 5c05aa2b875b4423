// pkg/machineagent/install.go

package machineagent

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	cerr "github.com/cockroachdb/errors"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"

	"github.com/opsdep/appdctl/pkg/agentconfig"
	"github.com/opsdep/appdctl/pkg/appdctl_io"
	"github.com/opsdep/appdctl/pkg/execute"
	"github.com/opsdep/appdctl/pkg/preflight"
	"github.com/opsdep/appdctl/pkg/shared"
	"github.com/opsdep/appdctl/pkg/systemctl"
)

// InstallOptions control install and upgrade runs.
type InstallOptions struct {
	// PackagePath is an explicit bundle; empty means search the package dir.
	PackagePath string
	// Settings land in controller-info.xml after extraction.
	Settings agentconfig.Settings
	// AllowDowngrade disables the version comparison guard on upgrade.
	AllowDowngrade bool
	// DryRun reports what would happen and stops before any side effect.
	DryRun bool
}

const extractTimeout = 10 * time.Minute

// RequiredTools are the external commands install and upgrade shell out
// to; command handlers verify them up front.
var RequiredTools = []string{"unzip", "systemctl", "cp", "chown"}

// Install deploys the agent onto a host with no prior installation.
func (m *Manager) Install(rc *appdctl_io.RuntimeContext, opts InstallOptions) (*Result, error) {
	if m.IsInstalled() {
		return &Result{}, cerr.Newf("agent already installed at %s, use upgrade instead", m.paths.InstallDir)
	}
	return m.deploy(rc, opts, false)
}

// deploy is the shared install/upgrade sequence. Steps run in order and
// the first fatal error aborts the rest; nothing is rolled back.
func (m *Manager) deploy(rc *appdctl_io.RuntimeContext, opts InstallOptions, upgrade bool) (*Result, error) {
	logger := otelzap.Ctx(rc.Ctx)
	result := &Result{}

	pkg, err := m.LocatePackage(rc, opts.PackagePath)
	if err != nil {
		return result, err
	}
	pkgVersion := PackageVersion(pkg)

	if upgrade && !opts.AllowDowngrade {
		if err := m.refuseDowngrade(rc, pkgVersion); err != nil {
			return result, err
		}
	}

	pkgInfo, err := os.Stat(pkg)
	if err != nil {
		return result, cerr.Wrapf(err, "stat %s", pkg)
	}
	// Extraction plus the moved tree; the pre-upgrade backup roughly
	// doubles that again.
	need := uint64(pkgInfo.Size()) * 3
	if err := preflight.CheckDiskSpace(rc, m.paths.ParentDir, need); err != nil {
		return result, err
	}

	if opts.DryRun {
		logger.Info("Dry run, stopping before any change",
			zap.String("package", pkg),
			zap.String("package_version", pkgVersion),
			zap.String("install_dir", m.paths.InstallDir),
			zap.String("unit_path", m.paths.UnitPath),
			zap.Bool("upgrade", upgrade))
		return result, nil
	}

	unit := m.paths.UnitName()
	if err := systemctl.StopAndConfirm(rc.Ctx, m.sys, unit, m.stopWait); err != nil {
		return result, err
	}

	var preserved *agentconfig.ControllerInfo
	if upgrade {
		backup, err := m.CreateBackup(rc, "pre-upgrade-"+time.Now().Format(BackupTimestampLayout))
		if err != nil {
			return result, cerr.Wrap(err, "pre-upgrade backup")
		}
		result.BackupName = backup.Name

		preserved, err = agentconfig.Load(m.paths.ControllerInfoPath())
		if err != nil {
			result.warnf("existing configuration not preserved: %v", err)
			logger.Warn("Existing configuration unreadable, the bundle template will be used",
				zap.Error(err))
		}
	}

	if err := m.extractIntoPlace(rc, pkg); err != nil {
		return result, err
	}

	if err := m.writeConfiguration(rc, preserved, opts.Settings); err != nil {
		return result, err
	}

	m.normalizeOwnership(rc, result)

	if err := m.installUnitFile(rc); err != nil {
		return result, err
	}

	if err := systemctl.StartAndConfirm(rc.Ctx, m.sys, unit, m.startWait); err != nil {
		diag := systemctl.CaptureDiagnostics(rc.Ctx, m.sys, unit)
		logger.Error("Service did not come up, installation files are in place",
			zap.String("status", diag.StatusOutput),
			zap.String("journal", diag.JournalOutput))
		return result, cerr.Wrap(err, "agent service failed to start")
	}

	result.Version = m.InstalledVersion(rc)
	logger.Info("Agent deployed",
		zap.String("version", result.Version),
		zap.Bool("upgrade", upgrade))
	return result, nil
}

// extractIntoPlace unzips the bundle into a staging directory next to the
// install dir and swaps it into place. The old tree is deleted only after
// a successful extraction.
func (m *Manager) extractIntoPlace(rc *appdctl_io.RuntimeContext, pkg string) error {
	logger := otelzap.Ctx(rc.Ctx)

	if err := os.MkdirAll(m.paths.ParentDir, shared.DirPermStandard); err != nil {
		return cerr.Wrapf(err, "create %s", m.paths.ParentDir)
	}
	staging, err := os.MkdirTemp(m.paths.ParentDir, ".staging-")
	if err != nil {
		return cerr.Wrap(err, "create staging directory")
	}
	defer func() {
		if rmErr := os.RemoveAll(staging); rmErr != nil {
			logger.Warn("Staging directory left behind",
				zap.String("path", staging), zap.Error(rmErr))
		}
	}()

	logger.Info("Extracting agent package",
		zap.String("package", pkg), zap.String("staging", staging))
	if out, err := execute.Run(rc.Ctx, execute.Options{
		Command: "unzip",
		Args:    []string{"-o", "-q", pkg, "-d", staging},
		Capture: true,
		Timeout: extractTimeout,
	}); err != nil {
		return cerr.Wrapf(err, "extract %s: %s", pkg, strings.TrimSpace(out))
	}

	srcRoot, err := extractedRoot(staging)
	if err != nil {
		return err
	}

	if dirExists(m.paths.InstallDir) {
		if err := os.RemoveAll(m.paths.InstallDir); err != nil {
			return cerr.Wrapf(err, "remove old %s", m.paths.InstallDir)
		}
	}
	if err := os.Rename(srcRoot, m.paths.InstallDir); err != nil {
		return cerr.Wrapf(err, "move extracted tree to %s", m.paths.InstallDir)
	}
	return nil
}

// extractedRoot resolves where the agent tree starts inside the staging
// dir: bundles usually wrap everything in one top-level directory.
func extractedRoot(staging string) (string, error) {
	entries, err := os.ReadDir(staging)
	if err != nil {
		return "", cerr.Wrapf(err, "read %s", staging)
	}
	if len(entries) == 0 {
		return "", cerr.Newf("package extracted to nothing in %s", staging)
	}
	if len(entries) == 1 && entries[0].IsDir() {
		return filepath.Join(staging, entries[0].Name()), nil
	}
	return staging, nil
}

// writeConfiguration merges, in order: the preserved pre-upgrade document
// when there is one, else the template the bundle shipped, else a minimal
// skeleton; then the supplied settings on top.
func (m *Manager) writeConfiguration(rc *appdctl_io.RuntimeContext, preserved *agentconfig.ControllerInfo, settings agentconfig.Settings) error {
	logger := otelzap.Ctx(rc.Ctx)

	doc := preserved
	if doc == nil {
		loaded, err := agentconfig.Load(m.paths.ControllerInfoPath())
		if err != nil {
			logger.Debug("No usable configuration template in the bundle", zap.Error(err))
			doc = agentconfig.Default()
		} else {
			doc = loaded
		}
	}

	changed, err := doc.Apply(settings)
	if err != nil {
		return cerr.Wrap(err, "apply settings")
	}
	if err := doc.Validate(); err != nil {
		return cerr.Wrap(err, "configuration incomplete, supply the missing settings")
	}
	if err := doc.Save(m.paths.ControllerInfoPath()); err != nil {
		return err
	}

	logger.Info("Configuration written",
		zap.String("path", m.paths.ControllerInfoPath()),
		zap.Strings("fields_set", changed))
	return nil
}

// normalizeOwnership hands the tree to the run-as user and marks the bin
// scripts executable. Failures are advisory; the deploy goes on.
func (m *Manager) normalizeOwnership(rc *appdctl_io.RuntimeContext, result *Result) {
	logger := otelzap.Ctx(rc.Ctx)

	if err := chownTree(rc.Ctx, m.paths.InstallDir, m.paths.RunUser, m.paths.RunGroup); err != nil {
		result.warnf("ownership not normalized: %v", err)
		logger.Warn("Ownership not normalized", zap.Error(err))
	}

	binDir := filepath.Join(m.paths.InstallDir, "bin")
	entries, err := os.ReadDir(binDir)
	if err != nil {
		return
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(binDir, entry.Name())
		if err := os.Chmod(path, shared.DirPermStandard); err != nil {
			result.warnf("chmod %s: %v", path, err)
		}
	}
}
