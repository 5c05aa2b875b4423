// pkg/machineagent/upgrade.go

package machineagent

import (
	cerr "github.com/cockroachdb/errors"
	goversion "github.com/hashicorp/go-version"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"

	"github.com/opsdep/appdctl/pkg/appdctl_io"
)

// Upgrade replaces an existing installation with a new bundle, keeping
// the prior configuration. A full backup is taken first; on a failed
// upgrade the files stay as they are and the backup name is in the
// result for a manual restore.
func (m *Manager) Upgrade(rc *appdctl_io.RuntimeContext, opts InstallOptions) (*Result, error) {
	if !m.IsInstalled() {
		return &Result{}, cerr.Newf("nothing to upgrade: %s does not exist, use install", m.paths.InstallDir)
	}
	return m.deploy(rc, opts, true)
}

// refuseDowngrade compares the bundle version against the installed one.
// Unparseable versions skip the guard; the vendor scheme parses fine.
func (m *Manager) refuseDowngrade(rc *appdctl_io.RuntimeContext, pkgVersion string) error {
	logger := otelzap.Ctx(rc.Ctx)

	installed := m.InstalledVersion(rc)
	installedV, err := goversion.NewVersion(installed)
	if err != nil {
		logger.Debug("Installed version not comparable, skipping downgrade guard",
			zap.String("installed", installed))
		return nil
	}
	pkgV, err := goversion.NewVersion(pkgVersion)
	if err != nil {
		logger.Debug("Package version not comparable, skipping downgrade guard",
			zap.String("package_version", pkgVersion))
		return nil
	}
	if pkgV.LessThan(installedV) {
		return cerr.Newf("bundle version %s is older than installed %s, pass --allow-downgrade to proceed",
			pkgVersion, installed)
	}
	return nil
}
