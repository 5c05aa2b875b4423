// pkg/machineagent/locate.go

package machineagent

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"

	cerr "github.com/cockroachdb/errors"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"

	"github.com/opsdep/appdctl/pkg/appdctl_io"
	"github.com/opsdep/appdctl/pkg/shared"
)

// bundleVersionRe matches the version embedded in vendor bundle names,
// e.g. machineagent-bundle-64bit-linux-24.1.0.3949.zip.
var bundleVersionRe = regexp.MustCompile(`(\d+\.\d+\.\d+(?:\.\d+)?)`)

// LocatePackage resolves the agent bundle to operate on. An explicit path
// must exist. Otherwise the package directory is searched, non-recursively,
// for the vendor naming pattern; with several candidates the lexically
// newest wins, which for the vendor scheme is the highest version.
func (m *Manager) LocatePackage(rc *appdctl_io.RuntimeContext, explicit string) (string, error) {
	logger := otelzap.Ctx(rc.Ctx)

	if explicit != "" {
		info, err := os.Stat(explicit)
		if err != nil {
			return "", cerr.Newf("package %s not found", explicit)
		}
		if info.IsDir() {
			return "", cerr.Newf("package %s is a directory, expected a bundle archive", explicit)
		}
		return explicit, nil
	}

	pattern := filepath.Join(m.paths.PackageDir, shared.AgentPackagePattern)
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return "", cerr.Wrapf(err, "search %s", pattern)
	}
	if len(matches) == 0 {
		return "", cerr.Newf(
			"no agent package matching %s found in %s; download a bundle there or pass a path",
			shared.AgentPackagePattern, m.paths.PackageDir)
	}

	sort.Strings(matches)
	chosen := matches[len(matches)-1]
	if len(matches) > 1 {
		logger.Warn("Multiple agent packages found, using the newest",
			zap.Strings("candidates", matches),
			zap.String("chosen", chosen))
	}

	logger.Info("Located agent package", zap.String("package", chosen))
	return chosen, nil
}

// PackageVersion extracts the agent version from a bundle file name.
// Empty when the name does not carry one.
func PackageVersion(pkgPath string) string {
	return bundleVersionRe.FindString(filepath.Base(pkgPath))
}
