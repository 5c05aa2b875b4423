// pkg/preflight/preflight.go
package preflight

import (
	"os"
	"os/exec"
	"os/user"
	"path/filepath"

	cerr "github.com/cockroachdb/errors"
	"github.com/hashicorp/go-multierror"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/opsdep/appdctl/pkg/appdctl_io"
	"github.com/opsdep/appdctl/pkg/systemctl"
)

// RequireRoot fails when the effective user is not root. No elevation is
// attempted.
func RequireRoot(rc *appdctl_io.RuntimeContext) error {
	logger := otelzap.Ctx(rc.Ctx)

	euid := os.Geteuid()
	if euid == 0 {
		return nil
	}

	username := "unknown"
	if u, err := user.Current(); err == nil {
		username = u.Username
	}
	logger.Error("Root privileges required",
		zap.String("user", username),
		zap.Int("euid", euid))
	return cerr.Newf("this command must be run as root (current user: %s)", username)
}

// RequireCommands verifies every named executable resolves on PATH,
// aggregating all misses into one error.
func RequireCommands(rc *appdctl_io.RuntimeContext, names ...string) error {
	logger := otelzap.Ctx(rc.Ctx)

	var result *multierror.Error
	for _, name := range names {
		if _, err := exec.LookPath(name); err != nil {
			logger.Error("Required command not found", zap.String("command", name))
			result = multierror.Append(result, cerr.Newf("required command %q not found on PATH", name))
		}
	}
	return result.ErrorOrNil()
}

// RequireInstalled fails when the installation directory is absent.
func RequireInstalled(rc *appdctl_io.RuntimeContext, installDir string) error {
	info, err := os.Stat(installDir)
	if err != nil {
		if os.IsNotExist(err) {
			return cerr.Newf("no installation found at %s", installDir)
		}
		return cerr.Wrapf(err, "cannot access installation at %s", installDir)
	}
	if !info.IsDir() {
		return cerr.Newf("installation path %s is not a directory", installDir)
	}
	return nil
}

// RequireServiceRegistered fails when the service manager has no unit of
// that name.
func RequireServiceRegistered(rc *appdctl_io.RuntimeContext, client systemctl.Client, unit string) error {
	exists, err := client.UnitExists(rc.Ctx, unit)
	if err != nil {
		return cerr.Wrapf(err, "cannot query service manager for %s", unit)
	}
	if !exists {
		return cerr.Newf("service %s is not registered with the service manager", unit)
	}
	return nil
}

// CheckDiskSpace fails when the filesystem holding dir has less than need
// bytes available. The nearest existing ancestor is probed so the check
// works before the target directory exists.
func CheckDiskSpace(rc *appdctl_io.RuntimeContext, dir string, need uint64) error {
	logger := otelzap.Ctx(rc.Ctx)

	probe := dir
	for {
		if _, err := os.Stat(probe); err == nil {
			break
		}
		parent := filepath.Dir(probe)
		if parent == probe {
			break
		}
		probe = parent
	}

	var stat unix.Statfs_t
	if err := unix.Statfs(probe, &stat); err != nil {
		return cerr.Wrapf(err, "statfs %s", probe)
	}

	avail := stat.Bavail * uint64(stat.Bsize)
	logger.Debug("Disk space check",
		zap.String("path", probe),
		zap.Uint64("available_bytes", avail),
		zap.Uint64("needed_bytes", need))

	if avail < need {
		return cerr.Newf("not enough disk space on %s: %d bytes available, %d required", probe, avail, need)
	}
	return nil
}
