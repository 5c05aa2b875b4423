// pkg/machineagent/version.go

package machineagent

import (
	"archive/zip"
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"

	"github.com/opsdep/appdctl/pkg/appdctl_io"
)

// VersionUnknown is reported when no version source is readable.
const VersionUnknown = "unknown"

// InstalledVersion discovers the installed agent version: a sidecar
// version file wins, else the manifest inside the agent jar, else
// VersionUnknown. Never fails; the version is informational.
func (m *Manager) InstalledVersion(rc *appdctl_io.RuntimeContext) string {
	logger := otelzap.Ctx(rc.Ctx)

	for _, candidate := range []string{
		m.paths.SidecarVersionPath(),
		filepath.Join(m.paths.InstallDir, "VERSION"),
	} {
		if v := readSidecarVersion(candidate); v != "" {
			return v
		}
	}

	if v, err := jarManifestVersion(m.paths.JarPath()); err == nil && v != "" {
		return v
	} else if err != nil {
		logger.Debug("Version not readable from jar manifest",
			zap.String("jar", m.paths.JarPath()), zap.Error(err))
	}
	return VersionUnknown
}

func readSidecarVersion(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	line, _, _ := strings.Cut(string(data), "\n")
	return strings.TrimSpace(line)
}

// jarManifestVersion pulls Implementation-Version out of the jar's
// META-INF/MANIFEST.MF. A jar is a zip archive.
func jarManifestVersion(jarPath string) (string, error) {
	reader, err := zip.OpenReader(jarPath)
	if err != nil {
		return "", err
	}
	defer reader.Close()

	for _, f := range reader.File {
		if f.Name != "META-INF/MANIFEST.MF" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", err
		}
		defer rc.Close()

		scanner := bufio.NewScanner(rc)
		for scanner.Scan() {
			key, value, found := strings.Cut(scanner.Text(), ":")
			if found && strings.TrimSpace(key) == "Implementation-Version" {
				return strings.TrimSpace(value), nil
			}
		}
		return "", scanner.Err()
	}
	return "", nil
}
