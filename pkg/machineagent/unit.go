// pkg/machineagent/unit.go

package machineagent

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	cerr "github.com/cockroachdb/errors"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"

	"github.com/opsdep/appdctl/pkg/appdctl_io"
	"github.com/opsdep/appdctl/pkg/shared"
)

// defaultUnitContent is used when the bundle does not ship a descriptor.
func defaultUnitContent(installDir string) string {
	return fmt.Sprintf(`[Unit]
Description=AppDynamics Machine Agent
After=network.target

[Service]
Type=simple
User=root
Group=root
Environment=MACHINE_AGENT_HOME=%[1]s
WorkingDirectory=%[1]s
ExecStart=%[1]s/bin/machine-agent
Restart=on-failure
RestartSec=10

[Install]
WantedBy=multi-user.target
`, installDir)
}

// setUnitRunAs rewrites the User= and Group= lines of the [Service]
// section, adding them right after the section header when the
// descriptor carries none. Everything else passes through untouched.
func setUnitRunAs(content, user, group string) string {
	lines := strings.Split(content, "\n")
	out := make([]string, 0, len(lines)+2)

	inService := false
	userSet, groupSet := false, false
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "[") {
			inService = trimmed == "[Service]"
			out = append(out, line)
			continue
		}
		if inService {
			switch {
			case strings.HasPrefix(trimmed, "User="):
				out = append(out, "User="+user)
				userSet = true
				continue
			case strings.HasPrefix(trimmed, "Group="):
				out = append(out, "Group="+group)
				groupSet = true
				continue
			}
		}
		out = append(out, line)
	}

	if !userSet || !groupSet {
		withInserts := make([]string, 0, len(out)+2)
		for _, line := range out {
			withInserts = append(withInserts, line)
			if strings.TrimSpace(line) == "[Service]" {
				if !userSet {
					withInserts = append(withInserts, "User="+user)
				}
				if !groupSet {
					withInserts = append(withInserts, "Group="+group)
				}
			}
		}
		out = withInserts
	}
	return strings.Join(out, "\n")
}

// bundledUnitPath is where vendor bundles ship their descriptor, relative
// to the extracted tree.
func (m *Manager) bundledUnitPath() string {
	return filepath.Join(m.paths.InstallDir, shared.AgentBundledUnitPath, m.paths.UnitName())
}

// installUnitFile writes the service descriptor with the run-as identity
// applied, backing up any existing descriptor first, then reloads the
// service manager and enables the unit.
func (m *Manager) installUnitFile(rc *appdctl_io.RuntimeContext) error {
	logger := otelzap.Ctx(rc.Ctx)

	content := defaultUnitContent(m.paths.InstallDir)
	if data, err := os.ReadFile(m.bundledUnitPath()); err == nil {
		logger.Debug("Using the descriptor shipped in the bundle",
			zap.String("path", m.bundledUnitPath()))
		content = string(data)
	}
	content = setUnitRunAs(content, m.paths.RunUser, m.paths.RunGroup)

	if m.UnitFileExists() {
		backupPath := fmt.Sprintf("%s.backup.%d", m.paths.UnitPath, time.Now().Unix())
		if err := copyFile(m.paths.UnitPath, backupPath, shared.FilePermStandard); err != nil {
			return cerr.Wrap(err, "back up existing unit file")
		}
		logger.Info("Existing unit file backed up", zap.String("path", backupPath))
	}

	if err := os.WriteFile(m.paths.UnitPath, []byte(content), shared.FilePermStandard); err != nil {
		return cerr.Wrapf(err, "write %s", m.paths.UnitPath)
	}
	logger.Info("Unit file installed", zap.String("path", m.paths.UnitPath),
		zap.String("run_as", m.paths.RunUser))

	if err := m.sys.DaemonReload(rc.Ctx); err != nil {
		return err
	}
	if err := m.sys.Enable(rc.Ctx, m.paths.UnitName()); err != nil {
		return err
	}
	return nil
}
