// pkg/machineagent/status.go

package machineagent

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"

	"github.com/opsdep/appdctl/pkg/agentconfig"
	"github.com/opsdep/appdctl/pkg/appdctl_io"
	"github.com/opsdep/appdctl/pkg/systemctl"
)

// StatusReport is the full read-only picture of one installation.
// Gathering it never mutates state; unreadable sources degrade into
// Warnings instead of failing the report.
type StatusReport struct {
	Timestamp  time.Time     `json:"timestamp" yaml:"timestamp"`
	Hostname   string        `json:"hostname" yaml:"hostname"`
	Installed  bool          `json:"installed" yaml:"installed"`
	InstallDir string        `json:"install_dir" yaml:"install_dir"`
	Version    string        `json:"version,omitempty" yaml:"version,omitempty"`
	Service    ServiceStatus `json:"service" yaml:"service"`

	Controller *ControllerStatus `json:"controller,omitempty" yaml:"controller,omitempty"`
	Backups    []BackupSummary   `json:"backups" yaml:"backups"`
	Journal    []string          `json:"journal,omitempty" yaml:"journal,omitempty"`
	Warnings   []string          `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// ServiceStatus condenses the service manager's answers.
type ServiceStatus struct {
	Unit    string `json:"unit" yaml:"unit"`
	State   string `json:"state" yaml:"state"`
	Enabled string `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	Sub     string `json:"sub_state,omitempty" yaml:"sub_state,omitempty"`
	Since   string `json:"since,omitempty" yaml:"since,omitempty"`
}

// ControllerStatus is the reporting identity from controller-info.xml,
// access key already masked.
type ControllerStatus struct {
	Host        string `json:"host" yaml:"host"`
	Port        string `json:"port" yaml:"port"`
	SSLEnabled  string `json:"ssl_enabled" yaml:"ssl_enabled"`
	AccountName string `json:"account_name" yaml:"account_name"`
	AccessKey   string `json:"access_key" yaml:"access_key"`
	Application string `json:"application,omitempty" yaml:"application,omitempty"`
	Tier        string `json:"tier,omitempty" yaml:"tier,omitempty"`
	Node        string `json:"node,omitempty" yaml:"node,omitempty"`
}

// BackupSummary is the listing line for one backup.
type BackupSummary struct {
	Name         string `json:"name" yaml:"name"`
	Created      string `json:"created,omitempty" yaml:"created,omitempty"`
	AgentVersion string `json:"agent_version,omitempty" yaml:"agent_version,omitempty"`
}

// Status gathers the report. logLines caps the journal tail; zero skips
// the journal entirely.
func (m *Manager) Status(rc *appdctl_io.RuntimeContext, logLines int) (*StatusReport, error) {
	logger := otelzap.Ctx(rc.Ctx)

	report := &StatusReport{
		Timestamp:  time.Now().UTC(),
		Installed:  m.IsInstalled(),
		InstallDir: m.paths.InstallDir,
		Service:    ServiceStatus{Unit: m.paths.UnitName()},
	}
	if host, err := os.Hostname(); err == nil {
		report.Hostname = host
	}
	warnf := func(format string, args ...any) {
		report.Warnings = append(report.Warnings, strings.TrimSpace(
			strings.ReplaceAll(fmt.Sprintf(format, args...), "\n", " ")))
	}

	if report.Installed {
		report.Version = m.InstalledVersion(rc)
	}

	m.gatherServiceStatus(rc, report, warnf)
	m.gatherControllerStatus(rc, report, warnf)

	backups, err := m.ListBackups(rc)
	if err != nil {
		warnf("backups unreadable: %v", err)
	}
	for _, b := range backups {
		report.Backups = append(report.Backups, BackupSummary{
			Name:         b.Name,
			Created:      b.Created,
			AgentVersion: b.AgentVersion,
		})
	}

	if logLines > 0 && report.Service.State != string(systemctl.StateNotRegistered) {
		out, err := m.sys.JournalTail(rc.Ctx, m.paths.UnitName(), logLines)
		if err != nil {
			warnf("journal unreadable: %v", err)
		} else {
			for _, line := range strings.Split(strings.TrimRight(out, "\n"), "\n") {
				if line != "" {
					report.Journal = append(report.Journal, line)
				}
			}
		}
	}

	logger.Debug("Status gathered",
		zap.Bool("installed", report.Installed),
		zap.String("service_state", report.Service.State),
		zap.Int("backups", len(report.Backups)),
		zap.Int("warnings", len(report.Warnings)))
	return report, nil
}

func (m *Manager) gatherServiceStatus(rc *appdctl_io.RuntimeContext, report *StatusReport, warnf func(string, ...any)) {
	unit := m.paths.UnitName()

	state, err := systemctl.StateOf(rc.Ctx, m.sys, unit)
	if err != nil {
		warnf("service state unreadable: %v", err)
	}
	report.Service.State = string(state)
	if state == systemctl.StateNotRegistered {
		return
	}

	props, err := m.sys.Show(rc.Ctx, unit,
		"SubState", "UnitFileState", "ActiveEnterTimestamp")
	if err != nil {
		warnf("service properties unreadable: %v", err)
		return
	}
	report.Service.Sub = props["SubState"]
	report.Service.Enabled = props["UnitFileState"]
	report.Service.Since = props["ActiveEnterTimestamp"]
}

func (m *Manager) gatherControllerStatus(rc *appdctl_io.RuntimeContext, report *StatusReport, warnf func(string, ...any)) {
	if !report.Installed {
		return
	}
	ci, err := agentconfig.Load(m.paths.ControllerInfoPath())
	if err != nil {
		warnf("configuration unreadable: %v", err)
		return
	}
	red := ci.Redacted()
	report.Controller = &ControllerStatus{
		Host:        red.ControllerHost,
		Port:        red.ControllerPort,
		SSLEnabled:  red.ControllerSSLEnabled,
		AccountName: red.AccountName,
		AccessKey:   red.AccountAccessKey,
		Application: red.ApplicationName,
		Tier:        red.TierName,
		Node:        red.NodeName,
	}
}
