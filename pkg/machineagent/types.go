// pkg/machineagent/types.go

// Package machineagent implements the Machine Agent lifecycle: install,
// upgrade, remove, backup, restore, restart, status. Operations are
// sequential and non-transactional; a failed step aborts the remainder
// and recovery is manual, via the backups every destructive operation
// creates first.
package machineagent

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/opsdep/appdctl/pkg/shared"
	"github.com/opsdep/appdctl/pkg/systemctl"
)

// Paths fixes every filesystem location an operation touches. It is a
// plain value, built once per invocation and passed down; nothing in
// this package mutates it.
type Paths struct {
	ParentDir  string
	InstallDir string
	PackageDir string
	BackupRoot string

	ServiceName string
	UnitPath    string

	RunUser  string
	RunGroup string
}

// DefaultPaths returns the standard layout under /opt/appdynamics.
func DefaultPaths() Paths {
	return Paths{
		ParentDir:   shared.AgentParentDir,
		InstallDir:  shared.AgentInstallDir,
		PackageDir:  shared.AgentPackageDir,
		BackupRoot:  shared.AgentBackupRoot,
		ServiceName: shared.AgentServiceName,
		UnitPath:    filepath.Join(shared.SystemdUnitDir, shared.AgentUnitFile),
		RunUser:     shared.AgentRunUser,
		RunGroup:    shared.AgentRunGroup,
	}
}

// UnitName is the systemd unit name, service suffix included.
func (p Paths) UnitName() string {
	return p.ServiceName + ".service"
}

// ControllerInfoPath is the managed configuration file inside the install.
func (p Paths) ControllerInfoPath() string {
	return filepath.Join(p.InstallDir, shared.AgentControllerInfo)
}

// ConfDir is the configuration directory inside the install.
func (p Paths) ConfDir() string {
	return filepath.Join(p.InstallDir, shared.AgentConfDirName)
}

// JarPath is the agent's main artifact, also the version source of last
// resort.
func (p Paths) JarPath() string {
	return filepath.Join(p.InstallDir, shared.AgentJar)
}

// SidecarVersionPath is the optional version file next to the jar.
func (p Paths) SidecarVersionPath() string {
	return filepath.Join(p.InstallDir, shared.AgentSidecarVersion)
}

// Result is the outcome of a mutating lifecycle operation. Warnings hold
// advisory failures that did not stop the operation; they are reported
// but never change the exit code.
type Result struct {
	BackupName string
	Version    string
	Warnings   []string

	// NothingToDo marks a removal that found no installation.
	NothingToDo bool
	// PreservedConfigPath is where remove --keep-config parked conf/.
	PreservedConfigPath string
}

func (r *Result) warnf(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Manager performs lifecycle operations against one agent installation.
type Manager struct {
	paths Paths
	sys   systemctl.Client

	// Fixed waits before the single post-stop/post-start state poll.
	stopWait  time.Duration
	startWait time.Duration
}

// NewManager wires a manager for the given layout. Pass
// systemctl.NewExecClient() in production and the package fake in tests.
func NewManager(paths Paths, sys systemctl.Client) *Manager {
	return &Manager{
		paths:     paths,
		sys:       sys,
		stopWait:  shared.ServiceStopWaitSeconds * time.Second,
		startWait: shared.ServiceStartWaitSeconds * time.Second,
	}
}

// Paths exposes the layout the manager operates on.
func (m *Manager) Paths() Paths {
	return m.paths
}

// IsInstalled reports whether the installation directory exists.
func (m *Manager) IsInstalled() bool {
	info, err := os.Stat(m.paths.InstallDir)
	return err == nil && info.IsDir()
}

// UnitFileExists reports whether the service descriptor is on disk.
func (m *Manager) UnitFileExists() bool {
	info, err := os.Stat(m.paths.UnitPath)
	return err == nil && !info.IsDir()
}
