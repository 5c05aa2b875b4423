// pkg/machineagent/backup.go

package machineagent

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	cerr "github.com/cockroachdb/errors"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"

	"github.com/opsdep/appdctl/pkg/appdctl_io"
	"github.com/opsdep/appdctl/pkg/shared"
	"github.com/opsdep/appdctl/pkg/systemctl"
)

// BackupTimestampLayout names unnamed backups, sortable lexically.
const BackupTimestampLayout = "20060102-150405"

// Backup describes one entry under the backup root. Metadata fields are
// empty when the metadata file is missing or partial.
type Backup struct {
	Name         string `json:"name"`
	Path         string `json:"path"`
	Created      string `json:"created,omitempty"`
	Hostname     string `json:"hostname,omitempty"`
	AgentVersion string `json:"agent_version,omitempty"`
	ServiceState string `json:"service_state,omitempty"`
	HasUnitFile  bool   `json:"has_unit_file"`
}

// InstallDirCopy is the backed-up installation tree inside the backup.
func (b Backup) InstallDirCopy() string {
	return filepath.Join(b.Path, shared.BackupInstallDirEntry)
}

// CreateBackup copies the installation directory and the unit file into
// <backup_root>/<name>/ and records metadata. The name defaults to a
// timestamp; an existing backup of the same name is never overwritten.
// A half-written backup is removed on failure.
func (m *Manager) CreateBackup(rc *appdctl_io.RuntimeContext, name string) (*Backup, error) {
	logger := otelzap.Ctx(rc.Ctx)

	if name == "" {
		name = time.Now().Format(BackupTimestampLayout)
	}
	if strings.ContainsAny(name, "/\\") || name == "." || name == ".." {
		return nil, cerr.Newf("invalid backup name %q", name)
	}
	if !m.IsInstalled() {
		return nil, cerr.Newf("nothing to back up: %s does not exist", m.paths.InstallDir)
	}

	backupDir := filepath.Join(m.paths.BackupRoot, name)
	if _, err := os.Stat(backupDir); err == nil {
		return nil, cerr.Newf("backup %s already exists", backupDir)
	}
	if err := os.MkdirAll(backupDir, shared.DirPermStandard); err != nil {
		return nil, cerr.Wrapf(err, "create %s", backupDir)
	}

	cleanup := func() {
		if rmErr := os.RemoveAll(backupDir); rmErr != nil {
			logger.Warn("Could not remove partial backup",
				zap.String("path", backupDir), zap.Error(rmErr))
		}
	}

	logger.Info("Creating backup",
		zap.String("name", name),
		zap.String("source", m.paths.InstallDir))

	if err := copyTree(rc.Ctx, m.paths.InstallDir, filepath.Join(backupDir, shared.BackupInstallDirEntry)); err != nil {
		cleanup()
		return nil, err
	}

	b := &Backup{
		Name:         name,
		Path:         backupDir,
		Created:      time.Now().UTC().Format(time.RFC3339),
		AgentVersion: m.InstalledVersion(rc),
	}
	if host, err := os.Hostname(); err == nil {
		b.Hostname = host
	}

	state, err := systemctl.StateOf(rc.Ctx, m.sys, m.paths.UnitName())
	if err != nil {
		logger.Warn("Service state unreadable for backup metadata", zap.Error(err))
		b.ServiceState = "unknown"
	} else {
		b.ServiceState = string(state)
	}

	if m.UnitFileExists() {
		if err := copyFile(m.paths.UnitPath, filepath.Join(backupDir, m.paths.UnitName()), shared.FilePermStandard); err != nil {
			cleanup()
			return nil, err
		}
		b.HasUnitFile = true
	}

	if err := m.writeBackupMetadata(b); err != nil {
		cleanup()
		return nil, err
	}

	logger.Info("Backup created", zap.String("path", backupDir))
	return b, nil
}

// ListBackups enumerates the backup root, newest first. Missing or
// unreadable metadata leaves the corresponding fields empty; it never
// fails the listing.
func (m *Manager) ListBackups(rc *appdctl_io.RuntimeContext) ([]Backup, error) {
	logger := otelzap.Ctx(rc.Ctx)

	entries, err := os.ReadDir(m.paths.BackupRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, cerr.Wrapf(err, "read %s", m.paths.BackupRoot)
	}

	var backups []Backup
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		b := Backup{
			Name: entry.Name(),
			Path: filepath.Join(m.paths.BackupRoot, entry.Name()),
		}
		meta, err := readBackupMetadata(filepath.Join(b.Path, shared.BackupMetadataFile))
		if err != nil {
			logger.Debug("Backup metadata unreadable",
				zap.String("backup", b.Name), zap.Error(err))
		} else {
			b.Created = meta["created"]
			b.Hostname = meta["hostname"]
			b.AgentVersion = meta["agent-version"]
			b.ServiceState = meta["service-state"]
		}
		if info, err := os.Stat(filepath.Join(b.Path, m.paths.UnitName())); err == nil && !info.IsDir() {
			b.HasUnitFile = true
		}
		backups = append(backups, b)
	}

	sort.Slice(backups, func(i, j int) bool {
		// RFC3339 timestamps compare lexically; unnamed fields sink.
		if backups[i].Created != backups[j].Created {
			return backups[i].Created > backups[j].Created
		}
		return backups[i].Name > backups[j].Name
	})
	return backups, nil
}

// FindBackup returns the named backup, or an error naming what exists.
func (m *Manager) FindBackup(rc *appdctl_io.RuntimeContext, name string) (*Backup, error) {
	backups, err := m.ListBackups(rc)
	if err != nil {
		return nil, err
	}
	for i := range backups {
		if backups[i].Name == name {
			return &backups[i], nil
		}
	}
	available := make([]string, 0, len(backups))
	for _, b := range backups {
		available = append(available, b.Name)
	}
	if len(available) == 0 {
		return nil, cerr.Newf("backup %q not found; no backups exist under %s", name, m.paths.BackupRoot)
	}
	return nil, cerr.Newf("backup %q not found; available: %s", name, strings.Join(available, ", "))
}

func (m *Manager) writeBackupMetadata(b *Backup) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "created: %s\n", b.Created)
	fmt.Fprintf(&sb, "hostname: %s\n", b.Hostname)
	fmt.Fprintf(&sb, "agent-version: %s\n", b.AgentVersion)
	fmt.Fprintf(&sb, "service-state: %s\n", b.ServiceState)

	path := filepath.Join(b.Path, shared.BackupMetadataFile)
	if err := os.WriteFile(path, []byte(sb.String()), shared.FilePermStandard); err != nil {
		return cerr.Wrapf(err, "write %s", path)
	}
	return nil
}

func readBackupMetadata(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	meta := make(map[string]string)
	for _, line := range strings.Split(string(data), "\n") {
		key, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		meta[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	return meta, nil
}
