// pkg/machineagent/remove_test.go

package machineagent

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsdep/appdctl/pkg/appdctl_err"
)

func TestRemoveNothingInstalled(t *testing.T) {
	t.Parallel()
	m, fake := newTestManager(t)

	result, err := m.Remove(testRC(), RemoveOptions{})
	require.NoError(t, err)
	assert.True(t, result.NothingToDo)
	assert.Empty(t, result.BackupName)
	assert.Empty(t, fake.Calls)

	// No directory was created along the way.
	_, statErr := os.Stat(m.Paths().BackupRoot)
	assert.True(t, os.IsNotExist(statErr))
}

func TestRemoveDeclinedChangesNothing(t *testing.T) {
	requireTool(t, "cp")
	m, fake := newTestManager(t)
	seedInstallation(t, m, "24.1.0.100", "old.example.com")
	seedUnitFile(t, m)
	fake.Register(m.Paths().UnitName(), "active")

	withStdin(t, "no\n")
	_, err := m.Remove(testRC(), RemoveOptions{})
	require.Error(t, err)
	assert.True(t, appdctl_err.IsExpectedUserError(err))
	assert.Equal(t, 0, appdctl_err.ExitCode(err))

	assert.True(t, m.IsInstalled())
	assert.True(t, m.UnitFileExists())
	assert.Equal(t, "active", fake.Units[m.Paths().UnitName()])
	assert.Empty(t, fake.Calls)
}

func TestRemoveForce(t *testing.T) {
	t.Parallel()
	requireTool(t, "cp")
	m, fake := newTestManager(t)
	seedInstallation(t, m, "24.1.0.100", "old.example.com")
	seedUnitFile(t, m)
	fake.Register(m.Paths().UnitName(), "active")
	fake.Enabled[m.Paths().UnitName()] = true

	result, err := m.Remove(testRC(), RemoveOptions{Force: true})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(result.BackupName, "pre-remove-"),
		"backup name %q", result.BackupName)

	assert.False(t, m.IsInstalled())
	assert.False(t, m.UnitFileExists())

	calls := strings.Join(fake.Calls, "\n")
	assert.Contains(t, calls, "stop "+m.Paths().UnitName())
	assert.Contains(t, calls, "disable "+m.Paths().UnitName())
	assert.Contains(t, calls, "daemon-reload")

	// The final backup survives under the parent, so the parent stays.
	assert.DirExists(t, m.Paths().ParentDir)
	backupConf := filepath.Join(m.Paths().BackupRoot, result.BackupName,
		"machine-agent", "conf", "controller-info.xml")
	assert.FileExists(t, backupConf)
}

func TestRemoveKeepConfig(t *testing.T) {
	t.Parallel()
	requireTool(t, "cp")
	m, fake := newTestManager(t)
	seedInstallation(t, m, "24.1.0.100", "old.example.com")
	fake.Register(m.Paths().UnitName(), "inactive")

	result, err := m.Remove(testRC(), RemoveOptions{Force: true, KeepConfig: true})
	require.NoError(t, err)
	require.NotEmpty(t, result.PreservedConfigPath)

	preserved := filepath.Join(result.PreservedConfigPath, "controller-info.xml")
	data, err := os.ReadFile(preserved)
	require.NoError(t, err)
	assert.Contains(t, string(data), "old.example.com")
	assert.False(t, m.IsInstalled())
}

func TestRemoveDryRun(t *testing.T) {
	t.Parallel()
	m, fake := newTestManager(t)
	seedInstallation(t, m, "24.1.0.100", "old.example.com")
	seedUnitFile(t, m)
	fake.Register(m.Paths().UnitName(), "active")

	result, err := m.Remove(testRC(), RemoveOptions{DryRun: true})
	require.NoError(t, err)
	assert.False(t, result.NothingToDo)

	assert.True(t, m.IsInstalled())
	assert.True(t, m.UnitFileExists())
	assert.Empty(t, fake.Calls)
}

func TestRemoveUnitFileOnly(t *testing.T) {
	t.Parallel()
	m, fake := newTestManager(t)
	seedUnitFile(t, m)
	fake.Register(m.Paths().UnitName(), "inactive")

	result, err := m.Remove(testRC(), RemoveOptions{Force: true})
	require.NoError(t, err)
	assert.False(t, result.NothingToDo)
	assert.Empty(t, result.BackupName)
	assert.False(t, m.UnitFileExists())

	calls := strings.Join(fake.Calls, "\n")
	assert.Contains(t, calls, "disable "+m.Paths().UnitName())
	assert.Contains(t, calls, "daemon-reload")
}

func TestRestartRequiresRegisteredService(t *testing.T) {
	t.Parallel()
	m, _ := newTestManager(t)

	err := m.Restart(testRC())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not registered")
}

func TestRestart(t *testing.T) {
	t.Parallel()
	m, fake := newTestManager(t)
	fake.Register(m.Paths().UnitName(), "active")

	require.NoError(t, m.Restart(testRC()))
	assert.Contains(t, strings.Join(fake.Calls, "\n"), "restart "+m.Paths().UnitName())
}

func TestRestartServiceDies(t *testing.T) {
	t.Parallel()
	m, fake := newTestManager(t)
	fake.Register(m.Paths().UnitName(), "active")
	fake.StartLeavesState = "failed"

	err := m.Restart(testRC())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed")
}
