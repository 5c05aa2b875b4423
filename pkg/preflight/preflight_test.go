package preflight

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/opsdep/appdctl/pkg/appdctl_io"
	"github.com/opsdep/appdctl/pkg/systemctl"
)

func testRC(t *testing.T) *appdctl_io.RuntimeContext {
	t.Helper()
	rc := appdctl_io.NewContext(context.Background(), "test")
	rc.Log = zap.NewNop()
	t.Cleanup(func() {
		var err error
		rc.End(&err)
	})
	return rc
}

func TestRequireCommands(t *testing.T) {
	rc := testRC(t)

	// sh is present everywhere the tests run.
	require.NoError(t, RequireCommands(rc, "sh"))

	err := RequireCommands(rc, "sh", "no-such-tool-abc", "no-such-tool-xyz")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no-such-tool-abc")
	assert.Contains(t, err.Error(), "no-such-tool-xyz")
}

func TestRequireInstalled(t *testing.T) {
	rc := testRC(t)
	dir := t.TempDir()

	require.NoError(t, RequireInstalled(rc, dir))

	err := RequireInstalled(rc, filepath.Join(dir, "missing"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no installation found")
}

func TestRequireServiceRegistered(t *testing.T) {
	rc := testRC(t)
	fake := systemctl.NewFake()

	err := RequireServiceRegistered(rc, fake, "agent.service")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not registered")

	fake.Register("agent.service", "inactive")
	require.NoError(t, RequireServiceRegistered(rc, fake, "agent.service"))
}

func TestCheckDiskSpace(t *testing.T) {
	rc := testRC(t)
	dir := t.TempDir()

	// Any real filesystem has more than one byte free.
	require.NoError(t, CheckDiskSpace(rc, dir, 1))

	// Probing a not-yet-existing subdirectory walks up to an ancestor.
	require.NoError(t, CheckDiskSpace(rc, filepath.Join(dir, "a", "b", "c"), 1))

	// An absurd requirement fails.
	err := CheckDiskSpace(rc, dir, 1<<62)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not enough disk space")
}
