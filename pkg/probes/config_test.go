// pkg/probes/config_test.go

package probes

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsdep/appdctl/pkg/metrics"
)

func writeProbeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "probes.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	t.Parallel()

	path := writeProbeConfig(t, `
metric_prefix: Custom Metrics|ops
processes:
  - name: machineagent
    metric: Agent|Running
  - name: java
services:
  - name: appdynamics-machine-agent
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "Custom Metrics|ops", cfg.Prefix())
	require.Len(t, cfg.Processes, 2)
	assert.Equal(t, "machineagent", cfg.Processes[0].Name)
	assert.Equal(t, "Agent|Running", cfg.Processes[0].Metric)
	assert.Equal(t, "java", cfg.Processes[1].Name)
	assert.Empty(t, cfg.Processes[1].Metric)
	require.Len(t, cfg.Services, 1)
	assert.Equal(t, "appdynamics-machine-agent", cfg.Services[0].Name)
}

func TestLoadConfigDefaultPrefix(t *testing.T) {
	t.Parallel()

	path := writeProbeConfig(t, "processes:\n  - name: java\n")
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, metrics.DefaultPrefix, cfg.Prefix())
}

func TestLoadConfigMissingFile(t *testing.T) {
	t.Parallel()

	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadConfigBadYAML(t *testing.T) {
	t.Parallel()

	path := writeProbeConfig(t, "processes: [}\n")
	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadConfigRequiresNames(t *testing.T) {
	t.Parallel()

	path := writeProbeConfig(t, `
processes:
  - metric: Agent|Running
services:
  - name: ""
`)
	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "processes[0]")
	assert.Contains(t, err.Error(), "services[0]")
}
