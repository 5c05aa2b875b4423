// pkg/agentconfig/controllerinfo_test.go

package agentconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `<?xml version="1.0" encoding="UTF-8"?>
<controller-info>
    <controller-host>old.example.com</controller-host>
    <controller-port>8090</controller-port>
    <controller-ssl-enabled>false</controller-ssl-enabled>
    <enable-orchestration>false</enable-orchestration>
    <unique-host-id>web-01</unique-host-id>
    <account-access-key>secret123</account-access-key>
    <account-name>customer1</account-name>
    <sim-enabled>true</sim-enabled>
    <force-default-machine-id-selection>false</force-default-machine-id-selection>
    <metric-limit>450</metric-limit>
</controller-info>
`

func writeSample(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "controller-info.xml")
	require.NoError(t, os.WriteFile(path, []byte(sampleConfig), 0o644))
	return path
}

func TestLoadParsesKnownFields(t *testing.T) {
	t.Parallel()

	ci, err := Load(writeSample(t))
	require.NoError(t, err)

	assert.Equal(t, "old.example.com", ci.ControllerHost)
	assert.Equal(t, "8090", ci.ControllerPort)
	assert.Equal(t, "secret123", ci.AccountAccessKey)
	assert.Equal(t, "true", ci.SimEnabled)
}

func TestRoundTripPreservesUnknownElements(t *testing.T) {
	t.Parallel()

	ci, err := Load(writeSample(t))
	require.NoError(t, err)
	require.Len(t, ci.Extra, 2)

	out := filepath.Join(t.TempDir(), "conf", "controller-info.xml")
	require.NoError(t, ci.Save(out))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	text := string(data)

	assert.Contains(t, text, "<force-default-machine-id-selection>false</force-default-machine-id-selection>")
	assert.Contains(t, text, "<metric-limit>450</metric-limit>")
	assert.Contains(t, text, "<controller-host>old.example.com</controller-host>")

	again, err := Load(out)
	require.NoError(t, err)
	assert.Equal(t, ci.Extra, again.Extra)
}

func TestApplyUpdatesOnlyProvidedSettings(t *testing.T) {
	t.Parallel()

	ci, err := Load(writeSample(t))
	require.NoError(t, err)

	changed, err := ci.Apply(NewSettings(map[string]string{
		"CONTROLLER_HOST": "new.example.com",
	}))
	require.NoError(t, err)

	assert.Equal(t, []string{"controller-host"}, changed)
	assert.Equal(t, "new.example.com", ci.ControllerHost)
	assert.Equal(t, "8090", ci.ControllerPort)
	assert.Equal(t, "customer1", ci.AccountName)

	out := filepath.Join(t.TempDir(), "controller-info.xml")
	require.NoError(t, ci.Save(out))
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<controller-host>new.example.com</controller-host>")
	assert.NotContains(t, string(data), "old.example.com")
}

func TestApplyRejectsInvalidValues(t *testing.T) {
	t.Parallel()

	ci := Default()
	changed, err := ci.Apply(NewSettings(map[string]string{
		"CONTROLLER_PORT":        "not-a-port",
		"CONTROLLER_SSL_ENABLED": "maybe",
		"CONTROLLER_HOST":        "saas.example.com",
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CONTROLLER_PORT")
	assert.Contains(t, err.Error(), "CONTROLLER_SSL_ENABLED")

	// Valid fields still land even when others are rejected.
	assert.Equal(t, []string{"controller-host"}, changed)
	assert.Equal(t, "saas.example.com", ci.ControllerHost)
	assert.Empty(t, ci.ControllerPort)
}

func TestApplyPortRange(t *testing.T) {
	t.Parallel()

	ci := Default()
	_, err := ci.Apply(NewSettings(map[string]string{"CONTROLLER_PORT": "70000"}))
	require.Error(t, err)

	_, err = ci.Apply(NewSettings(map[string]string{"CONTROLLER_PORT": "443"}))
	require.NoError(t, err)
	assert.Equal(t, "443", ci.ControllerPort)
}

func TestValidateAggregatesMissingFields(t *testing.T) {
	t.Parallel()

	ci := Default()
	err := ci.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "controller-host")
	assert.Contains(t, err.Error(), "controller-port")
	assert.Contains(t, err.Error(), "account-name")
	assert.Contains(t, err.Error(), "account-access-key")

	ci.ControllerHost = "saas.example.com"
	ci.ControllerPort = "443"
	ci.AccountName = "customer1"
	ci.AccountAccessKey = "secret123"
	assert.NoError(t, ci.Validate())
}

func TestRedactedMasksAccessKey(t *testing.T) {
	t.Parallel()

	ci, err := Load(writeSample(t))
	require.NoError(t, err)

	red := ci.Redacted()
	assert.Equal(t, "********", red.AccountAccessKey)
	assert.Equal(t, "secret123", ci.AccountAccessKey)
	assert.Equal(t, ci.ControllerHost, red.ControllerHost)
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "absent.xml"))
	require.Error(t, err)
}
