// pkg/agentconfig/settings_test.go

package agentconfig

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/opsdep/appdctl/pkg/appdctl_io"
)

func settingsRC() *appdctl_io.RuntimeContext {
	return &appdctl_io.RuntimeContext{Ctx: context.Background(), Log: zap.NewNop()}
}

func settingsCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "test"}
	AddSettingFlags(cmd)
	return cmd
}

func TestCollectSettingsPrecedence(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), "agent.env")
	require.NoError(t, os.WriteFile(envFile, []byte(
		"CONTROLLER_HOST=file.example.com\n"+
			"CONTROLLER_PORT=1111\n"+
			"ACCOUNT_NAME=fileacct\n"), 0o644))

	t.Setenv("CONTROLLER_HOST", "env.example.com")
	t.Setenv("CONTROLLER_PORT", "2222")

	cmd := settingsCmd()
	require.NoError(t, cmd.Flags().Set("controller-port", "9443"))

	s, err := CollectSettings(settingsRC(), cmd, envFile)
	require.NoError(t, err)

	// Flag beats environment beats file.
	port, ok := s.Get("CONTROLLER_PORT")
	require.True(t, ok)
	assert.Equal(t, "9443", port)

	host, ok := s.Get("CONTROLLER_HOST")
	require.True(t, ok)
	assert.Equal(t, "env.example.com", host)

	name, ok := s.Get("ACCOUNT_NAME")
	require.True(t, ok)
	assert.Equal(t, "fileacct", name)
}

func TestCollectSettingsEmptyValueIsUnset(t *testing.T) {
	t.Setenv("TIER_NAME", "")

	s, err := CollectSettings(settingsRC(), settingsCmd(), "")
	require.NoError(t, err)

	_, ok := s.Get("TIER_NAME")
	assert.False(t, ok)
}

func TestCollectSettingsMissingEnvFile(t *testing.T) {
	t.Parallel()

	_, err := CollectSettings(settingsRC(), settingsCmd(), filepath.Join(t.TempDir(), "nope.env"))
	require.Error(t, err)
}

func TestPresentFollowsSchemaOrder(t *testing.T) {
	t.Parallel()

	s := NewSettings(map[string]string{
		"NODE_NAME":       "node-1",
		"CONTROLLER_HOST": "saas.example.com",
	})
	assert.Equal(t, []string{"CONTROLLER_HOST", "NODE_NAME"}, s.Present())
	assert.Equal(t, 2, s.Len())
}

func TestFlagName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "controller-ssl-enabled", FlagName("CONTROLLER_SSL_ENABLED"))
	assert.Equal(t, "unique-host-id", FlagName("UNIQUE_HOST_ID"))
}
