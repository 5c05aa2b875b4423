package execute

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunCapturesOutput(t *testing.T) {
	t.Parallel()

	out, err := Run(context.Background(), Options{
		Command: "echo",
		Args:    []string{"hello"},
		Capture: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "hello", strings.TrimSpace(out))
}

func TestRunWithoutCaptureReturnsEmpty(t *testing.T) {
	t.Parallel()

	out, err := Run(context.Background(), Options{
		Command: "echo",
		Args:    []string{"hidden"},
	})
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestRunFailureIncludesOutput(t *testing.T) {
	t.Parallel()

	out, err := Run(context.Background(), Options{
		Command: "sh",
		Args:    []string{"-c", "echo boom failed >&2; exit 3"},
		Capture: true,
	})
	require.Error(t, err)
	assert.Contains(t, out, "boom failed")
	assert.Contains(t, err.Error(), "failed after 1 attempt")
}

func TestRunMissingCommand(t *testing.T) {
	t.Parallel()

	_, err := Run(context.Background(), Options{
		Command: "definitely-not-a-real-command-xyz",
	})
	require.Error(t, err)
}

func TestRunDryRun(t *testing.T) {
	t.Parallel()

	out, err := Run(context.Background(), Options{
		Command: "rm",
		Args:    []string{"-rf", "/nonexistent-should-never-run"},
		DryRun:  true,
		Capture: true,
	})
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestRunHonorsTimeout(t *testing.T) {
	t.Parallel()

	start := time.Now()
	_, err := Run(context.Background(), Options{
		Command: "sleep",
		Args:    []string{"30"},
		Timeout: 500 * time.Millisecond,
	})
	require.Error(t, err)
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestRunRetries(t *testing.T) {
	t.Parallel()

	// A command that always fails should be attempted the requested number
	// of times before giving up.
	_, err := Run(context.Background(), Options{
		Command: "false",
		Retries: 2,
		Delay:   10 * time.Millisecond,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 2 attempt")
}

func TestRunSimple(t *testing.T) {
	t.Parallel()

	require.NoError(t, RunSimple(context.Background(), "true"))
	require.Error(t, RunSimple(context.Background(), "false"))
}
