package systemctl

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateOf(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		state string // "" means unit not registered
		want  ServiceState
	}{
		{name: "active unit", state: "active", want: StateRunning},
		{name: "activating unit", state: "activating", want: StateRunning},
		{name: "inactive unit", state: "inactive", want: StateStopped},
		{name: "failed unit", state: "failed", want: StateFailed},
		{name: "unregistered unit", state: "", want: StateNotRegistered},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			fake := NewFake()
			if tt.state != "" {
				fake.Register("agent.service", tt.state)
			}
			got, err := StateOf(context.Background(), fake, "agent.service")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStopAndConfirm(t *testing.T) {
	t.Parallel()

	fake := NewFake()
	fake.Register("agent.service", "active")

	err := StopAndConfirm(context.Background(), fake, "agent.service", 10*time.Millisecond)
	require.NoError(t, err)
	assert.Contains(t, fake.Calls, "stop agent.service")
	assert.Equal(t, "inactive", fake.Units["agent.service"])
}

func TestStopAndConfirmAlreadyStopped(t *testing.T) {
	t.Parallel()

	fake := NewFake()
	fake.Register("agent.service", "inactive")

	require.NoError(t, StopAndConfirm(context.Background(), fake, "agent.service", 10*time.Millisecond))
	assert.NotContains(t, fake.Calls, "stop agent.service")
}

func TestStopAndConfirmStillActive(t *testing.T) {
	t.Parallel()

	fake := NewFake()
	fake.Register("agent.service", "active")
	fake.StopKeepsActive = true

	err := StopAndConfirm(context.Background(), fake, "agent.service", 10*time.Millisecond)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "still active")
}

func TestStartAndConfirm(t *testing.T) {
	t.Parallel()

	fake := NewFake()
	fake.Register("agent.service", "inactive")

	require.NoError(t, StartAndConfirm(context.Background(), fake, "agent.service", 10*time.Millisecond))
	assert.Equal(t, "active", fake.Units["agent.service"])
}

func TestStartAndConfirmDiesAfterStart(t *testing.T) {
	t.Parallel()

	fake := NewFake()
	fake.Register("agent.service", "inactive")
	fake.StartLeavesState = "failed"

	err := StartAndConfirm(context.Background(), fake, "agent.service", 10*time.Millisecond)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed")
}

func TestStartAndConfirmStartError(t *testing.T) {
	t.Parallel()

	fake := NewFake()
	fake.Register("agent.service", "inactive")
	fake.FailOn["start"] = errors.New("unit masked")

	err := StartAndConfirm(context.Background(), fake, "agent.service", 10*time.Millisecond)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "masked")
}

func TestCaptureDiagnostics(t *testing.T) {
	t.Parallel()

	fake := NewFake()
	fake.Register("agent.service", "failed")
	fake.Journal = "Aug 25 10:00:00 host java[123]: OutOfMemoryError"

	diag := CaptureDiagnostics(context.Background(), fake, "agent.service")
	assert.Contains(t, diag.StatusOutput, "ActiveState=failed")
	assert.Contains(t, diag.JournalOutput, "OutOfMemoryError")
}

func TestFakeRecordsCallOrder(t *testing.T) {
	t.Parallel()

	fake := NewFake()
	fake.Register("agent.service", "active")

	ctx := context.Background()
	require.NoError(t, fake.Stop(ctx, "agent.service"))
	require.NoError(t, fake.Disable(ctx, "agent.service"))
	require.NoError(t, fake.DaemonReload(ctx))

	assert.Equal(t, []string{"stop agent.service", "disable agent.service", "daemon-reload"}, fake.Calls)
}
