// pkg/systemctl/state.go

package systemctl

import (
	"context"
	"sort"
	"strings"
	"time"

	cerr "github.com/cockroachdb/errors"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// ServiceState is the condensed answer for status reporting and backup
// metadata.
type ServiceState string

const (
	StateRunning       ServiceState = "running"
	StateStopped       ServiceState = "stopped"
	StateFailed        ServiceState = "failed"
	StateNotRegistered ServiceState = "not-registered"
)

// StateOf condenses unit existence plus active state into one value.
func StateOf(ctx context.Context, client Client, unit string) (ServiceState, error) {
	exists, err := client.UnitExists(ctx, unit)
	if err != nil {
		return StateNotRegistered, err
	}
	if !exists {
		return StateNotRegistered, nil
	}

	state, err := client.ActiveState(ctx, unit)
	if err != nil {
		return StateStopped, err
	}
	switch state {
	case "active", "activating":
		return StateRunning, nil
	case "failed":
		return StateFailed, nil
	default:
		return StateStopped, nil
	}
}

// IsActive reports whether the unit is currently active.
func IsActive(ctx context.Context, client Client, unit string) bool {
	state, err := client.ActiveState(ctx, unit)
	return err == nil && state == "active"
}

// StopAndConfirm asks for a stop and polls once after the wait. A unit still
// active after the wait is a hard failure; the caller decides what to do
// with the tree it was about to touch.
func StopAndConfirm(ctx context.Context, client Client, unit string, wait time.Duration) error {
	logger := otelzap.Ctx(ctx)

	if !IsActive(ctx, client, unit) {
		logger.Debug("Service already stopped", zap.String("unit", unit))
		return nil
	}

	logger.Info("Stopping service", zap.String("unit", unit))
	if err := client.Stop(ctx, unit); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(wait):
	}

	if IsActive(ctx, client, unit) {
		return cerr.Newf("service %s still active %s after stop request", unit, wait)
	}
	logger.Info("Service stopped", zap.String("unit", unit))
	return nil
}

// StartAndConfirm starts the unit and polls once after the wait.
func StartAndConfirm(ctx context.Context, client Client, unit string, wait time.Duration) error {
	logger := otelzap.Ctx(ctx)

	logger.Info("Starting service", zap.String("unit", unit))
	if err := client.Start(ctx, unit); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(wait):
	}

	state, err := client.ActiveState(ctx, unit)
	if err != nil {
		return err
	}
	if state != "active" {
		return cerr.Newf("service %s is %s %s after start request", unit, state, wait)
	}
	logger.Info("Service is active", zap.String("unit", unit))
	return nil
}

// Diagnostics carries post-mortem output for a unit that failed to start.
type Diagnostics struct {
	StatusOutput  string
	JournalOutput string
}

// CaptureDiagnostics collects status and recent journal lines. Failures here
// are advisory; the fields stay empty.
func CaptureDiagnostics(ctx context.Context, client Client, unit string) Diagnostics {
	logger := otelzap.Ctx(ctx)
	diag := Diagnostics{}

	if props, err := client.Show(ctx, unit, "ActiveState", "SubState", "Result", "ExecMainStatus"); err == nil {
		parts := make([]string, 0, len(props))
		for k, v := range props {
			parts = append(parts, k+"="+v)
		}
		sort.Strings(parts)
		diag.StatusOutput = strings.Join(parts, " ")
	}

	journal, err := client.JournalTail(ctx, unit, 50)
	if err != nil {
		logger.Debug("journal capture failed", zap.String("unit", unit), zap.Error(err))
	} else {
		diag.JournalOutput = journal
	}
	return diag
}
