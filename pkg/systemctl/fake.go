// pkg/systemctl/fake.go

package systemctl

import (
	"context"
	"fmt"
	"sync"
)

// Fake is an in-memory Client for tests. Units transition state on
// Start/Stop/Restart; every mutating call is recorded in order.
type Fake struct {
	mu sync.Mutex

	// Units maps unit name to active state ("active", "inactive", "failed").
	// A unit absent from the map does not exist.
	Units map[string]string

	// Enabled tracks enablement per unit.
	Enabled map[string]bool

	// Journal is returned verbatim from JournalTail.
	Journal string

	// Calls records mutating operations, e.g. "stop app.service".
	Calls []string

	// FailOn maps an operation ("start", "stop", "enable", ...) to an error
	// injected on the next matching call.
	FailOn map[string]error

	// StartLeavesState, when non-empty, is the state a unit lands in after
	// Start instead of "active". Used to simulate units that die on boot.
	StartLeavesState string

	// StopKeepsActive simulates a unit that accepts the stop request but
	// never leaves the active state.
	StopKeepsActive bool
}

var _ Client = (*Fake)(nil)

func NewFake() *Fake {
	return &Fake{
		Units:   make(map[string]string),
		Enabled: make(map[string]bool),
		FailOn:  make(map[string]error),
	}
}

func (f *Fake) record(op, unit string) {
	if unit == "" {
		f.Calls = append(f.Calls, op)
		return
	}
	f.Calls = append(f.Calls, op+" "+unit)
}

func (f *Fake) fail(op string) error {
	if err, ok := f.FailOn[op]; ok && err != nil {
		return err
	}
	return nil
}

func (f *Fake) Start(_ context.Context, unit string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("start", unit)
	if err := f.fail("start"); err != nil {
		return err
	}
	state := "active"
	if f.StartLeavesState != "" {
		state = f.StartLeavesState
	}
	f.Units[unit] = state
	return nil
}

func (f *Fake) Stop(_ context.Context, unit string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("stop", unit)
	if err := f.fail("stop"); err != nil {
		return err
	}
	if _, ok := f.Units[unit]; ok && !f.StopKeepsActive {
		f.Units[unit] = "inactive"
	}
	return nil
}

func (f *Fake) Restart(_ context.Context, unit string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("restart", unit)
	if err := f.fail("restart"); err != nil {
		return err
	}
	state := "active"
	if f.StartLeavesState != "" {
		state = f.StartLeavesState
	}
	f.Units[unit] = state
	return nil
}

func (f *Fake) Enable(_ context.Context, unit string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("enable", unit)
	if err := f.fail("enable"); err != nil {
		return err
	}
	f.Enabled[unit] = true
	return nil
}

func (f *Fake) Disable(_ context.Context, unit string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("disable", unit)
	if err := f.fail("disable"); err != nil {
		return err
	}
	f.Enabled[unit] = false
	return nil
}

func (f *Fake) DaemonReload(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("daemon-reload", "")
	return f.fail("daemon-reload")
}

func (f *Fake) ActiveState(_ context.Context, unit string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("is-active"); err != nil {
		return "", err
	}
	state, ok := f.Units[unit]
	if !ok {
		return "inactive", nil
	}
	return state, nil
}

func (f *Fake) Show(_ context.Context, unit string, _ ...string) (map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("show"); err != nil {
		return nil, err
	}
	state, ok := f.Units[unit]
	if !ok {
		return map[string]string{"LoadState": "not-found", "ActiveState": "inactive"}, nil
	}
	enabled := "disabled"
	if f.Enabled[unit] {
		enabled = "enabled"
	}
	return map[string]string{
		"LoadState":     "loaded",
		"ActiveState":   state,
		"UnitFileState": enabled,
	}, nil
}

func (f *Fake) UnitExists(_ context.Context, unit string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("cat"); err != nil {
		return false, err
	}
	_, ok := f.Units[unit]
	return ok, nil
}

func (f *Fake) JournalTail(_ context.Context, unit string, lines int) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("journal"); err != nil {
		return "", err
	}
	if f.Journal == "" {
		return fmt.Sprintf("-- no entries for %s (last %d) --", unit, lines), nil
	}
	return f.Journal, nil
}

// Register adds a unit in the given state without recording a call.
func (f *Fake) Register(unit, state string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Units[unit] = state
}

// Deregister removes a unit entirely, as if its file were deleted and the
// daemon reloaded.
func (f *Fake) Deregister(unit string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.Units, unit)
}
