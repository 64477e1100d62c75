package gamesvc

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// mockSupervisor is an in-memory Supervisor that tracks unit states and
// records the operations it receives
type mockSupervisor struct {
	mu      sync.Mutex
	units   map[string]ServiceStatus
	ops     []string
	startFn func(cfg ServiceConfig) error
	stopErr error
	logs    string
}

func newMockSupervisor() *mockSupervisor {
	return &mockSupervisor{units: make(map[string]ServiceStatus)}
}

func (m *mockSupervisor) set(unit string, st ServiceStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.units[unit] = st
}

func (m *mockSupervisor) record(op, unit string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ops = append(m.ops, op+" "+unit)
}

func (m *mockSupervisor) operations() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.ops...)
}

func (m *mockSupervisor) Status(_ context.Context, unit string) ServiceStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.units[unit]
	if !ok {
		return StatusInactive
	}
	return st
}

func (m *mockSupervisor) IsActive(ctx context.Context, unit string) bool {
	return m.Status(ctx, unit) == StatusActive
}

func (m *mockSupervisor) IsManaged(_ context.Context, unit string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.units[unit]
	return ok
}

func (m *mockSupervisor) Start(ctx context.Context, cfg ServiceConfig) error {
	if m.IsActive(ctx, cfg.UnitName) {
		return &OpError{Op: OpStart, Game: cfg.ID, Err: ErrAlreadyRunning}
	}
	if m.startFn != nil {
		if err := m.startFn(cfg); err != nil {
			return err
		}
	}
	m.record("start", cfg.UnitName)
	m.set(cfg.UnitName, StatusActive)
	return nil
}

func (m *mockSupervisor) Stop(ctx context.Context, cfg ServiceConfig) error {
	if !m.IsManaged(ctx, cfg.UnitName) {
		return nil
	}
	if m.stopErr != nil {
		return m.stopErr
	}
	m.record("stop", cfg.UnitName)
	m.set(cfg.UnitName, StatusInactive)
	return nil
}

func (m *mockSupervisor) Restart(ctx context.Context, cfg ServiceConfig) error {
	if err := m.Stop(ctx, cfg); err != nil {
		return err
	}
	return m.Start(ctx, cfg)
}

func (m *mockSupervisor) Logs(_ context.Context, unit string, args []string, w io.Writer) error {
	m.record(fmt.Sprintf("logs %v", args), unit)
	_, err := io.WriteString(w, m.logs)
	return err
}
