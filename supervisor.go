package gamesvc

import (
	"context"
	"io"
)

// ServiceStatus is the live state of a unit as reported by the supervisor
type ServiceStatus int

const (
	// StatusUnknown means the supervisor could not be queried
	StatusUnknown ServiceStatus = iota
	// StatusActive means the unit is running
	StatusActive
	// StatusInactive means the unit is not running
	StatusInactive
	// StatusFailed means the unit exited unsuccessfully
	StatusFailed
)

// String returns the string representation of a ServiceStatus
func (s ServiceStatus) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusInactive:
		return "inactive"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Supervisor drives an external process supervisor. Queries never fail:
// an unreachable supervisor reads as unknown, not active, and not managed.
type Supervisor interface {
	// Status returns the unit's state, StatusUnknown when the query fails
	Status(ctx context.Context, unit string) ServiceStatus
	// IsActive reports whether the unit is running
	IsActive(ctx context.Context, unit string) bool
	// IsManaged reports whether the supervisor knows the unit in any state
	IsManaged(ctx context.Context, unit string) bool
	// Start launches the configured server as a transient unit
	Start(ctx context.Context, cfg ServiceConfig) error
	// Stop stops the unit; an unmanaged unit is already stopped
	Stop(ctx context.Context, cfg ServiceConfig) error
	// Restart stops, waits for the settle interval, and starts
	Restart(ctx context.Context, cfg ServiceConfig) error
	// Logs streams the unit's journal to w until it ends or ctx is done
	Logs(ctx context.Context, unit string, args []string, w io.Writer) error
}
