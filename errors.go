package gamesvc

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Every error returned by this package wraps one of these, so
// callers can branch with errors.Is.
var (
	// ErrConfigurationNotFound indicates no configuration has the requested id
	ErrConfigurationNotFound = errors.New("gamesvc: configuration not found")

	// ErrNoProvisionerAvailable indicates no registered provisioner handles the source type
	ErrNoProvisionerAvailable = errors.New("gamesvc: no provisioner available")

	// ErrSourceMismatch indicates a provisioner was handed a source of another type
	ErrSourceMismatch = errors.New("gamesvc: source type mismatch")

	// ErrProvisionFailed indicates the external download tool exited non-zero
	ErrProvisionFailed = errors.New("gamesvc: provisioning failed")

	// ErrProvisionLocked indicates another provisioning run holds the install directory
	ErrProvisionLocked = errors.New("gamesvc: provisioning already in progress")

	// ErrCorruptMarker indicates the marker file exists but cannot be decoded
	ErrCorruptMarker = errors.New("gamesvc: corrupt marker")

	// ErrMarkerNotFound indicates no marker file exists
	ErrMarkerNotFound = errors.New("gamesvc: marker not found")

	// ErrFilesNotReady indicates installed files are missing, stale, or incomplete
	ErrFilesNotReady = errors.New("gamesvc: game files not ready")

	// ErrAlreadyRunning indicates the unit is already active
	ErrAlreadyRunning = errors.New("gamesvc: already running")

	// ErrServiceStartFailed indicates the supervisor rejected the start request
	ErrServiceStartFailed = errors.New("gamesvc: service start failed")

	// ErrServiceStopFailed indicates the supervisor rejected the stop request
	ErrServiceStopFailed = errors.New("gamesvc: service stop failed")
)

// OpError represents an error from a lifecycle operation
type OpError struct {
	// Op is the operation that failed
	Op Operation
	// Game is the configuration id, when known
	Game string
	// Path is the file or unit involved in the operation
	Path string
	// ExitCode is the external tool's exit code, when one ran
	ExitCode int
	// Stderr is the external tool's error output, when captured
	Stderr string
	// Suggestion is the next command an operator should try
	Suggestion string
	// Err is the underlying error
	Err error
}

// Error returns a formatted error message
func (e *OpError) Error() string {
	var b strings.Builder
	b.WriteString("gamesvc ")
	b.WriteString(e.Op.String())
	if e.Game != "" {
		fmt.Fprintf(&b, " %q", e.Game)
	}
	if e.Path != "" {
		fmt.Fprintf(&b, " (%s)", e.Path)
	}
	fmt.Fprintf(&b, ": %v", e.Err)
	if e.ExitCode != 0 {
		fmt.Fprintf(&b, " (exit code %d)", e.ExitCode)
	}
	if s := strings.TrimSpace(e.Stderr); s != "" {
		fmt.Fprintf(&b, ": %s", s)
	}
	return b.String()
}

// Unwrap returns the underlying error for error chain inspection
func (e *OpError) Unwrap() error {
	return e.Err
}

// Suggestion returns the remediation hint carried by err, if any.
func Suggestion(err error) string {
	var opErr *OpError
	for errors.As(err, &opErr) {
		if opErr.Suggestion != "" {
			return opErr.Suggestion
		}
		err = opErr.Err
		opErr = nil
	}
	return ""
}

// ExitCode returns the external tool exit code carried by err, or 0.
func ExitCode(err error) int {
	var opErr *OpError
	if errors.As(err, &opErr) {
		return opErr.ExitCode
	}
	return 0
}

// MultiError aggregates independent failures, such as the steps of a clean
type MultiError struct {
	// Errors contains all accumulated errors
	Errors []error
}

// Error returns a summary of the accumulated errors
func (m *MultiError) Error() string {
	if len(m.Errors) == 0 {
		return "no errors"
	}
	if len(m.Errors) == 1 {
		return m.Errors[0].Error()
	}
	return fmt.Sprintf("%d errors occurred", len(m.Errors))
}

// Add appends an error to the collection if it's not nil
func (m *MultiError) Add(err error) {
	if err != nil {
		m.Errors = append(m.Errors, err)
	}
}

// Unwrap exposes the accumulated errors to errors.Is and errors.As
func (m *MultiError) Unwrap() []error {
	return m.Errors
}

// Err returns nil if no errors occurred, otherwise returns the MultiError itself
func (m *MultiError) Err() error {
	if len(m.Errors) == 0 {
		return nil
	}
	return m
}

func updateSuggestion(id string) string {
	return fmt.Sprintf("run 'gameserver update %s' to download game files", id)
}
