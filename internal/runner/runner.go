// Package runner executes external tools on behalf of the supervisor adapter
// and the provisioners. Everything that spawns a process goes through Runner
// so tests can substitute a recording fake.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
)

// ExitCodeNotFound is reported when the executable could not be started.
const ExitCodeNotFound = 127

// Command describes a single process invocation.
type Command struct {
	// Name is the executable to run
	Name string
	// Args are passed to the executable
	Args []string
	// Dir is the working directory, empty for the current one
	Dir string
	// Stdout receives standard output when set; otherwise it is captured
	Stdout io.Writer
	// Stderr receives standard error when set; otherwise it is captured
	Stderr io.Writer
}

// Argv returns the full argument vector including the executable.
func (c Command) Argv() []string {
	return append([]string{c.Name}, c.Args...)
}

// String returns the command line joined by spaces.
func (c Command) String() string {
	return strings.Join(c.Argv(), " ")
}

// Result carries the observable outcome of a finished command.
type Result struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// ExitError is returned when a command ran and exited non-zero.
type ExitError struct {
	Code   int
	Stderr string
}

func (e *ExitError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return fmt.Sprintf("exit status %d (stderr: %s)", e.Code, strings.TrimSpace(e.Stderr))
}

// Runner runs commands to completion.
type Runner interface {
	Run(ctx context.Context, cmd Command) (Result, error)
}

// Exec runs commands on the local host through os/exec.
type Exec struct{}

// Run executes cmd. A non-zero exit yields an *ExitError together with the
// captured output; a failure to start yields ExitCodeNotFound or -1.
func (Exec) Run(ctx context.Context, cmd Command) (Result, error) {
	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	c.Dir = cmd.Dir

	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	if cmd.Stdout != nil {
		c.Stdout = cmd.Stdout
	}
	c.Stderr = &stderr
	if cmd.Stderr != nil {
		c.Stderr = cmd.Stderr
	}

	err := c.Run()
	res := Result{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}
	if err == nil {
		return res, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		return res, &ExitError{Code: res.ExitCode, Stderr: stderr.String()}
	}

	res.ExitCode = -1
	var execErr *exec.Error
	if errors.As(err, &execErr) {
		res.ExitCode = ExitCodeNotFound
	}
	return res, err
}

// Exited reports whether err describes a command that ran and exited non-zero,
// as opposed to one that could not be started at all.
func Exited(err error) bool {
	var exitErr *ExitError
	return errors.As(err, &exitErr)
}
