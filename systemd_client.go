package gamesvc

import (
	"context"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/axondata/go-gamesvc/internal/runner"
	"go.uber.org/zap"
)

// systemctl status exit codes (LSB). Anything else, such as sudo failing
// with 1, says nothing about the unit.
const (
	systemctlRunning    = 0
	systemctlNotRunning = 3
	systemctlNoSuchUnit = 4
)

// Systemd runs game servers as transient systemd units created with
// systemd-run and controlled with systemctl.
type Systemd struct {
	// UseSudo indicates whether to prefix supervisor commands with sudo
	UseSudo bool

	// SudoCommand is the sudo command to use (default: "sudo")
	SudoCommand string

	// SystemctlPath is the path to systemctl binary
	SystemctlPath string

	// SystemdRunPath is the path to systemd-run binary
	SystemdRunPath string

	// JournalctlPath is the path to journalctl binary
	JournalctlPath string

	// SettleInterval is the pause between stop and start during a restart
	SettleInterval time.Duration

	runner runner.Runner
	logger *zap.Logger
	stderr io.Writer
}

var _ Supervisor = (*Systemd)(nil)

// NewSystemd creates a Systemd adapter. Sudo is used when not running as root.
func NewSystemd() *Systemd {
	return &Systemd{
		UseSudo:        os.Geteuid() != 0,
		SudoCommand:    DefaultSudoCommand,
		SystemctlPath:  DefaultSystemctlPath,
		SystemdRunPath: DefaultSystemdRunPath,
		JournalctlPath: DefaultJournalctlPath,
		SettleInterval: DefaultSettleInterval,
		runner:         runner.Exec{},
		logger:         zap.NewNop(),
		stderr:         os.Stderr,
	}
}

// WithSudo configures sudo usage
func (s *Systemd) WithSudo(use bool, command string) *Systemd {
	s.UseSudo = use
	if command != "" {
		s.SudoCommand = command
	}
	return s
}

// WithPaths overrides the supervisor tool paths; empty values keep the current ones
func (s *Systemd) WithPaths(systemctl, systemdRun, journalctl string) *Systemd {
	if systemctl != "" {
		s.SystemctlPath = systemctl
	}
	if systemdRun != "" {
		s.SystemdRunPath = systemdRun
	}
	if journalctl != "" {
		s.JournalctlPath = journalctl
	}
	return s
}

// WithSettleInterval sets the restart settle interval
func (s *Systemd) WithSettleInterval(d time.Duration) *Systemd {
	s.SettleInterval = d
	return s
}

// WithRunner sets the runner used for every supervisor call
func (s *Systemd) WithRunner(r runner.Runner) *Systemd {
	s.runner = r
	return s
}

// WithLogger sets the logger
func (s *Systemd) WithLogger(l *zap.Logger) *Systemd {
	s.logger = l
	return s
}

// WithStderr sets where streamed log errors are written
func (s *Systemd) WithStderr(w io.Writer) *Systemd {
	s.stderr = w
	return s
}

// command builds a supervisor invocation with the optional sudo prefix
func (s *Systemd) command(tool string, args ...string) runner.Command {
	if s.UseSudo {
		return runner.Command{Name: s.SudoCommand, Args: append([]string{tool}, args...)}
	}
	return runner.Command{Name: tool, Args: args}
}

// Status maps `systemctl is-active` output onto a ServiceStatus.
// is-active exits 3 for anything but active, so its output is read for
// both 0 and 3. Other exits come from the tool or sudo failing.
func (s *Systemd) Status(ctx context.Context, unit string) ServiceStatus {
	res, err := s.runner.Run(ctx, s.command(s.SystemctlPath, "is-active", unit))
	if err != nil && !runner.Exited(err) {
		s.logger.Debug("status query failed", zap.String("unit", unit), zap.Error(err))
		return StatusUnknown
	}
	if res.ExitCode != systemctlRunning && res.ExitCode != systemctlNotRunning {
		s.logger.Debug("status query failed", zap.String("unit", unit),
			zap.Int("exit_code", res.ExitCode), zap.ByteString("stderr", res.Stderr))
		return StatusUnknown
	}
	return parseActiveState(string(res.Stdout))
}

func parseActiveState(out string) ServiceStatus {
	switch strings.TrimSpace(out) {
	case "active", "reloading", "activating", "deactivating":
		return StatusActive
	case "inactive", "dead":
		return StatusInactive
	case "failed":
		return StatusFailed
	default:
		return StatusUnknown
	}
}

// IsActive reports whether `systemctl is-active --quiet` succeeds
func (s *Systemd) IsActive(ctx context.Context, unit string) bool {
	_, err := s.runner.Run(ctx, s.command(s.SystemctlPath, "is-active", "--quiet", unit))
	return err == nil
}

// IsManaged reports whether systemd has any record of the unit. Only the
// running and not-running status codes count; a failed query does not.
func (s *Systemd) IsManaged(ctx context.Context, unit string) bool {
	res, err := s.runner.Run(ctx, s.command(s.SystemctlPath, "status", unit))
	if err != nil && !runner.Exited(err) {
		return false
	}
	switch res.ExitCode {
	case systemctlRunning, systemctlNotRunning:
		return true
	case systemctlNoSuchUnit:
		return false
	default:
		s.logger.Debug("status query failed", zap.String("unit", unit),
			zap.Int("exit_code", res.ExitCode), zap.ByteString("stderr", res.Stderr))
		return false
	}
}

// StartArgs returns the systemd-run arguments for cfg. Environment entries
// are emitted in key order so the command line is stable.
func StartArgs(cfg ServiceConfig) []string {
	args := []string{
		"--unit=" + cfg.UnitName,
		"--uid=" + cfg.User,
		"--gid=" + cfg.RunGroup(),
		"--collect",
	}
	if cfg.WorkingDirectory != "" {
		args = append(args, "--working-directory="+cfg.WorkingDirectory)
	}
	for _, k := range slices.Sorted(maps.Keys(cfg.Environment)) {
		args = append(args, fmt.Sprintf("--setenv=%s=%s", k, cfg.Environment[k]))
	}
	args = append(args, cfg.Executable)
	return append(args, cfg.Args...)
}

// Start launches cfg as a transient unit. It fails with ErrAlreadyRunning
// without calling systemd-run when the unit is active.
func (s *Systemd) Start(ctx context.Context, cfg ServiceConfig) error {
	log := s.logger.With(zap.String("game", cfg.ID), zap.String("unit", cfg.UnitName))

	if s.IsActive(ctx, cfg.UnitName) {
		return &OpError{
			Op:         OpStart,
			Game:       cfg.ID,
			Path:       cfg.UnitName,
			Err:        ErrAlreadyRunning,
			Suggestion: fmt.Sprintf("run 'gameserver restart %s' to restart it", cfg.ID),
		}
	}

	res, err := s.runner.Run(ctx, s.command(s.SystemdRunPath, StartArgs(cfg)...))
	if err != nil {
		log.Error("systemd-run failed", zap.Int("exit_code", res.ExitCode), zap.Error(err))
		return &OpError{
			Op:       OpStart,
			Game:     cfg.ID,
			Path:     cfg.UnitName,
			ExitCode: res.ExitCode,
			Stderr:   strings.TrimSpace(string(res.Stderr)),
			Err:      fmt.Errorf("%w: %v", ErrServiceStartFailed, err),
		}
	}
	log.Info("service started")
	return nil
}

// Stop stops the unit. A unit systemd has never seen is already stopped.
// A configured shutdown command runs first; its failure does not prevent
// the stop.
func (s *Systemd) Stop(ctx context.Context, cfg ServiceConfig) error {
	log := s.logger.With(zap.String("game", cfg.ID), zap.String("unit", cfg.UnitName))

	if !s.IsManaged(ctx, cfg.UnitName) {
		log.Debug("unit not managed, nothing to stop")
		return nil
	}

	if len(cfg.ShutdownCommand) > 0 {
		if _, err := s.runner.Run(ctx, runner.Command{
			Name: cfg.ShutdownCommand[0],
			Args: cfg.ShutdownCommand[1:],
			Dir:  cfg.WorkingDirectory,
		}); err != nil {
			log.Warn("shutdown command failed", zap.Error(err))
		}
	}

	res, err := s.runner.Run(ctx, s.command(s.SystemctlPath, "stop", cfg.UnitName))
	if err != nil {
		log.Error("systemctl stop failed", zap.Int("exit_code", res.ExitCode), zap.Error(err))
		return &OpError{
			Op:       OpStop,
			Game:     cfg.ID,
			Path:     cfg.UnitName,
			ExitCode: res.ExitCode,
			Stderr:   strings.TrimSpace(string(res.Stderr)),
			Err:      fmt.Errorf("%w: %v", ErrServiceStopFailed, err),
		}
	}
	log.Info("service stopped")
	return nil
}

// Restart stops the unit, waits for the settle interval, and starts it again
func (s *Systemd) Restart(ctx context.Context, cfg ServiceConfig) error {
	if err := s.Stop(ctx, cfg); err != nil {
		return err
	}

	if s.SettleInterval > 0 {
		timer := time.NewTimer(s.SettleInterval)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return &OpError{Op: OpRestart, Game: cfg.ID, Path: cfg.UnitName, Err: ctx.Err()}
		case <-timer.C:
		}
	}

	return s.Start(ctx, cfg)
}

// LogArgs returns the journalctl arguments for unit. Without extra
// arguments the last DefaultLogLines lines are shown without a pager.
func LogArgs(unit string, extra []string) []string {
	args := []string{"-u", unit}
	if len(extra) == 0 {
		return append(args, "--no-pager", "-n", fmt.Sprint(DefaultLogLines))
	}
	return append(args, extra...)
}

// Logs streams journal output for unit into w. Cancelling ctx ends the
// stream and is not an error.
func (s *Systemd) Logs(ctx context.Context, unit string, args []string, w io.Writer) error {
	cmd := s.command(s.JournalctlPath, LogArgs(unit, args)...)
	cmd.Stdout = w
	cmd.Stderr = s.stderr

	res, err := s.runner.Run(ctx, cmd)
	if err == nil || ctx.Err() != nil {
		return nil
	}
	return &OpError{Op: OpLogs, Path: unit, ExitCode: res.ExitCode, Err: err}
}
