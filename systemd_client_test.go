package gamesvc

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/axondata/go-gamesvc/internal/runner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSystemd(fake *runner.Fake) *Systemd {
	return NewSystemd().WithSudo(false, "").WithRunner(fake).WithSettleInterval(0).WithStderr(&bytes.Buffer{})
}

func TestParseActiveState(t *testing.T) {
	tests := map[string]ServiceStatus{
		"active\n":       StatusActive,
		"reloading":      StatusActive,
		"activating\n":   StatusActive,
		"deactivating\n": StatusActive,
		"inactive\n":     StatusInactive,
		"":               StatusUnknown,
		"failed\n":       StatusFailed,
		"maintenance":    StatusUnknown,
	}
	for out, want := range tests {
		if got := parseActiveState(out); got != want {
			t.Errorf("parseActiveState(%q) = %s, want %s", out, got, want)
		}
	}
}

func TestSystemdStatus(t *testing.T) {
	ctx := context.Background()

	fake := (&runner.Fake{}).
		On("is-active up", runner.Reply{Stdout: "active\n"}).
		On("is-active down", runner.Reply{Stdout: "inactive\n", ExitCode: 3}).
		On("is-active crashed", runner.Reply{Stdout: "failed\n", ExitCode: 3}).
		On("is-active denied", runner.Reply{Err: errors.New("permission denied")})
	s := newTestSystemd(fake)

	assert.Equal(t, StatusActive, s.Status(ctx, "up"))
	assert.Equal(t, StatusInactive, s.Status(ctx, "down"))
	assert.Equal(t, StatusFailed, s.Status(ctx, "crashed"))
	assert.Equal(t, StatusUnknown, s.Status(ctx, "denied"))
}

func TestSystemdSudoFailure(t *testing.T) {
	ctx := context.Background()

	tests := map[string]runner.Reply{
		"password":  {ExitCode: 1, Stderr: "sudo: a password is required\n"},
		"not found": {ExitCode: 1, Stderr: "sudo: systemctl: command not found\n"},
	}
	for name, reply := range tests {
		t.Run(name, func(t *testing.T) {
			fake := (&runner.Fake{}).On("sudo systemctl", reply)
			s := NewSystemd().WithSudo(true, "sudo").WithRunner(fake).WithSettleInterval(0)

			assert.Equal(t, StatusUnknown, s.Status(ctx, "gameserver-valheim"))
			assert.False(t, s.IsActive(ctx, "gameserver-valheim"))
			assert.False(t, s.IsManaged(ctx, "gameserver-valheim"))

			require.NoError(t, s.Stop(ctx, newTestConfig(t)))
			assert.Empty(t, fake.CallsMatching("systemctl stop"))
		})
	}
}

func TestSystemdIsActive(t *testing.T) {
	ctx := context.Background()
	fake := (&runner.Fake{}).
		On("--quiet down", runner.Reply{ExitCode: 3}).
		On("--quiet broken", runner.Reply{Err: errors.New("not found")})
	s := newTestSystemd(fake)

	assert.True(t, s.IsActive(ctx, "up"))
	assert.False(t, s.IsActive(ctx, "down"))
	assert.False(t, s.IsActive(ctx, "broken"))
}

func TestSystemdIsManaged(t *testing.T) {
	ctx := context.Background()
	fake := (&runner.Fake{}).
		On("status inactive", runner.Reply{ExitCode: 3}).
		On("status ghost", runner.Reply{ExitCode: 4, Stderr: "Unit ghost.service could not be found."}).
		On("status broken", runner.Reply{Err: errors.New("exec: not found")})
	s := newTestSystemd(fake)

	assert.True(t, s.IsManaged(ctx, "running"))
	assert.True(t, s.IsManaged(ctx, "inactive"))
	assert.False(t, s.IsManaged(ctx, "ghost"))
	assert.False(t, s.IsManaged(ctx, "broken"))
}

func TestStartArgs(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.Group = "games"
	cfg.WorkingDirectory = "/srv/valheim"
	cfg.Environment = map[string]string{"SteamAppId": "892970", "LD_LIBRARY_PATH": "./linux64"}

	want := []string{
		"--unit=gameserver-valheim",
		"--uid=steam",
		"--gid=games",
		"--collect",
		"--working-directory=/srv/valheim",
		"--setenv=LD_LIBRARY_PATH=./linux64",
		"--setenv=SteamAppId=892970",
		cfg.Executable,
		"-name", "test", "-port", "2456",
	}
	assert.Equal(t, want, StartArgs(cfg))

	cfg.WorkingDirectory = ""
	cfg.Environment = nil
	cfg.Group = ""
	assert.Equal(t, []string{"--unit=gameserver-valheim", "--uid=steam", "--gid=steam", "--collect",
		cfg.Executable, "-name", "test", "-port", "2456"}, StartArgs(cfg))
}

func TestSystemdStart(t *testing.T) {
	cfg := newTestConfig(t)
	fake := (&runner.Fake{}).On("is-active --quiet", runner.Reply{ExitCode: 3})
	s := newTestSystemd(fake)

	require.NoError(t, s.Start(context.Background(), cfg))

	calls := fake.CallsMatching("systemd-run")
	require.Len(t, calls, 1)
	assert.Equal(t, "systemd-run", calls[0].Name)
	assert.Equal(t, StartArgs(cfg), calls[0].Args)
}

func TestSystemdStartAlreadyRunning(t *testing.T) {
	cfg := newTestConfig(t)
	fake := &runner.Fake{}
	s := newTestSystemd(fake)

	err := s.Start(context.Background(), cfg)
	require.ErrorIs(t, err, ErrAlreadyRunning)
	assert.Contains(t, Suggestion(err), "gameserver restart valheim")
	assert.Empty(t, fake.CallsMatching("systemd-run"), "no start issued for an active unit")
}

func TestSystemdStartFailure(t *testing.T) {
	cfg := newTestConfig(t)
	fake := (&runner.Fake{}).
		On("is-active", runner.Reply{ExitCode: 3}).
		On("systemd-run", runner.Reply{ExitCode: 1, Stderr: "Failed to start transient service unit: Unit gameserver-valheim.service already exists.\n"})
	s := newTestSystemd(fake)

	err := s.Start(context.Background(), cfg)
	require.ErrorIs(t, err, ErrServiceStartFailed)

	var opErr *OpError
	require.True(t, errors.As(err, &opErr))
	assert.Equal(t, 1, opErr.ExitCode)
	assert.Equal(t, "Failed to start transient service unit: Unit gameserver-valheim.service already exists.", opErr.Stderr)
}

func TestSystemdSudo(t *testing.T) {
	cfg := newTestConfig(t)
	fake := (&runner.Fake{}).On("is-active", runner.Reply{ExitCode: 3})
	s := newTestSystemd(fake).WithSudo(true, "doas").WithPaths("/usr/bin/systemctl", "/usr/bin/systemd-run", "")

	require.NoError(t, s.Start(context.Background(), cfg))

	for _, c := range fake.Calls() {
		assert.Equal(t, "doas", c.Name)
	}
	run := fake.CallsMatching("systemd-run")
	require.Len(t, run, 1)
	assert.Equal(t, "/usr/bin/systemd-run", run[0].Args[0])
}

func TestSystemdStop(t *testing.T) {
	cfg := newTestConfig(t)
	fake := &runner.Fake{}
	s := newTestSystemd(fake)

	require.NoError(t, s.Stop(context.Background(), cfg))
	stops := fake.CallsMatching("stop gameserver-valheim")
	require.Len(t, stops, 1)
	assert.Equal(t, []string{"stop", "gameserver-valheim"}, stops[0].Args)
}

func TestSystemdStopUnmanaged(t *testing.T) {
	cfg := newTestConfig(t)
	fake := (&runner.Fake{}).On("status", runner.Reply{ExitCode: 4})
	s := newTestSystemd(fake)

	require.NoError(t, s.Stop(context.Background(), cfg))
	assert.Empty(t, fake.CallsMatching("stop"), "no stop issued for an unknown unit")
}

func TestSystemdStopFailure(t *testing.T) {
	cfg := newTestConfig(t)
	fake := (&runner.Fake{}).On(" stop ", runner.Reply{ExitCode: 1, Stderr: "Access denied"})
	s := newTestSystemd(fake)

	err := s.Stop(context.Background(), cfg)
	require.ErrorIs(t, err, ErrServiceStopFailed)
	assert.Contains(t, err.Error(), "Access denied")
}

func TestSystemdStopShutdownCommand(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.WorkingDirectory = "/srv/valheim"
	cfg.ShutdownCommand = []string{"rcon", "-c", "save"}
	fake := (&runner.Fake{}).On("rcon", runner.Reply{ExitCode: 2})
	s := newTestSystemd(fake)

	require.NoError(t, s.Stop(context.Background(), cfg), "shutdown command failure does not block the stop")

	calls := fake.Calls()
	require.Len(t, calls, 3)
	assert.Equal(t, "rcon", calls[1].Name)
	assert.Equal(t, "/srv/valheim", calls[1].Dir)
	assert.Equal(t, []string{"stop", "gameserver-valheim"}, calls[2].Args)
}

func TestSystemdRestart(t *testing.T) {
	cfg := newTestConfig(t)
	fake := (&runner.Fake{}).On("is-active --quiet", runner.Reply{ExitCode: 3})
	s := newTestSystemd(fake).WithSettleInterval(10 * time.Millisecond)

	start := time.Now()
	require.NoError(t, s.Restart(context.Background(), cfg))
	assert.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)

	var order []string
	for _, c := range fake.Calls() {
		order = append(order, c.Args[0])
	}
	assert.Equal(t, []string{"status", "stop", "is-active", "--unit=gameserver-valheim"}, order)
}

func TestSystemdRestartStopFails(t *testing.T) {
	cfg := newTestConfig(t)
	fake := (&runner.Fake{}).On(" stop ", runner.Reply{ExitCode: 5})
	s := newTestSystemd(fake)

	err := s.Restart(context.Background(), cfg)
	require.ErrorIs(t, err, ErrServiceStopFailed)
	assert.Empty(t, fake.CallsMatching("systemd-run"))
}

func TestSystemdRestartCancelledDuringSettle(t *testing.T) {
	cfg := newTestConfig(t)
	fake := &runner.Fake{}
	s := newTestSystemd(fake).WithSettleInterval(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := s.Restart(ctx, cfg)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Empty(t, fake.CallsMatching("systemd-run"))
}

func TestLogArgs(t *testing.T) {
	assert.Equal(t, []string{"-u", "unit", "--no-pager", "-n", "50"}, LogArgs("unit", nil))
	assert.Equal(t, []string{"-u", "unit", "-f"}, LogArgs("unit", []string{"-f"}))
}

func TestSystemdLogs(t *testing.T) {
	fake := (&runner.Fake{}).On("journalctl", runner.Reply{Stdout: "line one\nline two\n"})
	s := newTestSystemd(fake)

	var out bytes.Buffer
	require.NoError(t, s.Logs(context.Background(), "gameserver-valheim", nil, &out))
	assert.Equal(t, "line one\nline two\n", out.String())

	calls := fake.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, []string{"-u", "gameserver-valheim", "--no-pager", "-n", "50"}, calls[0].Args)
}

func TestSystemdLogsInterrupted(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	fake := (&runner.Fake{}).On("journalctl", runner.Reply{
		Err: errors.New("signal: interrupt"),
		Do:  func(runner.Command) { cancel() },
	})
	s := newTestSystemd(fake)

	assert.NoError(t, s.Logs(ctx, "unit", []string{"-f"}, &bytes.Buffer{}))
}

func TestSystemdLogsFailure(t *testing.T) {
	fake := (&runner.Fake{}).On("journalctl", runner.Reply{ExitCode: 1, Stderr: "No journal files were found."})
	s := newTestSystemd(fake)

	err := s.Logs(context.Background(), "unit", nil, &bytes.Buffer{})
	require.Error(t, err)
	assert.Equal(t, 1, ExitCode(err))
}
