package gamesvc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/axondata/go-gamesvc/internal/fslock"
	"github.com/axondata/go-gamesvc/internal/runner"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

// SteamProvisioner downloads games with steamcmd using anonymous login
type SteamProvisioner struct {
	// SteamCMDPath is the steamcmd executable
	SteamCMDPath string

	// RepairInterpreter enables rewriting the ELF interpreter of downloaded
	// executables, needed on hosts without a standard dynamic loader path.
	// On by default; binaries already using the host loader are left alone.
	RepairInterpreter bool

	// ReferenceBinary supplies the interpreter used by the repair pass
	ReferenceBinary string

	// PatchelfPath is the patchelf executable used by the repair pass
	PatchelfPath string

	markers *MarkerStore
	runner  runner.Runner
	logger  *zap.Logger
	stdout  io.Writer
	stderr  io.Writer
	now     func() time.Time
}

// SteamOption configures a SteamProvisioner
type SteamOption func(*SteamProvisioner)

// WithSteamCMDPath sets the steamcmd executable
func WithSteamCMDPath(path string) SteamOption {
	return func(p *SteamProvisioner) {
		if path != "" {
			p.SteamCMDPath = path
		}
	}
}

// WithInterpreterRepair turns the interpreter repair pass on or off, using the
// interpreter of reference and the given patchelf binary. Empty values keep
// the defaults.
func WithInterpreterRepair(enabled bool, reference, patchelf string) SteamOption {
	return func(p *SteamProvisioner) {
		p.RepairInterpreter = enabled
		if reference != "" {
			p.ReferenceBinary = reference
		}
		if patchelf != "" {
			p.PatchelfPath = patchelf
		}
	}
}

// WithSteamRunner sets the runner used for steamcmd and patchelf
func WithSteamRunner(r runner.Runner) SteamOption {
	return func(p *SteamProvisioner) {
		p.runner = r
	}
}

// WithSteamLogger sets the logger
func WithSteamLogger(l *zap.Logger) SteamOption {
	return func(p *SteamProvisioner) {
		p.logger = l
	}
}

// WithSteamOutput sets where steamcmd output is streamed
func WithSteamOutput(stdout, stderr io.Writer) SteamOption {
	return func(p *SteamProvisioner) {
		p.stdout = stdout
		p.stderr = stderr
	}
}

// WithSteamClock sets the clock used for marker timestamps
func WithSteamClock(now func() time.Time) SteamOption {
	return func(p *SteamProvisioner) {
		p.now = now
	}
}

// NewSteamProvisioner creates a steam provisioner writing markers through markers
func NewSteamProvisioner(markers *MarkerStore, opts ...SteamOption) *SteamProvisioner {
	p := &SteamProvisioner{
		SteamCMDPath:      DefaultSteamCMDPath,
		RepairInterpreter: true,
		ReferenceBinary:   DefaultReferenceBinary,
		PatchelfPath:      DefaultPatchelfPath,
		markers:           markers,
		runner:            runner.Exec{},
		logger:            zap.NewNop(),
		stdout:            os.Stdout,
		stderr:            os.Stderr,
		now:               time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name implements Provisioner
func (p *SteamProvisioner) Name() string {
	return string(SourceSteam)
}

// CanHandle implements Provisioner
func (p *SteamProvisioner) CanHandle(cfg ServiceConfig) bool {
	return cfg.Source.Type == SourceSteam
}

// NeedsProvisioning implements Provisioner
func (p *SteamProvisioner) NeedsProvisioning(cfg ServiceConfig, force bool) bool {
	if force {
		return true
	}
	return p.markers.NeedsProvisioning(cfg.MarkerPath(), cfg.Source, false)
}

// ValidateInstalledFiles reports whether the executable is a regular file
// and an authoritative, successful marker is present.
func (p *SteamProvisioner) ValidateInstalledFiles(cfg ServiceConfig) bool {
	if !isRegularFile(cfg.Executable) {
		return false
	}
	if cfg.Source.Type != SourceSteam {
		return true
	}
	m, err := p.markers.Load(cfg.MarkerPath())
	if err != nil {
		return false
	}
	return IsAuthoritative(m, cfg.Source) && m.DownloadStatus == DownloadSuccess
}

// BuildSteamCommand returns the steamcmd argument vector for an anonymous
// install of appID into gameDir. The beta flags are added only for a
// non-empty branch, the password only alongside a branch.
func BuildSteamCommand(gameDir, appID, betaBranch, betaPassword string) []string {
	cmd := []string{
		DefaultSteamCMDPath,
		"+force_install_dir", gameDir,
		"+login", "anonymous",
		"+app_update", appID,
	}
	if betaBranch != "" {
		cmd = append(cmd, "-beta", betaBranch)
		if betaPassword != "" {
			cmd = append(cmd, "-betapassword", betaPassword)
		}
	}
	return append(cmd, "validate", "+quit")
}

// Provision downloads or updates the game with steamcmd. The marker is
// removed before steamcmd runs and written again only after it succeeds, so
// an interrupted or failed run leaves no marker behind. force is accepted
// for interface symmetry; steamcmd always validates the installation.
func (p *SteamProvisioner) Provision(ctx context.Context, cfg ServiceConfig, force bool) error {
	if cfg.Source.Type != SourceSteam {
		return &OpError{
			Op:         OpProvision,
			Game:       cfg.ID,
			Err:        fmt.Errorf("%w: steam provisioner got %q", ErrSourceMismatch, cfg.Source.Type),
			Suggestion: "use game_source.type = 'steam'",
		}
	}

	runID := ulid.Make().String()
	log := p.logger.With(
		zap.String("game", cfg.ID),
		zap.String("dir", cfg.GameDir),
		zap.String("app_id", cfg.Source.SourceID),
		zap.String("run_id", runID),
	)

	if err := os.MkdirAll(cfg.GameDir, DirMode); err != nil {
		return &OpError{Op: OpProvision, Game: cfg.ID, Path: cfg.GameDir, Err: err}
	}

	lock, err := fslock.TryLock(cfg.LockPath())
	if err != nil {
		if errors.Is(err, fslock.ErrLocked) {
			return &OpError{
				Op:         OpProvision,
				Game:       cfg.ID,
				Path:       cfg.LockPath(),
				Err:        ErrProvisionLocked,
				Suggestion: "wait for the running update to finish",
			}
		}
		return &OpError{Op: OpProvision, Game: cfg.ID, Path: cfg.LockPath(), Err: err}
	}
	defer func() { _ = lock.Unlock() }()
	if err := lock.WriteOwner(fmt.Sprintf("run=%s pid=%d", runID, os.Getpid())); err != nil {
		log.Debug("writing lock owner", zap.Error(err))
	}

	if err := p.markers.Remove(cfg.MarkerPath()); err != nil {
		return err
	}

	branch := cfg.Source.Meta(MetaBetaBranch)
	password := cfg.Source.Meta(MetaBetaPassword)
	argv := BuildSteamCommand(cfg.GameDir, cfg.Source.SourceID, branch, password)

	fields := []zap.Field{zap.String("steamcmd", p.SteamCMDPath)}
	if branch != "" {
		fields = append(fields, zap.String("beta_branch", branch))
	}
	if password != "" {
		fields = append(fields, zap.String("beta_password", "[REDACTED]"))
	}
	log.Info("updating game files", fields...)

	res, err := p.runner.Run(ctx, runner.Command{
		Name:   p.SteamCMDPath,
		Args:   argv[1:],
		Dir:    cfg.GameDir,
		Stdout: p.stdout,
		Stderr: p.stderr,
	})
	if err != nil {
		code := res.ExitCode
		if code == 0 {
			code = -1
		}
		log.Error("steamcmd failed", zap.Int("exit_code", code), zap.Error(err))
		return &OpError{
			Op:         OpProvision,
			Game:       cfg.ID,
			Path:       cfg.GameDir,
			ExitCode:   code,
			Err:        fmt.Errorf("%w: steamcmd: %v", ErrProvisionFailed, err),
			Suggestion: "check your internet connection and Steam app ID",
		}
	}

	if p.RepairInterpreter {
		p.repairInterpreters(ctx, cfg.GameDir, log)
	}

	files, size, err := DirUsage(cfg.GameDir, MarkerFile, LockFile)
	if err != nil {
		log.Warn("counting installed files", zap.Error(err))
	}

	now := p.now()
	marker := &Marker{
		Timestamp:        now,
		Source:           cfg.Source.Clone(),
		DownloadStatus:   DownloadSuccess,
		GameDir:          cfg.GameDir,
		FileCount:        files,
		TotalSize:        FormatSize(size),
		ValidationStatus: ValidationPassed,
		LastUpdated:      now,
	}
	if err := p.markers.Write(cfg.MarkerPath(), marker); err != nil {
		return err
	}

	log.Info("download completed",
		zap.Int("file_count", files),
		zap.String("total_size", marker.TotalSize))
	return nil
}

func isRegularFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
