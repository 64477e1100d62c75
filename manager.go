package gamesvc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/axondata/go-gamesvc/internal/settings"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Confirmer asks the operator a yes/no question
type Confirmer func(prompt string) bool

// AlwaysConfirm answers yes to every prompt
func AlwaysConfirm(string) bool { return true }

// NeverConfirm answers no to every prompt
func NeverConfirm(string) bool { return false }

// UpdateOutcome describes what Update did
type UpdateOutcome int

const (
	// UpdateNotConfigured means the configuration has no provisioning source
	UpdateNotConfigured UpdateOutcome = iota
	// UpdateUpToDate means the installed files were already current
	UpdateUpToDate
	// UpdateProvisioned means the provisioner ran successfully
	UpdateProvisioned
)

// String returns the string representation of an UpdateOutcome
func (o UpdateOutcome) String() string {
	switch o {
	case UpdateNotConfigured:
		return "not-configured"
	case UpdateUpToDate:
		return "up-to-date"
	case UpdateProvisioned:
		return "provisioned"
	default:
		return "unknown"
	}
}

// UpdateResult reports the outcome of Update
type UpdateResult struct {
	Outcome UpdateOutcome
	// LastUpdated is taken from the marker; zero when none was readable
	LastUpdated time.Time
}

// CleanOptions selects what Clean removes
type CleanOptions struct {
	// UserData also removes the configuration's clean filter paths
	UserData bool
}

// CleanReport lists the paths Clean removed and the ones the operator declined
type CleanReport struct {
	Removed  []string
	Declined []string
}

// Download column values in a ServiceReport besides the marker statuses
const (
	DownloadNotDownloaded = "not-downloaded"
	DownloadNotApplicable = "n/a"
	DownloadUnknown       = "unknown"
)

// ServiceReport is a point-in-time view of one configuration
type ServiceReport struct {
	ID       string
	Name     string
	UnitName string
	Status   ServiceStatus
	State    ProvisionState
	// Download is the marker's download status or one of the Download* values
	Download string
	Marker   *Marker
}

// Manager composes the marker store, the provisioner registry, and a
// supervisor into the start, update, stop, restart, and clean lifecycle.
// Managers hold no per-game state and may be shared.
type Manager struct {
	// Concurrency bounds concurrent status queries in ReportAll
	Concurrency int

	registry   *Registry
	supervisor Supervisor
	markers    *MarkerStore
	confirm    Confirmer
	logger     *zap.Logger
}

// ManagerOption configures a Manager
type ManagerOption func(*Manager)

// WithConcurrency sets the maximum number of concurrent status queries
func WithConcurrency(n int) ManagerOption {
	return func(m *Manager) {
		m.Concurrency = n
	}
}

// WithConfirmer sets the confirmation callback used by Clean
func WithConfirmer(c Confirmer) ManagerOption {
	return func(m *Manager) {
		m.confirm = c
	}
}

// WithManagerLogger sets the logger
func WithManagerLogger(l *zap.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = l
	}
}

// NewManager creates a Manager. Clean declines every prompt unless a
// Confirmer is configured.
func NewManager(registry *Registry, supervisor Supervisor, markers *MarkerStore, opts ...ManagerOption) *Manager {
	m := &Manager{
		Concurrency: DefaultConcurrency,
		registry:    registry,
		supervisor:  supervisor,
		markers:     markers,
		confirm:     NeverConfirm,
		logger:      zap.NewNop(),
	}

	for _, opt := range opts {
		opt(m)
	}

	if m.Concurrency < 1 {
		m.Concurrency = 1
	}

	return m
}

// Markers returns the marker store
func (m *Manager) Markers() *MarkerStore {
	return m.markers
}

// Start validates installed files for provisioned sources and starts the unit
func (m *Manager) Start(ctx context.Context, cfg ServiceConfig) error {
	if cfg.Source.RequiresProvisioning() {
		p, err := m.registry.Lookup(cfg)
		if err != nil {
			return err
		}
		if !p.ValidateInstalledFiles(cfg) {
			return &OpError{
				Op:         OpStart,
				Game:       cfg.ID,
				Path:       cfg.GameDir,
				Err:        ErrFilesNotReady,
				Suggestion: updateSuggestion(cfg.ID),
			}
		}
	}
	return m.supervisor.Start(ctx, cfg)
}

// Update provisions the game's files when they are missing, stale, or
// failed, or unconditionally with force. Current files are left untouched.
func (m *Manager) Update(ctx context.Context, cfg ServiceConfig, force bool) (UpdateResult, error) {
	log := m.logger.With(zap.String("game", cfg.ID))

	if !cfg.Source.RequiresProvisioning() {
		log.Info("no provisioning configured")
		return UpdateResult{Outcome: UpdateNotConfigured}, nil
	}

	p, err := m.registry.Lookup(cfg)
	if err != nil {
		return UpdateResult{}, err
	}

	if !p.NeedsProvisioning(cfg, force) {
		res := UpdateResult{Outcome: UpdateUpToDate, LastUpdated: m.lastUpdated(cfg)}
		log.Info("already up to date", zap.Time("last_updated", res.LastUpdated))
		return res, nil
	}

	if err := p.Provision(ctx, cfg, force); err != nil {
		return UpdateResult{}, err
	}
	return UpdateResult{Outcome: UpdateProvisioned, LastUpdated: m.lastUpdated(cfg)}, nil
}

func (m *Manager) lastUpdated(cfg ServiceConfig) time.Time {
	mk, err := m.markers.Load(cfg.MarkerPath())
	if err != nil {
		return time.Time{}
	}
	return mk.LastUpdated
}

// Stop stops the unit
func (m *Manager) Stop(ctx context.Context, cfg ServiceConfig) error {
	return m.supervisor.Stop(ctx, cfg)
}

// Restart restarts the unit
func (m *Manager) Restart(ctx context.Context, cfg ServiceConfig) error {
	return m.supervisor.Restart(ctx, cfg)
}

// Logs streams the unit's journal to w
func (m *Manager) Logs(ctx context.Context, cfg ServiceConfig, args []string, w io.Writer) error {
	return m.supervisor.Logs(ctx, cfg.UnitName, args, w)
}

// Watch observes the provisioning state of the game's install directory
func (m *Manager) Watch(ctx context.Context, cfg ServiceConfig) (<-chan MarkerEvent, WatchCleanupFunc, error) {
	return m.markers.Watch(ctx, cfg.GameDir, cfg.Source)
}

// Clean stops the server, then offers to remove the install directory and,
// with opts.UserData, each clean filter path. Every removal is confirmed
// separately and failures do not stop later steps.
func (m *Manager) Clean(ctx context.Context, cfg ServiceConfig, opts CleanOptions) (CleanReport, error) {
	log := m.logger.With(zap.String("game", cfg.ID))
	var report CleanReport
	merr := &MultiError{}

	if err := m.supervisor.Stop(ctx, cfg); err != nil {
		log.Debug("stop before clean failed", zap.Error(err))
	}

	if exists(cfg.GameDir) {
		size := DownloadUnknown
		if _, n, err := DirUsage(cfg.GameDir); err == nil {
			size = FormatSize(n)
		}
		prompt := fmt.Sprintf("Remove game files in %s (%s)?", cfg.GameDir, size)
		m.remove(cfg, cfg.GameDir, prompt, &report, merr)
	}

	if opts.UserData {
		for _, filter := range cfg.CleanFilters {
			path, err := settings.ExpandHome(filter)
			if err != nil {
				merr.Add(&OpError{Op: OpClean, Game: cfg.ID, Path: filter, Err: err})
				continue
			}
			if !exists(path) {
				log.Debug("user data path absent", zap.String("path", path))
				continue
			}
			m.remove(cfg, path, fmt.Sprintf("Remove user data at %s?", path), &report, merr)
		}
	}

	return report, merr.Err()
}

func (m *Manager) remove(cfg ServiceConfig, path, prompt string, report *CleanReport, merr *MultiError) {
	if !m.confirm(prompt) {
		report.Declined = append(report.Declined, path)
		return
	}
	if err := os.RemoveAll(path); err != nil {
		merr.Add(&OpError{Op: OpClean, Game: cfg.ID, Path: path, Err: err})
		return
	}
	m.logger.Info("removed", zap.String("game", cfg.ID), zap.String("path", path))
	report.Removed = append(report.Removed, path)
}

func exists(path string) bool {
	_, err := os.Lstat(path)
	return !errors.Is(err, fs.ErrNotExist)
}

// Report queries the live status and provisioning state of cfg. It is
// read-only and never fails; unreadable state is reported as unknown.
func (m *Manager) Report(ctx context.Context, cfg ServiceConfig) ServiceReport {
	r := ServiceReport{
		ID:       cfg.ID,
		Name:     cfg.Name,
		UnitName: cfg.UnitName,
		Status:   m.supervisor.Status(ctx, cfg.UnitName),
	}

	r.State, r.Marker = m.markers.Inspect(cfg.GameDir, cfg.Source)
	switch {
	case !cfg.Source.RequiresProvisioning():
		r.Download = DownloadNotApplicable
	case r.Marker != nil:
		r.Download = string(r.Marker.DownloadStatus)
	case r.State == StateUnprovisioned:
		r.Download = DownloadNotDownloaded
	default:
		r.Download = DownloadUnknown
	}
	return r
}

// ReportAll reports every configuration, querying up to Concurrency
// supervisors at once. Reports are returned in input order.
func (m *Manager) ReportAll(ctx context.Context, cfgs []ServiceConfig) ([]ServiceReport, error) {
	reports := make([]ServiceReport, len(cfgs))
	if len(cfgs) == 0 {
		return reports, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.Concurrency)
	for i, cfg := range cfgs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			reports[i] = m.Report(gctx, cfg)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, &OpError{Op: OpStatus, Err: err}
	}
	return reports, nil
}
