package gamesvc

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/axondata/go-gamesvc/internal/fslock"
	"github.com/google/renameio/v2"
	"go.uber.org/zap"
)

// DownloadStatus is the outcome recorded in a completion marker
type DownloadStatus string

// Download statuses accepted in a marker
const (
	DownloadSuccess    DownloadStatus = "success"
	DownloadFailed     DownloadStatus = "failed"
	DownloadPartial    DownloadStatus = "partial"
	DownloadValidating DownloadStatus = "validating"
)

// ValidationPassed is the validation status written after a successful run
const ValidationPassed = "passed"

// Valid reports whether s is one of the four marker statuses
func (s DownloadStatus) Valid() bool {
	switch s {
	case DownloadSuccess, DownloadFailed, DownloadPartial, DownloadValidating:
		return true
	default:
		return false
	}
}

// Marker is the persisted record of the most recent provisioning attempt
type Marker struct {
	Timestamp        time.Time      `json:"timestamp"`
	Source           Source         `json:"game_source"`
	DownloadStatus   DownloadStatus `json:"download_status"`
	GameDir          string         `json:"game_dir"`
	FileCount        int            `json:"file_count"`
	TotalSize        string         `json:"total_size"`
	ValidationStatus string         `json:"validation_status"`
	LastUpdated      time.Time      `json:"last_updated"`
}

// ProvisionState is the installation state derived from the marker and lock
type ProvisionState int

const (
	// StateUnprovisioned means no marker exists
	StateUnprovisioned ProvisionState = iota
	// StateInProgress means a provisioning run holds the install directory lock
	StateInProgress
	// StateCorrupt means a marker exists but cannot be decoded
	StateCorrupt
	// StateStale means the marker was written for a different source
	StateStale
	// StateFailed means the marker records an unsuccessful run
	StateFailed
	// StateValid means the marker is authoritative and successful
	StateValid
)

// String returns the string representation of a ProvisionState
func (s ProvisionState) String() string {
	switch s {
	case StateUnprovisioned:
		return "unprovisioned"
	case StateInProgress:
		return "in-progress"
	case StateCorrupt:
		return "corrupt"
	case StateStale:
		return "stale"
	case StateFailed:
		return "failed"
	case StateValid:
		return "valid"
	default:
		return "unknown"
	}
}

// MarkerStore reads, writes, and judges completion markers
type MarkerStore struct {
	logger   *zap.Logger
	debounce time.Duration
}

// MarkerOption configures a MarkerStore
type MarkerOption func(*MarkerStore)

// WithMarkerLogger sets the logger used by the store
func WithMarkerLogger(l *zap.Logger) MarkerOption {
	return func(s *MarkerStore) {
		s.logger = l
	}
}

// WithWatchDebounce sets the debounce applied to marker watch events
func WithWatchDebounce(d time.Duration) MarkerOption {
	return func(s *MarkerStore) {
		s.debounce = d
	}
}

// NewMarkerStore creates a MarkerStore with default settings
func NewMarkerStore(opts ...MarkerOption) *MarkerStore {
	s := &MarkerStore{
		logger:   zap.NewNop(),
		debounce: DefaultWatchDebounce,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load reads the marker at path. It returns ErrMarkerNotFound when the file
// does not exist and ErrCorruptMarker when it cannot be decoded or holds an
// unknown download status.
func (s *MarkerStore) Load(path string) (*Marker, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &OpError{Op: OpMarker, Path: path, Err: ErrMarkerNotFound}
		}
		return nil, &OpError{Op: OpMarker, Path: path, Err: err}
	}

	var m Marker
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, &OpError{Op: OpMarker, Path: path, Err: fmt.Errorf("%w: %v", ErrCorruptMarker, err)}
	}
	if err := m.validate(); err != nil {
		return nil, &OpError{Op: OpMarker, Path: path, Err: fmt.Errorf("%w: %v", ErrCorruptMarker, err)}
	}
	return &m, nil
}

func (m *Marker) validate() error {
	if !m.DownloadStatus.Valid() {
		return fmt.Errorf("download_status must be one of success, failed, partial, validating, got %q", m.DownloadStatus)
	}
	if m.Timestamp.IsZero() || m.LastUpdated.IsZero() {
		return errors.New("timestamp and last_updated are required")
	}
	if !m.Source.Type.Valid() {
		return fmt.Errorf("game_source.type %q is not supported", m.Source.Type)
	}
	return nil
}

// Write atomically replaces the marker at path. Readers observe either the
// previous marker or the complete new one.
func (s *MarkerStore) Write(path string, m *Marker) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return &OpError{Op: OpMarker, Path: path, Err: err}
	}
	data = append(data, '\n')
	if err := renameio.WriteFile(path, data, FileMode); err != nil {
		return &OpError{Op: OpMarker, Path: path, Err: err}
	}
	s.logger.Debug("marker written",
		zap.String("path", path),
		zap.String("download_status", string(m.DownloadStatus)))
	return nil
}

// Remove deletes the marker at path; a missing marker is not an error.
// Removal signals that the install directory is indeterminate.
func (s *MarkerStore) Remove(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return &OpError{Op: OpMarker, Path: path, Err: err}
	}
	return nil
}

// IsAuthoritative reports whether m exists and was written for src
func IsAuthoritative(m *Marker, src Source) bool {
	return m != nil && m.Source.Same(src)
}

// NeedsProvisioning decides whether the files described by the marker at
// path must be (re)provisioned for src. force always wins; an absent,
// unreadable, stale, or unsuccessful marker means yes.
func (s *MarkerStore) NeedsProvisioning(path string, src Source, force bool) bool {
	if force {
		return true
	}
	m, err := s.Load(path)
	if err != nil {
		return true
	}
	if !IsAuthoritative(m, src) {
		return true
	}
	return m.DownloadStatus != DownloadSuccess
}

// Inspect derives the provisioning state of dir for src. The marker is
// returned whenever it could be decoded.
func (s *MarkerStore) Inspect(dir string, src Source) (ProvisionState, *Marker) {
	if fslock.Held(filepath.Join(dir, LockFile)) {
		return StateInProgress, nil
	}
	m, err := s.Load(filepath.Join(dir, MarkerFile))
	switch {
	case errors.Is(err, ErrMarkerNotFound):
		return StateUnprovisioned, nil
	case err != nil:
		return StateCorrupt, nil
	case !IsAuthoritative(m, src):
		return StateStale, m
	case m.DownloadStatus != DownloadSuccess:
		return StateFailed, m
	default:
		return StateValid, m
	}
}
