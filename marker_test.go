package gamesvc

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/axondata/go-gamesvc/internal/fslock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkerRoundTrip(t *testing.T) {
	cfg := newTestConfig(t)
	src := Source{Type: SourceSteam, SourceID: "896660", Metadata: map[string]string{MetaBetaBranch: "public-test"}}
	want := writeTestMarker(t, cfg, src, DownloadSuccess)

	got, err := NewMarkerStore().Load(cfg.MarkerPath())
	require.NoError(t, err)

	assert.True(t, want.Timestamp.Equal(got.Timestamp))
	assert.True(t, want.LastUpdated.Equal(got.LastUpdated))
	got.Timestamp, got.LastUpdated = want.Timestamp, want.LastUpdated
	assert.Equal(t, want, got)
}

func TestMarkerFileFormat(t *testing.T) {
	cfg := newTestConfig(t)
	writeTestMarker(t, cfg, cfg.Source, DownloadSuccess)

	data, err := os.ReadFile(cfg.MarkerPath())
	require.NoError(t, err)

	text := string(data)
	assert.Contains(t, text, "\n  \"game_source\": {")
	assert.Contains(t, text, `"download_status": "success"`)
	assert.Contains(t, text, `"timestamp": "2025-03-14T15:09:26Z"`)
	assert.True(t, strings.HasSuffix(text, "}\n"))
}

func TestMarkerLoadErrors(t *testing.T) {
	store := NewMarkerStore()
	dir := t.TempDir()

	_, err := store.Load(filepath.Join(dir, MarkerFile))
	assert.ErrorIs(t, err, ErrMarkerNotFound)

	cases := map[string]string{
		"not json":       "{{{",
		"bad status":     `{"timestamp":"2025-01-01T00:00:00Z","last_updated":"2025-01-01T00:00:00Z","download_status":"done","game_source":{"type":"steam","source_id":"1"}}`,
		"no timestamps":  `{"download_status":"success","game_source":{"type":"steam","source_id":"1"}}`,
		"bad source":     `{"timestamp":"2025-01-01T00:00:00Z","last_updated":"2025-01-01T00:00:00Z","download_status":"success","game_source":{"type":"ftp"}}`,
		"wrong types":    `{"timestamp":"2025-01-01T00:00:00Z","file_count":"many"}`,
		"empty document": ``,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), MarkerFile)
			require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

			_, err := store.Load(path)
			assert.ErrorIs(t, err, ErrCorruptMarker)

			var opErr *OpError
			require.True(t, errors.As(err, &opErr))
			assert.Equal(t, OpMarker, opErr.Op)
			assert.Equal(t, path, opErr.Path)
		})
	}
}

func TestMarkerRemove(t *testing.T) {
	cfg := newTestConfig(t)
	store := NewMarkerStore()

	require.NoError(t, store.Remove(cfg.MarkerPath()), "removing a missing marker")

	writeTestMarker(t, cfg, cfg.Source, DownloadSuccess)
	require.NoError(t, store.Remove(cfg.MarkerPath()))
	_, err := os.Stat(cfg.MarkerPath())
	assert.True(t, os.IsNotExist(err))
}

func TestIsAuthoritative(t *testing.T) {
	src := Source{Type: SourceSteam, SourceID: "294420"}

	assert.False(t, IsAuthoritative(nil, src))
	assert.True(t, IsAuthoritative(&Marker{Source: src}, src))
	assert.False(t, IsAuthoritative(&Marker{Source: Source{Type: SourceSteam, SourceID: "294421"}}, src))
	assert.False(t, IsAuthoritative(&Marker{Source: Source{Type: SourceGOG, SourceID: "294420"}}, src))
}

func TestNeedsProvisioning(t *testing.T) {
	other := Source{Type: SourceSteam, SourceID: "1"}

	tests := []struct {
		name   string
		setup  func(t *testing.T, cfg ServiceConfig)
		force  bool
		expect bool
	}{
		{"no marker", func(*testing.T, ServiceConfig) {}, false, true},
		{"valid marker", func(t *testing.T, cfg ServiceConfig) { writeTestMarker(t, cfg, cfg.Source, DownloadSuccess) }, false, false},
		{"valid marker forced", func(t *testing.T, cfg ServiceConfig) { writeTestMarker(t, cfg, cfg.Source, DownloadSuccess) }, true, true},
		{"failed", func(t *testing.T, cfg ServiceConfig) { writeTestMarker(t, cfg, cfg.Source, DownloadFailed) }, false, true},
		{"partial", func(t *testing.T, cfg ServiceConfig) { writeTestMarker(t, cfg, cfg.Source, DownloadPartial) }, false, true},
		{"validating", func(t *testing.T, cfg ServiceConfig) { writeTestMarker(t, cfg, cfg.Source, DownloadValidating) }, false, true},
		{"stale source", func(t *testing.T, cfg ServiceConfig) { writeTestMarker(t, cfg, other, DownloadSuccess) }, false, true},
		{"corrupt", func(t *testing.T, cfg ServiceConfig) {
			require.NoError(t, os.MkdirAll(cfg.GameDir, 0o755))
			require.NoError(t, os.WriteFile(cfg.MarkerPath(), []byte("nope"), 0o644))
		}, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := newTestConfig(t)
			tt.setup(t, cfg)
			got := NewMarkerStore().NeedsProvisioning(cfg.MarkerPath(), cfg.Source, tt.force)
			assert.Equal(t, tt.expect, got)
		})
	}
}

func TestInspect(t *testing.T) {
	store := NewMarkerStore()

	t.Run("unprovisioned", func(t *testing.T) {
		cfg := newTestConfig(t)
		st, m := store.Inspect(cfg.GameDir, cfg.Source)
		assert.Equal(t, StateUnprovisioned, st)
		assert.Nil(t, m)
	})

	t.Run("valid", func(t *testing.T) {
		cfg := newTestConfig(t)
		writeTestMarker(t, cfg, cfg.Source, DownloadSuccess)
		st, m := store.Inspect(cfg.GameDir, cfg.Source)
		assert.Equal(t, StateValid, st)
		require.NotNil(t, m)
		assert.Equal(t, DownloadSuccess, m.DownloadStatus)
	})

	t.Run("stale", func(t *testing.T) {
		cfg := newTestConfig(t)
		writeTestMarker(t, cfg, Source{Type: SourceSteam, SourceID: "1"}, DownloadSuccess)
		st, m := store.Inspect(cfg.GameDir, cfg.Source)
		assert.Equal(t, StateStale, st)
		assert.NotNil(t, m)
	})

	t.Run("failed", func(t *testing.T) {
		cfg := newTestConfig(t)
		writeTestMarker(t, cfg, cfg.Source, DownloadPartial)
		st, _ := store.Inspect(cfg.GameDir, cfg.Source)
		assert.Equal(t, StateFailed, st)
	})

	t.Run("corrupt", func(t *testing.T) {
		cfg := newTestConfig(t)
		require.NoError(t, os.MkdirAll(cfg.GameDir, 0o755))
		require.NoError(t, os.WriteFile(cfg.MarkerPath(), []byte("[]"), 0o644))
		st, m := store.Inspect(cfg.GameDir, cfg.Source)
		assert.Equal(t, StateCorrupt, st)
		assert.Nil(t, m)
	})

	t.Run("in progress", func(t *testing.T) {
		cfg := newTestConfig(t)
		writeTestMarker(t, cfg, cfg.Source, DownloadSuccess)
		lock, err := fslock.TryLock(cfg.LockPath())
		require.NoError(t, err)

		st, _ := store.Inspect(cfg.GameDir, cfg.Source)
		assert.Equal(t, StateInProgress, st)

		require.NoError(t, lock.Unlock())
		st, _ = store.Inspect(cfg.GameDir, cfg.Source)
		assert.Equal(t, StateValid, st)
	})
}

func TestProvisionStateString(t *testing.T) {
	assert.Equal(t, "unprovisioned", StateUnprovisioned.String())
	assert.Equal(t, "in-progress", StateInProgress.String())
	assert.Equal(t, "valid", StateValid.String())
	assert.Equal(t, "unknown", ProvisionState(99).String())
}
