package gamesvc

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/axondata/go-gamesvc/internal/runner"
)

var testTime = time.Date(2025, 3, 14, 15, 9, 26, 0, time.UTC)

// newTestConfig returns a valid steam configuration installing into a
// fresh temporary directory
func newTestConfig(t *testing.T) ServiceConfig {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "valheim")
	return ServiceConfig{
		ID:         "valheim",
		Name:       "Valheim",
		UnitName:   "gameserver-valheim",
		Source:     Source{Type: SourceSteam, SourceID: "896660"},
		GameDir:    dir,
		Executable: filepath.Join(dir, "valheim_server.x86_64"),
		User:       "steam",
		Args:       []string{"-name", "test", "-port", "2456"},
		Ports:      []int{2456, 2457},
	}
}

// installFiles creates the executable and a data file, as steamcmd would
func installFiles(t *testing.T, cfg ServiceConfig) {
	t.Helper()
	if err := os.MkdirAll(filepath.Join(cfg.GameDir, "data"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(cfg.Executable, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(cfg.GameDir, "data", "level.dat"), make([]byte, 2048), 0o644); err != nil {
		t.Fatal(err)
	}
}

// writeTestMarker stores a marker for cfg with the given status and source
func writeTestMarker(t *testing.T, cfg ServiceConfig, src Source, status DownloadStatus) *Marker {
	t.Helper()
	if err := os.MkdirAll(cfg.GameDir, 0o755); err != nil {
		t.Fatal(err)
	}
	m := &Marker{
		Timestamp:        testTime,
		Source:           src,
		DownloadStatus:   status,
		GameDir:          cfg.GameDir,
		FileCount:        2,
		TotalSize:        "2.0K",
		ValidationStatus: ValidationPassed,
		LastUpdated:      testTime,
	}
	if err := NewMarkerStore().Write(cfg.MarkerPath(), m); err != nil {
		t.Fatal(err)
	}
	return m
}

// steamcmdInstalls makes a fake steamcmd run create the game files
func steamcmdInstalls(t *testing.T, cfg ServiceConfig) runner.Reply {
	return runner.Reply{Do: func(runner.Command) { installFiles(t, cfg) }}
}
