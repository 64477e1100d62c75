// Package settings loads process-wide gameserver settings from the environment.
package settings

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Settings controls where configurations live and how external tools are invoked.
type Settings struct {
	ServicesDir string `env:"GAMESERVER_SERVICES_DIR" envDefault:"~/services"`

	SteamCMDPath  string `env:"GAMESERVER_STEAMCMD"    envDefault:"steamcmd"`
	SystemctlPath string `env:"GAMESERVER_SYSTEMCTL"   envDefault:"systemctl"`
	SystemdRun    string `env:"GAMESERVER_SYSTEMD_RUN" envDefault:"systemd-run"`
	Journalctl    string `env:"GAMESERVER_JOURNALCTL"  envDefault:"journalctl"`
	PatchelfPath  string `env:"GAMESERVER_PATCHELF"    envDefault:"patchelf"`

	SudoCommand string `env:"GAMESERVER_SUDO"     envDefault:"sudo"`
	UseSudo     string `env:"GAMESERVER_USE_SUDO"`

	SettleInterval time.Duration `env:"GAMESERVER_SETTLE_INTERVAL" envDefault:"2s"`

	RepairInterpreter bool   `env:"GAMESERVER_REPAIR_INTERPRETER" envDefault:"true"`
	ReferenceBinary   string `env:"GAMESERVER_REFERENCE_BINARY"   envDefault:"/bin/sh"`

	LogLevel  string `env:"GAMESERVER_LOG_LEVEL"  envDefault:"info"`
	PrettyLog bool   `env:"GAMESERVER_PRETTY_LOG" envDefault:"true"`

	Concurrency int `env:"GAMESERVER_CONCURRENCY" envDefault:"4"`
}

// Load parses the environment and resolves derived defaults.
func Load() (Settings, error) {
	var s Settings
	if err := env.Parse(&s); err != nil {
		return Settings{}, fmt.Errorf("parse env: %w", err)
	}

	dir, err := ExpandHome(s.ServicesDir)
	if err != nil {
		return Settings{}, err
	}
	s.ServicesDir = dir

	if s.UseSudo != "" {
		if _, err := strconv.ParseBool(strings.TrimSpace(s.UseSudo)); err != nil {
			return Settings{}, fmt.Errorf("GAMESERVER_USE_SUDO: %w", err)
		}
	}
	if s.Concurrency < 1 {
		s.Concurrency = 1
	}
	if s.SettleInterval < 0 {
		return Settings{}, fmt.Errorf("GAMESERVER_SETTLE_INTERVAL must not be negative: %s", s.SettleInterval)
	}
	return s, nil
}

// Sudo reports whether privileged commands should be prefixed with sudo.
// Without an explicit setting, sudo is used unless running as root.
func (s Settings) Sudo() bool {
	if v, err := strconv.ParseBool(strings.TrimSpace(s.UseSudo)); err == nil {
		return v
	}
	return os.Geteuid() != 0
}

// ExpandHome replaces a leading "~" with the current user's home directory.
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
