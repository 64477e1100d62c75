package gamesvc

import (
	"errors"
	"fmt"
	"maps"
	"path/filepath"
	"strings"
)

// ServiceConfig describes one game server. It is loaded and validated
// outside the lifecycle core and never mutated by it.
type ServiceConfig struct {
	// ID uniquely identifies the game
	ID string `json:"id" yaml:"id" toml:"id"`
	// Name is the human-readable game name
	Name string `json:"name" yaml:"name" toml:"name"`
	// Description is free text shown by info
	Description string `json:"description" yaml:"description" toml:"description"`
	// UnitName is the transient unit name used with the supervisor
	UnitName string `json:"unitName" yaml:"unitName" toml:"unitName"`
	// Source is where the game's files come from
	Source Source `json:"game_source" yaml:"game_source" toml:"game_source"`
	// GameDir is the installation directory holding the marker
	GameDir string `json:"gameDir" yaml:"gameDir" toml:"gameDir"`
	// Executable is the server binary
	Executable string `json:"executable" yaml:"executable" toml:"executable"`
	// User runs the server process
	User string `json:"user" yaml:"user" toml:"user"`
	// Group runs the server process; defaults to User
	Group string `json:"group,omitempty" yaml:"group,omitempty" toml:"group,omitempty"`
	// WorkingDirectory is the server's working directory, optional
	WorkingDirectory string `json:"workingDirectory,omitempty" yaml:"workingDirectory,omitempty" toml:"workingDirectory,omitempty"`
	// Args are passed to the executable
	Args []string `json:"args,omitempty" yaml:"args,omitempty" toml:"args,omitempty"`
	// Environment is set on the unit, one entry per variable
	Environment map[string]string `json:"environment,omitempty" yaml:"environment,omitempty" toml:"environment,omitempty"`
	// Ports are the ports the server listens on
	Ports []int `json:"ports,omitempty" yaml:"ports,omitempty" toml:"ports,omitempty"`
	// ConfigFile is the game's own configuration file, optional
	ConfigFile string `json:"configFile,omitempty" yaml:"configFile,omitempty" toml:"configFile,omitempty"`
	// LogDir is where the game writes its logs, optional
	LogDir string `json:"logDir,omitempty" yaml:"logDir,omitempty" toml:"logDir,omitempty"`
	// CleanFilters are user-data paths removed by clean on request
	CleanFilters []string `json:"cleanFilters,omitempty" yaml:"cleanFilters,omitempty" toml:"cleanFilters,omitempty"`
	// ShutdownCommand runs ahead of the supervisor stop when set
	ShutdownCommand []string `json:"shutdownCommand,omitempty" yaml:"shutdownCommand,omitempty" toml:"shutdownCommand,omitempty"`
}

// Validate checks required fields and ranges and fills the group default.
func (c *ServiceConfig) Validate() error {
	var missing []string
	for _, f := range []struct {
		name, value string
	}{
		{"id", c.ID},
		{"name", c.Name},
		{"unitName", c.UnitName},
		{"gameDir", c.GameDir},
		{"executable", c.Executable},
		{"user", c.User},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required fields: %s", strings.Join(missing, ", "))
	}

	if err := c.Source.Validate(); err != nil {
		return fmt.Errorf("game_source: %w", err)
	}

	var errs []error
	for _, port := range c.Ports {
		if port < 1 || port > 65535 {
			errs = append(errs, fmt.Errorf("port %d is not in valid range 1-65535", port))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}

	if c.Group == "" {
		c.Group = c.User
	}
	return nil
}

// RunGroup returns the group the unit runs as, defaulting to the user
func (c ServiceConfig) RunGroup() string {
	if c.Group != "" {
		return c.Group
	}
	return c.User
}

// MarkerPath returns the completion marker location inside GameDir
func (c ServiceConfig) MarkerPath() string {
	return filepath.Join(c.GameDir, MarkerFile)
}

// LockPath returns the provisioning lock location inside GameDir
func (c ServiceConfig) LockPath() string {
	return filepath.Join(c.GameDir, LockFile)
}

// Clone creates a deep copy of the ServiceConfig
func (c ServiceConfig) Clone() ServiceConfig {
	out := c
	out.Source = c.Source.Clone()
	if c.Args != nil {
		out.Args = append([]string(nil), c.Args...)
	}
	if c.Environment != nil {
		out.Environment = maps.Clone(c.Environment)
	}
	if c.Ports != nil {
		out.Ports = append([]int(nil), c.Ports...)
	}
	if c.CleanFilters != nil {
		out.CleanFilters = append([]string(nil), c.CleanFilters...)
	}
	if c.ShutdownCommand != nil {
		out.ShutdownCommand = append([]string(nil), c.ShutdownCommand...)
	}
	return out
}
