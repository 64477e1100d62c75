// Package catalog loads game server configurations from a services directory.
//
// Each file holds one configuration and may be JSON (.json), YAML (.yaml,
// .yml), or TOML (.toml). Files are read in lexical order. A file that fails
// to decode or validate is skipped with a warning so one broken file does not
// hide the rest; when two files share an id the first one wins.
//
// Field names may be written in camelCase (unitName, gameDir) or snake_case
// (unit_name, game_dir); camelCase wins when a file has both.
package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
	gamesvc "github.com/axondata/go-gamesvc"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Catalog is an immutable, ordered set of validated configurations
type Catalog struct {
	dir     string
	configs []gamesvc.ServiceConfig
	byID    map[string]int
}

// Load reads every configuration file in dir
func Load(dir string, logger *zap.Logger) (*Catalog, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &gamesvc.OpError{
			Op:         gamesvc.OpLoad,
			Path:       dir,
			Err:        err,
			Suggestion: "set GAMESERVER_SERVICES_DIR to the directory holding your service files",
		}
	}

	c := &Catalog{dir: dir, byID: make(map[string]int)}
	for _, e := range entries {
		if e.IsDir() || !Supported(e.Name()) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		log := logger.With(zap.String("file", path))

		cfg, err := LoadFile(path)
		if err != nil {
			log.Warn("skipping invalid service file", zap.Error(err))
			continue
		}
		if err := c.add(cfg); err != nil {
			log.Warn("skipping service file", zap.Error(err))
			continue
		}
		log.Debug("loaded service", zap.String("game", cfg.ID))
	}
	return c, nil
}

// New builds a catalog from already decoded configurations, validating each
func New(cfgs ...gamesvc.ServiceConfig) (*Catalog, error) {
	c := &Catalog{byID: make(map[string]int)}
	for _, cfg := range cfgs {
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("service %q: %w", cfg.ID, err)
		}
		if err := c.add(cfg); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Catalog) add(cfg gamesvc.ServiceConfig) error {
	if _, ok := c.byID[cfg.ID]; ok {
		return fmt.Errorf("duplicate service id %q", cfg.ID)
	}
	c.byID[cfg.ID] = len(c.configs)
	c.configs = append(c.configs, cfg)
	return nil
}

type codec struct {
	unmarshal func([]byte, any) error
	marshal   func(any) ([]byte, error)
}

var codecs = map[string]codec{
	".json": {json.Unmarshal, json.Marshal},
	".yaml": {yaml.Unmarshal, yaml.Marshal},
	".yml":  {yaml.Unmarshal, yaml.Marshal},
	".toml": {toml.Unmarshal, marshalTOML},
}

func marshalTOML(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// fieldAliases maps snake_case field names onto the keys ServiceConfig decodes
var fieldAliases = map[string]string{
	"unit_name":         "unitName",
	"game_dir":          "gameDir",
	"working_directory": "workingDirectory",
	"config_file":       "configFile",
	"log_dir":           "logDir",
	"clean_filters":     "cleanFilters",
	"shutdown_command":  "shutdownCommand",
}

// canonicalKeys renames snake_case aliases in raw and reports whether any
// were found
func canonicalKeys(raw map[string]any) bool {
	renamed := false
	for alias, key := range fieldAliases {
		v, ok := raw[alias]
		if !ok {
			continue
		}
		delete(raw, alias)
		if _, ok := raw[key]; !ok {
			raw[key] = v
		}
		renamed = true
	}
	return renamed
}

// Supported reports whether name has a configuration file extension
func Supported(name string) bool {
	_, ok := codecs[strings.ToLower(filepath.Ext(name))]
	return ok
}

// LoadFile decodes and validates a single configuration file
func LoadFile(path string) (gamesvc.ServiceConfig, error) {
	var cfg gamesvc.ServiceConfig

	c, ok := codecs[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return cfg, fmt.Errorf("unsupported file extension %q", filepath.Ext(path))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}

	raw := map[string]any{}
	if err := c.unmarshal(data, &raw); err != nil {
		return cfg, fmt.Errorf("decode: %w", err)
	}
	if canonicalKeys(raw) {
		if data, err = c.marshal(raw); err != nil {
			return cfg, fmt.Errorf("decode: %w", err)
		}
	}
	if err := c.unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("decode: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Dir returns the directory the catalog was loaded from
func (c *Catalog) Dir() string {
	return c.dir
}

// Get returns the configuration with the given id. The returned value is a
// copy; callers cannot modify the catalog through it.
func (c *Catalog) Get(id string) (gamesvc.ServiceConfig, error) {
	i, ok := c.byID[id]
	if !ok {
		suggestion := "no games are configured"
		if len(c.configs) > 0 {
			suggestion = "available games: " + strings.Join(c.IDs(), ", ")
		}
		return gamesvc.ServiceConfig{}, &gamesvc.OpError{
			Op:         gamesvc.OpLoad,
			Game:       id,
			Err:        gamesvc.ErrConfigurationNotFound,
			Suggestion: suggestion,
		}
	}
	return c.configs[i].Clone(), nil
}

// List returns copies of every configuration in load order
func (c *Catalog) List() []gamesvc.ServiceConfig {
	out := make([]gamesvc.ServiceConfig, len(c.configs))
	for i, cfg := range c.configs {
		out[i] = cfg.Clone()
	}
	return out
}

// IDs returns the configured ids in sorted order
func (c *Catalog) IDs() []string {
	ids := make([]string, 0, len(c.configs))
	for _, cfg := range c.configs {
		ids = append(ids, cfg.ID)
	}
	slices.Sort(ids)
	return ids
}

// Len returns the number of configurations
func (c *Catalog) Len() int {
	return len(c.configs)
}

// IsNotFound reports whether err means the requested configuration is unknown
func IsNotFound(err error) bool {
	return errors.Is(err, gamesvc.ErrConfigurationNotFound)
}
