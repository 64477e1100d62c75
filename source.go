package gamesvc

import (
	"fmt"
	"maps"
)

// SourceType names where a game's files come from
type SourceType string

// Supported source types
const (
	SourceSteam  SourceType = "steam"
	SourceGOG    SourceType = "gog"
	SourceLutris SourceType = "lutris"
	SourceDirect SourceType = "direct"
	SourceManual SourceType = "manual"
)

// Metadata keys read by the steam provisioner
const (
	MetaBetaBranch   = "beta_branch"
	MetaBetaPassword = "beta_password"
)

// Valid reports whether t is one of the supported source types
func (t SourceType) Valid() bool {
	switch t {
	case SourceSteam, SourceGOG, SourceLutris, SourceDirect, SourceManual:
		return true
	default:
		return false
	}
}

// Source describes where a game's files come from. It is treated as
// immutable once attached to a configuration.
type Source struct {
	Type     SourceType        `json:"type" yaml:"type" toml:"type"`
	SourceID string            `json:"source_id" yaml:"source_id" toml:"source_id"`
	Metadata map[string]string `json:"metadata" yaml:"metadata,omitempty" toml:"metadata,omitempty"`
}

// Validate checks the source type and, for steam, that the id is a numeric app id
func (s Source) Validate() error {
	if !s.Type.Valid() {
		return fmt.Errorf("unsupported source type %q", s.Type)
	}
	if s.Type == SourceSteam && !isDigits(s.SourceID) {
		return fmt.Errorf("steam source_id must be a numeric app id, got %q", s.SourceID)
	}
	return nil
}

// Same reports whether two sources identify the same files: equal type and id.
// Metadata is not compared.
func (s Source) Same(other Source) bool {
	return s.Type == other.Type && s.SourceID == other.SourceID
}

// Meta returns the metadata value for key, or "" when absent
func (s Source) Meta(key string) string {
	return s.Metadata[key]
}

// RequiresProvisioning reports whether files for this source are fetched by a
// provisioner. Manual sources are installed by the operator.
func (s Source) RequiresProvisioning() bool {
	return s.Type != SourceManual
}

// Clone returns a copy that shares no maps with s
func (s Source) Clone() Source {
	out := s
	if s.Metadata != nil {
		out.Metadata = maps.Clone(s.Metadata)
	}
	return out
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
