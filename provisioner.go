package gamesvc

import (
	"context"
	"errors"
	"fmt"
	"slices"
)

// Provisioner fetches a game's files for one kind of source and records the
// outcome in the completion marker.
type Provisioner interface {
	// Name identifies the provisioner in logs and registry listings
	Name() string
	// CanHandle reports whether this provisioner serves cfg's source
	CanHandle(cfg ServiceConfig) bool
	// Provision downloads or updates the files and writes the marker
	Provision(ctx context.Context, cfg ServiceConfig, force bool) error
	// NeedsProvisioning reports whether Provision has work to do
	NeedsProvisioning(cfg ServiceConfig, force bool) bool
	// ValidateInstalledFiles reports whether the installation can be started
	ValidateInstalledFiles(cfg ServiceConfig) bool
}

// ErrDuplicateProvisioner is returned when registering a second provisioner with the same name
var ErrDuplicateProvisioner = errors.New("gamesvc: provisioner already registered")

// Registry routes configurations to provisioners. Provisioners are consulted
// in registration order and the first one whose CanHandle matches wins.
type Registry struct {
	provisioners []Provisioner
}

// NewRegistry creates a registry holding ps in the given order
func NewRegistry(ps ...Provisioner) (*Registry, error) {
	r := &Registry{}
	for _, p := range ps {
		if err := r.Register(p); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register appends p to the routing order
func (r *Registry) Register(p Provisioner) error {
	if p == nil {
		return errors.New("gamesvc: provisioner is nil")
	}
	if slices.ContainsFunc(r.provisioners, func(q Provisioner) bool { return q.Name() == p.Name() }) {
		return fmt.Errorf("%w: %s", ErrDuplicateProvisioner, p.Name())
	}
	r.provisioners = append(r.provisioners, p)
	return nil
}

// Lookup returns the first provisioner that can handle cfg
func (r *Registry) Lookup(cfg ServiceConfig) (Provisioner, error) {
	for _, p := range r.provisioners {
		if p.CanHandle(cfg) {
			return p, nil
		}
	}
	return nil, &OpError{
		Op:         OpProvision,
		Game:       cfg.ID,
		Err:        fmt.Errorf("%w for source type %q", ErrNoProvisionerAvailable, cfg.Source.Type),
		Suggestion: "use a supported game_source.type or set it to 'manual' for operator-installed files",
	}
}

// Names lists registered provisioners in routing order
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.provisioners))
	for _, p := range r.provisioners {
		names = append(names, p.Name())
	}
	return names
}
