package bootstrap

import (
	"sort"

	"mercator-hq/ganymede/pkg/config"
)

// Registry knows which environments exist and should be provisioned
// for a new application.
type Registry interface {
	// Environments returns the registered environment names, sorted.
	Environments() []string

	// Has reports whether the environment is registered.
	Has(environment string) bool
}

// ConfigRegistry is a Registry backed by the static environment
// registry in the configuration file.
type ConfigRegistry struct {
	cfg *config.RegistryConfig
}

// NewConfigRegistry creates a registry over the configured
// environments.
func NewConfigRegistry(cfg *config.RegistryConfig) *ConfigRegistry {
	return &ConfigRegistry{cfg: cfg}
}

// Environments returns the registered environment names, sorted.
func (r *ConfigRegistry) Environments() []string {
	names := make([]string, 0, len(r.cfg.Environments))
	for name := range r.cfg.Environments {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Has reports whether the environment is registered.
func (r *ConfigRegistry) Has(environment string) bool {
	_, ok := r.cfg.Environments[environment]
	return ok
}
