package platform

import (
	"sort"
	"sync"
)

// Info contains platform metadata for API responses and the connect flow.
type Info struct {
	Name         string   `json:"name"`
	DisplayName  string   `json:"display_name"`
	Icon         string   `json:"icon"`
	Color        string   `json:"color"`
	AuthURL      string   `json:"auth_url,omitempty"`
	Scopes       []string `json:"scopes,omitempty"`
	APIVersion   string   `json:"api_version,omitempty"`
	RateLimitRPM int      `json:"rate_limit_rpm,omitempty"`
}

// Registration ties platform metadata to its connector constructor and
// declared capabilities.
type Registration struct {
	Info         Info
	Capabilities Capabilities
	New          func(creds Credentials, opts Options) Connector
}

// Registry manages platform registrations.
type Registry struct {
	mu        sync.RWMutex
	platforms map[string]*Registration
	aliases   map[string]string
}

// NewRegistry creates a registry pre-populated with all built-in platforms.
func NewRegistry() *Registry {
	r := &Registry{
		platforms: make(map[string]*Registration),
		aliases:   make(map[string]string),
	}
	registerBuiltins(r)
	return r
}

// Register adds a platform to the registry.
func (r *Registry) Register(name string, reg Registration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	reg.Info.Name = name
	r.platforms[name] = &reg
}

// RegisterAlias maps an alternate name onto an existing platform. Used for
// names that resolve to the same API (GOOGLE_ADS and YOUTUBE both run on
// the Google Ads API).
func (r *Registry) RegisterAlias(alias, target string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.aliases[alias] = target
}

// Resolve maps a requested name through aliases onto a canonical platform
// name. The second result is false when the name is unknown.
func (r *Registry) Resolve(name string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if target, ok := r.aliases[name]; ok {
		name = target
	}
	_, ok := r.platforms[name]
	return name, ok
}

// Get returns a platform registration by name, following aliases.
func (r *Registry) Get(name string) (*Registration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if target, ok := r.aliases[name]; ok {
		name = target
	}
	reg, ok := r.platforms[name]
	return reg, ok
}

// List returns metadata for all registered platforms, sorted by name.
func (r *Registry) List() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]Info, 0, len(r.platforms))
	for _, reg := range r.platforms {
		infos = append(infos, reg.Info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// CapabilitiesFor returns the declared capabilities for a platform.
func (r *Registry) CapabilitiesFor(name string) (Capabilities, bool) {
	reg, ok := r.Get(name)
	if !ok {
		return Capabilities{}, false
	}
	return reg.Capabilities, true
}
