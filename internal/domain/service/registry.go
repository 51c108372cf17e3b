package service

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/GriffinCanCode/aikernel/internal/types"
)

// Registry maps capability -> name -> handle and tracks one default per capability
type Registry struct {
	mu       sync.RWMutex
	entries  map[types.Capability]map[string]*Handle
	defaults map[types.Capability]string
}

// RegisterOption configures a single registration
type RegisterOption func(*registerOptions)

type registerOptions struct {
	makeDefault bool
}

// AsDefault marks the registered handle as the default for its capability
func AsDefault() RegisterOption {
	return func(o *registerOptions) {
		o.makeDefault = true
	}
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		entries:  make(map[types.Capability]map[string]*Handle),
		defaults: make(map[types.Capability]string),
	}
}

// Register inserts or overwrites the handle under (capability, name).
// The first handle of a capability becomes its default unless one exists.
func (r *Registry) Register(h *Handle, opts ...RegisterOption) error {
	if h == nil {
		return fmt.Errorf("%w: handle is nil", ErrInvalidHandle)
	}

	var o registerOptions
	for _, opt := range opts {
		opt(&o)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	byName, ok := r.entries[h.capability]
	if !ok {
		byName = make(map[string]*Handle)
		r.entries[h.capability] = byName
	}
	byName[h.name] = h

	if _, hasDefault := r.defaults[h.capability]; o.makeDefault || !hasDefault {
		r.defaults[h.capability] = h.name
	}
	return nil
}

// Unregister removes a handle. Removing the default clears it.
func (r *Registry) Unregister(capability types.Capability, name string) bool {
	name = strings.TrimSpace(name)

	r.mu.Lock()
	defer r.mu.Unlock()

	byName, ok := r.entries[capability]
	if !ok {
		return false
	}
	if _, ok := byName[name]; !ok {
		return false
	}

	delete(byName, name)
	if len(byName) == 0 {
		delete(r.entries, capability)
	}
	if r.defaults[capability] == name {
		delete(r.defaults, capability)
	}
	return true
}

// Resolve returns the handle for (capability, name), or the default when name is blank.
// Names are trimmed the same way NewHandle trims them.
func (r *Registry) Resolve(capability types.Capability, name string) (*Handle, error) {
	name = strings.TrimSpace(name)

	r.mu.RLock()
	defer r.mu.RUnlock()

	if name == "" {
		def, ok := r.defaults[capability]
		if !ok {
			return nil, &NoDefaultError{Capability: capability}
		}
		name = def
	}

	h, ok := r.entries[capability][name]
	if !ok {
		return nil, &NotFoundError{Capability: capability, Name: name}
	}
	return h, nil
}

// List returns the sorted names registered for a capability
func (r *Registry) List(capability types.Capability) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.entries[capability]))
	for name := range r.entries[capability] {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Capabilities returns the capabilities that have at least one handle
func (r *Registry) Capabilities() []types.Capability {
	r.mu.RLock()
	defer r.mu.RUnlock()

	caps := make([]types.Capability, 0, len(r.entries))
	for c := range r.entries {
		caps = append(caps, c)
	}
	sort.Slice(caps, func(i, j int) bool { return caps[i] < caps[j] })
	return caps
}

// Default returns the default name for a capability
func (r *Registry) Default(capability types.Capability) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	name, ok := r.defaults[capability]
	return name, ok
}

// SetDefault points the capability default at an already registered name
func (r *Registry) SetDefault(capability types.Capability, name string) error {
	name = strings.TrimSpace(name)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[capability][name]; !ok {
		return &NotFoundError{Capability: capability, Name: name}
	}
	r.defaults[capability] = name
	return nil
}

// Len returns the total number of registered handles
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	total := 0
	for _, byName := range r.entries {
		total += len(byName)
	}
	return total
}

// Stats returns registry statistics
func (r *Registry) Stats() map[string]interface{} {
	r.mu.RLock()
	defer r.mu.RUnlock()

	total := 0
	capabilities := make(map[string]int, len(r.entries))
	for c, byName := range r.entries {
		total += len(byName)
		capabilities[string(c)] = len(byName)
	}

	defaults := make(map[string]string, len(r.defaults))
	for c, name := range r.defaults {
		defaults[string(c)] = name
	}

	return map[string]interface{}{
		"total_services": total,
		"capabilities":   capabilities,
		"defaults":       defaults,
	}
}
