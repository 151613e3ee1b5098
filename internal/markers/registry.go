package markers

import (
	"sort"
	"sync"
)

// Registry tracks the marker state of every known vessel.
type Registry struct {
	mu      sync.RWMutex
	vessels map[string]*VesselMarkers
	source  ConfigSource
	hidden  bool
}

// NewRegistry creates an empty registry. source is handed to every vessel it creates.
func NewRegistry(source ConfigSource) *Registry {
	return &Registry{
		vessels: make(map[string]*VesselMarkers),
		source:  source,
	}
}

// Get returns the markers for id, if any.
func (r *Registry) Get(id string) (*VesselMarkers, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.vessels[id]
	return v, ok
}

// GetOrCreate returns the markers for id, creating them on first sight.
// New vessels inherit the registry's hidden state.
func (r *Registry) GetOrCreate(id string) *VesselMarkers {
	if v, ok := r.Get(id); ok {
		return v
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if v, ok := r.vessels[id]; ok {
		return v
	}
	v := NewVesselMarkers(id, r.source)
	v.SetHidden(r.hidden)
	r.vessels[id] = v
	return v
}

// Remove forgets a vessel. It reports whether the vessel was known.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.vessels[id]
	delete(r.vessels, id)
	return ok
}

// HideAll hides the markers of every vessel, including ones created later.
func (r *Registry) HideAll() {
	r.setHidden(true)
}

// ShowAll reverses HideAll.
func (r *Registry) ShowAll() {
	r.setHidden(false)
}

func (r *Registry) setHidden(hidden bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hidden = hidden
	for _, v := range r.vessels {
		v.SetHidden(hidden)
	}
}

// Hidden reports whether the interface is currently hidden.
func (r *Registry) Hidden() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.hidden
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.vessels)
}

// IDs returns the known vessel IDs in sorted order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	ids := make([]string, 0, len(r.vessels))
	for id := range r.vessels {
		ids = append(ids, id)
	}
	r.mu.RUnlock()
	sort.Strings(ids)
	return ids
}
