package taskprofile

import (
	"encoding/json"
	"fmt"
	"sync"
)

// PersistedSchema is the top-level JSON envelope described in spec §6.
type PersistedSchema struct {
	Version  int              `json:"version"`
	Profiles []map[string]any `json:"profiles"`
}

const currentSchemaVersion = 1

// Registry owns every live Profile by name plus the factories needed to
// reconstruct concrete types from persisted JSON.
type Registry struct {
	mu       sync.RWMutex
	profiles map[string]Profile

	factoryMu sync.RWMutex
	factories map[string]func() Profile

	changeMu  sync.Mutex
	onChange  []func(name string, old, new int32)

	logger interface {
		Warn(msg string, args ...interface{})
	}
}

// NewRegistry returns an empty registry. logger may be nil.
func NewRegistry(logger interface {
	Warn(msg string, args ...interface{})
}) *Registry {
	r := &Registry{
		profiles:  map[string]Profile{},
		factories: map[string]func() Profile{},
		logger:    logger,
	}
	r.RegisterFactory("SimpleTaskProfile", func() Profile { return NewSimpleProfile("", "", 0, 0) })
	r.RegisterFactory("ResolutionTaskProfile", func() Profile { return NewResolutionProfileDefault() })
	return r
}

// RegisterFactory installs a zero-value constructor for a persisted type
// name; this must happen before LoadFromJSON sees that type name.
func (r *Registry) RegisterFactory(typeName string, fn func() Profile) {
	r.factoryMu.Lock()
	defer r.factoryMu.Unlock()
	r.factories[typeName] = fn
}

// Put installs an already-constructed profile under name, wiring the
// registry's change notification into it.
func (r *Registry) Put(name string, p Profile) {
	if base, ok := p.(interface {
		SetOnWorkUnitsChange(func(old, new int32))
	}); ok {
		base.SetOnWorkUnitsChange(func(old, new int32) { r.notifyChange(name, old, new) })
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.profiles[name] = p
}

// Get looks up a profile by name.
func (r *Registry) Get(name string) (Profile, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.profiles[name]
	return p, ok
}

// All returns every registered profile.
func (r *Registry) All() []Profile {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Profile, 0, len(r.profiles))
	for _, p := range r.profiles {
		out = append(out, p)
	}
	return out
}

// ByCategory returns every profile in the given category.
func (r *Registry) ByCategory(category string) []Profile {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Profile
	for _, p := range r.profiles {
		if p.Category() == category {
			out = append(out, p)
		}
	}
	return out
}

// OnWorkUnitChange registers a callback fired whenever any profile's
// pressure valve actually moves, carrying the original header's
// WorkUnitChangeCallback semantics (SPEC_FULL §4).
func (r *Registry) OnWorkUnitChange(fn func(name string, old, new int32)) {
	r.changeMu.Lock()
	defer r.changeMu.Unlock()
	r.onChange = append(r.onChange, fn)
}

func (r *Registry) notifyChange(name string, old, new int32) {
	r.changeMu.Lock()
	cbs := append([]func(string, int32, int32)(nil), r.onChange...)
	r.changeMu.Unlock()
	for _, cb := range cbs {
		cb(name, old, new)
	}
}

// ProcessAllSamples drains pending samples for every profile into its
// cost model; the orchestrator calls this once per frame.
func (r *Registry) ProcessAllSamples() {
	for _, p := range r.All() {
		p.ProcessPendingSamples()
	}
}

// SaveToJSON serializes every profile into the persisted schema.
func (r *Registry) SaveToJSON() ([]byte, error) {
	schema := PersistedSchema{Version: currentSchemaVersion}
	for _, p := range r.All() {
		schema.Profiles = append(schema.Profiles, p.SaveState())
	}
	return json.MarshalIndent(schema, "", "  ")
}

// LoadFromJSON deserializes profiles from data, skipping any unknown
// type name with a logged warning rather than failing the whole load
// (spec §6).
func (r *Registry) LoadFromJSON(data []byte) error {
	var schema PersistedSchema
	if err := json.Unmarshal(data, &schema); err != nil {
		return fmt.Errorf("taskprofile: decode persisted state: %w", err)
	}

	for _, raw := range schema.Profiles {
		typeName, _ := raw["typeName"].(string)
		r.factoryMu.RLock()
		factory, ok := r.factories[typeName]
		r.factoryMu.RUnlock()
		if !ok {
			if r.logger != nil {
				r.logger.Warn("taskprofile: skipping unknown profile type", "typeName", typeName)
			}
			continue
		}
		p := factory()
		p.LoadState(raw)
		name, _ := raw["name"].(string)
		r.Put(name, p)
	}
	return nil
}
