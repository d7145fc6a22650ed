package flags

import (
	"fmt"
	"sync"

	"github.com/angeloszaimis/migration-gateway/internal/feature"
)

// ModeStore persists the feature mode map. Implemented by the BoltDB
// store; nil disables persistence.
type ModeStore interface {
	SaveModes(modes map[feature.Feature]feature.Mode) error
}

// Registry holds the current routing mode of every feature. Modes are
// seeded from configuration, optionally overlaid with persisted state,
// and every mutation is written back to the store.
type Registry struct {
	mutex sync.RWMutex
	modes map[feature.Feature]feature.Mode
	store ModeStore
}

// NewRegistry builds a registry from the configured defaults. Features
// missing from defaults start in legacy mode.
func NewRegistry(defaults map[feature.Feature]feature.Mode, store ModeStore) *Registry {
	modes := make(map[feature.Feature]feature.Mode, len(feature.All()))
	for _, f := range feature.All() {
		mode, ok := defaults[f]
		if !ok || !mode.ValidFor(f) {
			mode = feature.ModeLegacy
		}
		modes[f] = mode
	}

	return &Registry{
		modes: modes,
		store: store,
	}
}

// Restore overlays modes persisted by a previous run. Unknown features
// and invalid modes are skipped rather than failing startup.
func (r *Registry) Restore(persisted map[feature.Feature]feature.Mode) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for f, mode := range persisted {
		if f.Valid() && mode.ValidFor(f) {
			r.modes[f] = mode
		}
	}
}

// Mode returns the current mode of a feature. Unknown features report
// legacy.
func (r *Registry) Mode(f feature.Feature) feature.Mode {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	mode, ok := r.modes[f]
	if !ok {
		return feature.ModeLegacy
	}
	return mode
}

// SetMode changes a feature's mode and persists the full map. The
// persistence error, if any, is returned so the caller can decide
// whether to surface or just log it; the in-memory change sticks
// either way.
func (r *Registry) SetMode(f feature.Feature, mode feature.Mode) error {
	if !f.Valid() {
		return fmt.Errorf("unknown feature %q", f)
	}
	if !mode.ValidFor(f) {
		return fmt.Errorf("mode %q is not valid for feature %q", mode, f)
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.modes[f] = mode
	return r.persistLocked()
}

// ForceAllLegacy reverts every feature to legacy mode in one step and
// persists the result. Used by the rollback monitor.
func (r *Registry) ForceAllLegacy() error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for f := range r.modes {
		r.modes[f] = feature.ModeLegacy
	}
	return r.persistLocked()
}

// Snapshot returns a copy of the current mode map.
func (r *Registry) Snapshot() map[feature.Feature]feature.Mode {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	snapshot := make(map[feature.Feature]feature.Mode, len(r.modes))
	for f, mode := range r.modes {
		snapshot[f] = mode
	}
	return snapshot
}

func (r *Registry) persistLocked() error {
	if r.store == nil {
		return nil
	}

	modes := make(map[feature.Feature]feature.Mode, len(r.modes))
	for f, mode := range r.modes {
		modes[f] = mode
	}

	if err := r.store.SaveModes(modes); err != nil {
		return fmt.Errorf("failed to persist feature modes: %w", err)
	}
	return nil
}
