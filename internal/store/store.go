// Package store keeps the in-memory mirror of backend-reported state.
package store

import (
	"encoding/json"
	"maps"
	"sync"

	"kiln_dashboard/internal/models"
)

// Store is the view-state mirror for one control-panel session.
type Store struct {
	mu    sync.RWMutex
	state models.ViewState
}

func New() *Store {
	return &Store{state: models.NewViewState()}
}

// Merge applies a push update. Each section present in u replaces the stored
// section; absent sections are left untouched. It returns the merged snapshot.
func (s *Store) Merge(u models.StateUpdate) models.ViewState {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u.Settings != nil {
		s.state.Settings = maps.Clone(u.Settings)
	}
	if u.Values != nil {
		s.state.Values = maps.Clone(u.Values)
	}
	if u.Actuators != nil {
		s.state.Actuators = maps.Clone(u.Actuators)
	}
	for k, v := range u.Extra {
		s.state.Extra[k] = v
	}
	return s.snapshotLocked()
}

// Snapshot returns a copy that callers may keep.
func (s *Store) Snapshot() models.ViewState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Actuators returns a copy of the current actuator set.
func (s *Store) Actuators() models.ActuatorSet {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.state.Actuators)
}

// Setting returns a setting from the last snapshot, or def.
func (s *Store) Setting(name string, def float64) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Setting(name, def)
}

func (s *Store) snapshotLocked() models.ViewState {
	extra := make(map[string]json.RawMessage, len(s.state.Extra))
	for k, v := range s.state.Extra {
		extra[k] = append(json.RawMessage(nil), v...)
	}
	return models.ViewState{
		Settings:  maps.Clone(s.state.Settings),
		Values:    maps.Clone(s.state.Values),
		Actuators: maps.Clone(s.state.Actuators),
		Extra:     extra,
	}
}
