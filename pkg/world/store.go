// Package world holds the in-memory world store and its mutation
// discipline: every WorldState change happens under that world's advisory
// lock, so a running advance, an initialization, and director operations on
// one world are mutually exclusive.
package world

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/dramaturge/dramaturge/pkg/models"
)

var (
	// ErrNotFound is returned for an unknown world id.
	ErrNotFound = errors.New("world not found")

	// ErrAlreadyExists is returned when creating a world with a taken id.
	ErrAlreadyExists = errors.New("world already exists")
)

type entry struct {
	mu      sync.Mutex
	world   *models.World
	deleted atomic.Bool
}

// Store is the global map of world id to live world state.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{entries: make(map[string]*entry)}
}

// Create registers a new world under its id.
func (s *Store) Create(w *models.World) error {
	if w.ID == "" {
		return fmt.Errorf("create world: empty id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[w.ID]; ok {
		return ErrAlreadyExists
	}
	s.entries[w.ID] = &entry{world: w}
	return nil
}

// WithWorld runs fn while holding the world's lock. fn receives the live
// aggregate and may mutate it freely; concurrent callers for the same world
// serialize in arrival order. Returns ErrNotFound for unknown or deleted
// worlds.
func (s *Store) WithWorld(id string, fn func(w *models.World) error) error {
	s.mu.RLock()
	e, ok := s.entries[id]
	s.mu.RUnlock()
	if !ok {
		return ErrNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.deleted.Load() {
		return ErrNotFound
	}
	return fn(e.world)
}

// Snapshot returns a deep copy of the world, safe to read without the lock.
func (s *Store) Snapshot(id string) (*models.World, error) {
	var snap *models.World
	err := s.WithWorld(id, func(w *models.World) error {
		c, err := deepCopy(w)
		if err != nil {
			return err
		}
		snap = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// List returns deep copies of every live world.
func (s *Store) List() []*models.World {
	s.mu.RLock()
	ids := make([]string, 0, len(s.entries))
	for id := range s.entries {
		ids = append(ids, id)
	}
	s.mu.RUnlock()

	out := make([]*models.World, 0, len(ids))
	for _, id := range ids {
		if snap, err := s.Snapshot(id); err == nil {
			out = append(out, snap)
		}
	}
	return out
}

// Alive reports whether the world still exists. A long-running advance
// checks this between beats and abandons deleted worlds.
func (s *Store) Alive(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.entries[id]
	return ok
}

// Delete removes the world immediately without waiting for its lock. A
// holder of the lock finishes its current step against the detached state,
// which is then abandoned.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return ErrNotFound
	}
	e.deleted.Store(true)
	delete(s.entries, id)
	return nil
}

func deepCopy(w *models.World) (*models.World, error) {
	data, err := json.Marshal(w)
	if err != nil {
		return nil, fmt.Errorf("snapshot world: %w", err)
	}
	var out models.World
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("snapshot world: %w", err)
	}
	return &out, nil
}
