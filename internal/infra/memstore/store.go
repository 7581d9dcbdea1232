// Package memstore is the in-memory RegisterStore. It is the default
// backend for single-node deployments and the store double in tests.
package memstore

import (
	"context"
	"sync"

	"github.com/muellerb/shop-register-go/internal/domain"
)

// Store holds one register snapshot guarded by a mutex. Load and Save
// deep-copy so callers never share mutable state with the store.
type Store struct {
	mu   sync.RWMutex
	snap *domain.RegisterSnapshot
}

// New creates an empty store. Load fails with ErrUninitialized until a
// snapshot is seeded.
func New() *Store {
	return &Store{}
}

// NewSeeded creates a store holding the given initial snapshot.
func NewSeeded(snapshot *domain.RegisterSnapshot) *Store {
	return &Store{snap: snapshot.Clone()}
}

// Load returns a copy of the current snapshot.
func (s *Store) Load(_ context.Context) (*domain.RegisterSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.snap == nil {
		return nil, &domain.ErrUninitialized{}
	}
	return s.snap.Clone(), nil
}

// Save replaces the stored snapshot if the version token matches, and
// bumps the version on both the stored copy and the caller's snapshot.
func (s *Store) Save(_ context.Context, snapshot *domain.RegisterSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.snap == nil {
		return &domain.ErrUninitialized{}
	}
	if s.snap.Version != snapshot.Version {
		return &domain.ErrConflict{Message: "register snapshot is stale, reload and retry"}
	}

	snapshot.Version++
	s.snap = snapshot.Clone()
	return nil
}
