// Package status keeps the most recent derived battery state for
// read-only consumers such as query endpoints.
package status

import (
	"sync"

	"github.com/battrelay/battrelay/core/model"
)

// Store holds the latest BatteryState behind a read-write lock. Readers
// always get a consistent copy; they never observe a half-written update.
type Store struct {
	mu    sync.RWMutex
	state model.BatteryState
	set   bool
}

// NewStore returns an empty store.
func NewStore() *Store { return &Store{} }

// Set replaces the stored state.
func (s *Store) Set(st model.BatteryState) {
	s.mu.Lock()
	s.state = st
	s.set = true
	s.mu.Unlock()
}

// Last returns a copy of the most recent state. The second return value
// is false until the first sample has been processed.
func (s *Store) Last() (model.BatteryState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state, s.set
}
