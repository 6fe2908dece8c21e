package state

import (
	"fmt"
	"sync"
	"time"

	"github.com/five82/basket/internal/shop"
)

// Snapshot is the latest list overview available to the UI.
type Snapshot struct {
	Lists               []shop.List
	HasLists            bool
	LastUpdated         time.Time
	LastError           error
	ConsecutiveFailures int // Number of consecutive refresh failures
}

// IsOffline returns true when refreshes have failed repeatedly.
func (s Snapshot) IsOffline() bool {
	return s.ConsecutiveFailures >= 2
}

// TotalItems sums the item counts of every list in the overview.
func (s Snapshot) TotalItems() int64 {
	var n int64
	for _, l := range s.Lists {
		n += l.ItemsCount
	}
	return n
}

// Find returns the overview entry for id.
func (s Snapshot) Find(id shop.ID) (shop.List, bool) {
	if idx := shop.FindList(s.Lists, id); idx >= 0 {
		return s.Lists[idx], true
	}
	return shop.List{}, false
}

// Store coordinates concurrent updates to the snapshot.
type Store struct {
	mu       sync.RWMutex
	snapshot Snapshot
}

// Update replaces the stored lists. When err is non-nil the previous lists
// are kept but the error is recorded for visibility.
func (s *Store) Update(lists []shop.List, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.snapshot.LastError = err
		s.snapshot.LastUpdated = time.Now()
		s.snapshot.ConsecutiveFailures++
		return
	}

	s.snapshot.Lists = cloneLists(lists)
	s.snapshot.HasLists = true
	s.snapshot.LastError = nil
	s.snapshot.LastUpdated = time.Now()
	s.snapshot.ConsecutiveFailures = 0
}

// Reset forgets everything, e.g. after the session changes.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = Snapshot{}
}

// Snapshot returns a copy of the current snapshot.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.snapshot
	snap.Lists = cloneLists(s.snapshot.Lists)
	if s.snapshot.LastError != nil {
		snap.LastError = fmt.Errorf("%w", s.snapshot.LastError)
	}
	return snap
}

func cloneLists(lists []shop.List) []shop.List {
	if len(lists) == 0 {
		return nil
	}
	dup := make([]shop.List, len(lists))
	for i := range lists {
		dup[i] = lists[i].Clone()
	}
	return dup
}
