// Package state holds the list overview shared by the background refresher
// and the UI.
//
// # Overview
//
// The overview is the set of lists the user can see right now: the guest
// lists on this device for a guest, or the server's lists for a signed-in
// user. The poller in package app fetches it through lists.Service and
// writes it here; the TUI reads it on every tick and after every busy or
// session signal. Neither side ever waits on the other's I/O.
//
// # Architecture
//
//	Producer (poller):             Consumer (UI):
//	┌────────────────┐            ┌─────────────────┐
//	│ service.Lists()│            │                 │
//	│      ↓         │            │                 │
//	│ store.Update() │───────────→│ store.Snapshot()│
//	│      ↓         │  (mutex)   │      ↓          │
//	│  wait / backoff│            │  render lists   │
//	└────────────────┘            └─────────────────┘
//
// A third party, the session hook in package app, calls Reset when the
// session changes so the UI never shows the previous user's lists while the
// next refresh is in flight.
//
// # Core Types
//
// Store:
//   - Thread-safe container for the latest overview
//   - sync.RWMutex; one writer (poller), many readers (UI, CLI status)
//   - Zero value is ready to use
//
// Snapshot:
//   - Copy of the overview at a point in time
//   - Lists, HasLists, LastUpdated, LastError, ConsecutiveFailures
//   - Helpers: IsOffline, TotalItems, Find
//
// # Concurrency Model
//
//   - Update(), Reset(): write lock
//   - Snapshot(): read lock
//
// Locks are held only while copying. Network calls happen in the poller
// before Update is called.
//
// # Update Semantics
//
//	// Success: replace the lists and clear the error
//	store.Update(lists, nil)
//	→ snapshot.Lists = lists (deep copy)
//	→ snapshot.HasLists = true
//	→ snapshot.LastError = nil
//	→ snapshot.ConsecutiveFailures = 0
//
//	// Failure: keep the old lists, record the error, count the failure
//	store.Update(nil, err)
//	→ snapshot.Lists = <unchanged>
//	→ snapshot.LastError = err
//	→ snapshot.ConsecutiveFailures++
//
//	// Session change: forget everything
//	store.Reset()
//	→ snapshot = Snapshot{}
//
// Two consecutive failures mark the snapshot offline so the UI can say so
// without hiding the last lists it saw.
//
// # Copying
//
// Update and Snapshot both deep-copy lists and their items through
// shop.List.Clone. Callers may mutate what they receive. LastError is
// wrapped on the way out so errors.Is and errors.As still see the original.
//
// # Reading the Overview
//
//	snap := store.Snapshot()
//	switch {
//	case !snap.HasLists && snap.LastError == nil:
//		// first refresh still running: "Loading lists..."
//	case snap.IsOffline():
//		// show last known lists with an offline badge
//	default:
//		fmt.Printf("%d lists · %d items\n", len(snap.Lists), snap.TotalItems())
//	}
//
//	// The items screen re-checks its list on every tick.
//	if _, ok := snap.Find(listID); !ok && snap.HasLists {
//		// the list was deleted elsewhere; return to the overview
//	}
//
// TotalItems sums ItemsCount, which the server reports per list and the
// guest path fills from the inline items.
//
// # Testing Considerations
//
//	store := &state.Store{}  // ready immediately
//
//   - Snapshot() of a fresh store is the zero Snapshot
//   - Updates are visible to the next Snapshot call
//   - Tests can drive Update directly without a poller
//
// # Scope
//
// The store keeps only the latest overview. Item details are cached by
// lists.Service, not here, and there is no history or change feed: the UI
// polls snapshots on its own schedule.
package state
