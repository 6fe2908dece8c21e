package guest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/five82/basket/internal/busy"
	"github.com/five82/basket/internal/kv"
	"github.com/five82/basket/internal/shop"
)

// StorageKey is the kv key holding the JSON array of guest lists.
const StorageKey = "guest"

var saveOptions = busy.Options{
	Source:  busy.SourceLocal,
	Mode:    busy.ModeSoft,
	Message: "Saving local data…",
}

// Store reads and writes guest lists. It never returns errors: unreadable
// content loads as empty and failed writes are logged.
type Store struct {
	mu      sync.Mutex
	kv      kv.Store
	key     string
	tracker *busy.Tracker
	logger  *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithTracker reports writes to the busy tracker as local work.
func WithTracker(t *busy.Tracker) Option {
	return func(s *Store) { s.tracker = t }
}

// WithLogger sets the logger for recovered storage errors.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithKey overrides StorageKey.
func WithKey(key string) Option {
	return func(s *Store) {
		if key != "" {
			s.key = key
		}
	}
}

// NewStore wraps backing as a guest store.
func NewStore(backing kv.Store, opts ...Option) *Store {
	s := &Store{
		kv:     backing,
		key:    StorageKey,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load returns every guest list.
func (s *Store) Load(ctx context.Context) []shop.List {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked(ctx)
}

// Get returns one guest list by id.
func (s *Store) Get(ctx context.Context, id shop.ID) (shop.List, bool) {
	all := s.Load(ctx)
	if idx := shop.FindList(all, id); idx >= 0 {
		return all[idx], true
	}
	return shop.List{}, false
}

// SaveAll replaces the stored collection.
func (s *Store) SaveAll(ctx context.Context, lists []shop.List) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveLocked(ctx, lists)
}

// SaveAllNested accepts a collection that was accidentally wrapped in an
// extra array layer and stores it flattened.
func (s *Store) SaveAllNested(ctx context.Context, nested [][]shop.List) {
	var flat []shop.List
	for _, inner := range nested {
		flat = append(flat, inner...)
	}
	s.SaveAll(ctx, flat)
}

// SaveOne inserts or replaces list by id. A list without an id gets a new
// local id; the stored record is returned.
func (s *Store) SaveOne(ctx context.Context, list shop.List) shop.List {
	s.mu.Lock()
	defer s.mu.Unlock()

	if list.ID.IsZero() {
		list.ID = shop.NewLocalID()
	}
	all := s.loadLocked(ctx)
	if idx := shop.FindList(all, list.ID); idx >= 0 {
		all[idx] = list
	} else {
		all = append(all, list)
	}
	s.saveLocked(ctx, all)
	return list
}

// UpdateItems replaces the items of one list, creating the list record when
// only its items were known.
func (s *Store) UpdateItems(ctx context.Context, listID shop.ID, items []shop.Item) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := s.loadLocked(ctx)
	if idx := shop.FindList(all, listID); idx >= 0 {
		all[idx].Items = items
	} else {
		s.logger.Warn("guest list not found, creating it", "list", listID.String())
		all = append(all, shop.List{ID: listID, Items: items})
	}
	s.saveLocked(ctx, all)
}

// Remove deletes one list.
func (s *Store) Remove(ctx context.Context, listID shop.ID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := s.loadLocked(ctx)
	kept := all[:0]
	for _, l := range all {
		if l.ID != listID {
			kept = append(kept, l)
		}
	}
	s.saveLocked(ctx, kept)
}

// Clear deletes the storage key.
func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.kv.Delete(context.WithoutCancel(ctx), s.key); err != nil {
		s.logger.Error("clear guest lists failed", "error", err)
	}
}

// loadLocked and saveLocked ignore cancellation: a read-modify-write must
// not lose guest data because the caller gave up.
func (s *Store) loadLocked(ctx context.Context) []shop.List {
	raw, ok, err := s.kv.Get(context.WithoutCancel(ctx), s.key)
	if err != nil {
		s.logger.Error("read guest lists failed", "error", err)
		return []shop.List{}
	}
	if !ok || len(bytes.TrimSpace([]byte(raw))) == 0 {
		return []shop.List{}
	}
	lists, err := decodeLists([]byte(raw))
	if err != nil {
		s.logger.Error("guest lists unreadable, treating as empty", "error", err)
		return []shop.List{}
	}
	return lists
}

func (s *Store) saveLocked(ctx context.Context, lists []shop.List) {
	if lists == nil {
		lists = []shop.List{}
	}
	err := s.tracker.Wrap(context.WithoutCancel(ctx), saveOptions, func(ctx context.Context) error {
		data, err := json.Marshal(lists)
		if err != nil {
			return fmt.Errorf("encode guest lists: %w", err)
		}
		return s.kv.Set(ctx, s.key, string(data))
	})
	if err != nil {
		s.logger.Error("write guest lists failed", "error", err, "lists", len(lists))
	}
}

// decodeLists parses the stored array. An array whose first element is
// itself an array is the historical double-wrapped shape and is unwrapped.
func decodeLists(data []byte) ([]shop.List, error) {
	var elems []json.RawMessage
	if err := json.Unmarshal(data, &elems); err != nil {
		return nil, err
	}
	if len(elems) == 0 {
		return []shop.List{}, nil
	}
	if first := bytes.TrimSpace(elems[0]); len(first) > 0 && first[0] == '[' {
		var nested [][]shop.List
		if err := json.Unmarshal(data, &nested); err != nil {
			return nil, err
		}
		flat := []shop.List{}
		for _, inner := range nested {
			flat = append(flat, inner...)
		}
		return flat, nil
	}
	lists := make([]shop.List, 0, len(elems))
	if err := json.Unmarshal(data, &lists); err != nil {
		return nil, err
	}
	return lists, nil
}
