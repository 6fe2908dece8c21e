package lists

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/five82/basket/internal/guest"
	"github.com/five82/basket/internal/session"
	"github.com/five82/basket/internal/shop"
)

var (
	// ErrGuestUnsupported is returned for operations that need an account.
	ErrGuestUnsupported = errors.New("sign in to use this feature")
	// ErrListNotFound is returned when a guest list id is unknown.
	ErrListNotFound = errors.New("list not found")
	// ErrItemNotFound is returned when an item id is unknown.
	ErrItemNotFound = errors.New("item not found")
	// ErrEmptyName is returned for a list or item without a name.
	ErrEmptyName = errors.New("name is empty")
)

const defaultCacheSize = 64

// Remote is the account-backed list API.
type Remote interface {
	Lists(ctx context.Context) ([]shop.List, error)
	CreateList(ctx context.Context, list shop.List) (shop.List, error)
	UpdateList(ctx context.Context, list shop.List) (shop.List, error)
	DeleteList(ctx context.Context, id shop.ID) error
	ShareList(ctx context.Context, id shop.ID, email string) error
	Items(ctx context.Context, listID shop.ID) ([]shop.Item, error)
	CreateItem(ctx context.Context, listID shop.ID, item shop.Item) (shop.Item, error)
	UpdateItem(ctx context.Context, listID shop.ID, item shop.Item) (shop.Item, error)
	DeleteItem(ctx context.Context, listID, itemID shop.ID) error
}

// SessionSource reports the current session.
type SessionSource interface {
	Snapshot() session.Session
}

// Service routes list and item operations to the server for signed-in users
// and to the guest store for everyone else.
type Service struct {
	session SessionSource
	remote  Remote
	guest   *guest.Store
	items   *lru.Cache[shop.ID, []shop.Item]
	logger  *slog.Logger

	// gens counts writes per list; epoch counts purges. A fetch only fills
	// the cache when neither moved while it was in flight.
	mu    sync.Mutex
	gens  map[shop.ID]uint64
	epoch uint64
}

// Option configures a Service.
type Option func(*serviceOptions)

type serviceOptions struct {
	cacheSize int
	logger    *slog.Logger
}

// WithCacheSize sets how many lists' items are cached.
func WithCacheSize(n int) Option {
	return func(o *serviceOptions) { o.cacheSize = n }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *serviceOptions) { o.logger = l }
}

// NewService builds a Service.
func NewService(sess SessionSource, remote Remote, store *guest.Store, opts ...Option) (*Service, error) {
	if sess == nil {
		return nil, fmt.Errorf("session source is nil")
	}
	if store == nil {
		return nil, fmt.Errorf("guest store is nil")
	}
	o := serviceOptions{cacheSize: defaultCacheSize, logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.cacheSize <= 0 {
		o.cacheSize = defaultCacheSize
	}
	cache, err := lru.New[shop.ID, []shop.Item](o.cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create item cache: %w", err)
	}
	return &Service{
		session: sess,
		remote:  remote,
		guest:   store,
		items:   cache,
		logger:  o.logger,
		gens:    make(map[shop.ID]uint64),
	}, nil
}

func (s *Service) online() bool {
	return s.remote != nil && s.session.Snapshot().Authenticated()
}

// Lists returns the overview. Guest lists report their inline item count.
func (s *Service) Lists(ctx context.Context) ([]shop.List, error) {
	if s.online() {
		return s.remote.Lists(ctx)
	}
	all := s.guest.Load(ctx)
	for i := range all {
		all[i].ItemsCount = int64(len(all[i].Items))
	}
	return all, nil
}

// SaveList creates a list when it has no id and renames it otherwise.
func (s *Service) SaveList(ctx context.Context, list shop.List) (shop.List, error) {
	list.Name = strings.TrimSpace(list.Name)
	if s.online() {
		if list.ID.IsZero() {
			return s.remote.CreateList(ctx, list)
		}
		return s.remote.UpdateList(ctx, list)
	}

	if list.Name == "" {
		return shop.List{}, ErrEmptyName
	}
	if !list.ID.IsZero() {
		existing, ok := s.guest.Get(ctx, list.ID)
		if !ok {
			return shop.List{}, ErrListNotFound
		}
		existing.Name = list.Name
		list = existing
	}
	return s.guest.SaveOne(ctx, list), nil
}

// DeleteList removes a list.
func (s *Service) DeleteList(ctx context.Context, id shop.ID) error {
	if s.online() {
		s.dropItems(id)
		defer s.dropItems(id)
		return s.remote.DeleteList(ctx, id)
	}
	s.guest.Remove(ctx, id)
	return nil
}

// ShareList shares a list with another account. Guests cannot share.
func (s *Service) ShareList(ctx context.Context, id shop.ID, email string) error {
	if !s.online() {
		return ErrGuestUnsupported
	}
	return s.remote.ShareList(ctx, id, strings.TrimSpace(email))
}

// Items returns the items of a list. Server results are cached per list.
func (s *Service) Items(ctx context.Context, listID shop.ID) ([]shop.Item, error) {
	if s.online() {
		if cached, ok := s.items.Get(listID); ok {
			s.logger.Debug("item cache hit", "list", listID.String())
			return cloneItems(cached), nil
		}
		gen, epoch := s.generation(listID)
		items, err := s.remote.Items(ctx, listID)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		if s.gens[listID] == gen && s.epoch == epoch {
			s.items.Add(listID, cloneItems(items))
		}
		s.mu.Unlock()
		return items, nil
	}
	list, ok := s.guest.Get(ctx, listID)
	if !ok {
		return nil, ErrListNotFound
	}
	return list.Items, nil
}

// SaveItem creates an item when it has no id and replaces it otherwise.
func (s *Service) SaveItem(ctx context.Context, listID shop.ID, item shop.Item) (shop.Item, error) {
	item.Name = strings.TrimSpace(item.Name)
	if s.online() {
		s.dropItems(listID)
		defer s.dropItems(listID)
		if item.ID.IsZero() {
			return s.remote.CreateItem(ctx, listID, item)
		}
		return s.remote.UpdateItem(ctx, listID, item)
	}

	if item.Name == "" {
		return shop.Item{}, ErrEmptyName
	}
	list, ok := s.guest.Get(ctx, listID)
	if !ok {
		return shop.Item{}, ErrListNotFound
	}
	items := cloneItems(list.Items)
	if item.ID.IsZero() {
		item.ID = shop.NewLocalID()
		items = append(items, item)
	} else {
		idx := findItem(items, item.ID)
		if idx < 0 {
			return shop.Item{}, ErrItemNotFound
		}
		items[idx] = item
	}
	s.guest.UpdateItems(ctx, listID, items)
	return item, nil
}

// DeleteItem removes an item from a list.
func (s *Service) DeleteItem(ctx context.Context, listID, itemID shop.ID) error {
	if s.online() {
		s.dropItems(listID)
		defer s.dropItems(listID)
		return s.remote.DeleteItem(ctx, listID, itemID)
	}
	list, ok := s.guest.Get(ctx, listID)
	if !ok {
		return ErrListNotFound
	}
	kept := make([]shop.Item, 0, len(list.Items))
	for _, it := range list.Items {
		if it.ID != itemID {
			kept = append(kept, it)
		}
	}
	s.guest.UpdateItems(ctx, listID, kept)
	return nil
}

// TogglePurchased flips the purchased flag of one item.
func (s *Service) TogglePurchased(ctx context.Context, listID, itemID shop.ID) (shop.Item, error) {
	items, err := s.Items(ctx, listID)
	if err != nil {
		return shop.Item{}, err
	}
	idx := findItem(items, itemID)
	if idx < 0 {
		return shop.Item{}, ErrItemNotFound
	}
	item := items[idx]
	item.Purchased = !item.Purchased
	return s.SaveItem(ctx, listID, item)
}

// Invalidate drops every cached item list. Fetches already in flight do
// not repopulate the cache.
func (s *Service) Invalidate() {
	s.mu.Lock()
	s.epoch++
	s.items.Purge()
	s.mu.Unlock()
}

// dropItems evicts one list's items around a write. It runs both before and
// after the remote call so a fetch overlapping the write is never cached.
func (s *Service) dropItems(listID shop.ID) {
	s.mu.Lock()
	s.gens[listID]++
	s.items.Remove(listID)
	s.mu.Unlock()
}

func (s *Service) generation(listID shop.ID) (gen, epoch uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gens[listID], s.epoch
}

func findItem(items []shop.Item, id shop.ID) int {
	for i := range items {
		if items[i].ID == id {
			return i
		}
	}
	return -1
}

func cloneItems(items []shop.Item) []shop.Item {
	if items == nil {
		return nil
	}
	dup := make([]shop.Item, len(items))
	copy(dup, items)
	return dup
}
