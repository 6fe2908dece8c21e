package guest

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/five82/basket/internal/shop"
)

// Importer submits guest lists to the signed-in account.
type Importer interface {
	ImportLists(ctx context.Context, lists []shop.List) error
}

// Syncer migrates guest lists into an account after login.
type Syncer struct {
	mu       sync.Mutex
	store    *Store
	importer Importer
	logger   *slog.Logger
}

// NewSyncer builds a Syncer. A nil logger uses slog.Default.
func NewSyncer(store *Store, importer Importer, logger *slog.Logger) *Syncer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Syncer{store: store, importer: importer, logger: logger}
}

// Migrate imports every guest list and clears the store on success. It
// returns the number of lists imported. On failure the store is untouched.
func (s *Syncer) Migrate(ctx context.Context) (int, error) {
	if s == nil || s.store == nil || s.importer == nil {
		return 0, fmt.Errorf("syncer is not configured")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	lists := s.store.Load(ctx)
	if len(lists) == 0 {
		return 0, nil
	}
	if err := s.importer.ImportLists(ctx, lists); err != nil {
		return 0, fmt.Errorf("import guest lists: %w", err)
	}
	s.store.Clear(ctx)
	return len(lists), nil
}

// Sync runs Migrate and logs the outcome. Failures are swallowed so the
// lists remain for the next login.
func (s *Syncer) Sync(ctx context.Context) {
	n, err := s.Migrate(ctx)
	if err != nil {
		s.logger.Error("guest sync failed, keeping local lists", "error", err)
		return
	}
	if n > 0 {
		s.logger.Info("guest lists imported", "count", n)
	}
}
