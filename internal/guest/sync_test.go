package guest

import (
	"context"
	"errors"
	"testing"

	"github.com/five82/basket/internal/shop"
)

type recordingImporter struct {
	calls [][]shop.List
	err   error
}

func (r *recordingImporter) ImportLists(_ context.Context, lists []shop.List) error {
	r.calls = append(r.calls, lists)
	return r.err
}

func TestSyncer_ImportsThenClears(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore()
	s.SaveOne(ctx, shop.List{ID: "1", Name: "A"})
	s.SaveOne(ctx, shop.List{ID: "2", Name: "B"})

	imp := &recordingImporter{}
	syncer := NewSyncer(s, imp, quietLogger())

	n, err := syncer.Migrate(ctx)
	if err != nil || n != 2 {
		t.Fatalf("Migrate = %d, %v; want 2, nil", n, err)
	}
	if len(imp.calls) != 1 || len(imp.calls[0]) != 2 {
		t.Fatalf("import calls = %#v, want one call with both lists", imp.calls)
	}
	if got := s.Load(ctx); len(got) != 0 {
		t.Fatalf("Load after sync = %#v, want empty", got)
	}
}

func TestSyncer_EmptyStoreSkipsImport(t *testing.T) {
	s, _ := newTestStore()
	imp := &recordingImporter{}
	NewSyncer(s, imp, quietLogger()).Sync(context.Background())
	if len(imp.calls) != 0 {
		t.Fatalf("import called %d times for an empty store", len(imp.calls))
	}
}

func TestSyncer_FailureKeepsLists(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore()
	s.SaveOne(ctx, shop.List{ID: "1", Name: "A"})

	imp := &recordingImporter{err: errors.New("server down")}
	syncer := NewSyncer(s, imp, quietLogger())

	syncer.Sync(ctx) // swallowed
	if _, err := syncer.Migrate(ctx); err == nil {
		t.Fatalf("Migrate returned nil error, want import failure")
	}
	if got := s.Load(ctx); len(got) != 1 {
		t.Fatalf("Load after failed sync = %#v, want the list kept", got)
	}

	imp.err = nil
	if n, err := syncer.Migrate(ctx); err != nil || n != 1 {
		t.Fatalf("retry Migrate = %d, %v; want 1, nil", n, err)
	}
}

func TestSyncer_NilIsNotConfigured(t *testing.T) {
	var s *Syncer
	if _, err := s.Migrate(context.Background()); err == nil {
		t.Fatalf("nil Syncer Migrate returned nil error")
	}
}
