package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/five82/basket/internal/busy"
	"github.com/five82/basket/internal/shop"
	"github.com/five82/basket/internal/state"
)

func TestCalculateBackoff(t *testing.T) {
	baseInterval := 2 * time.Second

	tests := []struct {
		name     string
		failures int
		want     time.Duration
	}{
		{"zero failures", 0, 2 * time.Second},
		{"negative failures", -1, 2 * time.Second},
		{"one failure", 1, 4 * time.Second},
		{"two failures", 2, 8 * time.Second},
		{"three failures", 3, 16 * time.Second},
		{"four failures capped", 4, 30 * time.Second}, // Would be 32s, capped to 30s
		{"many failures capped", 10, 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := calculateBackoff(tt.failures, baseInterval)
			if got != tt.want {
				t.Errorf("calculateBackoff(%d, %v) = %v, want %v", tt.failures, baseInterval, got, tt.want)
			}
		})
	}
}

func TestCalculateBackoff_MaxCap(t *testing.T) {
	// Verify that backoff never exceeds maxBackoff regardless of input
	baseInterval := 2 * time.Second
	for failures := 0; failures <= 20; failures++ {
		got := calculateBackoff(failures, baseInterval)
		if got > maxBackoff {
			t.Errorf("calculateBackoff(%d, %v) = %v, exceeds maxBackoff %v", failures, baseInterval, got, maxBackoff)
		}
	}
}

type scriptedLister struct {
	mu   sync.Mutex
	errs []error
}

func (l *scriptedLister) Lists(context.Context) ([]shop.List, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.errs) > 0 {
		err := l.errs[0]
		l.errs = l.errs[1:]
		return nil, err
	}
	return []shop.List{{ID: "1", Name: "Groceries"}}, nil
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestStartPoller_RefreshesStoreAndHonorsKick(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	store := &state.Store{}
	lister := &scriptedLister{errs: []error{errors.New("offline")}}
	tracker := busy.New(busy.WithLogger(quietLogger()))

	p := StartPoller(ctx, store, lister, tracker, time.Hour, quietLogger())

	waitFor(t, "failed refresh", func() bool {
		return store.Snapshot().ConsecutiveFailures == 1
	})

	// The next tick is an hour away; only the kick can refresh now.
	p.Refresh()
	waitFor(t, "kicked refresh", func() bool {
		snap := store.Snapshot()
		return snap.LastError == nil && len(snap.Lists) == 1
	})
}

type purgingLister struct {
	scriptedLister
	purges atomic.Int32
}

func (l *purgingLister) Invalidate() { l.purges.Add(1) }

func TestStartPoller_PurgesDetailCacheOnRefresh(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	lister := &purgingLister{}
	tracker := busy.New(busy.WithLogger(quietLogger()))
	p := StartPoller(ctx, &state.Store{}, lister, tracker, time.Hour, quietLogger())

	waitFor(t, "first purge", func() bool { return lister.purges.Load() == 1 })
	p.Refresh()
	waitFor(t, "second purge", func() bool { return lister.purges.Load() == 2 })
}

func TestPoller_NilRefreshIsSafe(t *testing.T) {
	var p *Poller
	p.Refresh()
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
