package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/five82/basket/internal/busy"
	"github.com/five82/basket/internal/shop"
	"github.com/five82/basket/internal/state"
)

const (
	defaultPollInterval = 15 * time.Second
	maxBackoff          = 30 * time.Second
)

// Lister provides the list overview.
type Lister interface {
	Lists(ctx context.Context) ([]shop.List, error)
}

// cachePurger is implemented by listers that cache per-list detail which
// the overview refresh should expire.
type cachePurger interface {
	Invalidate()
}

// Poller refreshes the overview store on an interval, backing off while
// refreshes fail.
type Poller struct {
	kick chan struct{}
}

// StartPoller launches a background goroutine that refreshes the store. It
// returns immediately.
func StartPoller(ctx context.Context, store *state.Store, lister Lister, tracker *busy.Tracker, interval time.Duration, logger *slog.Logger) *Poller {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	p := &Poller{kick: make(chan struct{}, 1)}
	go func() {
		failures := 0
		for {
			if err := refresh(ctx, store, lister, tracker); err != nil {
				if ctx.Err() != nil {
					return
				}
				failures++
				logger.Warn("list refresh failed", "error", err, "failures", failures)
			} else {
				failures = 0
			}

			timer := time.NewTimer(calculateBackoff(failures, interval))
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-p.kick:
				timer.Stop()
			case <-timer.C:
			}
		}
	}()
	return p
}

// Refresh asks the poller to refresh now. It never blocks.
func (p *Poller) Refresh() {
	if p == nil {
		return
	}
	select {
	case p.kick <- struct{}{}:
	default:
	}
}

// refresh runs one overview fetch with hard mode suppressed for backend work,
// so background traffic never blocks the UI.
func refresh(ctx context.Context, store *state.Store, lister Lister, tracker *busy.Tracker) error {
	tracker.SetSuppressHardForBackend(true)
	defer tracker.SetSuppressHardForBackend(false)

	if c, ok := lister.(cachePurger); ok {
		c.Invalidate()
	}
	lists, err := lister.Lists(ctx)
	store.Update(lists, err)
	return err
}

func secondsToDuration(n int) time.Duration {
	return time.Duration(n) * time.Second
}

// calculateBackoff doubles base for every consecutive failure, capped at
// maxBackoff.
func calculateBackoff(failures int, base time.Duration) time.Duration {
	if failures <= 0 {
		return base
	}
	backoff := base
	for i := 0; i < failures; i++ {
		backoff *= 2
		if backoff >= maxBackoff {
			return maxBackoff
		}
	}
	return backoff
}
