package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/five82/basket/internal/api"
	"github.com/five82/basket/internal/busy"
	"github.com/five82/basket/internal/config"
	"github.com/five82/basket/internal/guest"
	"github.com/five82/basket/internal/kv"
	"github.com/five82/basket/internal/lists"
	"github.com/five82/basket/internal/mockapi"
	"github.com/five82/basket/internal/session"
	"github.com/five82/basket/internal/state"
)

const userAgent = "basket/0.1"

// Services is the wired object graph shared by the TUI and the CLI.
type Services struct {
	Config   config.Config
	Logger   *slog.Logger
	Tracker  *busy.Tracker
	Client   *api.Client
	Guest    *guest.Store
	Syncer   *guest.Syncer
	Session  *session.Manager
	Lists    *lists.Service
	Overview *state.Store

	poller  atomic.Pointer[Poller]
	storage io.Closer
}

// Build wires every component for cfg. The context bounds background syncs
// started by the session manager.
func Build(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Services, error) {
	if logger == nil {
		logger = slog.Default()
	}

	tracker := busy.New(busy.WithDefaultDelay(cfg.BusyDelay), busy.WithLogger(logger))

	backing, closer, err := kv.Open(ctx, kv.Backend(cfg.Storage), cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("open guest storage: %w", err)
	}
	guestStore := guest.NewStore(backing, guest.WithTracker(tracker), guest.WithLogger(logger))

	apiOpts := []api.Option{api.WithTracker(tracker), api.WithLogger(logger)}
	if cfg.Mode == config.ModeMock {
		srv, err := mockapi.New(mockapi.WithLogger(logger))
		if err != nil {
			_ = closer.Close()
			return nil, fmt.Errorf("start mock api: %w", err)
		}
		apiOpts = append(apiOpts, api.WithHandler(srv))
	}
	client, err := api.NewClient(api.Config{
		Mode:      api.Mode(cfg.Mode),
		BaseURL:   cfg.BaseURL,
		Timeout:   cfg.RequestTimeout,
		UserAgent: userAgent,
	}, apiOpts...)
	if err != nil {
		_ = closer.Close()
		return nil, fmt.Errorf("init api client: %w", err)
	}

	s := &Services{
		Config:   cfg,
		Logger:   logger,
		Tracker:  tracker,
		Client:   client,
		Guest:    guestStore,
		Syncer:   guest.NewSyncer(guestStore, client, logger),
		Overview: &state.Store{},
		storage:  closer,
	}
	s.Session = session.NewManager(client,
		session.WithAuthenticator(client),
		session.WithSyncer(syncFunc(s.afterSignIn)),
		session.WithSyncContext(ctx),
		session.WithLogger(logger),
	)
	s.Lists, err = lists.NewService(s.Session, client, guestStore, lists.WithLogger(logger))
	if err != nil {
		_ = closer.Close()
		return nil, err
	}
	s.Session.Subscribe(s.onSessionChange)
	return s, nil
}

// StartPolling refreshes the list overview in the background until ctx ends.
func (s *Services) StartPolling(ctx context.Context, interval time.Duration) *Poller {
	p := StartPoller(ctx, s.Overview, s.Lists, s.Tracker, interval, s.Logger)
	s.poller.Store(p)
	return p
}

// Close waits for background syncs and releases storage.
func (s *Services) Close() error {
	s.Session.Wait()
	return s.storage.Close()
}

// afterSignIn moves guest lists into the new account and refreshes what the
// UI shows.
func (s *Services) afterSignIn(ctx context.Context) {
	s.Syncer.Sync(ctx)
	s.Lists.Invalidate()
	if p := s.poller.Load(); p != nil {
		p.Refresh()
	}
}

func (s *Services) onSessionChange(sess session.Session) {
	s.Lists.Invalidate()
	s.Overview.Reset()
	if p := s.poller.Load(); p != nil && sess.Status != session.StatusLoading {
		p.Refresh()
	}
}

type syncFunc func(ctx context.Context)

func (f syncFunc) Sync(ctx context.Context) { f(ctx) }
