package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/five82/basket/internal/api"
	"github.com/five82/basket/internal/shop"
)

// Status is the authentication state of the client.
type Status int

const (
	StatusLoading Status = iota
	StatusAuthenticated
	StatusUnauthenticated
)

func (s Status) String() string {
	switch s {
	case StatusAuthenticated:
		return "authenticated"
	case StatusUnauthenticated:
		return "unauthenticated"
	default:
		return "loading"
	}
}

// Session is the current actor and status.
type Session struct {
	Actor  *shop.User
	Status Status
}

// Authenticated reports whether the session has a signed-in user.
func (s Session) Authenticated() bool {
	return s.Status == StatusAuthenticated
}

func (s Session) clone() Session {
	if s.Actor != nil {
		actor := *s.Actor
		s.Actor = &actor
	}
	return s
}

// ErrInvalidTransition is returned when Set is asked to go back to loading.
var ErrInvalidTransition = errors.New("session: cannot return to loading")

// Identity resolves and ends the server session.
type Identity interface {
	Me(ctx context.Context) (*shop.User, error)
	Logout(ctx context.Context) error
}

// Authenticator exchanges credentials for a user.
type Authenticator interface {
	Login(ctx context.Context, creds shop.Credentials) (*shop.User, error)
}

// Syncer is started whenever the session becomes authenticated.
type Syncer interface {
	Sync(ctx context.Context)
}

// Manager owns the session. Set is the only way to change it.
type Manager struct {
	mu       sync.Mutex
	session  Session
	identity Identity
	auth     Authenticator
	syncer   Syncer
	syncCtx  context.Context
	logger   *slog.Logger
	wg       sync.WaitGroup

	listeners    map[uint64]func(Session)
	nextListener uint64
}

// Option configures a Manager.
type Option func(*Manager)

// WithAuthenticator enables Login.
func WithAuthenticator(a Authenticator) Option {
	return func(m *Manager) { m.auth = a }
}

// WithSyncer sets the guest sync started on sign-in.
func WithSyncer(s Syncer) Option {
	return func(m *Manager) { m.syncer = s }
}

// WithSyncContext sets the context handed to background syncs.
func WithSyncContext(ctx context.Context) Option {
	return func(m *Manager) {
		if ctx != nil {
			m.syncCtx = ctx
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// NewManager returns a Manager in the loading state.
func NewManager(identity Identity, opts ...Option) *Manager {
	m := &Manager{
		identity:  identity,
		syncCtx:   context.Background(),
		logger:    slog.Default(),
		listeners: make(map[uint64]func(Session)),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Snapshot returns a copy of the current session.
func (m *Manager) Snapshot() Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session.clone()
}

// Subscribe registers fn for every session change.
func (m *Manager) Subscribe(fn func(Session)) (unsubscribe func()) {
	if fn == nil {
		return func() {}
	}
	m.mu.Lock()
	m.nextListener++
	id := m.nextListener
	m.listeners[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.listeners, id)
		m.mu.Unlock()
	}
}

// Set replaces the session. Entering the authenticated state with an actor
// starts one background sync.
func (m *Manager) Set(next Session) error {
	if next.Status == StatusLoading {
		return ErrInvalidTransition
	}
	next = next.clone()

	m.mu.Lock()
	prev := m.session
	m.session = next
	startSync := next.Status == StatusAuthenticated && next.Actor != nil &&
		prev.Status != StatusAuthenticated && m.syncer != nil
	if startSync {
		m.wg.Add(1)
	}
	changed := !sameSession(prev, next)
	var listeners []func(Session)
	if changed {
		listeners = make([]func(Session), 0, len(m.listeners))
		for _, fn := range m.listeners {
			listeners = append(listeners, fn)
		}
	}
	m.mu.Unlock()

	if changed {
		m.logger.Debug("session changed", "from", prev.Status.String(), "to", next.Status.String())
	}
	if startSync {
		go func(syncer Syncer, ctx context.Context) {
			defer m.wg.Done()
			syncer.Sync(ctx)
		}(m.syncer, m.syncCtx)
	}
	for _, fn := range listeners {
		fn(next.clone())
	}
	return nil
}

// Bootstrap resolves the initial session from the server. Any failure
// leaves the client unauthenticated.
func (m *Manager) Bootstrap(ctx context.Context) Session {
	var user *shop.User
	var err error
	if m.identity == nil {
		err = fmt.Errorf("identity is nil")
	} else {
		user, err = m.identity.Me(ctx)
	}

	next := Session{Actor: user, Status: StatusAuthenticated}
	switch {
	case err == nil && user != nil:
	case err == nil:
		next = Session{Status: StatusUnauthenticated}
	case api.IsUnauthorized(err):
		m.logger.Debug("no active session")
		next = Session{Status: StatusUnauthenticated}
	default:
		m.logger.Warn("session bootstrap failed", "error", err)
		next = Session{Status: StatusUnauthenticated}
	}
	_ = m.Set(next)
	return m.Snapshot()
}

// Login authenticates creds and marks the session authenticated.
func (m *Manager) Login(ctx context.Context, creds shop.Credentials) (Session, error) {
	if m.auth == nil {
		return m.Snapshot(), fmt.Errorf("login is not configured")
	}
	user, err := m.auth.Login(ctx, creds)
	if err != nil {
		return m.Snapshot(), fmt.Errorf("login: %w", err)
	}
	if user == nil {
		return m.Snapshot(), fmt.Errorf("login: empty user")
	}
	if err := m.Set(Session{Actor: user, Status: StatusAuthenticated}); err != nil {
		return m.Snapshot(), err
	}
	return m.Snapshot(), nil
}

// Logout asks the server to end the session and then resets to
// unauthenticated regardless of the outcome.
func (m *Manager) Logout(ctx context.Context) {
	if m.identity != nil {
		if err := m.identity.Logout(ctx); err != nil {
			m.logger.Debug("logout request failed", "error", err)
		}
	}
	_ = m.Set(Session{Status: StatusUnauthenticated})
}

// Wait blocks until every background sync has returned.
func (m *Manager) Wait() {
	m.wg.Wait()
}

func sameSession(a, b Session) bool {
	if a.Status != b.Status {
		return false
	}
	switch {
	case a.Actor == nil && b.Actor == nil:
		return true
	case a.Actor == nil || b.Actor == nil:
		return false
	default:
		return *a.Actor == *b.Actor
	}
}
