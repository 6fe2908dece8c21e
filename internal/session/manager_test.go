package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/five82/basket/internal/api"
	"github.com/five82/basket/internal/shop"
)

type fakeIdentity struct {
	user      *shop.User
	meErr     error
	logoutErr error
	logouts   int
}

func (f *fakeIdentity) Me(context.Context) (*shop.User, error) {
	return f.user, f.meErr
}

func (f *fakeIdentity) Logout(context.Context) error {
	f.logouts++
	return f.logoutErr
}

func (f *fakeIdentity) Login(_ context.Context, creds shop.Credentials) (*shop.User, error) {
	if creds.Password != "password" {
		return nil, errors.New("bad credentials")
	}
	return &shop.User{ID: "1", Email: creds.Email}, nil
}

type countingSyncer struct {
	mu    sync.Mutex
	calls int
}

func (s *countingSyncer) Sync(context.Context) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
}

func (s *countingSyncer) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func unauthorizedError(t *testing.T) error {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	t.Cleanup(server.Close)
	c, err := api.NewClient(api.Config{Mode: api.ModeLive, BaseURL: server.URL}, api.WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	_, err = c.Me(context.Background())
	if !api.IsUnauthorized(err) {
		t.Fatalf("expected 401 error, got %v", err)
	}
	return err
}

func TestManager_StartsLoading(t *testing.T) {
	m := NewManager(&fakeIdentity{}, WithLogger(quietLogger()))
	if got := m.Snapshot(); got.Status != StatusLoading || got.Actor != nil {
		t.Fatalf("initial session = %#v, want loading", got)
	}
}

func TestManager_BootstrapOutcomes(t *testing.T) {
	cases := []struct {
		name     string
		identity *fakeIdentity
		want     Status
	}{
		{"ok", &fakeIdentity{user: &shop.User{ID: "7", Email: "a@b.c"}}, StatusAuthenticated},
		{"unauthorized", &fakeIdentity{meErr: unauthorizedError(t)}, StatusUnauthenticated},
		{"network", &fakeIdentity{meErr: errors.New("connection refused")}, StatusUnauthenticated},
		{"empty", &fakeIdentity{}, StatusUnauthenticated},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := NewManager(tc.identity, WithLogger(quietLogger()))
			got := m.Bootstrap(context.Background())
			if got.Status != tc.want {
				t.Fatalf("Bootstrap status = %v, want %v", got.Status, tc.want)
			}
			if tc.want == StatusAuthenticated && (got.Actor == nil || got.Actor.ID != "7") {
				t.Fatalf("Bootstrap actor = %#v", got.Actor)
			}
		})
	}
}

func TestManager_SetRefusesLoading(t *testing.T) {
	m := NewManager(&fakeIdentity{}, WithLogger(quietLogger()))
	_ = m.Set(Session{Status: StatusUnauthenticated})
	if err := m.Set(Session{Status: StatusLoading}); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("Set(loading) error = %v, want ErrInvalidTransition", err)
	}
	if got := m.Snapshot().Status; got != StatusUnauthenticated {
		t.Fatalf("status = %v, want unauthenticated", got)
	}
}

func TestManager_LogoutAlwaysResets(t *testing.T) {
	identity := &fakeIdentity{logoutErr: errors.New("network down")}
	m := NewManager(identity, WithLogger(quietLogger()))
	_ = m.Set(Session{Actor: &shop.User{ID: "1"}, Status: StatusAuthenticated})

	m.Logout(context.Background())

	got := m.Snapshot()
	if got.Status != StatusUnauthenticated || got.Actor != nil {
		t.Fatalf("session after logout = %#v, want unauthenticated", got)
	}
	if identity.logouts != 1 {
		t.Fatalf("logout calls = %d, want 1", identity.logouts)
	}
}

func TestManager_SyncRunsOncePerSignIn(t *testing.T) {
	syncer := &countingSyncer{}
	identity := &fakeIdentity{}
	m := NewManager(identity, WithSyncer(syncer), WithAuthenticator(identity), WithLogger(quietLogger()))
	ctx := context.Background()

	_ = m.Set(Session{Status: StatusUnauthenticated})
	if _, err := m.Login(ctx, shop.Credentials{Email: "a@b.c", Password: "password"}); err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	_ = m.Set(Session{Actor: &shop.User{ID: "1", Email: "a@b.c"}, Status: StatusAuthenticated})
	m.Wait()
	if got := syncer.count(); got != 1 {
		t.Fatalf("sync calls = %d, want 1", got)
	}

	m.Logout(ctx)
	if _, err := m.Login(ctx, shop.Credentials{Email: "a@b.c", Password: "password"}); err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	m.Wait()
	if got := syncer.count(); got != 2 {
		t.Fatalf("sync calls after second sign-in = %d, want 2", got)
	}
}

func TestManager_NoSyncWithoutActor(t *testing.T) {
	syncer := &countingSyncer{}
	m := NewManager(&fakeIdentity{}, WithSyncer(syncer), WithLogger(quietLogger()))
	_ = m.Set(Session{Status: StatusAuthenticated})
	m.Wait()
	if got := syncer.count(); got != 0 {
		t.Fatalf("sync calls = %d, want 0", got)
	}
}

func TestManager_LoginFailureKeepsSession(t *testing.T) {
	identity := &fakeIdentity{}
	m := NewManager(identity, WithAuthenticator(identity), WithLogger(quietLogger()))
	_ = m.Set(Session{Status: StatusUnauthenticated})

	if _, err := m.Login(context.Background(), shop.Credentials{Email: "a@b.c", Password: "nope"}); err == nil {
		t.Fatalf("expected login error")
	}
	if got := m.Snapshot().Status; got != StatusUnauthenticated {
		t.Fatalf("status = %v, want unauthenticated", got)
	}

	bare := NewManager(identity, WithLogger(quietLogger()))
	if _, err := bare.Login(context.Background(), shop.Credentials{}); err == nil {
		t.Fatalf("expected error without authenticator")
	}
}

func TestManager_SubscribersSeeChangesOnly(t *testing.T) {
	m := NewManager(&fakeIdentity{}, WithLogger(quietLogger()))
	var seen []Status
	unsubscribe := m.Subscribe(func(s Session) { seen = append(seen, s.Status) })

	_ = m.Set(Session{Status: StatusUnauthenticated})
	_ = m.Set(Session{Status: StatusUnauthenticated})
	_ = m.Set(Session{Actor: &shop.User{ID: "1"}, Status: StatusAuthenticated})
	unsubscribe()
	_ = m.Set(Session{Status: StatusUnauthenticated})

	want := []Status{StatusUnauthenticated, StatusAuthenticated}
	if len(seen) != len(want) || seen[0] != want[0] || seen[1] != want[1] {
		t.Fatalf("notifications = %v, want %v", seen, want)
	}
}

func TestManager_SnapshotIsACopy(t *testing.T) {
	m := NewManager(&fakeIdentity{}, WithLogger(quietLogger()))
	_ = m.Set(Session{Actor: &shop.User{ID: "1", Email: "a@b.c"}, Status: StatusAuthenticated})
	snap := m.Snapshot()
	snap.Actor.Email = "changed"
	if got := m.Snapshot().Actor.Email; got != "a@b.c" {
		t.Fatalf("Snapshot shares actor: %q", got)
	}
}
