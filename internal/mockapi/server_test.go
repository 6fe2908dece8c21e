package mockapi

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/five82/basket/internal/api"
	"github.com/five82/basket/internal/shop"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(t *testing.T, opts ...Option) (*Server, *api.Client) {
	t.Helper()
	opts = append([]Option{WithLogger(quietLogger())}, opts...)
	srv, err := New(opts...)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	c, err := api.NewClient(api.Config{Mode: api.ModeMock}, api.WithHandler(srv), api.WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	return srv, c
}

func login(t *testing.T, c *api.Client, email, password string) *shop.User {
	t.Helper()
	u, err := c.Login(context.Background(), shop.Credentials{Email: email, Password: password})
	if err != nil {
		t.Fatalf("Login(%s) returned error: %v", email, err)
	}
	return u
}

func TestServer_RequiresSession(t *testing.T) {
	_, c := newTestClient(t)
	ctx := context.Background()

	_, err := c.Me(ctx)
	if !api.IsUnauthorized(err) {
		t.Fatalf("Me without session: %v, want 401", err)
	}
	var he *api.HTTPError
	if !errors.As(err, &he) || he.Message() != "Unauthorized" {
		t.Fatalf("401 body not {error: Unauthorized}: %v", err)
	}

	if _, err := c.Login(ctx, shop.Credentials{Email: DemoEmail, Password: "wrong"}); !api.IsUnauthorized(err) {
		t.Fatalf("Login with bad password: %v, want 401", err)
	}

	u := login(t, c, DemoEmail, DemoPassword)
	me, err := c.Me(ctx)
	if err != nil {
		t.Fatalf("Me returned error: %v", err)
	}
	if me.ID != u.ID || me.Email != DemoEmail {
		t.Fatalf("Me = %#v, want %#v", me, u)
	}

	if err := c.Logout(ctx); err != nil {
		t.Fatalf("Logout returned error: %v", err)
	}
	if _, err := c.Me(ctx); !api.IsUnauthorized(err) {
		t.Fatalf("Me after logout: %v, want 401", err)
	}
}

func TestServer_RejectsForgedAndExpiredTokens(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	srv, err := New(WithLogger(quietLogger()), WithSecret([]byte("k")), WithClock(func() time.Time { return now }))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	token, err := srv.issueToken("1")
	if err != nil {
		t.Fatalf("issueToken returned error: %v", err)
	}

	call := func(value string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
		req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: value})
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := call(token); code != http.StatusOK {
		t.Fatalf("valid token status = %d, want 200", code)
	}
	if code := call(token + "x"); code != http.StatusUnauthorized {
		t.Fatalf("forged token status = %d, want 401", code)
	}
	now = now.Add(sessionTTL + time.Minute)
	if code := call(token); code != http.StatusUnauthorized {
		t.Fatalf("expired token status = %d, want 401", code)
	}
}

func TestServer_SeededListsAndItems(t *testing.T) {
	_, c := newTestClient(t)
	ctx := context.Background()
	login(t, c, DemoEmail, DemoPassword)

	lists, err := c.Lists(ctx)
	if err != nil {
		t.Fatalf("Lists returned error: %v", err)
	}
	if len(lists) != 1 || lists[0].Name != "Groceries" || lists[0].ItemsCount != 2 {
		t.Fatalf("Lists = %#v, want seeded Groceries with 2 items", lists)
	}
	if lists[0].ID.IsZero() {
		t.Fatalf("list id not decoded from _id")
	}

	item, err := c.CreateItem(ctx, lists[0].ID, shop.Item{Name: "Bread", Count: 1})
	if err != nil {
		t.Fatalf("CreateItem returned error: %v", err)
	}
	item.Purchased = true
	if _, err := c.UpdateItem(ctx, lists[0].ID, item); err != nil {
		t.Fatalf("UpdateItem returned error: %v", err)
	}
	got, err := c.GetItem(ctx, lists[0].ID, item.ID)
	if err != nil || !got.Purchased {
		t.Fatalf("GetItem = %#v, %v", got, err)
	}
	if err := c.DeleteItem(ctx, lists[0].ID, item.ID); err != nil {
		t.Fatalf("DeleteItem returned error: %v", err)
	}
	items, err := c.Items(ctx, lists[0].ID)
	if err != nil || len(items) != 2 {
		t.Fatalf("Items = %#v, %v", items, err)
	}
}

func TestServer_ValidationErrors(t *testing.T) {
	_, c := newTestClient(t)
	ctx := context.Background()
	login(t, c, DemoEmail, DemoPassword)

	fieldCodesOf := func(err error) []string {
		t.Helper()
		var he *api.HTTPError
		if !errors.As(err, &he) || he.Status != http.StatusBadRequest {
			t.Fatalf("expected 400, got %v", err)
		}
		fields, ferr := he.FieldErrors()
		if ferr != nil {
			t.Fatalf("FieldErrors returned error: %v", ferr)
		}
		codes := make([]string, 0, len(fields))
		for _, f := range fields {
			codes = append(codes, f.Code)
		}
		return codes
	}

	_, err := c.CreateList(ctx, shop.List{Name: "   "})
	if codes := fieldCodesOf(err); len(codes) != 1 || codes[0] != shop.CodeListNameEmpty {
		t.Fatalf("list codes = %v", codes)
	}

	lists, _ := c.Lists(ctx)
	_, err = c.CreateItem(ctx, lists[0].ID, shop.Item{})
	codes := fieldCodesOf(err)
	if strings.Join(codes, ",") != shop.CodeItemCountEmpty+","+shop.CodeItemNameEmpty {
		t.Fatalf("item codes = %v", codes)
	}

	_, err = c.CreateItem(ctx, lists[0].ID, shop.Item{Name: "Tea"})
	if codes := fieldCodesOf(err); len(codes) != 1 || codes[0] != shop.CodeItemCountEmpty {
		t.Fatalf("item count codes = %v", codes)
	}
}

func TestServer_ShareListStatuses(t *testing.T) {
	srv, c := newTestClient(t)
	ctx := context.Background()

	srv.mu.Lock()
	if _, err := srv.addAccount("friend@example.com", "secret"); err != nil {
		srv.mu.Unlock()
		t.Fatalf("addAccount returned error: %v", err)
	}
	srv.mu.Unlock()

	login(t, c, DemoEmail, DemoPassword)
	lists, _ := c.Lists(ctx)
	id := lists[0].ID

	if err := c.ShareList(ctx, id, "nobody@example.com"); !api.IsNotFound(err) {
		t.Fatalf("share with unknown user: %v, want 404", err)
	}
	if err := c.ShareList(ctx, id, DemoEmail); !api.IsConflict(err) {
		t.Fatalf("share with self: %v, want 409", err)
	}
	if err := c.ShareList(ctx, id, "friend@example.com"); err != nil {
		t.Fatalf("share returned error: %v", err)
	}
	if err := c.ShareList(ctx, id, "friend@example.com"); !api.IsConflict(err) {
		t.Fatalf("second share: %v, want 409", err)
	}

	_ = c.Logout(ctx)
	login(t, c, "friend@example.com", "secret")
	shared, err := c.Lists(ctx)
	if err != nil || len(shared) != 1 || shared[0].ID != id {
		t.Fatalf("friend lists = %#v, %v", shared, err)
	}
	if err := c.DeleteList(ctx, id); api.StatusOf(err) != http.StatusForbidden {
		t.Fatalf("non-owner delete: %v, want 403", err)
	}
}

func TestServer_ImportCreatesListsWithItems(t *testing.T) {
	_, c := newTestClient(t, WithoutSeed())
	ctx := context.Background()

	if _, err := c.Register(ctx, shop.Credentials{Email: "new@example.com", Password: "pw"}); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	guest := []shop.List{
		{ID: shop.NewLocalID(), Name: "Hardware", Items: []shop.Item{{ID: shop.NewLocalID(), Name: "Nails", Count: 100}}},
		{ID: shop.NewLocalID(), Name: "Party"},
	}
	if err := c.ImportLists(ctx, guest); err != nil {
		t.Fatalf("ImportLists returned error: %v", err)
	}

	lists, err := c.Lists(ctx)
	if err != nil || len(lists) != 2 {
		t.Fatalf("Lists = %#v, %v", lists, err)
	}
	if lists[0].Name != "Hardware" || lists[0].ItemsCount != 1 {
		t.Fatalf("imported list = %#v", lists[0])
	}
	if lists[0].ID == guest[0].ID {
		t.Fatalf("server kept the local id")
	}

	if err := c.ImportLists(ctx, []shop.List{{Name: ""}}); api.StatusOf(err) != http.StatusBadRequest {
		t.Fatalf("import with empty name: %v, want 400", err)
	}
}

func TestServer_ItemImages(t *testing.T) {
	_, c := newTestClient(t)
	ctx := context.Background()
	login(t, c, DemoEmail, DemoPassword)
	lists, _ := c.Lists(ctx)
	items, _ := c.Items(ctx, lists[0].ID)

	png := "\x89PNG\r\n\x1a\n" + strings.Repeat("\x00", 64)
	img, err := c.PutItemImage(ctx, lists[0].ID, items[0].ID, "milk.png", strings.NewReader(png))
	if err != nil {
		t.Fatalf("PutItemImage returned error: %v", err)
	}
	if img.ItemsID != items[0].ID || img.URL == "" {
		t.Fatalf("image = %#v", img)
	}

	_, err = c.PutItemImage(ctx, lists[0].ID, items[0].ID, "notes.txt", strings.NewReader("plain text"))
	var he *api.HTTPError
	if !errors.As(err, &he) {
		t.Fatalf("expected HTTPError, got %v", err)
	}
	fields, _ := he.FieldErrors()
	if len(fields) != 1 || fields[0].Code != shop.CodeImageTypeForbidden {
		t.Fatalf("fields = %#v", fields)
	}

	if err := c.DeleteItemImage(ctx, lists[0].ID, items[0].ID); err != nil {
		t.Fatalf("DeleteItemImage returned error: %v", err)
	}
	if err := c.DeleteItemImage(ctx, lists[0].ID, items[0].ID); !api.IsNotFound(err) {
		t.Fatalf("second DeleteItemImage: %v, want 404", err)
	}
}

func TestServer_UnknownRouteIsTeapot(t *testing.T) {
	srv, err := New(WithLogger(quietLogger()), WithoutSeed())
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/nope"},
		{http.MethodPatch, "/api/list"},
		{http.MethodGet, "/"},
	} {
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(tc.method, tc.path, nil))
		if rec.Code != http.StatusTeapot {
			t.Fatalf("%s %s status = %d, want 418", tc.method, tc.path, rec.Code)
		}
	}
}
