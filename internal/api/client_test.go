package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/five82/basket/internal/busy"
	"github.com/five82/basket/internal/shop"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(t *testing.T, h http.Handler, opts ...Option) *Client {
	t.Helper()
	server := httptest.NewServer(h)
	t.Cleanup(server.Close)

	opts = append([]Option{WithLogger(quietLogger())}, opts...)
	c, err := NewClient(Config{Mode: ModeLive, BaseURL: server.URL + "/api"}, opts...)
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	return c
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestParseBaseURL_DefaultsAndNormalizes(t *testing.T) {
	u, err := parseBaseURL("")
	if err != nil {
		t.Fatalf("parseBaseURL returned error: %v", err)
	}
	if u.String() != defaultBaseURL {
		t.Fatalf("default = %q, want %q", u.String(), defaultBaseURL)
	}

	u, err = parseBaseURL("example.com:1234/api/?x=1#frag")
	if err != nil {
		t.Fatalf("parseBaseURL returned error: %v", err)
	}
	if u.Scheme != "http" || u.Path != "/api" || u.RawQuery != "" || u.Fragment != "" {
		t.Fatalf("url not normalized: %q", u.String())
	}

	if _, err := parseBaseURL("http://"); err == nil {
		t.Fatalf("expected error for missing host")
	}
}

func TestNewClient_RejectsBadModes(t *testing.T) {
	if _, err := NewClient(Config{Mode: ModeMock}); err == nil {
		t.Fatalf("mock mode without handler should fail")
	}
	if _, err := NewClient(Config{Mode: "carrier-pigeon"}); err == nil {
		t.Fatalf("unknown mode should fail")
	}
}

func TestClient_SendsJSONAndDecodesReply(t *testing.T) {
	var gotContentType, gotUserAgent, gotPath string
	var gotBody shop.List

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		gotUserAgent = r.Header.Get("User-Agent")
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"_id": 5, "name": "Groceries", "itemsCount": 0}`)
	}))

	out, err := c.CreateList(testContext(t), shop.List{Name: "Groceries"})
	if err != nil {
		t.Fatalf("CreateList returned error: %v", err)
	}
	if out.ID != "5" || out.Name != "Groceries" {
		t.Fatalf("CreateList = %#v, want id=5", out)
	}
	if gotPath != "/api/list" {
		t.Fatalf("path = %q, want /api/list", gotPath)
	}
	if gotContentType != "application/json" {
		t.Fatalf("content type = %q", gotContentType)
	}
	if gotUserAgent != defaultUserAgent {
		t.Fatalf("user agent = %q", gotUserAgent)
	}
	if gotBody.Name != "Groceries" {
		t.Fatalf("body = %#v", gotBody)
	}
}

func TestClient_EmptyBodiesReturnNil(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/nocontent":
			w.WriteHeader(http.StatusNoContent)
		case "/api/empty":
			w.WriteHeader(http.StatusOK)
		default:
			_, _ = io.WriteString(w, `[1,2]`)
		}
	}))
	ctx := testContext(t)

	for _, path := range []string{"/nocontent", "/empty"} {
		raw, err := c.Do(ctx, http.MethodGet, path, nil)
		if err != nil {
			t.Fatalf("Do(%s) returned error: %v", path, err)
		}
		if raw != nil {
			t.Fatalf("Do(%s) = %s, want nil", path, raw)
		}
	}

	raw, err := c.Do(ctx, http.MethodGet, "/other", nil)
	if err != nil || string(raw) != "[1,2]" {
		t.Fatalf("Do(/other) = %s, %v", raw, err)
	}
}

func TestClient_InvalidJSONIsAnError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `<html>`)
	}))
	if _, err := c.Do(testContext(t), http.MethodGet, "/me", nil); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestClient_ClassifiesErrors(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/me":
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"error":"Unauthorized"}`)
		case "/api/list/1":
			w.WriteHeader(http.StatusConflict)
		case "/api/list/2":
			w.WriteHeader(http.StatusNotFound)
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	ctx := testContext(t)

	_, err := c.Me(ctx)
	if !IsUnauthorized(err) {
		t.Fatalf("Me error kind = %v, want unauthorized (%v)", KindOf(err), err)
	}
	var he *HTTPError
	if !errors.As(err, &he) || he.Message() != "Unauthorized" {
		t.Fatalf("error message not decoded: %v", err)
	}

	if err := c.ShareList(ctx, "1", "friend@example.com"); !IsConflict(err) {
		t.Fatalf("ShareList error kind = %v, want conflict", KindOf(err))
	}
	if err := c.ShareList(ctx, "2", "nobody@example.com"); !IsNotFound(err) {
		t.Fatalf("ShareList error kind = %v, want not_found", KindOf(err))
	}
	_, err = c.Lists(ctx)
	if KindOf(err) != KindGeneric || StatusOf(err) != http.StatusInternalServerError {
		t.Fatalf("Lists error = %v (kind %v status %d)", err, KindOf(err), StatusOf(err))
	}

	if KindOf(nil) != KindNone {
		t.Fatalf("KindOf(nil) = %v", KindOf(nil))
	}
	if KindOf(errors.New("dial tcp: refused")) != KindGeneric {
		t.Fatalf("transport error should be generic")
	}
}

func TestHTTPError_FieldErrorsDecodedOnce(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `[{"field":"name","code":"LIST_NAME_EMPTY"}]`)
	}))

	_, err := c.CreateList(testContext(t), shop.List{})
	var he *HTTPError
	if !errors.As(err, &he) {
		t.Fatalf("expected *HTTPError, got %v", err)
	}
	first, err := he.FieldErrors()
	if err != nil {
		t.Fatalf("FieldErrors returned error: %v", err)
	}
	if len(first) != 1 || first[0].Code != shop.CodeListNameEmpty {
		t.Fatalf("FieldErrors = %#v", first)
	}
	he.body = nil
	second, err := he.FieldErrors()
	if err != nil || len(second) != 1 {
		t.Fatalf("second FieldErrors = %#v, %v; want cached result", second, err)
	}
}

func TestClient_KeepsSessionCookie(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/login":
			http.SetCookie(w, &http.Cookie{Name: "basket_session", Value: "token", Path: "/"})
			_, _ = io.WriteString(w, `{"id": 1, "email": "demo@example.com"}`)
		case "/api/me":
			if cookie, err := r.Cookie("basket_session"); err != nil || cookie.Value != "token" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			_, _ = io.WriteString(w, `{"id": 1, "email": "demo@example.com"}`)
		}
	}))
	ctx := testContext(t)

	if _, err := c.Login(ctx, shop.Credentials{Email: "demo@example.com", Password: "password"}); err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	u, err := c.Me(ctx)
	if err != nil {
		t.Fatalf("Me returned error: %v", err)
	}
	if u.Email != "demo@example.com" {
		t.Fatalf("Me = %#v", u)
	}
}

func TestClient_ReportsBusyWork(t *testing.T) {
	tracker := busy.New(
		busy.WithLogger(quietLogger()),
		busy.WithScheduler(busy.SchedulerFunc(func(time.Duration, func()) func() bool {
			return func() bool { return true }
		})),
	)
	var during []busy.Counts
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		during = append(during, tracker.InFlight())
		w.WriteHeader(http.StatusNoContent)
	}), WithTracker(tracker))
	ctx := testContext(t)

	if err := c.Get(ctx, "/list", nil); err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if err := c.Delete(ctx, "/list/1"); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}

	want := []busy.Counts{{Backend: 1}, {Backend: 1, Hard: 1}}
	if len(during) != len(want) || during[0] != want[0] || during[1] != want[1] {
		t.Fatalf("in-flight during requests = %#v, want %#v", during, want)
	}
	if got := tracker.InFlight(); got != (busy.Counts{}) {
		t.Fatalf("in-flight after requests = %#v, want zero", got)
	}
}

func TestClient_MockModeServesHandlerInProcess(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/list/import" || r.Method != http.MethodPost {
			w.WriteHeader(http.StatusTeapot)
			return
		}
		var lists []shop.List
		if err := json.NewDecoder(r.Body).Decode(&lists); err != nil || len(lists) != 2 {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusCreated)
	})
	c, err := NewClient(Config{Mode: ModeMock}, WithHandler(h), WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	if !strings.HasSuffix(c.BaseURL(), "/api") {
		t.Fatalf("BaseURL = %q", c.BaseURL())
	}
	err = c.ImportLists(testContext(t), []shop.List{{Name: "A"}, {Name: "B"}})
	if err != nil {
		t.Fatalf("ImportLists returned error: %v", err)
	}
}

func TestClient_UploadsImageAsMultipart(t *testing.T) {
	var gotField, gotName, gotData string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/api/list/1/items/2/image" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		gotField, gotName, gotData = "file", header.Filename, string(data)
		_, _ = io.WriteString(w, `{"id": 9, "url": "/img/9.png", "itemsId": 2}`)
	}))

	img, err := c.PutItemImage(testContext(t), "1", "2", "milk.png", strings.NewReader("png-bytes"))
	if err != nil {
		t.Fatalf("PutItemImage returned error: %v", err)
	}
	if gotField != "file" || gotName != "milk.png" || gotData != "png-bytes" {
		t.Fatalf("upload = %q %q %q", gotField, gotName, gotData)
	}
	if img.ID != "9" || img.ItemsID != "2" {
		t.Fatalf("image = %#v", img)
	}
}

func TestClient_NilClient(t *testing.T) {
	var c *Client
	if _, err := c.Do(context.Background(), http.MethodGet, "/me", nil); err == nil {
		t.Fatalf("expected error for nil client")
	}
}

func TestHTTPError_KeepsServerReasonPhrase(t *testing.T) {
	resp := &http.Response{StatusCode: http.StatusTeapot, Status: "418 Short And Stout", Header: http.Header{}}
	if got := newHTTPError(http.MethodGet, "/api/me", resp, nil).StatusText; got != "Short And Stout" {
		t.Fatalf("StatusText = %q, want server reason phrase", got)
	}

	resp = &http.Response{StatusCode: http.StatusNotFound, Header: http.Header{}}
	if got := newHTTPError(http.MethodGet, "/api/me", resp, nil).StatusText; got != "Not Found" {
		t.Fatalf("StatusText = %q, want fallback reason", got)
	}
}
