package kv

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	if _, ok, err := s.Get(ctx, "guest"); err != nil || ok {
		t.Fatalf("Get on empty store = ok:%v err:%v, want absent", ok, err)
	}
	if err := s.Set(ctx, "guest", `[{"id":1,"name":"A"}]`); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}
	if err := s.Set(ctx, "guest", `[{"id":2,"name":"B"}]`); err != nil {
		t.Fatalf("Set overwrite returned error: %v", err)
	}
	v, ok, err := s.Get(ctx, "guest")
	if err != nil || !ok || v != `[{"id":2,"name":"B"}]` {
		t.Fatalf("Get = %q ok:%v err:%v, want overwritten value", v, ok, err)
	}
	if err := s.Delete(ctx, "guest"); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if err := s.Delete(ctx, "guest"); err != nil {
		t.Fatalf("Delete of absent key returned error: %v", err)
	}
	if _, ok, _ := s.Get(ctx, "guest"); ok {
		t.Fatalf("key still present after Delete")
	}
}

func TestMemStore(t *testing.T) {
	exerciseStore(t, NewMemStore())
}

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "guest.toml")
	s, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore returned error: %v", err)
	}
	exerciseStore(t, s)
}

func TestFileStore_PersistsAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "guest.toml")
	first, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore returned error: %v", err)
	}
	if err := first.Set(context.Background(), "guest", `["x"]`); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}

	second, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore returned error: %v", err)
	}
	v, ok, err := second.Get(context.Background(), "guest")
	if err != nil || !ok || v != `["x"]` {
		t.Fatalf("Get = %q ok:%v err:%v, want persisted value", v, ok, err)
	}
}

func TestFileStore_CorruptDocumentErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "guest.toml")
	if err := os.WriteFile(path, []byte("not valid toml {{{"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	s, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore returned error: %v", err)
	}
	_, _, err = s.Get(context.Background(), "guest")
	if err == nil || !strings.Contains(err.Error(), "parse store") {
		t.Fatalf("Get error = %v, want parse store error", err)
	}
}

func TestFileStore_ExpandsTilde(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	s, err := NewFileStore("~/data/guest.toml")
	if err != nil {
		t.Fatalf("NewFileStore returned error: %v", err)
	}
	if !strings.HasPrefix(s.Path(), home) {
		t.Fatalf("Path = %q, want it under HOME %q", s.Path(), home)
	}
}

func TestSQLStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "guest.db")
	s, err := OpenSQLStore(context.Background(), path)
	if err != nil {
		t.Fatalf("OpenSQLStore returned error: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	exerciseStore(t, s)
}

func TestSQLStore_PersistsAcrossOpen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "guest.db")

	s, err := OpenSQLStore(ctx, path)
	if err != nil {
		t.Fatalf("OpenSQLStore returned error: %v", err)
	}
	if err := s.Set(ctx, "guest", "[]"); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}

	s, err = OpenSQLStore(ctx, path)
	if err != nil {
		t.Fatalf("reopen returned error: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	if v, ok, err := s.Get(ctx, "guest"); err != nil || !ok || v != "[]" {
		t.Fatalf("Get = %q ok:%v err:%v, want persisted value", v, ok, err)
	}
}

func TestOpen_UnknownBackend(t *testing.T) {
	if _, _, err := Open(context.Background(), Backend("redis"), ""); err == nil {
		t.Fatalf("Open returned nil error for unknown backend")
	}
}

func TestOpen_Memory(t *testing.T) {
	s, closer, err := Open(context.Background(), BackendMemory, "")
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	if closer == nil {
		t.Fatalf("closer is nil")
	}
	exerciseStore(t, s)
}
