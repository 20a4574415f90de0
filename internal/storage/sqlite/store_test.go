package sqlite

import (
	"errors"
	"path/filepath"
	"testing"

	"tasksphere/internal/storage"
)

func openTemp(t *testing.T, quota int64) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "data.db"), nil, quota)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpenRejectsEmptyPath(t *testing.T) {
	if _, err := Open("", nil, 0); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestStoreRoundTrip(t *testing.T) {
	s := openTemp(t, 0)

	if _, ok, err := s.Get("users"); err != nil || ok {
		t.Fatalf("expected missing key, got ok=%v err=%v", ok, err)
	}
	if err := s.Set("users", `[{"id":"1"}]`); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := s.Set("users", `[]`); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	v, ok, err := s.Get("users")
	if err != nil || !ok || v != "[]" {
		t.Fatalf("get = %q %v %v", v, ok, err)
	}
	if err := s.Remove("users"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, ok, _ := s.Get("users"); ok {
		t.Fatal("expected key removed")
	}
}

func TestStorePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.db")
	s, err := Open(path, nil, 0)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.Set("current_user", `{"id":"7"}`); err != nil {
		t.Fatalf("set: %v", err)
	}
	_ = s.Close()

	reopened, err := Open(path, nil, 0)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	v, ok, err := reopened.Get("current_user")
	if err != nil || !ok || v != `{"id":"7"}` {
		t.Fatalf("get after reopen = %q %v %v", v, ok, err)
	}
}

func TestStoreQuota(t *testing.T) {
	s := openTemp(t, 16)

	if err := s.Set("a", "1234567"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := s.Set("b", "123456789"); !errors.Is(err, storage.ErrQuotaExceeded) {
		t.Fatalf("expected quota error, got %v", err)
	}
	// replacing an existing key only counts the new value
	if err := s.Set("a", "12345678901234"); err != nil {
		t.Fatalf("overwrite within quota: %v", err)
	}
	if err := s.Clear(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if err := s.Set("b", "123456789"); err != nil {
		t.Fatalf("set after clear: %v", err)
	}
}
