package storage

import (
	"errors"
	"testing"
)

func TestMemoryStoreGetSetRemove(t *testing.T) {
	s := NewMemoryStore(0)

	if _, err := s.Get("missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get(missing) error = %v, want ErrNotFound", err)
	}

	if err := s.Set("tracker_month_2026-02", []byte(`{"month":"2026-02"}`)); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	got, err := s.Get("tracker_month_2026-02")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(got) != `{"month":"2026-02"}` {
		t.Errorf("Get() = %s", got)
	}

	// Mutating the returned slice must not affect the stored value.
	got[0] = 'X'
	again, _ := s.Get("tracker_month_2026-02")
	if again[0] != '{' {
		t.Error("Get() returned a slice aliasing stored data")
	}

	if err := s.Remove("tracker_month_2026-02"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if _, err := s.Get("tracker_month_2026-02"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() after Remove error = %v, want ErrNotFound", err)
	}
	if size, _ := s.Size(); size != 0 {
		t.Errorf("Size() after Remove = %d, want 0", size)
	}
}

func TestMemoryStoreQuotaLeavesOtherKeysIntact(t *testing.T) {
	s := NewMemoryStore(20)

	if err := s.Set("a", []byte("0123456789")); err != nil {
		t.Fatalf("Set(a) error = %v", err)
	}
	if err := s.Set("b", []byte("0123456789")); !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("Set(b) error = %v, want ErrQuotaExceeded", err)
	}

	v, err := s.Get("a")
	if err != nil || string(v) != "0123456789" {
		t.Errorf("Get(a) = %q, %v after failed write", v, err)
	}
	if _, err := s.Get("b"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(b) error = %v, want ErrNotFound", err)
	}

	// Overwriting an existing key only counts the delta.
	if err := s.Set("a", []byte("012345678901234")); err != nil {
		t.Errorf("overwrite within quota failed: %v", err)
	}
}

func TestMemoryStoreKeys(t *testing.T) {
	s := NewMemoryStore(0)
	for _, k := range []string{"tracker_week_2026-W08", "tracker_month_2026-02", "tracker_month_2026-01", "other"} {
		if err := s.Set(k, []byte("{}")); err != nil {
			t.Fatalf("Set(%s) error = %v", k, err)
		}
	}

	keys, err := s.Keys("tracker_month_")
	if err != nil {
		t.Fatalf("Keys() error = %v", err)
	}
	if len(keys) != 2 || keys[0] != "tracker_month_2026-01" || keys[1] != "tracker_month_2026-02" {
		t.Errorf("Keys() = %v", keys)
	}
}

func TestIsPostgresURL(t *testing.T) {
	tests := map[string]bool{
		"postgres://user@host/db":    true,
		"postgresql://user@host/db":  true,
		"~/.config/daylog/daylog.db": false,
	}
	for dsn, want := range tests {
		if got := IsPostgresURL(dsn); got != want {
			t.Errorf("IsPostgresURL(%q) = %v, want %v", dsn, got, want)
		}
	}
}
