package sqlite

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/julianstephens/daylog/internal/storage"
)

func setupTestStore(t *testing.T, quota int64) (*Store, func()) {
	dbPath := filepath.Join(t.TempDir(), "daylog.db")
	store := NewStore(dbPath, quota)
	if err := store.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	return store, func() { store.Close() }
}

func TestStoreImplementsProvider(t *testing.T) {
	var _ storage.Provider = (*Store)(nil)
}

func TestLoadBeforeInit(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "missing.db"), 0)
	if err := store.Load(); !errors.Is(err, storage.ErrNotInitialized) {
		t.Errorf("Load() error = %v, want ErrNotInitialized", err)
	}
}

func TestGetSetRemove(t *testing.T) {
	store, cleanup := setupTestStore(t, 0)
	defer cleanup()

	if _, err := store.Get("tracker_config"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Get() on empty store error = %v, want ErrNotFound", err)
	}

	if err := store.Set("tracker_config", []byte(`{"githubOwner":"me"}`)); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := store.Set("tracker_config", []byte(`{"githubOwner":"you"}`)); err != nil {
		t.Fatalf("Set() overwrite error = %v", err)
	}

	got, err := store.Get("tracker_config")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(got) != `{"githubOwner":"you"}` {
		t.Errorf("Get() = %s", got)
	}

	if err := store.Remove("tracker_config"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if _, err := store.Get("tracker_config"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Get() after Remove error = %v, want ErrNotFound", err)
	}
}

func TestReopenPersists(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "daylog.db")

	first := NewStore(dbPath, 0)
	if err := first.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if err := first.Set("tracker_syncQueue", []byte(`["month:2026-02"]`)); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	first.Close()

	second := NewStore(dbPath, 0)
	if err := second.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	defer second.Close()

	got, err := second.Get("tracker_syncQueue")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(got) != `["month:2026-02"]` {
		t.Errorf("Get() = %s", got)
	}
}

func TestQuotaLeavesOtherKeysIntact(t *testing.T) {
	store, cleanup := setupTestStore(t, 64)
	defer cleanup()

	if err := store.Set("a", make([]byte, 40)); err != nil {
		t.Fatalf("Set(a) error = %v", err)
	}
	if err := store.Set("b", make([]byte, 40)); !errors.Is(err, storage.ErrQuotaExceeded) {
		t.Fatalf("Set(b) error = %v, want ErrQuotaExceeded", err)
	}

	got, err := store.Get("a")
	if err != nil || len(got) != 40 {
		t.Errorf("Get(a) = %d bytes, %v after failed write", len(got), err)
	}
	if _, err := store.Get("b"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Get(b) error = %v, want ErrNotFound", err)
	}

	// Replacing a's value only counts the new size.
	if err := store.Set("a", make([]byte, 60)); err != nil {
		t.Errorf("overwrite within quota failed: %v", err)
	}

	size, err := store.Size()
	if err != nil {
		t.Fatalf("Size() error = %v", err)
	}
	if size != 61 {
		t.Errorf("Size() = %d, want 61", size)
	}
}

func TestKeys(t *testing.T) {
	store, cleanup := setupTestStore(t, 0)
	defer cleanup()

	for _, k := range []string{"tracker_month_2026-02", "tracker_month_2026-01", "tracker_week_2026-W08"} {
		if err := store.Set(k, []byte("{}")); err != nil {
			t.Fatalf("Set(%s) error = %v", k, err)
		}
	}

	keys, err := store.Keys("tracker_month_")
	if err != nil {
		t.Fatalf("Keys() error = %v", err)
	}
	if len(keys) != 2 || keys[0] != "tracker_month_2026-01" || keys[1] != "tracker_month_2026-02" {
		t.Errorf("Keys() = %v", keys)
	}

	all, err := store.Keys("")
	if err != nil || len(all) != 3 {
		t.Errorf("Keys(\"\") = %v, %v", all, err)
	}
}

func TestSchemaIsCurrentAfterInit(t *testing.T) {
	store, cleanup := setupTestStore(t, 0)
	defer cleanup()

	runner, err := store.Migrations()
	if err != nil {
		t.Fatalf("Migrations() error = %v", err)
	}
	if err := runner.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}

	// Init is idempotent on an existing database.
	if err := store.Init(); err != nil {
		t.Errorf("second Init() error = %v", err)
	}
}
