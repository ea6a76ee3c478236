package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/julianstephens/daylog/internal/constants"
	"github.com/julianstephens/daylog/internal/storage"
)

// ErrSerialization marks a cache read or write that could not be encoded,
// decoded or stored. Quota failures wrap both this and storage.ErrQuotaExceeded.
var ErrSerialization = errors.New("local cache serialization failed")

const (
	keyConfig      = "config"
	keySyncQueue   = "syncQueue"
	keyLastSync    = "lastSync"
	keyPendingSync = "pendingSync"

	prefixMonth   = "month_"
	prefixWeek    = "week_"
	prefixMonthly = "monthly_"
)

// Cache is the typed local cache over a key/value Provider. Every logical
// key is namespaced with constants.CacheKeyPrefix.
type Cache struct {
	store storage.Provider
	now   func() time.Time
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock overrides the clock used to stamp updatedAt.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// New wraps store. The store must already be initialized or loaded.
func New(store storage.Provider, opts ...Option) *Cache {
	c := &Cache{store: store, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Store returns the underlying provider.
func (c *Cache) Store() storage.Provider {
	return c.store
}

// Now returns the cache clock's current time.
func (c *Cache) Now() time.Time {
	return c.now()
}

func fullKey(key string) string {
	return constants.CacheKeyPrefix + key
}

// GetLocal decodes the value stored under key into v. It reports false
// when the key is absent.
func (c *Cache) GetLocal(key string, v interface{}) (bool, error) {
	data, err := c.store.Get(fullKey(key))
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("%w: decoding %s: %v", ErrSerialization, key, err)
	}
	return true, nil
}

// SetLocal encodes v and stores it under key. A failed write leaves every
// other key untouched.
func (c *Cache) SetLocal(key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: encoding %s: %v", ErrSerialization, key, err)
	}
	if err := c.store.Set(fullKey(key), data); err != nil {
		return fmt.Errorf("%w: writing %s: %w", ErrSerialization, key, err)
	}
	return nil
}

// RemoveLocal deletes key. Removing an absent key is not an error.
func (c *Cache) RemoveLocal(key string) error {
	if err := c.store.Remove(fullKey(key)); err != nil {
		return fmt.Errorf("failed to remove %s: %w", key, err)
	}
	return nil
}

// keysWithPrefix lists logical keys under prefix with the prefix stripped.
func (c *Cache) keysWithPrefix(prefix string) ([]string, error) {
	full, err := c.store.Keys(fullKey(prefix))
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(full))
	for _, k := range full {
		keys = append(keys, strings.TrimPrefix(k, fullKey(prefix)))
	}
	return keys, nil
}

// Usage reports the bytes stored and the configured quota (0 when unlimited).
func (c *Cache) Usage() (used int64, quota int64, err error) {
	used, err = c.store.Size()
	return used, c.store.Quota(), err
}
