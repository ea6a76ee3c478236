package storage

import (
	"errors"
	"strings"
)

var (
	// ErrNotFound is returned by Get when the key has no value.
	ErrNotFound = errors.New("key not found")
	// ErrQuotaExceeded is returned by Set when the write would push the store
	// past its byte budget. The store is left unchanged.
	ErrQuotaExceeded = errors.New("storage quota exceeded")
	// ErrNotInitialized is returned when a backend is used before Init or Load.
	ErrNotInitialized = errors.New("storage not initialized, run 'daylog init' first")
)

// Provider is a size-bounded key/value store backing the local cache.
// Every Set is atomic: a failed write never disturbs other keys.
type Provider interface {
	// Lifecycle
	Init() error
	Load() error
	Close() error

	// Key/value
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
	Remove(key string) error
	Keys(prefix string) ([]string, error)

	// Usage
	Size() (int64, error)
	Quota() int64

	// Utils
	GetConfigPath() string
}

// IsPostgresURL reports whether dsn names a PostgreSQL database rather than
// a SQLite file path.
func IsPostgresURL(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}

// EntrySize is the number of bytes a key/value pair counts against the quota.
func EntrySize(key string, value []byte) int64 {
	return int64(len(key) + len(value))
}
