// Package remotetest provides an in-memory remote.Client with failure
// injection for sync tests.
package remotetest

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"

	"github.com/julianstephens/daylog/internal/remote"
)

// Op names a client operation for failure injection.
type Op string

const (
	OpRead   Op = "read"
	OpWrite  Op = "write"
	OpDelete Op = "delete"
)

// WriteCall records a successful write.
type WriteCall struct {
	Path    string
	Message string
	Content []byte
}

type file struct {
	content []byte
	rev     string
}

type fault struct {
	op    Op
	path  string
	err   error
	times int
}

// Store is an in-memory remote.Client. Revisions are sequence numbers.
type Store struct {
	mu     sync.Mutex
	files  map[string]file
	seq    int
	faults []*fault
	writes []WriteCall

	// AccessErr is returned by ValidateAccess.
	AccessErr error

	// BeforeWrite runs before every write with no lock held. Tests use it
	// to land a competing write from another device.
	BeforeWrite func(path string)
}

var _ remote.Client = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{files: make(map[string]file)}
}

// Fail makes the next times calls of op on path return err. An empty path
// matches every path; times < 0 fails forever.
func (s *Store) Fail(op Op, path string, err error, times int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults = append(s.faults, &fault{op: op, path: path, err: err, times: times})
}

// ClearFaults removes every injected failure.
func (s *Store) ClearFaults() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults = nil
}

func (s *Store) faultLocked(op Op, path string) error {
	for _, f := range s.faults {
		if f.op != op || (f.path != "" && f.path != path) || f.times == 0 {
			continue
		}
		if f.times > 0 {
			f.times--
		}
		return f.err
	}
	return nil
}

func (s *Store) nextRevLocked() string {
	s.seq++
	return strconv.Itoa(s.seq)
}

// Put stores content directly, bypassing revision checks and faults.
func (s *Store) Put(path string, content []byte) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	rev := s.nextRevLocked()
	s.files[path] = file{content: append([]byte(nil), content...), rev: rev}
	return rev
}

// PutJSON encodes v with Put.
func (s *Store) PutJSON(path string, v interface{}) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		panic(fmt.Sprintf("remotetest: encoding %s: %v", path, err))
	}
	return s.Put(path, data)
}

// Get returns the stored content at path.
func (s *Store) Get(path string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.files[path]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), f.content...), true
}

// GetJSON decodes the document at path into v.
func (s *Store) GetJSON(path string, v interface{}) bool {
	data, ok := s.Get(path)
	if !ok {
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		panic(fmt.Sprintf("remotetest: decoding %s: %v", path, err))
	}
	return true
}

// Writes returns every successful write in order.
func (s *Store) Writes() []WriteCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]WriteCall(nil), s.writes...)
}

// Paths returns the number of stored documents.
func (s *Store) Paths() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.files)
}

func (s *Store) Read(ctx context.Context, path string) (*remote.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.faultLocked(OpRead, path); err != nil {
		return nil, err
	}
	f, ok := s.files[path]
	if !ok {
		return nil, nil
	}
	return &remote.Document{Content: append([]byte(nil), f.content...), Revision: f.rev}, nil
}

func (s *Store) Write(ctx context.Context, path string, content []byte, revision, message string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if hook := s.BeforeWrite; hook != nil {
		hook(path)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.faultLocked(OpWrite, path); err != nil {
		return "", err
	}
	cur, exists := s.files[path]
	switch {
	case revision == "" && exists:
		return "", fmt.Errorf("%w: %s already exists", remote.ErrConflict, path)
	case revision != "" && (!exists || cur.rev != revision):
		return "", fmt.Errorf("%w: %s is not at revision %s", remote.ErrConflict, path, revision)
	}
	rev := s.nextRevLocked()
	s.files[path] = file{content: append([]byte(nil), content...), rev: rev}
	s.writes = append(s.writes, WriteCall{Path: path, Message: message, Content: append([]byte(nil), content...)})
	return rev, nil
}

func (s *Store) Delete(ctx context.Context, path, revision, message string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.faultLocked(OpDelete, path); err != nil {
		return err
	}
	cur, exists := s.files[path]
	if !exists {
		return nil
	}
	if cur.rev != revision {
		return fmt.Errorf("%w: %s is not at revision %s", remote.ErrConflict, path, revision)
	}
	delete(s.files, path)
	return nil
}

func (s *Store) ValidateAccess(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.AccessErr
}
