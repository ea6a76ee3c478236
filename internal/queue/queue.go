package queue

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Type is the kind of record an entry refers to.
type Type string

const (
	TypeMonth   Type = "month"
	TypeWeek    Type = "week"
	TypeMonthly Type = "monthly"
)

// Valid reports whether t is a known entry type.
func (t Type) Valid() bool {
	switch t {
	case TypeMonth, TypeWeek, TypeMonthly:
		return true
	}
	return false
}

// Entry identifies one record with unsynced local edits.
type Entry struct {
	Type Type
	Key  string
}

// String returns the persisted token form, "type:key".
func (e Entry) String() string {
	return string(e.Type) + ":" + e.Key
}

// ParseEntry parses a "type:key" token.
func ParseEntry(token string) (Entry, error) {
	typ, key, ok := strings.Cut(token, ":")
	if !ok || key == "" {
		return Entry{}, fmt.Errorf("malformed queue entry %q", token)
	}
	e := Entry{Type: Type(typ), Key: key}
	if !e.Type.Valid() {
		return Entry{}, fmt.Errorf("unknown queue entry type %q", typ)
	}
	return e, nil
}

// ErrMalformedEntries is returned by Load when some persisted tokens could
// not be parsed. The valid tokens are still loaded.
var ErrMalformedEntries = errors.New("malformed queue entries")

// Persister stores the queue snapshot.
type Persister interface {
	LoadQueue() ([]string, error)
	SaveQueue(tokens []string) error
}

// Failure is an entry whose processing did not succeed in a drain.
type Failure struct {
	Entry Entry
	Err   error
}

// Queue is a durable, insertion-ordered set of entries.
type Queue struct {
	mu    sync.Mutex
	order []Entry
	// gen counts marks per entry so a drain never drops an entry that was
	// marked again while it was being processed.
	gen   map[Entry]uint64
	store Persister
	// loaded is set once the persisted snapshot has been merged in. Until
	// then Save refuses to overwrite it.
	loaded bool
}

// New returns an empty queue persisting through store.
func New(store Persister) *Queue {
	return &Queue{
		gen:   make(map[Entry]uint64),
		store: store,
	}
}

// Mark adds an entry and persists the set immediately. Marking an entry
// that is already queued does not duplicate it. When the save fails the
// entry stays queued in memory and the error is returned.
func (q *Queue) Mark(t Type, key string) error {
	if !t.Valid() {
		return fmt.Errorf("unknown queue entry type %q", t)
	}
	e := Entry{Type: t, Key: key}

	q.mu.Lock()
	q.addLocked(e)
	q.gen[e]++
	q.mu.Unlock()

	return q.Save()
}

// Load merges the persisted snapshot into the in-memory set. Malformed
// tokens are skipped and reported with ErrMalformedEntries after the valid
// ones load. Any other error means the snapshot could not be read and
// nothing was merged.
func (q *Queue) Load() error {
	tokens, err := q.store.LoadQueue()
	if err != nil {
		return fmt.Errorf("failed to load sync queue: %w", err)
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	q.loaded = true

	var bad []string
	for _, tok := range tokens {
		e, err := ParseEntry(tok)
		if err != nil {
			bad = append(bad, tok)
			continue
		}
		q.addLocked(e)
	}
	if len(bad) > 0 {
		return fmt.Errorf("%w: skipped %d: %s", ErrMalformedEntries, len(bad), strings.Join(bad, ", "))
	}
	return nil
}

// Save persists the current set. When the persisted snapshot has not been
// loaded yet it is loaded first, and Save fails without writing if that
// read fails.
func (q *Queue) Save() error {
	q.mu.Lock()
	loaded := q.loaded
	q.mu.Unlock()
	if !loaded {
		if err := q.Load(); err != nil && !errors.Is(err, ErrMalformedEntries) {
			return fmt.Errorf("refusing to overwrite unread sync queue: %w", err)
		}
	}

	q.mu.Lock()
	tokens := q.tokensLocked()
	q.mu.Unlock()
	return q.save(tokens)
}

// IsLoadFailure reports whether err from Load means the persisted snapshot
// could not be read at all.
func IsLoadFailure(err error) bool {
	return err != nil && !errors.Is(err, ErrMalformedEntries)
}

// Remove drops an entry without persisting.
func (q *Queue) Remove(e Entry) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.removeLocked(e)
}

// Contains reports whether e is queued.
func (q *Queue) Contains(e Entry) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	_, ok := q.gen[e]
	return ok
}

// Len returns the number of queued entries.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.order)
}

// Snapshot returns the queued entries in insertion order.
func (q *Queue) Snapshot() []Entry {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]Entry(nil), q.order...)
}

// Drain processes a snapshot of the queue one entry at a time.
func (q *Queue) Drain(ctx context.Context, process func(context.Context, Entry) error) []Failure {
	return q.DrainN(ctx, 1, process)
}

// DrainN processes a snapshot of the queue with up to limit entries in
// flight. An entry is removed only when process returns nil and it was not
// marked again meanwhile. A failing or panicking process leaves its entry
// queued without affecting the others. Failures come back in queue order.
// The queue is not persisted; callers Save afterwards.
func (q *Queue) DrainN(ctx context.Context, limit int, process func(context.Context, Entry) error) []Failure {
	if limit < 1 {
		limit = 1
	}

	q.mu.Lock()
	snapshot := append([]Entry(nil), q.order...)
	marks := make([]uint64, len(snapshot))
	for i, e := range snapshot {
		marks[i] = q.gen[e]
	}
	q.mu.Unlock()

	var (
		mu       sync.Mutex
		failures = make(map[int]error)
	)

	g := new(errgroup.Group)
	g.SetLimit(limit)
	for i, e := range snapshot {
		g.Go(func() error {
			err := ctx.Err()
			if err == nil {
				err = safeProcess(ctx, e, process)
			}
			if err != nil {
				mu.Lock()
				failures[i] = err
				mu.Unlock()
				return nil
			}
			q.removeIfUnchanged(e, marks[i])
			return nil
		})
	}
	_ = g.Wait()

	idx := make([]int, 0, len(failures))
	for i := range failures {
		idx = append(idx, i)
	}
	sort.Ints(idx)
	out := make([]Failure, 0, len(idx))
	for _, i := range idx {
		out = append(out, Failure{Entry: snapshot[i], Err: failures[i]})
	}
	return out
}

func safeProcess(ctx context.Context, e Entry, process func(context.Context, Entry) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while syncing %s: %v", e, r)
		}
	}()
	return process(ctx, e)
}

func (q *Queue) removeIfUnchanged(e Entry, mark uint64) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.gen[e] != mark {
		return
	}
	q.removeLocked(e)
}

func (q *Queue) save(tokens []string) error {
	if err := q.store.SaveQueue(tokens); err != nil {
		return fmt.Errorf("failed to persist sync queue: %w", err)
	}
	return nil
}

func (q *Queue) addLocked(e Entry) {
	if _, ok := q.gen[e]; ok {
		return
	}
	q.gen[e] = 0
	q.order = append(q.order, e)
}

func (q *Queue) removeLocked(e Entry) {
	if _, ok := q.gen[e]; !ok {
		return
	}
	delete(q.gen, e)
	for i, o := range q.order {
		if o == e {
			q.order = append(q.order[:i], q.order[i+1:]...)
			break
		}
	}
}

func (q *Queue) tokensLocked() []string {
	tokens := make([]string, len(q.order))
	for i, e := range q.order {
		tokens[i] = e.String()
	}
	return tokens
}
