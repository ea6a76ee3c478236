package queue

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memPersister struct {
	mu      sync.Mutex
	tokens  []string
	loadErr error
	saveErr error
	saves   int
}

func (m *memPersister) LoadQueue() ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return append([]string(nil), m.tokens...), nil
}

func (m *memPersister) SaveQueue(tokens []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.tokens = append([]string(nil), tokens...)
	return nil
}

func TestParseEntry(t *testing.T) {
	e, err := ParseEntry("month:2026-02")
	require.NoError(t, err)
	assert.Equal(t, Entry{Type: TypeMonth, Key: "2026-02"}, e)
	assert.Equal(t, "month:2026-02", e.String())

	e, err = ParseEntry("week:2026-W08")
	require.NoError(t, err)
	assert.Equal(t, TypeWeek, e.Type)

	for _, bad := range []string{"", "month", "month:", "daily:2026-02-21"} {
		_, err := ParseEntry(bad)
		assert.Error(t, err, "ParseEntry(%q)", bad)
	}
}

func TestMarkIsIdempotentAndPersistsImmediately(t *testing.T) {
	p := &memPersister{}
	q := New(p)

	require.NoError(t, q.Mark(TypeMonth, "2026-02"))
	require.NoError(t, q.Mark(TypeMonth, "2026-02"))
	require.NoError(t, q.Mark(TypeWeek, "2026-W08"))

	assert.Equal(t, 2, q.Len())
	assert.Equal(t, []string{"month:2026-02", "week:2026-W08"}, p.tokens)
	assert.Equal(t, 3, p.saves)
}

func TestMarkKeepsEntryWhenSaveFails(t *testing.T) {
	p := &memPersister{saveErr: errors.New("quota exceeded")}
	q := New(p)

	err := q.Mark(TypeMonth, "2026-02")
	require.Error(t, err)
	assert.True(t, q.Contains(Entry{Type: TypeMonth, Key: "2026-02"}))
}

func TestMarkRejectsUnknownType(t *testing.T) {
	q := New(&memPersister{})
	assert.Error(t, q.Mark(Type("daily"), "2026-02-21"))
	assert.Equal(t, 0, q.Len())
}

func TestLoadRestoresAcrossRestart(t *testing.T) {
	p := &memPersister{}
	first := New(p)
	require.NoError(t, first.Mark(TypeMonth, "2026-02"))
	require.NoError(t, first.Mark(TypeMonthly, "2026-02"))

	// A fresh process sees the persisted set.
	second := New(p)
	require.NoError(t, second.Load())
	assert.Equal(t, []Entry{
		{Type: TypeMonth, Key: "2026-02"},
		{Type: TypeMonthly, Key: "2026-02"},
	}, second.Snapshot())
}

func TestLoadUnionsWithMemoryAndSkipsMalformed(t *testing.T) {
	p := &memPersister{tokens: []string{"month:2026-01", "bogus", "week:2026-W08"}}
	q := New(&memPersister{saveErr: errors.New("disk full")})
	_ = q.Mark(TypeMonth, "2026-02")
	q.store = p

	err := q.Load()
	require.ErrorIs(t, err, ErrMalformedEntries)
	assert.False(t, IsLoadFailure(err))
	assert.Contains(t, err.Error(), "bogus")
	assert.Equal(t, 3, q.Len())
	assert.True(t, q.Contains(Entry{Type: TypeMonth, Key: "2026-02"}))
}

func TestSaveKeepsUnreadSnapshot(t *testing.T) {
	p := &memPersister{
		tokens:  []string{"month:2026-01"},
		loadErr: errors.New("database is locked"),
	}
	q := New(p)

	err := q.Load()
	require.Error(t, err)
	assert.True(t, IsLoadFailure(err))

	// The entry is kept in memory but the stored set is not replaced.
	require.Error(t, q.Mark(TypeMonth, "2026-02"))
	assert.True(t, q.Contains(Entry{Type: TypeMonth, Key: "2026-02"}))
	require.Error(t, q.Save())
	assert.Equal(t, []string{"month:2026-01"}, p.tokens)
	assert.Equal(t, 0, p.saves)

	p.loadErr = nil
	require.NoError(t, q.Save())
	assert.ElementsMatch(t, []string{"month:2026-01", "month:2026-02"}, p.tokens)
	assert.Equal(t, 2, q.Len())
}

func TestDrainRemovesOnlySuccesses(t *testing.T) {
	p := &memPersister{}
	q := New(p)
	require.NoError(t, q.Mark(TypeMonth, "2026-01"))
	require.NoError(t, q.Mark(TypeMonth, "2026-02"))
	require.NoError(t, q.Mark(TypeWeek, "2026-W08"))

	var visited []string
	failures := q.Drain(context.Background(), func(_ context.Context, e Entry) error {
		visited = append(visited, e.String())
		if e.Key == "2026-02" {
			return errors.New("network down")
		}
		return nil
	})

	assert.Equal(t, []string{"month:2026-01", "month:2026-02", "week:2026-W08"}, visited)
	require.Len(t, failures, 1)
	assert.Equal(t, Entry{Type: TypeMonth, Key: "2026-02"}, failures[0].Entry)
	assert.Equal(t, []Entry{{Type: TypeMonth, Key: "2026-02"}}, q.Snapshot())

	// Drain does not persist on its own.
	assert.Len(t, p.tokens, 3)
	require.NoError(t, q.Save())
	assert.Equal(t, []string{"month:2026-02"}, p.tokens)
}

func TestDrainRecoversFromPanics(t *testing.T) {
	q := New(&memPersister{})
	require.NoError(t, q.Mark(TypeMonth, "2026-01"))
	require.NoError(t, q.Mark(TypeMonth, "2026-02"))

	failures := q.Drain(context.Background(), func(_ context.Context, e Entry) error {
		if e.Key == "2026-01" {
			panic("boom")
		}
		return nil
	})

	require.Len(t, failures, 1)
	assert.Contains(t, failures[0].Err.Error(), "boom")
	assert.Equal(t, []Entry{{Type: TypeMonth, Key: "2026-01"}}, q.Snapshot())
}

func TestDrainKeepsEntryMarkedDuringProcessing(t *testing.T) {
	q := New(&memPersister{})
	require.NoError(t, q.Mark(TypeMonth, "2026-02"))

	failures := q.Drain(context.Background(), func(_ context.Context, e Entry) error {
		// A new edit lands while the old state is being pushed.
		return q.Mark(TypeMonth, "2026-02")
	})

	assert.Empty(t, failures)
	assert.True(t, q.Contains(Entry{Type: TypeMonth, Key: "2026-02"}))

	// The next drain with no further edits clears it.
	failures = q.Drain(context.Background(), func(context.Context, Entry) error { return nil })
	assert.Empty(t, failures)
	assert.Equal(t, 0, q.Len())
}

func TestDrainNParallelIsolation(t *testing.T) {
	q := New(&memPersister{})
	keys := []string{"2025-10", "2025-11", "2025-12", "2026-01", "2026-02"}
	for _, k := range keys {
		require.NoError(t, q.Mark(TypeMonth, k))
	}

	failures := q.DrainN(context.Background(), 3, func(_ context.Context, e Entry) error {
		if e.Key == "2025-11" || e.Key == "2026-01" {
			return errors.New("timeout")
		}
		return nil
	})

	require.Len(t, failures, 2)
	assert.Equal(t, "2025-11", failures[0].Entry.Key)
	assert.Equal(t, "2026-01", failures[1].Entry.Key)
	assert.Equal(t, 2, q.Len())
}

func TestDrainStopsDispatchingWhenCancelled(t *testing.T) {
	q := New(&memPersister{})
	require.NoError(t, q.Mark(TypeMonth, "2026-01"))
	require.NoError(t, q.Mark(TypeMonth, "2026-02"))

	ctx, cancel := context.WithCancel(context.Background())
	failures := q.Drain(ctx, func(context.Context, Entry) error {
		cancel()
		return nil
	})

	require.Len(t, failures, 1)
	assert.ErrorIs(t, failures[0].Err, context.Canceled)
	assert.Equal(t, []Entry{{Type: TypeMonth, Key: "2026-02"}}, q.Snapshot())
}
