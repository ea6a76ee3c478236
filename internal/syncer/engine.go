// Package syncer reconciles the local cache with the remote store.
//
// A pass drains the pending-change queue. Months merge per day by
// updatedAt; week and month summaries are whole-record last-write-wins.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/julianstephens/daylog/internal/cache"
	"github.com/julianstephens/daylog/internal/constants"
	"github.com/julianstephens/daylog/internal/logger"
	"github.com/julianstephens/daylog/internal/models"
	"github.com/julianstephens/daylog/internal/queue"
	"github.com/julianstephens/daylog/internal/remote"
)

// ErrBusy is returned by operations that refuse to overlap a running pass.
var ErrBusy = errors.New("sync already in progress")

// Options tunes a sync pass.
type Options struct {
	// Concurrency is how many queue entries sync at once. Defaults to 1.
	Concurrency int
	// ConflictRetries is how often a write rejected for a stale revision is
	// re-fetched, re-merged and retried. Zero means the default of 3; a
	// negative value disables retries.
	ConflictRetries int
}

// ItemError is one queue entry that failed to sync. Entry is zero for
// failures that are not tied to an entry.
type ItemError struct {
	Entry queue.Entry
	Err   error
}

func (e ItemError) Error() string {
	if e.Entry.Key == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Entry, e.Err)
}

func (e ItemError) Unwrap() error {
	return e.Err
}

// Result describes a finished (or rejected) sync pass.
type Result struct {
	Success bool
	Busy    bool
	Message string
	Synced  int
	Errors  []ItemError
}

// Engine runs sync passes. One pass runs at a time.
type Engine struct {
	cache   *cache.Cache
	queue   *queue.Queue
	records *remote.Records
	opts    Options

	running atomic.Bool
}

// New returns an engine over the given cache, queue and remote records.
func New(c *cache.Cache, q *queue.Queue, r *remote.Records, opts Options) *Engine {
	if opts.Concurrency < 1 {
		opts.Concurrency = constants.DefaultSyncConcurrency
	}
	switch {
	case opts.ConflictRetries == 0:
		opts.ConflictRetries = constants.DefaultConflictRetries
	case opts.ConflictRetries < 0:
		opts.ConflictRetries = 0
	}
	return &Engine{cache: c, queue: q, records: r, opts: opts}
}

// Running reports whether a pass is in progress.
func (e *Engine) Running() bool {
	return e.running.Load()
}

// Sync pushes every queued record. Entries that fail stay queued for the
// next pass; an auth or permission failure stops the pass early, as does a
// queue snapshot that cannot be read. Once entries were processed the queue
// and the last-sync time are saved whatever their outcome.
func (e *Engine) Sync(ctx context.Context) Result {
	if !e.running.CompareAndSwap(false, true) {
		return Result{Busy: true, Message: "Sync already in progress"}
	}
	defer e.running.Store(false)

	if err := e.prepare(ctx); err != nil {
		logger.Error("Sync aborted before processing the queue", "error", err)
		return failed(err)
	}

	if err := e.queue.Load(); err != nil {
		if queue.IsLoadFailure(err) {
			// Saving now would replace entries we never read.
			logger.Error("Sync aborted, pending changes could not be read", "error", err)
			return failed(err)
		}
		logger.Warn("Skipped malformed sync queue entries", "error", err)
	}
	pending := e.queue.Len()
	logger.Info("Sync started", "pending", pending, "concurrency", e.opts.Concurrency)

	passCtx, abort := context.WithCancelCause(ctx)
	defer abort(nil)

	failures := e.queue.DrainN(passCtx, e.opts.Concurrency, func(ctx context.Context, entry queue.Entry) error {
		err := e.syncEntry(ctx, entry)
		if remote.IsFatal(err) {
			abort(err)
		}
		return err
	})

	res := Result{Synced: pending - len(failures)}
	for _, f := range failures {
		err := f.Err
		if ctx.Err() == nil && errors.Is(err, context.Canceled) {
			if cause := context.Cause(passCtx); cause != nil && !errors.Is(cause, context.Canceled) {
				err = fmt.Errorf("skipped: %w", cause)
			}
		}
		logger.Warn("Failed to sync", "item", f.Entry.String(), "error", err)
		res.Errors = append(res.Errors, ItemError{Entry: f.Entry, Err: err})
	}

	if err := e.queue.Save(); err != nil {
		logger.Error("Failed to save sync queue", "error", err)
		res.Errors = append(res.Errors, ItemError{Err: err})
	}
	if err := e.cache.SetLastSync(e.cache.Now()); err != nil {
		logger.Error("Failed to record last sync time", "error", err)
		res.Errors = append(res.Errors, ItemError{Err: err})
	}

	if len(res.Errors) > 0 {
		res.Message = fmt.Sprintf("Sync completed with %d errors", len(res.Errors))
	} else {
		res.Success = true
		res.Message = "Sync completed"
	}
	logger.Info("Sync finished", "synced", res.Synced, "failed", len(res.Errors))
	return res
}

// failed reports a pass that stopped before any entry was processed. The
// cause stays in Errors for the caller to render.
func failed(err error) Result {
	return Result{
		Message: "Sync failed",
		Errors:  []ItemError{{Err: err}},
	}
}

// prepare refreshes a working-tree backend and makes sure the remote data
// layout exists.
func (e *Engine) prepare(ctx context.Context) error {
	if err := e.refresh(ctx); err != nil {
		return err
	}
	return e.records.EnsureStructure(ctx)
}

func (e *Engine) refresh(ctx context.Context) error {
	r, ok := e.records.Client().(remote.Refresher)
	if !ok {
		return nil
	}
	if err := r.Refresh(ctx); err != nil {
		if remote.IsFatal(err) || ctx.Err() != nil {
			return err
		}
		// Local commits still push; a rejected push keeps the entry queued.
		logger.Warn("Failed to refresh from remote", "error", err)
	}
	return nil
}

func (e *Engine) syncEntry(ctx context.Context, entry queue.Entry) error {
	switch entry.Type {
	case queue.TypeMonth:
		return e.SyncMonth(ctx, entry.Key)
	case queue.TypeWeek:
		return e.SyncWeek(ctx, entry.Key)
	case queue.TypeMonthly:
		return e.SyncMonthSummary(ctx, entry.Key)
	}
	return fmt.Errorf("unknown queue entry type %q", entry.Type)
}

// withConflictRetry runs attempt, running it again while the remote rejects
// the write for a stale revision.
func (e *Engine) withConflictRetry(ctx context.Context, path string, attempt func() error) error {
	var err error
	for i := 0; i <= e.opts.ConflictRetries; i++ {
		err = attempt()
		if !errors.Is(err, remote.ErrConflict) {
			return err
		}
		e.records.Forget(path)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logger.Debug("Remote changed during sync, merging again", "path", path, "attempt", i+1)
	}
	return err
}

// SyncMonth merges the local and remote copies of a month, pushes the
// result and stores it locally.
func (e *Engine) SyncMonth(ctx context.Context, monthKey string) error {
	return e.withConflictRetry(ctx, remote.MonthPath(monthKey), func() error {
		local, err := e.cache.Month(monthKey)
		if err != nil {
			return err
		}
		theirs, err := e.records.FetchMonth(ctx, monthKey)
		if err != nil {
			return err
		}

		merged := MergeMonth(local, theirs)
		if err := e.records.PushMonth(ctx, merged); err != nil {
			return err
		}
		return e.cache.PutMonth(merged)
	})
}

// SyncWeek reconciles a week summary. Without a local summary it does
// nothing.
func (e *Engine) SyncWeek(ctx context.Context, weekKey string) error {
	return e.withConflictRetry(ctx, remote.WeekPath(weekKey), func() error {
		local, err := e.cache.LookupWeekSummary(weekKey)
		if err != nil || local == nil {
			return err
		}
		theirs, err := e.records.FetchWeekSummary(ctx, weekKey)
		if err != nil {
			return err
		}

		if theirs == nil || !local.UpdatedTime().Before(theirs.UpdatedTime()) {
			return e.records.PushWeekSummary(ctx, *local)
		}
		return e.cache.PutWeekSummary(*theirs)
	})
}

// SyncMonthSummary reconciles a month summary. Without a local summary it
// does nothing.
func (e *Engine) SyncMonthSummary(ctx context.Context, monthKey string) error {
	return e.withConflictRetry(ctx, remote.MonthSummaryPath(monthKey), func() error {
		local, err := e.cache.LookupMonthSummary(monthKey)
		if err != nil || local == nil {
			return err
		}
		theirs, err := e.records.FetchMonthSummary(ctx, monthKey)
		if err != nil {
			return err
		}

		if theirs == nil || !local.UpdatedTime().Before(theirs.UpdatedTime()) {
			return e.records.PushMonthSummary(ctx, *local)
		}
		return e.cache.PutMonthSummary(*theirs)
	})
}

// Pull brings remote changes for a month into the cache without pushing.
// Local-only days and locally newer days are kept. It returns ErrBusy while
// a sync pass is running.
func (e *Engine) Pull(ctx context.Context, monthKey string) (models.MonthRecord, error) {
	if !e.running.CompareAndSwap(false, true) {
		return models.MonthRecord{}, ErrBusy
	}
	defer e.running.Store(false)

	if err := e.refresh(ctx); err != nil {
		return models.MonthRecord{}, err
	}
	local, err := e.cache.Month(monthKey)
	if err != nil {
		return models.MonthRecord{}, err
	}
	theirs, err := e.records.FetchMonth(ctx, monthKey)
	if err != nil {
		return models.MonthRecord{}, fmt.Errorf("failed to pull %s: %w", monthKey, err)
	}

	merged := PullMonth(local, theirs)
	if err := e.cache.PutMonth(merged); err != nil {
		return models.MonthRecord{}, err
	}
	logger.Debug("Pulled month", "month", monthKey, "days", len(merged.Entries))
	return merged, nil
}
