package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/julianstephens/daylog/internal/constants"
	"github.com/julianstephens/daylog/internal/logger"
	"github.com/julianstephens/daylog/internal/models"
	"github.com/julianstephens/daylog/internal/utils"
	"github.com/julianstephens/daylog/internal/validation"
)

// DataConfig is the content of ConfigPath.
type DataConfig struct {
	Version   int    `json:"version"`
	CreatedAt string `json:"createdAt"`
}

// Records maps journal records onto a Client. It remembers the last
// revision seen per path and threads it through the next write, so a
// write based on a stale read fails with ErrConflict.
type Records struct {
	client Client
	now    func() time.Time

	mu        sync.Mutex
	revisions map[string]string
}

// NewRecords wraps client.
func NewRecords(client Client) *Records {
	return &Records{
		client:    client,
		now:       time.Now,
		revisions: make(map[string]string),
	}
}

// Client returns the underlying document store.
func (r *Records) Client() Client {
	return r.client
}

// Forget drops the cached revision for path so the next write re-reads it.
func (r *Records) Forget(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.revisions, path)
}

// Revision returns the cached revision for path, or "".
func (r *Records) Revision(path string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.revisions[path]
}

func (r *Records) setRevision(path, rev string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rev == "" {
		delete(r.revisions, path)
		return
	}
	r.revisions[path] = rev
}

// read decodes the document at path into v and caches its revision. It
// reports false when the document does not exist.
func (r *Records) read(ctx context.Context, path string, v interface{}) (bool, error) {
	doc, err := r.client.Read(ctx, path)
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if doc == nil {
		r.setRevision(path, "")
		return false, nil
	}
	r.setRevision(path, doc.Revision)
	if err := json.Unmarshal(doc.Content, v); err != nil {
		return false, fmt.Errorf("%w: %s is not valid JSON: %v", validation.ErrInvalidRecord, path, err)
	}
	return true, nil
}

// write encodes v the way the original repositories were written (two-space
// indent) and stores it at the cached revision.
func (r *Records) write(ctx context.Context, path string, v interface{}, message string) error {
	content, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	rev, err := r.client.Write(ctx, path, content, r.Revision(path), message)
	if err != nil {
		if errors.Is(err, ErrConflict) {
			r.Forget(path)
		}
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	r.setRevision(path, rev)
	return nil
}

// EnsureStructure creates the config marker when the store is empty.
func (r *Records) EnsureStructure(ctx context.Context) error {
	var cfg DataConfig
	ok, err := r.read(ctx, ConfigPath, &cfg)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	cfg = DataConfig{Version: constants.RemoteDataVersion, CreatedAt: utils.FormatInstant(r.now())}
	err = r.write(ctx, ConfigPath, cfg, "Initialize data structure")
	if errors.Is(err, ErrConflict) {
		// Another device initialized it first.
		logger.Debug("Data structure created concurrently", "path", ConfigPath)
		return nil
	}
	return err
}

// FetchMonth returns the remote month, or an empty one when absent.
func (r *Records) FetchMonth(ctx context.Context, monthKey string) (models.MonthRecord, error) {
	var m models.MonthRecord
	ok, err := r.read(ctx, MonthPath(monthKey), &m)
	if err != nil {
		return models.MonthRecord{}, err
	}
	if !ok {
		return models.NewMonthRecord(monthKey), nil
	}
	if m.Month == "" {
		m.Month = monthKey
	}
	m.Normalize()
	if m.Month != monthKey {
		return models.MonthRecord{}, fmt.Errorf("%w: %s holds month %q", validation.ErrInvalidRecord, MonthPath(monthKey), m.Month)
	}
	if vr := validation.CheckMonthStructure(m); vr.HasIssues() {
		return models.MonthRecord{}, vr.Err()
	}
	return m, nil
}

// PushMonth writes m in a single document write.
func (r *Records) PushMonth(ctx context.Context, m models.MonthRecord) error {
	return r.write(ctx, MonthPath(m.Month), m, fmt.Sprintf("Update %s entries", m.Month))
}

// FetchWeekSummary returns the remote summary, or nil when absent.
func (r *Records) FetchWeekSummary(ctx context.Context, weekKey string) (*models.WeekSummary, error) {
	var s models.WeekSummary
	ok, err := r.read(ctx, WeekPath(weekKey), &s)
	if err != nil || !ok {
		return nil, err
	}
	if s.Week == "" {
		s.Week = weekKey
	}
	if vr := validation.CheckWeekSummaryStructure(s); vr.HasIssues() {
		return nil, vr.Err()
	}
	if vr := validation.ValidateWeekSummary(s); vr.HasIssues() {
		logger.Warn("Remote week summary has problems", "week", weekKey, "error", vr.Err())
	}
	return &s, nil
}

// PushWeekSummary writes s.
func (r *Records) PushWeekSummary(ctx context.Context, s models.WeekSummary) error {
	return r.write(ctx, WeekPath(s.Week), s, fmt.Sprintf("Update week %s summary", s.Week))
}

// FetchMonthSummary returns the remote summary, or nil when absent.
func (r *Records) FetchMonthSummary(ctx context.Context, monthKey string) (*models.MonthSummary, error) {
	var s models.MonthSummary
	ok, err := r.read(ctx, MonthSummaryPath(monthKey), &s)
	if err != nil || !ok {
		return nil, err
	}
	if s.Month == "" {
		s.Month = monthKey
	}
	if vr := validation.CheckMonthSummaryStructure(s); vr.HasIssues() {
		return nil, vr.Err()
	}
	if vr := validation.ValidateMonthSummary(s); vr.HasIssues() {
		logger.Warn("Remote month summary has problems", "month", monthKey, "error", vr.Err())
	}
	return &s, nil
}

// PushMonthSummary writes s.
func (r *Records) PushMonthSummary(ctx context.Context, s models.MonthSummary) error {
	return r.write(ctx, MonthSummaryPath(s.Month), s, fmt.Sprintf("Update %s summary", s.Month))
}
