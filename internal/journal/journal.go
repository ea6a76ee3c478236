package journal

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/julianstephens/daylog/internal/cache"
	"github.com/julianstephens/daylog/internal/logger"
	"github.com/julianstephens/daylog/internal/models"
	"github.com/julianstephens/daylog/internal/queue"
	"github.com/julianstephens/daylog/internal/utils"
	"github.com/julianstephens/daylog/internal/validation"
)

var (
	ErrTaskNotFound     = errors.New("task not found")
	ErrExerciseNotFound = errors.New("exercise not found")
)

// Journal applies user edits: each mutation validates the record, stores it
// in the local cache and marks it for sync.
type Journal struct {
	cache *cache.Cache
	queue *queue.Queue
	now   func() time.Time
	loc   *time.Location
}

// New returns a Journal whose wall clock runs in loc.
func New(c *cache.Cache, q *queue.Queue, loc *time.Location) *Journal {
	if loc == nil {
		loc = time.Local
	}
	return &Journal{cache: c, queue: q, now: c.Now, loc: loc}
}

// Now returns the current time in the journal's location.
func (j *Journal) Now() time.Time {
	return j.now().In(j.loc)
}

// Location returns the journal's wall-clock location.
func (j *Journal) Location() *time.Location {
	return j.loc
}

// Day returns the record for dayKey, or an empty one.
func (j *Journal) Day(dayKey string) (models.DayRecord, error) {
	return j.cache.Day(dayKey)
}

// SaveDay validates d, stores it and marks its month for sync. The stored
// record is still kept when marking fails, and the error is returned.
func (j *Journal) SaveDay(dayKey string, d models.DayRecord) error {
	d.Normalize()
	if vr := validation.ValidateDay(dayKey, d); vr.HasIssues() {
		return vr.Err()
	}
	monthKey, err := j.cache.SaveDay(dayKey, d)
	if err != nil {
		return fmt.Errorf("failed to save %s: %w", dayKey, err)
	}
	if err := j.queue.Mark(queue.TypeMonth, monthKey); err != nil {
		logger.Warn("Saved locally but could not queue for sync", "month", monthKey, "error", err)
		return err
	}
	return nil
}

// UpdateDay loads dayKey, applies fn and saves the result. Nothing is
// stored when fn returns an error.
func (j *Journal) UpdateDay(dayKey string, fn func(*models.DayRecord) error) (models.DayRecord, error) {
	d, err := j.cache.Day(dayKey)
	if err != nil {
		return models.DayRecord{}, err
	}
	d = d.Clone()
	if err := fn(&d); err != nil {
		return models.DayRecord{}, err
	}
	if err := j.SaveDay(dayKey, d); err != nil {
		return models.DayRecord{}, err
	}
	return j.cache.Day(dayKey)
}

// TaskInput carries the editable task fields. Nil pointers leave a field
// unchanged on update.
type TaskInput struct {
	Text          *string
	ScheduledTime *string
	ExpectedTime  *string
	Progress      *models.Progress
	Comment       *string
	LinkedTaskID  *string
}

func (in TaskInput) apply(t *models.Task) {
	if in.Text != nil {
		t.Text = strings.TrimSpace(*in.Text)
	}
	if in.ScheduledTime != nil {
		t.ScheduledTime = optional(*in.ScheduledTime)
	}
	if in.ExpectedTime != nil {
		t.ExpectedTime = optional(*in.ExpectedTime)
	}
	if in.Progress != nil {
		t.Progress = *in.Progress
	}
	if in.Comment != nil {
		t.Comment = strings.TrimSpace(*in.Comment)
	}
	if in.LinkedTaskID != nil {
		t.LinkedTaskID = *in.LinkedTaskID
	}
}

// optional maps blank input to a JSON null.
func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// AddTask appends a new task. Tasks created before local noon are planned.
func (j *Journal) AddTask(dayKey string, in TaskInput) (models.Task, error) {
	now := j.Now()
	task := models.Task{
		ID:        uuid.NewString(),
		Progress:  models.ProgressNotStarted,
		Planned:   now.Hour() < 12,
		CreatedAt: utils.FormatInstant(now),
	}
	in.apply(&task)

	_, err := j.UpdateDay(dayKey, func(d *models.DayRecord) error {
		d.Tasks = append(d.Tasks, task)
		return nil
	})
	if err != nil {
		return models.Task{}, err
	}
	return task, nil
}

// UpdateTask edits the task with the given id.
func (j *Journal) UpdateTask(dayKey, id string, in TaskInput) (models.Task, error) {
	var updated models.Task
	_, err := j.UpdateDay(dayKey, func(d *models.DayRecord) error {
		i := d.TaskIndex(id)
		if i < 0 {
			return fmt.Errorf("%w: %s on %s", ErrTaskNotFound, id, dayKey)
		}
		in.apply(&d.Tasks[i])
		updated = d.Tasks[i]
		return nil
	})
	return updated, err
}

// DeleteTask removes the task with the given id. Tasks linking to it keep
// their dangling reference.
func (j *Journal) DeleteTask(dayKey, id string) error {
	_, err := j.UpdateDay(dayKey, func(d *models.DayRecord) error {
		if !d.RemoveTask(id) {
			return fmt.Errorf("%w: %s on %s", ErrTaskNotFound, id, dayKey)
		}
		return nil
	})
	return err
}

// Tasks returns the day's tasks split into planned and unplanned.
func (j *Journal) Tasks(dayKey string) (planned, unplanned []models.Task, err error) {
	d, err := j.cache.Day(dayKey)
	if err != nil {
		return nil, nil, err
	}
	for _, t := range d.Tasks {
		if t.Planned {
			planned = append(planned, t)
		} else {
			unplanned = append(unplanned, t)
		}
	}
	return planned, unplanned, nil
}

// AddExercise appends ex. A blank intensity defaults to medium.
func (j *Journal) AddExercise(dayKey string, ex models.Exercise) error {
	ex = normalizeExercise(ex)
	_, err := j.UpdateDay(dayKey, func(d *models.DayRecord) error {
		d.Exercise = append(d.Exercise, ex)
		return nil
	})
	return err
}

// UpdateExercise replaces the exercise at position i.
func (j *Journal) UpdateExercise(dayKey string, i int, ex models.Exercise) error {
	ex = normalizeExercise(ex)
	_, err := j.UpdateDay(dayKey, func(d *models.DayRecord) error {
		if i < 0 || i >= len(d.Exercise) {
			return fmt.Errorf("%w: #%d on %s", ErrExerciseNotFound, i, dayKey)
		}
		d.Exercise[i] = ex
		return nil
	})
	return err
}

// DeleteExercise removes the exercise at position i.
func (j *Journal) DeleteExercise(dayKey string, i int) error {
	_, err := j.UpdateDay(dayKey, func(d *models.DayRecord) error {
		if !d.RemoveExercise(i) {
			return fmt.Errorf("%w: #%d on %s", ErrExerciseNotFound, i, dayKey)
		}
		return nil
	})
	return err
}

func normalizeExercise(ex models.Exercise) models.Exercise {
	ex.Name = strings.TrimSpace(ex.Name)
	ex.Duration = strings.TrimSpace(ex.Duration)
	ex.Comment = strings.TrimSpace(ex.Comment)
	if ex.Intensity == "" {
		ex.Intensity = models.IntensityMedium
	}
	return ex
}
