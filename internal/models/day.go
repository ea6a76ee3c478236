package models

import (
	"time"

	"github.com/julianstephens/daylog/internal/utils"
)

// Progress is a task's completion state.
type Progress string

// Intensity is an exercise's effort level.
type Intensity string

const (
	ProgressNotStarted Progress = "not-started"
	ProgressHalfDone   Progress = "half-done"
	ProgressDone       Progress = "done"

	IntensityLow    Intensity = "low"
	IntensityMedium Intensity = "medium"
	IntensityHigh   Intensity = "high"
)

// Valid reports whether p is a known progress state.
func (p Progress) Valid() bool {
	switch p {
	case ProgressNotStarted, ProgressHalfDone, ProgressDone:
		return true
	}
	return false
}

// Valid reports whether i is a known intensity.
func (i Intensity) Valid() bool {
	switch i {
	case IntensityLow, IntensityMedium, IntensityHigh:
		return true
	}
	return false
}

type Task struct {
	ID            string   `json:"id"`
	Text          string   `json:"text"`
	ScheduledTime *string  `json:"scheduledTime"`
	ExpectedTime  *string  `json:"expectedTime"`
	Progress      Progress `json:"progress"`
	// Planned is true when the task was added before local noon.
	Planned bool   `json:"planned"`
	Comment string `json:"comment"`
	// LinkedTaskID references another task in the same day. Deleting the
	// target leaves the reference dangling.
	LinkedTaskID string `json:"linkedTaskId,omitempty"`
	CreatedAt    string `json:"createdAt"`
}

type Exercise struct {
	Name      string    `json:"name"`
	Duration  string    `json:"duration"`
	Intensity Intensity `json:"intensity"`
	Comment   string    `json:"comment"`
}

type Sleep struct {
	BedTime  string `json:"bedTime"`
	WakeTime string `json:"wakeTime"`
	Quality  int    `json:"quality"`
	Comment  string `json:"comment"`
}

type Mental struct {
	Mood  int    `json:"mood"`
	Notes string `json:"notes"`
}

// DayRecord is a single day's journal entry. It is only ever stored inside
// its MonthRecord.
type DayRecord struct {
	Tasks     []Task     `json:"tasks"`
	Work      string     `json:"work"`
	Sleep     Sleep      `json:"sleep"`
	Exercise  []Exercise `json:"exercise"`
	Energy    int        `json:"energy"`
	Mental    Mental     `json:"mental"`
	Freeform  string     `json:"freeform"`
	UpdatedAt string     `json:"updatedAt"`
}

// NewDayRecord returns an empty day stamped at now.
func NewDayRecord(now time.Time) DayRecord {
	return DayRecord{
		Tasks:     []Task{},
		Exercise:  []Exercise{},
		UpdatedAt: utils.FormatInstant(now),
	}
}

// UpdatedTime returns UpdatedAt as an instant, or the epoch when unset.
func (d DayRecord) UpdatedTime() time.Time {
	return utils.ParseInstant(d.UpdatedAt)
}

// IsBlank reports whether the day has no tasks, no work notes and no bed time.
func (d DayRecord) IsBlank() bool {
	return len(d.Tasks) == 0 && d.Work == "" && d.Sleep.BedTime == ""
}

// TaskIndex returns the position of the task with the given id, or -1.
func (d DayRecord) TaskIndex(id string) int {
	for i, t := range d.Tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// RemoveTask deletes the task with the given id. Tasks linking to it are
// left untouched.
func (d *DayRecord) RemoveTask(id string) bool {
	i := d.TaskIndex(id)
	if i < 0 {
		return false
	}
	d.Tasks = append(d.Tasks[:i:i], d.Tasks[i+1:]...)
	return true
}

// RemoveExercise deletes the exercise at position i.
func (d *DayRecord) RemoveExercise(i int) bool {
	if i < 0 || i >= len(d.Exercise) {
		return false
	}
	d.Exercise = append(d.Exercise[:i:i], d.Exercise[i+1:]...)
	return true
}

// Clone returns a deep copy of d.
func (d DayRecord) Clone() DayRecord {
	c := d
	c.Tasks = make([]Task, len(d.Tasks))
	for i, t := range d.Tasks {
		c.Tasks[i] = t
		if t.ScheduledTime != nil {
			v := *t.ScheduledTime
			c.Tasks[i].ScheduledTime = &v
		}
		if t.ExpectedTime != nil {
			v := *t.ExpectedTime
			c.Tasks[i].ExpectedTime = &v
		}
	}
	c.Exercise = append([]Exercise{}, d.Exercise...)
	return c
}
