package validation

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/julianstephens/daylog/internal/constants"
	"github.com/julianstephens/daylog/internal/models"
	"github.com/julianstephens/daylog/internal/utils"
)

// ErrInvalidRecord is wrapped by every error returned from ValidationResult.Err.
var ErrInvalidRecord = errors.New("invalid record")

// IssueType classifies a validation issue
type IssueType string

const (
	IssueInvalidKey       IssueType = "invalid_key"
	IssueKeyOutsideMonth  IssueType = "key_outside_month"
	IssueOutOfRange       IssueType = "out_of_range"
	IssueInvalidTime      IssueType = "invalid_time"
	IssueInvalidEnum      IssueType = "invalid_enum"
	IssueMissingTaskID    IssueType = "missing_task_id"
	IssueDuplicateTaskID  IssueType = "duplicate_task_id"
	IssueEmptyTaskText    IssueType = "empty_task_text"
	IssueEmptyExercise    IssueType = "empty_exercise_name"
	IssueSelfLinkedTask   IssueType = "self_linked_task"
	IssueInvalidTimestamp IssueType = "invalid_timestamp"
)

// Issue is a single problem found in a record
type Issue struct {
	Type        IssueType
	Key         string // day/week/month key the issue belongs to
	Description string
}

// ValidationResult collects every issue found in a record
type ValidationResult struct {
	Issues []Issue
}

// HasIssues returns true if any issue was found
func (vr *ValidationResult) HasIssues() bool {
	return len(vr.Issues) > 0
}

// FormatReport returns a human-readable report of all issues
func (vr *ValidationResult) FormatReport() string {
	if !vr.HasIssues() {
		return "No issues detected."
	}
	var b strings.Builder
	b.WriteString("Issues detected:\n")
	for _, issue := range vr.Issues {
		fmt.Fprintf(&b, "- %s: %s\n", issue.Key, issue.Description)
	}
	return b.String()
}

// Err returns nil when there are no issues, otherwise an error wrapping
// ErrInvalidRecord that names the first issue.
func (vr *ValidationResult) Err() error {
	if !vr.HasIssues() {
		return nil
	}
	first := vr.Issues[0]
	if len(vr.Issues) == 1 {
		return fmt.Errorf("%w: %s: %s", ErrInvalidRecord, first.Key, first.Description)
	}
	return fmt.Errorf("%w: %s: %s (and %d more)", ErrInvalidRecord, first.Key, first.Description, len(vr.Issues)-1)
}

func (vr *ValidationResult) add(t IssueType, key, format string, args ...interface{}) {
	vr.Issues = append(vr.Issues, Issue{Type: t, Key: key, Description: fmt.Sprintf(format, args...)})
}

func (vr *ValidationResult) merge(other ValidationResult) {
	vr.Issues = append(vr.Issues, other.Issues...)
}

// ValidateDay checks field ranges, clock formats, enums and task identity.
// A linkedTaskId that names no task in the day is allowed.
func ValidateDay(dayKey string, d models.DayRecord) ValidationResult {
	var vr ValidationResult

	if _, err := time.Parse(constants.DateFormat, dayKey); err != nil {
		vr.add(IssueInvalidKey, dayKey, "day key must be YYYY-MM-DD")
	}

	checkScale(&vr, dayKey, "energy", d.Energy)
	checkScale(&vr, dayKey, "mood", d.Mental.Mood)
	checkScale(&vr, dayKey, "sleep quality", d.Sleep.Quality)
	checkClock(&vr, dayKey, "bed time", d.Sleep.BedTime)
	checkClock(&vr, dayKey, "wake time", d.Sleep.WakeTime)

	seen := make(map[string]bool, len(d.Tasks))
	for i, task := range d.Tasks {
		if task.ID == "" {
			vr.add(IssueMissingTaskID, dayKey, "task %d has no id", i+1)
			continue
		}
		if seen[task.ID] {
			vr.add(IssueDuplicateTaskID, dayKey, "task id %s is used more than once", task.ID)
		}
		seen[task.ID] = true

		if strings.TrimSpace(task.Text) == "" {
			vr.add(IssueEmptyTaskText, dayKey, "task %s has no text", task.ID)
		}
		if !task.Progress.Valid() {
			vr.add(IssueInvalidEnum, dayKey, "task %s has unknown progress %q", task.ID, task.Progress)
		}
		if task.ScheduledTime != nil {
			checkClock(&vr, dayKey, "scheduled time of task "+task.ID, *task.ScheduledTime)
		}
		if task.LinkedTaskID == task.ID {
			vr.add(IssueSelfLinkedTask, dayKey, "task %s links to itself", task.ID)
		}
	}

	for i, ex := range d.Exercise {
		if strings.TrimSpace(ex.Name) == "" {
			vr.add(IssueEmptyExercise, dayKey, "exercise %d has no name", i+1)
		}
		if ex.Intensity != "" && !ex.Intensity.Valid() {
			vr.add(IssueInvalidEnum, dayKey, "exercise %d has unknown intensity %q", i+1, ex.Intensity)
		}
	}

	return vr
}

// ValidateMonth checks the month key, that every entry belongs to the month,
// and every day's fields.
func ValidateMonth(m models.MonthRecord) ValidationResult {
	vr := CheckMonthStructure(m)
	for _, key := range m.DayKeys() {
		vr.merge(ValidateDay(key, m.Entries[key]))
	}
	return vr
}

// CheckMonthStructure verifies only the month key and entry membership.
// Records crossing the remote or cache boundary must pass it.
func CheckMonthStructure(m models.MonthRecord) ValidationResult {
	var vr ValidationResult
	if _, err := time.Parse(constants.MonthFormat, m.Month); err != nil {
		vr.add(IssueInvalidKey, m.Month, "month key must be YYYY-MM")
		return vr
	}
	for _, key := range m.DayKeys() {
		monthKey, err := utils.MonthKeyOfDay(key)
		if err != nil {
			vr.add(IssueInvalidKey, key, "day key must be YYYY-MM-DD")
			continue
		}
		if monthKey != m.Month {
			vr.add(IssueKeyOutsideMonth, key, "day does not belong to month %s", m.Month)
		}
	}
	return vr
}

// CheckWeekSummaryStructure verifies only the week key. Summaries crossing
// the remote boundary must pass it; a bad timestamp there counts as the
// epoch rather than rejecting the record.
func CheckWeekSummaryStructure(s models.WeekSummary) ValidationResult {
	var vr ValidationResult
	if _, err := utils.ParseWeekKey(s.Week, time.UTC); err != nil {
		vr.add(IssueInvalidKey, s.Week, "week key must be YYYY-Www")
	}
	return vr
}

// CheckMonthSummaryStructure verifies only the month key.
func CheckMonthSummaryStructure(s models.MonthSummary) ValidationResult {
	var vr ValidationResult
	if _, err := time.Parse(constants.MonthFormat, s.Month); err != nil {
		vr.add(IssueInvalidKey, s.Month, "month key must be YYYY-MM")
	}
	return vr
}

// ValidateWeekSummary checks the week key and timestamp.
func ValidateWeekSummary(s models.WeekSummary) ValidationResult {
	var vr ValidationResult
	if _, err := utils.ParseWeekKey(s.Week, time.UTC); err != nil {
		vr.add(IssueInvalidKey, s.Week, "week key must be YYYY-Www")
	}
	checkTimestamp(&vr, s.Week, s.UpdatedAt)
	return vr
}

// ValidateMonthSummary checks the month key, trend values and timestamp.
func ValidateMonthSummary(s models.MonthSummary) ValidationResult {
	var vr ValidationResult
	if _, err := time.Parse(constants.MonthFormat, s.Month); err != nil {
		vr.add(IssueInvalidKey, s.Month, "month key must be YYYY-MM")
	}
	for name, trend := range map[string]models.Trend{
		"sleep quality": s.SleepTrends.QualityTrend,
		"exercise":      s.ExerciseTrends.Trend,
		"energy":        s.EnergyTrend,
		"mood":          s.MoodTrend,
	} {
		switch trend {
		case "", models.TrendStable, models.TrendImproving, models.TrendDeclining:
		default:
			vr.add(IssueInvalidEnum, s.Month, "%s trend %q is not recognized", name, trend)
		}
	}
	checkTimestamp(&vr, s.Month, s.UpdatedAt)
	return vr
}

func checkScale(vr *ValidationResult, key, field string, v int) {
	if v < 0 || v > 10 {
		vr.add(IssueOutOfRange, key, "%s must be between 0 and 10, got %d", field, v)
	}
}

func checkClock(vr *ValidationResult, key, field, v string) {
	if v == "" {
		return
	}
	if err := utils.ValidateTimeFormat(v); err != nil {
		vr.add(IssueInvalidTime, key, "%s: %v", field, err)
	}
}

func checkTimestamp(vr *ValidationResult, key, v string) {
	if v == "" {
		return
	}
	if utils.ParseInstant(v).Equal(time.Unix(0, 0)) && !strings.HasPrefix(v, "1970-01-01") {
		vr.add(IssueInvalidTimestamp, key, "updatedAt %q is not an ISO-8601 timestamp", v)
	}
}
