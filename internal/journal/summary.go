package journal

import (
	"fmt"
	"time"

	"github.com/julianstephens/daylog/internal/models"
	"github.com/julianstephens/daylog/internal/queue"
	"github.com/julianstephens/daylog/internal/stats"
	"github.com/julianstephens/daylog/internal/utils"
	"github.com/julianstephens/daylog/internal/validation"
)

// daySource reads days from cached months, loading each month once.
func (j *Journal) daySource() stats.DaySource {
	months := map[string]models.MonthRecord{}
	return func(dayKey string) (models.DayRecord, bool, error) {
		monthKey, err := utils.MonthKeyOfDay(dayKey)
		if err != nil {
			return models.DayRecord{}, false, err
		}
		m, ok := months[monthKey]
		if !ok {
			m, err = j.cache.Month(monthKey)
			if err != nil {
				return models.DayRecord{}, false, err
			}
			months[monthKey] = m
		}
		d, ok := m.Entries[dayKey]
		return d, ok, nil
	}
}

// WeekStats aggregates the ISO week containing date.
func (j *Journal) WeekStats(date time.Time) (stats.PeriodStats, error) {
	return stats.ComputeWeek(date.In(j.loc), j.daySource())
}

// MonthStats aggregates the month containing date up to today.
func (j *Journal) MonthStats(date time.Time) (stats.PeriodStats, error) {
	return stats.ComputeMonth(date.In(j.loc), j.Now(), j.daySource())
}

// WeekSummary returns the summary for the week containing date with its
// stats snapshot recomputed from the day records. The recomputed snapshot
// is not stored until the summary is saved.
func (j *Journal) WeekSummary(date time.Time) (models.WeekSummary, error) {
	date = date.In(j.loc)
	s, err := j.cache.WeekSummary(utils.WeekKey(date))
	if err != nil {
		return models.WeekSummary{}, err
	}
	ps, err := j.WeekStats(date)
	if err != nil {
		return models.WeekSummary{}, fmt.Errorf("failed to compute week stats: %w", err)
	}
	s.DateRange = utils.FormatWeekRange(date)
	stats.ApplyToWeek(&s, ps)
	return s, nil
}

// MonthSummary returns the summary for the month containing date with
// trends recomputed against the previous month.
func (j *Journal) MonthSummary(date time.Time) (models.MonthSummary, error) {
	date = date.In(j.loc)
	s, err := j.cache.MonthSummary(utils.MonthKey(date))
	if err != nil {
		return models.MonthSummary{}, err
	}
	src := j.daySource()
	cur, err := stats.ComputeMonth(date, j.Now(), src)
	if err != nil {
		return models.MonthSummary{}, fmt.Errorf("failed to compute month stats: %w", err)
	}
	prev, err := stats.ComputeMonth(utils.AddMonths(date, -1), j.Now(), src)
	if err != nil {
		return models.MonthSummary{}, fmt.Errorf("failed to compute previous month stats: %w", err)
	}
	stats.ApplyToMonth(&s, cur, prev)
	return s, nil
}

// SaveWeekSummary stores s and marks it for sync.
func (j *Journal) SaveWeekSummary(s models.WeekSummary) error {
	if vr := validation.ValidateWeekSummary(s); vr.HasIssues() {
		return vr.Err()
	}
	if err := j.cache.SaveWeekSummary(s); err != nil {
		return fmt.Errorf("failed to save week %s: %w", s.Week, err)
	}
	return j.queue.Mark(queue.TypeWeek, s.Week)
}

// SaveMonthSummary stores s and marks it for sync.
func (j *Journal) SaveMonthSummary(s models.MonthSummary) error {
	if vr := validation.ValidateMonthSummary(s); vr.HasIssues() {
		return vr.Err()
	}
	if err := j.cache.SaveMonthSummary(s); err != nil {
		return fmt.Errorf("failed to save month summary %s: %w", s.Month, err)
	}
	return j.queue.Mark(queue.TypeMonthly, s.Month)
}
