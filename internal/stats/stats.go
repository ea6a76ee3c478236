package stats

import (
	"math"
	"sort"
	"time"

	"github.com/julianstephens/daylog/internal/models"
	"github.com/julianstephens/daylog/internal/utils"
)

// TrendThreshold is the minimum change in an average that counts as movement.
const TrendThreshold = 0.5

// PeriodStats aggregates a run of day records. Averages are zero when no
// day in the period recorded the value.
type PeriodStats struct {
	DaysTracked int

	AvgSleepMinutes int
	SleepSamples    int
	AvgSleepQuality float64
	AvgBedTime      string
	AvgWakeTime     string

	AvgEnergy float64
	AvgMood   float64

	ExerciseDays    int
	ExerciseMinutes int
	// Activities maps exercise name to the number of days it was logged.
	Activities map[string]int

	TasksDone  int
	TasksTotal int
}

type mean struct {
	sum float64
	n   int
}

func (m *mean) add(v int) {
	if v == 0 {
		return
	}
	m.sum += float64(v)
	m.n++
}

func (m mean) value() float64 {
	if m.n == 0 {
		return 0
	}
	return round1(m.sum / float64(m.n))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// Compute aggregates days. Zero-valued scales count as not recorded.
func Compute(days []models.DayRecord) PeriodStats {
	ps := PeriodStats{Activities: map[string]int{}}

	var (
		sleep, quality, energy, mood mean
		bedTimes, wakeTimes          []string
	)

	for _, d := range days {
		ps.DaysTracked++

		if mins, ok := utils.SleepMinutes(d.Sleep.BedTime, d.Sleep.WakeTime); ok {
			sleep.add(mins)
			bedTimes = append(bedTimes, d.Sleep.BedTime)
			wakeTimes = append(wakeTimes, d.Sleep.WakeTime)
		}
		quality.add(d.Sleep.Quality)
		energy.add(d.Energy)
		mood.add(d.Mental.Mood)

		if len(d.Exercise) > 0 {
			ps.ExerciseDays++
			seen := map[string]bool{}
			for _, ex := range d.Exercise {
				ps.ExerciseMinutes += utils.ParseDurationMinutes(ex.Duration)
				if ex.Name != "" && !seen[ex.Name] {
					seen[ex.Name] = true
					ps.Activities[ex.Name]++
				}
			}
		}

		ps.TasksTotal += len(d.Tasks)
		for _, t := range d.Tasks {
			if t.Progress == models.ProgressDone {
				ps.TasksDone++
			}
		}
	}

	if sleep.n > 0 {
		ps.AvgSleepMinutes = int(math.Round(sleep.sum / float64(sleep.n)))
		ps.SleepSamples = sleep.n
	}
	ps.AvgSleepQuality = quality.value()
	ps.AvgEnergy = energy.value()
	ps.AvgMood = mood.value()
	ps.AvgBedTime, _ = utils.AverageClock(bedTimes)
	ps.AvgWakeTime, _ = utils.AverageClock(wakeTimes)
	return ps
}

// AvgSleep renders the average sleep duration, or "" when none was logged.
func (ps PeriodStats) AvgSleep() string {
	if ps.SleepSamples == 0 {
		return ""
	}
	return utils.FormatMinutes(ps.AvgSleepMinutes)
}

// TopActivities returns up to n activity names, most frequent first. Ties
// sort by name.
func (ps PeriodStats) TopActivities(n int) []string {
	names := make([]string, 0, len(ps.Activities))
	for name := range ps.Activities {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		ci, cj := ps.Activities[names[i]], ps.Activities[names[j]]
		if ci != cj {
			return ci > cj
		}
		return names[i] < names[j]
	})
	if len(names) > n {
		names = names[:n]
	}
	return names
}

// Direction classifies the change from prev to cur. A missing sample on
// either side is stable.
func Direction(prev, cur float64) models.Trend {
	if prev == 0 || cur == 0 {
		return models.TrendStable
	}
	switch diff := cur - prev; {
	case diff >= TrendThreshold:
		return models.TrendImproving
	case diff <= -TrendThreshold:
		return models.TrendDeclining
	}
	return models.TrendStable
}

// DaySource yields the stored record for a day key, reporting false when
// nothing was logged.
type DaySource func(dayKey string) (models.DayRecord, bool, error)

// ComputeWeek aggregates the seven days of the ISO week containing day.
// Days with no record are skipped.
func ComputeWeek(day time.Time, src DaySource) (PeriodStats, error) {
	var days []models.DayRecord
	for _, d := range utils.WeekDays(day) {
		rec, ok, err := src(utils.DayKey(d))
		if err != nil {
			return PeriodStats{}, err
		}
		if ok {
			days = append(days, rec)
		}
	}
	return Compute(days), nil
}

// ComputeMonth aggregates the month containing day, skipping days after now
// and days with nothing logged.
func ComputeMonth(day time.Time, now time.Time, src DaySource) (PeriodStats, error) {
	today := utils.DayKey(now)
	var days []models.DayRecord
	for _, d := range utils.MonthDays(day) {
		key := utils.DayKey(d)
		if key > today {
			break
		}
		rec, ok, err := src(key)
		if err != nil {
			return PeriodStats{}, err
		}
		if ok && !rec.IsBlank() {
			days = append(days, rec)
		}
	}
	return Compute(days), nil
}

// ApplyToWeek overwrites the stats snapshot of s.
func ApplyToWeek(s *models.WeekSummary, ps PeriodStats) {
	s.Sleep = models.WeekSleepStats{
		AvgDuration: ps.AvgSleep(),
		AvgQuality:  ps.AvgSleepQuality,
		AvgBedTime:  ps.AvgBedTime,
		AvgWakeTime: ps.AvgWakeTime,
	}
	breakdown := make(map[string]int, len(ps.Activities))
	for k, v := range ps.Activities {
		breakdown[k] = v
	}
	s.Exercise = models.WeekExerciseStats{
		DaysActive:    ps.ExerciseDays,
		TotalDuration: utils.FormatMinutes(ps.ExerciseMinutes),
		Breakdown:     breakdown,
	}
	s.AvgEnergy = ps.AvgEnergy
	s.AvgMood = ps.AvgMood
}

// ApplyToMonth overwrites the trend snapshot of s, comparing cur against
// the previous month's stats.
func ApplyToMonth(s *models.MonthSummary, cur, prev PeriodStats) {
	s.SleepTrends = models.SleepTrends{
		AvgDuration:  cur.AvgSleep(),
		AvgQuality:   cur.AvgSleepQuality,
		QualityTrend: Direction(prev.AvgSleepQuality, cur.AvgSleepQuality),
		AvgBedTime:   cur.AvgBedTime,
	}
	s.ExerciseTrends = models.ExerciseTrends{
		DaysActive:    cur.ExerciseDays,
		TotalDuration: utils.FormatMinutes(cur.ExerciseMinutes),
		TopActivities: cur.TopActivities(3),
		Trend:         exerciseDirection(prev, cur),
	}
	s.EnergyTrend = Direction(prev.AvgEnergy, cur.AvgEnergy)
	s.MoodTrend = Direction(prev.AvgMood, cur.AvgMood)
}

// exerciseDirection compares the share of tracked days with exercise.
func exerciseDirection(prev, cur PeriodStats) models.Trend {
	if prev.DaysTracked == 0 || cur.DaysTracked == 0 {
		return models.TrendStable
	}
	p := float64(prev.ExerciseDays) / float64(prev.DaysTracked)
	c := float64(cur.ExerciseDays) / float64(cur.DaysTracked)
	// Scale to days per ten tracked so the shared threshold applies.
	switch diff := (c - p) * 10; {
	case diff >= TrendThreshold:
		return models.TrendImproving
	case diff <= -TrendThreshold:
		return models.TrendDeclining
	}
	return models.TrendStable
}
