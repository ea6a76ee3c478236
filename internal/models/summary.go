package models

import (
	"time"

	"github.com/julianstephens/daylog/internal/utils"
)

// Trend is the direction a metric moved compared with the previous period.
type Trend string

const (
	TrendStable    Trend = "stable"
	TrendImproving Trend = "improving"
	TrendDeclining Trend = "declining"
)

type WeekSleepStats struct {
	AvgDuration string  `json:"avgDuration"`
	AvgQuality  float64 `json:"avgQuality"`
	AvgBedTime  string  `json:"avgBedTime"`
	AvgWakeTime string  `json:"avgWakeTime"`
}

type WeekExerciseStats struct {
	DaysActive    int    `json:"daysActive"`
	TotalDuration string `json:"totalDuration"`
	// Breakdown maps activity name to the number of days it was logged.
	Breakdown map[string]int `json:"breakdown"`
}

// WeekSummary is the narrative plus stats snapshot for one ISO week.
// The stats are recomputed from day records whenever the week is viewed.
type WeekSummary struct {
	Week          string            `json:"week"`
	DateRange     string            `json:"dateRange"`
	Summary       string            `json:"summary"`
	Highlights    string            `json:"highlights"`
	Sleep         WeekSleepStats    `json:"sleep"`
	Exercise      WeekExerciseStats `json:"exercise"`
	AvgEnergy     float64           `json:"avgEnergy"`
	AvgMood       float64           `json:"avgMood"`
	Learnings     string            `json:"learnings"`
	NextWeekFocus string            `json:"nextWeekFocus"`
	AIGenerated   bool              `json:"aiGenerated"`
	UpdatedAt     string            `json:"updatedAt"`
}

// NewWeekSummary returns an empty summary for the week containing day.
func NewWeekSummary(day time.Time, now time.Time) WeekSummary {
	return WeekSummary{
		Week:      utils.WeekKey(day),
		DateRange: utils.FormatWeekRange(day),
		Exercise:  WeekExerciseStats{Breakdown: map[string]int{}},
		UpdatedAt: utils.FormatInstant(now),
	}
}

// UpdatedTime returns UpdatedAt as an instant, or the epoch when unset.
func (w WeekSummary) UpdatedTime() time.Time {
	return utils.ParseInstant(w.UpdatedAt)
}

type SleepTrends struct {
	AvgDuration  string  `json:"avgDuration"`
	AvgQuality   float64 `json:"avgQuality"`
	QualityTrend Trend   `json:"qualityTrend"`
	AvgBedTime   string  `json:"avgBedTime"`
}

type ExerciseTrends struct {
	DaysActive    int      `json:"daysActive"`
	TotalDuration string   `json:"totalDuration"`
	TopActivities []string `json:"topActivities"`
	Trend         Trend    `json:"trend"`
}

// MonthSummary is the narrative plus trend snapshot for one calendar month.
type MonthSummary struct {
	Month          string         `json:"month"`
	Summary        string         `json:"summary"`
	Achievements   string         `json:"achievements"`
	SleepTrends    SleepTrends    `json:"sleepTrends"`
	ExerciseTrends ExerciseTrends `json:"exerciseTrends"`
	EnergyTrend    Trend          `json:"energyTrend"`
	MoodTrend      Trend          `json:"moodTrend"`
	Reflections    string         `json:"reflections"`
	NextMonthGoals string         `json:"nextMonthGoals"`
	AIGenerated    bool           `json:"aiGenerated"`
	UpdatedAt      string         `json:"updatedAt"`
}

// NewMonthSummary returns an empty summary for monthKey.
func NewMonthSummary(monthKey string, now time.Time) MonthSummary {
	return MonthSummary{
		Month:          monthKey,
		SleepTrends:    SleepTrends{QualityTrend: TrendStable},
		ExerciseTrends: ExerciseTrends{TopActivities: []string{}, Trend: TrendStable},
		EnergyTrend:    TrendStable,
		MoodTrend:      TrendStable,
		UpdatedAt:      utils.FormatInstant(now),
	}
}

// UpdatedTime returns UpdatedAt as an instant, or the epoch when unset.
func (m MonthSummary) UpdatedTime() time.Time {
	return utils.ParseInstant(m.UpdatedAt)
}
