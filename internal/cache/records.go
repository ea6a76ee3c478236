package cache

import (
	"fmt"

	"github.com/julianstephens/daylog/internal/models"
	"github.com/julianstephens/daylog/internal/utils"
	"github.com/julianstephens/daylog/internal/validation"
)

// Month returns the cached month, or an empty record when none is cached.
func (c *Cache) Month(monthKey string) (models.MonthRecord, error) {
	var m models.MonthRecord
	ok, err := c.GetLocal(prefixMonth+monthKey, &m)
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
	return m, nil
}

// MonthKeys lists every cached month key in ascending order.
func (c *Cache) MonthKeys() ([]string, error) {
	return c.keysWithPrefix(prefixMonth)
}

// WeekSummaryKeys lists every cached week summary key.
func (c *Cache) WeekSummaryKeys() ([]string, error) {
	return c.keysWithPrefix(prefixWeek)
}

// MonthSummaryKeys lists every cached month summary key.
func (c *Cache) MonthSummaryKeys() ([]string, error) {
	return c.keysWithPrefix(prefixMonthly)
}

// PutMonth stores m exactly as given.
func (c *Cache) PutMonth(m models.MonthRecord) error {
	if vr := validation.CheckMonthStructure(m); vr.HasIssues() {
		return vr.Err()
	}
	return c.SetLocal(prefixMonth+m.Month, m)
}

// SaveMonth stamps m.UpdatedAt and stores it.
func (c *Cache) SaveMonth(m models.MonthRecord) error {
	m.UpdatedAt = utils.FormatInstant(c.now())
	return c.PutMonth(m)
}

// Day returns the cached day, or an empty record stamped now.
func (c *Cache) Day(dayKey string) (models.DayRecord, error) {
	monthKey, err := utils.MonthKeyOfDay(dayKey)
	if err != nil {
		return models.DayRecord{}, err
	}
	m, err := c.Month(monthKey)
	if err != nil {
		return models.DayRecord{}, err
	}
	d, ok := m.Entries[dayKey]
	if !ok {
		return models.NewDayRecord(c.now()), nil
	}
	return d, nil
}

// SaveDay stamps d.UpdatedAt, writes it into its month and stores the month.
// It returns the month key that changed.
func (c *Cache) SaveDay(dayKey string, d models.DayRecord) (string, error) {
	monthKey, err := utils.MonthKeyOfDay(dayKey)
	if err != nil {
		return "", err
	}
	m, err := c.Month(monthKey)
	if err != nil {
		return "", err
	}
	d.Normalize()
	d.UpdatedAt = utils.FormatInstant(c.now())
	m.Entries[dayKey] = d
	if err := c.SaveMonth(m); err != nil {
		return "", err
	}
	return monthKey, nil
}

// LookupWeekSummary returns the cached summary, or nil when none exists.
func (c *Cache) LookupWeekSummary(weekKey string) (*models.WeekSummary, error) {
	var s models.WeekSummary
	ok, err := c.GetLocal(prefixWeek+weekKey, &s)
	if err != nil || !ok {
		return nil, err
	}
	return &s, nil
}

// WeekSummary returns the cached summary or an empty one for weekKey.
func (c *Cache) WeekSummary(weekKey string) (models.WeekSummary, error) {
	s, err := c.LookupWeekSummary(weekKey)
	if err != nil {
		return models.WeekSummary{}, err
	}
	if s != nil {
		return *s, nil
	}
	start, err := utils.ParseWeekKey(weekKey, c.now().Location())
	if err != nil {
		return models.WeekSummary{}, err
	}
	return models.NewWeekSummary(start, c.now()), nil
}

// PutWeekSummary stores s exactly as given.
func (c *Cache) PutWeekSummary(s models.WeekSummary) error {
	if s.Week == "" {
		return fmt.Errorf("%w: week summary has no week key", validation.ErrInvalidRecord)
	}
	return c.SetLocal(prefixWeek+s.Week, s)
}

// SaveWeekSummary stamps s.UpdatedAt and stores it.
func (c *Cache) SaveWeekSummary(s models.WeekSummary) error {
	s.UpdatedAt = utils.FormatInstant(c.now())
	return c.PutWeekSummary(s)
}

// LookupMonthSummary returns the cached summary, or nil when none exists.
func (c *Cache) LookupMonthSummary(monthKey string) (*models.MonthSummary, error) {
	var s models.MonthSummary
	ok, err := c.GetLocal(prefixMonthly+monthKey, &s)
	if err != nil || !ok {
		return nil, err
	}
	return &s, nil
}

// MonthSummary returns the cached summary or an empty one for monthKey.
func (c *Cache) MonthSummary(monthKey string) (models.MonthSummary, error) {
	s, err := c.LookupMonthSummary(monthKey)
	if err != nil {
		return models.MonthSummary{}, err
	}
	if s != nil {
		return *s, nil
	}
	return models.NewMonthSummary(monthKey, c.now()), nil
}

// PutMonthSummary stores s exactly as given.
func (c *Cache) PutMonthSummary(s models.MonthSummary) error {
	if s.Month == "" {
		return fmt.Errorf("%w: month summary has no month key", validation.ErrInvalidRecord)
	}
	return c.SetLocal(prefixMonthly+s.Month, s)
}

// SaveMonthSummary stamps s.UpdatedAt and stores it.
func (c *Cache) SaveMonthSummary(s models.MonthSummary) error {
	s.UpdatedAt = utils.FormatInstant(c.now())
	return c.PutMonthSummary(s)
}
