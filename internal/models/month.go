package models

import (
	"sort"
	"time"

	"github.com/julianstephens/daylog/internal/utils"
)

// MonthRecord is the unit of sync: every day of one calendar month.
type MonthRecord struct {
	Month     string               `json:"month"`
	Entries   map[string]DayRecord `json:"entries"`
	UpdatedAt string               `json:"updatedAt,omitempty"`
}

// NewMonthRecord returns an empty month with no entries and no timestamp.
func NewMonthRecord(monthKey string) MonthRecord {
	return MonthRecord{
		Month:   monthKey,
		Entries: map[string]DayRecord{},
	}
}

// UpdatedTime returns UpdatedAt as an instant, or the epoch when unset.
func (m MonthRecord) UpdatedTime() time.Time {
	return utils.ParseInstant(m.UpdatedAt)
}

// DayKeys returns the entry keys in ascending order.
func (m MonthRecord) DayKeys() []string {
	keys := make([]string, 0, len(m.Entries))
	for k := range m.Entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a deep copy of m.
func (m MonthRecord) Clone() MonthRecord {
	c := MonthRecord{
		Month:     m.Month,
		UpdatedAt: m.UpdatedAt,
		Entries:   make(map[string]DayRecord, len(m.Entries)),
	}
	for k, d := range m.Entries {
		c.Entries[k] = d.Clone()
	}
	return c
}

// Normalize replaces nil collections left by decoding sparse JSON so that
// records re-encode with empty arrays rather than null.
func (m *MonthRecord) Normalize() {
	if m.Entries == nil {
		m.Entries = map[string]DayRecord{}
	}
	for k, d := range m.Entries {
		d.Normalize()
		m.Entries[k] = d
	}
}

// Normalize replaces nil slices with empty ones.
func (d *DayRecord) Normalize() {
	if d.Tasks == nil {
		d.Tasks = []Task{}
	}
	if d.Exercise == nil {
		d.Exercise = []Exercise{}
	}
}
