package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestNewDayRecordIsEmpty(t *testing.T) {
	now := time.Date(2026, 2, 21, 9, 0, 0, 0, time.UTC)
	d := NewDayRecord(now)

	if !d.IsBlank() {
		t.Error("NewDayRecord() should be blank")
	}
	if d.Tasks == nil || d.Exercise == nil {
		t.Error("NewDayRecord() should have non-nil slices")
	}
	if !d.UpdatedTime().Equal(now) {
		t.Errorf("UpdatedTime() = %v, want %v", d.UpdatedTime(), now)
	}
}

func TestRemoveTaskLeavesLinksDangling(t *testing.T) {
	d := DayRecord{Tasks: []Task{
		{ID: "a", Text: "write report"},
		{ID: "b", Text: "send report", LinkedTaskID: "a"},
	}}

	if !d.RemoveTask("a") {
		t.Fatal("RemoveTask(\"a\") = false, want true")
	}
	if len(d.Tasks) != 1 {
		t.Fatalf("len(Tasks) = %d, want 1", len(d.Tasks))
	}
	if d.Tasks[0].ID != "b" || d.Tasks[0].LinkedTaskID != "a" {
		t.Errorf("remaining task = %+v, want b still linked to a", d.Tasks[0])
	}
	if d.RemoveTask("missing") {
		t.Error("RemoveTask(\"missing\") = true, want false")
	}
}

func TestRemoveExercise(t *testing.T) {
	d := DayRecord{Exercise: []Exercise{{Name: "run"}, {Name: "yoga"}, {Name: "swim"}}}

	if !d.RemoveExercise(1) {
		t.Fatal("RemoveExercise(1) = false")
	}
	if len(d.Exercise) != 2 || d.Exercise[0].Name != "run" || d.Exercise[1].Name != "swim" {
		t.Errorf("Exercise = %+v", d.Exercise)
	}
	if d.RemoveExercise(5) {
		t.Error("RemoveExercise(5) should fail")
	}
}

func TestMonthCloneIsIndependent(t *testing.T) {
	sched := "09:00"
	m := NewMonthRecord("2026-02")
	m.Entries["2026-02-21"] = DayRecord{Tasks: []Task{{ID: "a", ScheduledTime: &sched}}}

	c := m.Clone()
	day := c.Entries["2026-02-21"]
	*day.Tasks[0].ScheduledTime = "10:00"
	day.Tasks[0].Text = "changed"

	orig := m.Entries["2026-02-21"]
	if *orig.Tasks[0].ScheduledTime != "09:00" || orig.Tasks[0].Text != "" {
		t.Errorf("Clone() shares state with the original: %+v", orig.Tasks[0])
	}
}

func TestNormalizeSparseJSON(t *testing.T) {
	var m MonthRecord
	if err := json.Unmarshal([]byte(`{"month":"2026-02","entries":{"2026-02-01":{"work":"x"}}}`), &m); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	m.Normalize()

	out, err := json.Marshal(m.Entries["2026-02-01"])
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(out, &raw); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if string(raw["tasks"]) != "[]" || string(raw["exercise"]) != "[]" {
		t.Errorf("normalized day encodes tasks=%s exercise=%s, want []", raw["tasks"], raw["exercise"])
	}
}

func TestDayKeysSorted(t *testing.T) {
	m := NewMonthRecord("2026-02")
	m.Entries["2026-02-21"] = DayRecord{}
	m.Entries["2026-02-03"] = DayRecord{}
	m.Entries["2026-02-10"] = DayRecord{}

	keys := m.DayKeys()
	want := []string{"2026-02-03", "2026-02-10", "2026-02-21"}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("DayKeys() = %v, want %v", keys, want)
		}
	}
}

func TestEnumsAndDefaults(t *testing.T) {
	if !ProgressHalfDone.Valid() || Progress("started").Valid() {
		t.Error("Progress.Valid() misclassifies values")
	}
	if !IntensityHigh.Valid() || Intensity("extreme").Valid() {
		t.Error("Intensity.Valid() misclassifies values")
	}

	now := time.Date(2026, 2, 21, 9, 0, 0, 0, time.UTC)
	w := NewWeekSummary(now, now)
	if w.Week != "2026-W08" || w.DateRange != "Feb 16 - Feb 22, 2026" {
		t.Errorf("NewWeekSummary() = %+v", w)
	}
	ms := NewMonthSummary("2026-02", now)
	if ms.EnergyTrend != TrendStable || ms.SleepTrends.QualityTrend != TrendStable {
		t.Errorf("NewMonthSummary() trends = %+v", ms)
	}

	var cfg Config
	if cfg.EffectiveBackend() != BackendGitHub || !cfg.AutoSyncEnabled() || cfg.HasRemote() {
		t.Errorf("zero Config defaults unexpected: %+v", cfg)
	}
}
