package cache

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julianstephens/daylog/internal/models"
	"github.com/julianstephens/daylog/internal/storage"
	"github.com/julianstephens/daylog/internal/utils"
	"github.com/julianstephens/daylog/internal/validation"
)

var fixedNow = time.Date(2026, 2, 21, 9, 30, 0, 0, time.UTC)

func newTestCache(t *testing.T, quota int64) (*Cache, *storage.MemoryStore) {
	t.Helper()
	store := storage.NewMemoryStore(quota)
	return New(store, WithClock(func() time.Time { return fixedNow })), store
}

func TestKeysArePrefixed(t *testing.T) {
	c, store := newTestCache(t, 0)

	require.NoError(t, c.SetLocal("month_2026-02", models.NewMonthRecord("2026-02")))
	_, err := store.Get("tracker_month_2026-02")
	assert.NoError(t, err)
	_, err = store.Get("month_2026-02")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestMonthMissReturnsEmptyRecord(t *testing.T) {
	c, _ := newTestCache(t, 0)

	m, err := c.Month("2026-02")
	require.NoError(t, err)
	assert.Equal(t, "2026-02", m.Month)
	assert.Empty(t, m.Entries)
	assert.NotNil(t, m.Entries)
	assert.Empty(t, m.UpdatedAt)
}

func TestSaveDayStampsDayAndMonth(t *testing.T) {
	c, _ := newTestCache(t, 0)

	d := models.NewDayRecord(time.Unix(0, 0))
	d.Energy = 7
	monthKey, err := c.SaveDay("2026-02-21", d)
	require.NoError(t, err)
	assert.Equal(t, "2026-02", monthKey)

	m, err := c.Month("2026-02")
	require.NoError(t, err)
	require.Contains(t, m.Entries, "2026-02-21")
	assert.Equal(t, 7, m.Entries["2026-02-21"].Energy)
	assert.Equal(t, "2026-02-21T09:30:00.000Z", m.Entries["2026-02-21"].UpdatedAt)
	assert.Equal(t, "2026-02-21T09:30:00.000Z", m.UpdatedAt)

	got, err := c.Day("2026-02-21")
	require.NoError(t, err)
	assert.Equal(t, 7, got.Energy)
}

func TestDayMissIsBlank(t *testing.T) {
	c, _ := newTestCache(t, 0)

	d, err := c.Day("2026-02-20")
	require.NoError(t, err)
	assert.True(t, d.IsBlank())
	assert.Equal(t, "2026-02-21T09:30:00.000Z", d.UpdatedAt)

	_, err = c.Day("not-a-day")
	assert.Error(t, err)
}

func TestPutMonthKeepsTimestampAndRejectsStrayDays(t *testing.T) {
	c, _ := newTestCache(t, 0)

	m := models.NewMonthRecord("2026-02")
	m.UpdatedAt = "2026-02-01T00:00:00.000Z"
	require.NoError(t, c.PutMonth(m))

	got, err := c.Month("2026-02")
	require.NoError(t, err)
	assert.Equal(t, "2026-02-01T00:00:00.000Z", got.UpdatedAt)

	m.Entries["2026-03-01"] = models.NewDayRecord(fixedNow)
	err = c.PutMonth(m)
	assert.ErrorIs(t, err, validation.ErrInvalidRecord)
}

func TestQuotaFailureLeavesOtherKeysIntact(t *testing.T) {
	c, store := newTestCache(t, 200)

	require.NoError(t, c.SaveConfig(models.Config{GitHubOwner: "me", GitHubRepo: "journal"}))

	big := models.NewMonthRecord("2026-02")
	d := models.NewDayRecord(fixedNow)
	d.Freeform = string(make([]byte, 500))
	big.Entries["2026-02-21"] = d

	err := c.SaveMonth(big)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSerialization)
	assert.ErrorIs(t, err, storage.ErrQuotaExceeded)

	cfg, err := c.Config()
	require.NoError(t, err)
	assert.Equal(t, "me", cfg.GitHubOwner)
	_, err = store.Get("tracker_month_2026-02")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestCorruptValueIsSerializationError(t *testing.T) {
	c, store := newTestCache(t, 0)
	require.NoError(t, store.Set("tracker_month_2026-02", []byte("{not json")))

	_, err := c.Month("2026-02")
	assert.True(t, errors.Is(err, ErrSerialization))
}

func TestSummaries(t *testing.T) {
	c, _ := newTestCache(t, 0)

	s, err := c.LookupWeekSummary("2026-W08")
	require.NoError(t, err)
	assert.Nil(t, s)

	empty, err := c.WeekSummary("2026-W08")
	require.NoError(t, err)
	assert.Equal(t, "2026-W08", empty.Week)
	assert.Equal(t, "Feb 16 - Feb 22, 2026", empty.DateRange)

	empty.Summary = "good week"
	require.NoError(t, c.SaveWeekSummary(empty))
	s, err = c.LookupWeekSummary("2026-W08")
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, "good week", s.Summary)

	ms, err := c.MonthSummary("2026-02")
	require.NoError(t, err)
	assert.Equal(t, models.TrendStable, ms.MoodTrend)
	ms.Reflections = "steady"
	require.NoError(t, c.SaveMonthSummary(ms))
	got, err := c.LookupMonthSummary("2026-02")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "steady", got.Reflections)

	assert.Error(t, c.PutWeekSummary(models.WeekSummary{}))
	assert.Error(t, c.PutMonthSummary(models.MonthSummary{}))
}

func TestClearCredentialsKeepsOtherSettingsAndData(t *testing.T) {
	c, _ := newTestCache(t, 0)

	require.NoError(t, c.SaveConfig(models.Config{
		GitHubToken: "ghp_x",
		GitHubOwner: "me",
		GitHubRepo:  "journal",
		OllamaURL:   "http://localhost:11434",
		Timezone:    "Europe/Berlin",
	}))
	_, err := c.SaveDay("2026-02-21", models.NewDayRecord(fixedNow))
	require.NoError(t, err)

	require.NoError(t, c.ClearCredentials())

	cfg, err := c.Config()
	require.NoError(t, err)
	assert.Empty(t, cfg.GitHubToken)
	assert.Empty(t, cfg.GitHubOwner)
	assert.Empty(t, cfg.GitHubRepo)
	assert.Equal(t, "http://localhost:11434", cfg.OllamaURL)
	assert.Equal(t, "Europe/Berlin", cfg.Timezone)

	keys, err := c.MonthKeys()
	require.NoError(t, err)
	assert.Equal(t, []string{"2026-02"}, keys)
}

func TestQueueAndSyncMarkers(t *testing.T) {
	c, _ := newTestCache(t, 0)

	tokens, err := c.LoadQueue()
	require.NoError(t, err)
	assert.Empty(t, tokens)

	require.NoError(t, c.SaveQueue([]string{"month:2026-02", "week:2026-W08"}))
	tokens, err = c.LoadQueue()
	require.NoError(t, err)
	assert.Equal(t, []string{"month:2026-02", "week:2026-W08"}, tokens)

	_, ok, err := c.LastSync()
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, c.SetLastSync(fixedNow))
	last, ok, err := c.LastSync()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, last.Equal(fixedNow))

	pending, err := c.PendingSync()
	require.NoError(t, err)
	assert.False(t, pending)
	require.NoError(t, c.SetPendingSync(true))
	pending, _ = c.PendingSync()
	assert.True(t, pending)
	require.NoError(t, c.SetPendingSync(false))
	pending, _ = c.PendingSync()
	assert.False(t, pending)
}

func TestRecordKeyListingsStaySeparate(t *testing.T) {
	c, _ := newTestCache(t, 0)

	_, err := c.SaveDay("2026-02-21", models.NewDayRecord(fixedNow))
	require.NoError(t, err)
	require.NoError(t, c.SaveWeekSummary(models.NewWeekSummary(fixedNow, fixedNow)))
	require.NoError(t, c.SaveMonthSummary(models.NewMonthSummary("2026-02", fixedNow)))

	months, err := c.MonthKeys()
	require.NoError(t, err)
	assert.Equal(t, []string{"2026-02"}, months)

	weeks, err := c.WeekSummaryKeys()
	require.NoError(t, err)
	assert.Equal(t, []string{utils.WeekKey(fixedNow)}, weeks)

	monthly, err := c.MonthSummaryKeys()
	require.NoError(t, err)
	assert.Equal(t, []string{"2026-02"}, monthly)
}
