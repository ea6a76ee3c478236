package tui

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gokeyring "github.com/zalando/go-keyring"

	"github.com/julianstephens/daylog/internal/app"
	"github.com/julianstephens/daylog/internal/journal"
	"github.com/julianstephens/daylog/internal/models"
	"github.com/julianstephens/daylog/internal/remote"
	"github.com/julianstephens/daylog/internal/remote/remotetest"
	"github.com/julianstephens/daylog/internal/storage"
	"github.com/julianstephens/daylog/internal/utils"
)

func newTestApp(t *testing.T, rs *remotetest.Store) *app.App {
	t.Helper()
	a, err := app.New(storage.NewMemoryStore(0), app.Options{
		Timezone: "UTC",
		NewClient: func(models.Config, string) (remote.Client, error) {
			return rs, nil
		},
	})
	require.NoError(t, err)
	t.Cleanup(a.StopAutoSync)
	return a
}

func addTask(t *testing.T, a *app.App, text string) models.Task {
	t.Helper()
	key := utils.DayKey(a.Journal().Now())
	task, err := a.Journal().AddTask(key, journal.TaskInput{Text: &text})
	require.NoError(t, err)
	return task
}

// press sends a key and feeds back the message of any command it returns.
func press(m Model, keys string) (Model, tea.Cmd) {
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(keys)})
	return next.(Model), cmd
}

func run(m Model, cmd tea.Cmd) Model {
	if cmd == nil {
		return m
	}
	next, _ := m.Update(cmd())
	return next.(Model)
}

func sized(m Model) Model {
	next, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	return next.(Model)
}

func TestCycleProgress(t *testing.T) {
	a := newTestApp(t, remotetest.New())
	task := addTask(t, a, "write report")
	m := sized(NewModel(context.Background(), a))

	for _, want := range []models.Progress{models.ProgressHalfDone, models.ProgressDone, models.ProgressNotStarted} {
		var cmd tea.Cmd
		m, cmd = press(m, "x")
		require.NotNil(t, cmd)
		m = run(m, cmd)
		require.NoError(t, m.err)

		d, err := a.Journal().Day(m.DayKey())
		require.NoError(t, err)
		require.Len(t, d.Tasks, 1)
		assert.Equal(t, task.ID, d.Tasks[0].ID)
		assert.Equal(t, want, d.Tasks[0].Progress)
	}
}

func TestDeleteAsksForConfirmation(t *testing.T) {
	a := newTestApp(t, remotetest.New())
	addTask(t, a, "call the bank")
	m := sized(NewModel(context.Background(), a))

	m, cmd := press(m, "d")
	m = run(m, cmd)
	require.Equal(t, StateConfirmDelete, m.state)
	assert.Contains(t, m.View(), "call the bank")

	m, _ = press(m, "n")
	assert.Equal(t, StateDay, m.state)
	d, err := a.Journal().Day(m.DayKey())
	require.NoError(t, err)
	assert.Len(t, d.Tasks, 1, "cancel must keep the task")

	m, cmd = press(m, "d")
	m = run(m, cmd)
	m, _ = press(m, "y")
	assert.Equal(t, StateDay, m.state)
	d, err = a.Journal().Day(m.DayKey())
	require.NoError(t, err)
	assert.Empty(t, d.Tasks)
}

func TestDayNavigation(t *testing.T) {
	a := newTestApp(t, remotetest.New())
	m := sized(NewModel(context.Background(), a))
	today := m.DayKey()

	m, _ = press(m, "h")
	assert.Equal(t, utils.DayKey(a.Journal().Now().AddDate(0, 0, -1)), m.DayKey())

	m, _ = press(m, "l")
	m, _ = press(m, "l")
	assert.Equal(t, utils.DayKey(a.Journal().Now().AddDate(0, 0, 1)), m.DayKey())

	m, _ = press(m, "t")
	assert.Equal(t, today, m.DayKey())
}

func TestTabSwitchesToWeek(t *testing.T) {
	a := newTestApp(t, remotetest.New())
	m := sized(NewModel(context.Background(), a))

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m = next.(Model)
	assert.Equal(t, StateWeek, m.state)
	assert.Contains(t, m.View(), "Week "+utils.WeekKey(a.Journal().Now()))

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, StateDay, next.(Model).state)
}

func TestSyncRequiresConnection(t *testing.T) {
	a := newTestApp(t, remotetest.New())
	m := sized(NewModel(context.Background(), a))

	m, cmd := press(m, "s")
	assert.Nil(t, cmd)
	assert.ErrorIs(t, m.err, app.ErrNotConnected)
}

func TestSyncPushesQueuedChanges(t *testing.T) {
	gokeyring.MockInit()
	rs := remotetest.New()
	a := newTestApp(t, rs)
	require.NoError(t, a.Connect(context.Background(), models.Config{
		Backend:     models.BackendGitHub,
		GitHubOwner: "octo",
		GitHubRepo:  "journal",
	}, "ghp_secret"))

	addTask(t, a, "ship it")
	m := sized(NewModel(context.Background(), a))
	assert.Contains(t, m.View(), "1 change waiting to sync")

	m, cmd := press(m, "s")
	require.NotNil(t, cmd)
	assert.True(t, m.syncing)
	m = run(m, cmd)

	assert.False(t, m.syncing)
	require.NoError(t, m.err)
	assert.Equal(t, 0, a.Queue().Len())
	_, ok := rs.Get(remote.MonthPath(utils.MonthKey(a.Journal().Now())))
	assert.True(t, ok, "month not pushed")
}
