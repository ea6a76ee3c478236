package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/daylog/internal/app"
	"github.com/julianstephens/daylog/internal/models"
	"github.com/julianstephens/daylog/internal/tui/components/tasklist"
	"github.com/julianstephens/daylog/internal/tui/components/week"
	"github.com/julianstephens/daylog/internal/utils"
)

type SessionState int

const (
	StateDay SessionState = iota
	StateWeek
	StateConfirmDelete
)

// tabCount is the number of states reachable with tab.
const tabCount = 2

type Model struct {
	ctx       context.Context
	app       *app.App
	state     SessionState
	keys      KeyMap
	help      help.Model
	taskList  tasklist.Model
	weekModel week.Model
	day       time.Time
	status    string
	err       error
	syncing   bool
	quitting  bool
	width     int
	height    int

	taskToDeleteID   string
	taskToDeleteText string
}

func NewModel(ctx context.Context, a *app.App) Model {
	m := Model{
		ctx:       ctx,
		app:       a,
		state:     StateDay,
		keys:      DefaultKeyMap(),
		help:      help.New(),
		taskList:  tasklist.New(nil, 0, 0),
		weekModel: week.New(0, 0),
		day:       midnight(a.Journal().Now()),
	}
	m.reload()
	return m
}

// DayKey returns the key of the day on screen.
func (m Model) DayKey() string {
	return utils.DayKey(m.day)
}

// reload reads the current day and week from the cache.
func (m *Model) reload() {
	planned, unplanned, err := m.app.Journal().Tasks(m.DayKey())
	if err != nil {
		m.err = err
		return
	}
	tasks := make([]models.Task, 0, len(planned)+len(unplanned))
	tasks = append(tasks, planned...)
	tasks = append(tasks, unplanned...)
	m.taskList.SetTasks(tasks)

	s, err := m.app.Journal().WeekSummary(m.day)
	if err != nil {
		m.err = err
		return
	}
	m.weekModel.SetSummary(s)
	m.err = nil
}

func (m Model) ShortHelp() []key.Binding {
	keys := []key.Binding{m.keys.Tab, m.keys.PrevDay, m.keys.NextDay}
	if m.state == StateDay {
		keys = append(keys, m.keys.Toggle, m.keys.Delete)
	}
	return append(keys, m.keys.Sync, m.keys.Quit, m.keys.Help)
}

func (m Model) FullHelp() [][]key.Binding {
	return m.keys.FullHelp()
}

func (m Model) Init() tea.Cmd {
	return nil
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// nextProgress cycles not started, half done and done.
func nextProgress(p models.Progress) models.Progress {
	switch p {
	case models.ProgressNotStarted:
		return models.ProgressHalfDone
	case models.ProgressHalfDone:
		return models.ProgressDone
	default:
		return models.ProgressNotStarted
	}
}
