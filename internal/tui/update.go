package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/daylog/internal/app"
	"github.com/julianstephens/daylog/internal/journal"
	"github.com/julianstephens/daylog/internal/syncer"
	"github.com/julianstephens/daylog/internal/tui/components/tasklist"
)

type syncDoneMsg struct {
	result syncer.Result
}

func (m Model) syncCmd() tea.Cmd {
	return func() tea.Msg {
		return syncDoneMsg{result: m.app.Sync(m.ctx)}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		h, v := docStyle.GetFrameSize()
		// Tabs, date line, status line and help.
		bodyHeight := msg.Height - v - 4
		m.taskList.SetSize(msg.Width-h, bodyHeight)
		m.weekModel.SetSize(msg.Width-h, bodyHeight)
		return m, nil

	case syncDoneMsg:
		m.syncing = false
		m.status = msg.result.Message
		if !msg.result.Success && len(msg.result.Errors) > 0 {
			m.err = msg.result.Errors[0].Err
		}
		// Sync may have merged remote edits into the cache.
		m.reload()
		return m, nil

	case tasklist.CycleProgressMsg:
		return m.cycleProgress(msg.ID), nil

	case tasklist.DeleteTaskMsg:
		m.taskToDeleteID = msg.ID
		m.taskToDeleteText = msg.Text
		m.state = StateConfirmDelete
		return m, nil

	case tea.KeyMsg:
		if m.state == StateConfirmDelete {
			return m.updateConfirmDelete(msg), nil
		}
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
			return m, nil
		case key.Matches(msg, m.keys.Tab):
			m.state = (m.state + 1) % tabCount
			return m, nil
		case key.Matches(msg, m.keys.ShiftTab):
			m.state = (m.state - 1 + tabCount) % tabCount
			return m, nil
		case key.Matches(msg, m.keys.PrevDay):
			m.day = m.day.AddDate(0, 0, -1)
			m.reload()
			return m, nil
		case key.Matches(msg, m.keys.NextDay):
			m.day = m.day.AddDate(0, 0, 1)
			m.reload()
			return m, nil
		case key.Matches(msg, m.keys.Today):
			m.day = midnight(m.app.Journal().Now())
			m.reload()
			return m, nil
		case key.Matches(msg, m.keys.Sync):
			if !m.app.Connected() {
				m.err = app.ErrNotConnected
				return m, nil
			}
			if m.syncing {
				return m, nil
			}
			m.syncing = true
			m.status = "Syncing..."
			m.err = nil
			return m, m.syncCmd()
		}
	}

	var cmd tea.Cmd
	switch m.state {
	case StateDay:
		m.taskList, cmd = m.taskList.Update(msg)
	case StateWeek:
		m.weekModel, cmd = m.weekModel.Update(msg)
	}
	return m, cmd
}

func (m Model) cycleProgress(id string) Model {
	planned, unplanned, err := m.app.Journal().Tasks(m.DayKey())
	if err != nil {
		m.err = err
		return m
	}
	for _, t := range append(planned, unplanned...) {
		if t.ID != id {
			continue
		}
		next := nextProgress(t.Progress)
		if _, err := m.app.Journal().UpdateTask(m.DayKey(), id, journal.TaskInput{Progress: &next}); err != nil {
			m.err = err
			return m
		}
		m.status = fmt.Sprintf("%q is %s", t.Text, next)
		m.reload()
		return m
	}
	m.err = fmt.Errorf("%w: %s", journal.ErrTaskNotFound, id)
	return m
}

func (m Model) updateConfirmDelete(msg tea.KeyMsg) Model {
	switch {
	case key.Matches(msg, m.keys.Confirm):
		if err := m.app.Journal().DeleteTask(m.DayKey(), m.taskToDeleteID); err != nil {
			m.err = err
		} else {
			m.status = fmt.Sprintf("Deleted %q", m.taskToDeleteText)
			m.reload()
		}
	case key.Matches(msg, m.keys.Cancel):
	default:
		return m
	}
	m.taskToDeleteID, m.taskToDeleteText = "", ""
	m.state = StateDay
	return m
}
