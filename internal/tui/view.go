package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	apperrors "github.com/julianstephens/daylog/internal/errors"
)

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var content string
	switch m.state {
	case StateDay:
		content = docStyle.Render(m.taskList.View())
	case StateWeek:
		content = docStyle.Render(m.weekModel.View())
	case StateConfirmDelete:
		content = m.viewConfirmDelete()
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		lipgloss.JoinHorizontal(lipgloss.Top, m.viewTabs(), dateStyle.Render(m.day.Format("Mon 2006-01-02"))),
		content,
		m.viewStatus(),
		m.help.View(m),
	)
}

func (m Model) viewTabs() string {
	var tabs []string
	for i, title := range []string{"Day", "Week"} {
		active := m.state == SessionState(i) || (m.state == StateConfirmDelete && i == int(StateDay))
		if active {
			tabs = append(tabs, activeTabStyle.Render(title))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(title))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (m Model) viewStatus() string {
	if m.err != nil {
		return errorStyle.Render("Error: " + apperrors.UserMessage(m.err))
	}
	status := m.status
	if n := m.app.Queue().Len(); n > 0 {
		if status != "" {
			status += " · "
		}
		status += pendingLabel(n)
	}
	return statusStyle.Render(status)
}

func pendingLabel(n int) string {
	if n == 1 {
		return "1 change waiting to sync"
	}
	return fmt.Sprintf("%d changes waiting to sync", n)
}

func (m Model) viewConfirmDelete() string {
	return lipgloss.Place(m.width, max(m.height-4, 5),
		lipgloss.Center, lipgloss.Center,
		lipgloss.JoinVertical(lipgloss.Center,
			dangerStyle.Render("Delete this task?"),
			m.taskToDeleteText,
			"",
			"[y] Yes",
			"[n] No",
		),
	)
}
