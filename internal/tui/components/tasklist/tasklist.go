package tasklist

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/daylog/internal/models"
)

// CycleProgressMsg asks the parent to advance a task's progress.
type CycleProgressMsg struct {
	ID string
}

// DeleteTaskMsg asks the parent to confirm and delete a task.
type DeleteTaskMsg struct {
	ID   string
	Text string
}

type Item struct {
	Task models.Task
}

func (i Item) Title() string {
	mark := "[ ]"
	switch i.Task.Progress {
	case models.ProgressDone:
		mark = "[x]"
	case models.ProgressHalfDone:
		mark = "[~]"
	}
	return mark + " " + i.Task.Text
}

func (i Item) Description() string {
	var parts []string
	if !i.Task.Planned {
		parts = append(parts, "unplanned")
	}
	if i.Task.ScheduledTime != nil {
		parts = append(parts, "at "+*i.Task.ScheduledTime)
	}
	if i.Task.ExpectedTime != nil {
		parts = append(parts, "expected "+*i.Task.ExpectedTime)
	}
	if i.Task.Comment != "" {
		parts = append(parts, i.Task.Comment)
	}
	return strings.Join(parts, " | ")
}

func (i Item) FilterValue() string { return i.Task.Text }

type KeyMap struct {
	Toggle key.Binding
	Delete key.Binding
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Toggle: key.NewBinding(
			key.WithKeys(" ", "x"),
			key.WithHelp("space", "cycle progress"),
		),
		Delete: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "delete"),
		),
	}
}

type Model struct {
	list list.Model
	keys KeyMap
}

func New(tasks []models.Task, width, height int) Model {
	l := list.New(items(tasks), list.NewDefaultDelegate(), width, height)
	l.SetShowTitle(false)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)

	keys := DefaultKeyMap()
	l.AdditionalShortHelpKeys = func() []key.Binding {
		return []key.Binding{keys.Toggle, keys.Delete}
	}
	return Model{list: l, keys: keys}
}

func items(tasks []models.Task) []list.Item {
	out := make([]list.Item, len(tasks))
	for i, t := range tasks {
		out[i] = Item{Task: t}
	}
	return out
}

// SetTasks replaces the items, keeping the cursor in range.
func (m *Model) SetTasks(tasks []models.Task) {
	idx := m.list.Index()
	m.list.SetItems(items(tasks))
	if idx >= len(tasks) {
		idx = len(tasks) - 1
	}
	if idx >= 0 {
		m.list.Select(idx)
	}
}

// Selected returns the task under the cursor.
func (m Model) Selected() (models.Task, bool) {
	i, ok := m.list.SelectedItem().(Item)
	return i.Task, ok
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, m.keys.Toggle):
			if t, ok := m.Selected(); ok {
				return m, func() tea.Msg { return CycleProgressMsg{ID: t.ID} }
			}
			return m, nil
		case key.Matches(msg, m.keys.Delete):
			if t, ok := m.Selected(); ok {
				return m, func() tea.Msg { return DeleteTaskMsg{ID: t.ID, Text: t.Text} }
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if len(m.list.Items()) == 0 {
		return "\n  No tasks for this day.\n  Add one with 'daylog task add'."
	}
	return m.list.View()
}

func (m *Model) SetSize(width, height int) {
	m.list.SetSize(width, height)
}
