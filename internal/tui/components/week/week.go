package week

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/daylog/internal/models"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Width(12)

	textStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))
)

type Model struct {
	viewport viewport.Model
	Summary  *models.WeekSummary
}

func New(width, height int) Model {
	return Model{viewport: viewport.New(width, height)}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if m.Summary == nil {
		return "No week loaded."
	}
	return m.viewport.View()
}

func (m *Model) SetSize(width, height int) {
	m.viewport.Width = width
	m.viewport.Height = height
	m.Render()
}

func (m *Model) SetSummary(s models.WeekSummary) {
	m.Summary = &s
	m.Render()
}

func (m *Model) Render() {
	if m.Summary == nil {
		m.viewport.SetContent("No week loaded.")
		return
	}
	s := m.Summary

	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("Week %s  %s", s.Week, s.DateRange)) + "\n\n")
	line := func(label, value string) {
		b.WriteString(labelStyle.Render(label) + textStyle.Render(value) + "\n")
	}
	line("Sleep", fmt.Sprintf("%s avg, quality %s", dash(s.Sleep.AvgDuration), score(s.Sleep.AvgQuality)))
	line("Exercise", fmt.Sprintf("%d day(s) %s%s", s.Exercise.DaysActive, dash(s.Exercise.TotalDuration), activities(s.Exercise.Breakdown)))
	line("Energy", score(s.AvgEnergy))
	line("Mood", score(s.AvgMood))

	for _, f := range []struct{ label, text string }{
		{"Summary", s.Summary},
		{"Highlights", s.Highlights},
		{"Learnings", s.Learnings},
		{"Next week", s.NextWeekFocus},
	} {
		if strings.TrimSpace(f.text) != "" {
			b.WriteString("\n" + labelStyle.Render(f.label) + "\n" + textStyle.Render(f.text) + "\n")
		}
	}
	m.viewport.SetContent(b.String())
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func score(v float64) string {
	if v == 0 {
		return "-"
	}
	return fmt.Sprintf("%.1f", v)
}

func activities(m map[string]int) string {
	if len(m) == 0 {
		return ""
	}
	names := make([]string, 0, len(m))
	for n := range m {
		names = append(names, n)
	}
	sort.Strings(names)
	for i, n := range names {
		names[i] = fmt.Sprintf("%s×%d", n, m[n])
	}
	return " (" + strings.Join(names, ", ") + ")"
}
