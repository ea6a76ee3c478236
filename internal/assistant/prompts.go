package assistant

import (
	"context"
	"fmt"
	"strings"

	"github.com/julianstephens/daylog/internal/constants"
	"github.com/julianstephens/daylog/internal/models"
	"github.com/julianstephens/daylog/internal/stats"
)

// DatedDay pairs a day record with its day key.
type DatedDay struct {
	Date string
	Day  models.DayRecord
}

// Polish rewrites a journal entry more clearly. Blank text comes back as is
// without calling the generator.
func Polish(ctx context.Context, g Generator, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return text, nil
	}
	prompt := "Please polish and improve the following journal entry. " +
		"Make it clearer and more concise while preserving the original meaning and tone. " +
		"Keep it natural and personal. Only output the polished text, nothing else.\n\n" +
		"Original:\n" + text + "\n\nPolished:"
	return g.Generate(ctx, prompt, Options{})
}

// WeeklySummary drafts a summary from a week of days. It returns "" when
// there are no days.
func WeeklySummary(ctx context.Context, g Generator, days []DatedDay) (string, error) {
	if len(days) == 0 {
		return "", nil
	}

	entries := make([]string, 0, len(days))
	for _, d := range days {
		var done []string
		for _, t := range d.Day.Tasks {
			if t.Progress == models.ProgressDone {
				done = append(done, t.Text)
			}
		}
		doneText := strings.Join(done, ", ")
		if doneText == "" {
			doneText = "None"
		}
		work := d.Day.Work
		if work == "" {
			work = "N/A"
		}
		entries = append(entries, fmt.Sprintf("%s:\n- Tasks completed: %s\n- Work: %s\n- Energy: %d/10\n- Mood: %d/10",
			d.Date, doneText, work, d.Day.Energy, d.Day.Mental.Mood))
	}

	prompt := "Based on these daily journal entries from the past week, write a brief weekly summary " +
		"highlighting key accomplishments, patterns, and insights. Keep it concise (3-5 bullet points).\n\n" +
		strings.Join(entries, "\n\n") + "\n\nWeekly Summary:"
	return g.Generate(ctx, prompt, Options{MaxTokens: constants.WeeklySummaryMaxTokens})
}

// MonthlyReflection drafts a reflection from the month's week summaries and
// stats.
func MonthlyReflection(ctx context.Context, g Generator, weeks []models.WeekSummary, ps stats.PeriodStats) (string, error) {
	lines := make([]string, 0, len(weeks))
	for i, w := range weeks {
		text := w.Highlights
		if text == "" {
			text = w.Summary
		}
		if text == "" {
			text = "No summary"
		}
		lines = append(lines, fmt.Sprintf("Week %d: %s", i+1, text))
	}

	prompt := "Based on these weekly summaries and statistics, write a brief monthly reflection. " +
		"Highlight achievements, areas of growth, and suggestions for next month.\n\n" +
		"Weekly Summaries:\n" + strings.Join(lines, "\n") + "\n\n" +
		"Monthly Stats:\n" +
		"- Average sleep quality: " + orNA(ps.AvgSleepQuality) + "\n" +
		fmt.Sprintf("- Exercise days: %d\n", ps.ExerciseDays) +
		"- Average mood: " + orNA(ps.AvgMood) + "\n\n" +
		"Monthly Reflection:"
	return g.Generate(ctx, prompt, Options{MaxTokens: constants.MonthlyReflectionMaxTokens})
}

// SuggestTasks proposes a few tasks for today from recent ones.
func SuggestTasks(ctx context.Context, g Generator, recent []DatedDay) (string, error) {
	var lines []string
	for _, d := range recent {
		for _, t := range d.Day.Tasks {
			lines = append(lines, fmt.Sprintf("- %s (%s)", t.Text, t.Progress))
		}
	}

	prompt := "Based on recent task patterns, suggest 2-3 potential tasks for today. " +
		"Keep suggestions practical and relevant.\n\n" +
		"Recent tasks:\n" + strings.Join(lines, "\n") + "\n\nSuggested tasks for today:"
	return g.Generate(ctx, prompt, Options{MaxTokens: constants.SuggestTasksMaxTokens})
}

func orNA(v float64) string {
	if v == 0 {
		return "N/A"
	}
	return fmt.Sprintf("%.1f", v)
}
