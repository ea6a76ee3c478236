package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/julianstephens/daylog/internal/models"
)

type WeekShowCmd struct {
	Date string `arg:"" optional:"" help:"Any day in the week." default:"today"`
}

func (c *WeekShowCmd) Run(ctx *Context) error {
	a, err := ctx.App()
	if err != nil {
		return err
	}
	day, err := dayOf(a, c.Date)
	if err != nil {
		return err
	}
	s, err := a.Journal().WeekSummary(day)
	if err != nil {
		return err
	}
	fmt.Println(renderWeek(s))
	return nil
}

func renderWeek(s models.WeekSummary) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("Week %s  %s", s.Week, s.DateRange)) + "\n\n")

	b.WriteString(row("Sleep", fmt.Sprintf("%s avg, quality %s, %s → %s",
		orDash(s.Sleep.AvgDuration), avg(s.Sleep.AvgQuality), orDash(s.Sleep.AvgBedTime), orDash(s.Sleep.AvgWakeTime))) + "\n")
	b.WriteString(row("Exercise", fmt.Sprintf("%d day(s), %s%s",
		s.Exercise.DaysActive, orDash(s.Exercise.TotalDuration), breakdown(s.Exercise.Breakdown))) + "\n")
	b.WriteString(row("Energy", avg(s.AvgEnergy)) + "\n")
	b.WriteString(row("Mood", avg(s.AvgMood)) + "\n")

	for _, f := range []struct{ label, text string }{
		{"Summary", s.Summary},
		{"Highlights", s.Highlights},
		{"Learnings", s.Learnings},
		{"Next week", s.NextWeekFocus},
	} {
		if f.text != "" {
			b.WriteString("\n" + labelStyle.Render(f.label) + "\n" + f.text + "\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func breakdown(m map[string]int) string {
	if len(m) == 0 {
		return ""
	}
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s×%d", name, m[name]))
	}
	return " (" + strings.Join(parts, ", ") + ")"
}

func avg(v float64) string {
	if v == 0 {
		return "-"
	}
	return fmt.Sprintf("%.1f", v)
}

type WeekEditCmd struct {
	Date       string  `arg:"" optional:"" help:"Any day in the week." default:"today"`
	Summary    *string `short:"s" help:"Week summary."`
	Highlights *string `help:"Highlights."`
	Learnings  *string `help:"Learnings."`
	Focus      *string `help:"Focus for next week."`
}

func (c *WeekEditCmd) Run(ctx *Context) error {
	a, err := ctx.App()
	if err != nil {
		return err
	}
	day, err := dayOf(a, c.Date)
	if err != nil {
		return err
	}
	s, err := a.Journal().WeekSummary(day)
	if err != nil {
		return err
	}
	set(&s.Summary, c.Summary)
	set(&s.Highlights, c.Highlights)
	set(&s.Learnings, c.Learnings)
	set(&s.NextWeekFocus, c.Focus)
	if c.Summary != nil {
		s.AIGenerated = false
	}
	if err := a.Journal().SaveWeekSummary(s); err != nil {
		return err
	}
	fmt.Printf("✓ Saved week %s\n", s.Week)
	return nil
}

type MonthShowCmd struct {
	Month string `arg:"" optional:"" help:"Month (YYYY-MM or any date in it)." default:"today"`
}

func (c *MonthShowCmd) Run(ctx *Context) error {
	a, err := ctx.App()
	if err != nil {
		return err
	}
	month, err := monthOf(a, c.Month)
	if err != nil {
		return err
	}
	s, err := a.Journal().MonthSummary(month)
	if err != nil {
		return err
	}
	fmt.Println(renderMonth(s))
	return nil
}

func renderMonth(s models.MonthSummary) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Month "+s.Month) + "\n\n")

	b.WriteString(row("Sleep", fmt.Sprintf("%s avg, quality %s (%s), bed %s",
		orDash(s.SleepTrends.AvgDuration), avg(s.SleepTrends.AvgQuality), s.SleepTrends.QualityTrend, orDash(s.SleepTrends.AvgBedTime))) + "\n")
	activities := ""
	if len(s.ExerciseTrends.TopActivities) > 0 {
		activities = ", top: " + strings.Join(s.ExerciseTrends.TopActivities, ", ")
	}
	b.WriteString(row("Exercise", fmt.Sprintf("%d day(s), %s (%s)%s",
		s.ExerciseTrends.DaysActive, orDash(s.ExerciseTrends.TotalDuration), s.ExerciseTrends.Trend, activities)) + "\n")
	b.WriteString(row("Energy", string(s.EnergyTrend)) + "\n")
	b.WriteString(row("Mood", string(s.MoodTrend)) + "\n")

	for _, f := range []struct{ label, text string }{
		{"Summary", s.Summary},
		{"Achievements", s.Achievements},
		{"Reflections", s.Reflections},
		{"Next month", s.NextMonthGoals},
	} {
		if f.text != "" {
			b.WriteString("\n" + labelStyle.Render(f.label) + "\n" + f.text + "\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

type MonthEditCmd struct {
	Month        string  `arg:"" optional:"" help:"Month (YYYY-MM or any date in it)." default:"today"`
	Summary      *string `short:"s" help:"Month summary."`
	Achievements *string `help:"Achievements."`
	Reflections  *string `help:"Reflections."`
	Goals        *string `help:"Goals for next month."`
}

func (c *MonthEditCmd) Run(ctx *Context) error {
	a, err := ctx.App()
	if err != nil {
		return err
	}
	month, err := monthOf(a, c.Month)
	if err != nil {
		return err
	}
	s, err := a.Journal().MonthSummary(month)
	if err != nil {
		return err
	}
	set(&s.Summary, c.Summary)
	set(&s.Achievements, c.Achievements)
	set(&s.Reflections, c.Reflections)
	set(&s.NextMonthGoals, c.Goals)
	if c.Reflections != nil {
		s.AIGenerated = false
	}
	if err := a.Journal().SaveMonthSummary(s); err != nil {
		return err
	}
	fmt.Printf("✓ Saved month %s\n", s.Month)
	return nil
}

func set(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}
