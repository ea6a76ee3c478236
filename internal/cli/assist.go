package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/julianstephens/daylog/internal/app"
	"github.com/julianstephens/daylog/internal/assistant"
	"github.com/julianstephens/daylog/internal/models"
	"github.com/julianstephens/daylog/internal/utils"
)

// generator returns the configured assistant after checking it can answer.
func generator(ctx *Context) (*app.App, assistant.Generator, error) {
	a, err := ctx.App()
	if err != nil {
		return nil, nil, err
	}
	g, err := a.Assistant()
	if err != nil {
		return nil, nil, err
	}
	if !g.IsAvailable(ctx.context()) {
		return nil, nil, fmt.Errorf("%w: %s is not reachable", assistant.ErrUnavailable, g.Name())
	}
	return a, g, nil
}

type AssistPolishCmd struct {
	Date  string `arg:"" optional:"" help:"Day whose text to polish." default:"today"`
	Field string `help:"Field to polish (work|freeform|notes)." enum:"work,freeform,notes" default:"work"`
	Apply bool   `help:"Save the polished text instead of only printing it."`
}

func (c *AssistPolishCmd) Run(ctx *Context) error {
	a, g, err := generator(ctx)
	if err != nil {
		return err
	}
	key, err := dayKey(a, c.Date)
	if err != nil {
		return err
	}
	d, err := a.Journal().Day(key)
	if err != nil {
		return err
	}

	field := polishField(&d, c.Field)
	if strings.TrimSpace(*field) == "" {
		return fmt.Errorf("nothing to polish: %s is empty on %s", c.Field, key)
	}
	out, err := assistant.Polish(ctx.context(), g, *field)
	if err != nil {
		return err
	}
	fmt.Println(out)

	if c.Apply {
		_, err := a.Journal().UpdateDay(key, func(d *models.DayRecord) error {
			*polishField(d, c.Field) = out
			return nil
		})
		if err != nil {
			return err
		}
		fmt.Printf("\n✓ Saved polished %s for %s\n", c.Field, key)
	}
	return nil
}

func polishField(d *models.DayRecord, name string) *string {
	switch name {
	case "freeform":
		return &d.Freeform
	case "notes":
		return &d.Mental.Notes
	default:
		return &d.Work
	}
}

type AssistWeekCmd struct {
	Date string `arg:"" optional:"" help:"Any day in the week." default:"today"`
	Save bool   `help:"Store the draft as the week's summary."`
}

func (c *AssistWeekCmd) Run(ctx *Context) error {
	a, g, err := generator(ctx)
	if err != nil {
		return err
	}
	day, err := dayOf(a, c.Date)
	if err != nil {
		return err
	}

	var days []assistant.DatedDay
	for _, t := range utils.WeekDays(day) {
		key := utils.DayKey(t)
		d, err := a.Journal().Day(key)
		if err != nil {
			return err
		}
		if !d.IsBlank() {
			days = append(days, assistant.DatedDay{Date: key, Day: d})
		}
	}
	if len(days) == 0 {
		return errors.New("no entries this week to summarize")
	}

	out, err := assistant.WeeklySummary(ctx.context(), g, days)
	if err != nil {
		return err
	}
	fmt.Println(out)

	if c.Save {
		s, err := a.Journal().WeekSummary(day)
		if err != nil {
			return err
		}
		s.Summary = out
		s.AIGenerated = true
		if err := a.Journal().SaveWeekSummary(s); err != nil {
			return err
		}
		fmt.Printf("\n✓ Saved as summary for week %s\n", s.Week)
	}
	return nil
}

type AssistMonthCmd struct {
	Month string `arg:"" optional:"" help:"Month (YYYY-MM or any date in it)." default:"today"`
	Save  bool   `help:"Store the draft as the month's reflections."`
}

func (c *AssistMonthCmd) Run(ctx *Context) error {
	a, g, err := generator(ctx)
	if err != nil {
		return err
	}
	month, err := monthOf(a, c.Month)
	if err != nil {
		return err
	}

	var weeks []models.WeekSummary
	seen := map[string]bool{}
	for _, t := range utils.MonthDays(month) {
		wk := utils.WeekKey(t)
		if seen[wk] {
			continue
		}
		seen[wk] = true
		s, err := a.Journal().WeekSummary(t)
		if err != nil {
			return err
		}
		weeks = append(weeks, s)
	}
	ps, err := a.Journal().MonthStats(month)
	if err != nil {
		return err
	}

	out, err := assistant.MonthlyReflection(ctx.context(), g, weeks, ps)
	if err != nil {
		return err
	}
	fmt.Println(out)

	if c.Save {
		s, err := a.Journal().MonthSummary(month)
		if err != nil {
			return err
		}
		s.Reflections = out
		s.AIGenerated = true
		if err := a.Journal().SaveMonthSummary(s); err != nil {
			return err
		}
		fmt.Printf("\n✓ Saved as reflections for %s\n", s.Month)
	}
	return nil
}

type AssistSuggestCmd struct {
	Days int `help:"How many previous days to draw from." default:"3"`
}

func (c *AssistSuggestCmd) Run(ctx *Context) error {
	a, g, err := generator(ctx)
	if err != nil {
		return err
	}
	if c.Days < 1 {
		return errors.New("--days must be at least 1")
	}

	today := a.Journal().Now()
	var recent []assistant.DatedDay
	for i := c.Days; i >= 1; i-- {
		key := utils.DayKey(today.AddDate(0, 0, -i))
		d, err := a.Journal().Day(key)
		if err != nil {
			return err
		}
		if len(d.Tasks) > 0 {
			recent = append(recent, assistant.DatedDay{Date: key, Day: d})
		}
	}
	if len(recent) == 0 {
		return errors.New("no recent tasks to draw suggestions from")
	}

	out, err := assistant.SuggestTasks(ctx.context(), g, recent)
	if err != nil {
		return err
	}
	fmt.Println(out)
	return nil
}
