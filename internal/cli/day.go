package cli

import (
	"fmt"
	"strings"

	"github.com/julianstephens/daylog/internal/models"
	"github.com/julianstephens/daylog/internal/utils"
)

type DayShowCmd struct {
	Date string `arg:"" optional:"" help:"Date to show (YYYY-MM-DD, 'today', 'yesterday', 'last friday', ...)." default:"today"`
}

func (c *DayShowCmd) Run(ctx *Context) error {
	a, err := ctx.App()
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

	fmt.Println(titleStyle.Render(key))
	if d.IsBlank() && len(d.Exercise) == 0 && d.Energy == 0 && d.Mental.Mood == 0 && d.Freeform == "" {
		fmt.Println("  No entry yet")
		return nil
	}

	fmt.Println()
	printTasks(d.Tasks)

	fmt.Println()
	fmt.Println(row("Work", orDash(d.Work)))
	sleep := "-"
	if d.Sleep.BedTime != "" || d.Sleep.WakeTime != "" {
		sleep = fmt.Sprintf("%s → %s", orDash(d.Sleep.BedTime), orDash(d.Sleep.WakeTime))
		if mins, ok := utils.SleepMinutes(d.Sleep.BedTime, d.Sleep.WakeTime); ok {
			sleep += " (" + utils.FormatMinutes(mins) + ")"
		}
		if d.Sleep.Quality > 0 {
			sleep += fmt.Sprintf(", quality %d/10", d.Sleep.Quality)
		}
	}
	fmt.Println(row("Sleep", sleep))
	fmt.Println(row("Energy", scale(d.Energy)))
	fmt.Println(row("Mood", scale(d.Mental.Mood)))
	if d.Mental.Notes != "" {
		fmt.Println(row("Mind", d.Mental.Notes))
	}

	if len(d.Exercise) > 0 {
		fmt.Println()
		fmt.Println("Exercise:")
		for i, ex := range d.Exercise {
			fmt.Printf("  #%d %s %s (%s)\n", i+1, ex.Name, orDash(ex.Duration), ex.Intensity)
			if ex.Comment != "" {
				fmt.Printf("      %s\n", ex.Comment)
			}
		}
	}
	if d.Freeform != "" {
		fmt.Println()
		fmt.Println(d.Freeform)
	}
	return nil
}

func scale(v int) string {
	if v == 0 {
		return "-"
	}
	return fmt.Sprintf("%d/10", v)
}

type DaySetCmd struct {
	Date      string  `arg:"" optional:"" help:"Date to edit." default:"today"`
	Work      *string `short:"w" help:"What you worked on."`
	Bed       *string `help:"Bed time (HH:MM)."`
	Wake      *string `help:"Wake time (HH:MM)."`
	Quality   *int    `short:"q" help:"Sleep quality (1-10)."`
	SleepNote *string `name:"sleep-note" help:"Sleep comment."`
	Energy    *int    `short:"e" help:"Energy (1-10)."`
	Mood      *int    `short:"m" help:"Mood (1-10)."`
	Notes     *string `short:"n" help:"Mental notes."`
	Freeform  *string `short:"f" help:"Free-form journal text."`
}

func (c *DaySetCmd) Run(ctx *Context) error {
	a, err := ctx.App()
	if err != nil {
		return err
	}
	key, err := dayKey(a, c.Date)
	if err != nil {
		return err
	}

	_, err = a.Journal().UpdateDay(key, func(d *models.DayRecord) error {
		if c.Work != nil {
			d.Work = strings.TrimSpace(*c.Work)
		}
		if c.Bed != nil {
			d.Sleep.BedTime = strings.TrimSpace(*c.Bed)
		}
		if c.Wake != nil {
			d.Sleep.WakeTime = strings.TrimSpace(*c.Wake)
		}
		if c.Quality != nil {
			d.Sleep.Quality = *c.Quality
		}
		if c.SleepNote != nil {
			d.Sleep.Comment = strings.TrimSpace(*c.SleepNote)
		}
		if c.Energy != nil {
			d.Energy = *c.Energy
		}
		if c.Mood != nil {
			d.Mental.Mood = *c.Mood
		}
		if c.Notes != nil {
			d.Mental.Notes = strings.TrimSpace(*c.Notes)
		}
		if c.Freeform != nil {
			d.Freeform = *c.Freeform
		}
		return nil
	})
	if err != nil {
		return err
	}
	fmt.Printf("✓ Saved %s\n", key)
	return nil
}
