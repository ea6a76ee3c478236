package cli

import (
	"fmt"

	"github.com/julianstephens/daylog/internal/models"
)

type ExerciseAddCmd struct {
	Name      string `arg:"" help:"Activity (e.g. run, yoga)."`
	Date      string `short:"d" help:"Day to log the exercise on." default:"today"`
	Duration  string `short:"t" help:"Duration (e.g. 45m, 1h)."`
	Intensity string `short:"i" help:"Intensity (low|medium|high)." default:"medium"`
	Comment   string `short:"c" help:"Comment."`
}

func (c *ExerciseAddCmd) Run(ctx *Context) error {
	a, err := ctx.App()
	if err != nil {
		return err
	}
	key, err := dayKey(a, c.Date)
	if err != nil {
		return err
	}
	intensity, err := parseIntensity(c.Intensity)
	if err != nil {
		return err
	}
	ex := models.Exercise{
		Name:      c.Name,
		Duration:  c.Duration,
		Intensity: intensity,
		Comment:   c.Comment,
	}
	if err := a.Journal().AddExercise(key, ex); err != nil {
		return err
	}
	fmt.Printf("✓ Logged %s on %s\n", c.Name, key)
	return nil
}

type ExerciseDeleteCmd struct {
	Position string `arg:"" help:"Position of the exercise as shown by 'day show' (e.g. 1 or #1)."`
	Date     string `short:"d" help:"Day the exercise belongs to." default:"today"`
}

func (c *ExerciseDeleteCmd) Run(ctx *Context) error {
	a, err := ctx.App()
	if err != nil {
		return err
	}
	key, err := dayKey(a, c.Date)
	if err != nil {
		return err
	}
	i, err := parseIndex(c.Position)
	if err != nil {
		return err
	}
	if err := a.Journal().DeleteExercise(key, i); err != nil {
		return err
	}
	fmt.Printf("✓ Removed exercise #%d from %s\n", i+1, key)
	return nil
}
