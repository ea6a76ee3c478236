package cli

import (
	"fmt"

	"github.com/julianstephens/daylog/internal/journal"
	"github.com/julianstephens/daylog/internal/models"
)

type TaskAddCmd struct {
	Text     string `arg:"" help:"Task description."`
	Date     string `short:"d" help:"Day to add the task to." default:"today"`
	At       string `help:"Scheduled time (HH:MM)."`
	Expected string `short:"x" help:"Expected duration (e.g. 30m, 1h30m)."`
	Comment  string `short:"c" help:"Comment."`
	LinkedTo string `name:"link" help:"ID of a related task on the same day."`
}

func (c *TaskAddCmd) Run(ctx *Context) error {
	a, err := ctx.App()
	if err != nil {
		return err
	}
	key, err := dayKey(a, c.Date)
	if err != nil {
		return err
	}

	in := journal.TaskInput{Text: &c.Text}
	if c.At != "" {
		in.ScheduledTime = &c.At
	}
	if c.Expected != "" {
		in.ExpectedTime = &c.Expected
	}
	if c.Comment != "" {
		in.Comment = &c.Comment
	}
	if c.LinkedTo != "" {
		in.LinkedTaskID = &c.LinkedTo
	}

	task, err := a.Journal().AddTask(key, in)
	if err != nil {
		return err
	}
	kind := "unplanned"
	if task.Planned {
		kind = "planned"
	}
	fmt.Printf("✓ Added %s task %s on %s\n", kind, shortID(task.ID), key)
	return nil
}

type TaskEditCmd struct {
	ID       string  `arg:"" help:"Task ID (or a unique prefix)."`
	Date     string  `short:"d" help:"Day the task belongs to." default:"today"`
	Text     *string `short:"t" help:"New description."`
	At       *string `help:"New scheduled time (HH:MM, empty to clear)."`
	Expected *string `short:"x" help:"New expected duration (empty to clear)."`
	Progress *string `short:"p" help:"Progress (not-started|half-done|done)."`
	Comment  *string `short:"c" help:"New comment."`
	LinkedTo *string `name:"link" help:"ID of a related task (empty to clear)."`
}

func (c *TaskEditCmd) Run(ctx *Context) error {
	a, err := ctx.App()
	if err != nil {
		return err
	}
	key, err := dayKey(a, c.Date)
	if err != nil {
		return err
	}
	id, err := resolveTaskID(a.Journal(), key, c.ID)
	if err != nil {
		return err
	}

	in := journal.TaskInput{
		Text:          c.Text,
		ScheduledTime: c.At,
		ExpectedTime:  c.Expected,
		Comment:       c.Comment,
		LinkedTaskID:  c.LinkedTo,
	}
	if c.Progress != nil {
		p, err := parseProgress(*c.Progress)
		if err != nil {
			return err
		}
		in.Progress = &p
	}

	task, err := a.Journal().UpdateTask(key, id, in)
	if err != nil {
		return err
	}
	fmt.Printf("✓ Updated %s %s\n", progressMark(task.Progress), task.Text)
	return nil
}

type TaskDeleteCmd struct {
	ID   string `arg:"" help:"Task ID (or a unique prefix)."`
	Date string `short:"d" help:"Day the task belongs to." default:"today"`
}

func (c *TaskDeleteCmd) Run(ctx *Context) error {
	a, err := ctx.App()
	if err != nil {
		return err
	}
	key, err := dayKey(a, c.Date)
	if err != nil {
		return err
	}
	id, err := resolveTaskID(a.Journal(), key, c.ID)
	if err != nil {
		return err
	}
	if err := a.Journal().DeleteTask(key, id); err != nil {
		return err
	}
	fmt.Printf("✓ Deleted task %s\n", shortID(id))
	return nil
}

type TaskListCmd struct {
	Date string `arg:"" optional:"" help:"Day to list." default:"today"`
}

func (c *TaskListCmd) Run(ctx *Context) error {
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
	fmt.Println(titleStyle.Render("Tasks for " + key))
	printTasks(d.Tasks)
	return nil
}

func printTasks(tasks []models.Task) {
	if len(tasks) == 0 {
		fmt.Println("  No tasks")
		return
	}

	var planned, unplanned []models.Task
	for _, t := range tasks {
		if t.Planned {
			planned = append(planned, t)
		} else {
			unplanned = append(unplanned, t)
		}
	}
	byID := make(map[string]models.Task, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}

	section := func(title string, list []models.Task) {
		if len(list) == 0 {
			return
		}
		fmt.Printf("%s:\n", title)
		for _, t := range list {
			line := fmt.Sprintf("  %s %s  %s", progressMark(t.Progress), shortID(t.ID), t.Text)
			if t.ScheduledTime != nil {
				line += " @" + *t.ScheduledTime
			}
			if t.ExpectedTime != nil {
				line += " (" + *t.ExpectedTime + ")"
			}
			fmt.Println(line)
			if t.Comment != "" {
				fmt.Printf("         %s\n", t.Comment)
			}
			if t.LinkedTaskID != "" {
				if linked, ok := byID[t.LinkedTaskID]; ok {
					fmt.Printf("         ↳ linked to %q\n", linked.Text)
				} else {
					fmt.Printf("         ↳ linked to a deleted task\n")
				}
			}
		}
	}
	section("Planned", planned)
	section("Unplanned", unplanned)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// resolveTaskID expands a unique ID prefix to the full task ID.
func resolveTaskID(j *journal.Journal, dayKey, prefix string) (string, error) {
	d, err := j.Day(dayKey)
	if err != nil {
		return "", err
	}
	var match string
	for _, t := range d.Tasks {
		if t.ID == prefix {
			return t.ID, nil
		}
		if len(prefix) >= 4 && len(t.ID) >= len(prefix) && t.ID[:len(prefix)] == prefix {
			if match != "" {
				return "", fmt.Errorf("task ID prefix %q is ambiguous on %s", prefix, dayKey)
			}
			match = t.ID
		}
	}
	if match == "" {
		return "", fmt.Errorf("%w: %s on %s", journal.ErrTaskNotFound, prefix, dayKey)
	}
	return match, nil
}
