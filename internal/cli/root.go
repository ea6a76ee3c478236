package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/julianstephens/daylog/internal/app"
	"github.com/julianstephens/daylog/internal/models"
	"github.com/julianstephens/daylog/internal/storage"
	"github.com/julianstephens/daylog/internal/utils"
)

type Context struct {
	Ctx     context.Context
	Store   storage.Provider
	Options app.Options

	session *app.App
}

// App returns the session over the loaded store, creating it on first use.
func (c *Context) App() (*app.App, error) {
	if c.session != nil {
		return c.session, nil
	}
	a, err := app.New(c.Store, c.Options)
	if err != nil {
		return nil, err
	}
	c.session = a
	return a, nil
}

// Connected returns a session that has resumed its saved remote
// connection.
func (c *Context) Connected() (*app.App, error) {
	a, err := c.App()
	if err != nil {
		return nil, err
	}
	if a.Connected() {
		return a, nil
	}
	ok, err := a.Resume(c.context())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, app.ErrNotConnected
	}
	return a, nil
}

func (c *Context) context() context.Context {
	if c.Ctx == nil {
		return context.Background()
	}
	return c.Ctx
}

// Close stops the session, if one was opened, and closes the store.
func (c *Context) Close() error {
	if c.session != nil {
		return c.session.Close()
	}
	return c.Store.Close()
}

// dayKey resolves a date expression against the session clock.
func dayKey(a *app.App, expr string) (string, error) {
	t, err := utils.ResolveDate(expr, a.Journal().Now())
	if err != nil {
		return "", err
	}
	return utils.DayKey(t), nil
}

func dayOf(a *app.App, expr string) (time.Time, error) {
	return utils.ResolveDate(expr, a.Journal().Now())
}

func monthOf(a *app.App, expr string) (time.Time, error) {
	return utils.ResolveMonth(expr, a.Journal().Now())
}

func parseProgress(s string) (models.Progress, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "todo", "not-started", "not_started", "0":
		return models.ProgressNotStarted, nil
	case "half", "half-done", "half_done", "50":
		return models.ProgressHalfDone, nil
	case "done", "complete", "100":
		return models.ProgressDone, nil
	}
	return "", fmt.Errorf("invalid progress %q (not-started|half-done|done)", s)
}

func parseIntensity(s string) (models.Intensity, error) {
	i := models.Intensity(strings.ToLower(strings.TrimSpace(s)))
	if i == "" {
		return models.IntensityMedium, nil
	}
	if !i.Valid() {
		return "", fmt.Errorf("invalid intensity %q (low|medium|high)", s)
	}
	return i, nil
}

// parseIndex reads a 1-based list position as typed by users.
func parseIndex(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimPrefix(strings.TrimSpace(s), "#"))
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid position %q", s)
	}
	return n - 1, nil
}

func progressMark(p models.Progress) string {
	switch p {
	case models.ProgressDone:
		return "[x]"
	case models.ProgressHalfDone:
		return "[~]"
	default:
		return "[ ]"
	}
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
