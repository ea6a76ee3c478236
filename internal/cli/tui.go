package cli

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	apperrors "github.com/julianstephens/daylog/internal/errors"
	"github.com/julianstephens/daylog/internal/logger"
	"github.com/julianstephens/daylog/internal/tui"
)

type TuiCmd struct{}

func (c *TuiCmd) Run(ctx *Context) error {
	// The session stays open, so saved changes sync in the background.
	ctx.Options.Background = true
	a, err := ctx.App()
	if err != nil {
		return err
	}
	if _, err := a.Resume(ctx.context()); err != nil {
		logger.Warn("Could not resume remote connection", "error", err)
		fmt.Fprintf(os.Stderr, "Working offline: %s\n", apperrors.UserMessage(err))
	}

	p := tea.NewProgram(tui.NewModel(ctx.context(), a), tea.WithAltScreen(), tea.WithContext(ctx.context()))
	_, runErr := p.Run()

	if err := a.Hide(); err != nil {
		logger.Warn("Failed to mark pending sync", "error", err)
	}
	if runErr != nil {
		return fmt.Errorf("failed to run TUI: %w", runErr)
	}
	return nil
}
