package cli

import (
	"encoding/json"
	"fmt"

	"github.com/julianstephens/daylog/internal/logger"
	"github.com/julianstephens/daylog/internal/utils"
)

type DebugCmd struct {
	DBPath    *DebugDBPathCmd    `cmd:"" help:"Show database path."`
	DumpMonth *DebugDumpMonthCmd `cmd:"" help:"Dump a cached month record as JSON."`
	DumpQueue *DebugDumpQueueCmd `cmd:"" help:"Dump the pending sync queue as JSON."`
}

type DebugDBPathCmd struct{}

func (cmd *DebugDBPathCmd) Run(ctx *Context) error {
	return printJSON(map[string]string{
		"path": ctx.Store.GetConfigPath(),
		"log":  logger.File(),
	})
}

type DebugDumpMonthCmd struct {
	Month string `arg:"" optional:"" help:"Month to dump (YYYY-MM or any date in it)." default:"today"`
}

func (cmd *DebugDumpMonthCmd) Run(ctx *Context) error {
	a, err := ctx.App()
	if err != nil {
		return err
	}
	t, err := monthOf(a, cmd.Month)
	if err != nil {
		return err
	}
	m, err := a.Cache().Month(utils.MonthKey(t))
	if err != nil {
		return fmt.Errorf("failed to read month: %w", err)
	}
	return printJSON(m)
}

type DebugDumpQueueCmd struct{}

func (cmd *DebugDumpQueueCmd) Run(ctx *Context) error {
	a, err := ctx.App()
	if err != nil {
		return err
	}
	tokens, err := a.Cache().LoadQueue()
	if err != nil {
		return fmt.Errorf("failed to read sync queue: %w", err)
	}
	if tokens == nil {
		tokens = []string{}
	}
	return printJSON(map[string]any{"pending": tokens})
}

func printJSON(v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	fmt.Println(string(b))
	return nil
}
