package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/julianstephens/daylog/internal/backup"
	"github.com/julianstephens/daylog/internal/keyring"
	"github.com/julianstephens/daylog/internal/migration"
	"github.com/julianstephens/daylog/internal/queue"
	"github.com/julianstephens/daylog/internal/storage"
	"github.com/julianstephens/daylog/internal/utils"
	"github.com/julianstephens/daylog/internal/validation"
)

type DoctorCmd struct {
	Offline bool `help:"Skip checks that contact the remote store or assistant."`
}

type check struct {
	name string
	// warnOnly checks report a warning instead of failing the run.
	warnOnly bool
	run      func() error
}

func (cmd *DoctorCmd) Run(ctx *Context) error {
	fmt.Println("Running diagnostics...")
	fmt.Println()

	checks := []check{
		{name: "Database reachable", run: func() error { return checkDBReachable(ctx) }},
		{name: "Schema version", run: func() error { return checkSchemaVersion(ctx) }},
		{name: "Data validation", run: func() error { return checkValidation(ctx) }},
		{name: "Sync queue", run: func() error { return checkQueue(ctx) }},
		{name: "Storage quota", warnOnly: true, run: func() error { return checkQuota(ctx) }},
		{name: "Backups present", warnOnly: true, run: func() error { return checkBackupsPresent(ctx) }},
		{name: "OS keyring", warnOnly: true, run: checkKeyring},
		{name: "Clock/timezone", run: func() error { return checkClockTimezone(ctx) }},
	}
	if !cmd.Offline {
		checks = append(checks,
			check{name: "Remote access", run: func() error { return checkRemote(ctx) }},
			check{name: "Assistant", warnOnly: true, run: func() error { return checkAssistant(ctx) }},
		)
	}

	hasError := false
	dbReachable := true
	var skip skipError
	for _, c := range checks {
		if !dbReachable && c.name != "Clock/timezone" && c.name != "OS keyring" {
			fmt.Printf("⊘ %s: SKIPPED (database not reachable)\n", c.name)
			continue
		}
		err := c.run()
		switch {
		case err == nil:
			fmt.Println(okStyle.Render("✓ " + c.name + ": OK"))
		case errors.As(err, &skip):
			fmt.Printf("⊘ %s: SKIPPED (%s)\n", c.name, skip)
		case c.warnOnly:
			fmt.Println(warnStyle.Render("⚠ " + c.name + ": WARNING"))
			fmt.Printf("   %v\n", err)
		default:
			fmt.Println(errStyle.Render("❌ " + c.name + ": FAIL"))
			fmt.Printf("   Error: %v\n", err)
			hasError = true
			if c.name == "Database reachable" {
				dbReachable = false
			}
		}
	}

	fmt.Println()
	if hasError {
		fmt.Println("Diagnostics completed with errors.")
		return fmt.Errorf("one or more health checks failed")
	}
	fmt.Println("All diagnostics passed!")
	return nil
}

// skipError marks a check that does not apply to this setup.
type skipError string

func (e skipError) Error() string { return string(e) }

func checkDBReachable(ctx *Context) error {
	if err := ctx.Store.Load(); err != nil {
		return fmt.Errorf("failed to load database: %w", err)
	}
	if _, err := ctx.Store.Size(); err != nil {
		return fmt.Errorf("failed to query database: %w", err)
	}
	return nil
}

func checkSchemaVersion(ctx *Context) error {
	m, ok := ctx.Store.(interface {
		Migrations() (*migration.Runner, error)
	})
	if !ok {
		return skipError("store has no schema")
	}
	runner, err := m.Migrations()
	if err != nil {
		return err
	}
	st, err := runner.Status()
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	return st.Err()
}

func checkValidation(ctx *Context) error {
	a, err := ctx.App()
	if err != nil {
		return err
	}
	keys, err := a.Cache().MonthKeys()
	if err != nil {
		return fmt.Errorf("failed to list months: %w", err)
	}
	var vr validation.ValidationResult
	for _, k := range keys {
		m, err := a.Cache().Month(k)
		if err != nil {
			return fmt.Errorf("month %s is unreadable: %w", k, err)
		}
		res := validation.ValidateMonth(m)
		vr.Issues = append(vr.Issues, res.Issues...)
	}
	if vr.HasIssues() {
		fmt.Print(vr.FormatReport())
		return fmt.Errorf("%d issue(s) found in %d month(s)", len(vr.Issues), len(keys))
	}
	return nil
}

func checkQueue(ctx *Context) error {
	a, err := ctx.App()
	if err != nil {
		return err
	}
	tokens, err := a.Cache().LoadQueue()
	if err != nil {
		return fmt.Errorf("failed to read sync queue: %w", err)
	}
	for _, tok := range tokens {
		if _, err := queue.ParseEntry(tok); err != nil {
			return fmt.Errorf("sync queue holds an invalid entry: %w", err)
		}
	}
	return nil
}

func checkQuota(ctx *Context) error {
	a, err := ctx.App()
	if err != nil {
		return err
	}
	used, quota, err := a.Cache().Usage()
	if err != nil {
		return err
	}
	if quota > 0 && used*10 >= quota*9 {
		return fmt.Errorf("local storage is %.0f%% full (%d of %d bytes)", float64(used)*100/float64(quota), used, quota)
	}
	return nil
}

func checkBackupsPresent(ctx *Context) error {
	if storage.IsPostgresURL(ctx.Store.GetConfigPath()) {
		return skipError("PostgreSQL store")
	}
	backups, err := backup.NewManager(ctx.Store.GetConfigPath()).List()
	if err != nil {
		return fmt.Errorf("failed to list backups: %w", err)
	}
	if len(backups) == 0 {
		return fmt.Errorf("no backups found - consider creating one with 'daylog backup create'")
	}
	return nil
}

func checkKeyring() error {
	if !keyring.IsAvailable() {
		return fmt.Errorf("%w: tokens will be stored in the local database", keyring.ErrKeyringUnavailable)
	}
	return nil
}

func checkClockTimezone(ctx *Context) error {
	now := time.Now()
	if now.Year() < 2020 || now.Year() > 2100 {
		return fmt.Errorf("system time appears incorrect: %s", now.Format(time.RFC3339))
	}
	a, err := ctx.App()
	if err != nil {
		return err
	}
	tz := a.Config().Timezone
	if _, err := utils.LoadLocation(tz); err != nil {
		return fmt.Errorf("configured timezone %q is invalid: %w", tz, err)
	}
	if tz == "" {
		fmt.Printf("   Note: using the system timezone (%s)\n", a.Journal().Location())
	}
	return nil
}

func checkRemote(ctx *Context) error {
	a, err := ctx.App()
	if err != nil {
		return err
	}
	if !a.Config().HasRemote() {
		return skipError("not connected")
	}
	c, cancel := context.WithTimeout(ctx.context(), 30*time.Second)
	defer cancel()
	return a.CheckRemote(c)
}

func checkAssistant(ctx *Context) error {
	a, err := ctx.App()
	if err != nil {
		return err
	}
	g, err := a.Assistant()
	if err != nil {
		return err
	}
	if !g.IsAvailable(ctx.context()) {
		return fmt.Errorf("%s is not reachable", g.Name())
	}
	return nil
}
