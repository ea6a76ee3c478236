package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"

	"github.com/julianstephens/daylog/internal/app"
	"github.com/julianstephens/daylog/internal/cli"
	"github.com/julianstephens/daylog/internal/constants"
	apperrors "github.com/julianstephens/daylog/internal/errors"
	"github.com/julianstephens/daylog/internal/logger"
	"github.com/julianstephens/daylog/internal/storage"
	"github.com/julianstephens/daylog/internal/storage/postgres"
	"github.com/julianstephens/daylog/internal/storage/sqlite"
	"github.com/julianstephens/daylog/internal/utils"
)

var CLI struct {
	Version  kong.VersionFlag
	DB       string `name:"db" help:"SQLite database path or PostgreSQL URL." env:"DAYLOG_DB" default:"${db}"`
	Quota    int64  `help:"Local storage quota in bytes (0 disables the limit)." env:"DAYLOG_QUOTA" default:"${quota}"`
	Debug    bool   `help:"Enable debug logging."`
	LogLevel string `name:"log-level" help:"Log level (debug|info|warn|error)." env:"DAYLOG_LOG_LEVEL"`
	Timezone string `help:"Timezone for day boundaries, overriding the saved setting." env:"DAYLOG_TZ"`

	Tui     cli.TuiCmd     `cmd:"" help:"Launch the interactive day view." default:"1"`
	Init    cli.InitCmd    `cmd:"" help:"Initialize daylog storage."`
	Connect cli.ConnectCmd `cmd:"" help:"Connect to a remote repository and pull the current month."`
	Logout  cli.LogoutCmd  `cmd:"" help:"Forget remote credentials, keeping local data."`
	Sync    cli.SyncCmd    `cmd:"" help:"Push pending changes and merge remote edits."`
	Pull    cli.PullCmd    `cmd:"" help:"Fetch a month from the remote repository."`
	Status  cli.StatusCmd  `cmd:"" help:"Show connection and sync status."`
	Watch   cli.WatchCmd   `cmd:"" help:"Run in the foreground, syncing periodically and after local changes."`
	Config  cli.ConfigCmd  `cmd:"" help:"Show or change settings."`

	Day struct {
		Show cli.DayShowCmd `cmd:"" default:"withargs" help:"Show a day's entry."`
		Set  cli.DaySetCmd  `cmd:"" help:"Set fields of a day's entry."`
	} `cmd:"" help:"View and edit daily entries."`
	Task struct {
		Add    cli.TaskAddCmd    `cmd:"" help:"Add a task."`
		Edit   cli.TaskEditCmd   `cmd:"" help:"Edit a task."`
		Delete cli.TaskDeleteCmd `cmd:"" help:"Delete a task."`
		List   cli.TaskListCmd   `cmd:"" help:"List a day's tasks."`
	} `cmd:"" help:"Manage tasks."`
	Exercise struct {
		Add    cli.ExerciseAddCmd    `cmd:"" help:"Log an exercise."`
		Delete cli.ExerciseDeleteCmd `cmd:"" help:"Remove an exercise."`
	} `cmd:"" help:"Manage exercise entries."`
	Week struct {
		Show cli.WeekShowCmd `cmd:"" default:"withargs" help:"Show a week's statistics and summary."`
		Edit cli.WeekEditCmd `cmd:"" help:"Edit a week's summary."`
	} `cmd:"" help:"Weekly summaries."`
	Month struct {
		Show cli.MonthShowCmd `cmd:"" default:"withargs" help:"Show a month's statistics and summary."`
		Edit cli.MonthEditCmd `cmd:"" help:"Edit a month's summary."`
	} `cmd:"" help:"Monthly summaries."`
	Assist struct {
		Polish  cli.AssistPolishCmd  `cmd:"" help:"Polish the text of a day's entry."`
		Week    cli.AssistWeekCmd    `cmd:"" help:"Draft a weekly summary."`
		Month   cli.AssistMonthCmd   `cmd:"" help:"Draft monthly reflections."`
		Suggest cli.AssistSuggestCmd `cmd:"" help:"Suggest tasks from recent days."`
	} `cmd:"" help:"Writing assistant."`
	Backup struct {
		Create  cli.BackupCreateCmd  `cmd:"" help:"Create a database snapshot."`
		List    cli.BackupListCmd    `cmd:"" help:"List snapshots."`
		Restore cli.BackupRestoreCmd `cmd:"" help:"Restore a snapshot."`
		Export  cli.BackupExportCmd  `cmd:"" help:"Export all records as JSON."`
		Import  cli.BackupImportCmd  `cmd:"" help:"Import records from a JSON export."`
	} `cmd:"" help:"Manage backups."`
	Doctor   cli.DoctorCmd `cmd:"" help:"Run health checks."`
	DebugCmd cli.DebugCmd  `cmd:"" name:"debug" help:"Debugging helpers." hidden:""`
}

func main() {
	// A missing .env is normal.
	_ = godotenv.Load()

	kctx := kong.Parse(&CLI,
		kong.Name(constants.AppName),
		kong.Description("Offline-first daily, weekly and monthly journal with repository sync"),
		kong.UsageOnError(),
		kong.Vars{
			"version": "v0.1.0",
			"db":      constants.DefaultConfigPath,
			"quota":   fmt.Sprint(constants.DefaultQuotaBytes),
		},
	)

	store, err := openStore(CLI.DB, CLI.Quota)
	if err != nil {
		apperrors.Fatal(err)
	}

	command := kctx.Command()
	if err := logger.Init(logger.Config{
		Debug:     CLI.Debug,
		Level:     CLI.LogLevel,
		ConfigDir: logDir(CLI.DB),
		Quiet:     strings.HasPrefix(command, "watch") || strings.HasPrefix(command, "tui"),
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to initialize logging: %v\n", err)
	}

	if !strings.HasPrefix(command, "init") && !strings.HasPrefix(command, "debug") {
		if err := store.Load(); err != nil {
			apperrors.Fatal(err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	appCtx := &cli.Context{
		Ctx:     ctx,
		Store:   store,
		Options: app.Options{Timezone: CLI.Timezone},
	}

	err = kctx.Run(appCtx)
	if cerr := appCtx.Close(); cerr != nil {
		logger.Warn("Failed to close store", "error", cerr)
	}
	if err != nil {
		stop()
		apperrors.Fatal(err)
	}
}

func openStore(dsn string, quota int64) (storage.Provider, error) {
	if storage.IsPostgresURL(dsn) {
		if _, err := postgres.ValidateConnString(dsn); err != nil {
			return nil, err
		}
		return postgres.New(dsn, quota), nil
	}
	return sqlite.NewStore(utils.ExpandPath(dsn), quota), nil
}

// logDir keeps logs next to a SQLite database and in the default config
// directory otherwise.
func logDir(dsn string) string {
	if storage.IsPostgresURL(dsn) {
		dsn = constants.DefaultConfigPath
	}
	return filepath.Dir(utils.ExpandPath(dsn))
}
