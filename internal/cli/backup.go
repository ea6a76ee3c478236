package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/mattn/go-isatty"

	"github.com/julianstephens/daylog/internal/backup"
	"github.com/julianstephens/daylog/internal/constants"
	"github.com/julianstephens/daylog/internal/queue"
	"github.com/julianstephens/daylog/internal/storage"
)

func backupManager(ctx *Context) (*backup.Manager, error) {
	path := ctx.Store.GetConfigPath()
	if storage.IsPostgresURL(path) {
		return nil, errors.New("file backups are only available for SQLite, use 'daylog backup export' instead")
	}
	return backup.NewManager(path), nil
}

type BackupCreateCmd struct{}

func (c *BackupCreateCmd) Run(ctx *Context) error {
	mgr, err := backupManager(ctx)
	if err != nil {
		return err
	}
	path, err := mgr.Create()
	if err != nil {
		return fmt.Errorf("backup failed: %w", err)
	}
	fmt.Printf("✓ Backup created: %s\n", filepath.Base(path))
	return nil
}

type BackupListCmd struct{}

func (c *BackupListCmd) Run(ctx *Context) error {
	mgr, err := backupManager(ctx)
	if err != nil {
		return err
	}
	backups, err := mgr.List()
	if err != nil {
		return fmt.Errorf("failed to list backups: %w", err)
	}

	if len(backups) == 0 {
		fmt.Println("No backups found.")
		fmt.Printf("Backups are stored in: %s\n", mgr.Dir())
		return nil
	}

	fmt.Printf("Available backups (%d total, keeping most recent %d):\n\n", len(backups), constants.MaxBackups)
	for _, b := range backups {
		fmt.Printf("  %s  %s  (%.1f KB)\n", b.Timestamp.Format("2006-01-02 15:04:05"), filepath.Base(b.Path), float64(b.Size)/1024.0)
	}
	fmt.Printf("\nBackup directory: %s\n", mgr.Dir())
	return nil
}

type BackupRestoreCmd struct {
	BackupFile string `arg:"" help:"Path or filename of the backup to restore."`
	Yes        bool   `short:"y" help:"Do not ask for confirmation."`
}

func (c *BackupRestoreCmd) Run(ctx *Context) error {
	mgr, err := backupManager(ctx)
	if err != nil {
		return err
	}

	path := c.BackupFile
	if !filepath.IsAbs(path) {
		if candidate := filepath.Join(mgr.Dir(), path); fileExists(candidate) {
			path = candidate
		}
	}
	if !fileExists(path) {
		return fmt.Errorf("backup file not found: %s", path)
	}

	if !c.Yes {
		if !isatty.IsTerminal(os.Stdin.Fd()) {
			return errors.New("refusing to restore without confirmation, pass --yes")
		}
		confirmed := false
		err := huh.NewConfirm().
			Title("Replace the local database with " + filepath.Base(path) + "?").
			Description("A backup of the current database is created first. Changes not yet synced may be lost.").
			Affirmative("Restore").
			Negative("Cancel").
			Value(&confirmed).
			Run()
		if err != nil {
			return err
		}
		if !confirmed {
			fmt.Println("Restore cancelled.")
			return nil
		}
	}

	if err := ctx.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to close database connection: %v\n", err)
	}
	previous, err := mgr.Restore(path)
	if err != nil {
		return fmt.Errorf("restore failed: %w", err)
	}

	fmt.Println("✓ Database restored successfully!")
	if previous != "" {
		fmt.Printf("Previous database saved as %s\n", filepath.Base(previous))
	}
	fmt.Println("Restart any running 'daylog watch' process to use the restored database.")
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

type BackupExportCmd struct {
	Output string `short:"o" help:"File to write (defaults to stdout)." type:"path"`
}

func (c *BackupExportCmd) Run(ctx *Context) error {
	out := os.Stdout
	if c.Output != "" {
		f, err := os.OpenFile(c.Output, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", c.Output, err)
		}
		defer f.Close()
		out = f
	}
	n, err := backup.WriteExport(ctx.Store, out, time.Now())
	if err != nil {
		return err
	}
	if c.Output != "" {
		fmt.Printf("✓ Exported %d entries to %s\n", n, c.Output)
	}
	return nil
}

type BackupImportCmd struct {
	Input string `arg:"" help:"Export file to import." type:"existingfile"`
}

func (c *BackupImportCmd) Run(ctx *Context) error {
	f, err := os.Open(c.Input)
	if err != nil {
		return err
	}
	defer f.Close()

	n, err := backup.ReadExport(ctx.Store, f)
	if err != nil {
		return err
	}
	fmt.Printf("✓ Imported %d entries from %s\n", n, filepath.Base(c.Input))

	queued, err := queueAllRecords(ctx)
	if err != nil {
		return fmt.Errorf("imported, but failed to queue records for sync: %w", err)
	}
	if queued > 0 {
		fmt.Printf("%d record(s) queued for the next sync.\n", queued)
	}
	return nil
}

// queueAllRecords marks every cached record for sync. Sync keeps whichever
// side is newer, so queueing unchanged records is harmless.
func queueAllRecords(ctx *Context) (int, error) {
	a, err := ctx.App()
	if err != nil {
		return 0, err
	}
	c := a.Cache()
	listings := []struct {
		typ  queue.Type
		keys func() ([]string, error)
	}{
		{queue.TypeMonth, c.MonthKeys},
		{queue.TypeWeek, c.WeekSummaryKeys},
		{queue.TypeMonthly, c.MonthSummaryKeys},
	}
	n := 0
	for _, l := range listings {
		keys, err := l.keys()
		if err != nil {
			return n, err
		}
		for _, k := range keys {
			if err := a.Queue().Mark(l.typ, k); err != nil {
				return n, err
			}
			n++
		}
	}
	return n, nil
}
