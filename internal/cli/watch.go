package cli

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/julianstephens/daylog/internal/autosync"
	"github.com/julianstephens/daylog/internal/constants"
	"github.com/julianstephens/daylog/internal/logger"
	"github.com/julianstephens/daylog/internal/queue"
	"github.com/julianstephens/daylog/internal/storage"
	"github.com/julianstephens/daylog/internal/utils"
)

type WatchCmd struct {
	Interval time.Duration `help:"Time between scheduled syncs." default:"30m"`
	Debounce time.Duration `help:"Quiet period after a local change before syncing." default:"5s"`
}

func (c *WatchCmd) Run(ctx *Context) error {
	dbPath := ctx.Store.GetConfigPath()
	lockDir := filepath.Dir(dbPath)
	if storage.IsPostgresURL(dbPath) {
		lockDir = filepath.Dir(utils.ExpandPath(constants.DefaultConfigPath))
	}
	lock := autosync.NewLock(lockDir)
	if err := lock.Acquire(); err != nil {
		var held *autosync.LockedError
		if errors.As(err, &held) {
			return fmt.Errorf("daylog watch is already running (pid %d since %s)", held.PID, held.StartedAt.Format(time.RFC3339))
		}
		return err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			logger.Warn("Failed to release watch lock", "error", err)
		}
	}()

	ctx.Options.Background = true
	ctx.Options.AutoSyncInterval = c.Interval
	a, err := ctx.Connected()
	if err != nil {
		return err
	}
	if !a.Config().AutoSyncEnabled() {
		return errors.New("auto-sync is disabled for this connection, reconnect without --no-auto-sync")
	}

	if !storage.IsPostgresURL(dbPath) {
		w, err := autosync.NewWatcher(dbPath, c.Debounce, func() {
			// Our own syncs write the database too; only wake for queued work.
			if err := a.Queue().Load(); queue.IsLoadFailure(err) {
				logger.Error("Pending changes could not be read", "error", err)
				return
			}
			if a.Queue().Len() > 0 {
				a.TriggerSync()
			}
		})
		if err != nil {
			return err
		}
		if err := w.Start(ctx.context()); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dbPath, err)
		}
		defer w.Stop()
	}

	fmt.Printf("Watching for changes (sync every %s). Press Ctrl+C to stop.\n", c.Interval)
	a.TriggerSync()
	<-ctx.context().Done()

	fmt.Println("\nStopping...")
	a.StopAutoSync()
	if err := a.Hide(); err != nil {
		logger.Warn("Failed to record pending sync", "error", err)
	}
	return nil
}
