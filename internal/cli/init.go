package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/julianstephens/daylog/internal/storage"
)

type InitCmd struct {
	Force bool `help:"Force reset by deleting the existing local database before initialization."`
}

func (c *InitCmd) Run(ctx *Context) error {
	dbPath := ctx.Store.GetConfigPath()
	if c.Force {
		if storage.IsPostgresURL(dbPath) {
			return errors.New("--force is only supported for SQLite databases")
		}
		if _, err := os.Stat(dbPath); err == nil {
			if err := ctx.Store.Close(); err != nil {
				return fmt.Errorf("failed to close existing database: %w", err)
			}
			for _, p := range []string{dbPath, dbPath + "-wal", dbPath + "-shm"} {
				if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
					return fmt.Errorf("failed to delete existing database: %w", err)
				}
			}
			fmt.Printf("Deleted existing database at: %s\n", dbPath)
		} else if !os.IsNotExist(err) {
			return fmt.Errorf("failed to access existing database: %w", err)
		}
	}

	if err := ctx.Store.Init(); err != nil {
		return err
	}
	fmt.Printf("Initialized daylog storage at: %s\n", dbPath)
	fmt.Println("Run 'daylog connect' to sync with a remote repository.")
	return nil
}
