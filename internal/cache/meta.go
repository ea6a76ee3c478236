package cache

import (
	"time"

	"github.com/julianstephens/daylog/internal/models"
	"github.com/julianstephens/daylog/internal/utils"
)

// Config returns the stored configuration, or the zero value.
func (c *Cache) Config() (models.Config, error) {
	var cfg models.Config
	if _, err := c.GetLocal(keyConfig, &cfg); err != nil {
		return models.Config{}, err
	}
	return cfg, nil
}

// SaveConfig replaces the stored configuration.
func (c *Cache) SaveConfig(cfg models.Config) error {
	return c.SetLocal(keyConfig, cfg)
}

// ClearCredentials drops the token and repository coordinates from the
// stored configuration. Assistant settings and all cached records remain.
func (c *Cache) ClearCredentials() error {
	cfg, err := c.Config()
	if err != nil {
		return err
	}
	cfg.GitHubToken = ""
	cfg.GitHubOwner = ""
	cfg.GitHubRepo = ""
	cfg.GitHubBranch = ""
	cfg.GitPath = ""
	cfg.GitRemote = ""
	return c.SaveConfig(cfg)
}

// LoadQueue returns the persisted sync queue tokens.
func (c *Cache) LoadQueue() ([]string, error) {
	var tokens []string
	if _, err := c.GetLocal(keySyncQueue, &tokens); err != nil {
		return nil, err
	}
	return tokens, nil
}

// SaveQueue persists the sync queue tokens.
func (c *Cache) SaveQueue(tokens []string) error {
	if tokens == nil {
		tokens = []string{}
	}
	return c.SetLocal(keySyncQueue, tokens)
}

// LastSync returns the time of the last completed sync pass.
func (c *Cache) LastSync() (time.Time, bool, error) {
	var s string
	ok, err := c.GetLocal(keyLastSync, &s)
	if err != nil || !ok {
		return time.Time{}, false, err
	}
	return utils.ParseInstant(s), true, nil
}

// SetLastSync records t as the last completed sync pass.
func (c *Cache) SetLastSync(t time.Time) error {
	return c.SetLocal(keyLastSync, utils.FormatInstant(t))
}

// PendingSync reports whether a sync was requested while the process was
// hidden and has not run yet.
func (c *Cache) PendingSync() (bool, error) {
	var pending bool
	if _, err := c.GetLocal(keyPendingSync, &pending); err != nil {
		return false, err
	}
	return pending, nil
}

// SetPendingSync sets or clears the pending-sync marker.
func (c *Cache) SetPendingSync(pending bool) error {
	if !pending {
		return c.RemoveLocal(keyPendingSync)
	}
	return c.SetLocal(keyPendingSync, true)
}
