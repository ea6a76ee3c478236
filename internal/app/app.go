// Package app wires the local cache, the sync engine and auto-sync into
// one session. A host builds an App once and passes it to whatever needs
// it.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/julianstephens/daylog/internal/assistant"
	"github.com/julianstephens/daylog/internal/autosync"
	"github.com/julianstephens/daylog/internal/cache"
	"github.com/julianstephens/daylog/internal/journal"
	"github.com/julianstephens/daylog/internal/keyring"
	"github.com/julianstephens/daylog/internal/logger"
	"github.com/julianstephens/daylog/internal/models"
	"github.com/julianstephens/daylog/internal/queue"
	"github.com/julianstephens/daylog/internal/remote"
	"github.com/julianstephens/daylog/internal/remote/github"
	"github.com/julianstephens/daylog/internal/remote/gitrepo"
	"github.com/julianstephens/daylog/internal/storage"
	"github.com/julianstephens/daylog/internal/syncer"
	"github.com/julianstephens/daylog/internal/utils"
)

var (
	// ErrNotConnected is returned by remote operations before Connect or
	// Resume succeeds.
	ErrNotConnected = errors.New("not connected to a remote store, run 'daylog connect' first")
	// ErrMissingToken is returned when a GitHub connection has no token.
	ErrMissingToken = errors.New("a GitHub token is required")
)

// ClientFactory builds the remote client for a configuration.
type ClientFactory func(cfg models.Config, token string) (remote.Client, error)

// Options configures an App.
type Options struct {
	// Timezone overrides the configured timezone for day boundaries.
	Timezone string
	// Sync tunes the engine.
	Sync syncer.Options
	// AutoSyncInterval is the period of timed syncs. Zero uses the default.
	AutoSyncInterval time.Duration
	// ResumeDelay is the wait before a pending sync resumes. Zero uses the
	// default.
	ResumeDelay time.Duration
	// NewClient overrides how remote clients are built.
	NewClient ClientFactory
	// Background starts auto-sync on connect. One-shot hosts leave it off
	// so a pending sync is not consumed by a process about to exit.
	Background bool
}

// Status is a snapshot of the session for display.
type Status struct {
	Connected  bool
	Backend    models.Backend
	Target     string
	Pending    []queue.Entry
	LastSync   time.Time
	HasSynced  bool
	Syncing    bool
	AutoSync   bool
	UsedBytes  int64
	QuotaBytes int64
}

// App is one session over a loaded local store.
type App struct {
	store   storage.Provider
	cache   *cache.Cache
	queue   *queue.Queue
	journal *journal.Journal
	opts    Options

	mu        sync.Mutex
	cfg       models.Config
	engine    *syncer.Engine
	scheduler *autosync.Scheduler
}

// New opens a session over store, which must already be initialized or
// loaded. Queued changes from earlier runs are loaded.
func New(store storage.Provider, opts Options) (*App, error) {
	if opts.NewClient == nil {
		opts.NewClient = NewClient
	}

	probe := cache.New(store)
	cfg, err := probe.Config()
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	tz := opts.Timezone
	if tz == "" {
		tz = cfg.Timezone
	}
	loc, err := utils.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", tz, err)
	}

	c := cache.New(store, cache.WithClock(func() time.Time { return time.Now().In(loc) }))
	q := queue.New(c)
	// An unreadable snapshot is retried by the next Mark or sync pass.
	loadQueue(q)

	return &App{
		store:   store,
		cache:   c,
		queue:   q,
		journal: journal.New(c, q, loc),
		opts:    opts,
		cfg:     cfg,
	}, nil
}

// NewClient builds the remote client named by cfg.
func NewClient(cfg models.Config, token string) (remote.Client, error) {
	switch cfg.EffectiveBackend() {
	case models.BackendGit:
		if cfg.GitPath == "" {
			return nil, errors.New("a git working tree path is required")
		}
		var opts []gitrepo.Option
		if cfg.GitRemote != "" {
			opts = append(opts, gitrepo.WithRemote(cfg.GitRemote))
		}
		return gitrepo.New(utils.ExpandPath(cfg.GitPath), opts...)
	case models.BackendGitHub:
		if token == "" {
			return nil, ErrMissingToken
		}
		if cfg.GitHubOwner == "" || cfg.GitHubRepo == "" {
			return nil, errors.New("GitHub owner and repository are required")
		}
		var opts []github.Option
		if cfg.GitHubBranch != "" {
			opts = append(opts, github.WithBranch(cfg.GitHubBranch))
		}
		return github.New(token, cfg.GitHubOwner, cfg.GitHubRepo, opts...), nil
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}

func (a *App) Cache() *cache.Cache       { return a.cache }
func (a *App) Queue() *queue.Queue       { return a.queue }
func (a *App) Journal() *journal.Journal { return a.journal }
func (a *App) Store() storage.Provider   { return a.store }

// Config returns the active configuration.
func (a *App) Config() models.Config {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cfg
}

// UpdateConfig applies fn to the stored configuration and saves it.
// Connection fields take effect on the next Connect or Resume.
func (a *App) UpdateConfig(fn func(*models.Config)) (models.Config, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	cfg, err := a.cache.Config()
	if err != nil {
		return models.Config{}, err
	}
	fn(&cfg)
	if err := a.cache.SaveConfig(cfg); err != nil {
		return models.Config{}, err
	}
	a.cfg = cfg
	return cfg, nil
}

// Connected reports whether a remote session is active.
func (a *App) Connected() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.engine != nil
}

// Connect validates cfg against the remote, pulls the current month and
// saves the configuration. The token goes to the OS keyring when one is
// available. Background sessions also start auto-sync.
func (a *App) Connect(ctx context.Context, cfg models.Config, token string) error {
	if token == "" {
		token = cfg.GitHubToken
	}
	cfg.GitHubToken = ""

	client, err := a.opts.NewClient(cfg, token)
	if err != nil {
		return err
	}
	if err := client.ValidateAccess(ctx); err != nil {
		return fmt.Errorf("failed to validate remote access: %w", err)
	}

	records := remote.NewRecords(client)
	if err := records.EnsureStructure(ctx); err != nil {
		return fmt.Errorf("failed to initialize remote store: %w", err)
	}

	engine := syncer.New(a.cache, a.queue, records, a.opts.Sync)
	current := utils.MonthKey(a.journal.Now())
	if _, err := engine.Pull(ctx, current); err != nil {
		logger.Warn("Failed to pull current month", "month", current, "error", err)
	}
	loadQueue(a.queue)

	if token != "" && cfg.EffectiveBackend() == models.BackendGitHub {
		if err := storeToken(token); err != nil {
			logger.Warn("OS keyring unavailable, storing token in local config", "error", err)
			cfg.GitHubToken = token
		}
	}
	if err := a.cache.SaveConfig(cfg); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	a.StopAutoSync()
	a.mu.Lock()
	a.cfg = cfg
	a.engine = engine
	a.mu.Unlock()
	logger.Info("Connected", "backend", cfg.EffectiveBackend(), "target", target(cfg))

	if a.opts.Background {
		if _, err := a.StartAutoSync(ctx); err != nil {
			return fmt.Errorf("failed to start auto-sync: %w", err)
		}
	}
	return nil
}

func storeToken(token string) error {
	if !keyring.IsAvailable() {
		return keyring.ErrKeyringUnavailable
	}
	return keyring.SetToken(token)
}

// Resume reconnects with the saved configuration. It reports false when
// nothing is configured.
func (a *App) Resume(ctx context.Context) (bool, error) {
	cfg, err := a.cache.Config()
	if err != nil {
		return false, err
	}
	if !cfg.HasRemote() {
		return false, nil
	}
	token, err := savedToken(cfg)
	if err != nil {
		return false, err
	}
	if err := a.Connect(ctx, cfg, token); err != nil {
		return false, err
	}
	return true, nil
}

// savedToken returns the token stored with cfg or, failing that, in the
// keyring.
func savedToken(cfg models.Config) (string, error) {
	if cfg.GitHubToken != "" || cfg.EffectiveBackend() != models.BackendGitHub {
		return cfg.GitHubToken, nil
	}
	token, err := keyring.GetToken()
	if err != nil {
		return "", fmt.Errorf("failed to read token: %w", err)
	}
	return token, nil
}

// CheckRemote validates access to the saved remote without connecting.
func (a *App) CheckRemote(ctx context.Context) error {
	cfg, err := a.cache.Config()
	if err != nil {
		return err
	}
	if !cfg.HasRemote() {
		return ErrNotConnected
	}
	token, err := savedToken(cfg)
	if err != nil {
		return err
	}
	client, err := a.opts.NewClient(cfg, token)
	if err != nil {
		return err
	}
	return client.ValidateAccess(ctx)
}

func (a *App) currentEngine() *syncer.Engine {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.engine
}

// Sync runs one sync pass.
func (a *App) Sync(ctx context.Context) syncer.Result {
	engine := a.currentEngine()
	if engine == nil {
		return syncer.Result{
			Message: "Not connected",
			Errors:  []syncer.ItemError{{Err: ErrNotConnected}},
		}
	}
	res := engine.Sync(ctx)
	if res.Success {
		if err := a.cache.SetPendingSync(false); err != nil {
			logger.Warn("Failed to clear pending sync marker", "error", err)
		}
	}
	return res
}

// Pull fetches a month from the remote into the cache without pushing.
func (a *App) Pull(ctx context.Context, monthKey string) (models.MonthRecord, error) {
	engine := a.currentEngine()
	if engine == nil {
		return models.MonthRecord{}, ErrNotConnected
	}
	return engine.Pull(ctx, monthKey)
}

// StartAutoSync runs timed syncs in the background until ctx ends or
// StopAutoSync is called. A sync left pending by Hide resumes shortly
// after start.
func (a *App) StartAutoSync(ctx context.Context) (*autosync.Scheduler, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.engine == nil {
		return nil, ErrNotConnected
	}
	if !a.cfg.AutoSyncEnabled() {
		return nil, nil
	}
	if a.scheduler != nil {
		return a.scheduler, nil
	}

	opts := []autosync.SchedulerOption{}
	if a.opts.AutoSyncInterval > 0 {
		opts = append(opts, autosync.WithInterval(a.opts.AutoSyncInterval))
	}
	if a.opts.ResumeDelay > 0 {
		opts = append(opts, autosync.WithResumeDelay(a.opts.ResumeDelay))
	}
	s := autosync.NewScheduler(a.autoSync, opts...)
	if err := s.Start(ctx); err != nil {
		return nil, err
	}
	a.scheduler = s

	if resumed, err := s.ResumePending(a.cache); err != nil {
		logger.Warn("Failed to read pending sync marker", "error", err)
	} else if resumed {
		logger.Info("Resuming sync left pending by the previous session")
	}
	return s, nil
}

// loadQueue merges the persisted queue into q. It reports false when the
// snapshot could not be read; malformed entries are only logged.
func loadQueue(q *queue.Queue) bool {
	err := q.Load()
	switch {
	case err == nil:
		return true
	case queue.IsLoadFailure(err):
		logger.Error("Pending changes could not be read", "error", err)
		return false
	}
	logger.Warn("Skipped malformed sync queue entries", "error", err)
	return true
}

func (a *App) autoSync(ctx context.Context) {
	if !loadQueue(a.queue) {
		return
	}
	if a.queue.Len() == 0 {
		logger.Debug("Auto-sync skipped, nothing queued")
		return
	}
	res := a.Sync(ctx)
	switch {
	case res.Busy:
		logger.Debug("Auto-sync skipped, a pass is already running")
	case res.Success:
		logger.Info("Auto-sync finished", "synced", res.Synced)
	default:
		logger.Warn("Auto-sync finished with errors", "synced", res.Synced, "errors", len(res.Errors))
	}
}

// TriggerSync asks the running scheduler for a pass. It reports false when
// auto-sync is not running.
func (a *App) TriggerSync() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.scheduler == nil {
		return false
	}
	a.scheduler.Trigger()
	return true
}

// StopAutoSync stops the scheduler and waits for an in-flight pass.
func (a *App) StopAutoSync() {
	a.mu.Lock()
	s := a.scheduler
	a.scheduler = nil
	a.mu.Unlock()

	// A running pass takes a.mu, so wait outside it.
	if s != nil {
		s.Stop()
	}
}

// Hide records that queued changes still need a sync, so the next start
// resumes it.
func (a *App) Hide() error {
	if a.queue.Len() == 0 {
		return nil
	}
	return a.cache.SetPendingSync(true)
}

// Logout stops auto-sync and forgets the credential and repository. Local
// records and queued changes are kept.
func (a *App) Logout() error {
	a.StopAutoSync()
	a.mu.Lock()
	a.engine = nil
	a.mu.Unlock()

	if err := keyring.DeleteToken(); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		logger.Warn("Failed to remove token from keyring", "error", err)
	}
	if err := a.cache.ClearCredentials(); err != nil {
		return fmt.Errorf("failed to clear credentials: %w", err)
	}
	cfg, err := a.cache.Config()
	if err != nil {
		return err
	}
	a.mu.Lock()
	a.cfg = cfg
	a.mu.Unlock()
	return nil
}

// Status reports the session state.
func (a *App) Status() (Status, error) {
	a.mu.Lock()
	cfg := a.cfg
	st := Status{
		Connected: a.engine != nil,
		Syncing:   a.engine != nil && a.engine.Running(),
		AutoSync:  a.scheduler != nil && a.scheduler.Running(),
	}
	a.mu.Unlock()

	if cfg.HasRemote() {
		st.Backend = cfg.EffectiveBackend()
		st.Target = target(cfg)
	}
	st.Pending = a.queue.Snapshot()

	last, ok, err := a.cache.LastSync()
	if err != nil {
		return Status{}, err
	}
	st.LastSync, st.HasSynced = last, ok

	st.UsedBytes, st.QuotaBytes, err = a.cache.Usage()
	if err != nil {
		return Status{}, err
	}
	return st, nil
}

func target(cfg models.Config) string {
	if cfg.EffectiveBackend() == models.BackendGit {
		if cfg.GitRemote != "" {
			return cfg.GitPath + " (" + cfg.GitRemote + ")"
		}
		return cfg.GitPath
	}
	t := cfg.GitHubOwner + "/" + cfg.GitHubRepo
	if cfg.GitHubBranch != "" {
		t += "@" + cfg.GitHubBranch
	}
	return t
}

// Assistant returns the configured text generator. The Anthropic key is
// read from ANTHROPIC_API_KEY.
func (a *App) Assistant() (assistant.Generator, error) {
	return assistant.FromConfig(a.Config(), os.Getenv("ANTHROPIC_API_KEY"))
}

// Close stops auto-sync and closes the store.
func (a *App) Close() error {
	a.StopAutoSync()
	return a.store.Close()
}
