package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gokeyring "github.com/zalando/go-keyring"

	"github.com/julianstephens/daylog/internal/keyring"
	"github.com/julianstephens/daylog/internal/models"
	"github.com/julianstephens/daylog/internal/queue"
	"github.com/julianstephens/daylog/internal/remote"
	"github.com/julianstephens/daylog/internal/remote/remotetest"
	"github.com/julianstephens/daylog/internal/storage"
)

var githubCfg = models.Config{
	Backend:     models.BackendGitHub,
	GitHubOwner: "octo",
	GitHubRepo:  "journal",
}

type fixture struct {
	store  storage.Provider
	remote *remotetest.Store
	tokens []string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gokeyring.MockInit()
	return &fixture{store: storage.NewMemoryStore(0), remote: remotetest.New()}
}

func (f *fixture) open(t *testing.T, opts Options) *App {
	t.Helper()
	opts.Timezone = "UTC"
	opts.NewClient = func(cfg models.Config, token string) (remote.Client, error) {
		f.tokens = append(f.tokens, token)
		return f.remote, nil
	}
	a, err := New(f.store, opts)
	require.NoError(t, err)
	t.Cleanup(a.StopAutoSync)
	return a
}

func TestConnectPullsAndSavesConfig(t *testing.T) {
	f := newFixture(t)
	current := time.Now().UTC().Format("2006-01")
	f.remote.PutJSON(remote.MonthPath(current), models.MonthRecord{
		Month:     current,
		UpdatedAt: "2026-01-01T00:00:00.000Z",
		Entries: map[string]models.DayRecord{
			current + "-01": {Work: "from another device", UpdatedAt: "2026-01-01T00:00:00.000Z"},
		},
	})

	a := f.open(t, Options{})
	require.NoError(t, a.Connect(context.Background(), githubCfg, "ghp_secret"))
	assert.True(t, a.Connected())

	_, ok := f.remote.Get(remote.ConfigPath)
	assert.True(t, ok, "remote structure not created")

	day, err := a.Journal().Day(current + "-01")
	require.NoError(t, err)
	assert.Equal(t, "from another device", day.Work)

	cfg, err := a.Cache().Config()
	require.NoError(t, err)
	assert.Equal(t, "octo", cfg.GitHubOwner)
	assert.Empty(t, cfg.GitHubToken, "token should live in the keyring")

	token, err := keyring.GetToken()
	require.NoError(t, err)
	assert.Equal(t, "ghp_secret", token)
}

func TestConnectFallsBackToConfigWithoutKeyring(t *testing.T) {
	f := newFixture(t)
	gokeyring.MockInitWithError(errors.New("no secret service"))

	a := f.open(t, Options{})
	require.NoError(t, a.Connect(context.Background(), githubCfg, "ghp_secret"))

	cfg, err := a.Cache().Config()
	require.NoError(t, err)
	assert.Equal(t, "ghp_secret", cfg.GitHubToken)
}

func TestConnectRejectsBadCredentials(t *testing.T) {
	f := newFixture(t)
	f.remote.AccessErr = remote.ErrAuth

	a := f.open(t, Options{})
	err := a.Connect(context.Background(), githubCfg, "bad")
	assert.ErrorIs(t, err, remote.ErrAuth)
	assert.False(t, a.Connected())
	assert.Zero(t, f.remote.Paths())

	cfg, err := a.Cache().Config()
	require.NoError(t, err)
	assert.False(t, cfg.HasRemote())
}

func TestSyncRequiresConnection(t *testing.T) {
	f := newFixture(t)
	a := f.open(t, Options{})

	res := a.Sync(context.Background())
	assert.False(t, res.Success)
	assert.Equal(t, "Not connected", res.Message)
	require.Len(t, res.Errors, 1)
	assert.ErrorIs(t, res.Errors[0], ErrNotConnected)

	_, err := a.Pull(context.Background(), "2026-02")
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestEditThenSync(t *testing.T) {
	f := newFixture(t)
	a := f.open(t, Options{})
	require.NoError(t, a.Connect(context.Background(), githubCfg, "tok"))

	require.NoError(t, a.Journal().SaveDay("2026-02-21", models.DayRecord{Work: "wrote tests"}))
	assert.Equal(t, []queue.Entry{{Type: queue.TypeMonth, Key: "2026-02"}}, a.Queue().Snapshot())

	res := a.Sync(context.Background())
	require.True(t, res.Success, res.Message)
	assert.Zero(t, a.Queue().Len())

	var m models.MonthRecord
	require.True(t, f.remote.GetJSON(remote.MonthPath("2026-02"), &m))
	assert.Equal(t, "wrote tests", m.Entries["2026-02-21"].Work)

	st, err := a.Status()
	require.NoError(t, err)
	assert.True(t, st.Connected)
	assert.True(t, st.HasSynced)
	assert.Empty(t, st.Pending)
	assert.Equal(t, "octo/journal", st.Target)
}

func TestHideMarksPendingOnlyWithQueuedChanges(t *testing.T) {
	f := newFixture(t)
	a := f.open(t, Options{})

	require.NoError(t, a.Hide())
	pending, err := a.Cache().PendingSync()
	require.NoError(t, err)
	assert.False(t, pending)

	require.NoError(t, a.Journal().SaveDay("2026-02-21", models.DayRecord{Work: "offline"}))
	require.NoError(t, a.Hide())
	pending, err = a.Cache().PendingSync()
	require.NoError(t, err)
	assert.True(t, pending)
}

func TestBackgroundSessionResumesPendingSync(t *testing.T) {
	f := newFixture(t)

	first := f.open(t, Options{})
	require.NoError(t, first.Journal().SaveDay("2026-02-21", models.DayRecord{Work: "left behind"}))
	require.NoError(t, first.Hide())

	second := f.open(t, Options{Background: true, ResumeDelay: 10 * time.Millisecond, AutoSyncInterval: time.Hour})
	require.NoError(t, second.Connect(context.Background(), githubCfg, "tok"))

	require.Eventually(t, func() bool {
		_, ok := f.remote.Get(remote.MonthPath("2026-02"))
		return ok
	}, 2*time.Second, 10*time.Millisecond)

	second.StopAutoSync()
	pending, err := second.Cache().PendingSync()
	require.NoError(t, err)
	assert.False(t, pending)
	assert.Zero(t, second.Queue().Len())
}

func TestResumeUsesSavedConfig(t *testing.T) {
	f := newFixture(t)

	fresh := f.open(t, Options{})
	ok, err := fresh.Resume(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, fresh.Connect(context.Background(), githubCfg, "ghp_saved"))

	again := f.open(t, Options{})
	ok, err = again.Resume(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, again.Connected())
	assert.Equal(t, []string{"ghp_saved", "ghp_saved"}, f.tokens)
}

func TestLogoutKeepsLocalData(t *testing.T) {
	f := newFixture(t)
	a := f.open(t, Options{})
	require.NoError(t, a.Connect(context.Background(), githubCfg, "tok"))
	require.NoError(t, a.Journal().SaveDay("2026-02-21", models.DayRecord{Work: "keep me"}))

	require.NoError(t, a.Logout())
	assert.False(t, a.Connected())
	assert.False(t, a.Config().HasRemote())

	_, err := keyring.GetToken()
	assert.ErrorIs(t, err, keyring.ErrNotFound)

	day, err := a.Journal().Day("2026-02-21")
	require.NoError(t, err)
	assert.Equal(t, "keep me", day.Work)
	assert.Equal(t, 1, a.Queue().Len())

	// A second logout with nothing stored is fine.
	assert.NoError(t, a.Logout())
}

func TestNewClientValidatesConfig(t *testing.T) {
	_, err := NewClient(githubCfg, "")
	assert.ErrorIs(t, err, ErrMissingToken)

	_, err = NewClient(models.Config{Backend: models.BackendGitHub, GitHubOwner: "octo"}, "tok")
	assert.Error(t, err)

	c, err := NewClient(githubCfg, "tok")
	require.NoError(t, err)
	assert.NotNil(t, c)

	_, err = NewClient(models.Config{Backend: models.BackendGit}, "")
	assert.Error(t, err)

	_, err = NewClient(models.Config{Backend: "svn"}, "")
	assert.Error(t, err)
}

func TestNewRejectsBadTimezone(t *testing.T) {
	_, err := New(storage.NewMemoryStore(0), Options{Timezone: "Mars/Olympus"})
	assert.Error(t, err)
}
