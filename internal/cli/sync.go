package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/julianstephens/daylog/internal/app"
	apperrors "github.com/julianstephens/daylog/internal/errors"
	"github.com/julianstephens/daylog/internal/models"
	"github.com/julianstephens/daylog/internal/syncer"
	"github.com/julianstephens/daylog/internal/utils"
)

type ConnectCmd struct {
	Backend string `help:"Remote backend (github|git)." enum:"github,git" default:"github"`
	Owner   string `help:"GitHub repository owner."`
	Repo    string `help:"GitHub repository name."`
	Branch  string `help:"Branch to read and write (defaults to the repository's default branch)."`
	Token   string `help:"GitHub personal access token." env:"DAYLOG_GITHUB_TOKEN"`
	GitPath string `name:"git-path" help:"Path to a local git working tree (git backend)." type:"path"`
	Remote  string `help:"Git remote to push to and pull from (git backend)."`
	NoAuto  bool   `name:"no-auto-sync" help:"Disable background auto-sync."`
}

func (c *ConnectCmd) Run(ctx *Context) error {
	a, err := ctx.App()
	if err != nil {
		return err
	}

	cfg := a.Config()
	cfg.Backend = models.Backend(c.Backend)
	if c.NoAuto {
		off := false
		cfg.AutoSync = &off
	}

	token := c.Token
	switch cfg.Backend {
	case models.BackendGit:
		if c.GitPath == "" {
			return errors.New("--git-path is required for the git backend")
		}
		cfg.GitPath = c.GitPath
		cfg.GitRemote = c.Remote
	default:
		cfg.GitHubOwner = c.Owner
		cfg.GitHubRepo = c.Repo
		cfg.GitHubBranch = c.Branch
		if cfg.GitHubOwner == "" || cfg.GitHubRepo == "" || token == "" {
			if !isatty.IsTerminal(os.Stdin.Fd()) {
				return errors.New("--owner, --repo and --token are required when not running interactively")
			}
			if err := promptGitHub(&cfg, &token); err != nil {
				return err
			}
		}
	}

	fmt.Println("Connecting...")
	if err := a.Connect(ctx.context(), cfg, token); err != nil {
		return err
	}

	cfg = a.Config()
	fmt.Printf("✓ Connected to %s\n", describeTarget(cfg))
	if cfg.GitHubToken != "" {
		fmt.Println(warnStyle.Render("Note: the OS keyring is unavailable, so the token is stored in the local database."))
	}
	if n := a.Queue().Len(); n > 0 {
		fmt.Printf("%d pending change(s). Run 'daylog sync' to push them.\n", n)
	}
	return nil
}

func promptGitHub(cfg *models.Config, token *string) error {
	notEmpty := func(s string) error {
		if strings.TrimSpace(s) == "" {
			return errors.New("required")
		}
		return nil
	}
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Repository owner").
				Value(&cfg.GitHubOwner).
				Validate(notEmpty),
			huh.NewInput().
				Title("Repository name").
				Description("A private repository is recommended.").
				Value(&cfg.GitHubRepo).
				Validate(notEmpty),
			huh.NewInput().
				Title("Personal access token").
				Description("Needs contents read/write access.").
				EchoMode(huh.EchoModePassword).
				Value(token).
				Validate(notEmpty),
		),
	)
	if err := form.Run(); err != nil {
		return fmt.Errorf("connection cancelled: %w", err)
	}
	cfg.GitHubOwner = strings.TrimSpace(cfg.GitHubOwner)
	cfg.GitHubRepo = strings.TrimSpace(cfg.GitHubRepo)
	*token = strings.TrimSpace(*token)
	return nil
}

func describeTarget(cfg models.Config) string {
	if cfg.EffectiveBackend() == models.BackendGit {
		if cfg.GitRemote != "" {
			return fmt.Sprintf("git repository %s (remote %s)", cfg.GitPath, cfg.GitRemote)
		}
		return "git repository " + cfg.GitPath
	}
	s := fmt.Sprintf("github.com/%s/%s", cfg.GitHubOwner, cfg.GitHubRepo)
	if cfg.GitHubBranch != "" {
		s += " (" + cfg.GitHubBranch + ")"
	}
	return s
}

type LogoutCmd struct{}

func (c *LogoutCmd) Run(ctx *Context) error {
	a, err := ctx.App()
	if err != nil {
		return err
	}
	if err := a.Logout(); err != nil {
		return err
	}
	fmt.Println("✓ Logged out. Local entries are kept.")
	if n := a.Queue().Len(); n > 0 {
		fmt.Printf("%d change(s) are still queued and will sync after the next connect.\n", n)
	}
	return nil
}

type SyncCmd struct{}

func (c *SyncCmd) Run(ctx *Context) error {
	a, err := ctx.Connected()
	if err != nil {
		return err
	}
	res := a.Sync(ctx.context())
	printResult(res)
	if !res.Success && !res.Busy {
		return fmt.Errorf("%d item(s) failed to sync", len(res.Errors))
	}
	return nil
}

func printResult(res syncer.Result) {
	switch {
	case res.Busy:
		fmt.Println(warnStyle.Render(res.Message))
	case res.Success:
		fmt.Println(okStyle.Render("✓ " + res.Message))
		if res.Synced > 0 {
			fmt.Printf("  %d item(s) synced\n", res.Synced)
		}
	default:
		fmt.Println(errStyle.Render("✗ " + res.Message))
		for _, e := range res.Errors {
			label := "sync"
			if e.Entry.Key != "" {
				label = e.Entry.String()
			}
			fmt.Printf("  %s: %s\n", label, apperrors.UserMessage(e.Err))
		}
	}
}

type PullCmd struct {
	Month string `help:"Month to pull (YYYY-MM or a date expression)." default:"today"`
}

func (c *PullCmd) Run(ctx *Context) error {
	a, err := ctx.Connected()
	if err != nil {
		return err
	}
	month, err := monthOf(a, c.Month)
	if err != nil {
		return err
	}
	key := utils.MonthKey(month)
	m, err := a.Pull(ctx.context(), key)
	if err != nil {
		return err
	}
	fmt.Printf("✓ Pulled %s (%d day(s))\n", key, len(m.Entries))
	return nil
}

type StatusCmd struct{}

func (c *StatusCmd) Run(ctx *Context) error {
	a, err := ctx.App()
	if err != nil {
		return err
	}
	st, err := a.Status()
	if err != nil {
		return err
	}
	fmt.Println(renderStatus(st, ctx.Store.GetConfigPath()))
	return nil
}

func renderStatus(st app.Status, dbPath string) string {
	remoteLine := warnStyle.Render("not configured")
	if st.Target != "" {
		remoteLine = fmt.Sprintf("%s (%s)", st.Target, st.Backend)
	}

	last := warnStyle.Render("never")
	if st.HasSynced {
		last = st.LastSync.Local().Format("2006-01-02 15:04") + " (" + ago(time.Since(st.LastSync)) + ")"
	}

	pending := okStyle.Render("none")
	if n := len(st.Pending); n > 0 {
		keys := make([]string, 0, n)
		for _, e := range st.Pending {
			keys = append(keys, e.String())
		}
		pending = warnStyle.Render(fmt.Sprintf("%d", n)) + " " + strings.Join(keys, ", ")
	}

	usage := fmt.Sprintf("%.1f KB", float64(st.UsedBytes)/1024)
	if st.QuotaBytes > 0 {
		usage += fmt.Sprintf(" of %.1f KB", float64(st.QuotaBytes)/1024)
	}

	body := lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("daylog"),
		"",
		row("Database", dbPath),
		row("Remote", remoteLine),
		row("Last sync", last),
		row("Pending", pending),
		row("Storage", usage),
	)
	return boxStyle.Render(body)
}

func ago(d time.Duration) string {
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 48*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}
