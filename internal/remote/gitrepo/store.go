// Package gitrepo implements remote.Client on a local git working tree.
//
// Each write commits the changed file; when a remote is configured the
// commit is pushed and Refresh fast-forwards from it. Revisions are git
// blob hashes, so they match the sha GitHub reports for the same content.
package gitrepo

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/julianstephens/daylog/internal/logger"
	"github.com/julianstephens/daylog/internal/remote"
)

// ErrGitNotAvailable is returned when the git binary is not in PATH.
var ErrGitNotAvailable = errors.New("git binary not available")

// ErrGitFailed wraps a git command that exited with an error. The command
// output is kept in the error text for the log.
var ErrGitFailed = errors.New("git command failed")

const (
	fallbackName  = "daylog"
	fallbackEmail = "daylog@localhost"
)

// Store is a remote.Client over the working tree at dir.
type Store struct {
	dir    string
	remote string

	// mu serializes git invocations; the index is not safe for concurrent use.
	mu  sync.Mutex
	env []string
}

var (
	_ remote.Client    = (*Store)(nil)
	_ remote.Refresher = (*Store)(nil)
)

// Option configures a Store.
type Option func(*Store)

// WithRemote pushes every commit to the named remote and pulls from it on
// Refresh.
func WithRemote(name string) Option {
	return func(s *Store) { s.remote = name }
}

// New opens the working tree containing dir.
func New(dir string, opts ...Option) (*Store, error) {
	if _, err := exec.LookPath("git"); err != nil {
		return nil, ErrGitNotAvailable
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", dir, err)
	}
	s := &Store{dir: abs}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// InitRepo creates a git repository at dir if none exists. New branches
// are named main.
func InitRepo(ctx context.Context, dir string) error {
	if _, err := exec.LookPath("git"); err != nil {
		return ErrGitNotAvailable
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}
	if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
		return nil
	}
	s := &Store{dir: dir}
	if _, err := s.git(ctx, "init", "-q"); err != nil {
		return err
	}
	_, err := s.git(ctx, "symbolic-ref", "HEAD", "refs/heads/main")
	return err
}

// BlobHash returns the git object id of content stored as a blob.
func BlobHash(content []byte) string {
	h := sha1.New()
	fmt.Fprintf(h, "blob %d\x00", len(content))
	h.Write(content)
	return hex.EncodeToString(h.Sum(nil))
}

// Dir returns the working tree root.
func (s *Store) Dir() string {
	return s.dir
}

// git runs a git command in the working tree.
func (s *Store) git(ctx context.Context, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = s.dir
	cmd.Env = append(os.Environ(), s.env...)

	output, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() != nil {
			return output, ctx.Err()
		}
		return output, fmt.Errorf("%w: git %s: %w\n%s",
			ErrGitFailed, strings.Join(args, " "), err, strings.TrimSpace(string(output)))
	}
	return output, nil
}

// ensureIdentity supplies a committer identity when git has none configured.
func (s *Store) ensureIdentity(ctx context.Context) {
	if s.env != nil {
		return
	}
	s.env = []string{}
	if out, err := s.git(ctx, "config", "user.email"); err == nil && strings.TrimSpace(string(out)) != "" {
		return
	}
	s.env = []string{
		"GIT_AUTHOR_NAME=" + fallbackName,
		"GIT_AUTHOR_EMAIL=" + fallbackEmail,
		"GIT_COMMITTER_NAME=" + fallbackName,
		"GIT_COMMITTER_EMAIL=" + fallbackEmail,
	}
}

func (s *Store) abs(path string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(path))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes the repository", path)
	}
	return filepath.Join(s.dir, clean), nil
}

// current returns the file content and revision at path, or "" when absent.
func (s *Store) current(path string) ([]byte, string, error) {
	full, err := s.abs(path)
	if err != nil {
		return nil, "", err
	}
	data, err := os.ReadFile(full)
	if errors.Is(err, os.ErrNotExist) {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, BlobHash(data), nil
}

func (s *Store) Read(ctx context.Context, path string) (*remote.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	data, rev, err := s.current(path)
	if err != nil || rev == "" {
		return nil, err
	}
	return &remote.Document{Content: data, Revision: rev}, nil
}

func (s *Store) Write(ctx context.Context, path string, content []byte, revision, message string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, cur, err := s.current(path)
	if err != nil {
		return "", err
	}
	if err := checkRevision(path, cur, revision); err != nil {
		return "", err
	}

	next := BlobHash(content)
	if next != cur || s.dirty(ctx, path) {
		full, _ := s.abs(path)
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			return "", fmt.Errorf("failed to create directory for %s: %w", path, err)
		}
		if err := os.WriteFile(full, content, 0o644); err != nil {
			return "", fmt.Errorf("failed to write %s: %w", path, err)
		}
		if err := s.commit(ctx, message, "add", "--", filepath.ToSlash(path)); err != nil {
			return "", err
		}
	}
	if err := s.push(ctx); err != nil {
		return "", err
	}
	return next, nil
}

func (s *Store) Delete(ctx context.Context, path, revision, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, cur, err := s.current(path)
	if err != nil {
		return err
	}
	if cur == "" {
		return nil
	}
	if cur != revision {
		return fmt.Errorf("%w: %s is not at revision %s", remote.ErrConflict, path, revision)
	}
	if err := s.commit(ctx, message, "rm", "-q", "--", filepath.ToSlash(path)); err != nil {
		return err
	}
	return s.push(ctx)
}

// ValidateAccess checks that dir is a writable working tree and, when a
// remote is configured, that it can be reached.
func (s *Store) ValidateAccess(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	info, err := os.Stat(s.dir)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("%w: %s", remote.ErrNotFound, s.dir)
	}
	if out, err := s.git(ctx, "rev-parse", "--is-inside-work-tree"); err != nil || strings.TrimSpace(string(out)) != "true" {
		return fmt.Errorf("%w: %s is not a git working tree", remote.ErrNotFound, s.dir)
	}

	probe, err := os.CreateTemp(s.dir, ".daylog-probe-*")
	if err != nil {
		return fmt.Errorf("%w: %s: %v", remote.ErrPermission, s.dir, err)
	}
	probe.Close()
	os.Remove(probe.Name())

	if s.remote == "" {
		return nil
	}
	if out, err := s.git(ctx, "ls-remote", "--heads", s.remote); err != nil {
		return classifyRemoteError(string(out), err)
	}
	return nil
}

// Refresh fetches the remote and fast-forwards the current branch. It is a
// no-op without a remote or when the remote branch does not exist yet.
func (s *Store) Refresh(ctx context.Context) error {
	if s.remote == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	branch, err := s.branch(ctx)
	if err != nil {
		return err
	}
	if out, err := s.git(ctx, "fetch", "-q", s.remote); err != nil {
		return classifyRemoteError(string(out), err)
	}
	tracking := s.remote + "/" + branch
	if _, err := s.git(ctx, "rev-parse", "--verify", "-q", "refs/remotes/"+tracking); err != nil {
		logger.Debug("Remote branch not found, nothing to refresh", "ref", tracking)
		return nil
	}
	if out, err := s.git(ctx, "merge", "--ff-only", "-q", tracking); err != nil {
		return fmt.Errorf("%w: cannot fast-forward to %s: %s", remote.ErrTransient, tracking, strings.TrimSpace(string(out)))
	}
	return nil
}

func (s *Store) branch(ctx context.Context) (string, error) {
	out, err := s.git(ctx, "symbolic-ref", "--short", "HEAD")
	if err != nil {
		return "", fmt.Errorf("working tree is not on a branch: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}

// commit stages a change with the given git subcommand and commits it.
func (s *Store) commit(ctx context.Context, message string, stage ...string) error {
	s.ensureIdentity(ctx)
	if _, err := s.git(ctx, stage...); err != nil {
		return err
	}
	if _, err := s.git(ctx, "commit", "-q", "-m", message); err != nil {
		return err
	}
	return nil
}

// push sends local commits to the remote. A rejected push leaves the
// commit in place to be pushed by the next pass.
func (s *Store) push(ctx context.Context) error {
	if s.remote == "" {
		return nil
	}
	out, err := s.git(ctx, "push", "-q", s.remote, "HEAD")
	if err != nil {
		logger.Warn("Push failed, commit kept locally", "remote", s.remote, "error", err)
		return classifyRemoteError(string(out), err)
	}
	return nil
}

// dirty reports whether path has uncommitted changes, e.g. after a commit
// that failed.
func (s *Store) dirty(ctx context.Context, path string) bool {
	out, err := s.git(ctx, "status", "--porcelain", "--", filepath.ToSlash(path))
	return err == nil && len(strings.TrimSpace(string(out))) > 0
}

func checkRevision(path, cur, revision string) error {
	switch {
	case revision == "" && cur != "":
		return fmt.Errorf("%w: %s already exists", remote.ErrConflict, path)
	case revision != "" && cur != revision:
		return fmt.Errorf("%w: %s is not at revision %s", remote.ErrConflict, path, revision)
	}
	return nil
}

func classifyRemoteError(output string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	lower := strings.ToLower(output)
	switch {
	case strings.Contains(lower, "authentication failed"),
		strings.Contains(lower, "could not read username"),
		strings.Contains(lower, "permission denied (publickey)"):
		return fmt.Errorf("%w: %s", remote.ErrAuth, strings.TrimSpace(output))
	case strings.Contains(lower, "permission to") && strings.Contains(lower, "denied"):
		return fmt.Errorf("%w: %s", remote.ErrPermission, strings.TrimSpace(output))
	}
	return fmt.Errorf("%w: %v", remote.ErrTransient, err)
}
