package e2e

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// device is one installation of daylog with its own database and working
// tree, sharing a bare repository with other devices.
type device struct {
	name string
	db   string
	tree string
}

func TestTwoDeviceSyncWorkflow(t *testing.T) {
	// 1. Setup Environment
	cliPath := findBinary(t)
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}

	tempDir := t.TempDir()
	t.Logf("Running test in temp dir: %s", tempDir)
	env := isolatedEnv(tempDir)

	bare := filepath.Join(tempDir, "journal.git")
	runGit(t, env, tempDir, "init", "-q", "--bare", bare)
	runGit(t, env, bare, "symbolic-ref", "HEAD", "refs/heads/main")

	laptop := device{
		name: "laptop",
		db:   filepath.Join(tempDir, "laptop", "daylog.db"),
		tree: filepath.Join(tempDir, "laptop", "journal"),
	}
	if err := os.MkdirAll(laptop.tree, 0o755); err != nil {
		t.Fatalf("Failed to create %s: %v", laptop.tree, err)
	}
	runGit(t, env, laptop.tree, "init", "-q")
	runGit(t, env, laptop.tree, "symbolic-ref", "HEAD", "refs/heads/main")
	runGit(t, env, laptop.tree, "remote", "add", "origin", bare)

	// 2. First device records a task and pushes it
	t.Log("Initializing laptop...")
	run(t, cliPath, env, laptop, "init")
	run(t, cliPath, env, laptop, "connect", "--backend", "git", "--git-path", laptop.tree, "--remote", "origin", "--no-auto-sync")
	run(t, cliPath, env, laptop, "task", "add", "written on the laptop")

	out := run(t, cliPath, env, laptop, "status")
	if !strings.Contains(out, "month:") {
		t.Errorf("expected a pending month before sync, got:\n%s", out)
	}
	out = run(t, cliPath, env, laptop, "sync")
	t.Logf("Sync output: %s", out)

	// 3. Second device clones and sees it on connect
	phone := device{
		name: "phone",
		db:   filepath.Join(tempDir, "phone", "daylog.db"),
		tree: filepath.Join(tempDir, "phone", "journal"),
	}
	runGit(t, env, tempDir, "clone", "-q", bare, phone.tree)

	t.Log("Initializing phone...")
	run(t, cliPath, env, phone, "init")
	run(t, cliPath, env, phone, "connect", "--backend", "git", "--git-path", phone.tree, "--remote", "origin", "--no-auto-sync")

	out = run(t, cliPath, env, phone, "day", "show")
	if !strings.Contains(out, "written on the laptop") {
		t.Fatalf("phone did not receive the laptop's task:\n%s", out)
	}

	// 4. Edits flow back the other way
	run(t, cliPath, env, phone, "task", "add", "written on the phone")
	run(t, cliPath, env, phone, "sync")

	run(t, cliPath, env, laptop, "pull")
	out = run(t, cliPath, env, laptop, "day", "show")
	for _, want := range []string{"written on the laptop", "written on the phone"} {
		if !strings.Contains(out, want) {
			t.Errorf("laptop is missing %q after pull:\n%s", want, out)
		}
	}

	// 5. Health checks pass offline on both devices
	run(t, cliPath, env, laptop, "doctor", "--offline")
	run(t, cliPath, env, phone, "doctor", "--offline")
}

func findBinary(t *testing.T) string {
	t.Helper()
	binDir := os.Getenv("DAYLOG_BIN_DIR")
	if binDir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			t.Fatalf("Failed to get cwd: %v", err)
		}
		binDir = filepath.Join(cwd, "..", "..", "bin")
	}
	binDir, _ = filepath.Abs(binDir)

	cliPath := filepath.Join(binDir, "daylog")
	if _, err := os.Stat(cliPath); os.IsNotExist(err) {
		t.Skipf("CLI binary not found at %s. Build it with 'go build -o bin/daylog ./cmd/daylog'.", cliPath)
	}
	t.Logf("Using binary: %s", cliPath)
	return cliPath
}

// isolatedEnv points HOME and XDG dirs at tempDir so no user config leaks in.
func isolatedEnv(tempDir string) []string {
	var env []string
	for _, e := range os.Environ() {
		if strings.HasPrefix(e, "HOME=") || strings.HasPrefix(e, "XDG_CONFIG_HOME=") || strings.HasPrefix(e, "DAYLOG_") {
			continue
		}
		env = append(env, e)
	}
	return append(env,
		fmt.Sprintf("HOME=%s", tempDir),
		fmt.Sprintf("XDG_CONFIG_HOME=%s", tempDir),
		"DAYLOG_TZ=UTC",
		"GIT_CONFIG_NOSYSTEM=1",
	)
}

func run(t *testing.T, path string, env []string, d device, args ...string) string {
	t.Helper()
	cmd := exec.Command(path, append([]string{"--db", d.db}, args...)...)
	cmd.Env = env
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("[%s] daylog %v failed: %v\nOutput: %s", d.name, args, err, out)
	}
	return string(out)
}

func runGit(t *testing.T, env []string, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	cmd.Env = env
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("git %v failed: %v\nOutput: %s", args, err, out)
	}
}
