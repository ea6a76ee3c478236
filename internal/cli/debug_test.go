package cli

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/julianstephens/daylog/internal/models"
	"github.com/julianstephens/daylog/internal/storage/sqlite"
)

func setupTestDB(t *testing.T) *Context {
	t.Helper()
	store := sqlite.NewStore(filepath.Join(t.TempDir(), "daylog.db"), 0)
	if err := store.Init(); err != nil {
		t.Fatalf("failed to initialize store: %v", err)
	}
	ctx := &Context{Store: store}
	t.Cleanup(func() { ctx.Close() })
	return ctx
}

// captureStdout runs fn and returns what it printed.
func captureStdout(t *testing.T, fn func() error) (string, error) {
	t.Helper()
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	orig := os.Stdout
	os.Stdout = w
	runErr := fn()
	os.Stdout = orig
	w.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("read stdout: %v", err)
	}
	return string(out), runErr
}

func TestDebugDBPathCmd(t *testing.T) {
	ctx := setupTestDB(t)

	out, err := captureStdout(t, func() error { return (&DebugDBPathCmd{}).Run(ctx) })
	if err != nil {
		t.Fatalf("debug db-path command failed: %v", err)
	}

	var got map[string]string
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if got["path"] != ctx.Store.GetConfigPath() {
		t.Errorf("path = %q, want %q", got["path"], ctx.Store.GetConfigPath())
	}
}

func TestDebugDumpMonthCmd(t *testing.T) {
	ctx := setupTestDB(t)

	add := &TaskAddCmd{Text: "write report", Date: "2026-02-03"}
	if _, err := captureStdout(t, func() error { return add.Run(ctx) }); err != nil {
		t.Fatalf("task add failed: %v", err)
	}

	out, err := captureStdout(t, func() error {
		return (&DebugDumpMonthCmd{Month: "2026-02"}).Run(ctx)
	})
	if err != nil {
		t.Fatalf("debug dump-month command failed: %v", err)
	}

	var m models.MonthRecord
	if err := json.Unmarshal([]byte(out), &m); err != nil {
		t.Fatalf("output is not a month record: %v\n%s", err, out)
	}
	day, ok := m.Entries["2026-02-03"]
	if !ok {
		t.Fatalf("dumped month has no entry for 2026-02-03: %s", out)
	}
	if len(day.Tasks) != 1 || day.Tasks[0].Text != "write report" {
		t.Errorf("unexpected tasks in dump: %+v", day.Tasks)
	}
}

func TestDebugDumpMonthCmd_InvalidMonth(t *testing.T) {
	ctx := setupTestDB(t)

	err := (&DebugDumpMonthCmd{Month: "not a month at all"}).Run(ctx)
	if err == nil {
		t.Fatal("expected error for invalid month")
	}
}

func TestDebugDumpQueueCmd(t *testing.T) {
	ctx := setupTestDB(t)

	out, err := captureStdout(t, func() error { return (&DebugDumpQueueCmd{}).Run(ctx) })
	if err != nil {
		t.Fatalf("debug dump-queue command failed: %v", err)
	}
	if !strings.Contains(out, `"pending": []`) {
		t.Errorf("empty queue should dump as an empty list, got:\n%s", out)
	}

	add := &TaskAddCmd{Text: "call the bank", Date: "2026-02-03"}
	if _, err := captureStdout(t, func() error { return add.Run(ctx) }); err != nil {
		t.Fatalf("task add failed: %v", err)
	}

	out, err = captureStdout(t, func() error { return (&DebugDumpQueueCmd{}).Run(ctx) })
	if err != nil {
		t.Fatalf("debug dump-queue command failed: %v", err)
	}
	var got struct {
		Pending []string `json:"pending"`
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if len(got.Pending) != 1 || got.Pending[0] != "month:2026-02" {
		t.Errorf("pending = %v, want [month:2026-02]", got.Pending)
	}
}
