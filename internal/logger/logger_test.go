package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestInit(t *testing.T) {
	configDir := filepath.Join(t.TempDir(), "config")

	if err := Init(Config{ConfigDir: configDir}); err != nil {
		t.Fatalf("Failed to initialize logger: %v", err)
	}

	want := filepath.Join(configDir, "logs", "daylog.log")
	if File() != want {
		t.Errorf("File() = %q, want %q", File(), want)
	}

	Debug("Test debug message")
	Info("Test info message")
	Warn("Test warning message", "key", "month:2026-02")
	Error("Test error message")

	data, err := os.ReadFile(want)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}
	out := string(data)
	if !strings.Contains(out, "month:2026-02") {
		t.Errorf("warning missing from log file:\n%s", out)
	}
	if strings.Contains(out, "Test info message") {
		t.Errorf("info should be filtered at the default level:\n%s", out)
	}
}

func TestInitDebugMode(t *testing.T) {
	configDir := filepath.Join(t.TempDir(), "config")

	if err := Init(Config{Debug: true, Quiet: true, ConfigDir: configDir}); err != nil {
		t.Fatalf("Failed to initialize logger in debug mode: %v", err)
	}

	Debug("sync pass started", "entries", 3)

	data, err := os.ReadFile(File())
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}
	if !strings.Contains(string(data), "sync pass started") {
		t.Error("Expected debug message to be written to the log file")
	}
}

func TestInitLevel(t *testing.T) {
	if err := Init(Config{Level: "info", ConfigDir: t.TempDir()}); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	Info("connected", "backend", "git")

	data, err := os.ReadFile(File())
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}
	if !strings.Contains(string(data), "connected") {
		t.Error("info message should be logged at level info")
	}

	if err := Init(Config{Level: "loud", ConfigDir: t.TempDir()}); err == nil {
		t.Error("expected an error for an unknown level")
	}
}

func TestLogFunctionsWithoutInit(t *testing.T) {
	if Logger == nil {
		t.Fatal("Logger must have a default")
	}
	Debug("Test debug message")
	Warn("Test warning message")
	if With("component", "syncer") == nil {
		t.Error("With() returned nil")
	}
}
