package autosync

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/go-ps"

	"github.com/julianstephens/daylog/internal/constants"
	"github.com/julianstephens/daylog/internal/logger"
)

var (
	findProcessFunc = ps.FindProcess
	getPIDFunc      = os.Getpid
)

// LockedError reports a live process already holding the lock.
type LockedError struct {
	PID       int
	StartedAt time.Time
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("another %s watch is running (pid %d, since %s)",
		constants.AppName, e.PID, e.StartedAt.Local().Format(time.DateTime))
}

// Lock is a pid lockfile written as "pid|startedAt". A lockfile whose
// process is gone, or belongs to another program, is stale and replaced.
type Lock struct {
	path string
	held bool
}

func NewLock(dir string) *Lock {
	return &Lock{path: filepath.Join(dir, constants.DefaultWatchLockfile)}
}

// Path returns the lockfile location.
func (l *Lock) Path() string {
	return l.path
}

// Acquire takes the lock or returns a *LockedError.
func (l *Lock) Acquire() error {
	if holder, err := l.holder(); err == nil {
		return holder
	} else if !errors.Is(err, os.ErrNotExist) {
		logger.Warn("Replacing stale watch lockfile", "path", l.path, "reason", err)
	}

	if err := os.MkdirAll(filepath.Dir(l.path), 0o700); err != nil {
		return fmt.Errorf("failed to create lock directory: %w", err)
	}
	content := fmt.Sprintf("%d|%s", getPIDFunc(), time.Now().UTC().Format(time.RFC3339))
	if err := os.WriteFile(l.path, []byte(content), 0o600); err != nil {
		return fmt.Errorf("failed to write lockfile: %w", err)
	}
	l.held = true
	return nil
}

// Release removes the lockfile if this Lock wrote it.
func (l *Lock) Release() error {
	if !l.held {
		return nil
	}
	l.held = false
	pid, _, err := readLockfile(l.path)
	if err != nil || pid != getPIDFunc() {
		return nil
	}
	if err := os.Remove(l.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove lockfile: %w", err)
	}
	return nil
}

// holder returns the live process holding the lock. Any error means the
// lock is free; os.ErrNotExist means there was no lockfile at all.
func (l *Lock) holder() (*LockedError, error) {
	pid, startedAt, err := readLockfile(l.path)
	if err != nil {
		return nil, err
	}

	process, err := findProcessFunc(pid)
	if err != nil || process == nil {
		return nil, fmt.Errorf("process %d is not running", pid)
	}
	if !strings.HasPrefix(process.Executable(), constants.AppName) {
		return nil, fmt.Errorf("process %d is %s", pid, process.Executable())
	}
	return &LockedError{PID: pid, StartedAt: startedAt}, nil
}

func readLockfile(path string) (int, time.Time, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return 0, time.Time{}, err
	}

	parts := strings.Split(strings.TrimSpace(string(content)), "|")
	if len(parts) != 2 {
		return 0, time.Time{}, errors.New("lockfile is malformed")
	}
	pid, err := strconv.Atoi(parts[0])
	if err != nil || pid <= 0 {
		return 0, time.Time{}, errors.New("invalid process ID in lockfile")
	}
	startedAt, err := time.Parse(time.RFC3339, parts[1])
	if err != nil {
		return 0, time.Time{}, errors.New("invalid start time in lockfile")
	}
	return pid, startedAt, nil
}
