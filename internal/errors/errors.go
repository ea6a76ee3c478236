package errors

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/julianstephens/daylog/internal/app"
	"github.com/julianstephens/daylog/internal/assistant"
	"github.com/julianstephens/daylog/internal/cache"
	"github.com/julianstephens/daylog/internal/journal"
	"github.com/julianstephens/daylog/internal/keyring"
	"github.com/julianstephens/daylog/internal/logger"
	"github.com/julianstephens/daylog/internal/migration"
	"github.com/julianstephens/daylog/internal/remote"
	"github.com/julianstephens/daylog/internal/remote/gitrepo"
	"github.com/julianstephens/daylog/internal/storage"
	"github.com/julianstephens/daylog/internal/syncer"
	"github.com/julianstephens/daylog/internal/validation"
)

// UserMessage maps known failures to a short explanation so transport
// details stay in the log. Anything unrecognized is logged and reported
// with a generic message.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if msg, ok := knownMessage(err); ok {
		return msg
	}
	logger.Warn("Unclassified failure", "error", err)
	return "something went wrong, " + seeLog()
}

func knownMessage(err error) (string, bool) {
	switch {
	case errors.Is(err, remote.ErrAuth):
		return "authentication failed, check your access token", true
	case errors.Is(err, remote.ErrPermission):
		return "the token does not have write access to the repository", true
	case errors.Is(err, remote.ErrNotFound):
		return "repository not found, check the owner and name (or the git path)", true
	case errors.Is(err, remote.ErrConflict):
		return "the remote changed while syncing, run sync again", true
	case errors.Is(err, remote.ErrTransient):
		return "the remote could not be reached, changes stay queued for the next sync", true
	case errors.Is(err, storage.ErrQuotaExceeded):
		return "local storage is full, sync and free some space before saving again", true
	case errors.Is(err, cache.ErrSerialization):
		return "could not save data locally", true
	case errors.Is(err, storage.ErrNotInitialized):
		return "local storage is not initialized, run 'daylog init'", true
	case errors.Is(err, migration.ErrSchemaTooNew):
		return "the database was written by a newer version of daylog, upgrade to open it", true
	case errors.Is(err, migration.ErrSchemaBehind):
		return "the database needs to be upgraded, run 'daylog init'", true
	case errors.Is(err, gitrepo.ErrGitNotAvailable):
		return "git is not installed or not in PATH", true
	case errors.Is(err, gitrepo.ErrGitFailed):
		return "a git command failed, " + seeLog(), true
	case errors.Is(err, keyring.ErrKeyringUnavailable):
		return "the OS keyring is not available", true
	case errors.Is(err, assistant.ErrUnavailable):
		return "the assistant is not available, is Ollama running?", true
	case errors.Is(err, context.DeadlineExceeded):
		return "the operation timed out", true
	case errors.Is(err, validation.ErrInvalidRecord),
		errors.Is(err, app.ErrNotConnected),
		errors.Is(err, app.ErrMissingToken),
		errors.Is(err, syncer.ErrBusy),
		errors.Is(err, journal.ErrTaskNotFound),
		errors.Is(err, journal.ErrExerciseNotFound):
		return err.Error(), true
	}
	return "", false
}

func seeLog() string {
	if f := logger.File(); f != "" {
		return "see the log at " + f
	}
	return "run with --debug for details"
}

// Format formats an error message with a consistent "Error: " prefix.
// Known failures use their short explanation; errors raised by a command
// itself are shown as they are.
func Format(err error) string {
	if err == nil {
		return ""
	}
	msg, ok := knownMessage(err)
	if !ok {
		msg = err.Error()
	}
	return "Error: " + msg
}

// Formatf formats an error message with a consistent "Error: " prefix using a format string
func Formatf(format string, args ...interface{}) string {
	return fmt.Sprintf("Error: "+format, args...)
}

// Fatal logs an error and exits the program with exit code 1
func Fatal(err error) {
	if err != nil {
		logger.Error("Command execution failed", "error", err)
		fmt.Fprintf(os.Stderr, "%s\n", Format(err))
		os.Exit(1)
	}
}

// Fatalf logs and formats an error message, then exits the program with exit code 1
func Fatalf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	logger.Error("Command execution failed", "error", msg)
	fmt.Fprintf(os.Stderr, "%s\n", Formatf(format, args...))
	os.Exit(1)
}
