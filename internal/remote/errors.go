package remote

import (
	"errors"
	"fmt"
)

// Errors returned by remote operations. Check them with errors.Is.
var (
	// ErrNotFound is returned by ValidateAccess when the repository or
	// working tree does not exist. Reads of a missing document are not errors.
	ErrNotFound = errors.New("remote repository not found")

	// ErrAuth is returned when the credential is missing or rejected.
	ErrAuth = errors.New("remote authentication failed")

	// ErrPermission is returned when the credential cannot write.
	ErrPermission = errors.New("no write access to remote repository")

	// ErrConflict is returned when a write carries a stale revision.
	ErrConflict = errors.New("remote revision conflict")

	// ErrTransient covers network failures, rate limits and server errors.
	ErrTransient = errors.New("temporary remote failure")
)

// IsRetryable returns true if the error is likely to succeed on retry.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrTransient)
}

// IsFatal returns true if retrying cannot help until the user fixes the
// credential or repository access.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrAuth) || errors.Is(err, ErrPermission)
}

// StatusError carries the HTTP status and server message behind a
// categorized error.
type StatusError struct {
	Kind    error
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%v (status %d)", e.Kind, e.Status)
	}
	return fmt.Sprintf("%v (status %d): %s", e.Kind, e.Status, e.Message)
}

func (e *StatusError) Unwrap() error {
	return e.Kind
}
