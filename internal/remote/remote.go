// Package remote defines the contract for the shared document store that
// journal records sync to, plus a typed layer mapping records onto paths.
//
// Implementations live in subpackages: github talks to the GitHub contents
// API and gitrepo works on a local git working tree.
package remote

import (
	"context"
	"fmt"
	"strings"
)

// Document is a stored file and the revision it was read at. The revision
// is opaque to callers and must be passed back unchanged on write.
type Document struct {
	Content  []byte
	Revision string
}

// Client is a path-addressed document store with optimistic concurrency.
type Client interface {
	// Read returns the document at path, or nil with a nil error when the
	// path does not exist.
	Read(ctx context.Context, path string) (*Document, error)

	// Write stores content at path. An empty revision creates the file; a
	// non-empty one must match the stored revision or ErrConflict is
	// returned. The new revision is returned.
	Write(ctx context.Context, path string, content []byte, revision, message string) (string, error)

	// Delete removes path if its revision matches.
	Delete(ctx context.Context, path, revision, message string) error

	// ValidateAccess checks that the store exists and is writable.
	ValidateAccess(ctx context.Context) error
}

// Refresher is implemented by clients holding a local copy that can fall
// behind the shared store.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// ConfigPath is the marker document created on first connect.
const ConfigPath = "data/config.json"

// MonthPath returns data/<year>/<month>.json for a YYYY-MM key.
func MonthPath(monthKey string) string {
	year, month, ok := strings.Cut(monthKey, "-")
	if !ok {
		return fmt.Sprintf("data/%s.json", monthKey)
	}
	return fmt.Sprintf("data/%s/%s.json", year, month)
}

// WeekPath returns data/weekly/<weekKey>.json.
func WeekPath(weekKey string) string {
	return "data/weekly/" + weekKey + ".json"
}

// MonthSummaryPath returns data/monthly/<monthKey>.json.
func MonthSummaryPath(monthKey string) string {
	return "data/monthly/" + monthKey + ".json"
}
