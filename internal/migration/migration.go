// Package migration applies the numbered SQL files that define the local
// key/value schema and records the applied version in schema_version.
package migration

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strconv"
	"strings"
)

var (
	// ErrSchemaTooNew means the database was migrated by a newer daylog.
	ErrSchemaTooNew = errors.New("database schema is newer than this version of daylog supports")
	// ErrSchemaBehind means migrations are pending; 'daylog init' applies them.
	ErrSchemaBehind = errors.New("database schema is out of date, run 'daylog init'")
)

// Driver identifies the SQL dialect a Runner targets.
type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

type Migration struct {
	Version int
	Name    string
	SQL     string
}

// Status is the applied and newest available schema version.
type Status struct {
	Current int
	Latest  int
}

// UpToDate reports whether nothing is pending and the schema is not ahead.
func (s Status) UpToDate() bool { return s.Current == s.Latest }

// Err returns nil when the schema matches, or a wrapped ErrSchemaTooNew or
// ErrSchemaBehind.
func (s Status) Err() error {
	switch {
	case s.Current > s.Latest:
		return fmt.Errorf("%w (database %d, supported %d)", ErrSchemaTooNew, s.Current, s.Latest)
	case s.Current < s.Latest:
		return fmt.Errorf("%w (database %d, latest %d)", ErrSchemaBehind, s.Current, s.Latest)
	}
	return nil
}

// Runner reads NNN_name.sql files from an fs.FS.
type Runner struct {
	db     *sql.DB
	fs     fs.FS
	driver Driver
}

func NewRunner(db *sql.DB, migrationFS fs.FS, driver Driver) *Runner {
	return &Runner{db: db, fs: migrationFS, driver: driver}
}

func (r *Runner) placeholder(n int) string {
	if r.driver == DriverPostgres {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

func (r *Runner) ensureVersionTable() error {
	_, err := r.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (version INTEGER PRIMARY KEY)`)
	if err != nil {
		return fmt.Errorf("failed to create schema_version table: %w", err)
	}
	return nil
}

// Current returns the applied version, 0 for a fresh database.
func (r *Runner) Current() (int, error) {
	if err := r.ensureVersionTable(); err != nil {
		return 0, err
	}
	var version int
	err := r.db.QueryRow("SELECT version FROM schema_version").Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return version, nil
}

// SetVersion overwrites the recorded version without running any SQL.
func (r *Runner) SetVersion(version int) error {
	if err := r.ensureVersionTable(); err != nil {
		return err
	}
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := r.writeVersion(tx, version); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *Runner) writeVersion(tx *sql.Tx, version int) error {
	if _, err := tx.Exec("DELETE FROM schema_version"); err != nil {
		return fmt.Errorf("failed to clear schema version: %w", err)
	}
	if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES ("+r.placeholder(1)+")", version); err != nil {
		return fmt.Errorf("failed to record schema version %d: %w", version, err)
	}
	return nil
}

// parseName splits "001_init.sql" into 1 and "init".
func parseName(name string) (int, string, error) {
	num, rest, ok := strings.Cut(strings.TrimSuffix(name, ".sql"), "_")
	if !ok || rest == "" {
		return 0, "", fmt.Errorf("migration %s: expected NNN_name.sql", name)
	}
	v, err := strconv.Atoi(num)
	if err != nil || v < 1 {
		return 0, "", fmt.Errorf("migration %s: version must be a positive number", name)
	}
	return v, rest, nil
}

// Migrations returns every migration file in version order.
func (r *Runner) Migrations() ([]Migration, error) {
	entries, err := fs.ReadDir(r.fs, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations: %w", err)
	}

	var out []Migration
	for _, e := range entries {
		if e.IsDir() || path.Ext(e.Name()) != ".sql" {
			continue
		}
		version, name, err := parseName(e.Name())
		if err != nil {
			return nil, err
		}
		content, err := fs.ReadFile(r.fs, e.Name())
		if err != nil {
			return nil, fmt.Errorf("failed to read migration %s: %w", e.Name(), err)
		}
		out = append(out, Migration{Version: version, Name: name, SQL: string(content)})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	for i := 1; i < len(out); i++ {
		if out[i].Version == out[i-1].Version {
			return nil, fmt.Errorf("duplicate migration version %d", out[i].Version)
		}
	}
	return out, nil
}

// Status compares the database with the available migrations.
func (r *Runner) Status() (Status, error) {
	current, err := r.Current()
	if err != nil {
		return Status{}, err
	}
	all, err := r.Migrations()
	if err != nil {
		return Status{}, err
	}
	st := Status{Current: current}
	if n := len(all); n > 0 {
		st.Latest = all[n-1].Version
	}
	return st, nil
}

// Pending returns the migrations newer than the applied version.
func (r *Runner) Pending() ([]Migration, error) {
	st, err := r.Status()
	if err != nil {
		return nil, err
	}
	if st.Current > st.Latest {
		return nil, st.Err()
	}
	all, err := r.Migrations()
	if err != nil {
		return nil, err
	}
	var pending []Migration
	for _, m := range all {
		if m.Version > st.Current {
			pending = append(pending, m)
		}
	}
	return pending, nil
}

// Apply runs each pending migration in its own transaction together with
// its version bump. applied is called after each commit and may be nil.
func (r *Runner) Apply(applied func(Migration)) ([]Migration, error) {
	pending, err := r.Pending()
	if err != nil {
		return nil, err
	}

	var done []Migration
	for _, m := range pending {
		if err := r.apply(m); err != nil {
			return done, err
		}
		done = append(done, m)
		if applied != nil {
			applied(m)
		}
	}
	return done, nil
}

func (r *Runner) apply(m Migration) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("migration %d: failed to begin transaction: %w", m.Version, err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(m.SQL); err != nil {
		return fmt.Errorf("migration %d (%s) failed: %w", m.Version, m.Name, err)
	}
	if err := r.writeVersion(tx, m.Version); err != nil {
		return fmt.Errorf("migration %d: %w", m.Version, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("migration %d: failed to commit: %w", m.Version, err)
	}
	return nil
}

// Validate returns Status().Err().
func (r *Runner) Validate() error {
	st, err := r.Status()
	if err != nil {
		return err
	}
	return st.Err()
}
