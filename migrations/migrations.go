// Package migrations holds the SQL schema migrations for each storage
// backend, named NNN_description.sql.
package migrations

import "embed"

// FS holds one directory of migrations per driver.
//
//go:embed sqlite/*.sql postgres/*.sql
var FS embed.FS
