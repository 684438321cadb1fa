// Package migrations embeds the SQL schema files into the binary so
// the history database can be migrated without shipping loose files.
package migrations

import "embed"

// Files holds every migration at the root of the embedded filesystem.
//
//go:embed *.sql
var Files embed.FS
