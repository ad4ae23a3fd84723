// Package migrations embeds the versioned postgres schema so binaries can
// migrate without the SQL files on disk.
package migrations

import "embed"

// FS holds every *.sql migration in this directory
//
//go:embed *.sql
var FS embed.FS
