// Package migrations embeds SQL migration files for the SQLite store.
package migrations

import "embed"

// FS holds the numbered up and down scripts for the chunk and run tables.
//
//go:embed *.sql
var FS embed.FS
