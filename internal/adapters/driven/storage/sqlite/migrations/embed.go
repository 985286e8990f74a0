// Package migrations embeds the versioned schema of the chunk and metrics store.
package migrations

import "embed"

// FS contains all SQL migration files embedded at compile time.
//
//go:embed *.sql
var FS embed.FS
