// Package migrations embeds the PostgreSQL schema migrations shared by the
// server's auto-migrate startup step and the migrate command.
package migrations

import "embed"

// Dir is the migration directory within FS.
const Dir = "."

//go:embed *.sql
var FS embed.FS
