package db

import "embed"

// MigrationFS holds the schema migrations applied by the migrate runner at
// startup and by cmd/migrate.
//
//go:embed migrations/*.sql
var MigrationFS embed.FS
