// Package db carries the schema migrations and the sqlc query sources.
package db

import "embed"

//go:embed migration/*.sql
var Migrations embed.FS

// MigrationsDir is the directory inside Migrations holding goose files.
const MigrationsDir = "migration"
