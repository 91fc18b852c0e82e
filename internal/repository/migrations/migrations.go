// Package migrations содержит SQL миграции goose для каждого диалекта.
package migrations

import "embed"

//go:embed postgres/*.sql
var Postgres embed.FS

//go:embed sqlite/*.sql
var SQLite embed.FS

// Каталоги внутри соответствующих FS
const (
	PostgresDir = "postgres"
	SQLiteDir   = "sqlite"
)
