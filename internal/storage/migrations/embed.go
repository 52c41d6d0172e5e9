package migrations

import "embed"

// PostgresFS embeds the PostgreSQL migration files, named in golang-migrate
// up/down pairs.
//
//go:embed postgres/*.sql
var PostgresFS embed.FS

// ClickhouseFS embeds the ClickHouse migration files.
//
//go:embed clickhouse/*.sql
var ClickhouseFS embed.FS
