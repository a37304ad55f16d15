// Package migrations embeds the journal schema for each supported driver.
package migrations

import "embed"

// Applied in filename order by db.MigrateUp.
//
//go:embed sqlite/*.sql
var SqliteMigrations embed.FS

//go:embed postgres/*.sql
var PostgresMigrations embed.FS
