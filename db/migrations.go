// Package db embeds the SQL migrations shipped with the service.
package db

import "embed"

// Migrations holds every migrations/*.sql file. Only *.up.sql files are applied.
//
//go:embed migrations/*.sql
var Migrations embed.FS
