package notification

import "embed"

// Migrations holds the delivery log schema, applied by database.Migrate.
//
//go:embed migrations/*.sql
var Migrations embed.FS
