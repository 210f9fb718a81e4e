// Package migrations embeds the goose migrations for the sqlite key-value store.
package migrations

import (
	"embed"
)

//go:embed *.sql
var embedMigrations embed.FS

// Dir is the directory goose should read from inside GetMigrations
const Dir = "."

func GetMigrations() embed.FS {
	return embedMigrations
}
