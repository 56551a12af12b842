// Package migrations embeds the goose SQL migrations for the result store.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
