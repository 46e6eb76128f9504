// Package migrations embeds the SQL schema migrations for the credential store.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
