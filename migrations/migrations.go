// Package migrations embeds the relevance-evaluation schema for goose.
//
// Migration files are named YYYYMMDDHHMMSS_description.sql and applied in
// order when the database is bootstrapped.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
