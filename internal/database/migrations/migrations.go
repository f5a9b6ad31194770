// Package migrations embeds the SQL schema for the relational pass stores, one directory per dialect.
package migrations

import "embed"

//go:embed mysql/*.sql sqlite/*.sql
var Migrations embed.FS
