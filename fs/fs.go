// Package appfs embeds the destination schema migrations.
package appfs

import "embed"

//go:embed migrations/*.sql
var FS embed.FS
