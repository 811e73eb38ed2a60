// Package migrations embeds the SQL schema files into the binary so the
// panel can migrate its store without the files on disk.
package migrations

import "embed"

// FS holds every *.sql file in this directory at its root.
//
//go:embed *.sql
var FS embed.FS
