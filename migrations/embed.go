// Package migrations embute os arquivos SQL aplicados por internal/migrate, em ordem de nome.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
