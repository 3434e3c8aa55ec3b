package migrations

import "embed"

// Files exposes embedded SQL migration files. Postgres migrations live at the
// root and are applied in lexicographical order; SQLite ones live under sqlite/.
//
//go:embed *.sql sqlite/*.sql
var Files embed.FS
