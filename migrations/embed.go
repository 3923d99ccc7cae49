// Package migrations embeds the roster schema migrations into the binary,
// so deployments don't need the SQL files on the filesystem.
package migrations

import (
	"embed"

	"github.com/scanpoint/scanpoint-core/internal/infrastructure/database"
)

//go:embed *.sql
var migrationsFS embed.FS

func init() {
	// Register embedded migrations with the database package.
	database.MigrationsFS = migrationsFS
	database.MigrationsDir = "." // Files are at root of embedded FS
}
