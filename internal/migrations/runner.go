// 文件路径: internal/migrations/runner.go
// 模块说明: goose 迁移入口，SQL 文件通过 embed 打包进二进制。
package migrations

import (
	"database/sql"
	"sync"

	"github.com/pressly/goose/v3"
)

var setupOnce sync.Once

func setup() {
	setupOnce.Do(func() {
		goose.SetBaseFS(SQLite)
		if err := goose.SetDialect("sqlite3"); err != nil {
			panic(err)
		}
	})
}

// Up migrates the SQLite schema to the latest version.
func Up(db *sql.DB) error {
	setup()
	return goose.Up(db, "sqlite")
}

// Down rolls back a single migration.
func Down(db *sql.DB) error {
	setup()
	return goose.Down(db, "sqlite")
}

// Status prints migration status.
func Status(db *sql.DB) error {
	setup()
	return goose.Status(db, "sqlite")
}

// Version returns the current schema version.
func Version(db *sql.DB) (int64, error) {
	setup()
	return goose.GetDBVersion(db)
}
