// 文件路径: internal/repository/sqlite/store.go
// 模块说明: SQLite 仓库实现的入口，把各个表的仓库挂在同一个 *sql.DB 上。
package sqlite

import (
	"database/sql"

	"github.com/creamcroissant/xboard-presence/internal/repository"
)

// Store wires SQLite-backed repository implementations.
type Store struct {
	db        *sql.DB
	users     repository.UserRepository
	settings  repository.SettingRepository
	servers   repository.ServerRepository
	statUsers repository.StatUserRepository
}

// NewStore constructs a SQLite-backed repository store.
func NewStore(db *sql.DB) *Store {
	return &Store{
		db:        db,
		users:     &userRepo{db: db},
		settings:  &settingRepo{db: db},
		servers:   &serverRepo{db: db},
		statUsers: &statUserRepo{db: db},
	}
}

func (s *Store) Users() repository.UserRepository {
	return s.users
}

func (s *Store) Settings() repository.SettingRepository {
	return s.settings
}

func (s *Store) Servers() repository.ServerRepository {
	return s.servers
}

func (s *Store) StatUsers() repository.StatUserRepository {
	return s.statUsers
}

// DB exposes the underlying handle for migrations and health checks.
func (s *Store) DB() *sql.DB {
	return s.db
}
