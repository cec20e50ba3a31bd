package main

import (
	"context"
	"database/sql"

	"github.com/creamcroissant/xboard-presence/internal/bootstrap"
	"github.com/creamcroissant/xboard-presence/internal/config"
	"github.com/creamcroissant/xboard-presence/internal/migrations"
	"github.com/creamcroissant/xboard-presence/internal/repository/sqlite"
)

// openStore loads config, opens the database and applies pending migrations.
// Callers close the returned *sql.DB.
func openStore(ctx context.Context) (*sqlite.Store, *sql.DB, *config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, nil, err
	}
	db, err := bootstrap.OpenSQLite(ctx, cfg.DB.Path, bootstrap.OpenOptions{})
	if err != nil {
		return nil, nil, nil, err
	}
	if err := migrations.Up(db); err != nil {
		db.Close()
		return nil, nil, nil, err
	}
	return sqlite.NewStore(db), db, cfg, nil
}
