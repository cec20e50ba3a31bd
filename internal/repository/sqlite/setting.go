package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/creamcroissant/xboard-presence/internal/repository"
)

type settingRepo struct {
	db *sql.DB
}

// Get 读取单个设置项，不存在时返回 repository.ErrNotFound。
func (r *settingRepo) Get(ctx context.Context, key string) (*repository.Setting, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT key, value, category, updated_at FROM settings WHERE key = ?`,
		strings.TrimSpace(key))
	s := &repository.Setting{}
	switch err := row.Scan(&s.Key, &s.Value, &s.Category, &s.UpdatedAt); {
	case errors.Is(err, sql.ErrNoRows):
		return nil, repository.ErrNotFound
	case err != nil:
		return nil, err
	}
	return s, nil
}

// Upsert 写入设置项。category 为空时保留原有分类。
func (r *settingRepo) Upsert(ctx context.Context, setting *repository.Setting) error {
	if setting == nil || strings.TrimSpace(setting.Key) == "" {
		return errors.New("setting key is required / 设置项 key 不能为空")
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO settings(key, value, category, updated_at) VALUES(?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			category = COALESCE(NULLIF(excluded.category, ''), settings.category),
			updated_at = excluded.updated_at`,
		strings.TrimSpace(setting.Key), setting.Value, setting.Category, setting.UpdatedAt)
	return err
}
