package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/creamcroissant/xboard-presence/internal/repository"
)

type userRepo struct {
	db *sql.DB
}

func (r *userRepo) FindByID(ctx context.Context, id int64) (*repository.User, error) {
	const query = `SELECT id, uuid, email, device_limit, banned, expired_at, created_at, updated_at FROM users WHERE id = ?`
	var (
		user        repository.User
		deviceLimit sql.NullInt64
		banned      int
	)
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&user.ID,
		&user.UUID,
		&user.Email,
		&deviceLimit,
		&banned,
		&user.ExpiredAt,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	user.DeviceLimit = nullableIntPtr(deviceLimit)
	user.Banned = banned == 1
	return &user, nil
}

func (r *userRepo) Create(ctx context.Context, user *repository.User) (*repository.User, error) {
	const stmt = `INSERT INTO users(uuid, email, device_limit, banned, expired_at, created_at, updated_at)
                  VALUES(?, ?, ?, ?, ?, ?, ?)`
	now := time.Now().Unix()
	if user.CreatedAt == 0 {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	res, err := r.db.ExecContext(ctx, stmt,
		user.UUID,
		user.Email,
		nullableInt(user.DeviceLimit),
		boolToInt(user.Banned),
		user.ExpiredAt,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	user.ID = id
	return user, nil
}

func (r *userRepo) ListDeviceLimited(ctx context.Context, nowUnix int64) ([]*repository.NodeUser, error) {
	const query = `SELECT id, uuid, email, device_limit FROM users
        WHERE device_limit IS NOT NULL AND device_limit > 0
          AND banned = 0
          AND (expired_at = 0 OR expired_at > ?)
        ORDER BY id ASC`
	rows, err := r.db.QueryContext(ctx, query, nowUnix)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*repository.NodeUser
	for rows.Next() {
		var (
			u           repository.NodeUser
			deviceLimit sql.NullInt64
		)
		if err := rows.Scan(&u.ID, &u.UUID, &u.Email, &deviceLimit); err != nil {
			return nil, err
		}
		u.DeviceLimit = nullableIntPtr(deviceLimit)
		users = append(users, &u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}
