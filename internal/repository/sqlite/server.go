package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/creamcroissant/xboard-presence/internal/repository"
)

const serverColumns = `id, code, name, type, host, port, rate, "show", sort, status, last_heartbeat_at, created_at, updated_at`

type serverRepo struct {
	db *sql.DB
}

type serverScanner interface {
	Scan(dest ...any) error
}

func (r *serverRepo) FindByID(ctx context.Context, id int64) (*repository.Server, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+serverColumns+` FROM servers WHERE id = ?`, id)
	server, err := scanServer(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return server, nil
}

// FindByIdentifier 先按 code 匹配，数字标识再回退到 id。
func (r *serverRepo) FindByIdentifier(ctx context.Context, identifier string, nodeType string) (*repository.Server, error) {
	trimmed := strings.TrimSpace(identifier)
	if trimmed == "" {
		return nil, repository.ErrNotFound
	}
	conditions := []string{"code = ?"}
	args := []any{trimmed}
	if id, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		conditions[0] = "(code = ? OR id = ?)"
		args = append(args, id)
	}
	if nodeType != "" {
		conditions = append(conditions, "LOWER(type) = LOWER(?)")
		args = append(args, nodeType)
	}
	query := `SELECT ` + serverColumns + ` FROM servers WHERE ` + strings.Join(conditions, " AND ") +
		` ORDER BY CASE WHEN code = ? THEN 0 ELSE 1 END LIMIT 1`
	args = append(args, trimmed)

	server, err := scanServer(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return server, nil
}

func (r *serverRepo) NamesByIDs(ctx context.Context, ids []int64) (map[int64]string, error) {
	names := make(map[int64]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}
	placeholders, args := inClause(ids)
	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM servers WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			id   int64
			name string
		)
		if err := rows.Scan(&id, &name); err != nil {
			return nil, err
		}
		names[id] = name
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return names, nil
}

func (r *serverRepo) Create(ctx context.Context, server *repository.Server) error {
	const query = `INSERT INTO servers (
		code, name, type, host, port, rate, "show", sort, status, last_heartbeat_at, created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	now := time.Now().Unix()
	server.CreatedAt = now
	server.UpdatedAt = now
	if server.Rate == 0 {
		server.Rate = 1
	}

	var code sql.NullString
	if server.Code != "" {
		code = sql.NullString{String: server.Code, Valid: true}
	}
	res, err := r.db.ExecContext(ctx, query,
		code,
		server.Name,
		strings.ToLower(server.Type),
		server.Host,
		server.Port,
		server.Rate,
		boolToInt(server.Show),
		server.Sort,
		server.Status,
		server.LastHeartbeatAt,
		server.CreatedAt,
		server.UpdatedAt,
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	server.ID = id
	return nil
}

func (r *serverRepo) UpdateHeartbeat(ctx context.Context, id int64, heartbeatAt int64) error {
	_, err := r.db.ExecContext(ctx, `UPDATE servers SET last_heartbeat_at = ? WHERE id = ?`, heartbeatAt, id)
	return err
}

func scanServer(scanner serverScanner) (*repository.Server, error) {
	var (
		server repository.Server
		code   sql.NullString
		show   int
	)
	if err := scanner.Scan(
		&server.ID,
		&code,
		&server.Name,
		&server.Type,
		&server.Host,
		&server.Port,
		&server.Rate,
		&show,
		&server.Sort,
		&server.Status,
		&server.LastHeartbeatAt,
		&server.CreatedAt,
		&server.UpdatedAt,
	); err != nil {
		return nil, err
	}
	server.Code = code.String
	server.Show = show == 1
	return &server, nil
}
