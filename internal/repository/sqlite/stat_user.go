// 文件路径: internal/repository/sqlite/stat_user.go
// 模块说明: 用户流量记录。每行带上产生流量的节点（server_id + server_type），
// 流量日志接口据此把在线设备关联到记录上。
package sqlite

import (
	"context"
	"database/sql"

	"github.com/creamcroissant/xboard-presence/internal/repository"
)

type statUserRepo struct {
	db *sql.DB
}

func (r *statUserRepo) Upsert(ctx context.Context, record repository.StatUserRecord) error {
	const stmt = `INSERT INTO stat_users(user_id, server_id, server_type, server_rate, record_at, record_type, u, d, created_at, updated_at)
                  VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
                  ON CONFLICT(user_id, server_rate, server_id, server_type, record_at) DO UPDATE SET
                      u = stat_users.u + excluded.u,
                      d = stat_users.d + excluded.d,
                      updated_at = excluded.updated_at`
	_, err := r.db.ExecContext(ctx, stmt,
		record.UserID,
		nullableInt(record.ServerID),
		nullableString(record.ServerType),
		record.ServerRate,
		record.RecordAt,
		record.RecordType,
		record.Upload,
		record.Download,
		record.CreatedAt,
		record.UpdatedAt,
	)
	return err
}

func (r *statUserRepo) ListByUserRange(ctx context.Context, filter repository.StatUserRange) ([]repository.StatUserRecord, error) {
	const query = `SELECT id, user_id, server_id, server_type, server_rate, record_at, record_type, u, d, created_at, updated_at
		FROM stat_users
		WHERE user_id = ? AND record_at >= ? AND record_at <= ?
		ORDER BY updated_at DESC, created_at DESC, record_at DESC, id DESC`
	rows, err := r.db.QueryContext(ctx, query, filter.UserID, filter.StartAt, filter.EndAt)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]repository.StatUserRecord, 0)
	for rows.Next() {
		var (
			record     repository.StatUserRecord
			serverID   sql.NullInt64
			serverType sql.NullString
		)
		if err := rows.Scan(
			&record.ID,
			&record.UserID,
			&serverID,
			&serverType,
			&record.ServerRate,
			&record.RecordAt,
			&record.RecordType,
			&record.Upload,
			&record.Download,
			&record.CreatedAt,
			&record.UpdatedAt,
		); err != nil {
			return nil, err
		}
		record.ServerID = nullableIntPtr(serverID)
		record.ServerType = nullableStringPtr(serverType)
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}
