// 文件路径: internal/bootstrap/database.go
// 模块说明: 打开 SQLite 连接。文件被其他进程短暂锁住时按指数退避重试 Ping。
package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v4"
	_ "modernc.org/sqlite"
)

// OpenOptions tunes the startup ping retry.
type OpenOptions struct {
	MaxRetries      uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

func (o OpenOptions) withDefaults() OpenOptions {
	if o.MaxRetries == 0 {
		o.MaxRetries = 5
	}
	if o.InitialInterval <= 0 {
		o.InitialInterval = 200 * time.Millisecond
	}
	if o.MaxInterval <= 0 {
		o.MaxInterval = 3 * time.Second
	}
	return o
}

// OpenSQLite ensures the parent directory exists, then opens a SQLite connection with sane pragmas.
func OpenSQLite(ctx context.Context, path string, opts OpenOptions) (*sql.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("SQLite 路径不能为空 / SQLite path is required")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
	}
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(30000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	opts = opts.withDefaults()
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = opts.InitialInterval
	policy.MaxInterval = opts.MaxInterval
	policy.MaxElapsedTime = 0
	retry := backoff.WithContext(backoff.WithMaxRetries(policy, opts.MaxRetries), ctx)

	if err := backoff.Retry(func() error { return db.PingContext(ctx) }, retry); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	return db, nil
}
