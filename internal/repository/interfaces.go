package repository

import "context"

// Store aggregates repository accessors.
type Store interface {
	Users() UserRepository
	Settings() SettingRepository
	Servers() ServerRepository
	StatUsers() StatUserRepository
}

// UserRepository 定义用户相关数据访问方法。
type UserRepository interface {
	FindByID(ctx context.Context, id int64) (*User, error)
	Create(ctx context.Context, user *User) (*User, error)
	// ListDeviceLimited returns active users that have a positive device limit.
	ListDeviceLimited(ctx context.Context, nowUnix int64) ([]*NodeUser, error)
}

// SettingRepository 处理系统配置的存取。
type SettingRepository interface {
	Get(ctx context.Context, key string) (*Setting, error)
	Upsert(ctx context.Context, setting *Setting) error
}

// ServerRepository 管理节点相关数据。
type ServerRepository interface {
	FindByID(ctx context.Context, id int64) (*Server, error)
	FindByIdentifier(ctx context.Context, identifier string, nodeType string) (*Server, error)
	// NamesByIDs resolves node names for a batch of ids; unknown ids are absent.
	NamesByIDs(ctx context.Context, ids []int64) (map[int64]string, error)
	Create(ctx context.Context, server *Server) error
	UpdateHeartbeat(ctx context.Context, id int64, heartbeatAt int64) error
}

// StatUserRepository 管理用户流量统计。
type StatUserRepository interface {
	Upsert(ctx context.Context, record StatUserRecord) error
	// ListByUserRange returns rows ordered by updated_at, created_at and
	// record_at, all descending.
	ListByUserRange(ctx context.Context, filter StatUserRange) ([]StatUserRecord, error)
}
