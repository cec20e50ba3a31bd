// 文件路径: internal/repository/types.go
// 模块说明: 仓库层的数据结构。只保留在线设备与流量日志需要的列。
package repository

// User is the subset of account columns the presence subsystem needs.
type User struct {
	ID          int64
	UUID        string
	Email       string
	DeviceLimit *int64
	Banned      bool
	ExpiredAt   int64
	CreatedAt   int64
	UpdatedAt   int64
}

// NodeUser represents the limited subset of user columns shared with nodes.
type NodeUser struct {
	ID          int64
	UUID        string
	Email       string
	DeviceLimit *int64
}

// Setting mirrors the admin settings KV pairs.
type Setting struct {
	Key       string
	Value     string
	Category  string
	UpdatedAt int64
}

// Server is a backend node.
type Server struct {
	ID              int64
	Code            string
	Name            string
	Type            string
	Host            string
	Port            int
	Rate            float64
	Show            bool
	Sort            int
	Status          int
	LastHeartbeatAt int64
	CreatedAt       int64
	UpdatedAt       int64
}

// StatUserRecord is one traffic row of a user. ServerID and ServerType are
// nil on rows written before nodes were tracked per record.
type StatUserRecord struct {
	ID         int64
	UserID     int64
	ServerID   *int64
	ServerType *string
	// ServerName is a node name carried by the row source, preferred over the joined one.
	ServerName *string
	ServerRate float64
	RecordAt   int64
	RecordType int
	Upload     int64
	Download   int64
	CreatedAt  Timestamp
	UpdatedAt  Timestamp
}

// StatUserRange selects a user's traffic rows in [StartAt, EndAt].
type StatUserRange struct {
	UserID  int64
	StartAt int64
	EndAt   int64
}
