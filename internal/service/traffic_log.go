// 文件路径: internal/service/traffic_log.go
// 模块说明: 流量日志补全。给每条 stat_users 记录挂上节点名、节点键以及该节点下的在线设备。
package service

import (
	"strconv"
	"strings"
	"time"

	"github.com/creamcroissant/xboard-presence/internal/presence"
	"github.com/creamcroissant/xboard-presence/internal/repository"
)

const unknownDeviceName = "Unknown"

// TrafficLogEntry is one enriched traffic record as returned to the user.
// Nullable fields are pointers so they are written as JSON null.
type TrafficLogEntry struct {
	ID          int64                `json:"id"`
	UserID      *int64               `json:"user_id,omitempty"`
	Download    int64                `json:"d"`
	Upload      int64                `json:"u"`
	RecordAt    int64                `json:"record_at"`
	DisplayAt   int64                `json:"display_at"`
	RecordType  int                  `json:"record_type"`
	ServerRate  float64              `json:"server_rate"`
	ServerID    *int64               `json:"server_id"`
	ServerType  *string              `json:"server_type"`
	ServerName  *string              `json:"server_name"`
	NodeName    *string              `json:"node_name"`
	NodeKey     *string              `json:"node_key"`
	DeviceName  string               `json:"device_name"`
	DeviceIPs   []string             `json:"device_ips"`
	DeviceCount int                  `json:"device_count"`
	CreatedAt   repository.Timestamp `json:"created_at"`
	UpdatedAt   repository.Timestamp `json:"updated_at"`
}

// TrafficLogEnricher attaches node and device identity to traffic records.
// It never modifies the records it is given.
type TrafficLogEnricher struct {
	// Devices is the user's current device map; nil means nobody is online.
	Devices presence.DeviceMap
	// Names maps server id to its display name as stored.
	Names map[int64]string
	// Location is used for textual timestamps.
	Location *time.Location
	// HideUserID drops user_id from the output.
	HideUserID bool
}

// Enrich converts records in order.
func (e TrafficLogEnricher) Enrich(records []repository.StatUserRecord) []TrafficLogEntry {
	out := make([]TrafficLogEntry, 0, len(records))
	for _, rec := range records {
		out = append(out, e.EnrichOne(rec))
	}
	return out
}

// EnrichOne converts a single record.
func (e TrafficLogEnricher) EnrichOne(rec repository.StatUserRecord) TrafficLogEntry {
	entry := TrafficLogEntry{
		ID:         rec.ID,
		Download:   rec.Download,
		Upload:     rec.Upload,
		RecordAt:   rec.RecordAt,
		DisplayAt:  e.displayAt(rec),
		RecordType: rec.RecordType,
		ServerRate: rec.ServerRate,
		DeviceName: unknownDeviceName,
		DeviceIPs:  []string{},
		CreatedAt:  rec.CreatedAt,
		UpdatedAt:  rec.UpdatedAt,
	}
	if !e.HideUserID {
		uid := rec.UserID
		entry.UserID = &uid
	}

	serverID := recordServerID(rec)
	serverType := recordServerType(rec)
	if serverID > 0 {
		entry.ServerID = &serverID
	}
	if serverType != "" {
		entry.ServerType = &serverType
	}

	if name, ok := e.serverName(rec.ServerName, serverID); ok {
		entry.ServerName = &name
		nodeName := name
		entry.NodeName = &nodeName
	}

	if key, ok := presence.EncodeNodeKey(serverType, serverID); ok {
		entry.NodeKey = &key
		ips := e.Devices.IPs(key)
		entry.DeviceIPs = append([]string{}, ips...)
		entry.DeviceCount = len(entry.DeviceIPs)
		if entry.DeviceCount > 0 {
			entry.DeviceName = entry.DeviceIPs[0]
		}
	}
	return entry
}

// serverName 依次取记录自带名称、节点表名称，最后合成 "Node #<id>"。
func (e TrafficLogEnricher) serverName(attached *string, serverID int64) (string, bool) {
	if attached != nil {
		if name := plainText(*attached); name != "" {
			return name, true
		}
	}
	if serverID <= 0 {
		return "", false
	}
	if raw, ok := e.Names[serverID]; ok {
		if name := plainText(raw); name != "" {
			return name, true
		}
	}
	return "Node #" + strconv.FormatInt(serverID, 10), true
}

// displayAt 优先 updated_at，其次 created_at，最后回退到 record_at。
func (e TrafficLogEnricher) displayAt(rec repository.StatUserRecord) int64 {
	if ts, ok := rec.UpdatedAt.Unix(e.Location); ok {
		return ts
	}
	if ts, ok := rec.CreatedAt.Unix(e.Location); ok {
		return ts
	}
	return rec.RecordAt
}

func recordServerID(rec repository.StatUserRecord) int64 {
	if rec.ServerID == nil || *rec.ServerID <= 0 {
		return 0
	}
	return *rec.ServerID
}

func recordServerType(rec repository.StatUserRecord) string {
	if rec.ServerType == nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(*rec.ServerType))
}
