package presence

import (
	"encoding/json"
	"strconv"
	"strings"
)

// DeviceRecord is one normalized (ip, node) observation.
type DeviceRecord struct {
	IP       string
	NodeType string
	// NodeID 为 0 表示无法确定节点编号。
	NodeID int64
	// NodeKey 为空表示节点键未定义。
	NodeKey  string
	LastSeen int64
}

// MarshalJSON renders absent node id and key as null.
func (r DeviceRecord) MarshalJSON() ([]byte, error) {
	view := struct {
		IP       string  `json:"ip"`
		NodeType string  `json:"node_type"`
		NodeID   *int64  `json:"node_id"`
		NodeKey  *string `json:"node_key"`
		LastSeen int64   `json:"last_seen"`
	}{IP: r.IP, NodeType: r.NodeType, LastSeen: r.LastSeen}
	if r.NodeID > 0 {
		id := r.NodeID
		view.NodeID = &id
	}
	if r.NodeKey != "" {
		key := r.NodeKey
		view.NodeKey = &key
	}
	return json.Marshal(view)
}

// Normalize flattens a payload into device records. Every composite token
// "<ip>_<nodeId>" yields one record; a positive node id carried by the token
// wins over the id decoded from the entry key, while the node type always
// comes from the entry key. Tokens with an empty ip are dropped.
func Normalize(p Payload, registry *Registry) []DeviceRecord {
	records := make([]DeviceRecord, 0)
	for _, entry := range p.Entries {
		fallback, _ := registry.Decode(entry.Token)
		for _, token := range entry.AliveIPs {
			ip, payloadID := splitAliveToken(token)
			if ip == "" {
				continue
			}
			nodeID := fallback.ID
			if payloadID > 0 {
				nodeID = payloadID
			}
			rec := DeviceRecord{
				IP:       ip,
				NodeType: fallback.Type,
				LastSeen: entry.LastUpdateAt,
			}
			if nodeID > 0 {
				rec.NodeID = nodeID
			}
			rec.NodeKey, _ = EncodeNodeKey(fallback.Type, nodeID)
			records = append(records, rec)
		}
	}
	return records
}

// splitAliveToken 在第一个下划线处切分 "ip_nodeId"；没有下划线时整串都是 ip。
func splitAliveToken(token string) (string, int64) {
	token = strings.TrimSpace(token)
	ip, rest, found := strings.Cut(token, "_")
	if !found {
		return token, 0
	}
	id, err := strconv.ParseInt(strings.TrimSpace(rest), 10, 64)
	if err != nil || id <= 0 {
		return ip, 0
	}
	return ip, id
}

// aliveIP 取出组合 token 中的 ip 部分。
func aliveIP(token string) string {
	ip, _, _ := strings.Cut(strings.TrimSpace(token), "_")
	return ip
}
