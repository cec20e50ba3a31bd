package presence

import "strings"

// DeviceMap groups alive ips by node key. Ips keep first-seen order.
type DeviceMap map[string][]string

// IPs returns the ips seen on nodeKey, or an empty slice.
func (m DeviceMap) IPs(nodeKey string) []string {
	ips := m[nodeKey]
	if ips == nil {
		return []string{}
	}
	return ips
}

// BuildDeviceMap groups records by node. A record's explicit NodeKey is used
// when set; otherwise the key is encoded from NodeType and NodeID, falling
// back to the bare lowercased type. Records without a key or ip are skipped.
func BuildDeviceMap(records []DeviceRecord) DeviceMap {
	grouped := make(DeviceMap)
	seen := make(map[string]map[string]struct{})
	for _, rec := range records {
		key := groupKey(rec)
		ip := strings.TrimSpace(rec.IP)
		if key == "" || ip == "" {
			continue
		}
		bucket, ok := seen[key]
		if !ok {
			bucket = make(map[string]struct{})
			seen[key] = bucket
		}
		if _, dup := bucket[ip]; dup {
			continue
		}
		bucket[ip] = struct{}{}
		grouped[key] = append(grouped[key], ip)
	}
	return grouped
}

func groupKey(rec DeviceRecord) string {
	if key := strings.TrimSpace(rec.NodeKey); key != "" {
		return key
	}
	if key, ok := EncodeNodeKey(rec.NodeType, rec.NodeID); ok {
		return key
	}
	return strings.ToLower(strings.TrimSpace(rec.NodeType))
}
