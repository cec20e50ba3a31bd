// 文件路径: internal/presence/payload.go
// 模块说明: 解析缓存里 ALIVE_IP_USER_<uid> 的原始在线数据。布局与旧版 PHP 面板兼容：
// {"vmess1": {"aliveips": ["1.1.1.1_1"], "lastupdateAt": 1700000000}, "alive_ip": 1}
package presence

import (
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

const aliveIPField = "alive_ip"

// NodeEntry is one node's report inside a user's presence payload.
type NodeEntry struct {
	Token        string
	AliveIPs     []string
	LastUpdateAt int64
}

// Payload is the decoded presence blob of a single user. Entries keep the
// order in which they appear in the cached document.
type Payload struct {
	Entries []NodeEntry
	AliveIP int
}

// Empty reports whether the payload has no node entries.
func (p Payload) Empty() bool {
	return len(p.Entries) == 0
}

// Entry returns the entry for token, if present.
func (p Payload) Entry(token string) (NodeEntry, bool) {
	for _, e := range p.Entries {
		if e.Token == token {
			return e, true
		}
	}
	return NodeEntry{}, false
}

// ParsePayload decodes a presence document. Entries whose value is not an
// object with an "aliveips" list are skipped, as are non-string list items.
// Only a document that is not a JSON object at all is rejected.
func ParsePayload(data []byte) (Payload, error) {
	if len(data) == 0 || !gjson.ValidBytes(data) {
		return Payload{}, ErrMalformedPayload
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return Payload{}, ErrMalformedPayload
	}

	var p Payload
	root.ForEach(func(key, value gjson.Result) bool {
		token := key.String()
		if token == aliveIPField {
			if value.Type == gjson.Number || value.Type == gjson.String {
				p.AliveIP = int(value.Int())
			}
			return true
		}
		if !value.IsObject() {
			return true
		}
		ips := value.Get("aliveips")
		if !ips.IsArray() {
			return true
		}
		entry := NodeEntry{Token: token, AliveIPs: []string{}}
		ips.ForEach(func(_, item gjson.Result) bool {
			if item.Type == gjson.String {
				entry.AliveIPs = append(entry.AliveIPs, item.Str)
			}
			return true
		})
		if ts := value.Get("lastupdateAt"); ts.Type == gjson.Number || ts.Type == gjson.String {
			entry.LastUpdateAt = ts.Int()
		}
		p.Entries = append(p.Entries, entry)
		return true
	})
	return p, nil
}

// MarshalJSON writes the PHP compatible layout, entries first in their
// current order and alive_ip last.
func (p Payload) MarshalJSON() ([]byte, error) {
	doc := []byte("{}")
	var err error
	for _, e := range p.Entries {
		ips := e.AliveIPs
		if ips == nil {
			ips = []string{}
		}
		doc, err = sjson.SetBytes(doc, escapePathKey(e.Token), map[string]any{
			"aliveips":     ips,
			"lastupdateAt": e.LastUpdateAt,
		})
		if err != nil {
			return nil, err
		}
	}
	return sjson.SetBytes(doc, aliveIPField, p.AliveIP)
}

// escapePathKey 把 token 里的 sjson 路径元字符转义，保证它被当成单个键名。
func escapePathKey(key string) string {
	var b strings.Builder
	b.Grow(len(key) + 4)
	for _, r := range key {
		switch r {
		case '.', '*', '?', '|', '#', '@', '!', ':', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
