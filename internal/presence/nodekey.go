// 文件路径: internal/presence/nodekey.go
// 模块说明: 节点标识编解码。节点键形如 "shadowsocks12"，类型与编号之间没有分隔符，
// 解码时按类型表做最长前缀匹配。
package presence

import (
	"sort"
	"strconv"
	"strings"
)

// DefaultNodeTypes 是面板支持的节点类型。
var DefaultNodeTypes = []string{
	"hysteria", "vless", "shadowsocks", "vmess", "trojan",
	"tuic", "socks", "anytls", "naive", "http", "mieru",
}

// NodeKey identifies a backend node by type and numeric id.
type NodeKey struct {
	Type string
	ID   int64
}

// Defined reports whether the key carries both a type and a positive id.
func (k NodeKey) Defined() bool {
	return k.Type != "" && k.ID > 0
}

// String returns the canonical encoding, or "" when the key is undefined.
func (k NodeKey) String() string {
	key, _ := EncodeNodeKey(k.Type, k.ID)
	return key
}

// EncodeNodeKey joins the lowercased type and decimal id. The second return
// value is false when either part is missing.
func EncodeNodeKey(nodeType string, nodeID int64) (string, bool) {
	normalized := strings.ToLower(strings.TrimSpace(nodeType))
	if normalized == "" || nodeID <= 0 {
		return "", false
	}
	return normalized + strconv.FormatInt(nodeID, 10), true
}

// Registry holds the known node types, longest first, so that a type which is
// a prefix of another never shadows it during decoding.
type Registry struct {
	types []string
	index map[string]struct{}
}

// NewRegistry builds a registry from the given types. Empty and duplicate
// entries are ignored; types of equal length keep their input order.
func NewRegistry(types ...string) *Registry {
	r := &Registry{index: make(map[string]struct{}, len(types))}
	for _, t := range types {
		normalized := strings.ToLower(strings.TrimSpace(t))
		if normalized == "" {
			continue
		}
		if _, ok := r.index[normalized]; ok {
			continue
		}
		r.index[normalized] = struct{}{}
		r.types = append(r.types, normalized)
	}
	sort.SliceStable(r.types, func(i, j int) bool {
		return len(r.types[i]) > len(r.types[j])
	})
	return r
}

// DefaultRegistry returns a registry of DefaultNodeTypes.
func DefaultRegistry() *Registry {
	return NewRegistry(DefaultNodeTypes...)
}

// Types returns the registered types in matching order.
func (r *Registry) Types() []string {
	out := make([]string, len(r.types))
	copy(out, r.types)
	return out
}

// Contains reports whether nodeType is registered.
func (r *Registry) Contains(nodeType string) bool {
	_, ok := r.index[strings.ToLower(strings.TrimSpace(nodeType))]
	return ok
}

// Decode splits a token such as "vmess12" into its type and id. A matched
// type with a non-numeric remainder decodes to id 0. The second return value
// is false when no registered type prefixes the token.
func (r *Registry) Decode(token string) (NodeKey, bool) {
	normalized := strings.ToLower(strings.TrimSpace(token))
	if normalized == "" || r == nil {
		return NodeKey{}, false
	}
	for _, t := range r.types {
		if !strings.HasPrefix(normalized, t) {
			continue
		}
		return NodeKey{Type: t, ID: parseDigits(normalized[len(t):])}, true
	}
	return NodeKey{}, false
}

// parseDigits 只接受纯数字，其余情况（空串、符号、溢出）一律返回 0。
func parseDigits(s string) int64 {
	if s == "" {
		return 0
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0
		}
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return id
}
