// 文件路径: internal/presence/store.go
// 模块说明: 在线数据的只读访问层。批量读取只向缓存发起一次 GetMany，避免 N 次往返。
package presence

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/creamcroissant/xboard-presence/internal/cache"
)

// DefaultKeyPrefix 与旧版面板写入的缓存键保持一致。
const DefaultKeyPrefix = "ALIVE_IP_USER_"

// Store reads and writes per-user presence payloads in the cache.
type Store struct {
	cache  cache.Store
	prefix string
	logger *slog.Logger
}

// NewStore wraps a cache. An empty prefix falls back to DefaultKeyPrefix.
func NewStore(c cache.Store, prefix string, logger *slog.Logger) *Store {
	if strings.TrimSpace(prefix) == "" {
		prefix = DefaultKeyPrefix
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{cache: c, prefix: prefix, logger: logger}
}

// Key returns the cache key holding userID's payload.
func (s *Store) Key(userID int64) string {
	return s.prefix + strconv.FormatInt(userID, 10)
}

// Get returns userID's payload. An absent or undecodable entry yields an
// empty payload.
func (s *Store) Get(ctx context.Context, userID int64) (Payload, error) {
	if s.cache == nil {
		return Payload{}, errors.New("presence: cache unavailable / 在线缓存不可用")
	}
	raw, ok := s.cache.Get(ctx, s.Key(userID))
	if !ok {
		return Payload{}, nil
	}
	p, err := decodeCached(raw)
	if err != nil {
		s.logger.Warn("skip undecodable presence payload", "user_id", userID, "error", err)
		return Payload{}, nil
	}
	return p, nil
}

// GetBatch fetches the payloads of several users with one cache call. Users
// without an entry, or whose entry cannot be decoded, are left out.
func (s *Store) GetBatch(ctx context.Context, userIDs []int64) (map[int64]Payload, error) {
	if s.cache == nil {
		return nil, errors.New("presence: cache unavailable / 在线缓存不可用")
	}
	ids := uniquePositive(userIDs)
	result := make(map[int64]Payload, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.Key(id)
	}
	found := s.cache.GetMany(ctx, keys)
	for i, id := range ids {
		raw, ok := found[keys[i]]
		if !ok {
			continue
		}
		p, err := decodeCached(raw)
		if err != nil {
			s.logger.Warn("skip undecodable presence payload", "user_id", id, "error", err)
			continue
		}
		result[id] = p
	}
	return result, nil
}

// Put stores userID's payload in the PHP compatible layout.
func (s *Store) Put(ctx context.Context, userID int64, p Payload, ttl time.Duration) error {
	if s.cache == nil {
		return errors.New("presence: cache unavailable / 在线缓存不可用")
	}
	return s.cache.SetJSON(ctx, s.Key(userID), p, ttl)
}

// decodeCached 兼容三种写入形态：JSON 字节、JSON 字符串以及直接存入的 Go 值。
func decodeCached(raw any) (Payload, error) {
	switch v := raw.(type) {
	case nil:
		return Payload{}, nil
	case Payload:
		return v, nil
	case *Payload:
		if v == nil {
			return Payload{}, nil
		}
		return *v, nil
	case []byte:
		return ParsePayload(v)
	case json.RawMessage:
		return ParsePayload(v)
	case string:
		return ParsePayload([]byte(v))
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return Payload{}, errors.Join(ErrMalformedPayload, err)
	}
	return ParsePayload(data)
}

func uniquePositive(values []int64) []int64 {
	seen := make(map[int64]struct{}, len(values))
	out := make([]int64, 0, len(values))
	for _, v := range values {
		if v <= 0 {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
