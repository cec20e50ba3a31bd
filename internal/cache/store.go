// 文件路径: internal/cache/store.go
// 模块说明: 进程内缓存，基于 go-cache。在线设备数据（ALIVE_IP_USER_<uid>）就存放在这里，
// 读取侧通过 GetMany 一次取回一批用户。
package cache

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Store 是在线数据与设置缓存共用的键值接口。
type Store interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	SetBytes(ctx context.Context, key string, value []byte, ttl time.Duration) error
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (any, bool)
	GetBytes(ctx context.Context, key string) ([]byte, bool)
	GetJSON(ctx context.Context, key string, dest any) (bool, error)
	Delete(ctx context.Context, key string)
	TTL(ctx context.Context, key string) (time.Duration, bool)
	Namespace(prefix string) Store
	// Increment adds delta to an integer counter, creating it with ttl when absent.
	Increment(ctx context.Context, key string, delta int64, ttl time.Duration) (int64, error)

	// GetMany resolves several keys in a single call. Missing or expired keys
	// are absent from the returned map, which is keyed by the caller's keys.
	GetMany(ctx context.Context, keys []string) map[string]any
}

// Options 配置内存缓存行为。
type Options struct {
	DefaultTTL      time.Duration
	CleanupInterval time.Duration
	Prefix          string
}

// NewStore 创建基于 go-cache 的缓存实现，并支持命名空间。
func NewStore(opts Options) Store {
	defaultTTL := opts.DefaultTTL
	if defaultTTL <= 0 {
		defaultTTL = 5 * time.Minute
	}
	cleanup := opts.CleanupInterval
	if cleanup <= 0 {
		cleanup = defaultTTL
	}
	return &memoryStore{
		backend:    gocache.New(defaultTTL, cleanup),
		defaultTTL: defaultTTL,
		prefix:     normalizePrefix(opts.Prefix),
	}
}

type memoryStore struct {
	backend    *gocache.Cache
	defaultTTL time.Duration
	prefix     string
}

func (s *memoryStore) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	s.backend.Set(s.key(key), value, s.ttlOrDefault(ttl))
	return nil
}

func (s *memoryStore) SetBytes(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	buf := make([]byte, len(value))
	copy(buf, value)
	return s.Set(ctx, key, buf, ttl)
}

func (s *memoryStore) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.SetBytes(ctx, key, data, ttl)
}

func (s *memoryStore) Get(_ context.Context, key string) (any, bool) {
	return s.backend.Get(s.key(key))
}

func (s *memoryStore) GetBytes(ctx context.Context, key string) ([]byte, bool) {
	raw, ok := s.Get(ctx, key)
	if !ok {
		return nil, false
	}
	return asBytes(raw)
}

func (s *memoryStore) GetJSON(ctx context.Context, key string, dest any) (bool, error) {
	raw, ok := s.GetBytes(ctx, key)
	if !ok {
		return false, nil
	}
	if dest == nil {
		return true, nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, err
	}
	return true, nil
}

func (s *memoryStore) GetMany(_ context.Context, keys []string) map[string]any {
	result := make(map[string]any, len(keys))
	for _, key := range keys {
		if _, done := result[key]; done {
			continue
		}
		if value, ok := s.backend.Get(s.key(key)); ok {
			result[key] = value
		}
	}
	return result
}

func (s *memoryStore) Increment(_ context.Context, key string, delta int64, ttl time.Duration) (int64, error) {
	k := s.key(key)
	for attempt := 0; ; attempt++ {
		if err := s.backend.Add(k, delta, s.ttlOrDefault(ttl)); err == nil {
			return delta, nil
		}
		n, err := s.backend.IncrementInt64(k, delta)
		if err == nil || attempt > 0 {
			return n, err
		}
		// 计数器在 Add 与 IncrementInt64 之间过期，再试一次。
	}
}

func (s *memoryStore) Delete(_ context.Context, key string) {
	s.backend.Delete(s.key(key))
}

func (s *memoryStore) TTL(_ context.Context, key string) (time.Duration, bool) {
	_, exp, ok := s.backend.GetWithExpiration(s.key(key))
	if !ok || exp.IsZero() {
		return 0, false
	}
	ttl := time.Until(exp)
	if ttl < 0 {
		return 0, false
	}
	return ttl, true
}

func (s *memoryStore) Namespace(prefix string) Store {
	return &memoryStore{
		backend:    s.backend,
		defaultTTL: s.defaultTTL,
		prefix:     joinPrefixes(s.prefix, prefix),
	}
}

func (s *memoryStore) key(key string) string {
	key = strings.TrimSpace(key)
	switch {
	case key == "":
		return s.prefix
	case s.prefix == "":
		return key
	}
	return s.prefix + ":" + key
}

func (s *memoryStore) ttlOrDefault(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return s.defaultTTL
	}
	return ttl
}

// asBytes 返回副本，调用方修改不会影响缓存里的值。
func asBytes(raw any) ([]byte, bool) {
	switch v := raw.(type) {
	case []byte:
		buf := make([]byte, len(v))
		copy(buf, v)
		return buf, true
	case string:
		return []byte(v), true
	case json.RawMessage:
		buf := make([]byte, len(v))
		copy(buf, v)
		return buf, true
	}
	return nil, false
}

func normalizePrefix(prefix string) string {
	return strings.Trim(prefix, ": ")
}

func joinPrefixes(parts ...string) string {
	normalized := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := normalizePrefix(part); trimmed != "" {
			normalized = append(normalized, trimmed)
		}
	}
	return strings.Join(normalized, ":")
}
