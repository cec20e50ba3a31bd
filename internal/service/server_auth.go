// 文件路径: internal/service/server_auth.go
// 模块说明: 节点鉴权。token 与设置表里的 server_token 做常量时间比较，
// server_token 读取结果缓存 30 秒。
package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"github.com/creamcroissant/xboard-presence/internal/presence"
	"github.com/creamcroissant/xboard-presence/internal/repository"
)

const (
	serverTokenKey = "server_token"
	serverTokenTTL = 30 * time.Second
)

// ServerAuthService validates node credentials and resolves server metadata.
type ServerAuthService interface {
	Authenticate(ctx context.Context, token, nodeID, nodeType string) (*repository.Server, error)
}

// 节点程序上报的类型别名。v2node 不带类型，按标识查找任意类型。
var serverTypeAliases = map[string]string{
	"v2ray":     "vmess",
	"hysteria2": "hysteria",
	"v2node":    "",
}

type cachedToken struct {
	value   string
	expires time.Time
}

type serverAuthService struct {
	settings repository.SettingRepository
	servers  repository.ServerRepository
	registry *presence.Registry

	token atomic.Pointer[cachedToken]
	now   func() time.Time
}

// NewServerAuthService constructs a credential validator; node types are
// checked against registry.
func NewServerAuthService(settings repository.SettingRepository, servers repository.ServerRepository, registry *presence.Registry) ServerAuthService {
	if registry == nil {
		registry = presence.DefaultRegistry()
	}
	return &serverAuthService{settings: settings, servers: servers, registry: registry, now: time.Now}
}

func (s *serverAuthService) Authenticate(ctx context.Context, token, nodeID, nodeType string) (*repository.Server, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrUnauthorized
	}
	expected, err := s.serverToken(ctx)
	if err != nil {
		return nil, err
	}
	if expected == "" || subtle.ConstantTimeCompare([]byte(expected), []byte(token)) != 1 {
		return nil, ErrUnauthorized
	}

	serverType, err := s.resolveType(nodeType)
	if err != nil {
		return nil, err
	}
	nodeID = strings.TrimSpace(nodeID)
	if nodeID == "" {
		return nil, ErrNotFound
	}
	if s.servers == nil {
		return nil, errors.New("server auth: server repository unavailable / 节点认证仓储不可用")
	}
	server, err := s.servers.FindByIdentifier(ctx, nodeID, serverType)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	return server, err
}

func (s *serverAuthService) serverToken(ctx context.Context) (string, error) {
	now := s.now()
	if cached := s.token.Load(); cached != nil && now.Before(cached.expires) {
		return cached.value, nil
	}
	if s.settings == nil {
		return "", errors.New("server auth: settings repository unavailable / 节点认证设置仓储不可用")
	}

	var value string
	setting, err := s.settings.Get(ctx, serverTokenKey)
	switch {
	case err == nil:
		value = strings.TrimSpace(setting.Value)
	case !errors.Is(err, repository.ErrNotFound):
		return "", err
	}
	s.token.Store(&cachedToken{value: value, expires: now.Add(serverTokenTTL)})
	return value, nil
}

// resolveType 返回用于查找节点的类型，空串表示不限类型。
func (s *serverAuthService) resolveType(raw string) (string, error) {
	t := strings.ToLower(strings.TrimSpace(raw))
	if alias, ok := serverTypeAliases[t]; ok {
		t = alias
	}
	if t == "" {
		return "", nil
	}
	if !s.registry.Contains(t) {
		return "", ErrInvalidServerType
	}
	return t, nil
}
