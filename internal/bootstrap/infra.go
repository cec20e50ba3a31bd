package bootstrap

import (
	"fmt"
	"time"

	"github.com/creamcroissant/xboard-presence/internal/auth/token"
	"github.com/creamcroissant/xboard-presence/internal/cache"
	"github.com/creamcroissant/xboard-presence/internal/config"
	"github.com/creamcroissant/xboard-presence/internal/presence"
)

// Infrastructure bundles the shared cache, token manager and node-type registry.
type Infrastructure struct {
	Cache    cache.Store
	Token    *token.Manager
	Registry *presence.Registry
}

// BuildInfrastructure wires default implementations from config. signingKey
// is the resolved key, see ResolveSigningKey.
func BuildInfrastructure(cfg *config.Config, signingKey string) (*Infrastructure, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required / 配置不能为空")
	}

	cacheStore := cache.NewStore(cache.Options{
		DefaultTTL:      5 * time.Minute,
		CleanupInterval: time.Minute,
	})

	tokenManager, err := token.NewManager(token.Options{
		SigningKey: []byte(signingKey),
		Issuer:     cfg.Auth.Issuer,
		Audience:   cfg.Auth.Audience,
		TTL:        cfg.Auth.TokenTTL,
		Leeway:     cfg.Auth.Leeway,
	})
	if err != nil {
		return nil, fmt.Errorf("token manager: %w", err)
	}

	types := cfg.Presence.NodeTypes
	if len(types) == 0 {
		types = presence.DefaultNodeTypes
	}

	return &Infrastructure{
		Cache:    cacheStore,
		Token:    tokenManager,
		Registry: presence.NewRegistry(types...),
	}, nil
}
