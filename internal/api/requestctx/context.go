// 文件路径: internal/api/requestctx/context.go
// 模块说明: 中间件把鉴权结果和语言放进 context，handler 从这里取。
package requestctx

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/creamcroissant/xboard-presence/internal/presence"
	"github.com/creamcroissant/xboard-presence/internal/repository"
)

const defaultLanguage = "en-US"

// ErrNoUser is returned by UserClaims.UserID outside UserGuard.
var ErrNoUser = errors.New("requestctx: no authenticated user / 未登录")

// UserClaims is what UserGuard learned from the access token. ID stays the
// raw subject; services validate it.
type UserClaims struct {
	ID        string
	Email     string
	SessionID string
}

// UserID parses ID as a positive integer.
func (c UserClaims) UserID() (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(c.ID), 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrNoUser
	}
	return id, nil
}

// ServerClaims is the node that passed ServerGuard.
type ServerClaims struct {
	Server *repository.Server
}

// NodeKey encodes the node as "<type><id>", empty when the type is unknown.
func (c ServerClaims) NodeKey() string {
	if c.Server == nil {
		return ""
	}
	key, _ := presence.EncodeNodeKey(c.Server.Type, c.Server.ID)
	return key
}

type key[T any] struct{}

func with[T any](ctx context.Context, v T) context.Context {
	return context.WithValue(ctx, key[T]{}, v)
}

func from[T any](ctx context.Context) (T, bool) {
	var zero T
	if ctx == nil {
		return zero, false
	}
	v, ok := ctx.Value(key[T]{}).(T)
	return v, ok
}

type language string

// WithLanguage 记录本次请求解析出的语言。
func WithLanguage(ctx context.Context, lang string) context.Context {
	return with(ctx, language(lang))
}

// GetLanguage returns the request language, "en-US" when none was set.
func GetLanguage(ctx context.Context) string {
	if lang, ok := from[language](ctx); ok && lang != "" {
		return string(lang)
	}
	return defaultLanguage
}

func WithUserClaims(ctx context.Context, claims UserClaims) context.Context {
	return with(ctx, claims)
}

// UserFromContext returns the zero value outside UserGuard.
func UserFromContext(ctx context.Context) UserClaims {
	claims, _ := from[UserClaims](ctx)
	return claims
}

func WithServerClaims(ctx context.Context, claims ServerClaims) context.Context {
	return with(ctx, claims)
}

// ServerFromContext returns the zero value outside ServerGuard.
func ServerFromContext(ctx context.Context) ServerClaims {
	claims, _ := from[ServerClaims](ctx)
	return claims
}
