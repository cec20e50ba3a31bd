// 文件路径: internal/auth/token/manager.go
// 模块说明: 用户访问令牌（JWT）的签发与校验。subject 为用户 ID，sid 为会话 ID。
package token

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const TokenTypeAccess = "access"

// Manager 负责签发和校验 JWT。
type Manager struct {
	secret   []byte
	issuer   string
	audience string
	ttl      time.Duration
	leeway   time.Duration
	now      func() time.Time
}

// Options 配置 Token 管理器。
type Options struct {
	SigningKey []byte
	Issuer     string
	Audience   string
	TTL        time.Duration
	Leeway     time.Duration
}

// Claims 包含 JWT 标准声明及令牌元数据。
type Claims struct {
	jwt.RegisteredClaims
	TokenType string `json:"token_type,omitempty"`
	SessionID string `json:"sid,omitempty"`
	IsAdmin   bool   `json:"adm,omitempty"`
}

// UserID parses the numeric subject.
func (c *Claims) UserID() (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(c.Subject), 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrInvalidToken
	}
	return id, nil
}

var (
	// ErrInvalidToken 表示解析或校验失败。
	ErrInvalidToken = errors.New("invalid token / 无效的 token")
	// ErrExpiredToken 表示令牌超出允许的过期宽限。
	ErrExpiredToken = errors.New("token expired / token 已过期")
)

// NewManager 组装 HS256 JWT 管理器。
func NewManager(opts Options) (*Manager, error) {
	if len(opts.SigningKey) == 0 {
		return nil, fmt.Errorf("signing key is required / 签名密钥不能为空")
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	leeway := opts.Leeway
	if leeway < 0 {
		leeway = 0
	}
	return &Manager{
		secret:   append([]byte(nil), opts.SigningKey...),
		issuer:   strings.TrimSpace(opts.Issuer),
		audience: strings.TrimSpace(opts.Audience),
		ttl:      ttl,
		leeway:   leeway,
		now:      time.Now,
	}, nil
}

// IssueForUser signs an access token for userID. A fresh session id is
// generated when sessionID is empty.
func (m *Manager) IssueForUser(userID int64, sessionID string, isAdmin bool) (string, *Claims, error) {
	if m == nil {
		return "", nil, fmt.Errorf("token manager not initialized / token 管理器未初始化")
	}
	if userID <= 0 {
		return "", nil, fmt.Errorf("token subject is required / token subject 不能为空")
	}
	if strings.TrimSpace(sessionID) == "" {
		sessionID = uuid.NewString()
	}
	now := m.now().UTC()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    m.issuer,
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
		TokenType: TokenTypeAccess,
		SessionID: sessionID,
		IsAdmin:   isAdmin,
	}
	if m.audience != "" {
		claims.Audience = jwt.ClaimStrings{m.audience}
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}
	return signed, claims, nil
}

// Parse 校验 JWT 字符串并返回解析后的声明。
func (m *Manager) Parse(tokenString string) (*Claims, error) {
	if m == nil {
		return nil, fmt.Errorf("token manager not initialized / token 管理器未初始化")
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(m.leeway),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(m.now),
	}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}
	if m.audience != "" {
		opts = append(opts, jwt.WithAudience(m.audience))
	}

	claims := &Claims{}
	parsed, err := jwt.NewParser(opts...).ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return m.secret, nil
	})
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrExpiredToken
	case err != nil:
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	case !parsed.Valid:
		return nil, ErrInvalidToken
	}
	if claims.TokenType != "" && claims.TokenType != TokenTypeAccess {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
