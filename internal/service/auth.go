package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/creamcroissant/xboard-presence/internal/auth/token"
	"github.com/creamcroissant/xboard-presence/internal/repository"
)

// Claims is the authenticated caller resolved from a bearer token.
type Claims struct {
	UserID    int64
	Email     string
	SessionID string
	IsAdmin   bool
}

// AuthService verifies user access tokens.
type AuthService interface {
	Verify(ctx context.Context, rawToken string) (*Claims, error)
}

type authService struct {
	users    repository.UserRepository
	tokenMgr *token.Manager
}

// NewAuthService wires token verification against the user table.
func NewAuthService(users repository.UserRepository, tokenMgr *token.Manager) AuthService {
	return &authService{users: users, tokenMgr: tokenMgr}
}

func (s *authService) Verify(ctx context.Context, rawToken string) (*Claims, error) {
	if s == nil || s.users == nil || s.tokenMgr == nil {
		return nil, fmt.Errorf("auth service not fully configured / 认证服务未完整配置")
	}
	tokenStr := strings.TrimSpace(rawToken)
	if tokenStr == "" {
		return nil, ErrUnauthorized
	}
	parsed, err := s.tokenMgr.Parse(tokenStr)
	if err != nil {
		return nil, ErrUnauthorized
	}
	userID, err := parsed.UserID()
	if err != nil {
		return nil, ErrUnauthorized
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}
	if user.Banned {
		return nil, ErrAccountDisabled
	}
	return &Claims{UserID: user.ID, Email: user.Email, SessionID: parsed.SessionID, IsAdmin: parsed.IsAdmin}, nil
}
