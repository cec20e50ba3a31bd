// 文件路径: internal/api/middleware/auth.go
// 模块说明: 用户 JWT 鉴权、节点 token 鉴权以及 /metrics 的抓取口令。
package middleware

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/creamcroissant/xboard-presence/internal/api/requestctx"
	"github.com/creamcroissant/xboard-presence/internal/service"
	"github.com/creamcroissant/xboard-presence/internal/support/i18n"
)

// UserGuard admits requests carrying a valid user access token.
func UserGuard(auth service.AuthService, i18nMgr *i18n.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fail := func(status int, key string) {
				writeError(w, status, i18nMgr.Translate(requestctx.GetLanguage(r.Context()), key))
			}
			if auth == nil {
				fail(http.StatusServiceUnavailable, "error.service_unavailable")
				return
			}
			raw := bearerToken(r.Header.Get("Authorization"))
			if raw == "" {
				fail(http.StatusUnauthorized, "error.unauthorized")
				return
			}
			claims, err := auth.Verify(r.Context(), raw)
			switch {
			case errors.Is(err, service.ErrAccountDisabled):
				fail(http.StatusForbidden, "error.account_disabled")
				return
			case err != nil:
				fail(http.StatusUnauthorized, "error.unauthorized")
				return
			}
			ctx := requestctx.WithUserClaims(r.Context(), requestctx.UserClaims{
				ID:        strconv.FormatInt(claims.UserID, 10),
				Email:     claims.Email,
				SessionID: claims.SessionID,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ServerGuard admits node callbacks whose token matches server_token.
// defaultType applies when the request carries no node_type.
func ServerGuard(auth service.ServerAuthService, defaultType string, i18nMgr *i18n.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fail := func(status int, key string) {
				writeError(w, status, i18nMgr.Translate(requestctx.GetLanguage(r.Context()), key))
			}
			if auth == nil {
				fail(http.StatusServiceUnavailable, "error.service_unavailable")
				return
			}
			creds, err := readNodeCredentials(r)
			if err != nil {
				fail(http.StatusBadRequest, "error.bad_request")
				return
			}
			switch {
			case creds.nodeID == "":
				fail(http.StatusUnprocessableEntity, "error.node_id_required")
				return
			case creds.token == "":
				fail(http.StatusUnprocessableEntity, "error.token_required")
				return
			}
			if creds.nodeType == "" {
				creds.nodeType = defaultType
			}

			server, err := auth.Authenticate(r.Context(), creds.token, creds.nodeID, creds.nodeType)
			if err != nil {
				status, key := http.StatusInternalServerError, "error.internal_server_error"
				switch {
				case errors.Is(err, service.ErrUnauthorized):
					status, key = http.StatusUnauthorized, "error.unauthorized"
				case errors.Is(err, service.ErrInvalidServerType):
					status, key = http.StatusUnprocessableEntity, "error.invalid_node_type"
				case errors.Is(err, service.ErrNotFound):
					status, key = http.StatusNotFound, "error.not_found"
				}
				fail(status, key)
				return
			}
			ctx := requestctx.WithServerClaims(r.Context(), requestctx.ServerClaims{Server: server})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// MetricsGuard requires "Authorization: Bearer <token>" on /metrics.
func MetricsGuard(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := bearerToken(r.Header.Get("Authorization"))
			if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type nodeCredentials struct {
	token    string
	nodeID   string
	nodeType string
}

// readNodeCredentials 先读 query，缺失的字段再从表单里补。
func readNodeCredentials(r *http.Request) (nodeCredentials, error) {
	query := r.URL.Query()
	creds := nodeCredentials{
		token:    strings.TrimSpace(query.Get("token")),
		nodeID:   strings.TrimSpace(query.Get("node_id")),
		nodeType: strings.TrimSpace(query.Get("node_type")),
	}
	if !isFormBody(r) {
		return creds, nil
	}
	if err := r.ParseForm(); err != nil {
		return nodeCredentials{}, err
	}
	fill := func(dst *string, name string) {
		if *dst == "" {
			*dst = strings.TrimSpace(r.PostForm.Get(name))
		}
	}
	fill(&creds.token, "token")
	fill(&creds.nodeID, "node_id")
	fill(&creds.nodeType, "node_type")
	return creds, nil
}

func isFormBody(r *http.Request) bool {
	ct := strings.ToLower(r.Header.Get("Content-Type"))
	return strings.HasPrefix(ct, "application/x-www-form-urlencoded") || strings.HasPrefix(ct, "multipart/form-data")
}

// bearerToken accepts "Bearer <t>" or a bare token.
func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if scheme, rest, ok := strings.Cut(header, " "); ok && strings.EqualFold(scheme, "Bearer") {
		return strings.TrimSpace(rest)
	}
	return header
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
