package middleware

import (
	"net/http"
	"strconv"

	"github.com/creamcroissant/xboard-presence/internal/api/requestctx"
	"github.com/creamcroissant/xboard-presence/internal/security"
	"github.com/creamcroissant/xboard-presence/internal/support/i18n"
)

// UserRateLimit limits authenticated users per window. It must run after UserGuard.
// A nil limiter disables the check.
func UserRateLimit(limiter *security.RateLimiter, i18nMgr *i18n.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := requestctx.UserFromContext(r.Context())
			if user.ID == "" {
				next.ServeHTTP(w, r)
				return
			}
			result, err := limiter.Allow(r.Context(), "user:"+user.ID)
			if err != nil {
				// 限流存储故障时放行
				next.ServeHTTP(w, r)
				return
			}
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limiter.Limit()))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
			if !result.Allowed {
				w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
				lang := requestctx.GetLanguage(r.Context())
				writeError(w, http.StatusTooManyRequests, i18nMgr.Translate(lang, "error.too_many_requests"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
