package middleware

import (
	"net/http"
	"time"

	"golang.org/x/text/language"

	"github.com/creamcroissant/xboard-presence/internal/api/requestctx"
	"github.com/creamcroissant/xboard-presence/internal/support/i18n"
)

// I18n resolves the caller's language from ?lang, X-I18N-Lang, the i18next
// cookie and Accept-Language, in that order.
func I18n(manager *i18n.Manager) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			queryLang := r.URL.Query().Get("lang")
			lang := queryLang
			if lang == "" {
				lang = r.Header.Get("X-I18N-Lang")
			}
			if lang == "" {
				if cookie, err := r.Cookie("i18next"); err == nil {
					lang = cookie.Value
				}
			}
			if lang == "" {
				tags, _, err := language.ParseAcceptLanguage(r.Header.Get("Accept-Language"))
				if err == nil && len(tags) > 0 {
					lang = tags[0].String()
				}
			}
			if manager != nil {
				lang = manager.Resolve(lang)
			} else if lang == "" {
				lang = i18n.DefaultLang
			}

			if queryLang != "" {
				http.SetCookie(w, &http.Cookie{
					Name:    "i18next",
					Value:   lang,
					Path:    "/",
					Expires: time.Now().Add(365 * 24 * time.Hour),
				})
			}
			next.ServeHTTP(w, r.WithContext(requestctx.WithLanguage(r.Context(), lang)))
		})
	}
}
