package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/creamcroissant/xboard-presence/internal/api/requestctx"
	"github.com/creamcroissant/xboard-presence/internal/support/i18n"
)

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Warn("failed to encode response JSON", "error", err)
	}
}

func respondData(w http.ResponseWriter, data any) {
	respondJSON(w, http.StatusOK, map[string]any{"data": data})
}

func respondNotImplemented(w http.ResponseWriter, namespace string, r *http.Request, i18nMgr *i18n.Manager) {
	respondJSON(w, http.StatusNotImplemented, map[string]any{
		"message":   translate(r.Context(), i18nMgr, "error.not_implemented"),
		"namespace": namespace,
		"method":    r.Method,
		"path":      r.URL.Path,
	})
}

// RespondErrorI18nAction writes {"error": <translated key>, "action": action}.
func RespondErrorI18nAction(ctx context.Context, w http.ResponseWriter, status int, action string, key string, i18nMgr *i18n.Manager, args ...any) {
	if key == "" {
		key = action
	}
	resp := map[string]any{
		"error": translate(ctx, i18nMgr, key, args...),
	}
	if action != "" {
		resp["action"] = action
	}
	respondJSON(w, status, resp)
}

func translate(ctx context.Context, i18nMgr *i18n.Manager, key string, args ...any) string {
	if i18nMgr == nil {
		return key
	}
	return i18nMgr.Translate(requestctx.GetLanguage(ctx), key, args...)
}
