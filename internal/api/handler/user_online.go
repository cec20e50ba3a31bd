package handler

import (
	"net/http"

	"github.com/creamcroissant/xboard-presence/internal/api/requestctx"
	"github.com/creamcroissant/xboard-presence/internal/service"
	"github.com/creamcroissant/xboard-presence/internal/support/i18n"
)

// UserOnlineHandler lists the caller's online devices.
type UserOnlineHandler struct {
	online service.UserOnlineService
	i18n   *i18n.Manager
}

func NewUserOnlineHandler(online service.UserOnlineService, i18nMgr *i18n.Manager) *UserOnlineHandler {
	return &UserOnlineHandler{online: online, i18n: i18nMgr}
}

func (h *UserOnlineHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	action := subActionPath(r.URL.Path, "/online")
	switch {
	case (action == "/" || action == "/devices") && r.Method == http.MethodGet:
		h.handleDevices(w, r)
	case action == "/count" && r.Method == http.MethodGet:
		h.handleCount(w, r)
	default:
		respondNotImplemented(w, "user.online", r, h.i18n)
	}
}

func (h *UserOnlineHandler) handleDevices(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.userID(w, r, "user.online.devices")
	if !ok {
		return
	}
	devices, err := h.online.Devices(ctx, userID)
	if err != nil {
		status, key := statusForError(err)
		RespondErrorI18nAction(ctx, w, status, "user.online.devices", key, h.i18n)
		return
	}
	respondData(w, devices)
}

func (h *UserOnlineHandler) handleCount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.userID(w, r, "user.online.count")
	if !ok {
		return
	}
	n, err := h.online.OnlineCount(ctx, userID)
	if err != nil {
		status, key := statusForError(err)
		RespondErrorI18nAction(ctx, w, status, "user.online.count", key, h.i18n)
		return
	}
	respondData(w, map[string]int{"online_count": n})
}

func (h *UserOnlineHandler) userID(w http.ResponseWriter, r *http.Request, action string) (int64, bool) {
	ctx := r.Context()
	if h.online == nil {
		RespondErrorI18nAction(ctx, w, http.StatusServiceUnavailable, action, "error.service_unavailable", h.i18n)
		return 0, false
	}
	claims := requestctx.UserFromContext(ctx)
	id, err := claims.UserID()
	if err != nil {
		RespondErrorI18nAction(ctx, w, http.StatusUnauthorized, action, "error.unauthorized", h.i18n)
		return 0, false
	}
	return id, true
}
