// 文件路径: internal/api/handler/user_stat.go
// 模块说明: 用户流量日志接口，返回本月记录并附带节点与在线设备信息。
package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/creamcroissant/xboard-presence/internal/api/requestctx"
	"github.com/creamcroissant/xboard-presence/internal/service"
	"github.com/creamcroissant/xboard-presence/internal/support/i18n"
)

// UserStatHandler 提供用户流量统计相关接口。
type UserStatHandler struct {
	stats service.UserStatService
	i18n  *i18n.Manager
}

// NewUserStatHandler 构造用户统计处理器。
func NewUserStatHandler(stats service.UserStatService, i18nMgr *i18n.Manager) *UserStatHandler {
	return &UserStatHandler{stats: stats, i18n: i18nMgr}
}

// ServeHTTP 处理 /user/stat 下的子路由分发。
func (h *UserStatHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	action := subActionPath(r.URL.Path, "/stat")
	switch {
	case (action == "/" || action == "/getTrafficLog") && r.Method == http.MethodGet:
		h.handleGetTrafficLog(w, r)
	default:
		respondNotImplemented(w, "user.stat", r, h.i18n)
	}
}

func (h *UserStatHandler) handleGetTrafficLog(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.stats == nil {
		RespondErrorI18nAction(ctx, w, http.StatusServiceUnavailable, "user.stat.traffic", "error.service_unavailable", h.i18n)
		return
	}
	claims := requestctx.UserFromContext(ctx)
	if claims.ID == "" {
		RespondErrorI18nAction(ctx, w, http.StatusUnauthorized, "user.stat.traffic", "error.unauthorized", h.i18n)
		return
	}
	logs, err := h.stats.TrafficLogs(ctx, claims.ID)
	if err != nil {
		status, key := http.StatusInternalServerError, "error.internal_server_error"
		if errors.Is(err, service.ErrInvalidUserID) {
			status, key = http.StatusBadRequest, "error.invalid_user_id"
		}
		RespondErrorI18nAction(ctx, w, status, "user.stat.traffic", key, h.i18n)
		return
	}
	respondData(w, logs)
}

// subActionPath 解析 marker 之后的子路径，例如 /user/stat/getTrafficLog -> /getTrafficLog。
func subActionPath(fullPath, marker string) string {
	idx := strings.Index(fullPath, marker)
	if idx == -1 {
		return "/"
	}
	action := strings.TrimSuffix(fullPath[idx+len(marker):], "/")
	if action == "" {
		return "/"
	}
	if !strings.HasPrefix(action, "/") {
		action = "/" + action
	}
	return action
}
