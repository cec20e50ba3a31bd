// 文件路径: internal/api/handler/server.go
// 模块说明: 节点回调接口：上报在线 IP、拉取设备限制用户的在线数、上报流量。
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/creamcroissant/xboard-presence/internal/api/requestctx"
	"github.com/creamcroissant/xboard-presence/internal/presence"
	"github.com/creamcroissant/xboard-presence/internal/service"
	"github.com/creamcroissant/xboard-presence/internal/support/i18n"
)

// ServerHandler handles node callbacks.
type ServerHandler struct {
	Telemetry service.ServerTelemetryService
	Traffic   service.ServerTrafficService
	Online    service.UserOnlineService
	i18n      *i18n.Manager
}

func NewServerHandler(telemetry service.ServerTelemetryService, traffic service.ServerTrafficService, online service.UserOnlineService, i18nMgr *i18n.Manager) *ServerHandler {
	return &ServerHandler{Telemetry: telemetry, Traffic: traffic, Online: online, i18n: i18nMgr}
}

func (h *ServerHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	action := serverActionPath(r.URL.Path)
	switch {
	case action == "/alive" && r.Method == http.MethodPost:
		h.handleAlive(w, r)
	case action == "/alivelist" && r.Method == http.MethodGet:
		h.handleAliveList(w, r)
	case action == "/push" && r.Method == http.MethodPost:
		h.handlePush(w, r)
	default:
		respondNotImplemented(w, "server", r, h.i18n)
	}
}

func (h *ServerHandler) handleAlive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.Telemetry == nil {
		RespondErrorI18nAction(ctx, w, http.StatusServiceUnavailable, "server.alive", "error.service_unavailable", h.i18n)
		return
	}
	claims := requestctx.ServerFromContext(ctx)
	if claims.Server == nil {
		RespondErrorI18nAction(ctx, w, http.StatusUnauthorized, "server.alive", "error.unauthorized", h.i18n)
		return
	}
	payload, err := decodeAlivePayload(r)
	if err != nil {
		RespondErrorI18nAction(ctx, w, http.StatusBadRequest, "server.alive", "error.bad_request", h.i18n)
		return
	}
	if err := h.Telemetry.RecordAlive(ctx, claims.Server, payload); err != nil {
		status, key := statusForError(err)
		RespondErrorI18nAction(ctx, w, status, "server.alive", key, h.i18n)
		return
	}
	respondData(w, true)
}

func (h *ServerHandler) handleAliveList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.Online == nil {
		RespondErrorI18nAction(ctx, w, http.StatusServiceUnavailable, "server.alivelist", "error.service_unavailable", h.i18n)
		return
	}
	claims := requestctx.ServerFromContext(ctx)
	if claims.Server == nil {
		RespondErrorI18nAction(ctx, w, http.StatusUnauthorized, "server.alivelist", "error.unauthorized", h.i18n)
		return
	}
	counts, err := h.Online.AliveList(ctx)
	if err != nil {
		status, key := statusForError(err)
		RespondErrorI18nAction(ctx, w, status, "server.alivelist", key, h.i18n)
		return
	}
	alive := make(map[string]int, len(counts))
	for id, n := range counts {
		alive[strconv.FormatInt(id, 10)] = n
	}
	respondJSON(w, http.StatusOK, map[string]any{"alive": alive})
}

func (h *ServerHandler) handlePush(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.Traffic == nil {
		RespondErrorI18nAction(ctx, w, http.StatusServiceUnavailable, "server.push", "error.service_unavailable", h.i18n)
		return
	}
	claims := requestctx.ServerFromContext(ctx)
	if claims.Server == nil {
		RespondErrorI18nAction(ctx, w, http.StatusUnauthorized, "server.push", "error.unauthorized", h.i18n)
		return
	}
	samples, err := decodePushPayload(r)
	if err != nil {
		RespondErrorI18nAction(ctx, w, http.StatusBadRequest, "server.push", "error.bad_request", h.i18n)
		return
	}
	if err := h.Traffic.RecordPush(ctx, claims.Server, samples); err != nil {
		status, key := statusForError(err)
		RespondErrorI18nAction(ctx, w, status, "server.push", key, h.i18n)
		return
	}
	respondData(w, true)
}

func statusForError(err error) (int, string) {
	switch {
	case errors.Is(err, presence.ErrInvalidCountMode):
		return http.StatusInternalServerError, "error.invalid_device_limit_mode"
	case errors.Is(err, service.ErrInvalidUserID):
		return http.StatusBadRequest, "error.invalid_user_id"
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, "error.not_found"
	case errors.Is(err, service.ErrUnauthorized):
		return http.StatusUnauthorized, "error.unauthorized"
	}
	return http.StatusInternalServerError, "error.internal_server_error"
}

func serverActionPath(fullPath string) string {
	idx := strings.Index(fullPath, "/server")
	if idx == -1 {
		return "/"
	}
	suffix := strings.Trim(fullPath[idx+len("/server"):], "/")
	if suffix == "" {
		return "/"
	}
	parts := strings.Split(suffix, "/")
	return "/" + parts[len(parts)-1]
}

// decodeAlivePayload 解析 {"<uid>": ["ip_nodeId", ...]}。
func decodeAlivePayload(r *http.Request) (map[int64][]string, error) {
	var raw map[string]any
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, errors.New("invalid alive payload / 无效的在线数据")
	}
	result := make(map[int64][]string, len(raw))
	for key, value := range raw {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		userID, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid user id / 无效的用户 id: %s", key)
		}
		ips, err := toStringSlice(value)
		if err != nil {
			return nil, err
		}
		result[userID] = ips
	}
	return result, nil
}

func toStringSlice(value any) ([]string, error) {
	items, ok := value.([]any)
	if !ok {
		return nil, errors.New("invalid alive entry / 无效的在线列表条目")
	}
	result := make([]string, 0, len(items))
	for _, item := range items {
		v, ok := item.(string)
		if !ok {
			return nil, errors.New("alive entry must be string / 在线列表条目必须是字符串")
		}
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result, nil
}

// decodePushPayload 解析 {"<uid>": [upload, download]}，也兼容
// [{"user_id":1,"u":10,"d":20}] 形式。
func decodePushPayload(r *http.Request) ([]service.TrafficSample, error) {
	var raw json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		return nil, err
	}
	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, "[") {
		var rows []struct {
			UserID int64 `json:"user_id"`
			U      int64 `json:"u"`
			D      int64 `json:"d"`
		}
		if err := json.Unmarshal(raw, &rows); err != nil {
			return nil, err
		}
		samples := make([]service.TrafficSample, 0, len(rows))
		for _, row := range rows {
			samples = append(samples, service.TrafficSample{UserID: row.UserID, Upload: row.U, Download: row.D})
		}
		return samples, nil
	}

	var byUser map[string][2]int64
	if err := json.Unmarshal(raw, &byUser); err != nil {
		return nil, err
	}
	samples := make([]service.TrafficSample, 0, len(byUser))
	for key, pair := range byUser {
		userID, err := strconv.ParseInt(strings.TrimSpace(key), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid user id / 无效的用户 id: %s", key)
		}
		samples = append(samples, service.TrafficSample{UserID: userID, Upload: pair[0], Download: pair[1]})
	}
	return samples, nil
}
