package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"strconv"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/creamcroissant/xboard-presence/internal/presence"
	"github.com/creamcroissant/xboard-presence/internal/service"
)

// maxBatch 限制单次 OnlineCounts 查询的用户数。
const maxBatch = 10000

// PresenceHandler 实现 PresenceServiceServer。
type PresenceHandler struct {
	online service.UserOnlineService
	logger *slog.Logger
}

var _ PresenceServiceServer = (*PresenceHandler)(nil)

func NewPresenceHandler(online service.UserOnlineService, logger *slog.Logger) *PresenceHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PresenceHandler{online: online, logger: logger}
}

func (h *PresenceHandler) OnlineCounts(ctx context.Context, req *structpb.ListValue) (*structpb.Struct, error) {
	ids, err := userIDsFromList(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	counts, err := h.online.OnlineCounts(ctx, ids)
	if err != nil {
		return nil, toStatus(err)
	}
	fields := make(map[string]any, len(counts))
	for id, n := range counts {
		fields[strconv.FormatInt(id, 10)] = n
	}
	return structpb.NewStruct(fields)
}

func (h *PresenceHandler) UserDevices(ctx context.Context, req *wrapperspb.Int64Value) (*structpb.Struct, error) {
	devices, err := h.online.Devices(ctx, req.GetValue())
	if err != nil {
		return nil, toStatus(err)
	}
	raw, err := json.Marshal(devices)
	if err != nil {
		return nil, status.Error(codes.Internal, "encode devices")
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, status.Error(codes.Internal, "encode devices")
	}
	return structpb.NewStruct(fields)
}

func userIDsFromList(list *structpb.ListValue) ([]int64, error) {
	values := list.GetValues()
	if len(values) > maxBatch {
		return nil, errors.New("too many user ids / 用户数量过多")
	}
	ids := make([]int64, 0, len(values))
	for _, v := range values {
		switch kind := v.GetKind().(type) {
		case *structpb.Value_NumberValue:
			n := kind.NumberValue
			if n != math.Trunc(n) {
				return nil, errors.New("user id must be an integer / 用户 ID 必须是整数")
			}
			ids = append(ids, int64(n))
		case *structpb.Value_StringValue:
			n, err := strconv.ParseInt(kind.StringValue, 10, 64)
			if err != nil {
				return nil, errors.New("user id must be an integer / 用户 ID 必须是整数")
			}
			ids = append(ids, n)
		default:
			return nil, errors.New("user id must be a number / 用户 ID 必须是数字")
		}
	}
	return ids, nil
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, service.ErrInvalidUserID):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, presence.ErrInvalidCountMode):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	}
	return status.Error(codes.Internal, "internal error")
}
