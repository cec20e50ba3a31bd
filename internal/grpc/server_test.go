package grpc

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/creamcroissant/xboard-presence/internal/config"
	"github.com/creamcroissant/xboard-presence/internal/grpc/client"
	"github.com/creamcroissant/xboard-presence/internal/grpc/handler"
	"github.com/creamcroissant/xboard-presence/internal/presence"
	"github.com/creamcroissant/xboard-presence/internal/service"
)

type fakeOnline struct {
	service.UserOnlineService
	modeErr error
}

func (f fakeOnline) OnlineCounts(_ context.Context, ids []int64) (map[int64]int, error) {
	if f.modeErr != nil {
		return nil, f.modeErr
	}
	out := make(map[int64]int, len(ids))
	for _, id := range ids {
		if id > 0 {
			out[id] = int(id % 3)
		}
	}
	return out, nil
}

func (f fakeOnline) Devices(_ context.Context, userID int64) (service.UserDevices, error) {
	if userID <= 0 {
		return service.UserDevices{}, service.ErrInvalidUserID
	}
	return service.UserDevices{TotalCount: 2, Devices: []presence.DeviceRecord{
		{IP: "1.1.1.1", NodeType: "vmess", NodeID: 1, NodeKey: "vmess1", LastSeen: 100},
		{IP: "2.2.2.2", NodeType: "vmess"},
	}}, nil
}

func startBufServer(t *testing.T, online service.UserOnlineService, token string) *client.PresenceClient {
	t.Helper()
	lis := startListener(t, online)

	c, err := client.NewPresenceClient(client.Config{
		Address: "passthrough:///bufnet",
		Token:   token,
		DialOptions: []grpc.DialOption{
			grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
				return lis.DialContext(ctx)
			}),
		},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func startListener(t *testing.T, online service.UserOnlineService) *bufconn.Listener {
	t.Helper()
	srv, err := NewServer(config.GRPCConfig{Token: "secret"}, handler.NewPresenceHandler(online, nil), nil)
	require.NoError(t, err)

	lis := bufconn.Listen(1 << 20)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)
	return lis
}

func TestHealthCheckSkipsAuth(t *testing.T) {
	lis := startListener(t, fakeOnline{})
	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	resp, err := healthpb.NewHealthClient(conn).Check(context.Background(), &healthpb.HealthCheckRequest{Service: handler.PresenceServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())
}

func TestPresenceOnlineCounts(t *testing.T) {
	c := startBufServer(t, fakeOnline{}, "secret")
	counts, err := c.OnlineCounts(context.Background(), []int64{4, 5})
	require.NoError(t, err)
	assert.Equal(t, map[int64]int{4: 1, 5: 2}, counts)
}

func TestPresenceOnlineCountsKeyedByUserID(t *testing.T) {
	h := handler.NewPresenceHandler(fakeOnline{}, nil)
	out, err := h.OnlineCounts(context.Background(), &structpb.ListValue{Values: []*structpb.Value{
		structpb.NewNumberValue(4), structpb.NewStringValue("5"),
	}})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"4": float64(1), "5": float64(2)}, out.AsMap())
}

func TestPresenceUserDevices(t *testing.T) {
	c := startBufServer(t, fakeOnline{}, "secret")
	total, devices, err := c.UserDevices(context.Background(), 9)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Equal(t, []client.Device{
		{IP: "1.1.1.1", NodeType: "vmess", NodeID: 1, NodeKey: "vmess1", LastSeen: 100},
		{IP: "2.2.2.2", NodeType: "vmess"},
	}, devices)

	_, _, err = c.UserDevices(context.Background(), 0)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestPresenceRejectsBadToken(t *testing.T) {
	c := startBufServer(t, fakeOnline{}, "wrong")
	_, err := c.OnlineCounts(context.Background(), []int64{1})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}

func TestPresenceInvalidModeIsFailedPrecondition(t *testing.T) {
	c := startBufServer(t, fakeOnline{modeErr: presence.ErrInvalidCountMode}, "secret")
	_, err := c.OnlineCounts(context.Background(), []int64{1})
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))
}
