package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creamcroissant/xboard-presence/internal/cache"
	"github.com/creamcroissant/xboard-presence/internal/presence"
	"github.com/creamcroissant/xboard-presence/internal/repository"
)

const vmessPayload = `{"vmess1":{"aliveips":["1.1.1.1_1","2.2.2.2_1","1.1.1.1_2"],"lastupdateAt":1700000000},"alive_ip":3}`

func newOnlineFixture(t *testing.T, mode presence.CountMode, users *fakeUsers) (UserOnlineService, cache.Store) {
	t.Helper()
	backend := cache.NewStore(cache.Options{})
	store := presence.NewStore(backend, "", nil)
	return NewUserOnlineService(store, presence.DefaultRegistry(), presence.StaticMode(mode), users, nil), backend
}

func TestUserOnlineCountsByMode(t *testing.T) {
	ctx := context.Background()
	for _, tc := range []struct {
		mode presence.CountMode
		want int
	}{
		{presence.CountConnections, 3},
		{presence.CountDistinctIPs, 2},
	} {
		svc, backend := newOnlineFixture(t, tc.mode, nil)
		require.NoError(t, backend.Set(ctx, "ALIVE_IP_USER_7", vmessPayload, time.Minute))

		n, err := svc.OnlineCount(ctx, 7)
		require.NoError(t, err)
		assert.Equal(t, tc.want, n, tc.mode.String())
	}
}

func TestUserOnlineCountsIncludeEveryRequestedUser(t *testing.T) {
	ctx := context.Background()
	svc, backend := newOnlineFixture(t, presence.CountConnections, nil)
	require.NoError(t, backend.Set(ctx, "ALIVE_IP_USER_7", vmessPayload, time.Minute))

	counts, err := svc.OnlineCounts(ctx, []int64{7, 8, 0})
	require.NoError(t, err)
	assert.Equal(t, map[int64]int{7: 3, 8: 0}, counts)
}

func TestUserOnlineInvalidModeFails(t *testing.T) {
	svc, _ := newOnlineFixture(t, presence.CountMode(2), nil)
	_, err := svc.OnlineCount(context.Background(), 1)
	require.ErrorIs(t, err, presence.ErrInvalidCountMode)
}

func TestUserOnlineDevices(t *testing.T) {
	ctx := context.Background()
	svc, backend := newOnlineFixture(t, presence.CountConnections, nil)
	require.NoError(t, backend.Set(ctx, "ALIVE_IP_USER_7", vmessPayload, time.Minute))

	devices, err := svc.Devices(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 3, devices.TotalCount)
	require.Len(t, devices.Devices, 3)
	assert.Equal(t, "vmess2", devices.Devices[2].NodeKey)

	m, err := svc.DeviceMap(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, presence.DeviceMap{
		"vmess1": {"1.1.1.1", "2.2.2.2"},
		"vmess2": {"1.1.1.1"},
	}, m)

	empty, err := svc.DeviceMap(ctx, 9)
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = svc.Devices(ctx, 0)
	require.ErrorIs(t, err, ErrInvalidUserID)
}

func TestUserOnlineAliveListOmitsOffline(t *testing.T) {
	ctx := context.Background()
	limit := int64(2)
	users := &fakeUsers{limited: []*repository.NodeUser{
		{ID: 7, DeviceLimit: &limit},
		{ID: 8, DeviceLimit: &limit},
	}}
	svc, backend := newOnlineFixture(t, presence.CountDistinctIPs, users)
	require.NoError(t, backend.Set(ctx, "ALIVE_IP_USER_7", vmessPayload, time.Minute))

	alive, err := svc.AliveList(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[int64]int{7: 2}, alive)
}
