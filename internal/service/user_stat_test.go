package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creamcroissant/xboard-presence/internal/presence"
	"github.com/creamcroissant/xboard-presence/internal/repository"
)

func TestTrafficLogsCurrentMonthEnriched(t *testing.T) {
	ctx := context.Background()
	online, backend := newOnlineFixture(t, presence.CountConnections, nil)
	require.NoError(t, backend.Set(ctx, "ALIVE_IP_USER_7", vmessPayload, time.Minute))

	now := time.Date(2024, 5, 20, 12, 0, 0, 0, time.UTC)
	monthStart := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC).Unix()
	stats := &fakeStats{records: []repository.StatUserRecord{
		{ID: 1, UserID: 7, RecordAt: monthStart - 86400, UpdatedAt: repository.UnixTimestamp(monthStart)},
		{ID: 2, UserID: 7, RecordAt: monthStart, ServerID: ptr(int64(1)), ServerType: ptr("vmess"), UpdatedAt: repository.UnixTimestamp(monthStart + 10)},
		{ID: 3, UserID: 7, RecordAt: monthStart + 86400, ServerID: ptr(int64(2)), ServerType: ptr("vmess"), UpdatedAt: repository.TextTimestamp("2024-05-03 00:00:00")},
		{ID: 4, UserID: 8, RecordAt: monthStart},
	}}
	servers := &fakeServers{servers: map[int64]*repository.Server{1: {ID: 1, Name: "JP"}}}

	svc := NewUserStatService(stats, servers, online, UserStatOptions{}, nil).(*userStatService)
	svc.now = func() time.Time { return now }

	logs, err := svc.TrafficLogs(ctx, "7")
	require.NoError(t, err)
	assert.Equal(t, monthStart, stats.lastSpan.StartAt)
	assert.Equal(t, now.Unix(), stats.lastSpan.EndAt)

	require.Len(t, logs, 2)
	assert.Equal(t, int64(3), logs[0].ID)
	assert.Equal(t, "Node #2", *logs[0].ServerName)
	assert.Equal(t, []string{"1.1.1.1"}, logs[0].DeviceIPs)
	assert.Equal(t, int64(2), logs[1].ID)
	assert.Equal(t, "JP", *logs[1].NodeName)
	assert.Equal(t, 2, logs[1].DeviceCount)
	require.Len(t, servers.nameCalls, 1)
	assert.ElementsMatch(t, []int64{2, 1}, servers.nameCalls[0])
}

func TestTrafficLogsRejectsBadUser(t *testing.T) {
	svc := NewUserStatService(&fakeStats{}, nil, nil, UserStatOptions{}, nil)
	_, err := svc.TrafficLogs(context.Background(), "abc")
	require.ErrorIs(t, err, ErrInvalidUserID)
}

func TestTrafficLogsTimezoneMonthStart(t *testing.T) {
	loc := time.FixedZone("UTC+8", 8*3600)
	stats := &fakeStats{}
	svc := NewUserStatService(stats, nil, nil, UserStatOptions{Location: loc}, nil).(*userStatService)
	svc.now = func() time.Time { return time.Date(2024, 4, 30, 17, 0, 0, 0, time.UTC) }

	_, err := svc.TrafficLogs(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, loc).Unix(), stats.lastSpan.StartAt)
}
