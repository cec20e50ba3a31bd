package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/creamcroissant/xboard-presence/internal/migrations"
	"github.com/creamcroissant/xboard-presence/internal/repository"
)

func newTestStore(t *testing.T) (*Store, *sql.DB) {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, migrations.Up(db))
	return NewStore(db), db
}

func int64Ptr(v int64) *int64 { return &v }

func strPtr(v string) *string { return &v }

func TestSettingsGetAndUpsert(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	settings := store.Settings()

	_, err := settings.Get(ctx, "device_limit_mode")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	require.NoError(t, settings.Upsert(ctx, &repository.Setting{Key: "device_limit_mode", Value: "1", Category: "server", UpdatedAt: 10}))
	require.NoError(t, settings.Upsert(ctx, &repository.Setting{Key: "device_limit_mode", Value: "0", UpdatedAt: 20}))

	got, err := settings.Get(ctx, "device_limit_mode")
	require.NoError(t, err)
	assert.Equal(t, "0", got.Value)
	assert.Equal(t, "server", got.Category)
	assert.Equal(t, int64(20), got.UpdatedAt)

	assert.Error(t, settings.Upsert(ctx, &repository.Setting{Key: " "}))
}

func TestServersLookup(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	servers := store.Servers()

	hk := &repository.Server{Name: "<b>HK</b> 01", Type: "VMess", Code: "hk-01"}
	jp := &repository.Server{Name: "JP", Type: "trojan"}
	require.NoError(t, servers.Create(ctx, hk))
	require.NoError(t, servers.Create(ctx, jp))
	assert.Equal(t, 1.0, hk.Rate)

	got, err := servers.FindByIdentifier(ctx, "hk-01", "vmess")
	require.NoError(t, err)
	assert.Equal(t, hk.ID, got.ID)
	assert.Equal(t, "vmess", got.Type)

	got, err = servers.FindByIdentifier(ctx, "2", "")
	require.NoError(t, err)
	assert.Equal(t, jp.ID, got.ID)

	_, err = servers.FindByIdentifier(ctx, "2", "vmess")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	names, err := servers.NamesByIDs(ctx, []int64{hk.ID, jp.ID, 99})
	require.NoError(t, err)
	assert.Equal(t, map[int64]string{hk.ID: "<b>HK</b> 01", jp.ID: "JP"}, names)

	require.NoError(t, servers.UpdateHeartbeat(ctx, jp.ID, 1234))
	got, err = servers.FindByID(ctx, jp.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1234), got.LastHeartbeatAt)
}

func TestUsersListDeviceLimited(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	users := store.Users()

	fixtures := []*repository.User{
		{UUID: "a", Email: "a@x", DeviceLimit: int64Ptr(2)},
		{UUID: "b", Email: "b@x", DeviceLimit: int64Ptr(0)},
		{UUID: "c", Email: "c@x"},
		{UUID: "d", Email: "d@x", DeviceLimit: int64Ptr(3), Banned: true},
		{UUID: "e", Email: "e@x", DeviceLimit: int64Ptr(3), ExpiredAt: 50},
		{UUID: "f", Email: "f@x", DeviceLimit: int64Ptr(1), ExpiredAt: 500},
	}
	for _, u := range fixtures {
		_, err := users.Create(ctx, u)
		require.NoError(t, err)
	}

	list, err := users.ListDeviceLimited(ctx, 100)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].UUID)
	assert.Equal(t, "f", list[1].UUID)
	assert.Equal(t, int64(2), *list[0].DeviceLimit)

	got, err := users.FindByID(ctx, fixtures[2].ID)
	require.NoError(t, err)
	assert.Nil(t, got.DeviceLimit)
}

func TestStatUsersUpsertAccumulatesPerNode(t *testing.T) {
	store, db := newTestStore(t)
	ctx := context.Background()
	stats := store.StatUsers()

	record := repository.StatUserRecord{
		UserID: 7, ServerID: int64Ptr(3), ServerType: strPtr("vmess"), ServerRate: 1,
		RecordAt: 1000, RecordType: 1, Upload: 10, Download: 20,
		CreatedAt: repository.UnixTimestamp(1000), UpdatedAt: repository.UnixTimestamp(1000),
	}
	require.NoError(t, stats.Upsert(ctx, record))
	record.Upload, record.Download, record.UpdatedAt = 1, 2, repository.UnixTimestamp(1100)
	require.NoError(t, stats.Upsert(ctx, record))

	other := record
	other.ServerID = int64Ptr(4)
	other.UpdatedAt = repository.UnixTimestamp(1200)
	require.NoError(t, stats.Upsert(ctx, other))

	_, err := db.ExecContext(ctx, `INSERT INTO stat_users(user_id, server_rate, record_at, record_type, u, d, created_at, updated_at)
		VALUES(7, 1, 900, 1, 5, 5, '2024-05-01 10:00:00', NULL)`)
	require.NoError(t, err)

	rows, err := stats.ListByUserRange(ctx, repository.StatUserRange{UserID: 7, StartAt: 900, EndAt: 2000})
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, int64(4), *rows[0].ServerID)
	assert.Equal(t, int64(3), *rows[1].ServerID)
	assert.Equal(t, int64(11), rows[1].Upload)
	assert.Equal(t, int64(22), rows[1].Download)

	legacy := rows[2]
	assert.Nil(t, legacy.ServerID)
	assert.Nil(t, legacy.ServerType)
	assert.True(t, legacy.UpdatedAt.IsNull())
	assert.Equal(t, "2024-05-01 10:00:00", legacy.CreatedAt.Raw())

	rows, err = stats.ListByUserRange(ctx, repository.StatUserRange{UserID: 7, StartAt: 950, EndAt: 2000})
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}
