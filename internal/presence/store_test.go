package presence

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creamcroissant/xboard-presence/internal/cache"
)

// countingCache 记录 GetMany 的调用次数。
type countingCache struct {
	cache.Store
	getManyCalls int
	getCalls     int
}

func (c *countingCache) GetMany(ctx context.Context, keys []string) map[string]any {
	c.getManyCalls++
	return c.Store.GetMany(ctx, keys)
}

func (c *countingCache) Get(ctx context.Context, key string) (any, bool) {
	c.getCalls++
	return c.Store.Get(ctx, key)
}

func newCountingCache() *countingCache {
	return &countingCache{Store: cache.NewStore(cache.Options{})}
}

func TestStoreGetBatchUsesOneCall(t *testing.T) {
	ctx := context.Background()
	backend := newCountingCache()
	store := NewStore(backend, "", nil)

	require.NoError(t, backend.SetBytes(ctx, "ALIVE_IP_USER_1", []byte(`{"vmess1":{"aliveips":["1.1.1.1_1"],"lastupdateAt":1},"alive_ip":1}`), time.Minute))
	require.NoError(t, backend.Set(ctx, "ALIVE_IP_USER_2", `{"trojan2":{"aliveips":["2.2.2.2_2"],"lastupdateAt":2},"alive_ip":1}`, time.Minute))
	require.NoError(t, backend.Set(ctx, "ALIVE_IP_USER_3", "not json", time.Minute))
	require.NoError(t, backend.Set(ctx, "ALIVE_IP_USER_4", map[string]any{
		"vless4":   map[string]any{"aliveips": []string{"4.4.4.4_4"}, "lastupdateAt": 4},
		"alive_ip": 1,
	}, time.Minute))

	ids := []int64{1, 2, 3, 4, 5, 1, 0, -2}
	got, err := store.GetBatch(ctx, ids)
	require.NoError(t, err)

	assert.Equal(t, 1, backend.getManyCalls)
	assert.Zero(t, backend.getCalls)
	require.Len(t, got, 3)
	assert.Equal(t, "vmess1", got[1].Entries[0].Token)
	assert.Equal(t, "trojan2", got[2].Entries[0].Token)
	assert.Equal(t, []string{"4.4.4.4_4"}, got[4].Entries[0].AliveIPs)
	_, ok := got[3]
	assert.False(t, ok)
}

func TestStoreGetBatchEmptyInput(t *testing.T) {
	backend := newCountingCache()
	got, err := NewStore(backend, "", nil).GetBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Zero(t, backend.getManyCalls)
}

func TestStoreGetAbsentAndPut(t *testing.T) {
	ctx := context.Background()
	store := NewStore(cache.NewStore(cache.Options{}), "CUSTOM_", nil)
	assert.Equal(t, "CUSTOM_42", store.Key(42))

	p, err := store.Get(ctx, 42)
	require.NoError(t, err)
	assert.True(t, p.Empty())

	want := Payload{Entries: []NodeEntry{{Token: "vmess1", AliveIPs: []string{"1.1.1.1_1"}, LastUpdateAt: 7}}, AliveIP: 1}
	require.NoError(t, store.Put(ctx, 42, want, time.Minute))

	got, err := store.Get(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
