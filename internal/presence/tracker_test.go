package presence

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creamcroissant/xboard-presence/internal/cache"
)

func TestTrackerRecordMergesNodes(t *testing.T) {
	ctx := context.Background()
	store := NewStore(cache.NewStore(cache.Options{}), "", nil)
	now := time.Unix(1700000000, 0)
	tracker := NewTracker(store, StaticMode(CountDistinctIPs), WithClock(func() time.Time { return now }))

	require.NoError(t, tracker.Record(ctx, "VMess", 1, map[int64][]string{
		7: {"1.1.1.1_1", "2.2.2.2_1", "1.1.1.1_1", " "},
	}))
	now = now.Add(10 * time.Second)
	require.NoError(t, tracker.Record(ctx, "trojan", 3, map[int64][]string{
		7: {"1.1.1.1_3"},
	}))

	p, err := store.Get(ctx, 7)
	require.NoError(t, err)
	require.Len(t, p.Entries, 2)
	assert.Equal(t, "vmess1", p.Entries[0].Token)
	assert.Equal(t, []string{"1.1.1.1_1", "2.2.2.2_1"}, p.Entries[0].AliveIPs)
	assert.Equal(t, int64(1700000000), p.Entries[0].LastUpdateAt)
	assert.Equal(t, "trojan3", p.Entries[1].Token)
	assert.Equal(t, 2, p.AliveIP)
}

func TestTrackerRecordPrunesExpired(t *testing.T) {
	ctx := context.Background()
	store := NewStore(cache.NewStore(cache.Options{}), "", nil)
	now := time.Unix(1700000000, 0)
	tracker := NewTracker(store, StaticMode(CountConnections),
		WithClock(func() time.Time { return now }),
		WithAliveExpiry(100*time.Second),
		WithAliveTTL(time.Minute),
	)

	require.NoError(t, tracker.Record(ctx, "vmess", 1, map[int64][]string{7: {"1.1.1.1_1"}}))
	now = now.Add(101 * time.Second)
	require.NoError(t, tracker.Record(ctx, "vmess", 2, map[int64][]string{7: {"2.2.2.2_2", "3.3.3.3_2"}}))

	p, err := store.Get(ctx, 7)
	require.NoError(t, err)
	require.Len(t, p.Entries, 1)
	assert.Equal(t, "vmess2", p.Entries[0].Token)
	assert.Equal(t, 2, p.AliveIP)
}

func TestTrackerRecordReplacesOwnEntry(t *testing.T) {
	ctx := context.Background()
	store := NewStore(cache.NewStore(cache.Options{}), "", nil)
	tracker := NewTracker(store, StaticMode(CountConnections))

	require.NoError(t, tracker.Record(ctx, "vmess", 1, map[int64][]string{7: {"1.1.1.1_1", "2.2.2.2_1"}}))
	require.NoError(t, tracker.Record(ctx, "vmess", 1, map[int64][]string{7: {"3.3.3.3_1"}}))

	p, err := store.Get(ctx, 7)
	require.NoError(t, err)
	require.Len(t, p.Entries, 1)
	assert.Equal(t, []string{"3.3.3.3_1"}, p.Entries[0].AliveIPs)
	assert.Equal(t, 1, p.AliveIP)
}

func TestTrackerRecordErrors(t *testing.T) {
	ctx := context.Background()
	store := NewStore(cache.NewStore(cache.Options{}), "", nil)

	err := NewTracker(store, StaticMode(CountConnections)).Record(ctx, "", 1, map[int64][]string{1: {"x"}})
	assert.Error(t, err)

	err = NewTracker(store, StaticMode(5)).Record(ctx, "vmess", 1, map[int64][]string{1: {"1.1.1.1_1"}})
	assert.ErrorIs(t, err, ErrInvalidCountMode)

	p, err := store.Get(ctx, 1)
	require.NoError(t, err)
	assert.True(t, p.Empty())
}

func TestTrackerConcurrentNodesKeepEveryEntry(t *testing.T) {
	ctx := context.Background()
	store := NewStore(cache.NewStore(cache.Options{}), "", nil)
	now := time.Unix(1700000000, 0)
	tracker := NewTracker(store, StaticMode(CountConnections), WithClock(func() time.Time { return now }))

	const nodes = 16
	var wg sync.WaitGroup
	for id := int64(1); id <= nodes; id++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			assert.NoError(t, tracker.Record(ctx, "vless", id, map[int64][]string{
				7: {fmt.Sprintf("10.0.0.%d_%d", id, id)},
			}))
		}(id)
	}
	wg.Wait()

	p, err := store.Get(ctx, 7)
	require.NoError(t, err)
	assert.Len(t, p.Entries, nodes)
	assert.Equal(t, nodes, p.AliveIP)
}
