// 文件路径: internal/presence/tracker.go
// 模块说明: 节点上报在线 IP 后更新用户的在线数据：清理过期节点、覆盖本节点条目、
// 按当前模式重算 alive_ip 再写回缓存。
package presence

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

const (
	DefaultAliveTTL    = 120 * time.Second
	DefaultAliveExpiry = 100 * time.Second

	lockStripes = 64
)

// ModeSource resolves the current device counting mode.
type ModeSource interface {
	CountMode(ctx context.Context) (CountMode, error)
}

// StaticMode is a ModeSource that always returns the same mode.
type StaticMode CountMode

func (m StaticMode) CountMode(context.Context) (CountMode, error) {
	return ParseCountMode(int(m))
}

// Tracker writes node reports into presence payloads.
type Tracker struct {
	store  *Store
	modes  ModeSource
	ttl    time.Duration
	expiry time.Duration
	now    func() time.Time

	// 同一用户的读改写串行执行，避免并发上报时丢失节点条目。
	locks [lockStripes]sync.Mutex
}

// TrackerOption customizes a Tracker.
type TrackerOption func(*Tracker)

func WithAliveTTL(ttl time.Duration) TrackerOption {
	return func(t *Tracker) {
		if ttl > 0 {
			t.ttl = ttl
		}
	}
}

func WithAliveExpiry(expiry time.Duration) TrackerOption {
	return func(t *Tracker) {
		if expiry > 0 {
			t.expiry = expiry
		}
	}
}

func WithClock(now func() time.Time) TrackerOption {
	return func(t *Tracker) {
		if now != nil {
			t.now = now
		}
	}
}

func NewTracker(store *Store, modes ModeSource, opts ...TrackerOption) *Tracker {
	t := &Tracker{
		store:  store,
		modes:  modes,
		ttl:    DefaultAliveTTL,
		expiry: DefaultAliveExpiry,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Record stores the alive tokens reported by one node for each user. The
// tokens are "<ip>_<nodeId>" strings; duplicates and blanks are dropped.
func (t *Tracker) Record(ctx context.Context, nodeType string, nodeID int64, alive map[int64][]string) error {
	token, ok := EncodeNodeKey(nodeType, nodeID)
	if !ok {
		return fmt.Errorf("presence: invalid node %q/%d / 无效的节点", nodeType, nodeID)
	}
	if len(alive) == 0 {
		return nil
	}
	mode, err := t.modes.CountMode(ctx)
	if err != nil {
		return err
	}
	now := t.now().Unix()

	userIDs := make([]int64, 0, len(alive))
	for id := range alive {
		if id > 0 {
			userIDs = append(userIDs, id)
		}
	}
	sort.Slice(userIDs, func(i, j int) bool { return userIDs[i] < userIDs[j] })

	for _, userID := range userIDs {
		if err := ctx.Err(); err != nil {
			return err
		}
		entry := NodeEntry{Token: token, AliveIPs: dedupeTokens(alive[userID]), LastUpdateAt: now}
		if err := t.recordUser(ctx, userID, entry, mode, now); err != nil {
			return err
		}
	}
	return nil
}

func (t *Tracker) recordUser(ctx context.Context, userID int64, entry NodeEntry, mode CountMode, now int64) error {
	mu := &t.locks[uint64(userID)%lockStripes]
	mu.Lock()
	defer mu.Unlock()

	p, err := t.store.Get(ctx, userID)
	if err != nil {
		return err
	}
	p = prune(p, now, int64(t.expiry.Seconds()))
	p = upsert(p, entry)
	count, err := mode.Count(p)
	if err != nil {
		return err
	}
	p.AliveIP = count
	if err := t.store.Put(ctx, userID, p, t.ttl); err != nil {
		return fmt.Errorf("store presence for user %d: %w", userID, err)
	}
	return nil
}

func prune(p Payload, now, expiry int64) Payload {
	kept := p.Entries[:0:0]
	for _, e := range p.Entries {
		if now-e.LastUpdateAt > expiry {
			continue
		}
		kept = append(kept, e)
	}
	p.Entries = kept
	return p
}

func upsert(p Payload, entry NodeEntry) Payload {
	for i := range p.Entries {
		if p.Entries[i].Token == entry.Token {
			p.Entries[i] = entry
			return p
		}
	}
	p.Entries = append(p.Entries, entry)
	return p
}

func dedupeTokens(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	return out
}
