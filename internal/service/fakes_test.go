package service

import (
	"context"
	"strconv"
	"sync"

	"github.com/creamcroissant/xboard-presence/internal/repository"
)

type fakeSettings struct {
	mu     sync.Mutex
	values map[string]string
	gets   int
	err    error
}

func newFakeSettings(kv map[string]string) *fakeSettings {
	if kv == nil {
		kv = map[string]string{}
	}
	return &fakeSettings{values: kv}
}

func (f *fakeSettings) Get(_ context.Context, key string) (*repository.Setting, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	if f.err != nil {
		return nil, f.err
	}
	v, ok := f.values[key]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &repository.Setting{Key: key, Value: v}, nil
}

func (f *fakeSettings) Upsert(_ context.Context, s *repository.Setting) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[s.Key] = s.Value
	return nil
}

type fakeUsers struct {
	users   map[int64]*repository.User
	limited []*repository.NodeUser
}

func (f *fakeUsers) FindByID(_ context.Context, id int64) (*repository.User, error) {
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, repository.ErrNotFound
}

func (f *fakeUsers) Create(_ context.Context, u *repository.User) (*repository.User, error) {
	if f.users == nil {
		f.users = map[int64]*repository.User{}
	}
	f.users[u.ID] = u
	return u, nil
}

func (f *fakeUsers) ListDeviceLimited(context.Context, int64) ([]*repository.NodeUser, error) {
	return f.limited, nil
}

type fakeServers struct {
	servers    map[int64]*repository.Server
	heartbeats map[int64]int64
	nameCalls  [][]int64
}

func (f *fakeServers) FindByID(_ context.Context, id int64) (*repository.Server, error) {
	if s, ok := f.servers[id]; ok {
		return s, nil
	}
	return nil, repository.ErrNotFound
}

func (f *fakeServers) FindByIdentifier(_ context.Context, identifier, nodeType string) (*repository.Server, error) {
	for _, s := range f.servers {
		if (s.Code == identifier || formatID(s.ID) == identifier) && (nodeType == "" || s.Type == nodeType) {
			return s, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeServers) NamesByIDs(_ context.Context, ids []int64) (map[int64]string, error) {
	f.nameCalls = append(f.nameCalls, append([]int64(nil), ids...))
	out := map[int64]string{}
	for _, id := range ids {
		if s, ok := f.servers[id]; ok {
			out[id] = s.Name
		}
	}
	return out, nil
}

func (f *fakeServers) Create(_ context.Context, s *repository.Server) error {
	if f.servers == nil {
		f.servers = map[int64]*repository.Server{}
	}
	f.servers[s.ID] = s
	return nil
}

func (f *fakeServers) UpdateHeartbeat(_ context.Context, id int64, at int64) error {
	if f.heartbeats == nil {
		f.heartbeats = map[int64]int64{}
	}
	f.heartbeats[id] = at
	return nil
}

type fakeStats struct {
	records  []repository.StatUserRecord
	upserts  []repository.StatUserRecord
	lastSpan repository.StatUserRange
}

func (f *fakeStats) Upsert(_ context.Context, rec repository.StatUserRecord) error {
	f.upserts = append(f.upserts, rec)
	return nil
}

func (f *fakeStats) ListByUserRange(_ context.Context, span repository.StatUserRange) ([]repository.StatUserRecord, error) {
	f.lastSpan = span
	out := make([]repository.StatUserRecord, 0, len(f.records))
	for _, rec := range f.records {
		if rec.UserID == span.UserID && rec.RecordAt >= span.StartAt && rec.RecordAt <= span.EndAt {
			out = append(out, rec)
		}
	}
	return out, nil
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
