package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/creamcroissant/xboard-presence/internal/repository"
)

const recordTypeDaily = 1

// TrafficSample is one user's traffic delta reported by a node.
type TrafficSample struct {
	UserID   int64
	Upload   int64
	Download int64
}

// ServerTrafficService stores node traffic reports as daily stat_users rows
// tagged with the reporting node.
type ServerTrafficService interface {
	RecordPush(ctx context.Context, server *repository.Server, samples []TrafficSample) error
}

type serverTrafficService struct {
	stats repository.StatUserRepository
	loc   *time.Location
	now   func() time.Time
}

func NewServerTrafficService(stats repository.StatUserRepository, loc *time.Location) ServerTrafficService {
	if loc == nil {
		loc = time.UTC
	}
	return &serverTrafficService{stats: stats, loc: loc, now: time.Now}
}

func (s *serverTrafficService) RecordPush(ctx context.Context, server *repository.Server, samples []TrafficSample) error {
	if err := ensureServer(server); err != nil {
		return err
	}
	if s.stats == nil {
		return fmt.Errorf("stat repository unavailable / 流量仓库不可用")
	}
	now := s.now()
	recordAt := startOfDay(now, s.loc).Unix()
	rate := server.Rate
	if rate <= 0 {
		rate = 1
	}
	serverID := server.ID
	serverType := strings.ToLower(strings.TrimSpace(server.Type))

	for _, sample := range samples {
		if sample.UserID <= 0 || (sample.Upload <= 0 && sample.Download <= 0) {
			continue
		}
		record := repository.StatUserRecord{
			UserID:     sample.UserID,
			ServerID:   &serverID,
			ServerType: &serverType,
			ServerRate: rate,
			RecordAt:   recordAt,
			RecordType: recordTypeDaily,
			Upload:     int64(math.Round(float64(sample.Upload) * rate)),
			Download:   int64(math.Round(float64(sample.Download) * rate)),
			CreatedAt:  repository.UnixTimestamp(now.Unix()),
			UpdatedAt:  repository.UnixTimestamp(now.Unix()),
		}
		if err := s.stats.Upsert(ctx, record); err != nil {
			return fmt.Errorf("upsert traffic for user %d: %w", sample.UserID, err)
		}
	}
	return nil
}
