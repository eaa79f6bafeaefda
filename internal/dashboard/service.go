package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"beaconattend/internal/attendance"
	"beaconattend/internal/directory"
	"beaconattend/internal/observability"
)

const (
	cacheKey    = "dashboard:stats"
	recentLimit = 5
)

// Stats is the summary shown on the admin dashboard.
type Stats struct {
	TotalStudents   int                 `json:"totalStudents"`
	TotalTeachers   int                 `json:"totalTeachers"`
	TotalAttendance int                 `json:"totalAttendance"`
	TodayAttendance int                 `json:"todayAttendance"`
	Recent          []attendance.Record `json:"recent"`
	GeneratedAt     time.Time           `json:"generatedAt"`
}

// Directory counts identities per kind.
type Directory interface {
	Count(ctx context.Context, kind directory.Kind) (int, error)
}

// Attendance is the read side of the attendance ledger.
type Attendance interface {
	Count(ctx context.Context) (int, error)
	CountSince(ctx context.Context, since time.Time) (int, error)
	List(ctx context.Context, limit int) ([]attendance.Record, error)
}

// Service aggregates dashboard stats and caches them in redis.
type Service struct {
	directory  Directory
	attendance Attendance
	cache      *redis.Client
	cacheTTL   time.Duration
	logger     zerolog.Logger
	now        func() time.Time
}

// NewService builds the aggregator. cache may be nil.
func NewService(dir Directory, att Attendance, cache *redis.Client, ttl time.Duration, logger zerolog.Logger) *Service {
	return &Service{
		directory:  dir,
		attendance: att,
		cache:      cache,
		cacheTTL:   ttl,
		logger:     logger.With().Str("component", "dashboard").Logger(),
		now:        time.Now,
	}
}

// Get returns the stats and whether they were served from cache.
func (s *Service) Get(ctx context.Context) (Stats, bool, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, cacheKey).Result()
		switch {
		case err == nil:
			var stats Stats
			if jsonErr := json.Unmarshal([]byte(cached), &stats); jsonErr == nil {
				observability.DashboardCacheLookups().WithLabelValues("hit").Inc()
				return stats, true, nil
			}
			observability.DashboardCacheLookups().WithLabelValues("error").Inc()
		case errors.Is(err, redis.Nil):
			observability.DashboardCacheLookups().WithLabelValues("miss").Inc()
		default:
			observability.DashboardCacheLookups().WithLabelValues("error").Inc()
			s.logger.Warn().Err(err).Msg("failed to read dashboard cache")
		}
	}

	stats, err := s.build(ctx)
	if err != nil {
		return Stats{}, false, err
	}

	if s.cache != nil && s.cacheTTL > 0 {
		payload, err := json.Marshal(stats)
		if err == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store dashboard cache")
			}
		}
	}
	return stats, false, nil
}

// Invalidate drops cached stats after attendance was marked.
func (s *Service) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, cacheKey).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to invalidate dashboard cache")
	}
}

func (s *Service) build(ctx context.Context) (Stats, error) {
	now := s.now()
	stats := Stats{GeneratedAt: now.UTC()}

	var err error
	if stats.TotalStudents, err = s.directory.Count(ctx, directory.KindStudent); err != nil {
		return Stats{}, err
	}
	if stats.TotalTeachers, err = s.directory.Count(ctx, directory.KindTeacher); err != nil {
		return Stats{}, err
	}
	if stats.TotalAttendance, err = s.attendance.Count(ctx); err != nil {
		return Stats{}, err
	}
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if stats.TodayAttendance, err = s.attendance.CountSince(ctx, midnight); err != nil {
		return Stats{}, err
	}
	if stats.Recent, err = s.attendance.List(ctx, recentLimit); err != nil {
		return Stats{}, err
	}
	return stats, nil
}
