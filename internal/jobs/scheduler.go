// Package jobs runs periodic maintenance: payload cache cleanup, query
// history pruning, idle chat session pruning and an optional daily prefetch.
package jobs

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/lox/powerweather/internal/insight"
	"github.com/lox/powerweather/internal/metrics"
	"github.com/lox/powerweather/internal/models"
	"github.com/lox/powerweather/internal/power"
)

type Maintainer interface {
	CleanupPayloads(retention time.Duration) (int64, error)
	PruneQueries(keep int) (int64, error)
}

type Fetcher interface {
	Fetch(ctx context.Context, req power.Request) (insight.AdaptResult, error)
}

type SessionPruner interface {
	Prune(maxAge time.Duration) int
}

type Config struct {
	Retention     time.Duration
	KeepQueries   int
	CleanupEvery  time.Duration
	SessionMaxAge time.Duration
	PrefetchAt    string // HH:MM UTC
}

func DefaultConfig() Config {
	return Config{
		Retention:     7 * 24 * time.Hour,
		KeepQueries:   50,
		CleanupEvery:  time.Hour,
		SessionMaxAge: 6 * time.Hour,
		PrefetchAt:    "06:00",
	}
}

type Scheduler struct {
	cron     *gocron.Scheduler
	store    Maintainer
	cfg      Config
	sessions SessionPruner
	fetcher  Fetcher
	prefetch []models.Location
	now      func() time.Time
}

func New(store Maintainer, cfg Config) *Scheduler {
	return &Scheduler{
		cron:  gocron.NewScheduler(time.UTC),
		store: store,
		cfg:   cfg,
		now:   time.Now,
	}
}

func (s *Scheduler) SetSessions(p SessionPruner) {
	s.sessions = p
}

// SetPrefetch warms the payload cache for locations once a day.
func (s *Scheduler) SetPrefetch(f Fetcher, locations []models.Location) {
	s.fetcher = f
	s.prefetch = locations
}

func (s *Scheduler) Start() error {
	every := s.cfg.CleanupEvery
	if every <= 0 {
		every = time.Hour
	}
	s.cron.SingletonModeAll()

	if _, err := s.cron.Every(every).Do(func() {
		if err := s.RunCleanup(); err != nil {
			log.Printf("scheduler: cleanup: %v", err)
		}
	}); err != nil {
		return fmt.Errorf("schedule cleanup: %w", err)
	}

	if s.fetcher != nil && len(s.prefetch) > 0 {
		if _, err := s.cron.Every(1).Day().At(s.cfg.PrefetchAt).Do(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()
			s.Prefetch(ctx)
		}); err != nil {
			return fmt.Errorf("schedule prefetch: %w", err)
		}
		log.Printf("scheduler: prefetching %d locations daily at %s UTC", len(s.prefetch), s.cfg.PrefetchAt)
	}

	s.cron.StartAsync()
	return nil
}

func (s *Scheduler) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
}

// RunCleanup removes expired payloads, old query history and idle sessions.
func (s *Scheduler) RunCleanup() error {
	removed, err := s.store.CleanupPayloads(s.cfg.Retention)
	if err != nil {
		return fmt.Errorf("cleanup payloads: %w", err)
	}
	metrics.PayloadsCleaned.Add(float64(removed))

	pruned, err := s.store.PruneQueries(s.cfg.KeepQueries)
	if err != nil {
		return fmt.Errorf("prune queries: %w", err)
	}

	sessions := 0
	if s.sessions != nil && s.cfg.SessionMaxAge > 0 {
		sessions = s.sessions.Prune(s.cfg.SessionMaxAge)
	}

	if removed > 0 || pruned > 0 || sessions > 0 {
		log.Printf("scheduler: removed %d payloads, %d queries, %d chat sessions", removed, pruned, sessions)
	}
	return nil
}

// Prefetch fetches the dashboard's default request for each configured
// location so the first page load is served from cache.
func (s *Scheduler) Prefetch(ctx context.Context) int {
	now := s.now()
	ok := 0
	for _, loc := range s.prefetch {
		if _, err := s.fetcher.Fetch(ctx, power.DefaultRequest(loc, models.TemporalDaily, now)); err != nil {
			log.Printf("scheduler: prefetch %s: %v", loc.DisplayName(), err)
			continue
		}
		ok++
	}
	return ok
}
