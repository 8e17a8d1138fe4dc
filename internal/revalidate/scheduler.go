// Package revalidate rebuilds the site map on a fixed interval.
package revalidate

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/starford/blockpress/internal/logfields"
)

// JobName names the periodic rebuild job.
const JobName = "sitemap-revalidate"

// RebuildFunc performs one rebuild.
type RebuildFunc func(ctx context.Context) error

// Scheduler wraps a gocron scheduler running one periodic rebuild job.
type Scheduler struct {
	scheduler gocron.Scheduler
	rebuild   RebuildFunc
	logger    *slog.Logger
}

// NewScheduler creates a new scheduler instance.
func NewScheduler(rebuild RebuildFunc, logger *slog.Logger) (*Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("revalidate: create scheduler: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{scheduler: s, rebuild: rebuild, logger: logger}, nil
}

// Schedule registers the rebuild to run every interval. Runs never
// overlap; a tick that fires while a rebuild is still running is skipped.
func (s *Scheduler) Schedule(ctx context.Context, interval time.Duration) (string, error) {
	job, err := s.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() { s.execute(ctx) }),
		gocron.WithName(JobName),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return "", fmt.Errorf("revalidate: create job: %w", err)
	}
	return job.ID().String(), nil
}

// Start begins the scheduler.
func (s *Scheduler) Start() {
	s.logger.Info("revalidate: starting scheduler")
	s.scheduler.Start()
}

// Stop gracefully shuts down the scheduler.
func (s *Scheduler) Stop() error {
	s.logger.Info("revalidate: stopping scheduler")
	return s.scheduler.Shutdown()
}

func (s *Scheduler) execute(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	start := time.Now()
	if err := s.rebuild(ctx); err != nil {
		s.logger.Error("revalidate: rebuild failed", logfields.Job(JobName), logfields.Error(err))
		return
	}
	s.logger.Debug("revalidate: rebuild done",
		logfields.Job(JobName),
		logfields.DurationMS(float64(time.Since(start).Microseconds())/1000))
}
