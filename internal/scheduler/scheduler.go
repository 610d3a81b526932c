package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog"
)

// Job is a named task run every Interval.
type Job struct {
	Name     string
	Interval time.Duration
	Timeout  time.Duration
	Run      func(ctx context.Context) error
}

// Scheduler runs background jobs such as storage sync and cache warm-up.
type Scheduler struct {
	scheduler *gocron.Scheduler
	jobs      []Job
	logger    zerolog.Logger
}

// New creates a new Scheduler.
func New(jobs []Job, logger zerolog.Logger) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	return &Scheduler{
		scheduler: s,
		jobs:      jobs,
		logger:    logger.With().Str("component", "scheduler").Logger(),
	}
}

// Start schedules every job with a positive interval and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	scheduled := 0
	for _, job := range s.jobs {
		if job.Interval <= 0 || job.Run == nil {
			s.logger.Info().Str("job", job.Name).Msg("job disabled")
			continue
		}

		job := job
		if _, err := s.scheduler.Every(job.Interval).Name(job.Name).Do(func() { s.run(job) }); err != nil {
			return err
		}
		scheduled++
	}

	if scheduled == 0 {
		s.logger.Info().Msg("no jobs configured; nothing to schedule")
		return nil
	}

	s.scheduler.StartAsync()
	return nil
}

func (s *Scheduler) run(job Job) {
	timeout := job.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	start := time.Now()
	err := job.Run(ctx)
	ev := s.logger.Debug()
	if err != nil {
		ev = s.logger.Warn().Err(err)
		if errors.Is(err, context.DeadlineExceeded) {
			ev = ev.Dur("timeout", timeout)
		}
	}
	ev.Str("job", job.Name).Dur("took", time.Since(start)).Msg("job finished")
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
