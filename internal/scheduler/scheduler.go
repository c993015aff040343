// Package scheduler runs enrichment sessions on a cron schedule. Sessions
// never overlap: a tick that fires while the previous session is still
// running is rescheduled.
package scheduler

import (
	"context"
	"fmt"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog"
)

// SessionFunc is the work executed on every tick.
type SessionFunc func(ctx context.Context) error

// Scheduler wraps gocron for the single recurring-session use case.
type Scheduler struct {
	gocron gocron.Scheduler
	logger zerolog.Logger
}

// New creates a scheduler.
func New(logger zerolog.Logger) (*Scheduler, error) {
	gs, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	return &Scheduler{
		gocron: gs,
		logger: logger.With().Str("component", "scheduler").Logger(),
	}, nil
}

// Schedule registers the session to run on the given cron expression and
// starts the scheduler.
func (s *Scheduler) Schedule(ctx context.Context, cron string, run SessionFunc) error {
	job, err := s.gocron.NewJob(
		gocron.CronJob(cron, false),
		gocron.NewTask(func() {
			s.logger.Info().Msg("scheduled session starting")
			if err := run(ctx); err != nil {
				s.logger.Error().Err(err).Msg("scheduled session failed")
			}
		}),
		gocron.WithName("enrichment-session"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule session: %w", err)
	}

	s.gocron.Start()

	if next, err := job.NextRun(); err == nil {
		s.logger.Info().Str("cron", cron).Time("nextRun", next).Msg("session scheduled")
	}
	return nil
}

// Stop shuts the scheduler down, waiting for a running session to finish.
func (s *Scheduler) Stop() error {
	return s.gocron.Shutdown()
}
