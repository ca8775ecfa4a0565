package scheduler

import (
	"context"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Scheduler runs periodic maintenance jobs on a cron schedule.
type Scheduler struct {
	cron    *cron.Cron
	handler *Handler
	logger  *zerolog.Logger
}

func New(handler *Handler, logger *zerolog.Logger) *Scheduler {
	log := logger.With().Str("channel", "scheduler").Logger()
	return &Scheduler{
		cron:    cron.New(),
		handler: handler,
		logger:  &log,
	}
}

func (s *Scheduler) Start() error {
	jobs := []struct {
		spec string
		name string
		run  func(ctx context.Context) error
	}{
		{"@hourly", "expire_overdue_subscriptions", s.handler.ExpireOverdueSubscriptions},
	}

	for _, job := range jobs {
		job := job
		_, err := s.cron.AddFunc(job.spec, func() {
			if err := job.run(context.Background()); err != nil {
				s.logger.Error().Err(err).Str("job", job.name).Msg("scheduled job failed")
			}
		})
		if err != nil {
			return errors.Wrapf(err, "unable to schedule job %q", job.name)
		}
	}

	s.cron.Start()
	s.logger.Info().Msg("scheduler started")

	return nil
}

func (s *Scheduler) Stop() error {
	<-s.cron.Stop().Done()
	s.logger.Info().Msg("scheduler stopped")
	return nil
}
