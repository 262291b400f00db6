/**
 * @description
 * Cron scheduler for housekeeping jobs.
 */
package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/DanstheMan1981/allrails/internal/store"
	"github.com/robfig/cron/v3"
)

// Jobs holds the housekeeping job bodies.
type Jobs struct {
	outbox    store.OutboxRepository
	retention time.Duration
	logger    *slog.Logger
	now       func() time.Time
}

func NewJobs(outbox store.OutboxRepository, retention time.Duration, logger *slog.Logger) *Jobs {
	return &Jobs{outbox: outbox, retention: retention, logger: logger, now: time.Now}
}

// PurgePublishedOutbox deletes published events older than the retention window.
func (j *Jobs) PurgePublishedOutbox() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	cutoff := j.now().Add(-j.retention)
	purged, err := j.outbox.PurgePublishedOutbox(ctx, cutoff)
	if err != nil {
		j.logger.Error("outbox purge failed", "error", err)
		return
	}
	j.logger.Info("outbox purge completed", "purged", purged, "cutoff", cutoff)
}

// Scheduler manages the cron jobs.
type Scheduler struct {
	cron          *cron.Cron
	jobs          *Jobs
	logger        *slog.Logger
	purgeSchedule string
}

// NewScheduler creates a new scheduler instance.
func NewScheduler(jobs *Jobs, logger *slog.Logger, purgeSchedule string) *Scheduler {
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelInfo))
	c := cron.New(cron.WithChain(cron.Recover(cronLogger)))

	return &Scheduler{
		cron:          c,
		jobs:          jobs,
		logger:        logger,
		purgeSchedule: purgeSchedule,
	}
}

// Start registers the jobs and starts the cron scheduler.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.purgeSchedule, s.jobs.PurgePublishedOutbox); err != nil {
		s.logger.Error("failed to schedule outbox purge job", "error", err)
		return err
	}
	s.logger.Info("scheduled outbox purge job", "schedule", s.purgeSchedule)

	s.cron.Start()
	return nil
}

// Stop stops the scheduler; the returned context is done when running jobs finish.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}
