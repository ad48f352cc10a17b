package scheduler

import (
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/segyhp/microcredit-engine/internal/config"
	"github.com/segyhp/microcredit-engine/internal/jobs"
)

// Scheduler manages cron job scheduling
type Scheduler struct {
	cron   *cron.Cron
	jobs   *jobs.JobRunner
	logger *logrus.Logger
}

// NewScheduler creates a scheduler running in the configured time zone and
// registers the loan maintenance jobs
func NewScheduler(jobRunner *jobs.JobRunner, cfg *config.Config, logger *logrus.Logger) (*Scheduler, error) {
	cronLogger := cron.PrintfLogger(logger)
	c := cron.New(
		cron.WithLocation(cfg.GetSchedulerLocation()),
		cron.WithSeconds(),
		cron.WithLogger(cronLogger),
		cron.WithChain(cron.SkipIfStillRunning(cronLogger)),
	)

	s := &Scheduler{
		cron:   c,
		jobs:   jobRunner,
		logger: logger,
	}

	if err := s.registerJobs(cfg.Scheduler); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Scheduler) registerJobs(cfg config.SchedulerConfig) error {
	if _, err := s.cron.AddFunc("@every "+cfg.Interval, s.jobs.RefreshLoanStatuses); err != nil {
		return fmt.Errorf("register status refresh job: %w", err)
	}

	if cfg.ReminderSpec != "" {
		if _, err := s.cron.AddFunc(cfg.ReminderSpec, s.jobs.SendInstallmentReminders); err != nil {
			return fmt.Errorf("register installment reminder job: %w", err)
		}
	}

	s.logger.WithFields(logrus.Fields{
		"status_interval": cfg.Interval,
		"reminder_spec":   cfg.ReminderSpec,
		"jobs":            len(s.cron.Entries()),
	}).Info("Cron jobs registered")
	return nil
}

// Start begins the cron scheduler
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("Cron scheduler started")
}

// Stop waits for running jobs to finish
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Cron scheduler stopped")
}

// Entries returns the number of registered jobs
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}
