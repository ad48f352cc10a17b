package jobs

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

const defaultJobTimeout = 10 * time.Minute

// LoanMaintenance is the slice of the loan service the scheduled jobs drive
type LoanMaintenance interface {
	RefreshStatuses(ctx context.Context) (int, error)
	SendInstallmentReminders(ctx context.Context) (int, error)
}

// JobRunner coordinates all scheduled jobs
type JobRunner struct {
	loans   LoanMaintenance
	logger  *logrus.Logger
	timeout time.Duration
}

func NewJobRunner(loans LoanMaintenance, logger *logrus.Logger) *JobRunner {
	return &JobRunner{
		loans:   loans,
		logger:  logger,
		timeout: defaultJobTimeout,
	}
}

// runWithRecovery wraps job execution with a deadline and panic recovery
func (jr *JobRunner) runWithRecovery(jobName string, jobFunc func(ctx context.Context) (int, error)) {
	entry := jr.logger.WithField("job", jobName)
	defer func() {
		if r := recover(); r != nil {
			entry.WithField("panic", r).Error("Job panicked")
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), jr.timeout)
	defer cancel()

	started := time.Now()
	entry.Info("Starting job")

	count, err := jobFunc(ctx)
	entry = entry.WithFields(logrus.Fields{
		"affected": count,
		"duration": time.Since(started).String(),
	})
	if err != nil {
		entry.WithError(err).Error("Job failed")
		return
	}
	entry.Info("Job completed")
}

// RefreshLoanStatuses moves loans past their due date to overdue
func (jr *JobRunner) RefreshLoanStatuses() {
	jr.runWithRecovery("refresh_loan_statuses", jr.loans.RefreshStatuses)
}

func (jr *JobRunner) SendInstallmentReminders() {
	jr.runWithRecovery("send_installment_reminders", jr.loans.SendInstallmentReminders)
}

// RunAll runs every job once (for manual execution)
func (jr *JobRunner) RunAll() {
	jr.RefreshLoanStatuses()
	jr.SendInstallmentReminders()
}
