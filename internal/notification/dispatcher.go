package notification

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/segyhp/microcredit-engine/internal/domain"
)

// Dispatcher delivers notifications in the background with retries. Failures
// are logged and never reach the caller. It satisfies Notifier so callers do
// not need to know delivery is asynchronous.
type Dispatcher struct {
	next        Notifier
	logger      *logrus.Logger
	maxAttempts int
	backoff     time.Duration
	wg          sync.WaitGroup
}

func NewDispatcher(next Notifier, logger *logrus.Logger, maxAttempts int, backoff time.Duration) *Dispatcher {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	return &Dispatcher{
		next:        next,
		logger:      logger,
		maxAttempts: maxAttempts,
		backoff:     backoff,
	}
}

// Wait blocks until every in-flight notification finished
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) dispatch(ctx context.Context, event string, fields logrus.Fields, send func(ctx context.Context) error) {
	// Delivery outlives the request that triggered it
	ctx = context.WithoutCancel(ctx)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		var err error
		for attempt := 1; attempt <= d.maxAttempts; attempt++ {
			if err = send(ctx); err == nil {
				return
			}

			d.logger.WithFields(fields).WithFields(logrus.Fields{
				"event":   event,
				"attempt": attempt,
			}).WithError(err).Warn("Notification attempt failed")

			if attempt < d.maxAttempts {
				time.Sleep(d.backoff * time.Duration(attempt))
			}
		}

		d.logger.WithFields(fields).WithField("event", event).WithError(err).Error("Notification dropped")
	}()
}

func (d *Dispatcher) LoanCreated(ctx context.Context, loan *domain.Loan) error {
	snapshot := *loan
	d.dispatch(ctx, "loan_created", logrus.Fields{"loan_number": loan.LoanNumber}, func(ctx context.Context) error {
		return d.next.LoanCreated(ctx, &snapshot)
	})
	return nil
}

func (d *Dispatcher) PaymentReceived(ctx context.Context, loan *domain.Loan, payment *domain.Payment) error {
	loanSnapshot := *loan
	paymentSnapshot := *payment
	d.dispatch(ctx, "payment_received", logrus.Fields{"loan_number": loan.LoanNumber, "payment_id": payment.ID}, func(ctx context.Context) error {
		return d.next.PaymentReceived(ctx, &loanSnapshot, &paymentSnapshot)
	})
	return nil
}

func (d *Dispatcher) LoanCompleted(ctx context.Context, loan *domain.Loan) error {
	snapshot := *loan
	d.dispatch(ctx, "loan_completed", logrus.Fields{"loan_number": loan.LoanNumber}, func(ctx context.Context) error {
		return d.next.LoanCompleted(ctx, &snapshot)
	})
	return nil
}

func (d *Dispatcher) InstallmentReminder(ctx context.Context, due *domain.DueInstallment) error {
	snapshot := *due
	d.dispatch(ctx, "installment_reminder", logrus.Fields{"loan_number": due.LoanNumber, "sequence": due.Sequence}, func(ctx context.Context) error {
		return d.next.InstallmentReminder(ctx, &snapshot)
	})
	return nil
}
