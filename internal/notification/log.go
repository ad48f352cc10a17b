package notification

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/segyhp/microcredit-engine/internal/domain"
)

// LogNotifier writes events to the log instead of contacting anyone
type LogNotifier struct {
	logger *logrus.Logger
}

func NewLogNotifier(logger *logrus.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) LoanCreated(ctx context.Context, loan *domain.Loan) error {
	n.logger.WithFields(logrus.Fields{
		"loan_number": loan.LoanNumber,
		"total":       loan.TotalWithInterest.StringFixed(2),
	}).Info("notify: loan created")
	return nil
}

func (n *LogNotifier) PaymentReceived(ctx context.Context, loan *domain.Loan, payment *domain.Payment) error {
	n.logger.WithFields(logrus.Fields{
		"loan_number": loan.LoanNumber,
		"payment_id":  payment.ID,
		"amount":      payment.Amount.StringFixed(2),
		"remaining":   loan.AmountRemaining.StringFixed(2),
	}).Info("notify: payment received")
	return nil
}

func (n *LogNotifier) LoanCompleted(ctx context.Context, loan *domain.Loan) error {
	n.logger.WithField("loan_number", loan.LoanNumber).Info("notify: loan completed")
	return nil
}

func (n *LogNotifier) InstallmentReminder(ctx context.Context, due *domain.DueInstallment) error {
	n.logger.WithFields(logrus.Fields{
		"loan_number": due.LoanNumber,
		"sequence":    due.Sequence,
		"due_date":    due.DueDate.Format(domain.DateLayout),
	}).Info("notify: installment reminder")
	return nil
}
