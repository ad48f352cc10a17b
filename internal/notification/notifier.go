// Package notification delivers borrower-facing messages about loan events.
package notification

import (
	"context"

	"github.com/segyhp/microcredit-engine/internal/domain"
)

// Notifier is the outbound notification collaborator
type Notifier interface {
	LoanCreated(ctx context.Context, loan *domain.Loan) error
	PaymentReceived(ctx context.Context, loan *domain.Loan, payment *domain.Payment) error
	LoanCompleted(ctx context.Context, loan *domain.Loan) error
	InstallmentReminder(ctx context.Context, due *domain.DueInstallment) error
}
