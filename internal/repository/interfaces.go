package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/segyhp/microcredit-engine/internal/domain"
)

// LoanRepository defines the interface for loan and schedule data operations
type LoanRepository interface {
	// Create creates a new loan
	Create(ctx context.Context, loan *domain.Loan) error

	// GetByID retrieves a loan by its id
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Loan, error)

	// GetByIDForUpdate retrieves a loan and locks its row until the transaction ends
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Loan, error)

	// GetByLoanNumber retrieves a loan by its business key
	GetByLoanNumber(ctx context.Context, loanNumber string) (*domain.Loan, error)

	List(ctx context.Context, filter domain.LoanFilter) ([]*domain.Loan, error)

	// ListOpen returns every loan that is not paid
	ListOpen(ctx context.Context) ([]*domain.Loan, error)

	// Update persists the loan aggregates and lifecycle fields
	Update(ctx context.Context, loan *domain.Loan) error

	// UpdateStatus writes a corrected status. Paid loans are never touched.
	// It reports whether a row changed.
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) (bool, error)

	// CreateSchedule creates installment rows
	CreateSchedule(ctx context.Context, installments []*domain.Installment) error

	// GetScheduleByLoanID retrieves installments ordered by sequence
	GetScheduleByLoanID(ctx context.Context, loanID uuid.UUID) ([]*domain.Installment, error)

	UpdateInstallment(ctx context.Context, installment *domain.Installment) error

	// GetUpcomingInstallments lists open installments of unpaid loans due in [from, to]
	GetUpcomingInstallments(ctx context.Context, from, to time.Time) ([]*domain.DueInstallment, error)

	// GetStatusTotals aggregates loans created in [from, to) by status
	GetStatusTotals(ctx context.Context, from, to time.Time) ([]*domain.StatusTotals, error)
}

// PaymentRepository defines the interface for payment data operations
type PaymentRepository interface {
	// Create creates a payment record together with its allocations
	Create(ctx context.Context, payment *domain.Payment) error

	// GetByLoanID retrieves all payments for a loan, oldest first, with allocations
	GetByLoanID(ctx context.Context, loanID uuid.UUID) ([]*domain.Payment, error)

	GetByExternalReference(ctx context.Context, reference string) (*domain.Payment, error)

	// GetTotalPaid sums the payment ledger of a loan
	GetTotalPaid(ctx context.Context, loanID uuid.UUID) (decimal.Decimal, error)

	// GetTotalsByMethod aggregates payments received in [from, to) per method
	GetTotalsByMethod(ctx context.Context, from, to time.Time) ([]*domain.MethodTotals, error)
}
