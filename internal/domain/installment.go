package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Installment is one scheduled monthly repayment of a loan
type Installment struct {
	ID         uuid.UUID       `json:"id" db:"id"`
	LoanID     uuid.UUID       `json:"loan_id" db:"loan_id"`
	Sequence   int             `json:"sequence" db:"sequence"`
	Amount     decimal.Decimal `json:"amount" db:"amount"`
	AmountPaid decimal.Decimal `json:"amount_paid" db:"amount_paid"`
	AmountLeft decimal.Decimal `json:"amount_left" db:"amount_left"`
	Paid       bool            `json:"paid" db:"paid"`
	DueDate    time.Time       `json:"due_date" db:"due_date"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at" db:"updated_at"`
}

// IsOpen reports whether the installment still has money owed on it
func (i *Installment) IsOpen() bool {
	return i.AmountLeft.IsPositive()
}

// DueInstallment is an upcoming installment joined with its loan contact data
type DueInstallment struct {
	Installment
	LoanNumber    string `json:"loan_number" db:"loan_number"`
	CustomerEmail string `json:"customer_email" db:"customer_email"`
}

type ScheduleResponse struct {
	LoanID   string         `json:"loan_id"`
	Schedule []*Installment `json:"schedule"`
}

type PreviewRequest struct {
	Principal    decimal.Decimal `json:"principal" validate:"gt=0,lte=1000000000"`
	InterestRate decimal.Decimal `json:"interest_rate" validate:"gte=0,lte=1000"`
	TermMonths   int             `json:"term_months" validate:"min=1,max=6"`
	StartDate    string          `json:"start_date" validate:"required,datetime=2006-01-02"`
}

// PreviewInstallment is a display-only installment, never persisted
type PreviewInstallment struct {
	Sequence int             `json:"sequence"`
	Amount   decimal.Decimal `json:"amount"`
	DueDate  time.Time       `json:"due_date"`
}

type PreviewResponse struct {
	Multiplier   decimal.Decimal       `json:"multiplier"`
	TotalDue     decimal.Decimal       `json:"total_due"`
	Installments []*PreviewInstallment `json:"installments"`
}
