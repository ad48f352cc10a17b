package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	LoanStatusPending = "pending"
	LoanStatusActive  = "active"
	LoanStatusOverdue = "overdue"
	LoanStatusPaid    = "paid"
)

// Loan business rules
const (
	MinTermMonths = 1
	MaxTermMonths = 6
)

// DateLayout is the wire format for calendar dates
const DateLayout = "2006-01-02"

// Loan represents a loan entity
type Loan struct {
	ID                uuid.UUID       `json:"id" db:"id"`
	LoanNumber        string          `json:"loan_number" db:"loan_number"`
	CustomerID        string          `json:"customer_id" db:"customer_id"`
	CustomerEmail     string          `json:"customer_email,omitempty" db:"customer_email"`
	Principal         decimal.Decimal `json:"principal" db:"principal"`
	InterestRate      decimal.Decimal `json:"interest_rate" db:"interest_rate"`
	TermMonths        int             `json:"term_months" db:"term_months"`
	StartDate         time.Time       `json:"start_date" db:"start_date"`
	DueDate           time.Time       `json:"due_date" db:"due_date"`
	Status            string          `json:"status" db:"status"`
	TotalWithInterest decimal.Decimal `json:"total_with_interest" db:"total_with_interest"`
	AmountPaid        decimal.Decimal `json:"amount_paid" db:"amount_paid"`
	AmountRemaining   decimal.Decimal `json:"amount_remaining" db:"amount_remaining"`
	InterestEarned    decimal.Decimal `json:"interest_earned" db:"interest_earned"`
	ActivatedAt       *time.Time      `json:"activated_at,omitempty" db:"activated_at"`
	CompletedAt       *time.Time      `json:"completed_at,omitempty" db:"completed_at"`
	CreatedAt         time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at" db:"updated_at"`
}

// IsActivated reports whether the loan was disbursed or has received money
func (l *Loan) IsActivated() bool {
	return l.ActivatedAt != nil || l.AmountPaid.IsPositive()
}

// DTOs for requests and responses

type CreateLoanRequest struct {
	LoanNumber    string          `json:"loan_number" validate:"required,max=64"`
	CustomerID    string          `json:"customer_id" validate:"required,max=64"`
	CustomerEmail string          `json:"customer_email" validate:"omitempty,email"`
	Principal     decimal.Decimal `json:"principal" validate:"gt=0,lte=1000000000"`
	InterestRate  decimal.Decimal `json:"interest_rate" validate:"gte=0,lte=1000"`
	TermMonths    int             `json:"term_months" validate:"min=1,max=6"`
	StartDate     string          `json:"start_date" validate:"required,datetime=2006-01-02"`
	// DueDate overrides start + term months when set
	DueDate string `json:"due_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

type CreateLoanResponse struct {
	Loan     *Loan          `json:"loan"`
	Schedule []*Installment `json:"schedule"`
}

type LoanDetailResponse struct {
	Loan     *Loan          `json:"loan"`
	Schedule []*Installment `json:"schedule"`
	Payments []*Payment     `json:"payments"`
}

type OutstandingResponse struct {
	LoanID      string          `json:"loan_id"`
	Outstanding decimal.Decimal `json:"outstanding"`
	Status      string          `json:"status"`
	DueDate     time.Time       `json:"due_date"`
	Cached      bool            `json:"cached"`
}

// LoanFilter narrows ListLoans results
type LoanFilter struct {
	Status string
	Limit  int
	Offset int
}
