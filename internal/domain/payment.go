package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	PaymentMethodCash    = "cash"
	PaymentMethodGateway = "gateway"
)

// Payment is an immutable ledger entry. Amount is what was applied to the
// schedule; UnappliedAmount holds any overflow kept for reconciliation.
type Payment struct {
	ID                uuid.UUID            `json:"id" db:"id"`
	LoanID            uuid.UUID            `json:"loan_id" db:"loan_id"`
	Amount            decimal.Decimal      `json:"amount" db:"amount"`
	UnappliedAmount   decimal.Decimal      `json:"unapplied_amount" db:"unapplied_amount"`
	Method            string               `json:"method" db:"method"`
	ExternalReference *string              `json:"external_reference,omitempty" db:"external_reference"`
	Note              string               `json:"note,omitempty" db:"note"`
	ReceivedBy        string               `json:"received_by" db:"received_by"`
	ReceivedAt        time.Time            `json:"received_at" db:"received_at"`
	CreatedAt         time.Time            `json:"created_at" db:"created_at"`
	Allocations       []*PaymentAllocation `json:"allocations,omitempty" db:"-"`
}

// PaymentAllocation records how much of a payment went to one installment
type PaymentAllocation struct {
	ID            uuid.UUID       `json:"id" db:"id"`
	PaymentID     uuid.UUID       `json:"payment_id" db:"payment_id"`
	InstallmentID uuid.UUID       `json:"installment_id" db:"installment_id"`
	Sequence      int             `json:"sequence" db:"sequence"`
	Amount        decimal.Decimal `json:"amount" db:"amount"`
}

type MakePaymentRequest struct {
	Amount decimal.Decimal `json:"amount" validate:"gt=0"`
	Note   string          `json:"note" validate:"max=500"`
}

// GatewayCallbackRequest is the verified notification a payment gateway posts back
type GatewayCallbackRequest struct {
	Reference string          `json:"reference" validate:"required,max=128"`
	Amount    decimal.Decimal `json:"amount" validate:"gt=0"`
	LoanID    string          `json:"loan_id" validate:"required,uuid"`
}

// PaymentResult is returned by every payment path. AlreadyProcessed is set
// when a gateway reference was seen before and nothing was applied.
type PaymentResult struct {
	Payment          *Payment       `json:"payment,omitempty"`
	Loan             *Loan          `json:"loan,omitempty"`
	Installments     []*Installment `json:"installments,omitempty"`
	AlreadyProcessed bool           `json:"already_processed"`
}
