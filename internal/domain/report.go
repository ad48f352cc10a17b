package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// StatusTotals aggregates loans sharing a status
type StatusTotals struct {
	Status          string          `json:"status" db:"status"`
	Count           int             `json:"count" db:"count"`
	Principal       decimal.Decimal `json:"principal" db:"principal"`
	AmountRemaining decimal.Decimal `json:"amount_remaining" db:"amount_remaining"`
	InterestEarned  decimal.Decimal `json:"interest_earned" db:"interest_earned"`
}

// MethodTotals aggregates collected payments per method
type MethodTotals struct {
	Method    string          `json:"method" db:"method"`
	Count     int             `json:"count" db:"count"`
	Amount    decimal.Decimal `json:"amount" db:"amount"`
	Unapplied decimal.Decimal `json:"unapplied" db:"unapplied"`
}

type PortfolioSummary struct {
	From               time.Time       `json:"from"`
	To                 time.Time       `json:"to"`
	LoansByStatus      []*StatusTotals `json:"loans_by_status"`
	CollectedByMethod  []*MethodTotals `json:"collected_by_method"`
	PrincipalDisbursed decimal.Decimal `json:"principal_disbursed"`
	Collected          decimal.Decimal `json:"collected"`
	Outstanding        decimal.Decimal `json:"outstanding"`
	InterestEarned     decimal.Decimal `json:"interest_earned"`
}
