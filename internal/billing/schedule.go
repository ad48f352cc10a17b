// Package billing holds the pure loan arithmetic: schedule generation,
// payment allocation and status resolution. Nothing in here touches storage.
package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/segyhp/microcredit-engine/internal/domain"
	"github.com/segyhp/microcredit-engine/pkg/errors"
	"github.com/segyhp/microcredit-engine/pkg/utils"
)

var multipliers = map[int]decimal.Decimal{
	1: decimal.RequireFromString("1.20"),
	2: decimal.RequireFromString("1.31"),
	3: decimal.RequireFromString("1.425"),
	4: decimal.RequireFromString("1.56"),
	5: decimal.RequireFromString("1.67"),
	6: decimal.RequireFromString("1.83"),
}

var hundred = decimal.NewFromInt(100)

// Multiplier returns the repayment multiplier for a term. Terms outside the
// table fall back to 1 + rate/100.
func Multiplier(termMonths int, rate decimal.Decimal) decimal.Decimal {
	if m, ok := multipliers[termMonths]; ok {
		return m
	}
	return decimal.NewFromInt(1).Add(rate.Div(hundred))
}

// TotalDue is the amount the borrower repays over the whole term
func TotalDue(principal decimal.Decimal, termMonths int, rate decimal.Decimal) decimal.Decimal {
	return utils.RoundMoney(principal.Mul(Multiplier(termMonths, rate)))
}

func validateTerms(principal decimal.Decimal, termMonths int, startDate time.Time) error {
	if termMonths < domain.MinTermMonths || termMonths > domain.MaxTermMonths {
		return errors.WrapInvalidLoanTerm(termMonths, domain.MinTermMonths, domain.MaxTermMonths)
	}
	if !principal.IsPositive() || !principal.Equal(principal.Round(2)) {
		return errors.WrapInvalidLoanAmount(principal.String())
	}
	if startDate.IsZero() {
		return errors.WrapInvalidStartDate("start date is required")
	}
	return nil
}

// GenerateSchedule splits the total due into monthly installments. Every
// installment but the last gets total/term rounded down to the cent; the
// last one absorbs the remainder, so it is never smaller than the others and
// the schedule sums to the total exactly.
func GenerateSchedule(loanID uuid.UUID, principal decimal.Decimal, termMonths int, startDate time.Time, rate decimal.Decimal) ([]*domain.Installment, error) {
	if err := validateTerms(principal, termMonths, startDate); err != nil {
		return nil, err
	}

	total := TotalDue(principal, termMonths, rate)
	if !total.IsPositive() {
		return nil, errors.WrapInvalidLoanAmount(principal.String())
	}

	regular := total.Div(decimal.NewFromInt(int64(termMonths))).RoundDown(2)
	allocated := decimal.Zero

	schedule := make([]*domain.Installment, 0, termMonths)
	for seq := 1; seq <= termMonths; seq++ {
		amount := regular
		if seq == termMonths {
			amount = total.Sub(allocated)
		}
		allocated = allocated.Add(amount)

		schedule = append(schedule, &domain.Installment{
			ID:         uuid.New(),
			LoanID:     loanID,
			Sequence:   seq,
			Amount:     amount,
			AmountPaid: decimal.Zero,
			AmountLeft: amount,
			Paid:       false,
			DueDate:    utils.CalculateDueDate(startDate, seq),
		})
	}

	return schedule, nil
}

// PreviewSchedule is the quote shown before a loan exists. Installments are
// rounded up to the cent, so they may sum to slightly more than the total.
func PreviewSchedule(principal decimal.Decimal, termMonths int, startDate time.Time, rate decimal.Decimal) (*domain.PreviewResponse, error) {
	if err := validateTerms(principal, termMonths, startDate); err != nil {
		return nil, err
	}

	total := TotalDue(principal, termMonths, rate)
	amount := total.Div(decimal.NewFromInt(int64(termMonths))).RoundCeil(2)

	installments := make([]*domain.PreviewInstallment, 0, termMonths)
	for seq := 1; seq <= termMonths; seq++ {
		installments = append(installments, &domain.PreviewInstallment{
			Sequence: seq,
			Amount:   amount,
			DueDate:  utils.CalculateDueDate(startDate, seq),
		})
	}

	return &domain.PreviewResponse{
		Multiplier:   Multiplier(termMonths, rate),
		TotalDue:     total,
		Installments: installments,
	}, nil
}
