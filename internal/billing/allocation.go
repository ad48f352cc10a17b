package billing

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/segyhp/microcredit-engine/internal/domain"
	"github.com/segyhp/microcredit-engine/pkg/errors"
	"github.com/segyhp/microcredit-engine/pkg/utils"
)

// Strategy selects how a payment is spread over the schedule
type Strategy string

const (
	// StrategyNextInstallment puts the whole payment on the earliest open installment
	StrategyNextInstallment Strategy = "next_installment"
	// StrategyCascade fills open installments in sequence order
	StrategyCascade Strategy = "cascade"
)

// ParseStrategy accepts the configuration spelling of a strategy
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case StrategyNextInstallment:
		return StrategyNextInstallment, nil
	case StrategyCascade:
		return StrategyCascade, nil
	default:
		return "", fmt.Errorf("unknown allocation strategy %q", s)
	}
}

// Allocation is the share of a payment assigned to one installment
type Allocation struct {
	Installment *domain.Installment
	Amount      decimal.Decimal
}

// Result describes what Allocate did with a payment
type Result struct {
	Allocations []Allocation
	Applied     decimal.Decimal
	Unapplied   decimal.Decimal
}

// Outstanding sums amount_left over the schedule
func Outstanding(installments []*domain.Installment) decimal.Decimal {
	total := decimal.Zero
	for _, inst := range installments {
		total = total.Add(utils.NonNegative(inst.AmountLeft))
	}
	return total
}

// Allocate applies amount to installments in place. The loan can never be
// paid beyond its schedule: whatever exceeds the total amount left comes
// back as Unapplied.
func Allocate(installments []*domain.Installment, amount decimal.Decimal, strategy Strategy) (*Result, error) {
	if !amount.IsPositive() {
		return nil, errors.WrapInvalidPaymentAmount(amount.String())
	}

	sort.SliceStable(installments, func(i, j int) bool {
		return installments[i].Sequence < installments[j].Sequence
	})

	capacity := Outstanding(installments)
	applicable := decimal.Min(amount, capacity)
	result := &Result{
		Applied:   decimal.Zero,
		Unapplied: amount.Sub(applicable),
	}
	if !applicable.IsPositive() {
		return result, nil
	}

	switch strategy {
	case StrategyNextInstallment:
		for _, inst := range installments {
			if !inst.IsOpen() {
				continue
			}
			credit(inst, applicable)
			result.Allocations = append(result.Allocations, Allocation{Installment: inst, Amount: applicable})
			result.Applied = applicable
			break
		}
	case StrategyCascade:
		remaining := applicable
		for _, inst := range installments {
			if !remaining.IsPositive() {
				break
			}
			if !inst.IsOpen() {
				continue
			}
			share := decimal.Min(remaining, inst.AmountLeft)
			credit(inst, share)
			result.Allocations = append(result.Allocations, Allocation{Installment: inst, Amount: share})
			result.Applied = result.Applied.Add(share)
			remaining = remaining.Sub(share)
		}
	default:
		return nil, fmt.Errorf("unknown allocation strategy %q", strategy)
	}

	return result, nil
}

func credit(inst *domain.Installment, amount decimal.Decimal) {
	inst.AmountPaid = inst.AmountPaid.Add(amount)
	inst.AmountLeft = utils.NonNegative(inst.Amount.Sub(inst.AmountPaid))
	inst.Paid = utils.IsSettled(inst.AmountLeft)
}

// ApplyLedgerTotal recomputes the loan aggregates from the sum of its payment
// ledger. It reports whether this call moved the loan to paid.
func ApplyLedgerTotal(loan *domain.Loan, paidTotal decimal.Decimal, now time.Time) bool {
	wasPaid := loan.Status == domain.LoanStatusPaid

	loan.AmountPaid = paidTotal
	loan.AmountRemaining = utils.NonNegative(loan.TotalWithInterest.Sub(paidTotal))

	if loan.ActivatedAt == nil && paidTotal.IsPositive() {
		activated := now
		loan.ActivatedAt = &activated
	}

	loan.Status = ResolveStatus(loan, now)
	if loan.Status != domain.LoanStatusPaid || wasPaid {
		return false
	}

	loan.InterestEarned = loan.TotalWithInterest.Sub(loan.Principal)
	completed := now
	loan.CompletedAt = &completed
	return true
}
