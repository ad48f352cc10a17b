package billing

import (
	"time"

	"github.com/segyhp/microcredit-engine/internal/domain"
	"github.com/segyhp/microcredit-engine/pkg/utils"
)

// ResolveStatus derives the loan status from its aggregates and dates.
// A paid loan never leaves paid.
func ResolveStatus(loan *domain.Loan, now time.Time) string {
	if loan.Status == domain.LoanStatusPaid || utils.IsSettled(loan.AmountRemaining) {
		return domain.LoanStatusPaid
	}
	if utils.IsDateOverdue(loan.DueDate, now) {
		return domain.LoanStatusOverdue
	}
	if loan.IsActivated() {
		return domain.LoanStatusActive
	}
	return domain.LoanStatusPending
}
