package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/segyhp/microcredit-engine/internal/domain"
	customError "github.com/segyhp/microcredit-engine/pkg/errors"
	"github.com/segyhp/microcredit-engine/pkg/utils"
)

// PortfolioSummary aggregates loans created and payments received in [from, to)
func (s *LoanService) PortfolioSummary(ctx context.Context, from, to time.Time) (*domain.PortfolioSummary, error) {
	if !to.After(from) {
		return nil, customError.WrapInvalidDateRange(from.Format(domain.DateLayout), to.Format(domain.DateLayout))
	}

	repos := s.store.Repositories()

	byStatus, err := repos.Loans.GetStatusTotals(ctx, from, to)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	byMethod, err := repos.Payments.GetTotalsByMethod(ctx, from, to)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	summary := &domain.PortfolioSummary{
		From:               from,
		To:                 to,
		LoansByStatus:      byStatus,
		CollectedByMethod:  byMethod,
		PrincipalDisbursed: decimal.Zero,
		Collected:          decimal.Zero,
		Outstanding:        decimal.Zero,
		InterestEarned:     decimal.Zero,
	}

	for _, totals := range byStatus {
		if totals.Status != domain.LoanStatusPending {
			summary.PrincipalDisbursed = summary.PrincipalDisbursed.Add(totals.Principal)
		}
		if totals.Status != domain.LoanStatusPaid {
			summary.Outstanding = summary.Outstanding.Add(totals.AmountRemaining)
		}
		summary.InterestEarned = summary.InterestEarned.Add(totals.InterestEarned)
	}
	for _, totals := range byMethod {
		summary.Collected = summary.Collected.Add(totals.Amount)
	}

	return summary, nil
}

// RefreshStatuses resolves every unpaid loan and persists the ones that
// drifted. It returns how many loans changed.
func (s *LoanService) RefreshStatuses(ctx context.Context) (int, error) {
	repos := s.store.Repositories()

	loans, err := repos.Loans.ListOpen(ctx)
	if err != nil {
		return 0, customError.WrapDatabaseError(err)
	}

	changed := 0
	for _, loan := range loans {
		if err := ctx.Err(); err != nil {
			return changed, err
		}
		if s.healStatus(ctx, repos, loan) {
			s.invalidate(ctx, loan.ID)
			changed++
		}
	}

	s.logger.WithFields(logrus.Fields{
		"checked": len(loans),
		"changed": changed,
	}).Info("Loan statuses refreshed")

	return changed, nil
}

// SendInstallmentReminders notifies borrowers about open installments due
// within the configured number of days. It returns how many were sent.
func (s *LoanService) SendInstallmentReminders(ctx context.Context) (int, error) {
	from := utils.TruncateToDate(s.now())
	to := from.AddDate(0, 0, s.config.Business.ReminderDaysAhead)

	due, err := s.store.Repositories().Loans.GetUpcomingInstallments(ctx, from, to)
	if err != nil {
		return 0, customError.WrapDatabaseError(err)
	}

	sent := 0
	for _, inst := range due {
		if err := s.notifier.InstallmentReminder(ctx, inst); err != nil {
			s.logger.WithError(err).WithFields(logrus.Fields{
				"loan_number": inst.LoanNumber,
				"sequence":    inst.Sequence,
			}).Warn("Failed to send installment reminder")
			continue
		}
		sent++
	}

	s.logger.WithFields(logrus.Fields{
		"from": from.Format(domain.DateLayout),
		"to":   to.Format(domain.DateLayout),
		"sent": sent,
	}).Info("Installment reminders sent")

	return sent, nil
}
