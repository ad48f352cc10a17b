package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/segyhp/microcredit-engine/internal/domain"
	customError "github.com/segyhp/microcredit-engine/pkg/errors"
)

func TestPortfolioSummary(t *testing.T) {
	svc, deps := newTestService()
	from, to := date(2024, 1, 1), date(2024, 4, 1)

	deps.store.Loans.On("GetStatusTotals", mock.Anything, from, to).Return([]*domain.StatusTotals{
		{Status: domain.LoanStatusPending, Count: 1, Principal: dec("1000"), AmountRemaining: dec("1425"), InterestEarned: dec("0")},
		{Status: domain.LoanStatusActive, Count: 2, Principal: dec("2000"), AmountRemaining: dec("1500"), InterestEarned: dec("0")},
		{Status: domain.LoanStatusPaid, Count: 1, Principal: dec("1000"), AmountRemaining: dec("0"), InterestEarned: dec("425")},
	}, nil)
	deps.store.Payments.On("GetTotalsByMethod", mock.Anything, from, to).Return([]*domain.MethodTotals{
		{Method: domain.PaymentMethodCash, Count: 3, Amount: dec("500"), Unapplied: dec("0")},
		{Method: domain.PaymentMethodGateway, Count: 2, Amount: dec("1425"), Unapplied: dec("125")},
	}, nil)

	summary, err := svc.PortfolioSummary(context.Background(), from, to)

	require.NoError(t, err)
	assert.True(t, summary.PrincipalDisbursed.Equal(dec("3000")), "disbursed %s", summary.PrincipalDisbursed)
	assert.True(t, summary.Outstanding.Equal(dec("2925")), "outstanding %s", summary.Outstanding)
	assert.True(t, summary.InterestEarned.Equal(dec("425")))
	assert.True(t, summary.Collected.Equal(dec("1925")))
	assert.Len(t, summary.LoansByStatus, 3)
	deps.assertExpectations(t)
}

func TestPortfolioSummary_EmptyRange(t *testing.T) {
	svc, deps := newTestService()

	_, err := svc.PortfolioSummary(context.Background(), date(2024, 4, 1), date(2024, 4, 1))

	assert.ErrorIs(t, err, customError.ErrInvalidDateRange)
	deps.store.Loans.AssertNotCalled(t, "GetStatusTotals", mock.Anything, mock.Anything, mock.Anything)
}

func TestRefreshStatuses(t *testing.T) {
	svc, deps := newTestService()
	current := activeLoan()
	late := activeLoan()
	late.DueDate = date(2024, 3, 1)
	pendingLate := activeLoan()
	pendingLate.ActivatedAt = nil
	pendingLate.Status = domain.LoanStatusPending
	pendingLate.DueDate = date(2024, 2, 1)

	deps.store.Loans.On("ListOpen", mock.Anything).Return([]*domain.Loan{current, late, pendingLate}, nil)
	deps.store.Loans.On("UpdateStatus", mock.Anything, late.ID, domain.LoanStatusOverdue).Return(true, nil)
	// Already corrected by a concurrent writer
	deps.store.Loans.On("UpdateStatus", mock.Anything, pendingLate.ID, domain.LoanStatusOverdue).Return(false, nil)
	deps.cache.On("Invalidate", mock.Anything, late.ID).Return(nil)

	changed, err := svc.RefreshStatuses(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, changed)
	deps.assertExpectations(t)
}

func TestRefreshStatuses_StopsWhenCancelled(t *testing.T) {
	svc, deps := newTestService()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	deps.store.Loans.On("ListOpen", mock.Anything).Return([]*domain.Loan{activeLoan()}, nil)

	changed, err := svc.RefreshStatuses(ctx)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, changed)
}

func TestSendInstallmentReminders(t *testing.T) {
	svc, deps := newTestService()
	from, to := date(2024, 3, 10), date(2024, 3, 13)
	first := &domain.DueInstallment{LoanNumber: "MC-0001", CustomerEmail: "a@example.com"}
	first.Sequence = 1
	second := &domain.DueInstallment{LoanNumber: "MC-0002", CustomerEmail: "b@example.com"}
	second.Sequence = 2

	deps.store.Loans.On("GetUpcomingInstallments", mock.Anything, from, to).Return([]*domain.DueInstallment{first, second}, nil)
	deps.notifier.On("InstallmentReminder", mock.Anything, first).Return(nil)
	deps.notifier.On("InstallmentReminder", mock.Anything, second).Return(errors.New("bounced"))

	sent, err := svc.SendInstallmentReminders(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	deps.assertExpectations(t)
}

func TestSendInstallmentReminders_QueryFails(t *testing.T) {
	svc, deps := newTestService()

	deps.store.Loans.On("GetUpcomingInstallments", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("timeout"))

	_, err := svc.SendInstallmentReminders(context.Background())

	assert.Equal(t, 500, customError.HTTPStatus(err))
}
