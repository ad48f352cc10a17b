package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/segyhp/microcredit-engine/internal/domain"
)

type MockLoanCache struct {
	mock.Mock
}

func (m *MockLoanCache) GetOutstanding(ctx context.Context, loanID uuid.UUID) (*domain.OutstandingResponse, bool, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*domain.OutstandingResponse), args.Bool(1), args.Error(2)
}

func (m *MockLoanCache) SetOutstanding(ctx context.Context, loanID uuid.UUID, outstanding *domain.OutstandingResponse) error {
	args := m.Called(ctx, loanID, outstanding)
	return args.Error(0)
}

func (m *MockLoanCache) Invalidate(ctx context.Context, loanID uuid.UUID) error {
	args := m.Called(ctx, loanID)
	return args.Error(0)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) LoanCreated(ctx context.Context, loan *domain.Loan) error {
	args := m.Called(ctx, loan)
	return args.Error(0)
}

func (m *MockNotifier) PaymentReceived(ctx context.Context, loan *domain.Loan, payment *domain.Payment) error {
	args := m.Called(ctx, loan, payment)
	return args.Error(0)
}

func (m *MockNotifier) LoanCompleted(ctx context.Context, loan *domain.Loan) error {
	args := m.Called(ctx, loan)
	return args.Error(0)
}

func (m *MockNotifier) InstallmentReminder(ctx context.Context, due *domain.DueInstallment) error {
	args := m.Called(ctx, due)
	return args.Error(0)
}
