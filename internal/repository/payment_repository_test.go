package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/segyhp/microcredit-engine/internal/domain"
)

var paymentRowColumns = []string{
	"id", "loan_id", "amount", "unapplied_amount", "method", "external_reference", "note",
	"received_by", "received_at", "created_at",
}

func TestPaymentRepository_Create(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPaymentRepository(db)

	reference := "GW-123"
	payment := &domain.Payment{
		ID:                uuid.New(),
		LoanID:            uuid.New(),
		Amount:            decimal.NewFromInt(50),
		Method:            domain.PaymentMethodGateway,
		ExternalReference: &reference,
		ReceivedBy:        "gateway",
		ReceivedAt:        time.Now(),
	}
	payment.Allocations = []*domain.PaymentAllocation{
		{ID: uuid.New(), PaymentID: payment.ID, InstallmentID: uuid.New(), Sequence: 1, Amount: decimal.NewFromInt(30)},
		{ID: uuid.New(), PaymentID: payment.ID, InstallmentID: uuid.New(), Sequence: 2, Amount: decimal.NewFromInt(20)},
	}

	mock.ExpectExec("INSERT INTO payments").
		WithArgs(payment.ID, payment.LoanID, sqlmock.AnyArg(), sqlmock.AnyArg(), domain.PaymentMethodGateway,
			reference, "", "gateway", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	for _, alloc := range payment.Allocations {
		mock.ExpectExec("INSERT INTO payment_allocations").
			WithArgs(alloc.ID, payment.ID, alloc.InstallmentID, alloc.Sequence, sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))
	}

	err := repo.Create(context.Background(), payment)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepository_GetByLoanID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPaymentRepository(db)

	loanID := uuid.New()
	paymentID := uuid.New()
	now := time.Now()

	mock.ExpectQuery(`SELECT .+ FROM payments\s+WHERE loan_id = \$1`).
		WithArgs(loanID).
		WillReturnRows(sqlmock.NewRows(paymentRowColumns).
			AddRow(paymentID.String(), loanID.String(), "50.00", "0.00", "cash", nil, "counter", "teller-1", now, now))
	mock.ExpectQuery(`FROM payment_allocations\s+WHERE payment_id = ANY\(\$1\)`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "payment_id", "installment_id", "sequence", "amount"}).
			AddRow(uuid.New().String(), paymentID.String(), uuid.New().String(), 1, "30.00").
			AddRow(uuid.New().String(), paymentID.String(), uuid.New().String(), 2, "20.00"))

	payments, err := repo.GetByLoanID(context.Background(), loanID)
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Nil(t, payments[0].ExternalReference)
	assert.Equal(t, "teller-1", payments[0].ReceivedBy)
	require.Len(t, payments[0].Allocations, 2)
	assert.True(t, payments[0].Allocations[1].Amount.Equal(decimal.NewFromInt(20)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepository_GetByLoanID_Empty(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPaymentRepository(db)

	loanID := uuid.New()
	mock.ExpectQuery(`FROM payments`).
		WithArgs(loanID).
		WillReturnRows(sqlmock.NewRows(paymentRowColumns))

	payments, err := repo.GetByLoanID(context.Background(), loanID)
	require.NoError(t, err)
	assert.Empty(t, payments)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepository_GetByExternalReference(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPaymentRepository(db)
	now := time.Now()

	mock.ExpectQuery(`FROM payments WHERE external_reference = \$1`).
		WithArgs("GW-1").
		WillReturnRows(sqlmock.NewRows(paymentRowColumns).
			AddRow(uuid.New().String(), uuid.New().String(), "50.00", "5.00", "gateway", "GW-1", "", "gateway", now, now))

	payment, err := repo.GetByExternalReference(context.Background(), "GW-1")
	require.NoError(t, err)
	require.NotNil(t, payment.ExternalReference)
	assert.Equal(t, "GW-1", *payment.ExternalReference)
	assert.True(t, payment.UnappliedAmount.Equal(decimal.NewFromInt(5)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepository_GetTotalPaid(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPaymentRepository(db)
	loanID := uuid.New()

	mock.ExpectQuery(`SELECT COALESCE\(SUM\(amount\), 0\) FROM payments WHERE loan_id = \$1`).
		WithArgs(loanID).
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow("525.50"))

	total, err := repo.GetTotalPaid(context.Background(), loanID)
	require.NoError(t, err)
	assert.True(t, total.Equal(decimal.RequireFromString("525.50")))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepository_GetTotalsByMethod(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPaymentRepository(db)

	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)

	mock.ExpectQuery(`FROM payments\s+WHERE received_at >= \$1 AND received_at < \$2\s+GROUP BY method`).
		WithArgs(from, to).
		WillReturnRows(sqlmock.NewRows([]string{"method", "count", "amount", "unapplied"}).
			AddRow("cash", 3, "300.00", "0.00").
			AddRow("gateway", 1, "95.00", "5.00"))

	totals, err := repo.GetTotalsByMethod(context.Background(), from, to)
	require.NoError(t, err)
	require.Len(t, totals, 2)
	assert.Equal(t, "gateway", totals[1].Method)
	assert.True(t, totals[1].Unapplied.Equal(decimal.NewFromInt(5)))
	assert.NoError(t, mock.ExpectationsWereMet())
}
