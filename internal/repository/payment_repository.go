package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/segyhp/microcredit-engine/internal/domain"
)

const paymentColumns = `id, loan_id, amount, unapplied_amount, method, external_reference, note,
		received_by, received_at, created_at`

type paymentRepository struct {
	db sqlx.ExtContext
}

func NewPaymentRepository(db sqlx.ExtContext) PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	query := `
		INSERT INTO payments (` + paymentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.ExecContext(ctx, query,
		payment.ID,
		payment.LoanID,
		payment.Amount,
		payment.UnappliedAmount,
		payment.Method,
		payment.ExternalReference,
		payment.Note,
		payment.ReceivedBy,
		payment.ReceivedAt,
		payment.CreatedAt,
	)
	if err != nil {
		return err
	}

	allocationQuery := `
		INSERT INTO payment_allocations (id, payment_id, installment_id, sequence, amount)
		VALUES ($1, $2, $3, $4, $5)
	`

	for _, alloc := range payment.Allocations {
		_, err = r.db.ExecContext(ctx, allocationQuery,
			alloc.ID,
			alloc.PaymentID,
			alloc.InstallmentID,
			alloc.Sequence,
			alloc.Amount,
		)
		if err != nil {
			return err
		}
	}

	return nil
}

func (r *paymentRepository) GetByLoanID(ctx context.Context, loanID uuid.UUID) ([]*domain.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE loan_id = $1
		ORDER BY received_at ASC, created_at ASC
	`

	payments := []*domain.Payment{}
	if err := sqlx.SelectContext(ctx, r.db, &payments, query, loanID); err != nil {
		return nil, err
	}

	if len(payments) == 0 {
		return payments, nil
	}

	ids := make([]string, 0, len(payments))
	byID := make(map[uuid.UUID]*domain.Payment, len(payments))
	for _, p := range payments {
		ids = append(ids, p.ID.String())
		byID[p.ID] = p
	}

	allocationQuery := `
		SELECT id, payment_id, installment_id, sequence, amount
		FROM payment_allocations
		WHERE payment_id = ANY($1)
		ORDER BY sequence ASC
	`

	allocations := []*domain.PaymentAllocation{}
	if err := sqlx.SelectContext(ctx, r.db, &allocations, allocationQuery, pq.Array(ids)); err != nil {
		return nil, err
	}

	for _, alloc := range allocations {
		if p, ok := byID[alloc.PaymentID]; ok {
			p.Allocations = append(p.Allocations, alloc)
		}
	}

	return payments, nil
}

func (r *paymentRepository) GetByExternalReference(ctx context.Context, reference string) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE external_reference = $1`

	var payment domain.Payment
	if err := sqlx.GetContext(ctx, r.db, &payment, query, reference); err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *paymentRepository) GetTotalPaid(ctx context.Context, loanID uuid.UUID) (decimal.Decimal, error) {
	query := `SELECT COALESCE(SUM(amount), 0) FROM payments WHERE loan_id = $1`

	var total decimal.Decimal
	if err := sqlx.GetContext(ctx, r.db, &total, query, loanID); err != nil {
		return decimal.Zero, err
	}
	return total, nil
}

func (r *paymentRepository) GetTotalsByMethod(ctx context.Context, from, to time.Time) ([]*domain.MethodTotals, error) {
	query := `
		SELECT method, COUNT(*) AS count,
			COALESCE(SUM(amount), 0) AS amount,
			COALESCE(SUM(unapplied_amount), 0) AS unapplied
		FROM payments
		WHERE received_at >= $1 AND received_at < $2
		GROUP BY method
		ORDER BY method
	`

	totals := []*domain.MethodTotals{}
	if err := sqlx.SelectContext(ctx, r.db, &totals, query, from, to); err != nil {
		return nil, err
	}
	return totals, nil
}
