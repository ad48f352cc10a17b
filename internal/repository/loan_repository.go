package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/segyhp/microcredit-engine/internal/domain"
)

const loanColumns = `id, loan_number, customer_id, customer_email, principal, interest_rate, term_months,
		start_date, due_date, status, total_with_interest, amount_paid, amount_remaining, interest_earned,
		activated_at, completed_at, created_at, updated_at`

const installmentColumns = `id, loan_id, sequence, amount, amount_paid, amount_left, paid, due_date, created_at, updated_at`

const defaultListLimit = 50

type loanRepository struct {
	db sqlx.ExtContext
}

func NewLoanRepository(db sqlx.ExtContext) LoanRepository {
	return &loanRepository{db: db}
}

func (r *loanRepository) Create(ctx context.Context, loan *domain.Loan) error {
	query := `
		INSERT INTO loans (` + loanColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`

	_, err := r.db.ExecContext(ctx, query,
		loan.ID,
		loan.LoanNumber,
		loan.CustomerID,
		loan.CustomerEmail,
		loan.Principal,
		loan.InterestRate,
		loan.TermMonths,
		loan.StartDate,
		loan.DueDate,
		loan.Status,
		loan.TotalWithInterest,
		loan.AmountPaid,
		loan.AmountRemaining,
		loan.InterestEarned,
		loan.ActivatedAt,
		loan.CompletedAt,
		loan.CreatedAt,
		loan.UpdatedAt,
	)

	return err
}

func (r *loanRepository) get(ctx context.Context, query string, args ...interface{}) (*domain.Loan, error) {
	var loan domain.Loan
	if err := sqlx.GetContext(ctx, r.db, &loan, query, args...); err != nil {
		return nil, err
	}
	return &loan, nil
}

func (r *loanRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE id = $1`
	return r.get(ctx, query, id)
}

func (r *loanRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE id = $1 FOR UPDATE`
	return r.get(ctx, query, id)
}

func (r *loanRepository) GetByLoanNumber(ctx context.Context, loanNumber string) (*domain.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE loan_number = $1`
	return r.get(ctx, query, loanNumber)
}

func (r *loanRepository) List(ctx context.Context, filter domain.LoanFilter) ([]*domain.Loan, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	query := `
		SELECT ` + loanColumns + `
		FROM loans
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	loans := []*domain.Loan{}
	if err := sqlx.SelectContext(ctx, r.db, &loans, query, filter.Status, limit, filter.Offset); err != nil {
		return nil, err
	}
	return loans, nil
}

func (r *loanRepository) ListOpen(ctx context.Context) ([]*domain.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE status <> 'paid' ORDER BY due_date`

	loans := []*domain.Loan{}
	if err := sqlx.SelectContext(ctx, r.db, &loans, query); err != nil {
		return nil, err
	}
	return loans, nil
}

func (r *loanRepository) Update(ctx context.Context, loan *domain.Loan) error {
	query := `
		UPDATE loans
		SET status = $2, amount_paid = $3, amount_remaining = $4, interest_earned = $5,
			activated_at = $6, completed_at = $7, updated_at = $8
		WHERE id = $1
	`

	loan.UpdatedAt = time.Now()
	_, err := r.db.ExecContext(ctx, query,
		loan.ID,
		loan.Status,
		loan.AmountPaid,
		loan.AmountRemaining,
		loan.InterestEarned,
		loan.ActivatedAt,
		loan.CompletedAt,
		loan.UpdatedAt,
	)

	return err
}

func (r *loanRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (bool, error) {
	query := `
		UPDATE loans
		SET status = $2, updated_at = $3
		WHERE id = $1 AND status <> 'paid' AND status <> $2
	`

	result, err := r.db.ExecContext(ctx, query, id, status, time.Now())
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *loanRepository) CreateSchedule(ctx context.Context, installments []*domain.Installment) error {
	query := `
		INSERT INTO installments (` + installmentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	for _, inst := range installments {
		_, err := r.db.ExecContext(ctx, query,
			inst.ID,
			inst.LoanID,
			inst.Sequence,
			inst.Amount,
			inst.AmountPaid,
			inst.AmountLeft,
			inst.Paid,
			inst.DueDate,
			inst.CreatedAt,
			inst.UpdatedAt,
		)
		if err != nil {
			return err
		}
	}

	return nil
}

func (r *loanRepository) GetScheduleByLoanID(ctx context.Context, loanID uuid.UUID) ([]*domain.Installment, error) {
	query := `
		SELECT ` + installmentColumns + `
		FROM installments
		WHERE loan_id = $1
		ORDER BY sequence ASC
	`

	installments := []*domain.Installment{}
	if err := sqlx.SelectContext(ctx, r.db, &installments, query, loanID); err != nil {
		return nil, err
	}
	return installments, nil
}

func (r *loanRepository) UpdateInstallment(ctx context.Context, installment *domain.Installment) error {
	query := `
		UPDATE installments
		SET amount_paid = $2, amount_left = $3, paid = $4, updated_at = $5
		WHERE id = $1
	`

	installment.UpdatedAt = time.Now()
	_, err := r.db.ExecContext(ctx, query,
		installment.ID,
		installment.AmountPaid,
		installment.AmountLeft,
		installment.Paid,
		installment.UpdatedAt,
	)

	return err
}

func (r *loanRepository) GetUpcomingInstallments(ctx context.Context, from, to time.Time) ([]*domain.DueInstallment, error) {
	query := `
		SELECT i.id, i.loan_id, i.sequence, i.amount, i.amount_paid, i.amount_left, i.paid, i.due_date,
			i.created_at, i.updated_at, l.loan_number, l.customer_email
		FROM installments i
		JOIN loans l ON l.id = i.loan_id
		WHERE i.paid = FALSE AND l.status <> 'paid' AND i.due_date BETWEEN $1 AND $2
		ORDER BY i.due_date, l.loan_number
	`

	due := []*domain.DueInstallment{}
	if err := sqlx.SelectContext(ctx, r.db, &due, query, from, to); err != nil {
		return nil, err
	}
	return due, nil
}

func (r *loanRepository) GetStatusTotals(ctx context.Context, from, to time.Time) ([]*domain.StatusTotals, error) {
	query := `
		SELECT status, COUNT(*) AS count,
			COALESCE(SUM(principal), 0) AS principal,
			COALESCE(SUM(amount_remaining), 0) AS amount_remaining,
			COALESCE(SUM(interest_earned), 0) AS interest_earned
		FROM loans
		WHERE created_at >= $1 AND created_at < $2
		GROUP BY status
		ORDER BY status
	`

	totals := []*domain.StatusTotals{}
	if err := sqlx.SelectContext(ctx, r.db, &totals, query, from, to); err != nil {
		return nil, err
	}
	return totals, nil
}
