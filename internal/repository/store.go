package repository

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

//go:embed schema.sql
var schema string

// uniqueViolation is the Postgres SQLSTATE for unique_violation
const uniqueViolation = "23505"

// Repositories groups the repositories bound to one connection or transaction
type Repositories struct {
	Loans    LoanRepository
	Payments PaymentRepository
}

// Store hands out repositories and runs units of work atomically
type Store interface {
	Repositories() Repositories

	// WithinTx runs fn inside one transaction. Any error from fn rolls
	// everything back.
	WithinTx(ctx context.Context, fn func(repos Repositories) error) error
}

type SQLStore struct {
	db *sqlx.DB
}

func NewSQLStore(db *sqlx.DB) *SQLStore {
	return &SQLStore{db: db}
}

func newRepositories(db sqlx.ExtContext) Repositories {
	return Repositories{
		Loans:    &loanRepository{db: db},
		Payments: &paymentRepository{db: db},
	}
}

func (s *SQLStore) Repositories() Repositories {
	return newRepositories(s.db)
}

func (s *SQLStore) WithinTx(ctx context.Context, fn func(repos Repositories) error) (err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(newRepositories(tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// IsUniqueViolation reports whether err is a Postgres unique constraint violation
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == uniqueViolation
	}
	return false
}

// Migrate creates the tables and indexes when they do not exist yet
func Migrate(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
