package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/segyhp/microcredit-engine/internal/billing"
	"github.com/segyhp/microcredit-engine/internal/domain"
	"github.com/segyhp/microcredit-engine/internal/repository"
	customError "github.com/segyhp/microcredit-engine/pkg/errors"
	"github.com/segyhp/microcredit-engine/pkg/utils"
)

// GatewayActor stamps payments confirmed by the payment gateway
const GatewayActor = "gateway"

type paymentInput struct {
	loanID    uuid.UUID
	amount    decimal.Decimal
	method    string
	reference *string
	note      string
	actor     string
	strategy  billing.Strategy
	// rejectOverpayment fails the payment instead of capping it
	rejectOverpayment bool
}

type paymentOutcome struct {
	loan         *domain.Loan
	payment      *domain.Payment
	installments []*domain.Installment
	completed    bool
}

func validateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() || !amount.Equal(utils.RoundMoney(amount)) {
		return customError.WrapInvalidPaymentAmount(amount.String())
	}
	return nil
}

// RecordCashPayment books money received at the counter. Amounts above the
// outstanding balance are rejected.
func (s *LoanService) RecordCashPayment(ctx context.Context, loanID uuid.UUID, amount decimal.Decimal, note, actor string) (*domain.PaymentResult, error) {
	if strings.TrimSpace(actor) == "" {
		return nil, customError.WrapActorRequired()
	}
	if err := validateAmount(amount); err != nil {
		return nil, err
	}

	outcome, err := s.applyPayment(ctx, paymentInput{
		loanID:            loanID,
		amount:            amount,
		method:            domain.PaymentMethodCash,
		note:              note,
		actor:             actor,
		strategy:          s.config.CashStrategy(),
		rejectOverpayment: true,
	})
	if err != nil {
		return nil, err
	}

	return s.completePayment(ctx, outcome), nil
}

// ApplyGatewayPayment books a payment the gateway already verified. A
// reference seen before is reported as already processed and not applied
// again. Money beyond the outstanding balance is kept as unapplied.
func (s *LoanService) ApplyGatewayPayment(ctx context.Context, request *domain.GatewayCallbackRequest) (*domain.PaymentResult, error) {
	loanID, err := uuid.Parse(request.LoanID)
	if err != nil {
		return nil, customError.WrapInvalidRequest("invalid loan id", err)
	}

	reference := strings.TrimSpace(request.Reference)
	if reference == "" {
		return nil, customError.WrapInvalidRequest("gateway reference is required", nil)
	}

	if err := validateAmount(request.Amount); err != nil {
		return nil, err
	}

	if result, err := s.findProcessed(ctx, reference); result != nil || err != nil {
		return result, err
	}

	outcome, err := s.applyPayment(ctx, paymentInput{
		loanID:    loanID,
		amount:    request.Amount,
		method:    domain.PaymentMethodGateway,
		reference: &reference,
		actor:     GatewayActor,
		strategy:  s.config.GatewayStrategy(),
	})
	if errors.Is(err, customError.ErrDuplicatePayment) {
		s.logger.WithField("reference", reference).Info("Gateway payment already processed")
		result, lookupErr := s.findProcessed(ctx, reference)
		if lookupErr != nil || result == nil {
			return &domain.PaymentResult{AlreadyProcessed: true}, nil
		}
		return result, nil
	}
	if err != nil {
		return nil, err
	}

	return s.completePayment(ctx, outcome), nil
}

// findProcessed returns an already-processed result when reference exists
func (s *LoanService) findProcessed(ctx context.Context, reference string) (*domain.PaymentResult, error) {
	existing, err := s.store.Repositories().Payments.GetByExternalReference(ctx, reference)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	return &domain.PaymentResult{Payment: existing, AlreadyProcessed: true}, nil
}

// applyPayment runs the whole read-modify-write of a payment in one
// transaction with the loan row locked.
func (s *LoanService) applyPayment(ctx context.Context, in paymentInput) (*paymentOutcome, error) {
	outcome := &paymentOutcome{}

	err := s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		if in.reference != nil {
			_, err := repos.Payments.GetByExternalReference(ctx, *in.reference)
			if err == nil {
				return customError.WrapDuplicatePayment(*in.reference)
			}
			if !errors.Is(err, sql.ErrNoRows) {
				return customError.WrapDatabaseError(err)
			}
		}

		loan, err := s.lockLoan(ctx, repos, in.loanID)
		if err != nil {
			return err
		}

		if in.rejectOverpayment {
			if loan.Status == domain.LoanStatusPaid || utils.IsSettled(loan.AmountRemaining) {
				return customError.WrapLoanAlreadyPaid(loan.ID.String())
			}
			if in.amount.GreaterThan(loan.AmountRemaining) {
				return customError.WrapOverpayment(in.amount.StringFixed(2), loan.AmountRemaining.StringFixed(2))
			}
		}

		installments, err := repos.Loans.GetScheduleByLoanID(ctx, loan.ID)
		if err != nil {
			return customError.WrapDatabaseError(err)
		}

		result := &billing.Result{Applied: decimal.Zero, Unapplied: in.amount}
		applicable := decimal.Min(in.amount, loan.AmountRemaining)
		if applicable.IsPositive() {
			result, err = billing.Allocate(installments, applicable, in.strategy)
			if err != nil {
				return err
			}
			result.Unapplied = in.amount.Sub(result.Applied)
		}

		now := s.now()
		payment := &domain.Payment{
			ID:                uuid.New(),
			LoanID:            loan.ID,
			Amount:            result.Applied,
			UnappliedAmount:   result.Unapplied,
			Method:            in.method,
			ExternalReference: in.reference,
			Note:              in.note,
			ReceivedBy:        in.actor,
			ReceivedAt:        now,
			CreatedAt:         now,
		}
		for _, alloc := range result.Allocations {
			payment.Allocations = append(payment.Allocations, &domain.PaymentAllocation{
				ID:            uuid.New(),
				PaymentID:     payment.ID,
				InstallmentID: alloc.Installment.ID,
				Sequence:      alloc.Installment.Sequence,
				Amount:        alloc.Amount,
			})
		}

		if err := repos.Payments.Create(ctx, payment); err != nil {
			if in.reference != nil && repository.IsUniqueViolation(err) {
				return customError.WrapDuplicatePayment(*in.reference)
			}
			return customError.WrapDatabaseError(err)
		}

		for _, alloc := range result.Allocations {
			if err := repos.Loans.UpdateInstallment(ctx, alloc.Installment); err != nil {
				return customError.WrapDatabaseError(err)
			}
		}

		paidTotal, err := repos.Payments.GetTotalPaid(ctx, loan.ID)
		if err != nil {
			return customError.WrapDatabaseError(err)
		}

		completed := billing.ApplyLedgerTotal(loan, paidTotal, now)
		if err := repos.Loans.Update(ctx, loan); err != nil {
			return customError.WrapDatabaseError(err)
		}

		outcome.loan = loan
		outcome.payment = payment
		outcome.installments = installments
		outcome.completed = completed
		return nil
	})
	if err != nil {
		return nil, toBusinessError(err)
	}

	return outcome, nil
}

// completePayment runs the post-commit side effects. None of them can fail
// the payment.
func (s *LoanService) completePayment(ctx context.Context, outcome *paymentOutcome) *domain.PaymentResult {
	loan, payment := outcome.loan, outcome.payment

	s.logger.WithFields(logrus.Fields{
		"loan_id":    loan.ID,
		"payment_id": payment.ID,
		"method":     payment.Method,
		"applied":    payment.Amount.StringFixed(2),
		"unapplied":  payment.UnappliedAmount.StringFixed(2),
		"remaining":  loan.AmountRemaining.StringFixed(2),
		"status":     loan.Status,
	}).Info("Payment applied")

	s.invalidate(ctx, loan.ID)

	if payment.Amount.IsPositive() {
		if err := s.notifier.PaymentReceived(ctx, loan, payment); err != nil {
			s.logger.WithError(err).WithField("payment_id", payment.ID).Warn("Failed to notify payment")
		}
	}
	if outcome.completed {
		if err := s.notifier.LoanCompleted(ctx, loan); err != nil {
			s.logger.WithError(err).WithField("loan_id", loan.ID).Warn("Failed to notify loan completion")
		}
	}

	return &domain.PaymentResult{
		Payment:      payment,
		Loan:         loan,
		Installments: outcome.installments,
	}
}

func (s *LoanService) ListPayments(ctx context.Context, loanID uuid.UUID) ([]*domain.Payment, error) {
	repos := s.store.Repositories()

	if _, err := s.findLoan(ctx, repos, loanID); err != nil {
		return nil, err
	}

	payments, err := repos.Payments.GetByLoanID(ctx, loanID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	return payments, nil
}

// GetOutstanding returns max(0, total - sum of the payment ledger), served
// from the cache when possible
func (s *LoanService) GetOutstanding(ctx context.Context, loanID uuid.UUID) (*domain.OutstandingResponse, error) {
	cached, found, err := s.cache.GetOutstanding(ctx, loanID)
	if err != nil {
		s.logger.WithError(customError.WrapCacheError(err)).WithField("loan_id", loanID).Warn("Outstanding cache read failed")
	}
	if found {
		if !staleOutstanding(cached, s.now()) {
			cached.Cached = true
			return cached, nil
		}
		s.invalidate(ctx, loanID)
	}

	repos := s.store.Repositories()

	loan, err := s.findLoan(ctx, repos, loanID)
	if err != nil {
		return nil, err
	}

	paidTotal, err := repos.Payments.GetTotalPaid(ctx, loanID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	s.healStatus(ctx, repos, loan)

	outstanding := &domain.OutstandingResponse{
		LoanID:      loanID.String(),
		Outstanding: utils.NonNegative(loan.TotalWithInterest.Sub(paidTotal)),
		Status:      loan.Status,
		DueDate:     loan.DueDate,
	}

	if err := s.cache.SetOutstanding(ctx, loanID, outstanding); err != nil {
		s.logger.WithError(customError.WrapCacheError(err)).WithField("loan_id", loanID).Warn("Outstanding cache write failed")
	}

	return outstanding, nil
}

// staleOutstanding reports whether a cached entry was stored before the due
// date passed and still carries the pre-overdue status
func staleOutstanding(cached *domain.OutstandingResponse, now time.Time) bool {
	switch cached.Status {
	case domain.LoanStatusPaid, domain.LoanStatusOverdue:
		return false
	}
	return utils.IsDateOverdue(cached.DueDate, now)
}
