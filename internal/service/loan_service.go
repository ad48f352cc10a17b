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
	"github.com/segyhp/microcredit-engine/internal/cache"
	"github.com/segyhp/microcredit-engine/internal/config"
	"github.com/segyhp/microcredit-engine/internal/document"
	"github.com/segyhp/microcredit-engine/internal/domain"
	"github.com/segyhp/microcredit-engine/internal/notification"
	"github.com/segyhp/microcredit-engine/internal/repository"
	customError "github.com/segyhp/microcredit-engine/pkg/errors"
	"github.com/segyhp/microcredit-engine/pkg/utils"
)

type LoanService struct {
	store    repository.Store
	cache    cache.LoanCache
	notifier notification.Notifier
	config   *config.Config
	logger   *logrus.Logger
	now      func() time.Time
}

func NewLoanService(
	store repository.Store,
	loanCache cache.LoanCache,
	notifier notification.Notifier,
	config *config.Config,
	logger *logrus.Logger,
) *LoanService {
	return &LoanService{
		store:    store,
		cache:    loanCache,
		notifier: notifier,
		config:   config,
		logger:   logger,
		now:      time.Now,
	}
}

// WithClock replaces the time source
func (s *LoanService) WithClock(now func() time.Time) *LoanService {
	s.now = now
	return s
}

// toBusinessError keeps business errors as they are and treats everything
// else as a persistence failure
func toBusinessError(err error) error {
	var businessErr *customError.BusinessError
	if errors.As(err, &businessErr) {
		return err
	}
	return customError.WrapDatabaseError(err)
}

func parseDate(value string) (time.Time, error) {
	return time.Parse(domain.DateLayout, strings.TrimSpace(value))
}

// CreateLoan registers a pending loan and its repayment schedule atomically
func (s *LoanService) CreateLoan(ctx context.Context, request *domain.CreateLoanRequest) (*domain.CreateLoanResponse, error) {
	startDate, err := parseDate(request.StartDate)
	if err != nil {
		return nil, customError.WrapInvalidStartDate(request.StartDate)
	}

	dueDate := utils.AddMonths(startDate, request.TermMonths)
	if request.DueDate != "" {
		dueDate, err = parseDate(request.DueDate)
		if err != nil {
			return nil, customError.WrapInvalidDueDate(request.DueDate)
		}
		if !dueDate.After(startDate) {
			return nil, customError.WrapInvalidDueDate("due date must be after the start date")
		}
	}

	rate := request.InterestRate
	if rate.IsZero() {
		rate = s.config.GetDefaultInterestRate()
	}

	now := s.now()
	loanID := uuid.New()

	// Validation happens here, before anything is written
	installments, err := billing.GenerateSchedule(loanID, request.Principal, request.TermMonths, startDate, rate)
	if err != nil {
		return nil, err
	}

	total := billing.TotalDue(request.Principal, request.TermMonths, rate)
	loan := &domain.Loan{
		ID:                loanID,
		LoanNumber:        strings.TrimSpace(request.LoanNumber),
		CustomerID:        request.CustomerID,
		CustomerEmail:     request.CustomerEmail,
		Principal:         request.Principal,
		InterestRate:      rate,
		TermMonths:        request.TermMonths,
		StartDate:         startDate,
		DueDate:           dueDate,
		Status:            domain.LoanStatusPending,
		TotalWithInterest: total,
		AmountPaid:        decimal.Zero,
		AmountRemaining:   total,
		InterestEarned:    decimal.Zero,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	for _, inst := range installments {
		inst.CreatedAt = now
		inst.UpdatedAt = now
	}

	err = s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		existing, err := repos.Loans.GetByLoanNumber(ctx, loan.LoanNumber)
		if err == nil && existing != nil {
			return customError.WrapLoanAlreadyExists(loan.LoanNumber)
		}
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return customError.WrapDatabaseError(err)
		}

		if err := repos.Loans.Create(ctx, loan); err != nil {
			if repository.IsUniqueViolation(err) {
				return customError.WrapLoanAlreadyExists(loan.LoanNumber)
			}
			return customError.WrapDatabaseError(err)
		}

		if err := repos.Loans.CreateSchedule(ctx, installments); err != nil {
			return customError.WrapDatabaseError(err)
		}
		return nil
	})
	if err != nil {
		return nil, toBusinessError(err)
	}

	s.logger.WithFields(logrus.Fields{
		"loan_id":     loan.ID,
		"loan_number": loan.LoanNumber,
		"total":       loan.TotalWithInterest.StringFixed(2),
	}).Info("Loan created")

	if err := s.notifier.LoanCreated(ctx, loan); err != nil {
		s.logger.WithError(err).WithField("loan_id", loan.ID).Warn("Failed to notify loan creation")
	}

	return &domain.CreateLoanResponse{Loan: loan, Schedule: installments}, nil
}

// ActivateLoan marks the loan as disbursed. Activating twice is a no-op.
func (s *LoanService) ActivateLoan(ctx context.Context, loanID uuid.UUID) (*domain.Loan, error) {
	var loan *domain.Loan

	err := s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		var err error
		loan, err = s.lockLoan(ctx, repos, loanID)
		if err != nil {
			return err
		}

		if loan.Status == domain.LoanStatusPaid {
			return customError.WrapLoanAlreadyPaid(loanID.String())
		}
		if loan.ActivatedAt != nil {
			return nil
		}

		now := s.now()
		loan.ActivatedAt = &now
		loan.Status = billing.ResolveStatus(loan, now)

		if err := repos.Loans.Update(ctx, loan); err != nil {
			return customError.WrapDatabaseError(err)
		}
		return nil
	})
	if err != nil {
		return nil, toBusinessError(err)
	}

	s.invalidate(ctx, loanID)
	s.logger.WithField("loan_id", loanID).Info("Loan activated")

	return loan, nil
}

// GetLoan returns the loan with its schedule and payments. A status that
// drifted (e.g. the due date passed) is corrected and written back.
func (s *LoanService) GetLoan(ctx context.Context, loanID uuid.UUID) (*domain.LoanDetailResponse, error) {
	repos := s.store.Repositories()

	loan, err := s.findLoan(ctx, repos, loanID)
	if err != nil {
		return nil, err
	}

	schedule, err := repos.Loans.GetScheduleByLoanID(ctx, loanID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	payments, err := repos.Payments.GetByLoanID(ctx, loanID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	s.healStatus(ctx, repos, loan)

	return &domain.LoanDetailResponse{Loan: loan, Schedule: schedule, Payments: payments}, nil
}

func (s *LoanService) ListLoans(ctx context.Context, filter domain.LoanFilter) ([]*domain.Loan, error) {
	switch filter.Status {
	case "", domain.LoanStatusPending, domain.LoanStatusActive, domain.LoanStatusOverdue, domain.LoanStatusPaid:
	default:
		return nil, customError.WrapInvalidRequest("unknown status filter: "+filter.Status, nil)
	}

	repos := s.store.Repositories()

	loans, err := repos.Loans.List(ctx, filter)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	for _, loan := range loans {
		s.healStatus(ctx, repos, loan)
	}
	return loans, nil
}

func (s *LoanService) GetSchedule(ctx context.Context, loanID uuid.UUID) (*domain.ScheduleResponse, error) {
	repos := s.store.Repositories()

	if _, err := s.findLoan(ctx, repos, loanID); err != nil {
		return nil, err
	}

	schedule, err := repos.Loans.GetScheduleByLoanID(ctx, loanID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	return &domain.ScheduleResponse{LoanID: loanID.String(), Schedule: schedule}, nil
}

// PreviewSchedule quotes a schedule without creating anything
func (s *LoanService) PreviewSchedule(ctx context.Context, request *domain.PreviewRequest) (*domain.PreviewResponse, error) {
	startDate, err := parseDate(request.StartDate)
	if err != nil {
		return nil, customError.WrapInvalidStartDate(request.StartDate)
	}

	rate := request.InterestRate
	if rate.IsZero() {
		rate = s.config.GetDefaultInterestRate()
	}

	return billing.PreviewSchedule(request.Principal, request.TermMonths, startDate, rate)
}

// ScheduleDocument renders the loan agreement with its schedule as XML
func (s *LoanService) ScheduleDocument(ctx context.Context, loanID uuid.UUID) ([]byte, error) {
	repos := s.store.Repositories()

	loan, err := s.findLoan(ctx, repos, loanID)
	if err != nil {
		return nil, err
	}

	schedule, err := repos.Loans.GetScheduleByLoanID(ctx, loanID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	s.healStatus(ctx, repos, loan)

	return document.ScheduleXML(loan, schedule, s.now())
}

func (s *LoanService) findLoan(ctx context.Context, repos repository.Repositories, loanID uuid.UUID) (*domain.Loan, error) {
	loan, err := repos.Loans.GetByID(ctx, loanID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, customError.WrapLoanNotFound(loanID.String())
	}
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	return loan, nil
}

func (s *LoanService) lockLoan(ctx context.Context, repos repository.Repositories, loanID uuid.UUID) (*domain.Loan, error) {
	loan, err := repos.Loans.GetByIDForUpdate(ctx, loanID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, customError.WrapLoanNotFound(loanID.String())
	}
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	return loan, nil
}

// healStatus resolves the loan status and persists it when it drifted.
// A failed write is logged; the caller still gets the resolved status.
func (s *LoanService) healStatus(ctx context.Context, repos repository.Repositories, loan *domain.Loan) bool {
	resolved := billing.ResolveStatus(loan, s.now())
	if resolved == loan.Status {
		return false
	}

	previous := loan.Status
	loan.Status = resolved

	changed, err := repos.Loans.UpdateStatus(ctx, loan.ID, resolved)
	if err != nil {
		s.logger.WithError(err).WithField("loan_id", loan.ID).Warn("Failed to persist resolved loan status")
		return false
	}
	if changed {
		s.logger.WithFields(logrus.Fields{
			"loan_id": loan.ID,
			"from":    previous,
			"to":      resolved,
		}).Info("Loan status corrected")
	}
	return changed
}

func (s *LoanService) invalidate(ctx context.Context, loanID uuid.UUID) {
	if err := s.cache.Invalidate(ctx, loanID); err != nil {
		s.logger.WithError(err).WithField("loan_id", loanID).Warn("Failed to invalidate loan cache")
	}
}
