package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/segyhp/microcredit-engine/internal/domain"
	customError "github.com/segyhp/microcredit-engine/pkg/errors"
	"github.com/segyhp/microcredit-engine/pkg/response"
)

const maxListLimit = 200

// LoanService is what the HTTP layer needs from the back office
type LoanService interface {
	CreateLoan(ctx context.Context, request *domain.CreateLoanRequest) (*domain.CreateLoanResponse, error)
	ActivateLoan(ctx context.Context, loanID uuid.UUID) (*domain.Loan, error)
	GetLoan(ctx context.Context, loanID uuid.UUID) (*domain.LoanDetailResponse, error)
	ListLoans(ctx context.Context, filter domain.LoanFilter) ([]*domain.Loan, error)
	GetSchedule(ctx context.Context, loanID uuid.UUID) (*domain.ScheduleResponse, error)
	PreviewSchedule(ctx context.Context, request *domain.PreviewRequest) (*domain.PreviewResponse, error)
	ScheduleDocument(ctx context.Context, loanID uuid.UUID) ([]byte, error)
	RecordCashPayment(ctx context.Context, loanID uuid.UUID, amount decimal.Decimal, note, actor string) (*domain.PaymentResult, error)
	ApplyGatewayPayment(ctx context.Context, request *domain.GatewayCallbackRequest) (*domain.PaymentResult, error)
	ListPayments(ctx context.Context, loanID uuid.UUID) ([]*domain.Payment, error)
	GetOutstanding(ctx context.Context, loanID uuid.UUID) (*domain.OutstandingResponse, error)
	PortfolioSummary(ctx context.Context, from, to time.Time) (*domain.PortfolioSummary, error)
}

type LoanHandler struct {
	service   LoanService
	validator *validator.Validate
	logger    *logrus.Logger
}

func NewLoanHandler(service LoanService, logger *logrus.Logger) *LoanHandler {
	return &LoanHandler{
		service:   service,
		validator: newValidator(),
		logger:    logger,
	}
}

func (h *LoanHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	entry := h.logger.WithError(err).WithField("path", r.URL.Path)
	if customError.HTTPStatus(err) >= http.StatusInternalServerError {
		entry.Error("Request failed")
	} else {
		entry.Debug("Request rejected")
	}
	response.FromError(w, err)
}

func loanIDParam(r *http.Request) (uuid.UUID, error) {
	raw := mux.Vars(r)["loanId"]
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, customError.WrapInvalidRequest("invalid loan id: "+raw, err)
	}
	return id, nil
}

// CreateLoan handles POST /loans
func (h *LoanHandler) CreateLoan(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateLoanRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	resp, err := h.service.CreateLoan(r.Context(), &req)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	response.Created(w, resp)
}

// ListLoans handles GET /loans?status=&limit=&offset=
func (h *LoanHandler) ListLoans(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := domain.LoanFilter{Status: query.Get("status")}

	if raw := query.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > maxListLimit {
			h.fail(w, r, customError.WrapInvalidRequest("limit must be between 1 and "+strconv.Itoa(maxListLimit), err))
			return
		}
		filter.Limit = limit
	}
	if raw := query.Get("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			h.fail(w, r, customError.WrapInvalidRequest("offset must be a non-negative integer", err))
			return
		}
		filter.Offset = offset
	}

	loans, err := h.service.ListLoans(r.Context(), filter)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	response.Success(w, loans)
}

func (h *LoanHandler) GetLoan(w http.ResponseWriter, r *http.Request) {
	loanID, err := loanIDParam(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	detail, err := h.service.GetLoan(r.Context(), loanID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	response.Success(w, detail)
}

func (h *LoanHandler) ActivateLoan(w http.ResponseWriter, r *http.Request) {
	loanID, err := loanIDParam(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	loan, err := h.service.ActivateLoan(r.Context(), loanID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	response.Success(w, loan)
}

func (h *LoanHandler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	loanID, err := loanIDParam(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	schedule, err := h.service.GetSchedule(r.Context(), loanID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	response.Success(w, schedule)
}

// GetScheduleDocument serves the loan agreement as an XML attachment
func (h *LoanHandler) GetScheduleDocument(w http.ResponseWriter, r *http.Request) {
	loanID, err := loanIDParam(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	doc, err := h.service.ScheduleDocument(r.Context(), loanID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/xml")
	w.Header().Set("Content-Disposition", `attachment; filename="loan-`+loanID.String()+`.xml"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(doc); err != nil {
		h.logger.WithError(err).Warn("Failed to write schedule document")
	}
}

func (h *LoanHandler) PreviewSchedule(w http.ResponseWriter, r *http.Request) {
	var req domain.PreviewRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	preview, err := h.service.PreviewSchedule(r.Context(), &req)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	response.Success(w, preview)
}

func (h *LoanHandler) GetOutstanding(w http.ResponseWriter, r *http.Request) {
	loanID, err := loanIDParam(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	outstanding, err := h.service.GetOutstanding(r.Context(), loanID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	response.Success(w, outstanding)
}
