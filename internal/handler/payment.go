package handler

import (
	"net/http"

	"github.com/segyhp/microcredit-engine/internal/domain"
	"github.com/segyhp/microcredit-engine/internal/middleware"
	customError "github.com/segyhp/microcredit-engine/pkg/errors"
	"github.com/segyhp/microcredit-engine/pkg/response"
)

// MakePayment records cash received by the authenticated operator
func (h *LoanHandler) MakePayment(w http.ResponseWriter, r *http.Request) {
	loanID, err := loanIDParam(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		h.fail(w, r, customError.WrapActorRequired())
		return
	}

	var req domain.MakePaymentRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	result, err := h.service.RecordCashPayment(r.Context(), loanID, req.Amount, req.Note, actor)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	response.Created(w, result)
}

func (h *LoanHandler) ListPayments(w http.ResponseWriter, r *http.Request) {
	loanID, err := loanIDParam(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	payments, err := h.service.ListPayments(r.Context(), loanID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	response.Success(w, payments)
}

// GatewayCallback applies a signed gateway notification. Replays answer 200
// with already_processed set so the gateway stops retrying.
func (h *LoanHandler) GatewayCallback(w http.ResponseWriter, r *http.Request) {
	var req domain.GatewayCallbackRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	result, err := h.service.ApplyGatewayPayment(r.Context(), &req)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	if result.AlreadyProcessed {
		response.Success(w, result)
		return
	}
	response.Created(w, result)
}
