package handler

import (
	"net/http"
	"time"

	"github.com/segyhp/microcredit-engine/internal/domain"
	customError "github.com/segyhp/microcredit-engine/pkg/errors"
	"github.com/segyhp/microcredit-engine/pkg/response"
)

// PortfolioSummary handles GET /reports/portfolio?from=YYYY-MM-DD&to=YYYY-MM-DD.
// The range is half-open; to defaults to tomorrow and from to 30 days before to.
func (h *LoanHandler) PortfolioSummary(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	to := time.Now().UTC().Truncate(24*time.Hour).AddDate(0, 0, 1)
	if raw := query.Get("to"); raw != "" {
		parsed, err := time.Parse(domain.DateLayout, raw)
		if err != nil {
			h.fail(w, r, customError.WrapInvalidRequest("to must be a YYYY-MM-DD date", err))
			return
		}
		to = parsed
	}

	from := to.AddDate(0, 0, -30)
	if raw := query.Get("from"); raw != "" {
		parsed, err := time.Parse(domain.DateLayout, raw)
		if err != nil {
			h.fail(w, r, customError.WrapInvalidRequest("from must be a YYYY-MM-DD date", err))
			return
		}
		from = parsed
	}

	summary, err := h.service.PortfolioSummary(r.Context(), from, to)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	response.Success(w, summary)
}
