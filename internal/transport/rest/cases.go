package rest

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"incasso-core/internal/domain"
	"incasso-core/internal/transport/auth"
)

func caseView(c *domain.CollectionCase) map[string]interface{} {
	return map[string]interface{}{
		"id":               c.ID,
		"debtor_id":        c.DebtorID,
		"reference_number": c.ReferenceNumber,
		"issue_date":       c.IssueDate.Format("2006-01-02"),
		"due_date":         c.DueDate.Format("2006-01-02"),
		"principal":        c.Principal.StringFixed(2),
		"fee_rate":         c.FeeRate.String(),
		"fee_amount":       c.FeeAmount.StringFixed(2),
		"levy_rate":        c.LevyRate.String(),
		"levy_amount":      c.LevyAmount.StringFixed(2),
		"total_due":        c.TotalDue.StringFixed(2),
		"total_to_receive": c.TotalToReceive.StringFixed(2),
		"total_paid":       c.TotalPaid.StringFixed(2),
		"balance":          c.Balance.StringFixed(2),
		"stage":            string(c.Stage),
		"created_at":       c.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}

func noticeView(n domain.Notice) map[string]interface{} {
	return map[string]interface{}{
		"id":      n.ID,
		"stage":   string(n.Stage),
		"title":   n.Title,
		"sent_at": n.SentAt.Format("2006-01-02 15:04:05"),
	}
}

func pathID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, name), 10, 64)
}

// writeDomainError maps the well-known domain errors onto the envelope; the
// boolean reports whether the error was handled.
func writeDomainError(w http.ResponseWriter, err error) bool {
	var vErr *domain.ValidationError
	switch {
	case errors.As(err, &vErr):
		ErrorBadRequest(w, vErr.Error())
		return true
	case errors.Is(err, domain.ErrInvalidAmount):
		ErrorBadRequest(w, "amount must be positive")
		return true
	case errors.Is(err, domain.ErrNotFound):
		ErrorNotFound(w, "not found")
		return true
	case errors.Is(err, domain.ErrDuplicateNotice):
		ErrorConflict(w, "notice already sent")
		return true
	}

	var vpErr *ValidationError
	if errors.As(err, &vpErr) {
		ErrorBadRequest(w, vpErr.Error())
		return true
	}

	return false
}

func (h *Handler) createCase(w http.ResponseWriter, r *http.Request) {
	in, err := ValidateCreateCaseRequest(r)
	if err != nil {
		if !writeDomainError(w, err) {
			ErrorBadRequest(w, "invalid JSON")
		}
		return
	}

	tenantID, err := auth.GetTenantID(r.Context())
	if err != nil {
		ErrorUnauthorized(w, "Unauthorized")
		return
	}
	in.TenantID = tenantID

	c, err := h.cases.CreateCase(r.Context(), *in)
	if err != nil {
		if writeDomainError(w, err) {
			return
		}
		log.Error().Err(err).Msg("http: create case failed")
		ErrorInternal(w, "failed to create case")
		return
	}

	SuccessCreated(w, "case created", caseView(c))
}

func (h *Handler) getCase(w http.ResponseWriter, r *http.Request) {
	tenantID, err := auth.GetTenantID(r.Context())
	if err != nil {
		ErrorUnauthorized(w, "Unauthorized")
		return
	}

	caseID, err := pathID(r, "case_id")
	if err != nil {
		ErrorBadRequest(w, "case_id must be an integer")
		return
	}

	c, notices, err := h.cases.GetCase(r.Context(), tenantID, caseID)
	if err != nil {
		if writeDomainError(w, err) {
			return
		}
		log.Error().Err(err).Int64("case_id", caseID).Msg("http: get case failed")
		ErrorInternal(w, "failed to get case")
		return
	}

	view := caseView(c)
	noticeViews := make([]map[string]interface{}, 0, len(notices))
	for _, n := range notices {
		noticeViews = append(noticeViews, noticeView(n))
	}
	view["notices"] = noticeViews

	Success(w, "", view)
}

func (h *Handler) recordPayment(w http.ResponseWriter, r *http.Request) {
	tenantID, err := auth.GetTenantID(r.Context())
	if err != nil {
		ErrorUnauthorized(w, "Unauthorized")
		return
	}

	caseID, err := pathID(r, "case_id")
	if err != nil {
		ErrorBadRequest(w, "case_id must be an integer")
		return
	}

	amount, err := ValidatePaymentRequest(r)
	if err != nil {
		if !writeDomainError(w, err) {
			ErrorBadRequest(w, "invalid JSON")
		}
		return
	}

	c, err := h.cases.RecordPayment(r.Context(), tenantID, caseID, amount)
	if err != nil {
		if writeDomainError(w, err) {
			return
		}
		log.Error().Err(err).Int64("case_id", caseID).Msg("http: record payment failed")
		ErrorInternal(w, "failed to record payment")
		return
	}

	Success(w, "payment recorded", caseView(c))
}

func (h *Handler) cancelCase(w http.ResponseWriter, r *http.Request) {
	tenantID, err := auth.GetTenantID(r.Context())
	if err != nil {
		ErrorUnauthorized(w, "Unauthorized")
		return
	}

	caseID, err := pathID(r, "case_id")
	if err != nil {
		ErrorBadRequest(w, "case_id must be an integer")
		return
	}

	if err := h.cases.CancelCase(r.Context(), tenantID, caseID); err != nil {
		if writeDomainError(w, err) {
			return
		}
		log.Error().Err(err).Int64("case_id", caseID).Msg("http: cancel case failed")
		ErrorInternal(w, "failed to cancel case")
		return
	}

	Success(w, "case cancelled", nil)
}

func (h *Handler) deleteCase(w http.ResponseWriter, r *http.Request) {
	tenantID, err := auth.GetTenantID(r.Context())
	if err != nil {
		ErrorUnauthorized(w, "Unauthorized")
		return
	}

	caseID, err := pathID(r, "case_id")
	if err != nil {
		ErrorBadRequest(w, "case_id must be an integer")
		return
	}

	if err := h.cases.DeleteCase(r.Context(), tenantID, caseID); err != nil {
		if writeDomainError(w, err) {
			return
		}
		log.Error().Err(err).Int64("case_id", caseID).Msg("http: delete case failed")
		ErrorInternal(w, "failed to delete case")
		return
	}

	Success(w, "case deleted", nil)
}
