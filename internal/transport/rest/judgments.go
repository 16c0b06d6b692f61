package rest

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"incasso-core/internal/domain"
	"incasso-core/internal/service"
	"incasso-core/internal/transport/auth"
)

func trancheView(t domain.AccrualTranche) map[string]interface{} {
	return map[string]interface{}{
		"index":             t.Index,
		"period_start":      t.PeriodStart.Format("2006-01-02"),
		"period_end":        t.PeriodEnd.Format("2006-01-02"),
		"days":              t.Days,
		"annual_rate":       t.AnnualRate.String(),
		"proportional_rate": t.ProportionalRate.String(),
		"opening_principal": t.OpeningPrincipal.StringFixed(2),
		"interest":          t.Interest.StringFixed(2),
		"closing_principal": t.ClosingPrincipal.StringFixed(2),
	}
}

func judgmentView(res *service.JudgmentResult) map[string]interface{} {
	j := res.Judgment

	tranches := make([]map[string]interface{}, 0, len(res.Tranches))
	for _, t := range res.Tranches {
		tranches = append(tranches, trancheView(t))
	}

	return map[string]interface{}{
		"id":               j.ID,
		"case_id":          j.CaseID,
		"interest_type_id": j.InterestTypeID,
		"principal":        j.Principal.StringFixed(2),
		"period_start":     j.PeriodStart.Format("2006-01-02"),
		"period_end":       j.PeriodEnd.Format("2006-01-02"),
		"total_interest":   j.TotalInterest.StringFixed(2),
		"total_due":        j.TotalDue.StringFixed(2),
		"tranches":         tranches,
	}
}

func (h *Handler) registerJudgment(w http.ResponseWriter, r *http.Request) {
	in, err := ValidateJudgmentRequest(r, true)
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

	res, err := h.judgments.Register(r.Context(), tenantID, *in)
	if err != nil {
		if writeDomainError(w, err) {
			return
		}
		log.Error().Err(err).Int64("case_id", in.CaseID).Msg("http: register judgment failed")
		ErrorInternal(w, "failed to register judgment")
		return
	}

	SuccessCreated(w, "judgment registered", judgmentView(res))
}

func (h *Handler) getJudgment(w http.ResponseWriter, r *http.Request) {
	tenantID, err := auth.GetTenantID(r.Context())
	if err != nil {
		ErrorUnauthorized(w, "Unauthorized")
		return
	}

	judgmentID, err := pathID(r, "judgment_id")
	if err != nil {
		ErrorBadRequest(w, "judgment_id must be an integer")
		return
	}

	res, err := h.judgments.Get(r.Context(), tenantID, judgmentID)
	if err != nil {
		if writeDomainError(w, err) {
			return
		}
		log.Error().Err(err).Int64("judgment_id", judgmentID).Msg("http: get judgment failed")
		ErrorInternal(w, "failed to get judgment")
		return
	}

	Success(w, "", judgmentView(res))
}

func (h *Handler) deleteJudgment(w http.ResponseWriter, r *http.Request) {
	tenantID, err := auth.GetTenantID(r.Context())
	if err != nil {
		ErrorUnauthorized(w, "Unauthorized")
		return
	}

	judgmentID, err := pathID(r, "judgment_id")
	if err != nil {
		ErrorBadRequest(w, "judgment_id must be an integer")
		return
	}

	if err := h.judgments.Delete(r.Context(), tenantID, judgmentID); err != nil {
		if writeDomainError(w, err) {
			return
		}
		log.Error().Err(err).Int64("judgment_id", judgmentID).Msg("http: delete judgment failed")
		ErrorInternal(w, "failed to delete judgment")
		return
	}

	Success(w, "judgment deleted", nil)
}

func (h *Handler) previewAccrual(w http.ResponseWriter, r *http.Request) {
	in, err := ValidateJudgmentRequest(r, false)
	if err != nil {
		if !writeDomainError(w, err) {
			ErrorBadRequest(w, "invalid JSON")
		}
		return
	}

	res, err := h.judgments.Preview(r.Context(), *in)
	if err != nil {
		if writeDomainError(w, err) {
			return
		}
		log.Error().Err(err).Msg("http: accrual preview failed")
		ErrorInternal(w, "failed to compute accrual")
		return
	}

	Success(w, "", judgmentView(res))
}
