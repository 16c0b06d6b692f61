package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"incasso-core/internal/transport/auth"
)

func (h *Handler) exportCases(w http.ResponseWriter, r *http.Request) {
	req, err := ValidateCasesExportRequest(r)
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

	userID, err := auth.GetUserID(r.Context())
	if err != nil {
		ErrorUnauthorized(w, "Unauthorized")
		return
	}

	exportID, err := h.exports.StartCasesExport(r.Context(), tenantID, req.Fields, req.Filter, userID)
	if err != nil {
		log.Error().Err(err).Msg("http: start cases export failed")
		ErrorInternal(w, "failed to start export")
		return
	}

	SuccessAccepted(w, "export queued", map[string]interface{}{
		"export_id": exportID,
	})
}

func (h *Handler) listExports(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.GetUserID(r.Context())
	if err != nil {
		ErrorUnauthorized(w, "Unauthorized")
		return
	}

	exports, err := h.exportList.GetExports(r.Context(), userID)
	if err != nil {
		log.Error().Err(err).Msg("http: list exports failed")
		ErrorInternal(w, "failed to get exports")
		return
	}

	Success(w, "", exports)
}

func (h *Handler) getExport(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.GetUserID(r.Context())
	if err != nil {
		ErrorUnauthorized(w, "Unauthorized")
		return
	}

	exportIDParam := chi.URLParam(r, "export_id")
	if exportIDParam == "" {
		ErrorBadRequest(w, "export_id is required")
		return
	}
	exportID := "exports:" + exportIDParam

	export, err := h.exportList.GetExport(r.Context(), exportID, userID)
	if err != nil {
		ErrorNotFound(w, "export not found")
		return
	}

	Success(w, "", export)
}
