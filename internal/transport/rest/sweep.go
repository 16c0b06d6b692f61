package rest

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"incasso-core/internal/transport/auth"
)

func (h *Handler) runSweep(w http.ResponseWriter, r *http.Request) {
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

	summary, err := h.sweep.Run(r.Context(), tenantID, userID)
	if err != nil {
		log.Error().Err(err).Int64("tenant_id", tenantID).Msg("http: sweep run failed")
		ErrorInternal(w, "sweep failed")
		return
	}

	Success(w, "sweep complete", summary)
}
