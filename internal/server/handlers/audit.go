package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/vpsdash/vpsdash/internal/core"
)

// AuditLog lists recent audit entries, newest first. The limit query
// parameter caps the result.
func (h *Handlers) AuditLog(w http.ResponseWriter, r *http.Request) {
	if h.Audit == nil {
		respondError(w, r, errors.New("audit store is not configured"))
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			respondError(w, r, badRequest("INVALID_LIMIT", "limit must be a non-negative integer"))
			return
		}
		limit = parsed
	}

	records, err := h.Audit.ListAudit(r.Context(), limit)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if records == nil {
		records = []core.AuditRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}
