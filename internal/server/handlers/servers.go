package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/vpsdash/vpsdash/internal/core"
	"github.com/vpsdash/vpsdash/internal/poller"
)

// ServersResponse is the dashboard's fleet snapshot.
type ServersResponse struct {
	Servers       []core.Server `json:"servers"`
	LastRefreshed *time.Time    `json:"last_refreshed,omitempty"`
	Loading       bool          `json:"loading"`
	Error         string        `json:"error,omitempty"`
}

// Servers returns the poller's current snapshot without touching the
// provider API.
func (h *Handlers) Servers(w http.ResponseWriter, r *http.Request) {
	if h.Fleet == nil {
		respondError(w, r, errors.New("fleet is not configured"))
		return
	}

	resp := ServersResponse{
		Servers: h.Fleet.Servers(),
		Loading: h.Fleet.Loading(),
		Error:   h.Fleet.Err(),
	}
	if resp.Servers == nil {
		resp.Servers = []core.Server{}
	}
	if last := h.Fleet.LastRefreshed(); !last.IsZero() {
		resp.LastRefreshed = &last
	}

	writeJSON(w, http.StatusOK, resp)
}

// RefreshServers triggers a manual refresh and returns the new snapshot.
func (h *Handlers) RefreshServers(w http.ResponseWriter, r *http.Request) {
	if h.Fleet == nil {
		respondError(w, r, errors.New("fleet is not configured"))
		return
	}

	if err := h.Fleet.Refresh(r.Context(), poller.ModeManual); err != nil {
		h.logger().Warn("manual refresh failed", zap.Error(err))
	}
	h.Servers(w, r)
}

// PowerAction applies a power action to one server.
func (h *Handlers) PowerAction(w http.ResponseWriter, r *http.Request) {
	client, accountName, err := h.client(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}

	serverID := chi.URLParam(r, "id")
	state := core.PowerState(chi.URLParam(r, "action"))

	result, err := client.PowerAction(r.Context(), serverID, state)
	if err != nil {
		h.recordAudit(r, core.AuditRecord{
			Action:          "POWER_ACTION",
			Details:         string(state) + " failed",
			AccountName:     accountName,
			Status:          core.AuditFailure,
			AffectedServers: []string{serverID},
		})
		respondError(w, r, err)
		return
	}

	h.recordAudit(r, core.AuditRecord{
		Action:          "POWER_ACTION",
		Details:         string(state),
		AccountName:     accountName,
		Status:          core.AuditSuccess,
		AffectedServers: []string{serverID},
	})

	writeJSON(w, http.StatusOK, result)
}

// BatchPowerRequest asks for one action across many servers.
type BatchPowerRequest struct {
	Action    core.PowerState `json:"action"`
	ServerIDs []string        `json:"server_ids"`
}

// BatchPower applies a power action to every listed server, settling
// each one independently.
func (h *Handlers) BatchPower(w http.ResponseWriter, r *http.Request) {
	client, accountName, err := h.client(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}

	var req BatchPowerRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, badRequest("INVALID_REQUEST_BODY", "Request body must be valid JSON"))
		return
	}
	if !req.Action.Valid() {
		respondError(w, r, badRequest("INVALID_POWER_ACTION", "Power action must be start, stop or reset"))
		return
	}

	result, err := core.BatchPower(r.Context(), client, req.Action, req.ServerIDs, 0)
	if err != nil {
		respondError(w, r, err)
		return
	}

	if h.Audit != nil {
		core.AuditBatch(r.Context(), h.Audit, accountName, result)
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *Handlers) recordAudit(r *http.Request, record core.AuditRecord) {
	if h.Audit == nil {
		return
	}
	record.Timestamp = time.Now().UTC()
	h.Audit.Record(r.Context(), record)
}
