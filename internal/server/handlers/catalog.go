package handlers

import (
	"net/http"

	"github.com/vpsdash/vpsdash/internal/core"
)

// Balance returns the active account's balance.
func (h *Handlers) Balance(w http.ResponseWriter, r *http.Request) {
	client, _, err := h.client(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}

	balance, err := client.GetBalance(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, balance)
}

// Plans lists purchasable server plans.
func (h *Handlers) Plans(w http.ResponseWriter, r *http.Request) {
	client, _, err := h.client(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}

	plans, err := client.GetPlans(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, plans)
}

// Regions lists provider datacenter locations.
func (h *Handlers) Regions(w http.ResponseWriter, r *http.Request) {
	client, _, err := h.client(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}

	regions, err := client.GetRegions(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, regions)
}

// Distros lists installable OS images.
func (h *Handlers) Distros(w http.ResponseWriter, r *http.Request) {
	client, _, err := h.client(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}

	distros, err := client.GetDistros(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, distros)
}

// Stock reports plan availability per region.
func (h *Handlers) Stock(w http.ResponseWriter, r *http.Request) {
	client, _, err := h.client(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}

	stock, err := client.GetStock(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stock)
}

// Order purchases a new server.
func (h *Handlers) Order(w http.ResponseWriter, r *http.Request) {
	client, accountName, err := h.client(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}

	var req core.PurchaseRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, badRequest("INVALID_REQUEST_BODY", "Request body must be valid JSON"))
		return
	}

	result, err := client.PurchaseServer(r.Context(), req)
	if err != nil {
		respondError(w, r, err)
		return
	}

	h.recordAudit(r, core.AuditRecord{
		Action:      "SERVER_PURCHASE",
		Details:     "order placed",
		AccountName: accountName,
		Status:      core.AuditSuccess,
	})

	writeJSON(w, http.StatusCreated, result)
}
