package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vpsdash/vpsdash/internal/core"
	"github.com/vpsdash/vpsdash/internal/store"
)

// GroupRequest carries the mutable fields of a group.
type GroupRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Color       string `json:"color"`
}

// GroupServersRequest lists servers to add or remove.
type GroupServersRequest struct {
	ServerIDs []string `json:"server_ids"`
}

// ListGroups returns all groups with their member servers.
func (h *Handlers) ListGroups(w http.ResponseWriter, r *http.Request) {
	if h.Groups == nil {
		respondError(w, r, errors.New("group store is not configured"))
		return
	}

	groups, err := h.Groups.ListGroups(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	if groups == nil {
		groups = []core.Group{}
	}
	writeJSON(w, http.StatusOK, groups)
}

// CreateGroup creates a new group.
func (h *Handlers) CreateGroup(w http.ResponseWriter, r *http.Request) {
	if h.Groups == nil {
		respondError(w, r, errors.New("group store is not configured"))
		return
	}

	var req GroupRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, badRequest("INVALID_REQUEST_BODY", "Request body must be valid JSON"))
		return
	}

	group, err := h.Groups.CreateGroup(r.Context(), req.Name, req.Description, req.Color)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, group)
}

// GetGroup returns one group by id or name.
func (h *Handlers) GetGroup(w http.ResponseWriter, r *http.Request) {
	if h.Groups == nil {
		respondError(w, r, errors.New("group store is not configured"))
		return
	}

	group, err := h.Groups.GetGroup(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	if group == nil {
		respondError(w, r, &store.GroupError{Code: store.CodeInvalidGroup, Message: "group does not exist"})
		return
	}
	writeJSON(w, http.StatusOK, group)
}

// UpdateGroup changes a group's name, description or color.
func (h *Handlers) UpdateGroup(w http.ResponseWriter, r *http.Request) {
	if h.Groups == nil {
		respondError(w, r, errors.New("group store is not configured"))
		return
	}

	var req GroupRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, badRequest("INVALID_REQUEST_BODY", "Request body must be valid JSON"))
		return
	}

	group, err := h.Groups.UpdateGroup(r.Context(), chi.URLParam(r, "id"), req.Name, req.Description, req.Color)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, group)
}

// DeleteGroup removes a group.
func (h *Handlers) DeleteGroup(w http.ResponseWriter, r *http.Request) {
	if h.Groups == nil {
		respondError(w, r, errors.New("group store is not configured"))
		return
	}

	if err := h.Groups.DeleteGroup(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ServerGroup returns the group a server belongs to.
func (h *Handlers) ServerGroup(w http.ResponseWriter, r *http.Request) {
	if h.Groups == nil {
		respondError(w, r, errors.New("group store is not configured"))
		return
	}

	group, err := h.Groups.GroupForServer(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	if group == nil {
		respondError(w, r, &store.GroupError{Code: store.CodeInvalidGroup, Message: "server is not in a group"})
		return
	}
	writeJSON(w, http.StatusOK, group)
}

// AddGroupServers adds servers to a group.
func (h *Handlers) AddGroupServers(w http.ResponseWriter, r *http.Request) {
	if h.Groups == nil {
		respondError(w, r, errors.New("group store is not configured"))
		return
	}

	var req GroupServersRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, badRequest("INVALID_REQUEST_BODY", "Request body must be valid JSON"))
		return
	}

	group, err := h.Groups.AddServersToGroup(r.Context(), chi.URLParam(r, "id"), req.ServerIDs...)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, group)
}

// RemoveGroupServers removes servers from a group.
func (h *Handlers) RemoveGroupServers(w http.ResponseWriter, r *http.Request) {
	if h.Groups == nil {
		respondError(w, r, errors.New("group store is not configured"))
		return
	}

	var req GroupServersRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, badRequest("INVALID_REQUEST_BODY", "Request body must be valid JSON"))
		return
	}

	group, err := h.Groups.RemoveServersFromGroup(r.Context(), chi.URLParam(r, "id"), req.ServerIDs...)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, group)
}
