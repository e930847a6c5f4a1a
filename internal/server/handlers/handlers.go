// Package handlers implements the dashboard API endpoints. Handlers are
// methods on a Handlers value carrying their dependencies; error writing
// is delegated to the responder installed by the server package.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/vpsdash/vpsdash/internal/api"
	"github.com/vpsdash/vpsdash/internal/core"
	"github.com/vpsdash/vpsdash/internal/poller"
)

// ErrorResponder writes an error response for the given error.
type ErrorResponder func(w http.ResponseWriter, r *http.Request, err error)

var respondError ErrorResponder = func(w http.ResponseWriter, r *http.Request, err error) {
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

// SetErrorResponder installs the centralized error responder.
func SetErrorResponder(responder ErrorResponder) {
	if responder != nil {
		respondError = responder
	}
}

// Fleet is the poller surface the dashboard reads.
type Fleet interface {
	Servers() []core.Server
	LastRefreshed() time.Time
	Err() string
	Loading() bool
	Refresh(ctx context.Context, mode poller.RefreshMode) error
}

// ProviderClient is the slice of the API client the handlers consume.
type ProviderClient interface {
	PowerAction(ctx context.Context, serverID string, state core.PowerState) (*core.PowerResponse, error)
	GetBalance(ctx context.Context) (*core.BalanceResponse, error)
	GetPlans(ctx context.Context) ([]core.Plan, error)
	GetStock(ctx context.Context) ([]core.StockInfo, error)
	GetRegions(ctx context.Context) ([]core.Region, error)
	GetDistros(ctx context.Context) ([]core.Distribution, error)
	PurchaseServer(ctx context.Context, req core.PurchaseRequest) (*core.PurchaseResponse, error)
}

// ClientSource resolves the active account into a provider client and
// the account's display name.
type ClientSource func(ctx context.Context) (ProviderClient, string, error)

// GroupStore is the persistence surface for server groups.
type GroupStore interface {
	CreateGroup(ctx context.Context, name, description, color string) (*core.Group, error)
	ListGroups(ctx context.Context) ([]core.Group, error)
	GetGroup(ctx context.Context, ref string) (*core.Group, error)
	UpdateGroup(ctx context.Context, ref, name, description, color string) (*core.Group, error)
	DeleteGroup(ctx context.Context, ref string) error
	AddServersToGroup(ctx context.Context, ref string, serverIDs ...string) (*core.Group, error)
	RemoveServersFromGroup(ctx context.Context, ref string, serverIDs ...string) (*core.Group, error)
	GroupForServer(ctx context.Context, serverID string) (*core.Group, error)
}

// AuditStore records and lists audit entries.
type AuditStore interface {
	Record(ctx context.Context, record core.AuditRecord)
	ListAudit(ctx context.Context, limit int) ([]core.AuditRecord, error)
}

// Handlers carries the dependencies of every endpoint. Any nil field
// disables the endpoints that need it with a 500.
type Handlers struct {
	Fleet  Fleet
	Client ClientSource
	Groups GroupStore
	Audit  AuditStore
	Logger *zap.Logger
}

func (h *Handlers) client(ctx context.Context) (ProviderClient, string, error) {
	if h == nil || h.Client == nil {
		return nil, "", errors.New("client source is not configured")
	}
	return h.Client(ctx)
}

func (h *Handlers) logger() *zap.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return zap.NewNop()
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func decodeJSON(r *http.Request, out any) error {
	defer r.Body.Close() // nolint:errcheck // best-effort cleanup
	return json.NewDecoder(r.Body).Decode(out)
}

// badRequest builds a local validation error the central responder maps
// to a 400.
func badRequest(code, message string) error {
	return &api.Error{
		Kind:    api.KindValidation,
		Code:    code,
		Message: message,
		Status:  http.StatusBadRequest,
	}
}
