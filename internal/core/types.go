package core

import "time"

// PowerState identifies a server power action.
type PowerState string

const (
	PowerStart PowerState = "start"
	PowerStop  PowerState = "stop"
	PowerReset PowerState = "reset"
)

// Valid reports whether the power state is one of the supported actions.
func (p PowerState) Valid() bool {
	switch p {
	case PowerStart, PowerStop, PowerReset:
		return true
	}
	return false
}

// Server is a provisioned instance as reported by the hosting provider.
// Status is a free-form provider string; "running", "stopped" and
// "suspended" are the canonical values observed in the wild.
type Server struct {
	ID        string `json:"id"`
	Node      string `json:"node"`
	RDNS      string `json:"rdns"`
	Distro    string `json:"distro"`
	Status    string `json:"status"`
	PlanID    int    `json:"plan_id"`
	CreatedAt string `json:"created_at"`
	IPAddress string `json:"ip_address"`
	ExpiryAt  string `json:"expiry_date"`
}

// Running reports whether the provider considers the server powered on.
func (s Server) Running() bool {
	return s.Status == "running"
}

// PowerResponse is the provider acknowledgement for a power action.
type PowerResponse struct {
	Status bool `json:"status"`
}

// BalanceResponse carries the account balance as a provider-formatted string.
type BalanceResponse struct {
	Balance string `json:"balance"`
}

// Plan describes a purchasable server plan.
type Plan struct {
	ID      int     `json:"id"`
	Cores   int     `json:"cores"`
	Price   float64 `json:"price"`
	Title   string  `json:"title"`
	Memory  int     `json:"memory"`
	Storage int     `json:"storage"`
}

// Region is a provider datacenter location.
type Region struct {
	ID       int    `json:"id"`
	Region   string `json:"region"`
	Location string `json:"location"`
}

// Distribution is an installable operating system image.
type Distribution struct {
	ID          int    `json:"id"`
	Description string `json:"description"`
}

// StockInfo reports plan availability within a region.
type StockInfo struct {
	Region Region `json:"region"`
	Stock  struct {
		Available bool `json:"available"`
		Stock     int  `json:"stock"`
		Plan      Plan `json:"plan"`
	} `json:"stock"`
}

// PurchaseRequest identifies what to provision. All identifiers must be
// positive; validation happens locally before any network call.
type PurchaseRequest struct {
	DistroID int `json:"distro_id" validate:"required,gt=0"`
	RegionID int `json:"region_id" validate:"required,gt=0"`
	PlanID   int `json:"plan_id" validate:"required,gt=0"`
}

// PurchaseResponse acknowledges a server order.
type PurchaseResponse struct {
	Success  bool `json:"success"`
	ServerID int  `json:"server_id"`
}

// AccountStatus tracks whether a stored account's key is usable.
type AccountStatus string

const (
	AccountActive  AccountStatus = "active"
	AccountPending AccountStatus = "pending"
	AccountError   AccountStatus = "error"
)

// Account is a stored provider credential with a display name.
// The API key is encrypted at rest; this struct holds the plaintext
// only while in memory.
type Account struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	APIKey      string        `json:"-"`
	Status      AccountStatus `json:"status"`
	LastChecked time.Time     `json:"last_checked"`
	LastError   string        `json:"error,omitempty"`
}

// Group is a named collection of servers.
type Group struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Color       string    `json:"color"`
	ServerIDs   []string  `json:"server_ids"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// AuditStatus is the outcome recorded for an audited action.
type AuditStatus string

const (
	AuditSuccess AuditStatus = "success"
	AuditFailure AuditStatus = "failure"
)

// AuditRecord is a user-visible trace of an action taken against an account.
type AuditRecord struct {
	ID              string      `json:"id"`
	Timestamp       time.Time   `json:"timestamp"`
	Action          string      `json:"action"`
	Details         string      `json:"details"`
	AccountName     string      `json:"account_name"`
	Status          AuditStatus `json:"status"`
	AffectedServers []string    `json:"affected_servers,omitempty"`
}
