// Package poller keeps a local cache of the account's servers fresh
// without letting transient provider failures flicker consumers into an
// error state or clobber valid data.
package poller

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vpsdash/vpsdash/internal/core"
)

// RefreshMode distinguishes a user-initiated refresh from the recurring
// background schedule.
type RefreshMode int

const (
	// ModeManual is a user-visible refresh: it may show loading state and
	// writes audit records.
	ModeManual RefreshMode = iota
	// ModeScheduledSilent is a background refresh: it never surfaces
	// loading or error state on its own.
	ModeScheduledSilent
)

const (
	// visibleFailureThreshold is how many consecutive failures accrue
	// before a manual refresh surfaces errors and loading state.
	visibleFailureThreshold = 15

	defaultInterval = time.Minute
	maxRetryBackoff = 30 * time.Second
)

// ServerLister is the slice of the API client the poller consumes.
type ServerLister interface {
	ListServers(ctx context.Context) ([]core.Server, error)
}

// ClientFactory builds a provider client for the given API key.
type ClientFactory func(apiKey string) (ServerLister, error)

// AccountProvider supplies the active account context for refreshes.
type AccountProvider interface {
	ActiveAccount() (*core.Account, bool)
}

// AuditLogger accepts fire-and-forget audit records. The poller does not
// depend on its success.
type AuditLogger interface {
	Record(ctx context.Context, record core.AuditRecord)
}

// Poller owns the refresh lifecycle as an explicit handle: Start arms the
// recurring timer, Stop cancels it, and the snapshot accessors expose the
// last-known-good view. All state swaps are whole-slice replacements so
// readers never observe a partially updated list.
type Poller struct {
	Accounts  AccountProvider
	Audit     AuditLogger
	NewClient ClientFactory
	Logger    *zap.Logger
	Interval  time.Duration
	Clock     func() time.Time

	// AfterFunc schedules the extra backoff retry after a failed refresh.
	// Overridable in tests; defaults to time.AfterFunc.
	AfterFunc func(d time.Duration, fn func()) *time.Timer

	mu             sync.Mutex
	servers        []core.Server
	lastKnownGood  []core.Server
	failedAttempts int
	lastRefreshed  time.Time
	loading        bool
	lastError      string
	scheduled      bool
	stop           chan struct{}
	retryTimer     *time.Timer
}

// Start performs one immediate manual refresh and arms the recurring
// silent schedule. It is idempotent: calling it while scheduled is a
// no-op.
func (p *Poller) Start(ctx context.Context) {
	if p == nil {
		return
	}

	p.mu.Lock()
	if p.scheduled {
		p.mu.Unlock()
		return
	}
	p.scheduled = true
	p.stop = make(chan struct{})
	stop := p.stop
	p.mu.Unlock()

	if ctx == nil {
		ctx = context.Background()
	}

	go func() {
		_ = p.Refresh(ctx, ModeManual)

		ticker := time.NewTicker(p.interval())
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				_ = p.Refresh(ctx, ModeScheduledSilent)
			case <-stop:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop cancels the recurring schedule and any pending backoff retry. It
// does not abort a refresh already in flight. Idempotent.
func (p *Poller) Stop() {
	if p == nil {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stop != nil {
		close(p.stop)
		p.stop = nil
	}
	if p.retryTimer != nil {
		p.retryTimer.Stop()
		p.retryTimer = nil
	}
	p.scheduled = false
}

// Scheduled reports whether the recurring schedule is armed.
func (p *Poller) Scheduled() bool {
	if p == nil {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.scheduled
}

// Refresh performs one refresh in the given mode. Failures preserve the
// last-known-good server list and are surfaced only once enough
// consecutive failures accrue on a manual refresh; every failure also
// schedules an extra silent retry with exponential backoff, layered on
// top of the regular schedule.
func (p *Poller) Refresh(ctx context.Context, mode RefreshMode) error {
	if p == nil {
		return fmt.Errorf("poller is not configured")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	account, ok := p.activeAccount()
	if !ok {
		p.mu.Lock()
		p.lastError = "No active account"
		p.mu.Unlock()
		return fmt.Errorf("no active account")
	}

	p.mu.Lock()
	if mode == ModeManual && p.failedAttempts >= visibleFailureThreshold {
		p.loading = true
	}
	p.mu.Unlock()

	servers, err := p.fetch(ctx, account.APIKey)
	if err != nil {
		p.recordFailure(ctx, account, mode, err)
		return err
	}

	p.mu.Lock()
	p.servers = servers
	p.lastKnownGood = servers
	p.lastRefreshed = p.now()
	p.loading = false
	p.lastError = ""
	p.failedAttempts = 0
	p.mu.Unlock()

	if mode == ModeManual {
		p.audit(ctx, core.AuditRecord{
			Action:      "SERVERS_REFRESH",
			Details:     fmt.Sprintf("Successfully refreshed %d servers", len(servers)),
			AccountName: account.Name,
			Status:      core.AuditSuccess,
		})
	}

	return nil
}

// Servers returns a copy of the cached server list.
func (p *Poller) Servers() []core.Server {
	if p == nil {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]core.Server, len(p.servers))
	copy(out, p.servers)
	return out
}

// LastRefreshed returns the timestamp of the last successful refresh.
func (p *Poller) LastRefreshed() time.Time {
	if p == nil {
		return time.Time{}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastRefreshed
}

// Err returns the user-visible error message, empty when healthy.
func (p *Poller) Err() string {
	if p == nil {
		return ""
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastError
}

// Loading reports whether a visible loading indication is warranted.
func (p *Poller) Loading() bool {
	if p == nil {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loading
}

// FailedAttempts returns the consecutive failure count.
func (p *Poller) FailedAttempts() int {
	if p == nil {
		return 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.failedAttempts
}

func (p *Poller) fetch(ctx context.Context, apiKey string) ([]core.Server, error) {
	if p.NewClient == nil {
		return nil, fmt.Errorf("client factory is not configured")
	}
	client, err := p.NewClient(apiKey)
	if err != nil {
		return nil, err
	}
	return client.ListServers(ctx)
}

func (p *Poller) recordFailure(ctx context.Context, account *core.Account, mode RefreshMode, cause error) {
	p.mu.Lock()
	p.failedAttempts++
	attempts := p.failedAttempts
	visible := mode == ModeManual && attempts >= visibleFailureThreshold
	if visible {
		p.lastError = cause.Error()
	}
	p.loading = false
	// Restore the last-known-good list so the cache is never left as a
	// stale error artifact.
	if p.lastKnownGood != nil {
		p.servers = p.lastKnownGood
	}
	p.mu.Unlock()

	p.logger().Warn("server refresh failed",
		zap.Int("failed_attempts", attempts),
		zap.Bool("visible", visible),
		zap.Error(cause))

	if visible {
		p.audit(ctx, core.AuditRecord{
			Action:      "SERVERS_REFRESH",
			Details:     fmt.Sprintf("Failed to refresh servers: %v", cause),
			AccountName: account.Name,
			Status:      core.AuditFailure,
		})
	}

	p.scheduleRetry(attempts)
}

// scheduleRetry arms one extra silent retry at min(1s * 2^attempts, 30s),
// independent of the recurring schedule.
func (p *Poller) scheduleRetry(attempts int) {
	delay := maxRetryBackoff
	if attempts < 6 {
		delay = time.Second << uint(attempts)
		if delay > maxRetryBackoff {
			delay = maxRetryBackoff
		}
	}

	after := p.AfterFunc
	if after == nil {
		after = time.AfterFunc
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.retryTimer != nil {
		p.retryTimer.Stop()
	}
	p.retryTimer = after(delay, func() {
		_ = p.Refresh(context.Background(), ModeScheduledSilent)
	})
}

func (p *Poller) activeAccount() (*core.Account, bool) {
	if p.Accounts == nil {
		return nil, false
	}
	return p.Accounts.ActiveAccount()
}

func (p *Poller) audit(ctx context.Context, record core.AuditRecord) {
	if p.Audit == nil {
		return
	}
	p.Audit.Record(ctx, record)
}

func (p *Poller) interval() time.Duration {
	if p.Interval > 0 {
		return p.Interval
	}
	return defaultInterval
}

func (p *Poller) now() time.Time {
	if p.Clock != nil {
		return p.Clock()
	}
	return time.Now().UTC()
}

func (p *Poller) logger() *zap.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return zap.NewNop()
}
