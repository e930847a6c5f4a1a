package poller

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vpsdash/vpsdash/internal/core"
)

type fakeAccounts struct {
	account *core.Account
}

func (f *fakeAccounts) ActiveAccount() (*core.Account, bool) {
	if f == nil || f.account == nil {
		return nil, false
	}
	return f.account, true
}

type fakeLister struct {
	mu      sync.Mutex
	servers []core.Server
	err     error
	calls   int
}

func (f *fakeLister) ListServers(ctx context.Context) ([]core.Server, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.servers, nil
}

func (f *fakeLister) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *fakeLister) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeAudit struct {
	mu      sync.Mutex
	records []core.AuditRecord
}

func (f *fakeAudit) Record(ctx context.Context, record core.AuditRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, record)
}

func (f *fakeAudit) all() []core.AuditRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]core.AuditRecord, len(f.records))
	copy(out, f.records)
	return out
}

// noRetry disables the extra backoff retry so tests control every refresh.
func noRetry(d time.Duration, fn func()) *time.Timer {
	return time.NewTimer(time.Hour)
}

func testPoller(lister *fakeLister, audit *fakeAudit) *Poller {
	p := &Poller{
		Accounts:  &fakeAccounts{account: &core.Account{Name: "prod", APIKey: "key"}},
		NewClient: func(apiKey string) (ServerLister, error) { return lister, nil },
		Clock:     func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) },
		AfterFunc: noRetry,
	}
	if audit != nil {
		p.Audit = audit
	}
	return p
}

func TestRefreshSuccessStoresServers(t *testing.T) {
	lister := &fakeLister{servers: []core.Server{{ID: "srv-1", Status: "running"}}}
	audit := &fakeAudit{}
	p := testPoller(lister, audit)

	require.NoError(t, p.Refresh(context.Background(), ModeManual))

	servers := p.Servers()
	require.Len(t, servers, 1)
	require.Equal(t, "srv-1", servers[0].ID)
	require.Equal(t, 0, p.FailedAttempts())
	require.Empty(t, p.Err())
	require.False(t, p.LastRefreshed().IsZero())

	records := audit.all()
	require.Len(t, records, 1)
	require.Equal(t, "SERVERS_REFRESH", records[0].Action)
	require.Equal(t, core.AuditSuccess, records[0].Status)
}

func TestSilentRefreshDoesNotAudit(t *testing.T) {
	lister := &fakeLister{servers: []core.Server{{ID: "srv-1"}}}
	audit := &fakeAudit{}
	p := testPoller(lister, audit)

	require.NoError(t, p.Refresh(context.Background(), ModeScheduledSilent))
	require.Empty(t, audit.all())
}

func TestRefreshWithoutAccountSkipsNetwork(t *testing.T) {
	lister := &fakeLister{}
	p := testPoller(lister, nil)
	p.Accounts = &fakeAccounts{}

	err := p.Refresh(context.Background(), ModeManual)
	require.Error(t, err)
	require.Equal(t, "No active account", p.Err())
	require.Equal(t, 0, lister.callCount())
}

func TestFailuresPreserveLastKnownGood(t *testing.T) {
	lister := &fakeLister{servers: []core.Server{{ID: "srv-1"}, {ID: "srv-2"}}}
	audit := &fakeAudit{}
	p := testPoller(lister, audit)

	require.NoError(t, p.Refresh(context.Background(), ModeManual))
	lister.setErr(errors.New("upstream down"))

	// Fourteen consecutive silent failures: cache intact, nothing visible.
	for i := 0; i < 14; i++ {
		require.Error(t, p.Refresh(context.Background(), ModeScheduledSilent))
	}

	require.Equal(t, 14, p.FailedAttempts())
	require.Empty(t, p.Err())
	require.Len(t, p.Servers(), 2)

	// The fifteenth failure on a manual refresh becomes visible, once.
	require.Error(t, p.Refresh(context.Background(), ModeManual))
	require.Equal(t, 15, p.FailedAttempts())
	require.Contains(t, p.Err(), "upstream down")
	require.Len(t, p.Servers(), 2)

	var failures int
	for _, record := range audit.all() {
		if record.Status == core.AuditFailure {
			failures++
		}
	}
	require.Equal(t, 1, failures)

	// Success clears everything.
	lister.setErr(nil)
	require.NoError(t, p.Refresh(context.Background(), ModeManual))
	require.Equal(t, 0, p.FailedAttempts())
	require.Empty(t, p.Err())
}

func TestSilentFailuresNeverSurfaceErrors(t *testing.T) {
	lister := &fakeLister{err: errors.New("down")}
	p := testPoller(lister, nil)

	for i := 0; i < 20; i++ {
		require.Error(t, p.Refresh(context.Background(), ModeScheduledSilent))
	}
	require.Empty(t, p.Err())
}

func TestLoadingShownOnlyAfterThreshold(t *testing.T) {
	lister := &fakeLister{err: errors.New("down")}
	p := testPoller(lister, nil)

	require.Error(t, p.Refresh(context.Background(), ModeManual))
	require.False(t, p.Loading())

	for i := 0; i < 14; i++ {
		require.Error(t, p.Refresh(context.Background(), ModeScheduledSilent))
	}

	// Loading flips on during the refresh, then off when it settles.
	lister.setErr(nil)
	lister.servers = []core.Server{{ID: "srv-1"}}
	require.NoError(t, p.Refresh(context.Background(), ModeManual))
	require.False(t, p.Loading())
}

func TestRetryBackoffSchedule(t *testing.T) {
	lister := &fakeLister{err: errors.New("down")}
	p := testPoller(lister, nil)

	var delays []time.Duration
	p.AfterFunc = func(d time.Duration, fn func()) *time.Timer {
		delays = append(delays, d)
		return time.NewTimer(time.Hour)
	}

	for i := 0; i < 6; i++ {
		require.Error(t, p.Refresh(context.Background(), ModeScheduledSilent))
	}

	require.Equal(t, []time.Duration{
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		16 * time.Second,
		30 * time.Second,
		30 * time.Second,
	}, delays)
}

func TestStartIsIdempotentAndStopDisarms(t *testing.T) {
	refreshed := make(chan struct{}, 4)
	lister := &fakeLister{servers: []core.Server{{ID: "srv-1"}}}
	p := testPoller(lister, nil)
	p.Interval = time.Hour
	p.NewClient = func(apiKey string) (ServerLister, error) {
		select {
		case refreshed <- struct{}{}:
		default:
		}
		return lister, nil
	}

	p.Start(context.Background())
	p.Start(context.Background())
	require.True(t, p.Scheduled())

	select {
	case <-refreshed:
	case <-time.After(2 * time.Second):
		t.Fatal("initial refresh never ran")
	}

	p.Stop()
	p.Stop()
	require.False(t, p.Scheduled())
}
