package core

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// defaultBatchConcurrency bounds parallel power actions so a large group
// does not burn the whole rate-limit window in one burst.
const defaultBatchConcurrency = 5

// PowerActioner is the slice of the API client batch operations consume.
type PowerActioner interface {
	PowerAction(ctx context.Context, serverID string, state PowerState) (*PowerResponse, error)
}

// BatchAuditor accepts fire-and-forget audit records for batch actions.
type BatchAuditor interface {
	Record(ctx context.Context, record AuditRecord)
}

// BatchResult tallies a batch power action. Every requested server is
// accounted for exactly once in Succeeded or Errors.
type BatchResult struct {
	Action    PowerState        `json:"action"`
	Succeeded []string          `json:"succeeded"`
	Failed    int               `json:"failed"`
	Errors    map[string]string `json:"errors,omitempty"`
}

// BatchPower applies one power action to every listed server. Failures
// never abort the batch: each server settles on its own, and the result
// carries the per-server outcome. Concurrency is bounded; zero or
// negative takes the default.
func BatchPower(ctx context.Context, client PowerActioner, state PowerState, serverIDs []string, concurrency int) (*BatchResult, error) {
	if client == nil {
		return nil, fmt.Errorf("power client is required")
	}
	if !state.Valid() {
		return nil, fmt.Errorf("unsupported power action: %s", state)
	}
	if concurrency <= 0 {
		concurrency = defaultBatchConcurrency
	}

	result := &BatchResult{
		Action: state,
		Errors: map[string]string{},
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for _, serverID := range serverIDs {
		serverID := serverID
		g.Go(func() error {
			_, err := client.PowerAction(gctx, serverID, state)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Failed++
				result.Errors[serverID] = err.Error()
				return nil
			}
			result.Succeeded = append(result.Succeeded, serverID)
			return nil
		})
	}

	// workers always return nil; Wait only orders completion
	_ = g.Wait()

	sort.Strings(result.Succeeded)
	if len(result.Errors) == 0 {
		result.Errors = nil
	}
	return result, nil
}

// AuditBatch writes the audit trail for a settled batch.
func AuditBatch(ctx context.Context, auditor BatchAuditor, accountName string, result *BatchResult) {
	if auditor == nil || result == nil {
		return
	}

	status := AuditSuccess
	if result.Failed > 0 {
		status = AuditFailure
	}

	auditor.Record(ctx, AuditRecord{
		Timestamp:       time.Now().UTC(),
		Action:          "BATCH_" + strings.ToUpper(string(result.Action)),
		Details:         fmt.Sprintf("%d succeeded, %d failed", len(result.Succeeded), result.Failed),
		AccountName:     accountName,
		Status:          status,
		AffectedServers: result.Succeeded,
	})
}
