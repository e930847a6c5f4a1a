package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vpsdash/vpsdash/internal/core"
)

// Record appends an audit entry. It is fire-and-forget: failures are
// swallowed so auditing never blocks the action being audited.
func (s *Store) Record(ctx context.Context, record core.AuditRecord) {
	_ = s.AppendAudit(ctx, record)
}

// AppendAudit appends an audit entry and reports failures.
func (s *Store) AppendAudit(ctx context.Context, record core.AuditRecord) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now().UTC()
	}

	var affected string
	if len(record.AffectedServers) > 0 {
		payload, err := json.Marshal(record.AffectedServers)
		if err != nil {
			return fmt.Errorf("encode audit record: %w", err)
		}
		affected = string(payload)
	}

	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO audit_log (id, created_at, action, details, account_name, status, affected_servers)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, record.ID, record.Timestamp.UTC().Unix(), record.Action, record.Details,
		record.AccountName, string(record.Status), affected)
	if err != nil {
		return fmt.Errorf("store audit record: %w", err)
	}

	return nil
}

// ListAudit returns the newest audit entries first, up to limit. A limit
// of zero or less returns the most recent 100 entries.
func (s *Store) ListAudit(ctx context.Context, limit int) ([]core.AuditRecord, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	if limit <= 0 {
		limit = 100
	}

	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, created_at, action, details, account_name, status, affected_servers
		FROM audit_log
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit records: %w", err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup on SQL rows

	var records []core.AuditRecord
	for rows.Next() {
		var (
			record    core.AuditRecord
			createdAt int64
			details   sql.NullString
			account   sql.NullString
			status    string
			affected  sql.NullString
		)
		if err := rows.Scan(&record.ID, &createdAt, &record.Action, &details, &account, &status, &affected); err != nil {
			return nil, fmt.Errorf("list audit records: %w", err)
		}

		record.Timestamp = time.Unix(createdAt, 0).UTC()
		record.Details = details.String
		record.AccountName = account.String
		record.Status = core.AuditStatus(status)
		if affected.Valid && affected.String != "" {
			if err := json.Unmarshal([]byte(affected.String), &record.AffectedServers); err != nil {
				return nil, fmt.Errorf("decode audit record: %w", err)
			}
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list audit records: %w", err)
	}

	return records, nil
}
