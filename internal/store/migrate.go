package store

import (
	"context"
	"errors"
	"fmt"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		api_key TEXT NOT NULL,
		key_digest TEXT NOT NULL UNIQUE,
		status TEXT NOT NULL,
		last_checked INTEGER,
		last_error TEXT,
		is_active INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS groups (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		description TEXT,
		color TEXT,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS group_servers (
		server_id TEXT PRIMARY KEY,
		group_id TEXT NOT NULL REFERENCES groups(id) ON DELETE CASCADE
	);`,
	`CREATE INDEX IF NOT EXISTS idx_group_servers_group ON group_servers(group_id);`,
	`CREATE TABLE IF NOT EXISTS audit_log (
		id TEXT PRIMARY KEY,
		created_at INTEGER NOT NULL,
		action TEXT NOT NULL,
		details TEXT,
		account_name TEXT,
		status TEXT NOT NULL,
		affected_servers TEXT
	);`,
	`CREATE INDEX IF NOT EXISTS idx_audit_log_created ON audit_log(created_at DESC);`,
}

// Migrate ensures the required database tables exist.
func (s *Store) Migrate(ctx context.Context) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	for _, stmt := range schemaStatements {
		if _, err := s.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("store migration failed: %w", err)
		}
	}

	return nil
}
